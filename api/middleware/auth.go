package middleware

import (
	"errors"
	"net/http"

	"example.com/medipi/hub/config"
	"example.com/medipi/hub/internal/models"
	"example.com/medipi/hub/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// contextKey is a type for context keys
type contextKey string

// UserContextKey is the gin context key the authenticated user is stored under
const UserContextKey contextKey = "user"

// SessionAuth middleware validates the session cookie and loads the user
func SessionAuth(svc service.Service, cfg config.SessionConfig, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(cfg.CookieName)
		if err != nil || token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authentication required",
			})
			c.Abort()
			return
		}

		user, err := svc.ValidateSession(c.Request.Context(), token)
		if err != nil {
			log.WithError(err).Debug("Session validation failed")
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or expired session",
			})
			c.Abort()
			return
		}

		// Store the user in the context for later use
		c.Set(string(UserContextKey), user)

		c.Next()
	}
}

// RequireAdmin middleware restricts a route to admin users. It must run
// after SessionAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := GetUserFromContext(c)
		if err != nil || user.Role != models.RoleAdmin {
			c.JSON(http.StatusForbidden, gin.H{
				"error": "Admin access required",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// GetUserFromContext retrieves the authenticated user from the context
func GetUserFromContext(c *gin.Context) (*models.User, error) {
	userVal, exists := c.Get(string(UserContextKey))
	if !exists {
		return nil, errors.New("user not found in context")
	}

	user, ok := userVal.(*models.User)
	if !ok {
		return nil, errors.New("user in context has incorrect type")
	}

	return user, nil
}
