package handlers

import (
	"net/http"

	"example.com/medipi/hub/api/middleware"
	"example.com/medipi/hub/config"
	"example.com/medipi/hub/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// AuthHandler handles login and session requests
type AuthHandler struct {
	service service.Service
	session config.SessionConfig
	log     *logrus.Logger
}

// NewAuthHandler creates a new AuthHandler instance
func NewAuthHandler(svc service.Service, session config.SessionConfig, log *logrus.Logger) *AuthHandler {
	return &AuthHandler{
		service: svc,
		session: session,
		log:     log,
	}
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login handles credential checks and issues a session cookie
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Email and password are required",
		})
		return
	}

	token, user, err := h.service.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, h.log, err, "Failed to log in")
		return
	}

	maxAge := h.session.TTLHours * 3600
	c.SetCookie(h.session.CookieName, token, maxAge, "/", "", h.session.Secure, true)

	c.JSON(http.StatusOK, user)
}

// Logout invalidates the current session
func (h *AuthHandler) Logout(c *gin.Context) {
	token, err := c.Cookie(h.session.CookieName)
	if err == nil && token != "" {
		if err := h.service.Logout(c.Request.Context(), token); err != nil {
			h.log.WithError(err).Warn("Failed to invalidate session")
		}
	}

	c.SetCookie(h.session.CookieName, "", -1, "/", "", h.session.Secure, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// Me returns the authenticated user
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := middleware.GetUserFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "Authentication required",
		})
		return
	}

	c.JSON(http.StatusOK, user)
}
