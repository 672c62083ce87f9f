package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"example.com/medipi/hub/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestRequireAdminAllowsAdmins(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	admin := &models.User{Role: models.RoleAdmin}
	c.Set(string(UserContextKey), admin)

	RequireAdmin()(c)

	require.False(t, c.IsAborted())
}

func TestRequireAdminRejectsStaff(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	staff := &models.User{Role: models.RoleStaff}
	c.Set(string(UserContextKey), staff)

	RequireAdmin()(c)

	require.True(t, c.IsAborted())
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireAdminRejectsMissingUser(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	RequireAdmin()(c)

	require.True(t, c.IsAborted())
	require.Equal(t, http.StatusForbidden, w.Code)
}
