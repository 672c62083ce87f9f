package handlers

import (
	"errors"
	"net/http"

	"example.com/medipi/hub/internal/repository"
	"example.com/medipi/hub/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// respondError maps service and repository errors onto HTTP responses.
// Unknown errors are logged and reported as a plain 500 so internals never
// leak to the dashboard.
func respondError(c *gin.Context, log *logrus.Logger, err error, fallback string) {
	var svcErr *service.Error
	if errors.As(err, &svcErr) {
		c.JSON(svcErr.StatusCode, gin.H{
			"error": svcErr.Message,
			"code":  svcErr.Code,
		})
		return
	}

	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Resource not found",
		})
		return
	}

	log.WithError(err).Error(fallback)
	c.JSON(http.StatusInternalServerError, gin.H{
		"error": fallback,
	})
}
