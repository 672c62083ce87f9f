package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"example.com/medipi/hub/internal/repository"
	"example.com/medipi/hub/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestRespondErrorMapsDomainErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", service.NewValidationError("bad input"), http.StatusBadRequest},
		{"conflict", service.NewConflictError("already exists"), http.StatusConflict},
		{"not found", service.NewNotFoundError("missing"), http.StatusNotFound},
		{"unauthorized", service.ErrUnauthorized, http.StatusUnauthorized},
		{"repo not found", repository.ErrNotFound, http.StatusNotFound},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			respondError(c, log, tc.err, "Something failed")

			require.Equal(t, tc.status, w.Code)
		})
	}
}

func TestRespondErrorHidesInternalDetails(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	respondError(c, log, errors.New("pq: connection refused"), "Failed to list patients")

	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.NotContains(t, w.Body.String(), "connection refused")
	require.Contains(t, w.Body.String(), "Failed to list patients")
}
