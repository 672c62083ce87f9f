package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

type stubQueue struct {
	stats map[string]interface{}
}

func (s stubQueue) IngestorStats() map[string]interface{} {
	return s.stats
}

func TestHealthCheckReportsIngestorState(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)

	queue := stubQueue{stats: map[string]interface{}{
		"queue_length":   0,
		"queue_capacity": 1000,
		"worker_count":   4,
	}}

	HealthCheck(queue)(c)

	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "healthy", body["status"])

	ingestor, ok := body["ingestor"].(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, float64(1000), ingestor["queue_capacity"])
}
