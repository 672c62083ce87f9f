package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// QueueReporter exposes the state of the dispense-log ingestion queue
type QueueReporter interface {
	IngestorStats() map[string]interface{}
}

// HealthCheck handles health check requests. The ingestion queue state is
// included so operators can spot a backed-up device bridge.
func HealthCheck(queue QueueReporter) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"service":  "MediPi Hub",
			"ingestor": queue.IngestorStats(),
		})
	}
}
