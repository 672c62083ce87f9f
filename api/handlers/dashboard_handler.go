package handlers

import (
	"net/http"
	"strconv"

	"example.com/medipi/hub/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// DashboardHandler handles dashboard summary requests
type DashboardHandler struct {
	service service.Service
	log     *logrus.Logger
}

// NewDashboardHandler creates a new DashboardHandler instance
func NewDashboardHandler(svc service.Service, log *logrus.Logger) *DashboardHandler {
	return &DashboardHandler{
		service: svc,
		log:     log,
	}
}

// GetStats handles the headline fleet summary
func (h *DashboardHandler) GetStats(c *gin.Context) {
	stats, err := h.service.DashboardStats(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err, "Failed to load dashboard stats")
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetAlerts handles the actionable alert feed
func (h *DashboardHandler) GetAlerts(c *gin.Context) {
	alerts, err := h.service.DashboardAlerts(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err, "Failed to load dashboard alerts")
		return
	}

	c.JSON(http.StatusOK, alerts)
}

// GetRecentLogs handles the recent dispensing activity feed
func (h *DashboardHandler) GetRecentLogs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "5"))

	logs, err := h.service.RecentLogs(c.Request.Context(), limit)
	if err != nil {
		respondError(c, h.log, err, "Failed to load recent logs")
		return
	}

	c.JSON(http.StatusOK, logs)
}
