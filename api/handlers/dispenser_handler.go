package handlers

import (
	"net/http"

	"example.com/medipi/hub/internal/models"
	"example.com/medipi/hub/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// DispenserHandler handles dispenser and schedule requests
type DispenserHandler struct {
	service service.Service
	log     *logrus.Logger
}

// NewDispenserHandler creates a new DispenserHandler instance
func NewDispenserHandler(svc service.Service, log *logrus.Logger) *DispenserHandler {
	return &DispenserHandler{
		service: svc,
		log:     log,
	}
}

type createDispenserRequest struct {
	SerialNumber string `json:"serialNumber" binding:"required"`
	Status       string `json:"status"`
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type assignPatientRequest struct {
	PatientID string `json:"patientId" binding:"required"`
}

// CreateDispenser handles dispenser registration
func (h *DispenserHandler) CreateDispenser(c *gin.Context) {
	var req createDispenserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Serial number is required",
		})
		return
	}

	dispenser, err := h.service.CreateDispenser(c.Request.Context(), req.SerialNumber, models.DispenserStatus(req.Status))
	if err != nil {
		respondError(c, h.log, err, "Failed to create dispenser")
		return
	}

	c.JSON(http.StatusCreated, dispenser)
}

// GetDispenser handles dispenser retrieval
func (h *DispenserHandler) GetDispenser(c *gin.Context) {
	dispenser, err := h.service.GetDispenser(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err, "Failed to get dispenser")
		return
	}

	c.JSON(http.StatusOK, dispenser)
}

// ListDispensers handles listing dispensers with search and pagination
func (h *DispenserHandler) ListDispensers(c *gin.Context) {
	var assigned *bool
	switch c.Query("assigned") {
	case "true":
		v := true
		assigned = &v
	case "false":
		v := false
		assigned = &v
	}

	page, err := h.service.ListDispensers(c.Request.Context(), listOptions(c), assigned)
	if err != nil {
		respondError(c, h.log, err, "Failed to list dispensers")
		return
	}

	c.JSON(http.StatusOK, page)
}

// UpdateDispenserStatus handles manual dispenser status changes
func (h *DispenserHandler) UpdateDispenserStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Status is required",
		})
		return
	}

	dispenser, err := h.service.UpdateDispenserStatus(c.Request.Context(), c.Param("id"), models.DispenserStatus(req.Status))
	if err != nil {
		respondError(c, h.log, err, "Failed to update dispenser status")
		return
	}

	c.JSON(http.StatusOK, dispenser)
}

// DeleteDispenser handles dispenser deletion
func (h *DispenserHandler) DeleteDispenser(c *gin.Context) {
	if err := h.service.DeleteDispenser(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.log, err, "Failed to delete dispenser")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Dispenser deleted"})
}

// AssignPatient handles pairing a patient with a dispenser
func (h *DispenserHandler) AssignPatient(c *gin.Context) {
	var req assignPatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Patient ID is required",
		})
		return
	}

	dispenser, err := h.service.AssignPatient(c.Request.Context(), c.Param("id"), req.PatientID)
	if err != nil {
		respondError(c, h.log, err, "Failed to assign patient")
		return
	}

	c.JSON(http.StatusOK, dispenser)
}

// UnassignPatient handles removing the patient pairing from a dispenser
func (h *DispenserHandler) UnassignPatient(c *gin.Context) {
	dispenser, err := h.service.UnassignPatient(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err, "Failed to unassign patient")
		return
	}

	c.JSON(http.StatusOK, dispenser)
}

// CreateSchedule handles schedule creation for a dispenser
func (h *DispenserHandler) CreateSchedule(c *gin.Context) {
	var req service.ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid schedule format",
		})
		return
	}

	schedule, err := h.service.CreateSchedule(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, h.log, err, "Failed to create schedule")
		return
	}

	c.JSON(http.StatusCreated, schedule)
}

// ListSchedules handles listing a dispenser's schedules
func (h *DispenserHandler) ListSchedules(c *gin.Context) {
	schedules, err := h.service.ListSchedules(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err, "Failed to list schedules")
		return
	}

	c.JSON(http.StatusOK, schedules)
}

// GetSchedule handles schedule retrieval
func (h *DispenserHandler) GetSchedule(c *gin.Context) {
	schedule, err := h.service.GetSchedule(c.Request.Context(), c.Param("id"), c.Param("scheduleId"))
	if err != nil {
		respondError(c, h.log, err, "Failed to get schedule")
		return
	}

	c.JSON(http.StatusOK, schedule)
}

// UpdateSchedule handles schedule updates
func (h *DispenserHandler) UpdateSchedule(c *gin.Context) {
	var req service.ScheduleUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid schedule format",
		})
		return
	}

	schedule, err := h.service.UpdateSchedule(c.Request.Context(), c.Param("id"), c.Param("scheduleId"), req)
	if err != nil {
		respondError(c, h.log, err, "Failed to update schedule")
		return
	}

	c.JSON(http.StatusOK, schedule)
}

// DeleteSchedule handles schedule deletion
func (h *DispenserHandler) DeleteSchedule(c *gin.Context) {
	if err := h.service.DeleteSchedule(c.Request.Context(), c.Param("id"), c.Param("scheduleId")); err != nil {
		respondError(c, h.log, err, "Failed to delete schedule")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Schedule deleted"})
}
