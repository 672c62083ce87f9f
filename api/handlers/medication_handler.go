package handlers

import (
	"net/http"

	"example.com/medipi/hub/internal/models"
	"example.com/medipi/hub/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// MedicationHandler handles medication-related requests
type MedicationHandler struct {
	service service.Service
	log     *logrus.Logger
}

// NewMedicationHandler creates a new MedicationHandler instance
func NewMedicationHandler(svc service.Service, log *logrus.Logger) *MedicationHandler {
	return &MedicationHandler{
		service: svc,
		log:     log,
	}
}

type medicationRequest struct {
	Name           string  `json:"name" binding:"required"`
	Description    *string `json:"description"`
	DosageUnit     string  `json:"dosageUnit" binding:"required"`
	StockLevel     int     `json:"stockLevel"`
	StockThreshold int     `json:"stockThreshold"`
}

func (r medicationRequest) toModel() *models.Medication {
	return &models.Medication{
		Name:           r.Name,
		Description:    r.Description,
		DosageUnit:     r.DosageUnit,
		StockLevel:     r.StockLevel,
		StockThreshold: r.StockThreshold,
	}
}

type stockAdjustmentRequest struct {
	Amount int    `json:"amount" binding:"required"`
	Reason string `json:"reason" binding:"required"`
}

// CreateMedication handles medication creation
func (h *MedicationHandler) CreateMedication(c *gin.Context) {
	var req medicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Name and dosage unit are required",
		})
		return
	}

	med := req.toModel()
	if err := h.service.CreateMedication(c.Request.Context(), med); err != nil {
		respondError(c, h.log, err, "Failed to create medication")
		return
	}

	c.JSON(http.StatusCreated, med)
}

// GetMedication handles medication retrieval
func (h *MedicationHandler) GetMedication(c *gin.Context) {
	med, err := h.service.GetMedication(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err, "Failed to get medication")
		return
	}

	c.JSON(http.StatusOK, med)
}

// ListMedications handles listing medications with search and pagination
func (h *MedicationHandler) ListMedications(c *gin.Context) {
	lowStockOnly := c.Query("lowStock") == "true"

	page, err := h.service.ListMedications(c.Request.Context(), listOptions(c), lowStockOnly)
	if err != nil {
		respondError(c, h.log, err, "Failed to list medications")
		return
	}

	c.JSON(http.StatusOK, page)
}

// UpdateMedication handles medication updates
func (h *MedicationHandler) UpdateMedication(c *gin.Context) {
	var req medicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Name and dosage unit are required",
		})
		return
	}

	updated, err := h.service.UpdateMedication(c.Request.Context(), c.Param("id"), req.toModel())
	if err != nil {
		respondError(c, h.log, err, "Failed to update medication")
		return
	}

	c.JSON(http.StatusOK, updated)
}

// DeleteMedication handles medication deletion
func (h *MedicationHandler) DeleteMedication(c *gin.Context) {
	if err := h.service.DeleteMedication(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.log, err, "Failed to delete medication")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Medication deleted"})
}

// AdjustStock handles manual stock corrections
func (h *MedicationHandler) AdjustStock(c *gin.Context) {
	var req stockAdjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Amount and reason are required",
		})
		return
	}

	adjustment, err := h.service.AdjustStock(c.Request.Context(), c.Param("id"), req.Amount, req.Reason)
	if err != nil {
		respondError(c, h.log, err, "Failed to adjust stock")
		return
	}

	c.JSON(http.StatusOK, adjustment)
}
