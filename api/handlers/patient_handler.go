package handlers

import (
	"net/http"
	"strconv"
	"time"

	"example.com/medipi/hub/internal/models"
	"example.com/medipi/hub/internal/repository"
	"example.com/medipi/hub/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// PatientHandler handles patient-related requests
type PatientHandler struct {
	service service.Service
	log     *logrus.Logger
}

// NewPatientHandler creates a new PatientHandler instance
func NewPatientHandler(svc service.Service, log *logrus.Logger) *PatientHandler {
	return &PatientHandler{
		service: svc,
		log:     log,
	}
}

type patientRequest struct {
	Name        string  `json:"name" binding:"required"`
	DateOfBirth string  `json:"dateOfBirth" binding:"required"`
	RoomNumber  *string `json:"roomNumber"`
}

func (r patientRequest) toModel() (*models.Patient, error) {
	dob, err := time.Parse("2006-01-02", r.DateOfBirth)
	if err != nil {
		return nil, err
	}

	return &models.Patient{
		Name:        r.Name,
		DateOfBirth: dob,
		RoomNumber:  r.RoomNumber,
	}, nil
}

// listOptions extracts shared pagination and search query parameters
func listOptions(c *gin.Context) repository.ListOptions {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "10"))

	return repository.ListOptions{
		Search:   c.Query("search"),
		Page:     page,
		PageSize: pageSize,
	}
}

// CreatePatient handles patient creation
func (h *PatientHandler) CreatePatient(c *gin.Context) {
	var req patientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Name and date of birth are required",
		})
		return
	}

	patient, err := req.toModel()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Date of birth must be in YYYY-MM-DD format",
		})
		return
	}

	if err := h.service.CreatePatient(c.Request.Context(), patient); err != nil {
		respondError(c, h.log, err, "Failed to create patient")
		return
	}

	c.JSON(http.StatusCreated, patient)
}

// GetPatient handles patient retrieval
func (h *PatientHandler) GetPatient(c *gin.Context) {
	patient, err := h.service.GetPatient(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err, "Failed to get patient")
		return
	}

	c.JSON(http.StatusOK, patient)
}

// ListPatients handles listing patients with search and pagination
func (h *PatientHandler) ListPatients(c *gin.Context) {
	page, err := h.service.ListPatients(c.Request.Context(), listOptions(c))
	if err != nil {
		respondError(c, h.log, err, "Failed to list patients")
		return
	}

	c.JSON(http.StatusOK, page)
}

// UpdatePatient handles patient updates
func (h *PatientHandler) UpdatePatient(c *gin.Context) {
	var req patientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Name and date of birth are required",
		})
		return
	}

	patient, err := req.toModel()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Date of birth must be in YYYY-MM-DD format",
		})
		return
	}

	updated, err := h.service.UpdatePatient(c.Request.Context(), c.Param("id"), patient)
	if err != nil {
		respondError(c, h.log, err, "Failed to update patient")
		return
	}

	c.JSON(http.StatusOK, updated)
}

// DeletePatient handles patient deletion
func (h *PatientHandler) DeletePatient(c *gin.Context) {
	if err := h.service.DeletePatient(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.log, err, "Failed to delete patient")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Patient deleted"})
}
