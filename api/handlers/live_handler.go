package handlers

import (
	"context"
	"net/http"

	"example.com/medipi/hub/internal/bridge"
	"example.com/medipi/hub/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// DeviceNetwork is the view of the device side the live endpoints need
type DeviceNetwork interface {
	GetDispensers(ctx context.Context) ([]bridge.NodeRedDispenser, error)
	ScanForDispensers(ctx context.Context) error
}

// DiscoveryRegistry exposes the devices seen on the discovery topic
type DiscoveryRegistry interface {
	Discovered() []*bridge.DiscoveredDispenser
	MarkRegistered(serialNumber string)
}

// DispenserLookup resolves a serial number to a registered dispenser
type DispenserLookup interface {
	GetDispenserBySerial(ctx context.Context, serialNumber string) (*models.Dispenser, error)
}

// LiveHandler handles live device-network requests
type LiveHandler struct {
	network   DeviceNetwork
	discovery DiscoveryRegistry
	lookup    DispenserLookup
	log       *logrus.Logger
}

// NewLiveHandler creates a new LiveHandler instance
func NewLiveHandler(network DeviceNetwork, discovery DiscoveryRegistry, lookup DispenserLookup, log *logrus.Logger) *LiveHandler {
	return &LiveHandler{
		network:   network,
		discovery: discovery,
		lookup:    lookup,
		log:       log,
	}
}

// GetLiveDispensers handles fetching the live dispenser view from the
// device network
func (h *LiveHandler) GetLiveDispensers(c *gin.Context) {
	dispensers, err := h.network.GetDispensers(c.Request.Context())
	if err != nil {
		h.log.WithError(err).Error("Failed to reach device network")
		c.JSON(http.StatusBadGateway, gin.H{
			"error": "Device network unreachable",
		})
		return
	}

	c.JSON(http.StatusOK, dispensers)
}

// ScanForDispensers handles triggering a discovery broadcast
func (h *LiveHandler) ScanForDispensers(c *gin.Context) {
	if err := h.network.ScanForDispensers(c.Request.Context()); err != nil {
		h.log.WithError(err).Error("Failed to trigger dispenser scan")
		c.JSON(http.StatusBadGateway, gin.H{
			"error": "Device network unreachable",
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"message": "Scan started"})
}

// GetDiscoveredDispensers handles listing devices seen on the discovery topic
func (h *LiveHandler) GetDiscoveredDispensers(c *gin.Context) {
	devices := h.discovery.Discovered()

	// A device may have been registered after its discovery announce, so
	// re-check unregistered entries against the fleet before serving them
	for _, device := range devices {
		if device.Registered {
			continue
		}
		if _, err := h.lookup.GetDispenserBySerial(c.Request.Context(), device.SerialNumber); err == nil {
			device.Registered = true
			h.discovery.MarkRegistered(device.SerialNumber)
		}
	}

	c.JSON(http.StatusOK, devices)
}
