package bridge

import (
	"context"
	"fmt"
	"time"

	"example.com/medipi/hub/config"
	"example.com/medipi/hub/internal/models"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// NodeRedClient talks to the Node-RED flow engine over its HTTP endpoints.
// Node-RED owns the last hop to the physical dispensers.
type NodeRedClient struct {
	client *resty.Client
	log    *logrus.Logger
}

// NodeRedDispenser is a dispenser as reported by the Node-RED flows
type NodeRedDispenser struct {
	SerialNumber string `json:"serialNumber"`
	Status       string `json:"status"`
	IPAddress    string `json:"ipAddress,omitempty"`
	LastSeen     string `json:"lastSeen,omitempty"`
}

// scheduleSlot is the schedule shape the Node-RED flows consume
type scheduleSlot struct {
	ScheduleID string            `json:"scheduleId"`
	Time       int               `json:"time"`
	IsActive   bool              `json:"isActive"`
	Chambers   []scheduleChamber `json:"chambers"`
}

type scheduleChamber struct {
	ChamberNumber int    `json:"chamberNumber"`
	Medication    string `json:"medication"`
	DosageAmount  int    `json:"dosageAmount"`
}

// NewNodeRedClient creates a client for the configured Node-RED instance
func NewNodeRedClient(cfg config.NodeRedConfig, log *logrus.Logger) *NodeRedClient {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &NodeRedClient{
		client: client,
		log:    log,
	}
}

// GetDispensers fetches the live dispenser view from Node-RED
func (c *NodeRedClient) GetDispensers(ctx context.Context) ([]NodeRedDispenser, error) {
	var dispensers []NodeRedDispenser

	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&dispensers).
		Get("/medipi/dispensers")
	if err != nil {
		return nil, fmt.Errorf("failed to reach Node-RED: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("Node-RED returned status %d", resp.StatusCode())
	}

	return dispensers, nil
}

// ScanForDispensers asks the Node-RED flows to broadcast a discovery request
func (c *NodeRedClient) ScanForDispensers(ctx context.Context) error {
	resp, err := c.client.R().
		SetContext(ctx).
		Post("/medipi/scan")
	if err != nil {
		return fmt.Errorf("failed to reach Node-RED: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("Node-RED returned status %d", resp.StatusCode())
	}

	return nil
}

// SyncSchedules pushes a dispenser's full schedule set to the Node-RED flows.
// Implements the service's ScheduleSyncer.
func (c *NodeRedClient) SyncSchedules(ctx context.Context, serialNumber string, schedules []*models.Schedule) error {
	slots := make([]scheduleSlot, 0, len(schedules))
	for _, schedule := range schedules {
		slot := scheduleSlot{
			ScheduleID: schedule.ID,
			Time:       schedule.Time,
			IsActive:   schedule.IsActive,
			Chambers:   make([]scheduleChamber, 0, len(schedule.Chambers)),
		}
		for _, content := range schedule.Chambers {
			chamber := scheduleChamber{
				DosageAmount: content.DosageAmount,
			}
			if content.Chamber != nil {
				chamber.ChamberNumber = content.Chamber.ChamberNumber
			}
			if content.Medication != nil {
				chamber.Medication = content.Medication.Name
			}
			slot.Chambers = append(slot.Chambers, chamber)
		}
		slots = append(slots, slot)
	}

	payload := map[string]interface{}{
		"serialNumber": serialNumber,
		"schedules":    slots,
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(payload).
		Post("/medipi/schedules")
	if err != nil {
		return fmt.Errorf("failed to reach Node-RED: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("Node-RED returned status %d", resp.StatusCode())
	}

	c.log.WithFields(logrus.Fields{
		"serial_number": serialNumber,
		"schedules":     len(slots),
	}).Debug("Schedules synced to Node-RED")

	return nil
}
