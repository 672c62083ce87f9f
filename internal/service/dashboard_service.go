package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"example.com/medipi/hub/internal/models"
)

const (
	statsCacheKey = "dashboard:stats"
	statsCacheTTL = 30 * time.Second

	alertWindow   = 24 * time.Hour
	maxAlerts     = 10
	recentLogSize = 5
)

// DashboardStats is the headline fleet summary
type DashboardStats struct {
	PatientCount       int64 `json:"patientCount"`
	DispenserCount     int64 `json:"dispenserCount"`
	OnlineDispensers   int64 `json:"onlineDispensers"`
	AssignedDispensers int64 `json:"assignedDispensers"`
	MedicationCount    int64 `json:"medicationCount"`
	LowStockCount      int64 `json:"lowStockCount"`
}

// Alert is one actionable item surfaced on the dashboard
type Alert struct {
	Type      string    `json:"type"`
	Severity  string    `json:"severity"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// MedicationDose is one medication entry in a dispense log snapshot
type MedicationDose struct {
	Name   string `json:"name"`
	Amount int    `json:"amount"`
}

// RecentLog is a dispense log entry prepared for the dashboard feed
type RecentLog struct {
	ID           string           `json:"id"`
	SerialNumber string           `json:"serialNumber"`
	PatientName  string           `json:"patientName,omitempty"`
	Status       models.LogStatus `json:"status"`
	Timestamp    time.Time        `json:"timestamp"`
	ScheduleTime *int             `json:"scheduleTime,omitempty"`
	Medications  []MedicationDose `json:"medications"`
}

func (s *service) DashboardStats(ctx context.Context) (*DashboardStats, error) {
	if cached, err := s.cache.Get(ctx, statsCacheKey); err == nil {
		var stats DashboardStats
		if err := json.Unmarshal([]byte(cached), &stats); err == nil {
			return &stats, nil
		}
	}

	stats := &DashboardStats{}
	var err error

	if stats.PatientCount, err = s.repo.CountPatients(ctx); err != nil {
		return nil, fmt.Errorf("failed to count patients: %w", err)
	}
	if stats.DispenserCount, err = s.repo.CountDispensers(ctx); err != nil {
		return nil, fmt.Errorf("failed to count dispensers: %w", err)
	}
	if stats.OnlineDispensers, err = s.repo.CountDispensersByStatus(ctx, models.StatusOnline); err != nil {
		return nil, fmt.Errorf("failed to count online dispensers: %w", err)
	}
	if stats.AssignedDispensers, err = s.repo.CountAssignedDispensers(ctx); err != nil {
		return nil, fmt.Errorf("failed to count assigned dispensers: %w", err)
	}
	if stats.MedicationCount, err = s.repo.CountMedications(ctx); err != nil {
		return nil, fmt.Errorf("failed to count medications: %w", err)
	}
	if stats.LowStockCount, err = s.repo.CountLowStockMedications(ctx); err != nil {
		return nil, fmt.Errorf("failed to count low stock medications: %w", err)
	}

	if data, err := json.Marshal(stats); err == nil {
		s.cache.Set(ctx, statsCacheKey, string(data), statsCacheTTL)
	}

	return stats, nil
}

func (s *service) DashboardAlerts(ctx context.Context) ([]Alert, error) {
	alerts := make([]Alert, 0, maxAlerts)

	missed, err := s.repo.ListMissedLogsSince(ctx, time.Now().Add(-alertWindow), maxAlerts)
	if err != nil {
		return nil, fmt.Errorf("failed to load missed doses: %w", err)
	}
	for _, log := range missed {
		// Alerts are patient-facing; a log from an unassigned dispenser
		// has nobody to act on it
		if log.Dispenser == nil || log.Dispenser.Patient == nil {
			continue
		}
		message := fmt.Sprintf("Missed dose for %s (dispenser %s)", log.Dispenser.Patient.Name, log.Dispenser.SerialNumber)
		alerts = append(alerts, Alert{
			Type:      "MISSED_DOSE",
			Severity:  "high",
			Message:   message,
			Timestamp: log.Timestamp,
		})
	}

	lowStock, err := s.repo.ListLowStockMedications(ctx, maxAlerts)
	if err != nil {
		return nil, fmt.Errorf("failed to load low stock medications: %w", err)
	}
	for _, med := range lowStock {
		alerts = append(alerts, Alert{
			Type:      "LOW_STOCK",
			Severity:  "medium",
			Message:   fmt.Sprintf("%s is low on stock (%d %s remaining)", med.Name, med.StockLevel, med.DosageUnit),
			Timestamp: med.UpdatedAt,
		})
	}

	troubled, err := s.repo.ListDispensersByStatusIn(ctx,
		[]models.DispenserStatus{models.StatusOffline, models.StatusError}, maxAlerts)
	if err != nil {
		return nil, fmt.Errorf("failed to load troubled dispensers: %w", err)
	}
	for _, d := range troubled {
		if d.Patient == nil {
			continue
		}
		severity := "medium"
		if d.Status == models.StatusError {
			severity = "high"
		}
		message := fmt.Sprintf("Dispenser %s (patient %s) is %s", d.SerialNumber, d.Patient.Name, d.Status)
		timestamp := d.UpdatedAt
		if d.LastSeen != nil {
			timestamp = *d.LastSeen
		}
		alerts = append(alerts, Alert{
			Type:      "DISPENSER_" + string(d.Status),
			Severity:  severity,
			Message:   message,
			Timestamp: timestamp,
		})
	}

	sort.Slice(alerts, func(i, j int) bool {
		return alerts[i].Timestamp.After(alerts[j].Timestamp)
	})
	if len(alerts) > maxAlerts {
		alerts = alerts[:maxAlerts]
	}

	return alerts, nil
}

func (s *service) RecentLogs(ctx context.Context, limit int) ([]RecentLog, error) {
	if limit <= 0 {
		limit = recentLogSize
	}

	logs, err := s.repo.ListRecentLogs(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent logs: %w", err)
	}

	recent := make([]RecentLog, 0, len(logs))
	for _, log := range logs {
		entry := RecentLog{
			ID:           log.ID,
			SerialNumber: log.Dispenser.SerialNumber,
			Status:       log.Status,
			Timestamp:    log.Timestamp,
			Medications:  []MedicationDose{},
		}
		if log.Dispenser.Patient != nil {
			entry.PatientName = log.Dispenser.Patient.Name
		}
		if log.Schedule != nil {
			hour := log.Schedule.Time
			entry.ScheduleTime = &hour
		}
		// Medications is a snapshot taken at dispense time; a log stays
		// readable even after the schedule behind it is deleted.
		if log.Medications != "" {
			var doses []MedicationDose
			if err := json.Unmarshal([]byte(log.Medications), &doses); err == nil {
				entry.Medications = doses
			}
		}
		recent = append(recent, entry)
	}

	return recent, nil
}
