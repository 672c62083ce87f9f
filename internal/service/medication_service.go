package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"example.com/medipi/hub/internal/models"
	"example.com/medipi/hub/internal/repository"

	"github.com/google/uuid"
)

// MedicationSummary is a medication together with its usage counts
type MedicationSummary struct {
	*models.Medication
	UsageCount     int64 `json:"usageCount"`
	DispenserCount int64 `json:"dispenserCount"`
}

// MedicationPage is one page of medications with pagination metadata
type MedicationPage struct {
	Items      []*MedicationSummary `json:"items"`
	TotalCount int64                `json:"totalCount"`
	Page       int                  `json:"page"`
	PageSize   int                  `json:"pageSize"`
	TotalPages int                  `json:"totalPages"`
}

// StockAdjustment records a single stock change. Adjustments are returned to
// the caller but not persisted as an audit trail.
type StockAdjustment struct {
	ID             string    `json:"id"`
	MedicationID   string    `json:"medicationId"`
	Amount         int       `json:"amount"`
	Reason         string    `json:"reason"`
	PreviousLevel  int       `json:"previousLevel"`
	ResultingLevel int       `json:"resultingLevel"`
	Timestamp      time.Time `json:"timestamp"`
}

func (s *service) CreateMedication(ctx context.Context, med *models.Medication) error {
	if med.Name == "" || med.DosageUnit == "" {
		return NewValidationError("Name and dosage unit are required")
	}
	if med.StockLevel < 0 || med.StockThreshold < 0 {
		return NewValidationError("Stock level and threshold must not be negative")
	}

	_, err := s.repo.FindMedicationByName(ctx, med.Name)
	if err == nil {
		return NewConflictError("A medication with this name already exists")
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("failed to look up medication: %w", err)
	}

	if err := s.repo.CreateMedication(ctx, med); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return NewConflictError("A medication with this name already exists")
		}
		return fmt.Errorf("failed to create medication: %w", err)
	}

	return nil
}

func (s *service) UpdateMedication(ctx context.Context, id string, med *models.Medication) (*models.Medication, error) {
	if med.Name == "" || med.DosageUnit == "" {
		return nil, NewValidationError("Name and dosage unit are required")
	}
	if med.StockLevel < 0 || med.StockThreshold < 0 {
		return nil, NewValidationError("Stock level and threshold must not be negative")
	}

	existing, err := s.repo.FindMedicationByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewNotFoundError("Medication not found")
		}
		return nil, fmt.Errorf("failed to look up medication: %w", err)
	}

	if med.Name != existing.Name {
		if _, err := s.repo.FindMedicationByName(ctx, med.Name); err == nil {
			return nil, NewConflictError("A medication with this name already exists")
		} else if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("failed to look up medication: %w", err)
		}
	}

	existing.Name = med.Name
	existing.Description = med.Description
	existing.DosageUnit = med.DosageUnit
	existing.StockLevel = med.StockLevel
	existing.StockThreshold = med.StockThreshold

	if err := s.repo.UpdateMedication(ctx, existing); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, NewConflictError("A medication with this name already exists")
		}
		return nil, fmt.Errorf("failed to update medication: %w", err)
	}

	return existing, nil
}

func (s *service) GetMedication(ctx context.Context, id string) (*models.Medication, error) {
	med, err := s.repo.FindMedicationByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewNotFoundError("Medication not found")
		}
		return nil, fmt.Errorf("failed to look up medication: %w", err)
	}

	return med, nil
}

func (s *service) ListMedications(ctx context.Context, opts repository.ListOptions, lowStockOnly bool) (*MedicationPage, error) {
	meds, total, err := s.repo.ListMedications(ctx, opts, lowStockOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list medications: %w", err)
	}

	summaries := make([]*MedicationSummary, 0, len(meds))
	for _, med := range meds {
		usage, err := s.repo.CountChamberContentByMedication(ctx, med.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to count medication usage: %w", err)
		}
		dispensers, err := s.repo.CountDispensersUsingMedication(ctx, med.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to count dispensers using medication: %w", err)
		}
		summaries = append(summaries, &MedicationSummary{
			Medication:     med,
			UsageCount:     usage,
			DispenserCount: dispensers,
		})
	}

	return &MedicationPage{
		Items:      summaries,
		TotalCount: total,
		Page:       pageOf(opts),
		PageSize:   pageSizeOf(opts),
		TotalPages: totalPages(total, pageSizeOf(opts)),
	}, nil
}

func (s *service) DeleteMedication(ctx context.Context, id string) error {
	if _, err := s.repo.FindMedicationByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return NewNotFoundError("Medication not found")
		}
		return fmt.Errorf("failed to look up medication: %w", err)
	}

	usage, err := s.repo.CountChamberContentByMedication(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to count medication usage: %w", err)
	}
	if usage > 0 {
		return NewValidationError("Cannot delete medication that is loaded into dispensers. Remove it from all schedules first.")
	}

	if err := s.repo.DeleteMedication(ctx, id); err != nil {
		return fmt.Errorf("failed to delete medication: %w", err)
	}

	return nil
}

func (s *service) AdjustStock(ctx context.Context, id string, amount int, reason string) (*StockAdjustment, error) {
	if amount == 0 {
		return nil, NewValidationError("Adjustment amount must not be zero")
	}
	if reason == "" {
		return nil, NewValidationError("Adjustment reason is required")
	}

	var adjustment *StockAdjustment
	err := s.repo.WithTransaction(ctx, func(ctx context.Context, txRepo repository.Repository) error {
		med, err := txRepo.FindMedicationByID(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return NewNotFoundError("Medication not found")
			}
			return err
		}

		previous := med.StockLevel
		newLevel := previous + amount
		if newLevel < 0 {
			return NewValidationError("Adjustment would result in negative stock")
		}

		med.StockLevel = newLevel
		if err := txRepo.UpdateMedication(ctx, med); err != nil {
			return err
		}

		adjustment = &StockAdjustment{
			ID:             uuid.New().String(),
			MedicationID:   med.ID,
			Amount:         amount,
			Reason:         reason,
			PreviousLevel:  previous,
			ResultingLevel: newLevel,
			Timestamp:      time.Now(),
		}
		return nil
	})
	if err != nil {
		var svcErr *Error
		if errors.As(err, &svcErr) {
			return nil, svcErr
		}
		return nil, fmt.Errorf("failed to adjust stock: %w", err)
	}

	s.log.WithFields(map[string]interface{}{
		"medication_id": id,
		"amount":        amount,
		"reason":        reason,
	}).Info("Medication stock adjusted")

	return adjustment, nil
}
