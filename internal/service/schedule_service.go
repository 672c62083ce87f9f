package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"example.com/medipi/hub/internal/models"
	"example.com/medipi/hub/internal/repository"
)

// initialChamberFill is the number of doses loaded into a chamber when a
// schedule assignment is created.
const initialChamberFill = 30

// ChamberAssignment maps one chamber to a medication for a schedule
type ChamberAssignment struct {
	ChamberID    string `json:"chamberId"`
	MedicationID string `json:"medicationId"`
	DosageAmount int    `json:"dosageAmount"`
}

// ScheduleRequest carries the fields for creating a schedule
type ScheduleRequest struct {
	Time               int                 `json:"time"`
	StartDate          time.Time           `json:"startDate"`
	EndDate            *time.Time          `json:"endDate"`
	ChamberAssignments []ChamberAssignment `json:"chamberAssignments"`
}

// ScheduleUpdateRequest carries the fields for updating a schedule.
// Nil chamber assignments leave the existing contents untouched.
type ScheduleUpdateRequest struct {
	Time               *int                `json:"time"`
	StartDate          *time.Time          `json:"startDate"`
	EndDate            *time.Time          `json:"endDate"`
	IsActive           *bool               `json:"isActive"`
	ChamberAssignments []ChamberAssignment `json:"chamberAssignments"`
}

func (s *service) CreateSchedule(ctx context.Context, dispenserID string, req ScheduleRequest) (*models.Schedule, error) {
	dispenser, err := s.repo.FindDispenserByID(ctx, dispenserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewNotFoundError("Dispenser not found")
		}
		return nil, fmt.Errorf("failed to look up dispenser: %w", err)
	}

	if dispenser.PatientID == nil {
		return nil, NewValidationError("Dispenser has no assigned patient. Assign a patient before creating schedules.")
	}

	if req.Time < 0 || req.Time > 23 {
		return nil, NewValidationError("Time must be an hour between 0 and 23")
	}
	if req.StartDate.IsZero() {
		return nil, NewValidationError("Start date is required")
	}
	if req.EndDate != nil && req.EndDate.Before(req.StartDate) {
		return nil, NewValidationError("End date must not be before start date")
	}
	if len(req.ChamberAssignments) == 0 {
		return nil, NewValidationError("At least one chamber assignment is required")
	}

	if err := s.validateAssignments(ctx, dispenser, req.ChamberAssignments); err != nil {
		return nil, err
	}

	schedule := &models.Schedule{
		DispenserID: dispenserID,
		PatientID:   *dispenser.PatientID,
		Time:        req.Time,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		IsActive:    true,
	}

	// The slot-conflict check runs inside the same transaction as the
	// insert so two concurrent requests cannot both claim an hour.
	err = s.repo.WithTransaction(ctx, func(ctx context.Context, txRepo repository.Repository) error {
		_, err := txRepo.FindScheduleAtTime(ctx, dispenserID, req.Time, "")
		if err == nil {
			return NewConflictError(fmt.Sprintf("A schedule already exists at hour %d for this dispenser", req.Time))
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		if err := txRepo.CreateSchedule(ctx, schedule); err != nil {
			return err
		}

		return s.insertAssignments(ctx, txRepo, schedule.ID, req.ChamberAssignments)
	})
	if err != nil {
		var svcErr *Error
		if errors.As(err, &svcErr) {
			return nil, svcErr
		}
		return nil, fmt.Errorf("failed to create schedule: %w", err)
	}

	created, err := s.repo.FindDispenserSchedule(ctx, dispenserID, schedule.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload schedule: %w", err)
	}

	s.syncDispenserSchedules(dispenser.SerialNumber, dispenserID)

	return created, nil
}

func (s *service) UpdateSchedule(ctx context.Context, dispenserID, scheduleID string, req ScheduleUpdateRequest) (*models.Schedule, error) {
	dispenser, err := s.repo.FindDispenserByID(ctx, dispenserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewNotFoundError("Dispenser not found")
		}
		return nil, fmt.Errorf("failed to look up dispenser: %w", err)
	}

	schedule, err := s.repo.FindDispenserSchedule(ctx, dispenserID, scheduleID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewNotFoundError("Schedule not found")
		}
		return nil, fmt.Errorf("failed to look up schedule: %w", err)
	}

	if req.Time != nil {
		if *req.Time < 0 || *req.Time > 23 {
			return nil, NewValidationError("Time must be an hour between 0 and 23")
		}
		schedule.Time = *req.Time
	}
	if req.StartDate != nil {
		schedule.StartDate = *req.StartDate
	}
	if req.EndDate != nil {
		schedule.EndDate = req.EndDate
	}
	if schedule.EndDate != nil && schedule.EndDate.Before(schedule.StartDate) {
		return nil, NewValidationError("End date must not be before start date")
	}
	if req.IsActive != nil {
		schedule.IsActive = *req.IsActive
	}

	if req.ChamberAssignments != nil {
		if len(req.ChamberAssignments) == 0 {
			return nil, NewValidationError("At least one chamber assignment is required")
		}
		if err := s.validateAssignments(ctx, dispenser, req.ChamberAssignments); err != nil {
			return nil, err
		}
	}

	err = s.repo.WithTransaction(ctx, func(ctx context.Context, txRepo repository.Repository) error {
		_, err := txRepo.FindScheduleAtTime(ctx, dispenserID, schedule.Time, scheduleID)
		if err == nil {
			return NewConflictError(fmt.Sprintf("A schedule already exists at hour %d for this dispenser", schedule.Time))
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		schedule.Chambers = nil
		if err := txRepo.UpdateSchedule(ctx, schedule); err != nil {
			return err
		}

		if req.ChamberAssignments == nil {
			return nil
		}

		// Contents are replaced wholesale, which resets the fill level
		// of every assigned chamber.
		if err := txRepo.DeleteChamberContentBySchedule(ctx, scheduleID); err != nil {
			return err
		}
		return s.insertAssignments(ctx, txRepo, scheduleID, req.ChamberAssignments)
	})
	if err != nil {
		var svcErr *Error
		if errors.As(err, &svcErr) {
			return nil, svcErr
		}
		return nil, fmt.Errorf("failed to update schedule: %w", err)
	}

	updated, err := s.repo.FindDispenserSchedule(ctx, dispenserID, scheduleID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload schedule: %w", err)
	}

	s.syncDispenserSchedules(dispenser.SerialNumber, dispenserID)

	return updated, nil
}

func (s *service) GetSchedule(ctx context.Context, dispenserID, scheduleID string) (*models.Schedule, error) {
	schedule, err := s.repo.FindDispenserSchedule(ctx, dispenserID, scheduleID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewNotFoundError("Schedule not found")
		}
		return nil, fmt.Errorf("failed to look up schedule: %w", err)
	}

	return schedule, nil
}

func (s *service) ListSchedules(ctx context.Context, dispenserID string) ([]*models.Schedule, error) {
	if _, err := s.repo.FindDispenserByID(ctx, dispenserID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewNotFoundError("Dispenser not found")
		}
		return nil, fmt.Errorf("failed to look up dispenser: %w", err)
	}

	schedules, err := s.repo.ListSchedulesByDispenser(ctx, dispenserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}

	return schedules, nil
}

func (s *service) DeleteSchedule(ctx context.Context, dispenserID, scheduleID string) error {
	dispenser, err := s.repo.FindDispenserByID(ctx, dispenserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return NewNotFoundError("Dispenser not found")
		}
		return fmt.Errorf("failed to look up dispenser: %w", err)
	}

	if _, err := s.repo.FindDispenserSchedule(ctx, dispenserID, scheduleID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return NewNotFoundError("Schedule not found")
		}
		return fmt.Errorf("failed to look up schedule: %w", err)
	}

	err = s.repo.WithTransaction(ctx, func(ctx context.Context, txRepo repository.Repository) error {
		if err := txRepo.DeleteChamberContentBySchedule(ctx, scheduleID); err != nil {
			return err
		}
		return txRepo.DeleteSchedule(ctx, scheduleID)
	})
	if err != nil {
		return fmt.Errorf("failed to delete schedule: %w", err)
	}

	s.syncDispenserSchedules(dispenser.SerialNumber, dispenserID)

	return nil
}

// validateAssignments checks that every assignment references a chamber
// belonging to the dispenser, an existing medication, and a positive dosage,
// and that no chamber appears twice.
func (s *service) validateAssignments(ctx context.Context, dispenser *models.Dispenser, assignments []ChamberAssignment) error {
	chambers := make(map[string]bool, len(dispenser.Chambers))
	for _, c := range dispenser.Chambers {
		chambers[c.ID] = true
	}

	seen := make(map[string]bool, len(assignments))
	for _, a := range assignments {
		if a.ChamberID == "" || a.MedicationID == "" {
			return NewValidationError("Chamber ID and medication ID are required for each assignment")
		}
		if a.DosageAmount <= 0 {
			return NewValidationError("Dosage amount must be positive")
		}
		if !chambers[a.ChamberID] {
			return NewValidationError("Chamber does not belong to this dispenser")
		}
		if seen[a.ChamberID] {
			return NewValidationError("A chamber can only be assigned once per schedule")
		}
		seen[a.ChamberID] = true

		if _, err := s.repo.FindMedicationByID(ctx, a.MedicationID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return NewValidationError("Medication not found")
			}
			return fmt.Errorf("failed to look up medication: %w", err)
		}
	}

	return nil
}

func (s *service) insertAssignments(ctx context.Context, txRepo repository.Repository, scheduleID string, assignments []ChamberAssignment) error {
	for _, a := range assignments {
		content := &models.ChamberContent{
			ScheduleID:    scheduleID,
			ChamberID:     a.ChamberID,
			MedicationID:  a.MedicationID,
			DosageAmount:  a.DosageAmount,
			CurrentAmount: initialChamberFill,
		}
		if err := txRepo.CreateChamberContent(ctx, content); err != nil {
			return err
		}
	}
	return nil
}

// syncDispenserSchedules pushes the dispenser's full schedule set to the
// device bridge. Sync failures are logged but never fail the request; the
// device picks up the state on its next poll.
func (s *service) syncDispenserSchedules(serialNumber, dispenserID string) {
	if s.syncer == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		schedules, err := s.repo.ListSchedulesByDispenser(ctx, dispenserID)
		if err != nil {
			s.log.WithError(err).WithField("serial_number", serialNumber).
				Warn("Failed to load schedules for sync")
			return
		}

		if err := s.syncer.SyncSchedules(ctx, serialNumber, schedules); err != nil {
			s.log.WithError(err).WithField("serial_number", serialNumber).
				Warn("Failed to sync schedules to device bridge")
		}
	}()
}
