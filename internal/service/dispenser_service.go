package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"example.com/medipi/hub/internal/models"
	"example.com/medipi/hub/internal/repository"
)

// DispenserPage is one page of dispensers with pagination metadata
type DispenserPage struct {
	Items      []*models.Dispenser `json:"items"`
	TotalCount int64               `json:"totalCount"`
	Page       int                 `json:"page"`
	PageSize   int                 `json:"pageSize"`
	TotalPages int                 `json:"totalPages"`
}

func (s *service) CreateDispenser(ctx context.Context, serialNumber string, status models.DispenserStatus) (*models.Dispenser, error) {
	if serialNumber == "" {
		return nil, NewValidationError("Serial number is required")
	}
	if status == "" {
		status = models.StatusOffline
	}
	if !models.ValidStatus(status) {
		return nil, NewValidationError(fmt.Sprintf("Invalid status: %s", status))
	}

	_, err := s.repo.FindDispenserBySerial(ctx, serialNumber)
	if err == nil {
		return nil, NewConflictError("A dispenser with this serial number already exists")
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up dispenser: %w", err)
	}

	dispenser := &models.Dispenser{
		SerialNumber: serialNumber,
		Status:       status,
	}

	// Chamber slots and the admin access card are created together with
	// the dispenser so a half-provisioned unit never becomes visible.
	err = s.repo.WithTransaction(ctx, func(ctx context.Context, txRepo repository.Repository) error {
		if err := txRepo.CreateDispenser(ctx, dispenser); err != nil {
			if errors.Is(err, repository.ErrDuplicateKey) {
				return NewConflictError("A dispenser with this serial number already exists")
			}
			return err
		}

		for i := 1; i <= models.ChamberCount; i++ {
			chamber := &models.Chamber{
				DispenserID:   dispenser.ID,
				ChamberNumber: i,
			}
			if err := txRepo.CreateChamber(ctx, chamber); err != nil {
				return err
			}
		}

		adminRfid := &models.DispenserRfid{
			DispenserID: dispenser.ID,
			RfidTag:     fmt.Sprintf("ADMIN-%s", serialNumber),
			Type:        models.RfidAdmin,
		}
		return txRepo.CreateRfid(ctx, adminRfid)
	})
	if err != nil {
		var svcErr *Error
		if errors.As(err, &svcErr) {
			return nil, svcErr
		}
		return nil, fmt.Errorf("failed to create dispenser: %w", err)
	}

	created, err := s.repo.FindDispenserByID(ctx, dispenser.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload dispenser: %w", err)
	}

	s.cacheDispenser(ctx, created)
	s.log.WithField("serial_number", serialNumber).Info("Dispenser created")

	return created, nil
}

func (s *service) GetDispenser(ctx context.Context, id string) (*models.Dispenser, error) {
	dispenser, err := s.repo.FindDispenserByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewNotFoundError("Dispenser not found")
		}
		return nil, fmt.Errorf("failed to look up dispenser: %w", err)
	}

	// The detail view carries only the latest activity, not the full history
	logs, err := s.repo.ListLogsByDispenser(ctx, id, recentLogSize)
	if err != nil {
		return nil, fmt.Errorf("failed to load dispenser logs: %w", err)
	}
	dispenser.Logs = make([]models.DispenserLog, 0, len(logs))
	for _, entry := range logs {
		dispenser.Logs = append(dispenser.Logs, *entry)
	}

	return dispenser, nil
}

func (s *service) GetDispenserBySerial(ctx context.Context, serialNumber string) (*models.Dispenser, error) {
	dispenser, err := s.repo.FindDispenserBySerial(ctx, serialNumber)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewNotFoundError("Dispenser not found")
		}
		return nil, fmt.Errorf("failed to look up dispenser: %w", err)
	}

	return dispenser, nil
}

func (s *service) ListDispensers(ctx context.Context, opts repository.ListOptions, assigned *bool) (*DispenserPage, error) {
	dispensers, total, err := s.repo.ListDispensers(ctx, opts, assigned)
	if err != nil {
		return nil, fmt.Errorf("failed to list dispensers: %w", err)
	}

	return &DispenserPage{
		Items:      dispensers,
		TotalCount: total,
		Page:       pageOf(opts),
		PageSize:   pageSizeOf(opts),
		TotalPages: totalPages(total, pageSizeOf(opts)),
	}, nil
}

func (s *service) UpdateDispenserStatus(ctx context.Context, id string, status models.DispenserStatus) (*models.Dispenser, error) {
	if !models.ValidStatus(status) {
		return nil, NewValidationError(fmt.Sprintf("Invalid status: %s", status))
	}

	dispenser, err := s.repo.FindDispenserByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewNotFoundError("Dispenser not found")
		}
		return nil, fmt.Errorf("failed to look up dispenser: %w", err)
	}

	dispenser.Status = status
	if status == models.StatusOnline {
		now := time.Now()
		dispenser.LastSeen = &now
	}

	if err := s.repo.UpdateDispenser(ctx, dispenser); err != nil {
		return nil, fmt.Errorf("failed to update dispenser: %w", err)
	}

	s.cacheDispenser(ctx, dispenser)

	return dispenser, nil
}

// MarkDispenserSeen records a status report arriving from the device side,
// addressed by serial number rather than ID.
func (s *service) MarkDispenserSeen(ctx context.Context, serialNumber string, status models.DispenserStatus) error {
	if !models.ValidStatus(status) {
		return NewValidationError(fmt.Sprintf("Invalid status: %s", status))
	}

	dispenser, err := s.repo.FindDispenserBySerial(ctx, serialNumber)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return NewNotFoundError("Dispenser not found")
		}
		return fmt.Errorf("failed to look up dispenser: %w", err)
	}

	now := time.Now()
	dispenser.Status = status
	dispenser.LastSeen = &now

	if err := s.repo.UpdateDispenser(ctx, dispenser); err != nil {
		return fmt.Errorf("failed to update dispenser: %w", err)
	}

	s.cacheDispenser(ctx, dispenser)

	return nil
}

func (s *service) DeleteDispenser(ctx context.Context, id string) error {
	dispenser, err := s.repo.FindDispenserByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return NewNotFoundError("Dispenser not found")
		}
		return fmt.Errorf("failed to look up dispenser: %w", err)
	}

	if dispenser.PatientID != nil {
		return NewValidationError("Cannot delete dispenser with assigned patient. Unassign patient first.")
	}

	scheduleCount, err := s.repo.CountSchedulesByDispenser(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to count schedules: %w", err)
	}
	if scheduleCount > 0 {
		return NewValidationError("Cannot delete dispenser with schedules. Delete schedules first.")
	}

	contentCount, err := s.repo.CountChamberContentByDispenser(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to count chamber contents: %w", err)
	}
	if contentCount > 0 {
		return NewValidationError("Cannot delete dispenser with loaded chambers. Remove chamber contents first.")
	}

	err = s.repo.WithTransaction(ctx, func(ctx context.Context, txRepo repository.Repository) error {
		if err := txRepo.DeleteRfidsByDispenser(ctx, id); err != nil {
			return err
		}
		if err := txRepo.DeleteLogsByDispenser(ctx, id); err != nil {
			return err
		}
		if err := txRepo.DeleteChambersByDispenser(ctx, id); err != nil {
			return err
		}
		return txRepo.DeleteDispenser(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("failed to delete dispenser: %w", err)
	}

	s.cache.Delete(ctx, fmt.Sprintf("dispenser:%s", dispenser.SerialNumber))
	s.log.WithField("serial_number", dispenser.SerialNumber).Info("Dispenser deleted")

	return nil
}

func (s *service) AssignPatient(ctx context.Context, dispenserID, patientID string) (*models.Dispenser, error) {
	if patientID == "" {
		return nil, NewValidationError("Patient ID is required")
	}

	dispenser, err := s.repo.FindDispenserByID(ctx, dispenserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewNotFoundError("Dispenser not found")
		}
		return nil, fmt.Errorf("failed to look up dispenser: %w", err)
	}

	if dispenser.PatientID != nil {
		if *dispenser.PatientID == patientID {
			return dispenser, nil
		}
		return nil, NewValidationError("Dispenser already has an assigned patient")
	}

	patient, err := s.repo.FindPatientByID(ctx, patientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewNotFoundError("Patient not found")
		}
		return nil, fmt.Errorf("failed to look up patient: %w", err)
	}

	if patient.Dispenser != nil {
		return nil, NewValidationError("Patient is already assigned to another dispenser")
	}

	err = s.repo.WithTransaction(ctx, func(ctx context.Context, txRepo repository.Repository) error {
		dispenser.PatientID = &patientID
		if err := txRepo.UpdateDispenser(ctx, dispenser); err != nil {
			return err
		}

		_, err := txRepo.FindRfidByDispenserAndType(ctx, dispenserID, models.RfidPatient)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		patientRfid := &models.DispenserRfid{
			DispenserID: dispenserID,
			RfidTag:     fmt.Sprintf("PATIENT-%s", dispenser.SerialNumber),
			Type:        models.RfidPatient,
		}
		return txRepo.CreateRfid(ctx, patientRfid)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to assign patient: %w", err)
	}

	updated, err := s.repo.FindDispenserByID(ctx, dispenserID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload dispenser: %w", err)
	}

	s.cacheDispenser(ctx, updated)
	s.log.WithFields(map[string]interface{}{
		"serial_number": dispenser.SerialNumber,
		"patient_id":    patientID,
	}).Info("Patient assigned to dispenser")

	return updated, nil
}

func (s *service) UnassignPatient(ctx context.Context, dispenserID string) (*models.Dispenser, error) {
	dispenser, err := s.repo.FindDispenserByID(ctx, dispenserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewNotFoundError("Dispenser not found")
		}
		return nil, fmt.Errorf("failed to look up dispenser: %w", err)
	}

	if dispenser.PatientID == nil {
		return nil, NewValidationError("Dispenser has no assigned patient")
	}

	scheduleCount, err := s.repo.CountSchedulesByDispenser(ctx, dispenserID)
	if err != nil {
		return nil, fmt.Errorf("failed to count schedules: %w", err)
	}
	if scheduleCount > 0 {
		return nil, NewValidationError("Cannot unassign patient while schedules exist. Delete schedules first.")
	}

	err = s.repo.WithTransaction(ctx, func(ctx context.Context, txRepo repository.Repository) error {
		dispenser.PatientID = nil
		if err := txRepo.ClearDispenserPatient(ctx, dispenserID); err != nil {
			return err
		}
		return txRepo.DeleteRfidsByDispenserAndType(ctx, dispenserID, models.RfidPatient)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to unassign patient: %w", err)
	}

	updated, err := s.repo.FindDispenserByID(ctx, dispenserID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload dispenser: %w", err)
	}

	s.cacheDispenser(ctx, updated)
	s.log.WithField("serial_number", dispenser.SerialNumber).Info("Patient unassigned from dispenser")

	return updated, nil
}
