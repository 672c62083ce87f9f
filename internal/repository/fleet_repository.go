package repository

import (
	"context"
	"time"

	"example.com/medipi/hub/internal/models"

	"gorm.io/gorm"
)

// Dispenser operations implementation

func (r *repo) CreateDispenser(ctx context.Context, dispenser *models.Dispenser) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}

	return translate(gormDB.WithContext(ctx).Create(dispenser).Error)
}

func (r *repo) UpdateDispenser(ctx context.Context, dispenser *models.Dispenser) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}

	return translate(gormDB.WithContext(ctx).Save(dispenser).Error)
}

func (r *repo) ClearDispenserPatient(ctx context.Context, dispenserID string) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}

	return translate(gormDB.WithContext(ctx).Model(&models.Dispenser{}).
		Where("id = ?", dispenserID).
		Update("patient_id", nil).Error)
}

func (r *repo) FindDispenserByID(ctx context.Context, id string) (*models.Dispenser, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	var dispenser models.Dispenser
	if err := gormDB.WithContext(ctx).
		Preload("Patient").
		Preload("Chambers", func(db *gorm.DB) *gorm.DB { return db.Order("chamber_number ASC") }).
		Preload("Schedules").
		Preload("Rfids").
		First(&dispenser, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}

	return &dispenser, nil
}

func (r *repo) FindDispenserBySerial(ctx context.Context, serial string) (*models.Dispenser, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	var dispenser models.Dispenser
	if err := gormDB.WithContext(ctx).
		Preload("Patient").
		Where("serial_number = ?", serial).
		First(&dispenser).Error; err != nil {
		return nil, translate(err)
	}

	return &dispenser, nil
}

func (r *repo) ListDispensers(ctx context.Context, opts ListOptions, assigned *bool) ([]*models.Dispenser, int64, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, 0, err
	}

	query := gormDB.WithContext(ctx).Model(&models.Dispenser{})
	if opts.Search != "" {
		query = query.Where("serial_number ILIKE ?", "%"+opts.Search+"%")
	}
	if assigned != nil {
		if *assigned {
			query = query.Where("patient_id IS NOT NULL")
		} else {
			query = query.Where("patient_id IS NULL")
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translate(err)
	}

	var dispensers []*models.Dispenser
	if err := query.
		Preload("Patient").
		Order("serial_number ASC").
		Offset(opts.offset()).
		Limit(opts.limit()).
		Find(&dispensers).Error; err != nil {
		return nil, 0, translate(err)
	}

	return dispensers, total, nil
}

func (r *repo) DeleteDispenser(ctx context.Context, id string) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}

	return translate(gormDB.WithContext(ctx).Delete(&models.Dispenser{}, "id = ?", id).Error)
}

func (r *repo) CountDispensers(ctx context.Context) (int64, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return 0, err
	}

	var count int64
	if err := gormDB.WithContext(ctx).Model(&models.Dispenser{}).Count(&count).Error; err != nil {
		return 0, translate(err)
	}

	return count, nil
}

func (r *repo) CountDispensersByStatus(ctx context.Context, status models.DispenserStatus) (int64, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return 0, err
	}

	var count int64
	if err := gormDB.WithContext(ctx).Model(&models.Dispenser{}).
		Where("status = ?", status).
		Count(&count).Error; err != nil {
		return 0, translate(err)
	}

	return count, nil
}

func (r *repo) CountAssignedDispensers(ctx context.Context) (int64, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return 0, err
	}

	var count int64
	if err := gormDB.WithContext(ctx).Model(&models.Dispenser{}).
		Where("patient_id IS NOT NULL").
		Count(&count).Error; err != nil {
		return 0, translate(err)
	}

	return count, nil
}

func (r *repo) ListDispensersByStatusIn(ctx context.Context, statuses []models.DispenserStatus, limit int) ([]*models.Dispenser, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	var dispensers []*models.Dispenser
	query := gormDB.WithContext(ctx).
		Preload("Patient").
		Where("status IN ?", statuses)
	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&dispensers).Error; err != nil {
		return nil, translate(err)
	}

	return dispensers, nil
}

// Chamber operations implementation

func (r *repo) CreateChamber(ctx context.Context, chamber *models.Chamber) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}

	return translate(gormDB.WithContext(ctx).Create(chamber).Error)
}

func (r *repo) DeleteChambersByDispenser(ctx context.Context, dispenserID string) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}

	return translate(gormDB.WithContext(ctx).
		Where("dispenser_id = ?", dispenserID).
		Delete(&models.Chamber{}).Error)
}

// RFID operations implementation

func (r *repo) CreateRfid(ctx context.Context, rfid *models.DispenserRfid) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}

	return translate(gormDB.WithContext(ctx).Create(rfid).Error)
}

func (r *repo) FindRfidByDispenserAndType(ctx context.Context, dispenserID string, rfidType models.RfidType) (*models.DispenserRfid, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	var rfid models.DispenserRfid
	if err := gormDB.WithContext(ctx).
		Where("dispenser_id = ? AND type = ?", dispenserID, rfidType).
		First(&rfid).Error; err != nil {
		return nil, translate(err)
	}

	return &rfid, nil
}

func (r *repo) DeleteRfidsByDispenserAndType(ctx context.Context, dispenserID string, rfidType models.RfidType) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}

	return translate(gormDB.WithContext(ctx).
		Where("dispenser_id = ? AND type = ?", dispenserID, rfidType).
		Delete(&models.DispenserRfid{}).Error)
}

func (r *repo) DeleteRfidsByDispenser(ctx context.Context, dispenserID string) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}

	return translate(gormDB.WithContext(ctx).
		Where("dispenser_id = ?", dispenserID).
		Delete(&models.DispenserRfid{}).Error)
}

// Schedule operations implementation

func (r *repo) CreateSchedule(ctx context.Context, schedule *models.Schedule) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}

	return translate(gormDB.WithContext(ctx).Create(schedule).Error)
}

func (r *repo) UpdateSchedule(ctx context.Context, schedule *models.Schedule) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}

	return translate(gormDB.WithContext(ctx).Save(schedule).Error)
}

func (r *repo) FindDispenserSchedule(ctx context.Context, dispenserID, scheduleID string) (*models.Schedule, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	var schedule models.Schedule
	if err := gormDB.WithContext(ctx).
		Preload("Patient").
		Preload("Chambers").
		Preload("Chambers.Chamber").
		Preload("Chambers.Medication").
		Where("id = ? AND dispenser_id = ?", scheduleID, dispenserID).
		First(&schedule).Error; err != nil {
		return nil, translate(err)
	}

	return &schedule, nil
}

func (r *repo) FindScheduleAtTime(ctx context.Context, dispenserID string, hour int, excludeID string) (*models.Schedule, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	query := gormDB.WithContext(ctx).
		Where("dispenser_id = ? AND time = ?", dispenserID, hour)
	if excludeID != "" {
		query = query.Where("id <> ?", excludeID)
	}

	var schedule models.Schedule
	if err := query.First(&schedule).Error; err != nil {
		return nil, translate(err)
	}

	return &schedule, nil
}

func (r *repo) ListSchedulesByDispenser(ctx context.Context, dispenserID string) ([]*models.Schedule, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	var schedules []*models.Schedule
	if err := gormDB.WithContext(ctx).
		Preload("Chambers").
		Preload("Chambers.Chamber").
		Preload("Chambers.Medication").
		Where("dispenser_id = ?", dispenserID).
		Order("time ASC").
		Find(&schedules).Error; err != nil {
		return nil, translate(err)
	}

	return schedules, nil
}

func (r *repo) DeleteSchedule(ctx context.Context, id string) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}

	return translate(gormDB.WithContext(ctx).Delete(&models.Schedule{}, "id = ?", id).Error)
}

func (r *repo) CountSchedulesByDispenser(ctx context.Context, dispenserID string) (int64, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return 0, err
	}

	var count int64
	if err := gormDB.WithContext(ctx).Model(&models.Schedule{}).
		Where("dispenser_id = ?", dispenserID).
		Count(&count).Error; err != nil {
		return 0, translate(err)
	}

	return count, nil
}

func (r *repo) CountSchedulesByPatient(ctx context.Context, patientID string) (int64, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return 0, err
	}

	var count int64
	if err := gormDB.WithContext(ctx).Model(&models.Schedule{}).
		Where("patient_id = ?", patientID).
		Count(&count).Error; err != nil {
		return 0, translate(err)
	}

	return count, nil
}

// ChamberContent operations implementation

func (r *repo) CreateChamberContent(ctx context.Context, content *models.ChamberContent) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}

	return translate(gormDB.WithContext(ctx).Create(content).Error)
}

func (r *repo) DeleteChamberContentBySchedule(ctx context.Context, scheduleID string) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}

	return translate(gormDB.WithContext(ctx).
		Where("schedule_id = ?", scheduleID).
		Delete(&models.ChamberContent{}).Error)
}

func (r *repo) CountChamberContentByMedication(ctx context.Context, medicationID string) (int64, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return 0, err
	}

	var count int64
	if err := gormDB.WithContext(ctx).Model(&models.ChamberContent{}).
		Where("medication_id = ?", medicationID).
		Count(&count).Error; err != nil {
		return 0, translate(err)
	}

	return count, nil
}

func (r *repo) CountDispensersUsingMedication(ctx context.Context, medicationID string) (int64, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return 0, err
	}

	var count int64
	if err := gormDB.WithContext(ctx).Model(&models.ChamberContent{}).
		Joins("JOIN chambers ON chambers.id = chamber_contents.chamber_id").
		Where("chamber_contents.medication_id = ?", medicationID).
		Distinct("chambers.dispenser_id").
		Count(&count).Error; err != nil {
		return 0, translate(err)
	}

	return count, nil
}

func (r *repo) CountChamberContentByDispenser(ctx context.Context, dispenserID string) (int64, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return 0, err
	}

	var count int64
	if err := gormDB.WithContext(ctx).Model(&models.ChamberContent{}).
		Joins("JOIN chambers ON chambers.id = chamber_contents.chamber_id").
		Where("chambers.dispenser_id = ?", dispenserID).
		Count(&count).Error; err != nil {
		return 0, translate(err)
	}

	return count, nil
}

// DispenserLog operations implementation

func (r *repo) CreateDispenserLog(ctx context.Context, log *models.DispenserLog) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}

	return translate(gormDB.WithContext(ctx).Create(log).Error)
}

func (r *repo) ListRecentLogs(ctx context.Context, limit int) ([]*models.DispenserLog, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	var logs []*models.DispenserLog
	query := gormDB.WithContext(ctx).
		Preload("Dispenser").
		Preload("Dispenser.Patient").
		Preload("Schedule").
		Order("timestamp DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&logs).Error; err != nil {
		return nil, translate(err)
	}

	return logs, nil
}

func (r *repo) ListLogsByDispenser(ctx context.Context, dispenserID string, limit int) ([]*models.DispenserLog, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	var logs []*models.DispenserLog
	query := gormDB.WithContext(ctx).
		Preload("Schedule").
		Where("dispenser_id = ?", dispenserID).
		Order("timestamp DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&logs).Error; err != nil {
		return nil, translate(err)
	}

	return logs, nil
}

func (r *repo) ListMissedLogsSince(ctx context.Context, since time.Time, limit int) ([]*models.DispenserLog, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	var logs []*models.DispenserLog
	query := gormDB.WithContext(ctx).
		Preload("Dispenser").
		Preload("Dispenser.Patient").
		Preload("Schedule").
		Where("status = ? AND timestamp >= ?", models.LogMissed, since).
		Order("timestamp DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&logs).Error; err != nil {
		return nil, translate(err)
	}

	return logs, nil
}

func (r *repo) DeleteLogsByDispenser(ctx context.Context, dispenserID string) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}

	return translate(gormDB.WithContext(ctx).
		Where("dispenser_id = ?", dispenserID).
		Delete(&models.DispenserLog{}).Error)
}
