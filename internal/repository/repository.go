package repository

import (
	"context"
	"time"

	"example.com/medipi/hub/internal/database"
	"example.com/medipi/hub/internal/models"

	"gorm.io/gorm"
)

// ListOptions carries pagination and filtering for list queries
type ListOptions struct {
	Search   string
	Page     int
	PageSize int
}

// offset returns the row offset for the requested page
func (o ListOptions) offset() int {
	page := o.Page
	if page < 1 {
		page = 1
	}
	return (page - 1) * o.limit()
}

// limit returns the page size with the default applied
func (o ListOptions) limit() int {
	if o.PageSize < 1 {
		return 10
	}
	return o.PageSize
}

// Repository provides data access methods
type Repository interface {
	// Transaction support
	WithTransaction(ctx context.Context, fn func(ctx context.Context, txRepo Repository) error) error

	// User operations
	CreateUser(ctx context.Context, user *models.User) error
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUserByID(ctx context.Context, id string) (*models.User, error)

	// Patient operations
	CreatePatient(ctx context.Context, patient *models.Patient) error
	UpdatePatient(ctx context.Context, patient *models.Patient) error
	FindPatientByID(ctx context.Context, id string) (*models.Patient, error)
	ListPatients(ctx context.Context, opts ListOptions) ([]*models.Patient, int64, error)
	DeletePatient(ctx context.Context, id string) error
	CountPatients(ctx context.Context) (int64, error)

	// Medication operations
	CreateMedication(ctx context.Context, med *models.Medication) error
	UpdateMedication(ctx context.Context, med *models.Medication) error
	FindMedicationByID(ctx context.Context, id string) (*models.Medication, error)
	FindMedicationByName(ctx context.Context, name string) (*models.Medication, error)
	ListMedications(ctx context.Context, opts ListOptions, lowStockOnly bool) ([]*models.Medication, int64, error)
	DeleteMedication(ctx context.Context, id string) error
	CountMedications(ctx context.Context) (int64, error)
	CountLowStockMedications(ctx context.Context) (int64, error)
	ListLowStockMedications(ctx context.Context, limit int) ([]*models.Medication, error)

	// Dispenser operations
	CreateDispenser(ctx context.Context, dispenser *models.Dispenser) error
	UpdateDispenser(ctx context.Context, dispenser *models.Dispenser) error
	ClearDispenserPatient(ctx context.Context, dispenserID string) error
	FindDispenserByID(ctx context.Context, id string) (*models.Dispenser, error)
	FindDispenserBySerial(ctx context.Context, serial string) (*models.Dispenser, error)
	ListDispensers(ctx context.Context, opts ListOptions, assigned *bool) ([]*models.Dispenser, int64, error)
	DeleteDispenser(ctx context.Context, id string) error
	CountDispensers(ctx context.Context) (int64, error)
	CountDispensersByStatus(ctx context.Context, status models.DispenserStatus) (int64, error)
	CountAssignedDispensers(ctx context.Context) (int64, error)
	ListDispensersByStatusIn(ctx context.Context, statuses []models.DispenserStatus, limit int) ([]*models.Dispenser, error)

	// Chamber operations
	CreateChamber(ctx context.Context, chamber *models.Chamber) error
	DeleteChambersByDispenser(ctx context.Context, dispenserID string) error

	// RFID operations
	CreateRfid(ctx context.Context, rfid *models.DispenserRfid) error
	FindRfidByDispenserAndType(ctx context.Context, dispenserID string, rfidType models.RfidType) (*models.DispenserRfid, error)
	DeleteRfidsByDispenserAndType(ctx context.Context, dispenserID string, rfidType models.RfidType) error
	DeleteRfidsByDispenser(ctx context.Context, dispenserID string) error

	// Schedule operations
	CreateSchedule(ctx context.Context, schedule *models.Schedule) error
	UpdateSchedule(ctx context.Context, schedule *models.Schedule) error
	FindDispenserSchedule(ctx context.Context, dispenserID, scheduleID string) (*models.Schedule, error)
	FindScheduleAtTime(ctx context.Context, dispenserID string, hour int, excludeID string) (*models.Schedule, error)
	ListSchedulesByDispenser(ctx context.Context, dispenserID string) ([]*models.Schedule, error)
	DeleteSchedule(ctx context.Context, id string) error
	CountSchedulesByDispenser(ctx context.Context, dispenserID string) (int64, error)
	CountSchedulesByPatient(ctx context.Context, patientID string) (int64, error)

	// ChamberContent operations
	CreateChamberContent(ctx context.Context, content *models.ChamberContent) error
	DeleteChamberContentBySchedule(ctx context.Context, scheduleID string) error
	CountChamberContentByMedication(ctx context.Context, medicationID string) (int64, error)
	CountDispensersUsingMedication(ctx context.Context, medicationID string) (int64, error)
	CountChamberContentByDispenser(ctx context.Context, dispenserID string) (int64, error)

	// DispenserLog operations
	CreateDispenserLog(ctx context.Context, log *models.DispenserLog) error
	ListRecentLogs(ctx context.Context, limit int) ([]*models.DispenserLog, error)
	ListLogsByDispenser(ctx context.Context, dispenserID string, limit int) ([]*models.DispenserLog, error)
	ListMissedLogsSince(ctx context.Context, since time.Time, limit int) ([]*models.DispenserLog, error)
	DeleteLogsByDispenser(ctx context.Context, dispenserID string) error
}

// repo is an implementation of the Repository interface
type repo struct {
	db database.DB
}

// Helper type for transaction support
type dbWrapper struct {
	db *gorm.DB
}

func (w *dbWrapper) DB() (*gorm.DB, error) {
	return w.db, nil
}

func (w *dbWrapper) Close() error {
	return nil
}

// NewRepository creates a new repository instance
func NewRepository(db database.DB) Repository {
	return &repo{
		db: db,
	}
}

// WithTransaction executes the given function within a database transaction
func (r *repo) WithTransaction(ctx context.Context, fn func(ctx context.Context, txRepo Repository) error) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}

	return gormDB.Transaction(func(tx *gorm.DB) error {
		txRepo := &repo{
			db: &dbWrapper{db: tx},
		}
		return fn(ctx, txRepo)
	})
}

// User operations implementation

func (r *repo) CreateUser(ctx context.Context, user *models.User) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}

	return translate(gormDB.WithContext(ctx).Create(user).Error)
}

func (r *repo) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	var user models.User
	if err := gormDB.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, translate(err)
	}

	return &user, nil
}

func (r *repo) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	var user models.User
	if err := gormDB.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}

	return &user, nil
}

// Patient operations implementation

func (r *repo) CreatePatient(ctx context.Context, patient *models.Patient) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}

	return translate(gormDB.WithContext(ctx).Create(patient).Error)
}

func (r *repo) UpdatePatient(ctx context.Context, patient *models.Patient) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}

	return translate(gormDB.WithContext(ctx).Save(patient).Error)
}

func (r *repo) FindPatientByID(ctx context.Context, id string) (*models.Patient, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	var patient models.Patient
	if err := gormDB.WithContext(ctx).
		Preload("Dispenser").
		Preload("Schedules").
		Preload("Schedules.Dispenser").
		First(&patient, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}

	return &patient, nil
}

func (r *repo) ListPatients(ctx context.Context, opts ListOptions) ([]*models.Patient, int64, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, 0, err
	}

	query := gormDB.WithContext(ctx).Model(&models.Patient{})
	if opts.Search != "" {
		pattern := "%" + opts.Search + "%"
		query = query.Where("name ILIKE ? OR room_number ILIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translate(err)
	}

	var patients []*models.Patient
	if err := query.
		Preload("Dispenser").
		Order("name ASC").
		Offset(opts.offset()).
		Limit(opts.limit()).
		Find(&patients).Error; err != nil {
		return nil, 0, translate(err)
	}

	return patients, total, nil
}

func (r *repo) DeletePatient(ctx context.Context, id string) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}

	return translate(gormDB.WithContext(ctx).Delete(&models.Patient{}, "id = ?", id).Error)
}

func (r *repo) CountPatients(ctx context.Context) (int64, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return 0, err
	}

	var count int64
	if err := gormDB.WithContext(ctx).Model(&models.Patient{}).Count(&count).Error; err != nil {
		return 0, translate(err)
	}

	return count, nil
}

// Medication operations implementation

func (r *repo) CreateMedication(ctx context.Context, med *models.Medication) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}

	return translate(gormDB.WithContext(ctx).Create(med).Error)
}

func (r *repo) UpdateMedication(ctx context.Context, med *models.Medication) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}

	return translate(gormDB.WithContext(ctx).Save(med).Error)
}

func (r *repo) FindMedicationByID(ctx context.Context, id string) (*models.Medication, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	var med models.Medication
	if err := gormDB.WithContext(ctx).First(&med, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}

	return &med, nil
}

func (r *repo) FindMedicationByName(ctx context.Context, name string) (*models.Medication, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	var med models.Medication
	if err := gormDB.WithContext(ctx).Where("name = ?", name).First(&med).Error; err != nil {
		return nil, translate(err)
	}

	return &med, nil
}

func (r *repo) ListMedications(ctx context.Context, opts ListOptions, lowStockOnly bool) ([]*models.Medication, int64, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, 0, err
	}

	query := gormDB.WithContext(ctx).Model(&models.Medication{})
	if opts.Search != "" {
		pattern := "%" + opts.Search + "%"
		query = query.Where("name ILIKE ? OR description ILIKE ? OR dosage_unit ILIKE ?", pattern, pattern, pattern)
	}
	if lowStockOnly {
		query = query.Where("stock_level < stock_threshold")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translate(err)
	}

	var meds []*models.Medication
	if err := query.
		Order("name ASC").
		Offset(opts.offset()).
		Limit(opts.limit()).
		Find(&meds).Error; err != nil {
		return nil, 0, translate(err)
	}

	return meds, total, nil
}

func (r *repo) DeleteMedication(ctx context.Context, id string) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}

	return translate(gormDB.WithContext(ctx).Delete(&models.Medication{}, "id = ?", id).Error)
}

func (r *repo) CountMedications(ctx context.Context) (int64, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return 0, err
	}

	var count int64
	if err := gormDB.WithContext(ctx).Model(&models.Medication{}).Count(&count).Error; err != nil {
		return 0, translate(err)
	}

	return count, nil
}

func (r *repo) CountLowStockMedications(ctx context.Context) (int64, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return 0, err
	}

	var count int64
	if err := gormDB.WithContext(ctx).Model(&models.Medication{}).
		Where("stock_level < stock_threshold").
		Count(&count).Error; err != nil {
		return 0, translate(err)
	}

	return count, nil
}

func (r *repo) ListLowStockMedications(ctx context.Context, limit int) ([]*models.Medication, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	var meds []*models.Medication
	query := gormDB.WithContext(ctx).Where("stock_level < stock_threshold").Order("name ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&meds).Error; err != nil {
		return nil, translate(err)
	}

	return meds, nil
}
