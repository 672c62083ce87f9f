package service

import (
	"context"
	"time"

	"example.com/medipi/hub/internal/models"
	"example.com/medipi/hub/internal/repository"

	"github.com/stretchr/testify/mock"
)

// MockRepository is a testify mock of repository.Repository
type MockRepository struct {
	mock.Mock
}

// WithTransaction runs the callback against the mock itself so tests can
// assert on the calls made inside the transaction.
func (m *MockRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context, txRepo repository.Repository) error) error {
	return fn(ctx, m)
}

func (m *MockRepository) CreateUser(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockRepository) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockRepository) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockRepository) CreatePatient(ctx context.Context, patient *models.Patient) error {
	args := m.Called(ctx, patient)
	return args.Error(0)
}

func (m *MockRepository) UpdatePatient(ctx context.Context, patient *models.Patient) error {
	args := m.Called(ctx, patient)
	return args.Error(0)
}

func (m *MockRepository) FindPatientByID(ctx context.Context, id string) (*models.Patient, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Patient), args.Error(1)
}

func (m *MockRepository) ListPatients(ctx context.Context, opts repository.ListOptions) ([]*models.Patient, int64, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*models.Patient), args.Get(1).(int64), args.Error(2)
}

func (m *MockRepository) DeletePatient(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRepository) CountPatients(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) CreateMedication(ctx context.Context, med *models.Medication) error {
	args := m.Called(ctx, med)
	return args.Error(0)
}

func (m *MockRepository) UpdateMedication(ctx context.Context, med *models.Medication) error {
	args := m.Called(ctx, med)
	return args.Error(0)
}

func (m *MockRepository) FindMedicationByID(ctx context.Context, id string) (*models.Medication, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Medication), args.Error(1)
}

func (m *MockRepository) FindMedicationByName(ctx context.Context, name string) (*models.Medication, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Medication), args.Error(1)
}

func (m *MockRepository) ListMedications(ctx context.Context, opts repository.ListOptions, lowStockOnly bool) ([]*models.Medication, int64, error) {
	args := m.Called(ctx, opts, lowStockOnly)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*models.Medication), args.Get(1).(int64), args.Error(2)
}

func (m *MockRepository) DeleteMedication(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRepository) CountMedications(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) CountLowStockMedications(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) ListLowStockMedications(ctx context.Context, limit int) ([]*models.Medication, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Medication), args.Error(1)
}

func (m *MockRepository) CreateDispenser(ctx context.Context, dispenser *models.Dispenser) error {
	args := m.Called(ctx, dispenser)
	return args.Error(0)
}

func (m *MockRepository) UpdateDispenser(ctx context.Context, dispenser *models.Dispenser) error {
	args := m.Called(ctx, dispenser)
	return args.Error(0)
}

func (m *MockRepository) ClearDispenserPatient(ctx context.Context, dispenserID string) error {
	args := m.Called(ctx, dispenserID)
	return args.Error(0)
}

func (m *MockRepository) FindDispenserByID(ctx context.Context, id string) (*models.Dispenser, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Dispenser), args.Error(1)
}

func (m *MockRepository) FindDispenserBySerial(ctx context.Context, serial string) (*models.Dispenser, error) {
	args := m.Called(ctx, serial)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Dispenser), args.Error(1)
}

func (m *MockRepository) ListDispensers(ctx context.Context, opts repository.ListOptions, assigned *bool) ([]*models.Dispenser, int64, error) {
	args := m.Called(ctx, opts, assigned)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*models.Dispenser), args.Get(1).(int64), args.Error(2)
}

func (m *MockRepository) DeleteDispenser(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRepository) CountDispensers(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) CountDispensersByStatus(ctx context.Context, status models.DispenserStatus) (int64, error) {
	args := m.Called(ctx, status)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) CountAssignedDispensers(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) ListDispensersByStatusIn(ctx context.Context, statuses []models.DispenserStatus, limit int) ([]*models.Dispenser, error) {
	args := m.Called(ctx, statuses, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Dispenser), args.Error(1)
}

func (m *MockRepository) CreateChamber(ctx context.Context, chamber *models.Chamber) error {
	args := m.Called(ctx, chamber)
	return args.Error(0)
}

func (m *MockRepository) DeleteChambersByDispenser(ctx context.Context, dispenserID string) error {
	args := m.Called(ctx, dispenserID)
	return args.Error(0)
}

func (m *MockRepository) CreateRfid(ctx context.Context, rfid *models.DispenserRfid) error {
	args := m.Called(ctx, rfid)
	return args.Error(0)
}

func (m *MockRepository) FindRfidByDispenserAndType(ctx context.Context, dispenserID string, rfidType models.RfidType) (*models.DispenserRfid, error) {
	args := m.Called(ctx, dispenserID, rfidType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DispenserRfid), args.Error(1)
}

func (m *MockRepository) DeleteRfidsByDispenserAndType(ctx context.Context, dispenserID string, rfidType models.RfidType) error {
	args := m.Called(ctx, dispenserID, rfidType)
	return args.Error(0)
}

func (m *MockRepository) DeleteRfidsByDispenser(ctx context.Context, dispenserID string) error {
	args := m.Called(ctx, dispenserID)
	return args.Error(0)
}

func (m *MockRepository) CreateSchedule(ctx context.Context, schedule *models.Schedule) error {
	args := m.Called(ctx, schedule)
	return args.Error(0)
}

func (m *MockRepository) UpdateSchedule(ctx context.Context, schedule *models.Schedule) error {
	args := m.Called(ctx, schedule)
	return args.Error(0)
}

func (m *MockRepository) FindDispenserSchedule(ctx context.Context, dispenserID, scheduleID string) (*models.Schedule, error) {
	args := m.Called(ctx, dispenserID, scheduleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Schedule), args.Error(1)
}

func (m *MockRepository) FindScheduleAtTime(ctx context.Context, dispenserID string, hour int, excludeID string) (*models.Schedule, error) {
	args := m.Called(ctx, dispenserID, hour, excludeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Schedule), args.Error(1)
}

func (m *MockRepository) ListSchedulesByDispenser(ctx context.Context, dispenserID string) ([]*models.Schedule, error) {
	args := m.Called(ctx, dispenserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Schedule), args.Error(1)
}

func (m *MockRepository) DeleteSchedule(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRepository) CountSchedulesByDispenser(ctx context.Context, dispenserID string) (int64, error) {
	args := m.Called(ctx, dispenserID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) CountSchedulesByPatient(ctx context.Context, patientID string) (int64, error) {
	args := m.Called(ctx, patientID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) CreateChamberContent(ctx context.Context, content *models.ChamberContent) error {
	args := m.Called(ctx, content)
	return args.Error(0)
}

func (m *MockRepository) DeleteChamberContentBySchedule(ctx context.Context, scheduleID string) error {
	args := m.Called(ctx, scheduleID)
	return args.Error(0)
}

func (m *MockRepository) CountChamberContentByMedication(ctx context.Context, medicationID string) (int64, error) {
	args := m.Called(ctx, medicationID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) CountDispensersUsingMedication(ctx context.Context, medicationID string) (int64, error) {
	args := m.Called(ctx, medicationID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) CountChamberContentByDispenser(ctx context.Context, dispenserID string) (int64, error) {
	args := m.Called(ctx, dispenserID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) CreateDispenserLog(ctx context.Context, log *models.DispenserLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *MockRepository) ListRecentLogs(ctx context.Context, limit int) ([]*models.DispenserLog, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.DispenserLog), args.Error(1)
}

func (m *MockRepository) ListLogsByDispenser(ctx context.Context, dispenserID string, limit int) ([]*models.DispenserLog, error) {
	args := m.Called(ctx, dispenserID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.DispenserLog), args.Error(1)
}

func (m *MockRepository) ListMissedLogsSince(ctx context.Context, since time.Time, limit int) ([]*models.DispenserLog, error) {
	args := m.Called(ctx, since, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.DispenserLog), args.Error(1)
}

func (m *MockRepository) DeleteLogsByDispenser(ctx context.Context, dispenserID string) error {
	args := m.Called(ctx, dispenserID)
	return args.Error(0)
}

// MockCache is a testify mock of cache.RedisClient
type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockCache) Set(ctx context.Context, key, value string, expiration time.Duration) error {
	args := m.Called(ctx, key, value, expiration)
	return args.Error(0)
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockCache) Close() error {
	args := m.Called()
	return args.Error(0)
}
