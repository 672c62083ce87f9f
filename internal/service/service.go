package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"time"

	"example.com/medipi/hub/internal/cache"
	"example.com/medipi/hub/internal/models"
	"example.com/medipi/hub/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// ScheduleSyncer pushes a dispenser's schedules out to the device bridge.
// Implemented by the Node-RED client; nil disables syncing.
type ScheduleSyncer interface {
	SyncSchedules(ctx context.Context, serialNumber string, schedules []*models.Schedule) error
}

// Service defines the business logic operations
type Service interface {
	// Auth operations
	Login(ctx context.Context, email, password string) (string, *models.User, error)
	Logout(ctx context.Context, token string) error
	ValidateSession(ctx context.Context, token string) (*models.User, error)
	CreateUser(ctx context.Context, email, name, password string, role models.UserRole) (*models.User, error)

	// Patient operations
	CreatePatient(ctx context.Context, patient *models.Patient) error
	UpdatePatient(ctx context.Context, id string, patient *models.Patient) (*models.Patient, error)
	GetPatient(ctx context.Context, id string) (*models.Patient, error)
	ListPatients(ctx context.Context, opts repository.ListOptions) (*PatientPage, error)
	DeletePatient(ctx context.Context, id string) error

	// Medication operations
	CreateMedication(ctx context.Context, med *models.Medication) error
	UpdateMedication(ctx context.Context, id string, med *models.Medication) (*models.Medication, error)
	GetMedication(ctx context.Context, id string) (*models.Medication, error)
	ListMedications(ctx context.Context, opts repository.ListOptions, lowStockOnly bool) (*MedicationPage, error)
	DeleteMedication(ctx context.Context, id string) error
	AdjustStock(ctx context.Context, id string, amount int, reason string) (*StockAdjustment, error)

	// Dispenser operations
	CreateDispenser(ctx context.Context, serialNumber string, status models.DispenserStatus) (*models.Dispenser, error)
	UpdateDispenserStatus(ctx context.Context, id string, status models.DispenserStatus) (*models.Dispenser, error)
	GetDispenser(ctx context.Context, id string) (*models.Dispenser, error)
	GetDispenserBySerial(ctx context.Context, serialNumber string) (*models.Dispenser, error)
	ListDispensers(ctx context.Context, opts repository.ListOptions, assigned *bool) (*DispenserPage, error)
	DeleteDispenser(ctx context.Context, id string) error
	AssignPatient(ctx context.Context, dispenserID, patientID string) (*models.Dispenser, error)
	UnassignPatient(ctx context.Context, dispenserID string) (*models.Dispenser, error)
	MarkDispenserSeen(ctx context.Context, serialNumber string, status models.DispenserStatus) error

	// Schedule operations
	CreateSchedule(ctx context.Context, dispenserID string, req ScheduleRequest) (*models.Schedule, error)
	UpdateSchedule(ctx context.Context, dispenserID, scheduleID string, req ScheduleUpdateRequest) (*models.Schedule, error)
	GetSchedule(ctx context.Context, dispenserID, scheduleID string) (*models.Schedule, error)
	ListSchedules(ctx context.Context, dispenserID string) ([]*models.Schedule, error)
	DeleteSchedule(ctx context.Context, dispenserID, scheduleID string) error

	// Dashboard operations
	DashboardStats(ctx context.Context) (*DashboardStats, error)
	DashboardAlerts(ctx context.Context) ([]Alert, error)
	RecentLogs(ctx context.Context, limit int) ([]RecentLog, error)

	// Dispense log ingestion (fed by the device bridge)
	IngestDispenseLog(ctx context.Context, entry *DispenseLogEntry) error
	IngestorStats() map[string]interface{}

	Shutdown() error
}

// service is an implementation of the Service interface
type service struct {
	repo       repository.Repository
	cache      cache.RedisClient
	syncer     ScheduleSyncer
	log        *logrus.Logger
	ingestor   *LogIngestor
	sessionTTL time.Duration
}

// ServiceConfig holds the configuration for the service
type ServiceConfig struct {
	Repository repository.Repository
	Cache      cache.RedisClient
	Syncer     ScheduleSyncer
	Logger     *logrus.Logger
	SessionTTL time.Duration
}

// NewService creates a new service instance
func NewService(config ServiceConfig) (Service, error) {
	if config.Repository == nil {
		return nil, errors.New("repository is required")
	}
	if config.Cache == nil {
		return nil, errors.New("cache is required")
	}
	if config.Logger == nil {
		config.Logger = logrus.New()
	}
	if config.SessionTTL <= 0 {
		config.SessionTTL = 24 * time.Hour
	}

	workerCount := runtime.NumCPU()
	if workerCount < 2 {
		workerCount = 2
	}

	svc := &service{
		repo:       config.Repository,
		cache:      config.Cache,
		syncer:     config.Syncer,
		log:        config.Logger,
		sessionTTL: config.SessionTTL,
	}
	svc.ingestor = NewLogIngestor(config.Repository, config.Logger, workerCount)

	return svc, nil
}

// Shutdown gracefully stops the service
func (s *service) Shutdown() error {
	s.log.Info("Shutting down service...")
	s.ingestor.Stop()
	return nil
}

// sessionKey builds the Redis key for a session token
func sessionKey(token string) string {
	return fmt.Sprintf("session:%s", token)
}

// Auth operations implementation

func (s *service) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	user, err := s.repo.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil, ErrUnauthorized
		}
		return "", nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if !user.Active {
		return "", nil, ErrUnauthorized
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrUnauthorized
	}

	token := uuid.New().String()
	if err := s.cache.Set(ctx, sessionKey(token), user.ID, s.sessionTTL); err != nil {
		return "", nil, fmt.Errorf("failed to store session: %w", err)
	}

	s.log.WithField("user_id", user.ID).Info("User logged in")

	return token, user, nil
}

func (s *service) Logout(ctx context.Context, token string) error {
	return s.cache.Delete(ctx, sessionKey(token))
}

func (s *service) ValidateSession(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}

	userID, err := s.cache.Get(ctx, sessionKey(token))
	if err != nil {
		return nil, ErrUnauthorized
	}

	user, err := s.repo.FindUserByID(ctx, userID)
	if err != nil {
		return nil, ErrUnauthorized
	}

	if !user.Active {
		return nil, ErrUnauthorized
	}

	return user, nil
}

func (s *service) CreateUser(ctx context.Context, email, name, password string, role models.UserRole) (*models.User, error) {
	if email == "" || password == "" {
		return nil, NewValidationError("Email and password are required")
	}
	if role == "" {
		role = models.RoleStaff
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		Role:         role,
		Active:       true,
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, NewConflictError("A user with this email already exists")
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// Patient operations implementation

// PatientPage is one page of patients with pagination metadata
type PatientPage struct {
	Items      []*models.Patient `json:"items"`
	TotalCount int64             `json:"totalCount"`
	Page       int               `json:"page"`
	PageSize   int               `json:"pageSize"`
	TotalPages int               `json:"totalPages"`
}

func (s *service) CreatePatient(ctx context.Context, patient *models.Patient) error {
	if patient.Name == "" || patient.DateOfBirth.IsZero() {
		return NewValidationError("Name and date of birth are required")
	}

	if err := s.repo.CreatePatient(ctx, patient); err != nil {
		return fmt.Errorf("failed to create patient: %w", err)
	}

	return nil
}

func (s *service) UpdatePatient(ctx context.Context, id string, patient *models.Patient) (*models.Patient, error) {
	if patient.Name == "" || patient.DateOfBirth.IsZero() {
		return nil, NewValidationError("Name and date of birth are required")
	}

	existing, err := s.repo.FindPatientByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewNotFoundError("Patient not found")
		}
		return nil, fmt.Errorf("failed to look up patient: %w", err)
	}

	existing.Name = patient.Name
	existing.DateOfBirth = patient.DateOfBirth
	existing.RoomNumber = patient.RoomNumber

	if err := s.repo.UpdatePatient(ctx, existing); err != nil {
		return nil, fmt.Errorf("failed to update patient: %w", err)
	}

	return existing, nil
}

func (s *service) GetPatient(ctx context.Context, id string) (*models.Patient, error) {
	patient, err := s.repo.FindPatientByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewNotFoundError("Patient not found")
		}
		return nil, fmt.Errorf("failed to look up patient: %w", err)
	}

	return patient, nil
}

func (s *service) ListPatients(ctx context.Context, opts repository.ListOptions) (*PatientPage, error) {
	patients, total, err := s.repo.ListPatients(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}

	return &PatientPage{
		Items:      patients,
		TotalCount: total,
		Page:       pageOf(opts),
		PageSize:   pageSizeOf(opts),
		TotalPages: totalPages(total, pageSizeOf(opts)),
	}, nil
}

func (s *service) DeletePatient(ctx context.Context, id string) error {
	patient, err := s.repo.FindPatientByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return NewNotFoundError("Patient not found")
		}
		return fmt.Errorf("failed to look up patient: %w", err)
	}

	if patient.Dispenser != nil {
		return NewValidationError("Cannot delete patient with assigned dispenser. Unassign dispenser first.")
	}

	scheduleCount, err := s.repo.CountSchedulesByPatient(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to count schedules: %w", err)
	}
	if scheduleCount > 0 {
		return NewValidationError("Cannot delete patient with schedules. Delete schedules first.")
	}

	if err := s.repo.DeletePatient(ctx, id); err != nil {
		return fmt.Errorf("failed to delete patient: %w", err)
	}

	return nil
}

// Dispense log ingestion

func (s *service) IngestDispenseLog(ctx context.Context, entry *DispenseLogEntry) error {
	return s.ingestor.Enqueue(entry)
}

func (s *service) IngestorStats() map[string]interface{} {
	return s.ingestor.QueueStats()
}

// cacheDispenser stores a dispenser snapshot in the cache, keyed by serial
func (s *service) cacheDispenser(ctx context.Context, dispenser *models.Dispenser) {
	dispenserJSON, err := json.Marshal(dispenser)
	if err != nil {
		return
	}
	s.cache.Set(ctx, fmt.Sprintf("dispenser:%s", dispenser.SerialNumber), string(dispenserJSON), 24*time.Hour)
}

// Pagination helpers

func pageOf(opts repository.ListOptions) int {
	if opts.Page < 1 {
		return 1
	}
	return opts.Page
}

func pageSizeOf(opts repository.ListOptions) int {
	if opts.PageSize < 1 {
		return 10
	}
	return opts.PageSize
}

func totalPages(total int64, pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	pages := int(total) / pageSize
	if int(total)%pageSize != 0 {
		pages++
	}
	return pages
}
