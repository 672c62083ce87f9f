package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Model is the base model with common fields for all database entities
type Model struct {
	ID        string    `json:"id" gorm:"primaryKey;Column:id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns a UUID primary key when none was provided
func (m *Model) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return nil
}

// UserRole represents the access role of a dashboard user
type UserRole string

const (
	// RoleAdmin represents full administrative access
	RoleAdmin UserRole = "admin"
	// RoleStaff represents regular care-staff access
	RoleStaff UserRole = "staff"
)

// User represents a dashboard user account
type User struct {
	Model
	Email        string   `json:"email" gorm:"uniqueIndex;Column:email"`
	Name         string   `json:"name" gorm:"Column:name"`
	PasswordHash string   `json:"-" gorm:"Column:password_hash"`
	Role         UserRole `json:"role" gorm:"Column:role;default:'staff'"`
	Active       bool     `json:"active" gorm:"Column:active;default:true"`
}

// Patient represents a person receiving medication through a dispenser
type Patient struct {
	Model
	Name        string     `json:"name" gorm:"Column:name"`
	DateOfBirth time.Time  `json:"date_of_birth" gorm:"Column:date_of_birth"`
	RoomNumber  *string    `json:"room_number" gorm:"Column:room_number"`
	Dispenser   *Dispenser `json:"dispenser,omitempty" gorm:"foreignKey:PatientID"`
	Schedules   []Schedule `json:"schedules,omitempty" gorm:"foreignKey:PatientID"`
}

// Medication represents a medication tracked in stock
type Medication struct {
	Model
	Name           string  `json:"name" gorm:"uniqueIndex;Column:name"`
	Description    *string `json:"description" gorm:"Column:description"`
	DosageUnit     string  `json:"dosage_unit" gorm:"Column:dosage_unit"`
	StockLevel     int     `json:"stock_level" gorm:"Column:stock_level"`
	StockThreshold int     `json:"stock_threshold" gorm:"Column:stock_threshold"`
}

// DispenserStatus is an enum for the operational state of a dispenser
type DispenserStatus string

const (
	// StatusOnline represents a dispenser reachable over the device bridge
	StatusOnline DispenserStatus = "ONLINE"
	// StatusOffline represents a dispenser that is not reachable
	StatusOffline DispenserStatus = "OFFLINE"
	// StatusMaintenance represents a dispenser taken out of service on purpose
	StatusMaintenance DispenserStatus = "MAINTENANCE"
	// StatusError represents a dispenser reporting a fault
	StatusError DispenserStatus = "ERROR"
	// StatusOfflineAutonomous represents a dispenser running its local
	// schedule without a hub connection
	StatusOfflineAutonomous DispenserStatus = "OFFLINE_AUTONOMOUS"
)

// ValidStatus reports whether s is one of the known dispenser states
func ValidStatus(s DispenserStatus) bool {
	switch s {
	case StatusOnline, StatusOffline, StatusMaintenance, StatusError, StatusOfflineAutonomous:
		return true
	}
	return false
}

// ChamberCount is the fixed number of physical chambers on every dispenser
const ChamberCount = 6

// Dispenser represents a physical medication dispenser in the fleet
type Dispenser struct {
	Model
	SerialNumber string          `json:"serial_number" gorm:"uniqueIndex;Column:serial_number"`
	Status       DispenserStatus `json:"status" gorm:"Column:status;default:'OFFLINE'"`
	LastSeen     *time.Time      `json:"last_seen" gorm:"Column:last_seen"`
	Patient      *Patient        `json:"patient,omitempty" gorm:"foreignKey:PatientID"`
	PatientID    *string         `json:"patient_id" gorm:"Column:patient_id"`
	Chambers     []Chamber       `json:"chambers,omitempty" gorm:"foreignKey:DispenserID"`
	Schedules    []Schedule      `json:"schedules,omitempty" gorm:"foreignKey:DispenserID"`
	Rfids        []DispenserRfid `json:"rfids,omitempty" gorm:"foreignKey:DispenserID"`
	Logs         []DispenserLog  `json:"logs,omitempty" gorm:"foreignKey:DispenserID"`
}

// Chamber represents one of the six physical medication slots on a dispenser
type Chamber struct {
	Model
	Dispenser     *Dispenser `json:"-" gorm:"foreignKey:DispenserID"`
	DispenserID   string     `json:"dispenser_id" gorm:"index:idx_chamber_slot,unique;Column:dispenser_id"`
	ChamberNumber int        `json:"chamber_number" gorm:"index:idx_chamber_slot,unique;Column:chamber_number"`
}

// Schedule represents a recurring daily dispensing event at a fixed hour
type Schedule struct {
	Model
	Dispenser   *Dispenser       `json:"dispenser,omitempty" gorm:"foreignKey:DispenserID"`
	DispenserID string           `json:"dispenser_id" gorm:"index;Column:dispenser_id"`
	Patient     *Patient         `json:"patient,omitempty" gorm:"foreignKey:PatientID"`
	PatientID   string           `json:"patient_id" gorm:"Column:patient_id"`
	Time        int              `json:"time" gorm:"Column:time"`
	StartDate   time.Time        `json:"start_date" gorm:"Column:start_date"`
	EndDate     *time.Time       `json:"end_date" gorm:"Column:end_date"`
	IsActive    bool             `json:"is_active" gorm:"Column:is_active;default:true"`
	Chambers    []ChamberContent `json:"chambers,omitempty" gorm:"foreignKey:ScheduleID"`
}

// ChamberContent assigns a medication and dosage to a chamber for one schedule
type ChamberContent struct {
	Model
	Schedule      *Schedule   `json:"-" gorm:"foreignKey:ScheduleID"`
	ScheduleID    string      `json:"schedule_id" gorm:"index;Column:schedule_id"`
	Chamber       *Chamber    `json:"chamber,omitempty" gorm:"foreignKey:ChamberID"`
	ChamberID     string      `json:"chamber_id" gorm:"index;Column:chamber_id"`
	Medication    *Medication `json:"medication,omitempty" gorm:"foreignKey:MedicationID"`
	MedicationID  string      `json:"medication_id" gorm:"index;Column:medication_id"`
	DosageAmount  int         `json:"dosage_amount" gorm:"Column:dosage_amount"`
	CurrentAmount int         `json:"current_amount" gorm:"Column:current_amount"`
}

// RfidType is an enum for the kind of RFID tag paired with a dispenser
type RfidType string

const (
	// RfidPatient authenticates the assigned patient at the device
	RfidPatient RfidType = "PATIENT"
	// RfidAdmin authenticates care staff for refills and maintenance
	RfidAdmin RfidType = "ADMIN"
)

// DispenserRfid represents a physical RFID tag paired with a dispenser
type DispenserRfid struct {
	Model
	Dispenser   *Dispenser `json:"-" gorm:"foreignKey:DispenserID"`
	DispenserID string     `json:"dispenser_id" gorm:"index;Column:dispenser_id"`
	RfidTag     string     `json:"rfid_tag" gorm:"Column:rfid_tag"`
	Type        RfidType   `json:"type" gorm:"Column:type"`
}

// LogStatus is an enum for the outcome of a dispensing attempt
type LogStatus string

const (
	// LogCompleted represents a dose taken on time
	LogCompleted LogStatus = "COMPLETED"
	// LogMissed represents a dose that was never taken
	LogMissed LogStatus = "MISSED"
	// LogLate represents a dose taken after its window
	LogLate LogStatus = "LATE"
	// LogError represents a hardware or dispensing failure
	LogError LogStatus = "ERROR"
)

// DispenserLog is an immutable record of a dispensing attempt. Medications
// holds a serialized snapshot of the medications involved, denormalized for
// audit rather than referenced live.
type DispenserLog struct {
	Model
	Dispenser   *Dispenser `json:"dispenser,omitempty" gorm:"foreignKey:DispenserID"`
	DispenserID string     `json:"dispenser_id" gorm:"index;Column:dispenser_id"`
	Schedule    *Schedule  `json:"schedule,omitempty" gorm:"foreignKey:ScheduleID"`
	ScheduleID  *string    `json:"schedule_id" gorm:"index;Column:schedule_id"`
	Timestamp   time.Time  `json:"timestamp" gorm:"index;Column:timestamp"`
	Status      LogStatus  `json:"status" gorm:"Column:status"`
	Medications string     `json:"medications" gorm:"Column:medications;type:text"`
	Synced      bool       `json:"synced" gorm:"Column:synced;default:false"`
}
