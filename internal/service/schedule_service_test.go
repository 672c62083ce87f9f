package service

import (
	"context"
	"testing"
	"time"

	"example.com/medipi/hub/internal/models"
	"example.com/medipi/hub/internal/repository"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// newTestService builds a service wired to mocks. Cache calls are allowed
// but never required; the syncer stays nil so no background sync runs.
func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func newTestService(repo *MockRepository, cacheMock *MockCache) *service {
	log := testLogger()

	cacheMock.On("Get", mock.Anything, mock.Anything).Return("", assertableError("cache miss")).Maybe()
	cacheMock.On("Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	cacheMock.On("Delete", mock.Anything, mock.Anything).Return(nil).Maybe()

	return &service{
		repo:       repo,
		cache:      cacheMock,
		log:        log,
		ingestor:   NewLogIngestor(repo, log, 1),
		sessionTTL: time.Hour,
	}
}

type assertableError string

func (e assertableError) Error() string { return string(e) }

func testDispenser(patientID string) *models.Dispenser {
	d := &models.Dispenser{
		SerialNumber: "MP-1001",
		Status:       models.StatusOnline,
		Chambers:     make([]models.Chamber, 0, models.ChamberCount),
	}
	d.ID = "disp-1"
	for i := 1; i <= models.ChamberCount; i++ {
		chamber := models.Chamber{DispenserID: d.ID, ChamberNumber: i}
		chamber.ID = chamberID(i)
		d.Chambers = append(d.Chambers, chamber)
	}
	if patientID != "" {
		d.PatientID = &patientID
	}
	return d
}

func chamberID(n int) string {
	return "chamber-" + string(rune('0'+n))
}

func validScheduleRequest() ScheduleRequest {
	return ScheduleRequest{
		Time:      8,
		StartDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		ChamberAssignments: []ChamberAssignment{
			{ChamberID: chamberID(1), MedicationID: "med-1", DosageAmount: 2},
		},
	}
}

func TestCreateScheduleFillsChambersToInitialAmount(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo, new(MockCache))

	dispenser := testDispenser("patient-1")
	med := &models.Medication{Name: "Aspirin", DosageUnit: "tablet"}
	med.ID = "med-1"

	repo.On("FindDispenserByID", mock.Anything, "disp-1").Return(dispenser, nil)
	repo.On("FindMedicationByID", mock.Anything, "med-1").Return(med, nil)
	repo.On("FindScheduleAtTime", mock.Anything, "disp-1", 8, "").Return(nil, repository.ErrNotFound)
	repo.On("CreateSchedule", mock.Anything, mock.AnythingOfType("*models.Schedule")).Return(nil)
	repo.On("CreateChamberContent", mock.Anything, mock.MatchedBy(func(content *models.ChamberContent) bool {
		return content.CurrentAmount == 30 && content.DosageAmount == 2
	})).Return(nil)
	repo.On("FindDispenserSchedule", mock.Anything, "disp-1", mock.Anything).Return(&models.Schedule{}, nil)

	schedule, err := svc.CreateSchedule(context.Background(), "disp-1", validScheduleRequest())

	require.NoError(t, err)
	require.NotNil(t, schedule)
	repo.AssertExpectations(t)
}

func TestCreateScheduleRejectsUnassignedDispenser(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo, new(MockCache))

	repo.On("FindDispenserByID", mock.Anything, "disp-1").Return(testDispenser(""), nil)

	_, err := svc.CreateSchedule(context.Background(), "disp-1", validScheduleRequest())

	var svcErr *Error
	require.ErrorAs(t, err, &svcErr)
	require.Equal(t, 400, svcErr.StatusCode)
}

func TestCreateScheduleRejectsInvalidHour(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo, new(MockCache))

	repo.On("FindDispenserByID", mock.Anything, "disp-1").Return(testDispenser("patient-1"), nil)

	for _, hour := range []int{-1, 24, 99} {
		req := validScheduleRequest()
		req.Time = hour

		_, err := svc.CreateSchedule(context.Background(), "disp-1", req)

		var svcErr *Error
		require.ErrorAs(t, err, &svcErr)
		require.Equal(t, 400, svcErr.StatusCode)
	}
}

func TestCreateScheduleRejectsEmptyAssignments(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo, new(MockCache))

	repo.On("FindDispenserByID", mock.Anything, "disp-1").Return(testDispenser("patient-1"), nil)

	req := validScheduleRequest()
	req.ChamberAssignments = nil

	_, err := svc.CreateSchedule(context.Background(), "disp-1", req)

	var svcErr *Error
	require.ErrorAs(t, err, &svcErr)
	require.Equal(t, 400, svcErr.StatusCode)
}

func TestCreateScheduleRejectsForeignChamber(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo, new(MockCache))

	repo.On("FindDispenserByID", mock.Anything, "disp-1").Return(testDispenser("patient-1"), nil)

	req := validScheduleRequest()
	req.ChamberAssignments[0].ChamberID = "someone-elses-chamber"

	_, err := svc.CreateSchedule(context.Background(), "disp-1", req)

	var svcErr *Error
	require.ErrorAs(t, err, &svcErr)
	require.Equal(t, 400, svcErr.StatusCode)
}

func TestCreateScheduleConflictsOnOccupiedHour(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo, new(MockCache))

	dispenser := testDispenser("patient-1")
	med := &models.Medication{Name: "Aspirin", DosageUnit: "tablet"}
	med.ID = "med-1"
	existing := &models.Schedule{DispenserID: "disp-1", Time: 8}

	repo.On("FindDispenserByID", mock.Anything, "disp-1").Return(dispenser, nil)
	repo.On("FindMedicationByID", mock.Anything, "med-1").Return(med, nil)
	repo.On("FindScheduleAtTime", mock.Anything, "disp-1", 8, "").Return(existing, nil)

	_, err := svc.CreateSchedule(context.Background(), "disp-1", validScheduleRequest())

	var svcErr *Error
	require.ErrorAs(t, err, &svcErr)
	require.Equal(t, 409, svcErr.StatusCode)
	repo.AssertNotCalled(t, "CreateSchedule", mock.Anything, mock.Anything)
}

func TestUpdateScheduleReplacesChamberContents(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo, new(MockCache))

	dispenser := testDispenser("patient-1")
	med := &models.Medication{Name: "Aspirin", DosageUnit: "tablet"}
	med.ID = "med-1"
	schedule := &models.Schedule{
		DispenserID: "disp-1",
		PatientID:   "patient-1",
		Time:        8,
		StartDate:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		IsActive:    true,
	}
	schedule.ID = "sched-1"

	repo.On("FindDispenserByID", mock.Anything, "disp-1").Return(dispenser, nil)
	repo.On("FindDispenserSchedule", mock.Anything, "disp-1", "sched-1").Return(schedule, nil)
	repo.On("FindMedicationByID", mock.Anything, "med-1").Return(med, nil)
	repo.On("FindScheduleAtTime", mock.Anything, "disp-1", 8, "sched-1").Return(nil, repository.ErrNotFound)
	repo.On("UpdateSchedule", mock.Anything, schedule).Return(nil)
	repo.On("DeleteChamberContentBySchedule", mock.Anything, "sched-1").Return(nil)
	repo.On("CreateChamberContent", mock.Anything, mock.MatchedBy(func(content *models.ChamberContent) bool {
		return content.CurrentAmount == 30
	})).Return(nil)

	req := ScheduleUpdateRequest{
		ChamberAssignments: []ChamberAssignment{
			{ChamberID: chamberID(2), MedicationID: "med-1", DosageAmount: 1},
		},
	}

	_, err := svc.UpdateSchedule(context.Background(), "disp-1", "sched-1", req)

	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestDeleteScheduleRemovesContentsFirst(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo, new(MockCache))

	schedule := &models.Schedule{DispenserID: "disp-1"}
	schedule.ID = "sched-1"

	repo.On("FindDispenserByID", mock.Anything, "disp-1").Return(testDispenser("patient-1"), nil)
	repo.On("FindDispenserSchedule", mock.Anything, "disp-1", "sched-1").Return(schedule, nil)
	repo.On("DeleteChamberContentBySchedule", mock.Anything, "sched-1").Return(nil)
	repo.On("DeleteSchedule", mock.Anything, "sched-1").Return(nil)

	err := svc.DeleteSchedule(context.Background(), "disp-1", "sched-1")

	require.NoError(t, err)
	repo.AssertExpectations(t)
}
