package service

import (
	"context"
	"testing"
	"time"

	"example.com/medipi/hub/internal/models"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestDashboardStatsAggregatesCounts(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo, new(MockCache))

	repo.On("CountPatients", mock.Anything).Return(int64(12), nil)
	repo.On("CountDispensers", mock.Anything).Return(int64(8), nil)
	repo.On("CountDispensersByStatus", mock.Anything, models.StatusOnline).Return(int64(6), nil)
	repo.On("CountAssignedDispensers", mock.Anything).Return(int64(7), nil)
	repo.On("CountMedications", mock.Anything).Return(int64(20), nil)
	repo.On("CountLowStockMedications", mock.Anything).Return(int64(3), nil)

	stats, err := svc.DashboardStats(context.Background())

	require.NoError(t, err)
	require.Equal(t, int64(12), stats.PatientCount)
	require.Equal(t, int64(8), stats.DispenserCount)
	require.Equal(t, int64(6), stats.OnlineDispensers)
	require.Equal(t, int64(7), stats.AssignedDispensers)
	require.Equal(t, int64(3), stats.LowStockCount)
}

func TestDashboardAlertsSortedNewestFirst(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo, new(MockCache))

	now := time.Now()
	dispenser := testDispenser("patient-1")
	dispenser.Patient = &models.Patient{Name: "John Doe"}
	missedLog := &models.DispenserLog{
		DispenserID: "disp-1",
		Dispenser:   dispenser,
		Timestamp:   now.Add(-2 * time.Hour),
		Status:      models.LogMissed,
	}

	lowMed := testMedication(5)
	lowMed.UpdatedAt = now.Add(-30 * time.Minute)

	offline := testDispenser("patient-2")
	offline.Patient = &models.Patient{Name: "Jane Roe"}
	offline.Status = models.StatusOffline
	seen := now.Add(-10 * time.Minute)
	offline.LastSeen = &seen

	repo.On("ListMissedLogsSince", mock.Anything, mock.Anything, maxAlerts).
		Return([]*models.DispenserLog{missedLog}, nil)
	repo.On("ListLowStockMedications", mock.Anything, maxAlerts).
		Return([]*models.Medication{lowMed}, nil)
	repo.On("ListDispensersByStatusIn", mock.Anything,
		[]models.DispenserStatus{models.StatusOffline, models.StatusError}, maxAlerts).
		Return([]*models.Dispenser{offline}, nil)

	alerts, err := svc.DashboardAlerts(context.Background())

	require.NoError(t, err)
	require.Len(t, alerts, 3)
	require.Equal(t, "DISPENSER_OFFLINE", alerts[0].Type)
	require.Equal(t, "LOW_STOCK", alerts[1].Type)
	require.Equal(t, "MISSED_DOSE", alerts[2].Type)
}

func TestDashboardAlertsSkipUnassignedDispensers(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo, new(MockCache))

	// Neither the missed log's dispenser nor the offline one has a patient
	missedLog := &models.DispenserLog{
		DispenserID: "disp-1",
		Dispenser:   testDispenser(""),
		Timestamp:   time.Now().Add(-1 * time.Hour),
		Status:      models.LogMissed,
	}
	offline := testDispenser("")
	offline.Status = models.StatusOffline

	repo.On("ListMissedLogsSince", mock.Anything, mock.Anything, maxAlerts).
		Return([]*models.DispenserLog{missedLog}, nil)
	repo.On("ListLowStockMedications", mock.Anything, maxAlerts).
		Return([]*models.Medication{}, nil)
	repo.On("ListDispensersByStatusIn", mock.Anything,
		[]models.DispenserStatus{models.StatusOffline, models.StatusError}, maxAlerts).
		Return([]*models.Dispenser{offline}, nil)

	alerts, err := svc.DashboardAlerts(context.Background())

	require.NoError(t, err)
	require.Empty(t, alerts)
}

func TestRecentLogsParsesMedicationSnapshot(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo, new(MockCache))

	dispenser := testDispenser("")
	schedule := &models.Schedule{Time: 8}
	entry := &models.DispenserLog{
		DispenserID: "disp-1",
		Dispenser:   dispenser,
		Schedule:    schedule,
		Timestamp:   time.Now(),
		Status:      models.LogCompleted,
		Medications: `[{"name":"Aspirin","amount":2}]`,
	}
	entry.ID = "log-1"

	repo.On("ListRecentLogs", mock.Anything, 5).Return([]*models.DispenserLog{entry}, nil)

	logs, err := svc.RecentLogs(context.Background(), 0)

	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.Equal(t, "MP-1001", logs[0].SerialNumber)
	require.NotNil(t, logs[0].ScheduleTime)
	require.Equal(t, 8, *logs[0].ScheduleTime)
	require.Len(t, logs[0].Medications, 1)
	require.Equal(t, "Aspirin", logs[0].Medications[0].Name)
	require.Equal(t, 2, logs[0].Medications[0].Amount)
}

func TestRecentLogsToleratesMalformedSnapshot(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo, new(MockCache))

	entry := &models.DispenserLog{
		DispenserID: "disp-1",
		Dispenser:   testDispenser(""),
		Timestamp:   time.Now(),
		Status:      models.LogError,
		Medications: "not json",
	}

	repo.On("ListRecentLogs", mock.Anything, 5).Return([]*models.DispenserLog{entry}, nil)

	logs, err := svc.RecentLogs(context.Background(), 5)

	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.Empty(t, logs[0].Medications)
}
