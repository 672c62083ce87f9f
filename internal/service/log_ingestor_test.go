package service

import (
	"testing"
	"time"

	"example.com/medipi/hub/internal/models"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestIngestorPersistsLogAndBumpsLastSeen(t *testing.T) {
	repo := new(MockRepository)

	done := make(chan struct{})
	repo.On("FindDispenserBySerial", mock.Anything, "MP-1001").Return(testDispenser(""), nil)
	repo.On("CreateDispenserLog", mock.Anything, mock.MatchedBy(func(log *models.DispenserLog) bool {
		return log.DispenserID == "disp-1" && log.Status == models.LogCompleted && log.Synced
	})).Return(nil)
	repo.On("UpdateDispenser", mock.Anything, mock.MatchedBy(func(d *models.Dispenser) bool {
		return d.LastSeen != nil
	})).Run(func(args mock.Arguments) {
		close(done)
	}).Return(nil)

	ingestor := NewLogIngestor(repo, testLogger(), 1)
	defer ingestor.Stop()

	err := ingestor.Enqueue(&DispenseLogEntry{
		SerialNumber: "MP-1001",
		Status:       models.LogCompleted,
		Timestamp:    time.Now(),
	})
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("log was not persisted in time")
	}

	repo.AssertExpectations(t)
}

func TestIngestorRejectsInvalidEntries(t *testing.T) {
	ingestor := NewLogIngestor(new(MockRepository), testLogger(), 1)
	defer ingestor.Stop()

	require.Error(t, ingestor.Enqueue(nil))
	require.Error(t, ingestor.Enqueue(&DispenseLogEntry{Status: models.LogCompleted}))
	require.Error(t, ingestor.Enqueue(&DispenseLogEntry{SerialNumber: "MP-1001", Status: "BOGUS"}))
}

func TestIngestorEnqueueAfterStopReturnsError(t *testing.T) {
	ingestor := NewLogIngestor(new(MockRepository), testLogger(), 1)
	ingestor.Stop()

	// A device log arriving during shutdown must be refused, not panic
	err := ingestor.Enqueue(&DispenseLogEntry{
		SerialNumber: "MP-1001",
		Status:       models.LogCompleted,
		Timestamp:    time.Now(),
	})
	require.Error(t, err)

	// Stop is idempotent
	ingestor.Stop()
}

func TestIngestorQueueStats(t *testing.T) {
	ingestor := NewLogIngestor(new(MockRepository), testLogger(), 2)
	defer ingestor.Stop()

	stats := ingestor.QueueStats()
	require.Equal(t, 2, stats["worker_count"])
	require.Equal(t, logQueueSize, stats["queue_capacity"])
}
