package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"example.com/medipi/hub/internal/models"
	"example.com/medipi/hub/internal/repository"

	"github.com/sirupsen/logrus"
)

const logQueueSize = 1000

// DispenseLogEntry is a dispense event reported by a device, addressed by
// serial number.
type DispenseLogEntry struct {
	SerialNumber string           `json:"serialNumber"`
	ScheduleID   *string          `json:"scheduleId"`
	Status       models.LogStatus `json:"status"`
	Timestamp    time.Time        `json:"timestamp"`
	Medications  []MedicationDose `json:"medications"`
}

// LogIngestor persists dispense events off the hot path. Events are queued
// into a bounded channel and drained by a fixed pool of workers so a burst
// of device traffic cannot stall the bridge.
type LogIngestor struct {
	repo        repository.Repository
	log         *logrus.Logger
	queue       chan *DispenseLogEntry
	workerCount int
	wg          sync.WaitGroup
	stopOnce    sync.Once

	// mu guards closed so the queue is never closed while a producer is
	// mid-send; device traffic can still arrive during shutdown.
	mu     sync.RWMutex
	closed bool
}

// NewLogIngestor creates an ingestor and starts its workers
func NewLogIngestor(repo repository.Repository, log *logrus.Logger, workerCount int) *LogIngestor {
	if workerCount < 1 {
		workerCount = 1
	}

	ingestor := &LogIngestor{
		repo:        repo,
		log:         log,
		queue:       make(chan *DispenseLogEntry, logQueueSize),
		workerCount: workerCount,
	}

	for i := 0; i < workerCount; i++ {
		ingestor.wg.Add(1)
		go ingestor.worker(i)
	}

	return ingestor
}

// Enqueue adds an entry to the ingestion queue. It fails fast when the
// queue is full or the ingestor has stopped rather than blocking the caller.
func (in *LogIngestor) Enqueue(entry *DispenseLogEntry) error {
	if entry == nil {
		return errors.New("entry is nil")
	}
	if entry.SerialNumber == "" {
		return errors.New("serial number is required")
	}
	if !validLogStatus(entry.Status) {
		return fmt.Errorf("invalid log status: %s", entry.Status)
	}

	in.mu.RLock()
	defer in.mu.RUnlock()

	if in.closed {
		return errors.New("ingestor is shutting down")
	}

	select {
	case in.queue <- entry:
		return nil
	default:
		return errors.New("log queue is full")
	}
}

// Stop drains the queue and waits for the workers to finish. Entries
// enqueued before Stop are still persisted.
func (in *LogIngestor) Stop() {
	in.stopOnce.Do(func() {
		in.mu.Lock()
		in.closed = true
		close(in.queue)
		in.mu.Unlock()

		in.wg.Wait()
	})
}

// QueueStats reports the current queue state
func (in *LogIngestor) QueueStats() map[string]interface{} {
	return map[string]interface{}{
		"queue_length":   len(in.queue),
		"queue_capacity": cap(in.queue),
		"worker_count":   in.workerCount,
	}
}

func (in *LogIngestor) worker(id int) {
	defer in.wg.Done()

	log := in.log.WithField("worker_id", id)
	log.Debug("Log ingestor worker started")

	for entry := range in.queue {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := in.persist(ctx, entry); err != nil {
			log.WithError(err).WithField("serial_number", entry.SerialNumber).
				Error("Failed to persist dispense log")
		}
		cancel()
	}

	log.Debug("Log ingestor worker stopped")
}

func (in *LogIngestor) persist(ctx context.Context, entry *DispenseLogEntry) error {
	dispenser, err := in.repo.FindDispenserBySerial(ctx, entry.SerialNumber)
	if err != nil {
		return fmt.Errorf("unknown dispenser %s: %w", entry.SerialNumber, err)
	}

	timestamp := entry.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	medications := "[]"
	if len(entry.Medications) > 0 {
		data, err := json.Marshal(entry.Medications)
		if err != nil {
			return fmt.Errorf("failed to encode medications: %w", err)
		}
		medications = string(data)
	}

	record := &models.DispenserLog{
		DispenserID: dispenser.ID,
		ScheduleID:  entry.ScheduleID,
		Timestamp:   timestamp,
		Status:      entry.Status,
		Medications: medications,
		Synced:      true,
	}

	// The log insert and the last-seen bump commit together; a dispenser
	// that just reported a dose is by definition reachable.
	return in.repo.WithTransaction(ctx, func(ctx context.Context, txRepo repository.Repository) error {
		if err := txRepo.CreateDispenserLog(ctx, record); err != nil {
			return err
		}

		dispenser.LastSeen = &timestamp
		return txRepo.UpdateDispenser(ctx, dispenser)
	})
}

func validLogStatus(status models.LogStatus) bool {
	switch status {
	case models.LogCompleted, models.LogMissed, models.LogLate, models.LogError:
		return true
	}
	return false
}
