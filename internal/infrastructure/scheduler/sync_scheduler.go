package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ledgercrm/backend/internal/domain/integration"
)

// SyncRunner is the application surface the scheduler drives. It decides
// which configs are due and executes one scheduled run at a time per
// config.
type SyncRunner interface {
	DueConfigs(ctx context.Context, now time.Time) ([]integration.SyncConfig, error)
	RunScheduled(ctx context.Context, cfg *integration.SyncConfig) (*integration.SyncLog, error)
}

// ---------------------------------------------------------------------------
// SyncSchedulerConfig
// ---------------------------------------------------------------------------

// SyncSchedulerConfig holds configuration for the sync scheduler
type SyncSchedulerConfig struct {
	// Enabled indicates if the scheduler is enabled
	Enabled bool
	// PollInterval is how often due configs are collected
	PollInterval time.Duration
	// Workers is the number of concurrent sync runs
	Workers int
	// JobTimeout is the maximum time a single run may take
	JobTimeout time.Duration
}

// DefaultSyncSchedulerConfig returns default configuration
func DefaultSyncSchedulerConfig() SyncSchedulerConfig {
	return SyncSchedulerConfig{
		Enabled:      true,
		PollInterval: 30 * time.Second,
		Workers:      4,
		JobTimeout:   15 * time.Minute,
	}
}

// Validate validates the configuration
func (c *SyncSchedulerConfig) Validate() error {
	if c.PollInterval <= 0 {
		return ErrInvalidConfig
	}
	if c.Workers <= 0 {
		return ErrInvalidConfig
	}
	if c.JobTimeout <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// ---------------------------------------------------------------------------
// JobRecord
// ---------------------------------------------------------------------------

// JobRecord is the in-memory trace of one scheduled run, kept for
// monitoring. It survives only for the life of the process.
type JobRecord struct {
	SyncConfigID  uuid.UUID `json:"sync_config_id"`
	IntegrationID uuid.UUID `json:"integration_id"`
	EntityType    string    `json:"entity_type"`
	Status        string    `json:"status"`
	Processed     int       `json:"processed"`
	Created       int       `json:"created"`
	Updated       int       `json:"updated"`
	Failed        int       `json:"failed"`
	Skipped       int       `json:"skipped"`
	Error         string    `json:"error,omitempty"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
}

// ---------------------------------------------------------------------------
// SyncScheduler
// ---------------------------------------------------------------------------

// SyncScheduler polls for due sync configs and fans them out to a worker
// pool. A config already queued or running is not submitted again; the
// engine's own run lock is the backstop across processes.
type SyncScheduler struct {
	config SyncSchedulerConfig
	runner SyncRunner
	logger *zap.Logger

	jobs      chan integration.SyncConfig
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool

	inFlightMu sync.Mutex
	inFlight   map[uuid.UUID]struct{}

	// Job history for monitoring (in-memory, limited size)
	historyMu  sync.RWMutex
	history    []JobRecord
	maxHistory int
}

// NewSyncScheduler creates a new sync scheduler
func NewSyncScheduler(config SyncSchedulerConfig, runner SyncRunner, logger *zap.Logger) (*SyncScheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &SyncScheduler{
		config:     config,
		runner:     runner,
		logger:     logger,
		jobs:       make(chan integration.SyncConfig, 100),
		inFlight:   make(map[uuid.UUID]struct{}),
		history:    make([]JobRecord, 0, 100),
		maxHistory: 100,
	}, nil
}

// Start starts the poll loop and the worker pool
func (s *SyncScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for i := 0; i < s.config.Workers; i++ {
		s.wg.Add(1)
		go s.worker(ctx, i)
	}

	s.wg.Add(1)
	go s.pollLoop(ctx)

	s.logger.Info("Sync scheduler started",
		zap.Int("workers", s.config.Workers),
		zap.Duration("poll_interval", s.config.PollInterval),
		zap.Duration("job_timeout", s.config.JobTimeout),
	)

	return nil
}

// Stop gracefully stops the scheduler
func (s *SyncScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Sync scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Sync scheduler stop timed out")
		return ctx.Err()
	}
}

// Submit enqueues a config for an immediate run, skipping configs that
// are already queued or running in this process
func (s *SyncScheduler) Submit(cfg integration.SyncConfig) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.mu.Unlock()

	s.inFlightMu.Lock()
	if _, busy := s.inFlight[cfg.ID]; busy {
		s.inFlightMu.Unlock()
		return nil
	}
	s.inFlight[cfg.ID] = struct{}{}
	s.inFlightMu.Unlock()

	select {
	case s.jobs <- cfg:
		s.logger.Debug("Sync job submitted",
			zap.String("sync_config_id", cfg.ID.String()),
			zap.String("entity_type", cfg.EntityType),
		)
		return nil
	default:
		s.clearInFlight(cfg.ID)
		return ErrJobQueueFull
	}
}

// pollLoop collects due configs every PollInterval
func (s *SyncScheduler) pollLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.dispatchDue(ctx)
		}
	}
}

// dispatchDue submits every due config to the worker pool
func (s *SyncScheduler) dispatchDue(ctx context.Context) {
	due, err := s.runner.DueConfigs(ctx, time.Now())
	if err != nil {
		s.logger.Error("Failed to collect due sync configs", zap.Error(err))
		return
	}

	for _, cfg := range due {
		if err := s.Submit(cfg); err != nil {
			if errors.Is(err, ErrJobQueueFull) {
				s.logger.Warn("Sync job queue full, deferring config",
					zap.String("sync_config_id", cfg.ID.String()),
				)
				return
			}
			s.logger.Error("Failed to submit sync job",
				zap.String("sync_config_id", cfg.ID.String()),
				zap.Error(err),
			)
		}
	}
}

// worker processes jobs from the queue
func (s *SyncScheduler) worker(ctx context.Context, workerID int) {
	defer s.wg.Done()

	s.logger.Debug("Sync worker started", zap.Int("worker_id", workerID))

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("Sync worker stopping", zap.Int("worker_id", workerID))
			return
		case cfg, ok := <-s.jobs:
			if !ok {
				return
			}
			s.processJob(ctx, cfg, workerID)
		}
	}
}

// processJob executes a single scheduled run
func (s *SyncScheduler) processJob(ctx context.Context, cfg integration.SyncConfig, workerID int) {
	defer s.clearInFlight(cfg.ID)

	s.logger.Info("Processing scheduled sync",
		zap.Int("worker_id", workerID),
		zap.String("sync_config_id", cfg.ID.String()),
		zap.String("integration_id", cfg.IntegrationID.String()),
		zap.String("entity_type", cfg.EntityType),
	)

	jobCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()

	record := JobRecord{
		SyncConfigID:  cfg.ID,
		IntegrationID: cfg.IntegrationID,
		EntityType:    cfg.EntityType,
		StartedAt:     time.Now(),
	}

	log, err := s.runner.RunScheduled(jobCtx, &cfg)
	if err != nil {
		// A concurrent run holding the lock is expected, not a failure
		if errors.Is(err, integration.ErrSyncInProgress) {
			s.logger.Debug("Sync already in progress, skipping",
				zap.String("sync_config_id", cfg.ID.String()),
			)
			return
		}
		s.logger.Error("Scheduled sync failed",
			zap.Int("worker_id", workerID),
			zap.String("sync_config_id", cfg.ID.String()),
			zap.String("entity_type", cfg.EntityType),
			zap.Error(err),
		)

		record.Status = "failed"
		record.Error = err.Error()
		record.FinishedAt = time.Now()
		s.addToHistory(record)
		return
	}

	record.Status = string(log.Status)
	record.Processed = log.Counts.Processed
	record.Created = log.Counts.Created
	record.Updated = log.Counts.Updated
	record.Failed = log.Counts.Failed
	record.Skipped = log.Counts.Skipped
	record.FinishedAt = time.Now()
	s.addToHistory(record)

	s.logger.Info("Scheduled sync completed",
		zap.Int("worker_id", workerID),
		zap.String("sync_config_id", cfg.ID.String()),
		zap.String("entity_type", cfg.EntityType),
		zap.String("status", string(log.Status)),
		zap.Int("processed", log.Counts.Processed),
		zap.Int("created", log.Counts.Created),
		zap.Int("updated", log.Counts.Updated),
		zap.Int("failed", log.Counts.Failed),
		zap.Int("skipped", log.Counts.Skipped),
	)
}

// addToHistory prepends a completed job, trimming to the size limit
func (s *SyncScheduler) addToHistory(record JobRecord) {
	s.historyMu.Lock()
	defer s.historyMu.Unlock()

	s.history = append([]JobRecord{record}, s.history...)
	if len(s.history) > s.maxHistory {
		s.history = s.history[:s.maxHistory]
	}
}

// GetJobHistory returns the most recent job records, newest first
func (s *SyncScheduler) GetJobHistory(limit int) []JobRecord {
	s.historyMu.RLock()
	defer s.historyMu.RUnlock()

	if limit <= 0 || limit > len(s.history) {
		limit = len(s.history)
	}

	result := make([]JobRecord, limit)
	copy(result, s.history[:limit])
	return result
}

func (s *SyncScheduler) clearInFlight(id uuid.UUID) {
	s.inFlightMu.Lock()
	delete(s.inFlight, id)
	s.inFlightMu.Unlock()
}
