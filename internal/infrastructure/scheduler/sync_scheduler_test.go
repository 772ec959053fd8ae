package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ledgercrm/backend/internal/domain/integration"
)

// ---------------------------------------------------------------------------
// Test Helpers
// ---------------------------------------------------------------------------

func newTestLogger() *zap.Logger {
	logger, _ := zap.NewDevelopment()
	return logger
}

func newTestConfig(t *testing.T) integration.SyncConfig {
	t.Helper()
	cfg, err := integration.NewSyncConfig(
		uuid.New(), "customers", "customers",
		integration.DirectionBidirectional, 300,
		integration.ConflictLastWriteWins, integration.PriorityLocal,
	)
	require.NoError(t, err)
	return *cfg
}

// fakeRunner records scheduled runs and serves a mutable due list
type fakeRunner struct {
	mu       sync.Mutex
	due      []integration.SyncConfig
	runErr   error
	runCount atomic.Int64
	started  chan uuid.UUID
	release  chan struct{}
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		started: make(chan uuid.UUID, 100),
	}
}

func (f *fakeRunner) setDue(cfgs ...integration.SyncConfig) {
	f.mu.Lock()
	f.due = cfgs
	f.mu.Unlock()
}

func (f *fakeRunner) DueConfigs(ctx context.Context, now time.Time) ([]integration.SyncConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]integration.SyncConfig(nil), f.due...), nil
}

func (f *fakeRunner) RunScheduled(ctx context.Context, cfg *integration.SyncConfig) (*integration.SyncLog, error) {
	f.runCount.Add(1)
	select {
	case f.started <- cfg.ID:
	default:
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	err := f.runErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	log := integration.NewSyncLog(cfg.ID, cfg.EntityType, cfg.Direction, integration.SyncTypeIncremental, integration.TriggerScheduled)
	log.Finalize()
	return log, nil
}

func startScheduler(t *testing.T, cfg SyncSchedulerConfig, runner SyncRunner) *SyncScheduler {
	t.Helper()
	s, err := NewSyncScheduler(cfg, runner, newTestLogger())
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = s.Stop(stopCtx)
	})
	return s
}

// ---------------------------------------------------------------------------
// Config Tests
// ---------------------------------------------------------------------------

func TestSyncSchedulerConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*SyncSchedulerConfig)
		wantErr bool
	}{
		{"defaults are valid", func(c *SyncSchedulerConfig) {}, false},
		{"zero poll interval", func(c *SyncSchedulerConfig) { c.PollInterval = 0 }, true},
		{"zero workers", func(c *SyncSchedulerConfig) { c.Workers = 0 }, true},
		{"negative workers", func(c *SyncSchedulerConfig) { c.Workers = -1 }, true},
		{"zero job timeout", func(c *SyncSchedulerConfig) { c.JobTimeout = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultSyncSchedulerConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewSyncScheduler_RejectsInvalidConfig(t *testing.T) {
	cfg := DefaultSyncSchedulerConfig()
	cfg.Workers = 0

	_, err := NewSyncScheduler(cfg, newFakeRunner(), newTestLogger())
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

// ---------------------------------------------------------------------------
// Scheduler Tests
// ---------------------------------------------------------------------------

func TestSyncScheduler_SubmitBeforeStart(t *testing.T) {
	s, err := NewSyncScheduler(DefaultSyncSchedulerConfig(), newFakeRunner(), newTestLogger())
	require.NoError(t, err)

	err = s.Submit(newTestConfig(t))
	assert.ErrorIs(t, err, ErrSchedulerNotRunning)
}

func TestSyncScheduler_RunsSubmittedConfig(t *testing.T) {
	runner := newFakeRunner()
	s := startScheduler(t, DefaultSyncSchedulerConfig(), runner)

	cfg := newTestConfig(t)
	require.NoError(t, s.Submit(cfg))

	select {
	case id := <-runner.started:
		assert.Equal(t, cfg.ID, id)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduled run never started")
	}
}

func TestSyncScheduler_PollsDueConfigs(t *testing.T) {
	runner := newFakeRunner()
	runner.setDue(newTestConfig(t), newTestConfig(t))

	cfg := DefaultSyncSchedulerConfig()
	cfg.PollInterval = 10 * time.Millisecond
	startScheduler(t, cfg, runner)

	require.Eventually(t, func() bool {
		return runner.runCount.Load() >= 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSyncScheduler_DedupesInFlightConfig(t *testing.T) {
	runner := newFakeRunner()
	runner.release = make(chan struct{})

	cfg := DefaultSyncSchedulerConfig()
	cfg.PollInterval = 10 * time.Millisecond
	syncCfg := newTestConfig(t)
	runner.setDue(syncCfg)
	s := startScheduler(t, cfg, runner)

	// Wait for the first run to start, then let several polls pass while
	// it is still blocked
	select {
	case <-runner.started:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduled run never started")
	}
	time.Sleep(100 * time.Millisecond)

	assert.Equal(t, int64(1), runner.runCount.Load(), "in-flight config must not run twice")

	runner.setDue()
	close(runner.release)
	_ = s
}

func TestSyncScheduler_IgnoresRunInProgress(t *testing.T) {
	runner := newFakeRunner()
	runner.runErr = integration.ErrSyncInProgress
	runner.setDue(newTestConfig(t))

	cfg := DefaultSyncSchedulerConfig()
	cfg.PollInterval = 10 * time.Millisecond
	startScheduler(t, cfg, runner)

	require.Eventually(t, func() bool {
		return runner.runCount.Load() >= 1
	}, 2*time.Second, 10*time.Millisecond)
	// No panic, no crash loop; the error is logged at debug and dropped
}

func TestSyncScheduler_RunnerFailureDoesNotStopScheduler(t *testing.T) {
	runner := newFakeRunner()
	runner.runErr = errors.New("provider exploded")
	runner.setDue(newTestConfig(t))

	cfg := DefaultSyncSchedulerConfig()
	cfg.PollInterval = 10 * time.Millisecond
	s := startScheduler(t, cfg, runner)

	require.Eventually(t, func() bool {
		return runner.runCount.Load() >= 2
	}, 2*time.Second, 10*time.Millisecond)

	// The scheduler still accepts work after failures
	runner.mu.Lock()
	runner.runErr = nil
	runner.mu.Unlock()
	assert.NoError(t, s.Submit(newTestConfig(t)))
}

func TestSyncScheduler_RecordsJobHistory(t *testing.T) {
	runner := newFakeRunner()
	s := startScheduler(t, DefaultSyncSchedulerConfig(), runner)

	cfg := newTestConfig(t)
	require.NoError(t, s.Submit(cfg))

	require.Eventually(t, func() bool {
		return len(s.GetJobHistory(0)) == 1
	}, 2*time.Second, 10*time.Millisecond)

	records := s.GetJobHistory(10)
	require.Len(t, records, 1)
	assert.Equal(t, cfg.ID, records[0].SyncConfigID)
	assert.Equal(t, cfg.IntegrationID, records[0].IntegrationID)
	assert.Equal(t, "customers", records[0].EntityType)
	assert.Equal(t, string(integration.RunCompleted), records[0].Status)
	assert.Empty(t, records[0].Error)
	assert.False(t, records[0].FinishedAt.Before(records[0].StartedAt))
}

func TestSyncScheduler_HistoryRecordsFailure(t *testing.T) {
	runner := newFakeRunner()
	runner.runErr = errors.New("provider exploded")
	s := startScheduler(t, DefaultSyncSchedulerConfig(), runner)

	require.NoError(t, s.Submit(newTestConfig(t)))

	require.Eventually(t, func() bool {
		return len(s.GetJobHistory(0)) == 1
	}, 2*time.Second, 10*time.Millisecond)

	records := s.GetJobHistory(1)
	require.Len(t, records, 1)
	assert.Equal(t, "failed", records[0].Status)
	assert.Contains(t, records[0].Error, "provider exploded")
}

func TestSyncScheduler_HistoryNewestFirstAndLimited(t *testing.T) {
	runner := newFakeRunner()
	s := startScheduler(t, DefaultSyncSchedulerConfig(), runner)
	s.maxHistory = 3

	var last uuid.UUID
	for i := 0; i < 5; i++ {
		cfg := newTestConfig(t)
		last = cfg.ID
		require.NoError(t, s.Submit(cfg))
		require.Eventually(t, func() bool {
			return len(s.GetJobHistory(0)) == min(i+1, 3)
		}, 2*time.Second, 5*time.Millisecond)
	}

	records := s.GetJobHistory(0)
	require.Len(t, records, 3)
	assert.Equal(t, last, records[0].SyncConfigID)

	assert.Len(t, s.GetJobHistory(2), 2)
}

func TestSyncScheduler_StartIsIdempotent(t *testing.T) {
	runner := newFakeRunner()
	s := startScheduler(t, DefaultSyncSchedulerConfig(), runner)

	assert.NoError(t, s.Start(context.Background()))
}

func TestSyncScheduler_StopWithoutStart(t *testing.T) {
	s, err := NewSyncScheduler(DefaultSyncSchedulerConfig(), newFakeRunner(), newTestLogger())
	require.NoError(t, err)

	assert.NoError(t, s.Stop(context.Background()))
}
