package integration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ledgercrm/backend/internal/domain/integration"
	"github.com/ledgercrm/backend/internal/domain/transform"
)

const (
	defaultPageSize  = 100
	transientRetries = 3
)

// SyncEngine executes sync runs: an inbound pass pulling remote pages and
// an outbound pass pushing pending local changes, per the config's
// direction. Change detection is content-hash based; per-record failures
// are recorded without aborting the run, while connector-level failures
// (auth after refresh, rate limiting, persistent transport errors) abort
// it with a failed log.
type SyncEngine struct {
	integrations integration.IntegrationRepository
	configs      integration.SyncConfigRepository
	mappings     integration.FieldMappingRepository
	records      integration.SyncRecordRepository
	logs         integration.SyncLogRepository
	local        integration.LocalStore
	registry     integration.ConnectorRegistry
	transformer  *transform.Transformer
	tokens       *OAuthManager
	locks        *runLocks
	logger       *zap.Logger

	pageSize         int
	transientBackoff time.Duration
}

// NewSyncEngine creates a sync engine.
func NewSyncEngine(
	integrations integration.IntegrationRepository,
	configs integration.SyncConfigRepository,
	mappings integration.FieldMappingRepository,
	records integration.SyncRecordRepository,
	logs integration.SyncLogRepository,
	local integration.LocalStore,
	registry integration.ConnectorRegistry,
	tokens *OAuthManager,
	logger *zap.Logger,
) *SyncEngine {
	return &SyncEngine{
		integrations:     integrations,
		configs:          configs,
		mappings:         mappings,
		records:          records,
		logs:             logs,
		local:            local,
		registry:         registry,
		transformer:      transform.NewTransformer(),
		tokens:           tokens,
		locks:            newRunLocks(),
		logger:           logger,
		pageSize:         defaultPageSize,
		transientBackoff: 500 * time.Millisecond,
	}
}

// runState bundles everything one run needs so the pass methods stay
// readable.
type runState struct {
	integ     *integration.Integration
	cfg       *integration.SyncConfig
	connector integration.Connector
	mappings  []integration.FieldMapping
	log       *integration.SyncLog
	syncType  integration.SyncType

	idField       string
	modifiedField string
	strip         []string
}

// Run executes one sync run for a config. Concurrent runs against the
// same config are rejected with ErrSyncInProgress. The watermark advances
// on completed and partial runs only.
func (e *SyncEngine) Run(
	ctx context.Context,
	integ *integration.Integration,
	cfg *integration.SyncConfig,
	syncType integration.SyncType,
	trigger integration.TriggerType,
) (*integration.SyncLog, error) {
	if !cfg.Enabled {
		return nil, integration.ErrSyncConfigDisabled
	}
	if !integ.IsActive() {
		return nil, integration.ErrIntegrationNotActive
	}

	release, ok := e.locks.TryAcquire(cfg.ID)
	if !ok {
		return nil, integration.ErrSyncInProgress
	}
	defer release()

	// A running log from a crashed process also blocks; the scheduler
	// reaps stale ones.
	if running, err := e.logs.FindRunning(ctx, cfg.ID); err == nil && running != nil {
		return nil, integration.ErrSyncInProgress
	}

	connector, err := e.registry.Connector(integ)
	if err != nil {
		return nil, err
	}

	st := &runState{
		integ:     integ,
		cfg:       cfg,
		connector: connector,
		log:       integration.NewSyncLog(cfg.ID, cfg.EntityType, cfg.Direction, syncType, trigger),
		syncType:  syncType,
		idField:   "id",
	}
	if schema := connector.GetEntitySchema(cfg.RemoteEntity); schema != nil {
		if schema.IDField != "" {
			st.idField = schema.IDField
		}
		st.modifiedField = schema.ModifiedField
		st.strip = schema.MetadataFields
	}

	st.mappings, err = e.mappings.FindBySyncConfig(ctx, cfg.ID)
	if err != nil {
		return nil, err
	}

	if err := e.logs.Save(ctx, st.log); err != nil {
		return nil, err
	}

	e.logger.Info("sync run started",
		zap.String("sync_config_id", cfg.ID.String()),
		zap.String("provider", integ.Provider.String()),
		zap.String("entity_type", cfg.EntityType),
		zap.String("trigger", string(trigger)),
		zap.String("sync_type", string(syncType)))

	// Refresh an expiring token up front so the run does not start with
	// credentials about to lapse mid-pass.
	if err := e.tokens.EnsureFresh(ctx, integ); err != nil {
		return e.failRun(ctx, st, fmt.Errorf("token refresh: %w", err))
	}

	if cfg.Direction.Inbound() {
		if err := e.inboundPass(ctx, st); err != nil {
			return e.failRun(ctx, st, err)
		}
	}
	if cfg.Direction.Outbound() {
		if err := e.outboundPass(ctx, st); err != nil {
			return e.failRun(ctx, st, err)
		}
	}

	if err := st.log.Finalize(); err != nil {
		return nil, err
	}
	if err := e.logs.Save(ctx, st.log); err != nil {
		return nil, err
	}

	cfg.AdvanceWatermark(time.Now())
	if err := e.configs.Save(ctx, cfg); err != nil {
		return nil, err
	}

	e.logger.Info("sync run finished",
		zap.String("sync_config_id", cfg.ID.String()),
		zap.String("status", string(st.log.Status)),
		zap.Int("processed", st.log.Counts.Processed),
		zap.Int("created", st.log.Counts.Created),
		zap.Int("updated", st.log.Counts.Updated),
		zap.Int("failed", st.log.Counts.Failed),
		zap.Int("skipped", st.log.Counts.Skipped))

	return st.log, nil
}

// failRun closes the log as failed without advancing the watermark, so
// the next scheduled run retries the same window.
func (e *SyncEngine) failRun(ctx context.Context, st *runState, cause error) (*integration.SyncLog, error) {
	e.logger.Warn("sync run failed",
		zap.String("sync_config_id", st.cfg.ID.String()),
		zap.Error(cause))
	if errors.Is(cause, integration.ErrAuth) {
		st.integ.MarkError(cause.Error())
		if err := e.integrations.Save(ctx, st.integ); err != nil {
			e.logger.Error("mark integration error", zap.Error(err))
		}
	}
	if err := st.log.Fail(cause.Error()); err != nil {
		return nil, err
	}
	if err := e.logs.Save(ctx, st.log); err != nil {
		return nil, err
	}
	return st.log, nil
}

// ---------------------------------------------------------------------------
// Inbound pass
// ---------------------------------------------------------------------------

func (e *SyncEngine) inboundPass(ctx context.Context, st *runState) error {
	var since *time.Time
	if st.syncType == integration.SyncTypeIncremental {
		since = st.cfg.LastSyncAt
	}

	page := 1
	for {
		query := integration.ListQuery{
			Entity:        st.cfg.RemoteEntity,
			Page:          page,
			PageSize:      e.pageSize,
			ModifiedSince: since,
		}
		var listed *integration.ListPage
		err := e.callRemote(ctx, st.integ, func() error {
			var callErr error
			listed, callErr = st.connector.ListRecords(ctx, query)
			return callErr
		})
		if err != nil {
			return fmt.Errorf("list %s page %d: %w", st.cfg.RemoteEntity, page, err)
		}

		for _, remote := range listed.Records {
			if err := ctx.Err(); err != nil {
				return err
			}
			e.applyInbound(ctx, st, remote)
		}
		if !listed.HasMore {
			return nil
		}
		page++
	}
}

// applyInbound reconciles one remote record. Failures are recorded on
// the run log and the sync record; they never abort the pass.
func (e *SyncEngine) applyInbound(ctx context.Context, st *runState, remote integration.Record) {
	st.log.Counts.Processed++

	remoteID := stringValue(remote.GetPath(st.idField))
	if remoteID == "" {
		st.log.RecordError("", fmt.Sprintf("remote %s record missing %q field", st.cfg.RemoteEntity, st.idField))
		return
	}
	hash := ContentHash(remote, st.strip)

	rec, err := e.records.FindByRemoteID(ctx, st.cfg.ID, remoteID)
	if err != nil && !errors.Is(err, integration.ErrSyncRecordNotFound) {
		st.log.RecordError(remoteID, err.Error())
		return
	}

	switch {
	case rec == nil:
		e.createLocal(ctx, st, remote, remoteID, hash)

	case rec.RemoteHash == hash:
		// Unchanged since last seen; also covers the re-observation of
		// our own outbound writes.
		st.log.Counts.Skipped++

	case rec.Status == integration.RecordConflict:
		// Parked for manual review; excluded from automated sync.
		st.log.Counts.Skipped++

	case rec.Status == integration.RecordPendingOutbound:
		// Both sides changed since the last reconciliation.
		e.reconcileConflict(ctx, st, rec, remote, hash)

	default:
		e.updateLocal(ctx, st, rec, remote, hash)
	}
}

func (e *SyncEngine) createLocal(ctx context.Context, st *runState, remote integration.Record, remoteID, hash string) {
	local, err := e.transformer.ToLocal(remote, st.mappings)
	if err != nil {
		st.log.RecordError(remoteID, err.Error())
		return
	}
	created, err := e.local.Create(ctx, st.cfg.EntityType, local)
	if err != nil {
		st.log.RecordError(remoteID, err.Error())
		return
	}
	rec := integration.NewSyncRecord(st.cfg.ID, created.ID, remoteID, hash, integration.RecordSynced)
	rec.MarkSynced(hash, e.remoteModifiedAt(st, remote), time.Now())
	if err := e.records.Save(ctx, rec); err != nil {
		st.log.RecordError(remoteID, err.Error())
		return
	}
	st.log.Counts.Created++
}

func (e *SyncEngine) updateLocal(ctx context.Context, st *runState, rec *integration.SyncRecord, remote integration.Record, hash string) {
	local, err := e.transformer.ToLocal(remote, st.mappings)
	if err != nil {
		e.recordFailure(ctx, st, rec, err)
		return
	}
	if _, err := e.local.Update(ctx, st.cfg.EntityType, rec.LocalID, local); err != nil {
		e.recordFailure(ctx, st, rec, err)
		return
	}
	rec.MarkSynced(hash, e.remoteModifiedAt(st, remote), time.Now())
	if err := e.records.Save(ctx, rec); err != nil {
		st.log.RecordError(rec.RemoteID, err.Error())
		return
	}
	st.log.Counts.Updated++
}

// ---------------------------------------------------------------------------
// Outbound pass
// ---------------------------------------------------------------------------

func (e *SyncEngine) outboundPass(ctx context.Context, st *runState) error {
	pending, err := e.records.FindByStatus(ctx, st.cfg.ID, integration.RecordPendingOutbound)
	if err != nil {
		return err
	}

	for i := range pending {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.pushOutbound(ctx, st, &pending[i]); err != nil {
			return err
		}
	}
	return nil
}

// pushOutbound pushes one pending local change. A returned error aborts
// the pass (connector-level failure); per-record problems are recorded
// and swallowed.
func (e *SyncEngine) pushOutbound(ctx context.Context, st *runState, rec *integration.SyncRecord) error {
	st.log.Counts.Processed++

	lr, err := e.local.Get(ctx, st.cfg.EntityType, rec.LocalID)
	if err != nil {
		e.recordFailure(ctx, st, rec, err)
		return nil
	}
	remote, err := e.transformer.ToRemote(lr.Data, st.mappings)
	if err != nil {
		e.recordFailure(ctx, st, rec, err)
		return nil
	}

	var pushed integration.Record
	creating := rec.RemoteID == ""
	err = e.callRemote(ctx, st.integ, func() error {
		var callErr error
		if creating {
			pushed, callErr = st.connector.CreateRecord(ctx, st.cfg.RemoteEntity, remote)
		} else {
			pushed, callErr = st.connector.UpdateRecord(ctx, st.cfg.RemoteEntity, rec.RemoteID, remote)
		}
		return callErr
	})
	if err != nil && !creating && errors.Is(err, integration.ErrNotFound) {
		// The remote side deleted the record out from under us; recreate
		// rather than strand the local change.
		creating = true
		err = e.callRemote(ctx, st.integ, func() error {
			var callErr error
			pushed, callErr = st.connector.CreateRecord(ctx, st.cfg.RemoteEntity, remote)
			return callErr
		})
	}
	if err != nil {
		if errors.Is(err, integration.ErrValidation) || errors.Is(err, integration.ErrNotFound) {
			e.recordFailure(ctx, st, rec, err)
			return nil
		}
		return fmt.Errorf("push %s %s: %w", st.cfg.RemoteEntity, rec.LocalID, err)
	}

	if pushed == nil {
		pushed = remote
	}
	if creating {
		if id := stringValue(pushed.GetPath(st.idField)); id != "" {
			rec.RemoteID = id
		}
	}
	rec.MarkSynced(ContentHash(pushed, st.strip), e.remoteModifiedAt(st, pushed), time.Now())
	if err := e.records.Save(ctx, rec); err != nil {
		st.log.RecordError(rec.RemoteID, err.Error())
		return nil
	}
	if creating {
		st.log.Counts.Created++
	} else {
		st.log.Counts.Updated++
	}
	return nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// callRemote wraps a connector call with transient retry and a single
// refresh-and-retry on auth failure. An auth failure that survives the
// refresh propagates so the run aborts and the integration is flagged.
func (e *SyncEngine) callRemote(ctx context.Context, integ *integration.Integration, fn func() error) error {
	var err error
	for attempt := 0; attempt < transientRetries; attempt++ {
		err = fn()
		if err == nil || !errors.Is(err, integration.ErrTransient) {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(e.transientBackoff * time.Duration(attempt+1)):
		}
	}
	if errors.Is(err, integration.ErrAuth) {
		if refreshErr := e.tokens.Refresh(ctx, integ); refreshErr != nil {
			return err
		}
		err = fn()
	}
	return err
}

// recordFailure logs a per-record failure on both the run log and the
// sync record.
func (e *SyncEngine) recordFailure(ctx context.Context, st *runState, rec *integration.SyncRecord, cause error) {
	st.log.RecordError(rec.RemoteID, cause.Error())
	rec.MarkError(cause.Error(), time.Now())
	if err := e.records.Save(ctx, rec); err != nil {
		e.logger.Error("save sync record", zap.Error(err))
	}
}

// remoteModifiedAt extracts the provider's last-modified timestamp, nil
// when absent or unparseable.
func (e *SyncEngine) remoteModifiedAt(st *runState, remote integration.Record) *time.Time {
	if st.modifiedField == "" {
		return nil
	}
	return parseTimestamp(remote.GetPath(st.modifiedField))
}

func parseTimestamp(v any) *time.Time {
	switch t := v.(type) {
	case time.Time:
		return &t
	case *time.Time:
		return t
	case string:
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
			if parsed, err := time.Parse(layout, t); err == nil {
				return &parsed
			}
		}
		return nil
	case float64:
		parsed := time.Unix(int64(t), 0).UTC()
		return &parsed
	case int64:
		parsed := time.Unix(t, 0).UTC()
		return &parsed
	default:
		return nil
	}
}

func stringValue(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	default:
		return fmt.Sprint(s)
	}
}
