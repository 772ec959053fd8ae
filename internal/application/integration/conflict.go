package integration

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ledgercrm/backend/internal/domain/integration"
)

// reconcileConflict handles a record changed on both sides since the last
// reconciliation: the inbound pass saw new remote content while the sync
// record still carries a pending local change. Resolution follows the
// config's strategy; the same inputs always resolve the same way.
func (e *SyncEngine) reconcileConflict(
	ctx context.Context,
	st *runState,
	rec *integration.SyncRecord,
	remote integration.Record,
	remoteHash string,
) {
	remoteAt := e.remoteModifiedAt(st, remote)

	switch st.cfg.ConflictResolution {
	case integration.ConflictManualReview:
		rec.MarkConflict(remoteHash, time.Now())
		if err := e.records.Save(ctx, rec); err != nil {
			st.log.RecordError(rec.RemoteID, err.Error())
			return
		}
		e.logger.Info("record parked for manual review",
			zap.String("sync_config_id", st.cfg.ID.String()),
			zap.String("remote_id", rec.RemoteID))
		st.log.Counts.Skipped++

	case integration.ConflictLastWriteWins:
		if remoteAt == nil || rec.LocalUpdatedAt == nil || remoteAt.Equal(*rec.LocalUpdatedAt) {
			// No usable timestamps to compare; fall back to the
			// configured priority so the outcome stays deterministic.
			e.applyPriority(ctx, st, rec, remote, remoteHash)
			return
		}
		if remoteAt.After(*rec.LocalUpdatedAt) {
			e.applyRemoteWins(ctx, st, rec, remote, remoteHash)
		} else {
			e.applyLocalWins(st, rec)
		}

	case integration.ConflictSourcePriority:
		e.applyPriority(ctx, st, rec, remote, remoteHash)

	case integration.ConflictMerge:
		e.applyMerge(ctx, st, rec, remote)

	default:
		st.log.RecordError(rec.RemoteID, integration.ErrInvalidConflictMode.Error())
	}
}

func (e *SyncEngine) applyPriority(ctx context.Context, st *runState, rec *integration.SyncRecord, remote integration.Record, remoteHash string) {
	if st.cfg.PrioritySource == integration.PriorityLocal {
		e.applyLocalWins(st, rec)
		return
	}
	e.applyRemoteWins(ctx, st, rec, remote, remoteHash)
}

// applyRemoteWins overwrites the local side with the remote payload and
// discards the pending local change.
func (e *SyncEngine) applyRemoteWins(ctx context.Context, st *runState, rec *integration.SyncRecord, remote integration.Record, remoteHash string) {
	local, err := e.transformer.ToLocal(remote, st.mappings)
	if err != nil {
		e.recordFailure(ctx, st, rec, err)
		return
	}
	if _, err := e.local.Update(ctx, st.cfg.EntityType, rec.LocalID, local); err != nil {
		e.recordFailure(ctx, st, rec, err)
		return
	}
	rec.MarkSynced(remoteHash, e.remoteModifiedAt(st, remote), time.Now())
	if err := e.records.Save(ctx, rec); err != nil {
		st.log.RecordError(rec.RemoteID, err.Error())
		return
	}
	st.log.Counts.Updated++
}

// applyLocalWins drops the remote change on the floor: the record stays
// pending outbound and this run's outbound pass overwrites the remote
// side. Nothing is counted here; the push accounts for it.
func (e *SyncEngine) applyLocalWins(st *runState, rec *integration.SyncRecord) {
	e.logger.Debug("conflict resolved for local side",
		zap.String("sync_config_id", st.cfg.ID.String()),
		zap.String("remote_id", rec.RemoteID))
}

// applyMerge unions the two sides shallowly, the priority source winning
// overlapping fields, writes the result locally and requeues it for
// push. Best-effort; not a field-level three-way merge.
func (e *SyncEngine) applyMerge(ctx context.Context, st *runState, rec *integration.SyncRecord, remote integration.Record) {
	lr, err := e.local.Get(ctx, st.cfg.EntityType, rec.LocalID)
	if err != nil {
		e.recordFailure(ctx, st, rec, err)
		return
	}
	remoteAsLocal, err := e.transformer.ToLocal(remote, st.mappings)
	if err != nil {
		e.recordFailure(ctx, st, rec, err)
		return
	}

	var merged integration.Record
	if st.cfg.PrioritySource == integration.PriorityLocal {
		merged = mergeRecords(remoteAsLocal, lr.Data)
	} else {
		merged = mergeRecords(lr.Data, remoteAsLocal)
	}

	if _, err := e.local.Update(ctx, st.cfg.EntityType, rec.LocalID, merged); err != nil {
		e.recordFailure(ctx, st, rec, err)
		return
	}
	rec.MarkPendingOutbound(time.Now())
	if err := e.records.Save(ctx, rec); err != nil {
		st.log.RecordError(rec.RemoteID, err.Error())
		return
	}
	st.log.Counts.Updated++
}

// mergeRecords overlays winner onto base at the top level. Null winner
// values do not clobber populated base values.
func mergeRecords(base, winner integration.Record) integration.Record {
	out := base.Clone()
	for key, value := range winner {
		if value == nil {
			continue
		}
		out[key] = value
	}
	return out
}
