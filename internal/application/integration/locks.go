package integration

import (
	"sync"

	"github.com/google/uuid"
)

// runLocks serializes sync runs per sync config. Acquisition is
// non-blocking: a second run against the same config is rejected, not
// queued, so scheduler ticks and manual triggers cannot pile up.
type runLocks struct {
	mu   sync.Mutex
	held map[uuid.UUID]struct{}
}

func newRunLocks() *runLocks {
	return &runLocks{held: make(map[uuid.UUID]struct{})}
}

// TryAcquire takes the lock for a config. Returns false when a run is
// already in flight; on success the returned release func must be called
// exactly once.
func (l *runLocks) TryAcquire(id uuid.UUID) (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[id]; ok {
		return nil, false
	}
	l.held[id] = struct{}{}
	return func() {
		l.mu.Lock()
		delete(l.held, id)
		l.mu.Unlock()
	}, true
}
