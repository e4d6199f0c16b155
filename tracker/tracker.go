// Package tracker guards estimators for use from several goroutines and keeps a bounded
// board of them, one per task.
package tracker

import (
	"sync"

	"eta_estimator/estimator"
)

// Tracker is an estimator behind a mutex.
type Tracker struct {
	mu  sync.Mutex
	est *estimator.Estimator
}

// NewTracker wraps a new estimator reading clock.
func NewTracker(clock estimator.Clock, opts ...estimator.Option) *Tracker {
	return &Tracker{est: estimator.New(clock, opts...)}
}

// Update feeds one observation and returns the resulting state.
func (t *Tracker) Update(progress, total uint64) estimator.Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.est.Update(progress, total)
	return t.est.Snapshot()
}

// Snapshot returns the current state without feeding anything.
func (t *Tracker) Snapshot() estimator.Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.est.Snapshot()
}

// Reset restarts the task from a new baseline.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.est.Reset()
}
