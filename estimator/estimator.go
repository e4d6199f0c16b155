// Package estimator projects the remaining time of a long-running task from periodic
// "N of M done" progress reports, using a smoothed rate that damps irregular sampling.
package estimator

import (
	"math"
	"time"

	"go.uber.org/zap"
)

// DefaultBlendWeight is the share of a new, regularly spaced interval in the smoothed rate.
const DefaultBlendWeight = 0.26

// maxRemaining is the first float64 that no longer fits in a uint64.
const maxRemaining = float64(1 << 64)

type sample struct {
	timestamp uint64
	progress  uint64
}

// Snapshot is a point-in-time copy of an estimator's view of its task.
type Snapshot struct {
	Initialized bool
	Timestamp   uint64  // ms, of the last update
	Progress    uint64
	Total       uint64
	Rate        float64 // percent of total per ms
	Remaining   uint64  // ms, 0 when unknown
}

// Estimator keeps a smoothed progress rate for one task.
//
// The rate is expressed in percent of the total per millisecond. Remaining work is
// measured from the first sample, so a task resumed half way still reports the time
// needed for the share of the total it has not yet covered since it was observed.
//
// An Estimator is not safe for concurrent use.
type Estimator struct {
	clock  Clock
	logger *zap.Logger
	weight float64

	initialized bool
	baseline    sample
	last        sample
	lastTotal   uint64

	rate      float64
	rated     bool
	intervals uint64
}

// Option configures an Estimator.
type Option func(*Estimator)

// WithLogger sets the logger used to report discarded samples.
func WithLogger(l *zap.Logger) Option {
	return func(e *Estimator) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithBlendWeight overrides DefaultBlendWeight. Values outside (0, 1] are ignored.
func WithBlendWeight(w float64) Option {
	return func(e *Estimator) {
		if w > 0 && w <= 1 {
			e.weight = w
		}
	}
}

// New creates an uninitialized Estimator reading time from clock.
// A nil clock falls back to the system clock.
func New(clock Clock, opts ...Option) *Estimator {
	if clock == nil {
		clock = NewRealClock()
	}
	e := &Estimator{
		clock:  clock,
		logger: zap.NewNop(),
		weight: DefaultBlendWeight,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Update records that progress of total units are done now.
func (e *Estimator) Update(progress, total uint64) {
	now := e.clock.Timestamp()

	if !e.initialized {
		e.baseline = sample{timestamp: now, progress: progress}
		e.last = e.baseline
		e.lastTotal = total
		e.initialized = true
		return
	}

	prev := e.last
	e.last = sample{timestamp: now, progress: progress}
	e.lastTotal = total

	if now <= prev.timestamp {
		if now < prev.timestamp {
			e.logger.Debug("clock went backwards, sample carries no rate",
				zap.Uint64("prev", prev.timestamp), zap.Uint64("now", now))
		}
		return
	}

	dt := now - prev.timestamp
	mean := e.meanInterval(prev.timestamp)
	e.intervals++

	if total == 0 {
		return
	}

	var dp uint64
	if progress > prev.progress {
		dp = progress - prev.progress
	} else if progress < prev.progress {
		e.logger.Debug("progress went backwards",
			zap.Uint64("prev", prev.progress), zap.Uint64("now", progress))
	}

	instant := float64(dp) * 100 / float64(total) / float64(dt)
	if !e.rated {
		e.rate = instant
		e.rated = true
		return
	}
	e.rate += e.blendWeight(float64(dt), mean) * (instant - e.rate)
	if e.rate < 0 || math.IsNaN(e.rate) {
		e.rate = 0
	}
}

// meanInterval returns the mean length of the intervals seen before the one ending now,
// or 0 when it cannot be told.
func (e *Estimator) meanInterval(prevTimestamp uint64) float64 {
	if e.intervals == 0 || prevTimestamp <= e.baseline.timestamp {
		return 0
	}
	return float64(prevTimestamp-e.baseline.timestamp) / float64(e.intervals)
}

// blendWeight scales the base weight by how closely dt matches the running cadence.
// An interval twice as long (or half as long) as usual counts a quarter as much.
func (e *Estimator) blendWeight(dt, mean float64) float64 {
	if mean <= 0 {
		return e.weight
	}
	r := dt / mean
	if r > 1 {
		r = 1 / r
	}
	return e.weight * r * r
}

// CurrentRate returns the smoothed rate in percent of total per millisecond.
func (e *Estimator) CurrentRate() float64 {
	return e.rate
}

// RemainingTime returns the projected milliseconds until completion, or 0 when there is
// no estimate (no updates yet, no measurable rate, or nothing left to do).
func (e *Estimator) RemainingTime() uint64 {
	if !e.initialized || e.rate <= 0 || e.lastTotal == 0 {
		return 0
	}
	if e.last.progress >= e.lastTotal {
		return 0
	}

	var done uint64
	if e.last.progress > e.baseline.progress {
		done = e.last.progress - e.baseline.progress
	}
	left := 100 - float64(done)*100/float64(e.lastTotal)
	if left <= 0 {
		return 0
	}

	ms := left / e.rate
	if math.IsNaN(ms) || math.IsInf(ms, 0) || ms >= maxRemaining {
		return 0
	}
	return uint64(ms)
}

// Remaining is RemainingTime as a time.Duration.
func (e *Estimator) Remaining() time.Duration {
	ms := e.RemainingTime()
	if ms > uint64(math.MaxInt64/int64(time.Millisecond)) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(ms) * time.Millisecond
}

// Initialized reports whether at least one update has been recorded.
func (e *Estimator) Initialized() bool {
	return e.initialized
}

// Percent returns the last reported progress as a percentage of the last total.
func (e *Estimator) Percent() float64 {
	if e.lastTotal == 0 {
		return 0
	}
	return float64(e.last.progress) * 100 / float64(e.lastTotal)
}

// Snapshot returns a copy of the current state.
func (e *Estimator) Snapshot() Snapshot {
	return Snapshot{
		Initialized: e.initialized,
		Timestamp:   e.last.timestamp,
		Progress:    e.last.progress,
		Total:       e.lastTotal,
		Rate:        e.rate,
		Remaining:   e.RemainingTime(),
	}
}

// Reset drops all samples; the next update becomes the new baseline.
func (e *Estimator) Reset() {
	e.initialized = false
	e.baseline = sample{}
	e.last = sample{}
	e.lastTotal = 0
	e.rate = 0
	e.rated = false
	e.intervals = 0
}
