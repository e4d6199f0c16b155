package tracker

import (
	"errors"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"eta_estimator/estimator"
)

// ErrEmptyKey is returned when a task key is empty.
var ErrEmptyKey = errors.New("task key cannot be empty")

// Board holds one Tracker per task key. The least recently updated task is dropped
// once the board is full.
type Board struct {
	mu       sync.Mutex
	trackers *lru.Cache[string, *Tracker]
	clock    func() estimator.Clock
	logger   *zap.Logger
	estOpts  []estimator.Option
}

// BoardOption configures a Board.
type BoardOption func(*Board)

// WithClock sets the factory giving each new task its clock.
func WithClock(f func() estimator.Clock) BoardOption {
	return func(b *Board) {
		b.clock = f
	}
}

// WithLogger sets the logger for the board and the estimators it creates.
func WithLogger(l *zap.Logger) BoardOption {
	return func(b *Board) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithEstimatorOptions passes opts to every estimator the board creates.
func WithEstimatorOptions(opts ...estimator.Option) BoardOption {
	return func(b *Board) {
		b.estOpts = append(b.estOpts, opts...)
	}
}

// NewBoard creates a Board tracking at most size tasks.
func NewBoard(size int, opts ...BoardOption) (*Board, error) {
	if size <= 0 {
		return nil, errors.New("board size must be greater than 0")
	}

	b := &Board{
		clock:  estimator.NewRealClock,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}

	cache, err := lru.NewWithEvict[string, *Tracker](size, func(key string, _ *Tracker) {
		b.logger.Info("task dropped from board", zap.String("task", key))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create board cache: %w", err)
	}
	b.trackers = cache
	return b, nil
}

// Update feeds progress of total for key, creating the task on first sight.
func (b *Board) Update(key string, progress, total uint64) (estimator.Snapshot, error) {
	if key == "" {
		return estimator.Snapshot{}, ErrEmptyKey
	}
	return b.tracker(key).Update(progress, total), nil
}

func (b *Board) tracker(key string) *Tracker {
	b.mu.Lock()
	defer b.mu.Unlock()

	if t, ok := b.trackers.Get(key); ok {
		return t
	}
	opts := append([]estimator.Option{estimator.WithLogger(b.logger.With(zap.String("task", key)))}, b.estOpts...)
	t := NewTracker(b.clock(), opts...)
	b.trackers.Add(key, t)
	return t
}

// Get returns the tracker for key, if the board holds one.
func (b *Board) Get(key string) (*Tracker, bool) {
	return b.trackers.Peek(key)
}

// Remove drops key from the board and reports whether it was present.
func (b *Board) Remove(key string) bool {
	return b.trackers.Remove(key)
}

// Keys returns the task keys, oldest first.
func (b *Board) Keys() []string {
	return b.trackers.Keys()
}

// Len returns the number of tasks on the board.
func (b *Board) Len() int {
	return b.trackers.Len()
}

// Snapshots returns the state of every task on the board.
func (b *Board) Snapshots() map[string]estimator.Snapshot {
	keys := b.trackers.Keys()
	out := make(map[string]estimator.Snapshot, len(keys))
	for _, k := range keys {
		if t, ok := b.trackers.Peek(k); ok {
			out[k] = t.Snapshot()
		}
	}
	return out
}
