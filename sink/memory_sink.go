package sink

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"eta_estimator/estimator"
)

// MemorySink is a process-local Sink holding at most size snapshots, each dropped ttl
// after its last write.
type MemorySink struct {
	lck   sync.Mutex
	snaps *expirable.LRU[string, estimator.Snapshot]
}

// NewMemorySink creates a MemorySink. The cache's expiry goroutine lives for the process.
func NewMemorySink(size int, ttl time.Duration) (*MemorySink, error) {
	if size <= 0 {
		return nil, errors.New("size must be greater than 0")
	}
	if ttl <= 0 {
		return nil, errors.New("ttl must be > 0")
	}
	return &MemorySink{
		snaps: expirable.NewLRU[string, estimator.Snapshot](size, nil, ttl),
	}, nil
}

// Publish stores snap under key unless a newer one is already held.
func (s *MemorySink) Publish(ctx context.Context, key string, snap estimator.Snapshot) error {
	if key == "" {
		return ErrEmptyKey
	}

	s.lck.Lock()
	defer s.lck.Unlock()

	if cur, ok := s.snaps.Peek(key); ok && cur.Timestamp > snap.Timestamp {
		return nil
	}
	s.snaps.Add(key, snap)
	return nil
}

// Load returns the snapshot held for key.
func (s *MemorySink) Load(ctx context.Context, key string) (estimator.Snapshot, bool, error) {
	if key == "" {
		return estimator.Snapshot{}, false, ErrEmptyKey
	}
	snap, ok := s.snaps.Get(key)
	return snap, ok, nil
}

// HealthCheck always succeeds.
func (s *MemorySink) HealthCheck(ctx context.Context) error {
	return nil
}

// Len returns the number of snapshots held.
func (s *MemorySink) Len() int {
	return s.snaps.Len()
}
