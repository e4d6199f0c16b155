// Package sink publishes progress snapshots where other processes can read them: Redis as
// the shared store, an in-memory LRU as the local one, and a fallback that switches between
// the two while Redis is unreachable.
package sink

import (
	"context"
	"errors"
	"fmt"

	"eta_estimator/estimator"
)

var (
	// ErrPrimaryDown marks failures of the backing store itself, as opposed to bad input.
	ErrPrimaryDown = errors.New("sink: primary store unavailable")
	// ErrEmptyKey is returned when a task key is empty.
	ErrEmptyKey = errors.New("sink: task key cannot be empty")
)

// Sink stores the latest snapshot per task key. A snapshot older than the stored one
// is ignored.
type Sink interface {
	Publish(ctx context.Context, key string, snap estimator.Snapshot) error
	Load(ctx context.Context, key string) (estimator.Snapshot, bool, error)
	HealthCheck(ctx context.Context) error
}

func fullKey(prefix, key string) (string, error) {
	if key == "" {
		return "", ErrEmptyKey
	}
	return fmt.Sprintf("%s:%s", prefix, key), nil
}
