package sink

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"eta_estimator/estimator"
)

const defaultHealthCheckInterval = 5 * time.Second

// FallbackSink writes to a primary sink and falls back to a secondary one while the
// primary fails. A background health check switches back once the primary recovers.
type FallbackSink struct {
	primary       Sink
	secondary     Sink
	isPrimaryDown atomic.Bool

	interval time.Duration
	logger   *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// FallbackOption configures a FallbackSink.
type FallbackOption func(*FallbackSink)

// WithHealthCheckInterval sets how often the primary is probed.
func WithHealthCheckInterval(d time.Duration) FallbackOption {
	return func(s *FallbackSink) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithFallbackLogger sets the logger for switch-overs.
func WithFallbackLogger(l *zap.Logger) FallbackOption {
	return func(s *FallbackSink) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewFallbackSink creates a FallbackSink and starts its health check.
// Call Close to stop it.
func NewFallbackSink(primary, secondary Sink, opts ...FallbackOption) (*FallbackSink, error) {
	if primary == nil {
		return nil, fmt.Errorf("primary sink can't be nil")
	}
	if secondary == nil {
		return nil, fmt.Errorf("secondary sink can't be nil")
	}

	s := &FallbackSink{
		primary:   primary,
		secondary: secondary,
		interval:  defaultHealthCheckInterval,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.wg.Add(1)
	go s.healthCheck(ctx)

	return s, nil
}

// Publish stores snap in the primary sink, or in the secondary while the primary is down.
func (s *FallbackSink) Publish(ctx context.Context, key string, snap estimator.Snapshot) error {
	if !s.isPrimaryDown.Load() {
		err := s.primary.Publish(ctx, key, snap)
		if !s.shouldFallback(err) {
			return err
		}
		s.markDown("publish", err)
	}
	return s.secondary.Publish(ctx, key, snap)
}

// Load reads from the primary sink, or from the secondary while the primary is down.
// Snapshots written to the secondary during an outage stay visible after recovery until
// the primary holds a newer one.
func (s *FallbackSink) Load(ctx context.Context, key string) (estimator.Snapshot, bool, error) {
	if !s.isPrimaryDown.Load() {
		snap, ok, err := s.primary.Load(ctx, key)
		if !s.shouldFallback(err) {
			if err != nil {
				return snap, ok, err
			}
			return s.preferNewer(ctx, key, snap, ok)
		}
		s.markDown("load", err)
	}
	return s.secondary.Load(ctx, key)
}

// preferNewer returns the secondary's snapshot for key when it is newer than the primary's.
// Secondary errors leave the primary result in place.
func (s *FallbackSink) preferNewer(ctx context.Context, key string, snap estimator.Snapshot, ok bool) (estimator.Snapshot, bool, error) {
	alt, altOK, err := s.secondary.Load(ctx, key)
	if err != nil || !altOK {
		return snap, ok, nil
	}
	if !ok || alt.Timestamp > snap.Timestamp {
		return alt, true, nil
	}
	return snap, ok, nil
}

// HealthCheck reports the health of the primary sink.
func (s *FallbackSink) HealthCheck(ctx context.Context) error {
	return s.primary.HealthCheck(ctx)
}

// PrimaryDown reports whether calls currently go to the secondary sink.
func (s *FallbackSink) PrimaryDown() bool {
	return s.isPrimaryDown.Load()
}

// Close stops the health check goroutine.
func (s *FallbackSink) Close() {
	s.cancel()
	s.wg.Wait()
}

// shouldFallback keeps caller mistakes and cancellations on the primary path.
func (s *FallbackSink) shouldFallback(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrEmptyKey) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}

func (s *FallbackSink) markDown(op string, err error) {
	if !s.isPrimaryDown.Swap(true) {
		s.logger.Warn("primary sink failed, falling back to secondary", zap.String("op", op), zap.Error(err))
	}
}

// healthCheck periodically checks if the primary sink has recovered.
func (s *FallbackSink) healthCheck(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Debug("health checker started", zap.Duration("interval", s.interval))

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("health checker shutting down")
			return
		case <-ticker.C:
			checkCtx, cancel := context.WithTimeout(ctx, s.interval)
			err := s.primary.HealthCheck(checkCtx)
			cancel()

			switch {
			case err != nil && !s.isPrimaryDown.Swap(true):
				s.logger.Warn("primary sink unhealthy, switching to secondary", zap.Error(err))
			case err == nil && s.isPrimaryDown.Swap(false):
				s.logger.Info("primary sink recovered")
			}
		}
	}
}
