package sink

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"eta_estimator/estimator"
)

//go:embed publish_snapshot.lua
var publishScript string

// RedisSink keeps snapshots in Redis hashes, written by a Lua script so the newer-wins
// check and the expiry refresh are atomic.
type RedisSink struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	script *redis.Script
	logger *zap.Logger
}

// RedisOption configures a RedisSink.
type RedisOption func(*RedisSink)

// WithRedisLogger sets the logger for stale writes.
func WithRedisLogger(l *zap.Logger) RedisOption {
	return func(s *RedisSink) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewRedisSink creates a RedisSink storing keys under keyPrefix that expire after ttl
// without updates.
func NewRedisSink(ctx context.Context, client *redis.Client, keyPrefix string, ttl time.Duration, opts ...RedisOption) (*RedisSink, error) {
	if client == nil {
		return nil, errors.New("redis client cannot be nil")
	}
	if keyPrefix == "" {
		return nil, errors.New("key prefix cannot be empty")
	}
	if ttl <= 0 {
		return nil, errors.New("ttl must be > 0")
	}

	// pre-load script
	script := redis.NewScript(publishScript)
	if err := script.Load(ctx, client).Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to load lua script: %v", ErrPrimaryDown, err)
	}

	s := &RedisSink{
		client: client,
		prefix: keyPrefix,
		ttl:    ttl,
		script: script,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Publish stores snap under key unless Redis already holds a newer one.
func (s *RedisSink) Publish(ctx context.Context, key string, snap estimator.Snapshot) error {
	k, err := fullKey(s.prefix, key)
	if err != nil {
		return err
	}

	res, err := s.script.Run(ctx, s.client, []string{k},
		snap.Timestamp,
		snap.Progress,
		snap.Total,
		strconv.FormatFloat(snap.Rate, 'g', -1, 64),
		snap.Remaining,
		snap.Initialized,
		s.ttl.Milliseconds(),
	).Result()
	if err != nil {
		return wrapRedisErr(err, "failed to execute publish script")
	}

	written, err := cast.ToIntE(res)
	if err != nil {
		return fmt.Errorf("failed to parse publish result: %w", err)
	}
	if written == 0 {
		s.logger.Debug("stale snapshot ignored", zap.String("key", k), zap.Uint64("ts", snap.Timestamp))
	}
	return nil
}

// Load returns the snapshot stored for key. The boolean is false when there is none.
func (s *RedisSink) Load(ctx context.Context, key string) (estimator.Snapshot, bool, error) {
	k, err := fullKey(s.prefix, key)
	if err != nil {
		return estimator.Snapshot{}, false, err
	}

	fields, err := s.client.HGetAll(ctx, k).Result()
	if err != nil {
		return estimator.Snapshot{}, false, wrapRedisErr(err, "failed to read snapshot")
	}
	if len(fields) == 0 {
		return estimator.Snapshot{}, false, nil
	}

	snap, err := parseSnapshot(fields)
	if err != nil {
		return estimator.Snapshot{}, false, fmt.Errorf("failed to parse snapshot %q: %w", k, err)
	}
	return snap, true, nil
}

// HealthCheck pings Redis.
func (s *RedisSink) HealthCheck(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: redis health check failed: %v", ErrPrimaryDown, err)
	}
	return nil
}

func wrapRedisErr(err error, msg string) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", ErrPrimaryDown, msg, err)
}

func parseSnapshot(fields map[string]string) (estimator.Snapshot, error) {
	var (
		snap estimator.Snapshot
		err  error
	)
	if snap.Timestamp, err = cast.ToUint64E(fields["ts"]); err != nil {
		return snap, fmt.Errorf("failed to parse 'ts': %w", err)
	}
	if snap.Progress, err = cast.ToUint64E(fields["progress"]); err != nil {
		return snap, fmt.Errorf("failed to parse 'progress': %w", err)
	}
	if snap.Total, err = cast.ToUint64E(fields["total"]); err != nil {
		return snap, fmt.Errorf("failed to parse 'total': %w", err)
	}
	if snap.Rate, err = cast.ToFloat64E(fields["rate"]); err != nil {
		return snap, fmt.Errorf("failed to parse 'rate': %w", err)
	}
	if snap.Remaining, err = cast.ToUint64E(fields["remaining"]); err != nil {
		return snap, fmt.Errorf("failed to parse 'remaining': %w", err)
	}
	if snap.Initialized, err = cast.ToBoolE(fields["initialized"]); err != nil {
		return snap, fmt.Errorf("failed to parse 'initialized': %w", err)
	}
	return snap, nil
}
