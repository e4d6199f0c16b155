package mock

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"eta_estimator/estimator"
	"eta_estimator/internal/config"
	"eta_estimator/sink"
)

// FallbackSinkMock runs the workload publishing every snapshot through a FallbackSink that
// prefers Redis. With needMockRedisDown the Redis client is closed half way, so the rest of
// the run lands in the in-memory sink. It returns what the sink can still serve for each task
// at the end.
func FallbackSinkMock(ctx context.Context, cfg config.Config, logger *zap.Logger, needMockRedisDown bool) (map[string]estimator.Snapshot, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	defer rdb.Close()

	rs, err := sink.NewRedisSink(ctx, rdb, cfg.Redis.Prefix, cfg.Redis.TTL, sink.WithRedisLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create redis sink: %w", err)
	}
	ms, err := sink.NewMemorySink(cfg.Tasks, cfg.Redis.TTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory sink: %w", err)
	}
	fs, err := sink.NewFallbackSink(rs, ms,
		sink.WithHealthCheckInterval(cfg.Interval),
		sink.WithFallbackLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create fallback sink: %w", err)
	}
	defer fs.Close()

	// snapshots per task, counting a last step cut short by total
	perTask := cfg.Total/cfg.Step + 1
	if cfg.Total%cfg.Step != 0 {
		perTask++
	}
	downAfter := perTask * uint64(cfg.Tasks) / 2

	var published atomic.Uint64
	publish := func(ctx context.Context, key string, snap estimator.Snapshot) error {
		if needMockRedisDown && published.Add(1) == downAfter {
			logger.Warn("--- MOCKING REDIS DOWN ---")
			if err := rdb.Close(); err != nil {
				logger.Warn("failed to close redis client", zap.Error(err))
			}
		}
		return fs.Publish(ctx, key, snap)
	}

	board, err := runWorkload(ctx, cfg, logger, publish)
	if err != nil {
		return nil, err
	}

	out := make(map[string]estimator.Snapshot, board.Len())
	for _, key := range board.Keys() {
		snap, ok, err := fs.Load(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", key, err)
		}
		if ok {
			out[key] = snap
		}
	}
	logger.Info("snapshots loaded",
		zap.Int("tasks", len(out)),
		zap.Bool("primary_down", fs.PrimaryDown()),
	)
	return out, nil
}
