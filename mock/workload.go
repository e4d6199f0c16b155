// Package mock drives simulated workloads through the board, the reporter and the sinks,
// the way a real tool would feed them.
package mock

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"eta_estimator/estimator"
	"eta_estimator/internal/config"
	"eta_estimator/report"
	"eta_estimator/tracker"
)

// publishFunc receives every snapshot a task produces.
type publishFunc func(ctx context.Context, key string, snap estimator.Snapshot) error

// runWorkload spreads cfg.Tasks tasks over cfg.Workers goroutines. Each task advances by
// cfg.Step units every cfg.Interval (plus or minus up to cfg.Jitter) until cfg.Total.
func runWorkload(ctx context.Context, cfg config.Config, logger *zap.Logger, publish publishFunc) (*tracker.Board, error) {
	board, err := tracker.NewBoard(cfg.Tasks,
		tracker.WithLogger(logger),
		tracker.WithEstimatorOptions(estimator.WithBlendWeight(cfg.BlendWeight)),
	)
	if err != nil {
		return nil, err
	}
	reporter := report.NewReporter(logger, cfg.ReportRate)

	tasks := make(chan string, cfg.Tasks)
	for i := 0; i < cfg.Tasks; i++ {
		tasks <- fmt.Sprintf("task-%d", i+1)
	}
	close(tasks)

	var wg sync.WaitGroup
	errCh := make(chan error, cfg.Workers)
	st := time.Now()
	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(int64(workerID)))
			for key := range tasks {
				if err := runTask(ctx, cfg, board, reporter, rng, key, publish); err != nil {
					errCh <- fmt.Errorf("worker %d: %w", workerID, err)
					return
				}
			}
		}(w + 1)
	}

	wg.Wait()
	close(errCh)
	if err := <-errCh; err != nil {
		return nil, err
	}

	logger.Info("workload finished",
		zap.Int("tasks", cfg.Tasks),
		zap.Int("workers", cfg.Workers),
		zap.Duration("elapsed", time.Since(st)),
	)
	return board, nil
}

func runTask(ctx context.Context, cfg config.Config, board *tracker.Board, reporter *report.Reporter, rng *rand.Rand, key string, publish publishFunc) error {
	var progress uint64
	for {
		snap, err := board.Update(key, progress, cfg.Total)
		if err != nil {
			return err
		}
		if publish != nil {
			if err := publish(ctx, key, snap); err != nil {
				return fmt.Errorf("publish %s: %w", key, err)
			}
		}
		if progress >= cfg.Total {
			reporter.Final(key, snap)
			return nil
		}
		reporter.Observe(key, snap)

		progress += cfg.Step
		if progress > cfg.Total {
			progress = cfg.Total
		}

		t := time.NewTimer(nextDelay(rng, cfg.Interval, cfg.Jitter))
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

func nextDelay(rng *rand.Rand, interval, jitter time.Duration) time.Duration {
	if jitter <= 0 {
		return interval
	}
	return interval - jitter + time.Duration(rng.Int63n(int64(2*jitter)+1))
}
