package mock

import (
	"context"

	"go.uber.org/zap"

	"eta_estimator/estimator"
	"eta_estimator/internal/config"
)

// BoardMock runs the workload with progress kept only on the board and returns the final
// snapshot of every task.
func BoardMock(ctx context.Context, cfg config.Config, logger *zap.Logger) (map[string]estimator.Snapshot, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	board, err := runWorkload(ctx, cfg, logger, nil)
	if err != nil {
		return nil, err
	}
	return board.Snapshots(), nil
}
