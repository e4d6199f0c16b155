// Command etademo runs simulated workloads and prints their progress and estimated time to
// completion.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"eta_estimator/estimator"
	"eta_estimator/mock"
	"eta_estimator/report"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := Command().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "etademo failed: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func Command() *cobra.Command {
	c := &cobra.Command{
		Use:          "etademo",
		Short:        "Runs simulated workloads through the ETA estimator",
		SilenceUsage: true,
	}
	AddFlags(c.PersistentFlags())
	c.AddCommand(
		boardCommand(),
		fallbackCommand(),
	)
	return c
}

func boardCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "board",
		Short: "Tracks tasks on an in-memory board",
		RunE: func(c *cobra.Command, _ []string) error {
			return run(c, func(ctx context.Context, logger *zap.Logger) (map[string]estimator.Snapshot, error) {
				cfg, err := ParseFlags(c.Flags())
				if err != nil {
					return nil, err
				}
				return mock.BoardMock(ctx, cfg, logger)
			})
		},
	}
}

func fallbackCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "fallback",
		Short: "Publishes snapshots to Redis, falling back to memory when it is down",
		RunE: func(c *cobra.Command, _ []string) error {
			down, err := c.Flags().GetBool(SimulateDownKey)
			if err != nil {
				return err
			}
			return run(c, func(ctx context.Context, logger *zap.Logger) (map[string]estimator.Snapshot, error) {
				cfg, err := ParseFlags(c.Flags())
				if err != nil {
					return nil, err
				}
				return mock.FallbackSinkMock(ctx, cfg, logger, down)
			})
		},
	}
	c.Flags().Bool(SimulateDownKey, false, "Close the Redis client half way through the run")
	return c
}

func run(c *cobra.Command, sim func(context.Context, *zap.Logger) (map[string]estimator.Snapshot, error)) error {
	verbose, err := c.Flags().GetBool(VerboseKey)
	if err != nil {
		return err
	}
	logger, err := newLogger(verbose)
	if err != nil {
		return err
	}
	defer logger.Sync()

	snaps, err := sim(c.Context(), logger)
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(snaps))
	for key := range snaps {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintln(c.OutOrStdout(), report.Line(key, snaps[key]))
	}
	return nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
