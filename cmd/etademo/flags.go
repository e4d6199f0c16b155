package main

import (
	"github.com/spf13/pflag"

	"eta_estimator/internal/config"
)

const (
	ConfigKey       = "config"
	TotalKey        = "total"
	StepKey         = "step"
	IntervalKey     = "interval"
	WorkersKey      = "workers"
	TasksKey        = "tasks"
	RedisAddrKey    = "redis-addr"
	VerboseKey      = "verbose"
	SimulateDownKey = "simulate-down"
)

func AddFlags(flags *pflag.FlagSet) {
	flags.String(ConfigKey, "", "YAML file with the workload configuration")
	flags.Uint64(TotalKey, 0, "Units of work per task")
	flags.Uint64(StepKey, 0, "Units completed per tick")
	flags.Duration(IntervalKey, 0, "Mean time between ticks")
	flags.Int(WorkersKey, 0, "Number of concurrent workers")
	flags.Int(TasksKey, 0, "Number of tasks to run")
	flags.String(RedisAddrKey, "", "Redis address snapshots are published to")
	flags.Bool(VerboseKey, false, "Use a development logger with debug output")
}

// ParseFlags builds the configuration in order of precedence: defaults, the config file,
// ETA_ environment variables, then flags that were set explicitly.
func ParseFlags(flags *pflag.FlagSet) (config.Config, error) {
	cfg := config.Default()

	path, err := flags.GetString(ConfigKey)
	if err != nil {
		return config.Config{}, err
	}
	if path != "" {
		if cfg, err = config.LoadFromFile(path); err != nil {
			return config.Config{}, err
		}
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return config.Config{}, err
	}

	var override config.Config
	if flags.Changed(TotalKey) {
		if override.Total, err = flags.GetUint64(TotalKey); err != nil {
			return config.Config{}, err
		}
	}
	if flags.Changed(StepKey) {
		if override.Step, err = flags.GetUint64(StepKey); err != nil {
			return config.Config{}, err
		}
	}
	if flags.Changed(IntervalKey) {
		if override.Interval, err = flags.GetDuration(IntervalKey); err != nil {
			return config.Config{}, err
		}
	}
	if flags.Changed(WorkersKey) {
		if override.Workers, err = flags.GetInt(WorkersKey); err != nil {
			return config.Config{}, err
		}
	}
	if flags.Changed(TasksKey) {
		if override.Tasks, err = flags.GetInt(TasksKey); err != nil {
			return config.Config{}, err
		}
	}
	if flags.Changed(RedisAddrKey) {
		if override.Redis.Addr, err = flags.GetString(RedisAddrKey); err != nil {
			return config.Config{}, err
		}
	}
	cfg = cfg.Merge(override)

	// a shorter interval than the configured jitter would make ticks negative
	if cfg.Jitter >= cfg.Interval {
		cfg.Jitter = cfg.Interval / 5
	}
	return cfg, cfg.Validate()
}
