// Package config loads settings for the etademo simulations from a YAML file, ETA_
// environment variables and command-line overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config defines a simulated workload and where its progress goes.
type Config struct {
	Total       uint64        `yaml:"total"`
	Step        uint64        `yaml:"step"`
	Interval    time.Duration `yaml:"interval"`
	Jitter      time.Duration `yaml:"jitter"`
	Workers     int           `yaml:"workers"`
	Tasks       int           `yaml:"tasks"`
	ReportRate  float64       `yaml:"report_rate"`
	BlendWeight float64       `yaml:"blend_weight"`
	Redis       RedisConfig   `yaml:"redis"`
}

// RedisConfig defines where snapshots are published.
type RedisConfig struct {
	Addr   string        `yaml:"addr"`
	Prefix string        `yaml:"prefix"`
	TTL    time.Duration `yaml:"ttl"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Total:      1000,
		Step:       10,
		Interval:   time.Second,
		Jitter:     200 * time.Millisecond,
		Workers:    4,
		Tasks:      8,
		ReportRate: 2,
		Redis: RedisConfig{
			Addr:   "localhost:6379",
			Prefix: "eta",
			TTL:    10 * time.Minute,
		},
	}
}

// yamlConfig is used for YAML unmarshaling with string durations.
type yamlConfig struct {
	Total       uint64          `yaml:"total"`
	Step        uint64          `yaml:"step"`
	Interval    string          `yaml:"interval"`
	Jitter      string          `yaml:"jitter"`
	Workers     int             `yaml:"workers"`
	Tasks       int             `yaml:"tasks"`
	ReportRate  float64         `yaml:"report_rate"`
	BlendWeight float64         `yaml:"blend_weight"`
	Redis       yamlRedisConfig `yaml:"redis"`
}

type yamlRedisConfig struct {
	Addr   string `yaml:"addr"`
	Prefix string `yaml:"prefix"`
	TTL    string `yaml:"ttl"`
}

// LoadFromFile loads configuration from a YAML file on top of the defaults.
func LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}

	cfg := Default()
	override := Config{
		Total:       yc.Total,
		Step:        yc.Step,
		Workers:     yc.Workers,
		Tasks:       yc.Tasks,
		ReportRate:  yc.ReportRate,
		BlendWeight: yc.BlendWeight,
		Redis: RedisConfig{
			Addr:   yc.Redis.Addr,
			Prefix: yc.Redis.Prefix,
		},
	}
	if override.Interval, err = parseDuration("interval", yc.Interval); err != nil {
		return Config{}, err
	}
	if override.Jitter, err = parseDuration("jitter", yc.Jitter); err != nil {
		return Config{}, err
	}
	if override.Redis.TTL, err = parseDuration("redis.ttl", yc.Redis.TTL); err != nil {
		return Config{}, err
	}

	return cfg.Merge(override), nil
}

func parseDuration(name, v string) (time.Duration, error) {
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", name, err)
	}
	return d, nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the ETA_ prefix.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("ETA_TOTAL"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("parse ETA_TOTAL: %w", err)
		}
		c.Total = n
	}
	if v := os.Getenv("ETA_STEP"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("parse ETA_STEP: %w", err)
		}
		c.Step = n
	}
	if v := os.Getenv("ETA_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse ETA_INTERVAL: %w", err)
		}
		c.Interval = d
	}
	if v := os.Getenv("ETA_JITTER"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse ETA_JITTER: %w", err)
		}
		c.Jitter = d
	}
	if v := os.Getenv("ETA_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse ETA_WORKERS: %w", err)
		}
		c.Workers = n
	}
	if v := os.Getenv("ETA_TASKS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse ETA_TASKS: %w", err)
		}
		c.Tasks = n
	}
	if v := os.Getenv("ETA_REPORT_RATE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("parse ETA_REPORT_RATE: %w", err)
		}
		c.ReportRate = f
	}
	if v := os.Getenv("ETA_BLEND_WEIGHT"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("parse ETA_BLEND_WEIGHT: %w", err)
		}
		c.BlendWeight = f
	}
	if v := os.Getenv("ETA_REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("ETA_REDIS_PREFIX"); v != "" {
		c.Redis.Prefix = v
	}
	if v := os.Getenv("ETA_REDIS_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse ETA_REDIS_TTL: %w", err)
		}
		c.Redis.TTL = d
	}
	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Total == 0 {
		return errors.New("config: total must be positive")
	}
	if c.Step == 0 || c.Step > c.Total {
		return errors.New("config: step must be between 1 and total")
	}
	if c.Interval <= 0 {
		return errors.New("config: interval must be positive")
	}
	if c.Jitter < 0 || c.Jitter >= c.Interval {
		return errors.New("config: jitter must be smaller than interval")
	}
	if c.Workers <= 0 {
		return errors.New("config: workers must be positive")
	}
	if c.Tasks <= 0 {
		return errors.New("config: tasks must be positive")
	}
	if c.BlendWeight < 0 || c.BlendWeight > 1 {
		return errors.New("config: blend_weight must be within [0, 1]")
	}
	if c.Redis.TTL <= 0 {
		return errors.New("config: redis.ttl must be positive")
	}
	return nil
}

// Merge merges override values into c, returning a new Config.
// Zero values in override are ignored.
func (c Config) Merge(override Config) Config {
	if override.Total != 0 {
		c.Total = override.Total
	}
	if override.Step != 0 {
		c.Step = override.Step
	}
	if override.Interval != 0 {
		c.Interval = override.Interval
	}
	if override.Jitter != 0 {
		c.Jitter = override.Jitter
	}
	if override.Workers != 0 {
		c.Workers = override.Workers
	}
	if override.Tasks != 0 {
		c.Tasks = override.Tasks
	}
	if override.ReportRate != 0 {
		c.ReportRate = override.ReportRate
	}
	if override.BlendWeight != 0 {
		c.BlendWeight = override.BlendWeight
	}
	if override.Redis.Addr != "" {
		c.Redis.Addr = override.Redis.Addr
	}
	if override.Redis.Prefix != "" {
		c.Redis.Prefix = override.Redis.Prefix
	}
	if override.Redis.TTL != 0 {
		c.Redis.TTL = override.Redis.TTL
	}
	return c
}
