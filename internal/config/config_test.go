package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eta.yaml")
	data := `
total: 500
step: 5
interval: 250ms
workers: 2
blend_weight: 0.5
redis:
  addr: redis:6379
  ttl: 1m
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert := assert.New(t)
	assert.Equal(uint64(500), cfg.Total)
	assert.Equal(uint64(5), cfg.Step)
	assert.Equal(250*time.Millisecond, cfg.Interval)
	assert.Equal(2, cfg.Workers)
	assert.Equal(0.5, cfg.BlendWeight)
	assert.Equal("redis:6379", cfg.Redis.Addr)
	assert.Equal(time.Minute, cfg.Redis.TTL)

	// untouched fields keep their defaults
	assert.Equal(Default().Tasks, cfg.Tasks)
	assert.Equal(Default().Redis.Prefix, cfg.Redis.Prefix)
	assert.Equal(Default().Jitter, cfg.Jitter)
}

func TestLoadFromFileErrors(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("interval: soon\n"), 0o644))
	_, err = LoadFromFile(path)
	assert.ErrorContains(t, err, "parse interval")

	require.NoError(t, os.WriteFile(path, []byte("total: [\n"), 0o644))
	_, err = LoadFromFile(path)
	assert.ErrorContains(t, err, "parse config file")
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("ETA_TOTAL", "42")
	t.Setenv("ETA_STEP", "2")
	t.Setenv("ETA_INTERVAL", "10ms")
	t.Setenv("ETA_WORKERS", "3")
	t.Setenv("ETA_REPORT_RATE", "0.5")
	t.Setenv("ETA_REDIS_ADDR", "cache:6380")
	t.Setenv("ETA_REDIS_PREFIX", "jobs")
	t.Setenv("ETA_JITTER", "3ms")
	t.Setenv("ETA_TASKS", "12")
	t.Setenv("ETA_BLEND_WEIGHT", "0.4")
	t.Setenv("ETA_REDIS_TTL", "90s")

	cfg := Default()
	require.NoError(t, cfg.LoadFromEnv())

	assert := assert.New(t)
	assert.Equal(uint64(42), cfg.Total)
	assert.Equal(uint64(2), cfg.Step)
	assert.Equal(10*time.Millisecond, cfg.Interval)
	assert.Equal(3, cfg.Workers)
	assert.Equal(0.5, cfg.ReportRate)
	assert.Equal("cache:6380", cfg.Redis.Addr)
	assert.Equal("jobs", cfg.Redis.Prefix)
	assert.Equal(3*time.Millisecond, cfg.Jitter)
	assert.Equal(12, cfg.Tasks)
	assert.Equal(0.4, cfg.BlendWeight)
	assert.Equal(90*time.Second, cfg.Redis.TTL)
}

func TestLoadFromEnvInvalid(t *testing.T) {
	for _, name := range []string{"ETA_TOTAL", "ETA_JITTER", "ETA_TASKS", "ETA_BLEND_WEIGHT", "ETA_REDIS_TTL"} {
		t.Run(name, func(t *testing.T) {
			t.Setenv(name, "-x")
			cfg := Default()
			assert.ErrorContains(t, cfg.LoadFromEnv(), name)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"zero total", func(c *Config) { c.Total = 0 }},
		{"zero step", func(c *Config) { c.Step = 0 }},
		{"step above total", func(c *Config) { c.Step = c.Total + 1 }},
		{"zero interval", func(c *Config) { c.Interval = 0 }},
		{"jitter too large", func(c *Config) { c.Jitter = c.Interval }},
		{"no workers", func(c *Config) { c.Workers = 0 }},
		{"no tasks", func(c *Config) { c.Tasks = 0 }},
		{"blend weight", func(c *Config) { c.BlendWeight = 2 }},
		{"redis ttl", func(c *Config) { c.Redis.TTL = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestMerge(t *testing.T) {
	base := Default()
	merged := base.Merge(Config{Workers: 9, Redis: RedisConfig{Prefix: "x"}})

	assert.Equal(t, 9, merged.Workers)
	assert.Equal(t, "x", merged.Redis.Prefix)
	assert.Equal(t, base.Total, merged.Total)
	assert.Equal(t, base.Redis.Addr, merged.Redis.Addr)
}
