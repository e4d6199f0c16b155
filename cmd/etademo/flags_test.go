package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	AddFlags(flags)
	require.NoError(t, flags.Parse(args))
	return flags
}

func TestParseFlagsDefaults(t *testing.T) {
	t.Setenv("ETA_REDIS_ADDR", "")
	cfg, err := ParseFlags(newFlags(t))
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), cfg.Total)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
}

func TestParseFlagsPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eta.yaml")
	require.NoError(t, os.WriteFile(path, []byte("total: 500\nstep: 25\nworkers: 3\n"), 0o600))
	t.Setenv("ETA_WORKERS", "6")

	cfg, err := ParseFlags(newFlags(t,
		"--config", path,
		"--step", "50",
		"--redis-addr", "redis:6380",
	))
	require.NoError(t, err)

	assert.Equal(t, uint64(500), cfg.Total)
	assert.Equal(t, uint64(50), cfg.Step)
	assert.Equal(t, 6, cfg.Workers)
	assert.Equal(t, "redis:6380", cfg.Redis.Addr)
}

func TestParseFlagsShrinksJitter(t *testing.T) {
	cfg, err := ParseFlags(newFlags(t, "--interval", "100ms"))
	require.NoError(t, err)
	assert.Equal(t, 100*time.Millisecond, cfg.Interval)
	assert.Equal(t, 20*time.Millisecond, cfg.Jitter)
}

func TestParseFlagsInvalid(t *testing.T) {
	_, err := ParseFlags(newFlags(t, "--step", "5000"))
	assert.Error(t, err)

	_, err = ParseFlags(newFlags(t, "--config", filepath.Join(t.TempDir(), "missing.yaml")))
	assert.Error(t, err)
}

func TestBoardCommand(t *testing.T) {
	var out bytes.Buffer
	c := Command()
	c.SetOut(&out)
	c.SetArgs([]string{"board",
		"--total", "10",
		"--step", "5",
		"--interval", "5ms",
		"--workers", "2",
		"--tasks", "2",
	})
	require.NoError(t, c.Execute())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "[eta] task-1: 100.0%"))
	assert.True(t, strings.HasSuffix(lines[1], "ETA done"))
}
