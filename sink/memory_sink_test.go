package sink

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eta_estimator/estimator"
)

func TestNewMemorySinkValidation(t *testing.T) {
	_, err := NewMemorySink(0, time.Minute)
	assert.Error(t, err)
	_, err = NewMemorySink(10, 0)
	assert.Error(t, err)
}

func TestMemorySinkNewerWins(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	s, err := NewMemorySink(10, time.Minute)
	require.NoError(t, err)

	_, ok, err := s.Load(ctx, "job")
	require.NoError(t, err)
	assert.False(ok)

	newer := estimator.Snapshot{Initialized: true, Timestamp: 2000, Progress: 20, Total: 100, Rate: 0.01, Remaining: 8000}
	older := estimator.Snapshot{Initialized: true, Timestamp: 1000, Progress: 10, Total: 100}

	require.NoError(t, s.Publish(ctx, "job", newer))
	require.NoError(t, s.Publish(ctx, "job", older))

	got, ok, err := s.Load(ctx, "job")
	require.NoError(t, err)
	assert.True(ok)
	assert.Equal(newer, got)

	assert.ErrorIs(s.Publish(ctx, "", newer), ErrEmptyKey)
	_, _, err = s.Load(ctx, "")
	assert.ErrorIs(err, ErrEmptyKey)
	assert.NoError(s.HealthCheck(ctx))
}

func TestMemorySinkBounded(t *testing.T) {
	ctx := context.Background()
	s, err := NewMemorySink(2, time.Minute)
	require.NoError(t, err)

	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, s.Publish(ctx, k, estimator.Snapshot{Timestamp: 1}))
	}
	assert.Equal(t, 2, s.Len())

	_, ok, _ := s.Load(ctx, "a")
	assert.False(t, ok)
}

func TestMemorySinkExpires(t *testing.T) {
	ctx := context.Background()
	s, err := NewMemorySink(2, 20*time.Millisecond)
	require.NoError(t, err)

	require.NoError(t, s.Publish(ctx, "job", estimator.Snapshot{Timestamp: 1}))
	assert.Eventually(t, func() bool {
		_, ok, _ := s.Load(ctx, "job")
		return !ok
	}, time.Second, 10*time.Millisecond)
}
