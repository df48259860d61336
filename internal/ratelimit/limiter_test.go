package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitUnlimitedByDefault(t *testing.T) {
	l := New(Config{}, nil)

	start := time.Now()
	for i := 0; i < 50; i++ {
		require.NoError(t, l.Wait(context.Background(), "Adzuna API"))
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestWaitPacesPerSource(t *testing.T) {
	l := New(Config{RPS: 20, Burst: 1}, nil)

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, l.Wait(context.Background(), "Indeed RSS"))
	}
	// Burst of one means the second and third tokens each wait ~50ms.
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestWaitSourcesIsolated(t *testing.T) {
	l := New(Config{RPS: 1, Burst: 1}, nil)

	start := time.Now()
	require.NoError(t, l.Wait(context.Background(), "Adzuna API"))
	require.NoError(t, l.Wait(context.Background(), "Indeed RSS"))
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestWaitOverride(t *testing.T) {
	l := New(Config{RPS: 1, Burst: 1}, map[string]Config{"Jobs.ch API": {RPS: 0}})

	start := time.Now()
	for i := 0; i < 10; i++ {
		require.NoError(t, l.Wait(context.Background(), "Jobs.ch API"))
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestWaitHonorsContextCancellation(t *testing.T) {
	l := New(Config{RPS: 0.1, Burst: 1}, nil)
	require.NoError(t, l.Wait(context.Background(), "Adzuna API"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := l.Wait(ctx, "Adzuna API")
	assert.Error(t, err)
}

func TestWaitOverrideKeyCaseInsensitive(t *testing.T) {
	l := New(Config{RPS: 1, Burst: 1}, map[string]Config{"adzuna api": {RPS: 0}})

	start := time.Now()
	for i := 0; i < 10; i++ {
		require.NoError(t, l.Wait(context.Background(), "Adzuna API"))
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}
