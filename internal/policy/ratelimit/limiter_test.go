package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiterSpacesConsecutiveCalls(t *testing.T) {
	const (
		interval = 40 * time.Millisecond
		calls    = 4
	)
	l := New(Config{MinInterval: interval})
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < calls; i++ {
		require.NoError(t, l.Wait(ctx, "http://www3.jkl.fi/paatokset/kh.htm"))
	}
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, (calls-1)*interval-2*time.Millisecond)
	assert.Equal(t, interval, l.MinInterval())
}

func TestLimiterFirstCallIsImmediate(t *testing.T) {
	l := New(Config{MinInterval: time.Hour})

	start := time.Now()
	require.NoError(t, l.Wait(context.Background(), "http://example.com"))
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestLimiterZeroIntervalDoesNotWait(t *testing.T) {
	l := New(Config{})

	start := time.Now()
	for i := 0; i < 100; i++ {
		require.NoError(t, l.Wait(context.Background(), "http://example.com"))
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestLimiterHonoursContext(t *testing.T) {
	l := New(Config{MinInterval: time.Hour})
	require.NoError(t, l.Wait(context.Background(), "http://example.com"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := l.Wait(ctx, "http://example.com")
	require.Error(t, err)
}
