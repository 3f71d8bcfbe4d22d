package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilLimiterNeverBlocks(t *testing.T) {
	var l *Limiter
	require.NoError(t, l.Wait(context.Background()))
	l.Stop()
}

func TestWaitHonorsContext(t *testing.T) {
	// The first tick is a full second out, so Wait has to block.
	l := NewRPS(1)
	defer l.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, l.Wait(ctx), context.DeadlineExceeded)
}

func TestWaitPacesCalls(t *testing.T) {
	l := NewRPS(100)
	defer l.Stop()

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, l.Wait(context.Background()))
	}
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestZeroRPSFallsBackToOne(t *testing.T) {
	l := NewRPS(0)
	defer l.Stop()
	assert.NotNil(t, l.t)
}
