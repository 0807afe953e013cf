package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTryConsumeBasicBurstAndRefill(t *testing.T) {
	b := New(10, 10)

	require.True(t, b.TryConsume(10))
	require.False(t, b.TryConsume(10))

	time.Sleep(310 * time.Millisecond)
	require.True(t, b.TryConsume(3))
	require.False(t, b.TryConsume(10))

	time.Sleep(1100 * time.Millisecond)
	require.True(t, b.TryConsume(10))
	require.Equal(t, uint64(10), b.LargestBurst())
}

func TestUnlimitedBucketAlwaysPermits(t *testing.T) {
	b := New(0, 0)
	require.True(t, b.TryConsume(Unlimited))
	require.True(t, b.TryConsume(5))
}

func TestResetReparameterizes(t *testing.T) {
	b := New(10, 10)
	require.True(t, b.TryConsume(10))
	b.Reset(5, 5)
	require.True(t, b.TryConsume(5))
	require.False(t, b.TryConsume(1))
}
