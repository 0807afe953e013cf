package writequeue

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoopRunsOnTickAndStopsOnCancel(t *testing.T) {
	var ticks int32
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	l := Loop{Name: "test", Interval: 5 * time.Millisecond, Fn: func(context.Context) {
		atomic.AddInt32(&ticks, 1)
	}}
	go func() {
		l.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("loop did not stop after cancellation")
	}
	require.Greater(t, atomic.LoadInt32(&ticks), int32(0))
}

func TestLoopRunImmediately(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fired := make(chan struct{}, 1)

	l := Loop{Name: "test", Interval: time.Hour, RunImmediately: true, Fn: func(context.Context) {
		fired <- struct{}{}
	}}
	go l.Run(ctx)
	defer cancel()

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("RunImmediately did not fire before first tick")
	}
}
