package writequeue

import (
	"context"
	"time"
)

// Loop is a long-lived-thread helper: a named task woken on a fixed
// interval with a context-based shutdown instead of a dedicated
// mutex/condvar per loop. No component loop in this repository uses it;
// each runs its own loop.
// Grounded on original_source/node/src/utils/timer_thread.rs's
// CancellationToken wait loop, translated from a condvar-with-deadline wait
// to context.Context + time.Ticker, the idiomatic Go equivalent spec.md §5
// calls for ("every loop thread blocks on a condition variable ... All
// blocking waits include a maximum deadline").
type Loop struct {
	Name           string
	Interval       time.Duration
	RunImmediately bool
	Fn             func(ctx context.Context)
}

// Run blocks until ctx is done, invoking Fn on each tick (and once
// immediately if RunImmediately is set).
func (l Loop) Run(ctx context.Context) {
	if l.RunImmediately {
		l.Fn(ctx)
	}
	t := time.NewTicker(l.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			l.Fn(ctx)
		}
	}
}
