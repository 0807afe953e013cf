// Package writequeue implements the single-writer fairness lock (component
// C5): exactly one named holder owns the write lock at a time, served FIFO
// within priority class, with starvation prevention for the cementer.
// bbolt already serializes physical writers (the teacher's node/store/db.go
// opens one *bolt.DB per process); this package adds the cross-component
// ordering policy bbolt itself has no notion of, so a hot block-processing
// loop can never indefinitely starve cementation out of the write lock.
package writequeue

import (
	"context"
	"sync"
	"time"

	"github.com/latticenet/node/metrics"
)

// Holder names a writer competing for the lock (spec.md §4.3).
type Holder string

const (
	BlockProcessor     Holder = "BlockProcessor"
	ConfirmationHeight Holder = "ConfirmationHeight"
	Pruning            Holder = "Pruning"
	Rollback           Holder = "Rollback"
	RpcControl         Holder = "RpcControl"
)

// StarvationLimit caps how many consecutive grants to non-cementation
// holders are allowed before a waiting ConfirmationHeight request jumps the
// FIFO (spec.md §4.3 "starvation prevention for cementation").
const StarvationLimit = 4

type waiter struct {
	holder  Holder
	granted chan struct{}
}

// Queue is the write lock. Zero value is not usable; use New.
type Queue struct {
	mu               sync.Mutex
	owner            *Holder
	waiters          []*waiter
	sinceCementation int
}

func New() *Queue {
	return &Queue{}
}

// Acquire blocks until holder owns the write lock or ctx is done. On
// success the returned release func must be called exactly once to hand
// the lock to the next waiter; it is safe to call from any goroutine.
func (q *Queue) Acquire(ctx context.Context, holder Holder) (func(), error) {
	start := time.Now()
	q.mu.Lock()
	if q.owner == nil {
		q.grant(holder)
		q.mu.Unlock()
		metrics.WriteQueueWaitSeconds.WithLabelValues(string(holder)).Observe(time.Since(start).Seconds())
		return q.releaseFunc(), nil
	}
	w := &waiter{holder: holder, granted: make(chan struct{})}
	q.waiters = append(q.waiters, w)
	q.mu.Unlock()

	select {
	case <-w.granted:
		metrics.WriteQueueWaitSeconds.WithLabelValues(string(holder)).Observe(time.Since(start).Seconds())
		return q.releaseFunc(), nil
	case <-ctx.Done():
		q.cancelWaiter(w)
		return nil, ctx.Err()
	}
}

// grant assigns the lock to holder; caller must hold mu.
func (q *Queue) grant(holder Holder) {
	h := holder
	q.owner = &h
	if holder == ConfirmationHeight {
		q.sinceCementation = 0
	} else {
		q.sinceCementation++
	}
}

func (q *Queue) releaseFunc() func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			q.mu.Lock()
			defer q.mu.Unlock()
			q.owner = nil
			q.grantNext()
		})
	}
}

// grantNext picks the next waiter: FIFO, unless the starvation limit has
// been hit and a ConfirmationHeight waiter is present, in which case it
// jumps the queue. Caller must hold mu.
func (q *Queue) grantNext() {
	if len(q.waiters) == 0 {
		return
	}
	idx := 0
	if q.sinceCementation >= StarvationLimit {
		if i := q.indexOfHolder(ConfirmationHeight); i >= 0 {
			idx = i
		}
	}
	w := q.waiters[idx]
	q.waiters = append(q.waiters[:idx:idx], q.waiters[idx+1:]...)
	q.grant(w.holder)
	close(w.granted)
}

// HasWaiters reports whether any holder is currently queued, used by
// long-running writers (the cementer) to decide whether to release the
// lock between internal batches instead of hogging it (spec.md §4.4 step 4).
func (q *Queue) HasWaiters() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.waiters) > 0
}

func (q *Queue) indexOfHolder(h Holder) int {
	for i, w := range q.waiters {
		if w.holder == h {
			return i
		}
	}
	return -1
}

func (q *Queue) cancelWaiter(w *waiter) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, x := range q.waiters {
		if x == w {
			q.waiters = append(q.waiters[:i:i], q.waiters[i+1:]...)
			return
		}
	}
	// Lost the race: grantNext already handed w the lock between ctx.Done
	// firing and us taking mu. Release immediately so the lock isn't
	// leaked on an abandoned holder.
	select {
	case <-w.granted:
		q.owner = nil
		q.grantNext()
	default:
	}
}
