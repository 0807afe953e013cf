package writequeue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAcquireUncontended(t *testing.T) {
	q := New()
	release, err := q.Acquire(context.Background(), BlockProcessor)
	require.NoError(t, err)
	release()
}

func TestAcquireSerializesHolders(t *testing.T) {
	q := New()
	release, err := q.Acquire(context.Background(), BlockProcessor)
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		r, err := q.Acquire(context.Background(), Pruning)
		require.NoError(t, err)
		close(acquired)
		r()
	}()

	select {
	case <-acquired:
		t.Fatal("second acquire should not succeed while first holds the lock")
	case <-time.After(20 * time.Millisecond):
	}

	release()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second acquire never granted after release")
	}
}

func TestAcquireRespectsContextCancellation(t *testing.T) {
	q := New()
	release, err := q.Acquire(context.Background(), BlockProcessor)
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = q.Acquire(ctx, Rollback)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

// Starvation prevention: once StarvationLimit non-cementation grants have
// happened back to back, a waiting ConfirmationHeight request must jump the
// FIFO ahead of any subsequently-queued lower-priority waiter, even though
// it was not first in arrival order.
func TestStarvationPreventionPromotesConfirmationHeight(t *testing.T) {
	q := New()
	release, err := q.Acquire(context.Background(), BlockProcessor)
	require.NoError(t, err)

	// Queue up StarvationLimit BlockProcessor waiters first, then a
	// ConfirmationHeight waiter arriving last.
	var mu sync.Mutex
	var order []Holder
	record := func(h Holder) {
		mu.Lock()
		order = append(order, h)
		mu.Unlock()
	}
	done := make(chan struct{}, StarvationLimit+1)

	for i := 0; i < StarvationLimit; i++ {
		go func() {
			r, err := q.Acquire(context.Background(), BlockProcessor)
			require.NoError(t, err)
			record(BlockProcessor)
			time.Sleep(time.Millisecond)
			r()
			done <- struct{}{}
		}()
		time.Sleep(time.Millisecond) // preserve arrival order
	}
	go func() {
		r, err := q.Acquire(context.Background(), ConfirmationHeight)
		require.NoError(t, err)
		record(ConfirmationHeight)
		r()
		done <- struct{}{}
	}()
	time.Sleep(time.Millisecond)

	release() // let the queue start draining

	for i := 0; i < StarvationLimit+1; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("waiters never all completed")
		}
	}
	require.Contains(t, order, ConfirmationHeight)
	require.NotEqual(t, ConfirmationHeight, order[len(order)-1], "ConfirmationHeight should be granted ahead of the last-queued BlockProcessor waiter")
}
