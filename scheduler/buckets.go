// Package scheduler implements the priority scheduler and balance-tier
// buckets (component C9): ~62 power-of-two balance tiers, each an ordered
// structure keyed by time priority, admitted round-robin into elections.
// Grounded on
// original_source/rust/node/src/consensus/priority_scheduler.rs's
// activate/run loop, translated from its Condvar-guarded impl struct to a
// mutex-guarded bucket set drained by a ticker-polled loop (Scheduler.Run).
package scheduler

import (
	"sync"

	"github.com/google/btree"

	"github.com/latticenet/node/block"
	"github.com/latticenet/node/metrics"
)

// NumBuckets is the number of power-of-two balance tiers (spec.md §4.9
// "~62 power-of-two balance tiers" — 2^0 through 2^61 covers every
// representable 128-bit-but-practically-64-bit balance split).
const NumBuckets = 62

// candidate is one pending activation: a block awaiting election admission,
// ordered within its bucket by TimePriority ascending (earlier account
// activity loses priority first, matching the original's "lowest
// priority = current timestamp" rule for brand new accounts).
type candidate struct {
	TimePriority uint64
	Block        block.Block
	Hash         block.Hash
}

func (c *candidate) Less(than btree.Item) bool {
	o := than.(*candidate)
	if c.TimePriority != o.TimePriority {
		return c.TimePriority < o.TimePriority
	}
	return c.Hash.String() < o.Hash.String()
}

// bucketOf returns the power-of-two tier index for a balance, clamped to
// [0, NumBuckets).
func bucketOf(balance block.Amount) int {
	if balance.Hi != 0 {
		return NumBuckets - 1
	}
	v := balance.Lo
	idx := 0
	for v > 0 {
		v >>= 1
		idx++
	}
	if idx >= NumBuckets {
		idx = NumBuckets - 1
	}
	return idx
}

// Buckets holds one ordered set per balance tier.
type Buckets struct {
	mu      sync.Mutex
	tiers   [NumBuckets]*btree.BTree
	count   int
}

func NewBuckets() *Buckets {
	b := &Buckets{}
	for i := range b.tiers {
		b.tiers[i] = btree.New(32)
	}
	return b
}

// Push admits a candidate into the bucket selected by balancePriority.
func (b *Buckets) Push(timePriority uint64, blk block.Block, hash block.Hash, balancePriority block.Amount) {
	b.mu.Lock()
	defer b.mu.Unlock()
	idx := bucketOf(balancePriority)
	b.tiers[idx].ReplaceOrInsert(&candidate{TimePriority: timePriority, Block: blk, Hash: hash})
	b.count++
	metrics.SchedulerQueuedBlocks.Set(float64(b.count))
}

// Pop removes and returns the highest-priority (lowest time priority)
// candidate of the first non-empty bucket at or after startFrom (wrapping
// around); callers advance startFrom between calls so no tier starves
// another (spec.md §4.9 "admits round-robin from
// buckets with vacancy").
func (b *Buckets) Pop(startFrom int) (block.Block, block.Hash, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.count == 0 {
		return block.Block{}, block.Hash{}, false
	}
	for i := 0; i < NumBuckets; i++ {
		idx := (startFrom + i) % NumBuckets
		tier := b.tiers[idx]
		if tier.Len() == 0 {
			continue
		}
		item := tier.Min()
		tier.Delete(item)
		b.count--
		metrics.SchedulerQueuedBlocks.Set(float64(b.count))
		c := item.(*candidate)
		return c.Block, c.Hash, true
	}
	return block.Block{}, block.Hash{}, false
}

func (b *Buckets) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

func (b *Buckets) IsEmpty() bool {
	return b.Len() == 0
}
