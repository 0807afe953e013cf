// Package cement implements the confirmation-height cementer (component
// C6): batched forward walks from each account's cemented frontier to a
// newly-confirmed block, recording the new confirmation height and
// cascading into any account whose send a cemented receive depended on.
// Grounded on original_source/rust/node/src/cementing/{write_batch_slicer.rs,
// confirmation_height_writer.rs} and rust/node/src/confirmation_height/block_cementor.rs,
// generalized from rsnano's unbounded-processor write loop to this core's
// single kvstore.Store + writequeue.Queue discipline.
package cement

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/latticenet/node/block"
	"github.com/latticenet/node/kvstore"
	"github.com/latticenet/node/metrics"
	"github.com/latticenet/node/writequeue"
)

// Observation is emitted once per block stepped over during cementation
// (spec.md §4.4 step 4 "For each block stepped over, emit a block_cemented
// observation").
type Observation struct {
	Account block.Hash
	Hash    block.Hash
	Height  uint64
}

// Cementor owns the pending-section queue and drains it under the write
// queue's ConfirmationHeight holder.
type Cementor struct {
	store *kvstore.Store
	queue *writequeue.Queue
	batch *BatchSizeManager

	mu       sync.Mutex
	sections *sectionQueue

	obsMu     sync.Mutex
	observers []func(Observation)
}

func New(store *kvstore.Store, queue *writequeue.Queue) *Cementor {
	return &Cementor{
		store:    store,
		queue:    queue,
		batch:    NewBatchSizeManager(),
		sections: newSectionQueue(),
	}
}

func (c *Cementor) Observe(fn func(Observation)) {
	c.obsMu.Lock()
	defer c.obsMu.Unlock()
	c.observers = append(c.observers, fn)
}

func (c *Cementor) emit(obs []Observation) {
	if len(obs) == 0 {
		return
	}
	c.obsMu.Lock()
	observers := append([]func(Observation){}, c.observers...)
	c.obsMu.Unlock()
	for _, o := range obs {
		for _, fn := range observers {
			fn(o)
		}
	}
}

// NotifyConfirmed enqueues the section (confirmation_height(account)+1 ..
// height(hash)) for cementation (spec.md §4.4 step 1). Called by the
// election/vote-router once a block reaches quorum.
func (c *Cementor) NotifyConfirmed(account, hash block.Hash, height uint64) error {
	var current kvstore.ConfirmationHeightInfo
	if err := c.store.View(func(tx *kvstore.Tx) error {
		var err error
		current, err = tx.GetConfirmationHeight(account)
		return err
	}); err != nil {
		return err
	}
	bottom := current.Height + 1
	if height < bottom {
		return nil // already cemented
	}
	c.mu.Lock()
	c.sections.push(Section{Account: account, Bottom: bottom, Top: height, TopHash: hash})
	c.mu.Unlock()
	return nil
}

// HasPending reports whether any section is queued.
func (c *Cementor) HasPending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.sections.empty()
}

// Run drains the pending-section queue until ctx is cancelled, reacquiring
// the write lock between batches (spec.md §4.4 step 4).
func (c *Cementor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if !c.HasPending() {
			select {
			case <-ctx.Done():
				return
			case <-time.After(50 * time.Millisecond):
				continue
			}
		}
		if _, err := c.DrainOnce(ctx); err != nil {
			return
		}
	}
}

// DrainOnce runs a single write transaction that cements as many queued
// blocks as the current batch budget allows, across accounts, releasing
// the write lock early if another holder is waiting (spec.md §4.4 step 4).
func (c *Cementor) DrainOnce(ctx context.Context) (uint64, error) {
	release, err := c.queue.Acquire(ctx, writequeue.ConfirmationHeight)
	if err != nil {
		return 0, err
	}
	defer release()

	start := time.Now()
	var total uint64
	var observations []Observation

	err = c.store.Update(func(tx *kvstore.Tx) error {
		budget := c.batch.Size()
		for budget > 0 {
			c.mu.Lock()
			sec, ok := c.sections.popFront()
			c.mu.Unlock()
			if !ok {
				break
			}
			n, done, obs, err := c.cementSection(tx, sec, budget)
			if err != nil {
				return err
			}
			total += n
			budget -= n
			observations = append(observations, obs...)
			if !done {
				c.mu.Lock()
				c.sections.pushFront(Section{Account: sec.Account, Bottom: sec.Bottom + n, Top: sec.Top, TopHash: sec.TopHash})
				c.mu.Unlock()
				break
			}
			if c.queue.HasWaiters() {
				break
			}
		}
		return nil
	})
	if err != nil {
		return total, err
	}
	elapsed := time.Since(start)
	c.batch.Adjust(total, elapsed)
	metrics.CementationBatchSeconds.Observe(elapsed.Seconds())
	c.emit(observations)
	return total, nil
}

// cementSection walks sec's account chain forward from the current
// cemented frontier, stepping at most budget blocks, and writes the new
// confirmation height once. done reports whether sec.Top was reached.
func (c *Cementor) cementSection(tx *kvstore.Tx, sec Section, budget uint64) (stepped uint64, done bool, observations []Observation, err error) {
	height, err := tx.GetConfirmationHeight(sec.Account)
	if err != nil {
		return 0, false, nil, err
	}
	start := sec.Bottom
	if height.Height+1 > start {
		start = height.Height + 1
	}
	if start > sec.Top {
		return 0, true, nil, nil // fully cemented already
	}

	cur, err := c.firstHashAtHeight(tx, sec.Account, height, start)
	if err != nil {
		return 0, false, nil, err
	}

	newHeight := height.Height
	newFrontier := height.Frontier
	for stepped < budget {
		st, exists, err := tx.GetBlock(cur)
		if err != nil {
			return stepped, false, observations, err
		}
		if !exists {
			return stepped, false, observations, fmt.Errorf("cement: block %s missing mid-chain for account %s", cur, sec.Account)
		}
		newHeight = st.Sideband.Height
		newFrontier = cur
		stepped++
		observations = append(observations, Observation{Account: sec.Account, Hash: cur, Height: newHeight})

		if src, isReceive := receiveSource(*st); isReceive {
			if err := c.cascadeDependent(tx, src); err != nil {
				return stepped, false, observations, err
			}
		}

		if cur == sec.TopHash {
			done = true
			break
		}
		cur = st.Sideband.Successor
		if cur.IsZero() {
			return stepped, false, observations, fmt.Errorf("cement: chain for account %s ended before reaching section top", sec.Account)
		}
	}

	if stepped > 0 {
		if err := tx.PutConfirmationHeight(sec.Account, kvstore.ConfirmationHeightInfo{Height: newHeight, Frontier: newFrontier}); err != nil {
			return stepped, done, observations, err
		}
	}
	return stepped, done, observations, nil
}

// firstHashAtHeight finds the hash of the first uncemented block for
// account, either the account's open block (nothing cemented yet) or the
// successor of the current cemented frontier.
func (c *Cementor) firstHashAtHeight(tx *kvstore.Tx, account block.Hash, height kvstore.ConfirmationHeightInfo, start uint64) (block.Hash, error) {
	if height.Height == 0 {
		info, found, err := tx.GetAccount(account)
		if err != nil {
			return block.Hash{}, err
		}
		if !found {
			return block.Hash{}, fmt.Errorf("cement: account %s has no info", account)
		}
		return info.OpenBlock, nil
	}
	frontierSt, exists, err := tx.GetBlock(height.Frontier)
	if err != nil {
		return block.Hash{}, err
	}
	if !exists {
		return block.Hash{}, fmt.Errorf("cement: cemented frontier %s missing for account %s", height.Frontier, account)
	}
	return frontierSt.Sideband.Successor, nil
}

// cascadeDependent enqueues a section cementing src's own chain up to its
// sideband height, if it isn't cemented yet (spec.md §4.4 step 5: "receive's
// source account's confirmation cascades").
func (c *Cementor) cascadeDependent(tx *kvstore.Tx, src block.Hash) error {
	srcSt, exists, err := tx.GetBlock(src)
	if err != nil || !exists {
		return err
	}
	srcHeight, err := tx.GetConfirmationHeight(srcSt.Sideband.Account)
	if err != nil {
		return err
	}
	if srcSt.Sideband.Height <= srcHeight.Height {
		return nil
	}
	c.mu.Lock()
	c.sections.push(Section{
		Account: srcSt.Sideband.Account,
		Bottom:  srcHeight.Height + 1,
		Top:     srcSt.Sideband.Height,
		TopHash: src,
	})
	c.mu.Unlock()
	return nil
}

// receiveSource reports the send hash a cemented block depended on, using
// the already-validated sideband flag rather than reclassifying the block.
func receiveSource(st block.Stored) (block.Hash, bool) {
	if !st.Sideband.Details.IsReceive {
		return block.Hash{}, false
	}
	switch st.Block.Kind {
	case block.KindReceive, block.KindOpen:
		return st.Block.Source, true
	case block.KindState:
		return st.Block.Link, true
	default:
		return block.Hash{}, false
	}
}
