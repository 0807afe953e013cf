// Package prune implements the pruner's scheduling and invocation cadence
// (component C13): a bounded backward walk from cemented frontiers,
// batch-limited and re-entered across writequeue acquisitions so it never
// holds the write lock for an unbounded stretch. The bounded per-account
// walk itself lives in ledger.PruningAction (C4); this package is the
// cadence/target-collection loop around it, grounded on
// original_source/node/src/pruning.rs's ledger_pruning outer loop.
package prune

import (
	"context"
	"time"

	"github.com/latticenet/node/block"
	"github.com/latticenet/node/kvstore"
	"github.com/latticenet/node/ledger"
	"github.com/latticenet/node/writequeue"
)

// Config mirrors the original's max_pruning_depth/max_pruning_age_s knobs
// (spec.md §4.13).
type Config struct {
	BatchSize int
	MaxDepth  uint64 // 0 means unbounded
}

func DefaultConfig() Config {
	return Config{BatchSize: 2048, MaxDepth: 0}
}

// Pruner periodically collects pruning targets (cemented frontiers deep
// enough behind the confirmed tip) and invokes ledger.PruningAction under
// the writequeue's Pruning holder.
type Pruner struct {
	store *kvstore.Store
	queue *writequeue.Queue
	l     *ledger.Ledger
	cfg   Config
}

func New(store *kvstore.Store, queue *writequeue.Queue, l *ledger.Ledger, cfg Config) *Pruner {
	return &Pruner{store: store, queue: queue, l: l, cfg: cfg}
}

// Run sweeps every interval until ctx is cancelled.
func (p *Pruner) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = p.SweepOnce(ctx)
		}
	}
}

// SweepOnce collects a batch of pruning targets (cemented-but-not-yet-pruned
// account frontiers) and prunes them one account at a time, returning the
// total number of blocks pruned.
func (p *Pruner) SweepOnce(ctx context.Context) (int, error) {
	targets, err := p.collectTargets()
	if err != nil || len(targets) == 0 {
		return 0, err
	}

	release, err := p.queue.Acquire(ctx, writequeue.Pruning)
	if err != nil {
		return 0, err
	}
	defer release()

	total := 0
	for _, frontier := range targets {
		n, err := p.l.PruningAction(frontier, p.cfg.BatchSize)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// collectTargets walks every account's confirmation-height frontier,
// skipping ones already fully pruned or too shallow to prune under
// Config.MaxDepth (spec.md §4.13).
func (p *Pruner) collectTargets() ([]block.Hash, error) {
	var targets []block.Hash
	err := p.store.View(func(tx *kvstore.Tx) error {
		accounts := tx.AccountsAfter(block.Hash{}, 1<<20)
		for _, account := range accounts {
			info, err := tx.GetConfirmationHeight(account)
			if err != nil {
				return err
			}
			if info.Frontier.IsZero() {
				continue
			}
			pruned, err := tx.IsPruned(info.Frontier)
			if err != nil {
				return err
			}
			if pruned {
				continue
			}
			if p.cfg.MaxDepth != 0 && info.Height <= p.cfg.MaxDepth {
				continue
			}
			targets = append(targets, info.Frontier)
		}
		return nil
	})
	return targets, err
}
