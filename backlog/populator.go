// Package backlog implements the backlog populator (component C12): a
// periodic sweep over every account, activating whichever ones have an
// unconfirmed frontier so the scheduler picks them up. Grounded on
// original_source/node/src/block_processing/backlog_population.rs's
// batch_size/frequency-paced sweep plus its always-on manual-trigger
// escape hatch.
package backlog

import (
	"context"
	"time"

	"github.com/latticenet/node/block"
	"github.com/latticenet/node/kvstore"
)

// Config mirrors BacklogPopulationConfig (spec.md §4.12).
type Config struct {
	Enabled   bool
	BatchSize int // accounts processed per second
	Frequency int // batches run per second
}

func DefaultConfig() Config {
	return Config{Enabled: true, BatchSize: 10_000, Frequency: 10}
}

// Activator is called once per backlogged account; scheduler.Scheduler.Activate
// satisfies this signature.
type Activator func(account block.Hash) (bool, error)

// Populator walks kvstore's accounts bucket in batches, calling Activate
// for every account whose frontier isn't yet confirmed.
type Populator struct {
	store    *kvstore.Store
	activate Activator
	cfg      Config

	trigger chan struct{}
}

func New(store *kvstore.Store, cfg Config, activate Activator) *Populator {
	return &Populator{
		store:    store,
		activate: activate,
		cfg:      cfg,
		trigger:  make(chan struct{}, 1),
	}
}

// Trigger requests an immediate sweep regardless of Config.Enabled, mirroring
// the original's RPC-triggered manual run.
func (p *Populator) Trigger() {
	select {
	case p.trigger <- struct{}{}:
	default:
	}
}

// Run sweeps every Config.Frequency interval while enabled, plus whenever
// Trigger fires, until ctx is cancelled.
func (p *Populator) Run(ctx context.Context) {
	interval := time.Second
	if p.cfg.Frequency > 0 {
		interval = time.Second / time.Duration(p.cfg.Frequency)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	batchPerTick := p.cfg.BatchSize
	if p.cfg.Frequency > 0 {
		batchPerTick = p.cfg.BatchSize / p.cfg.Frequency
	}
	if batchPerTick <= 0 {
		batchPerTick = 1
	}

	var cursor block.Hash
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.trigger:
			cursor = p.sweepBatch(cursor, batchPerTick)
		case <-ticker.C:
			if !p.cfg.Enabled {
				continue
			}
			cursor = p.sweepBatch(cursor, batchPerTick)
		}
	}
}

// sweepBatch activates up to n accounts starting after cursor (exclusive),
// wrapping around to the start once it reaches the end, and returns the new
// cursor.
func (p *Populator) sweepBatch(cursor block.Hash, n int) block.Hash {
	var next block.Hash
	var accounts []block.Hash
	_ = p.store.View(func(tx *kvstore.Tx) error {
		accounts = tx.AccountsAfter(cursor, n)
		return nil
	})
	for _, account := range accounts {
		_, _ = p.activate(account)
		next = account
	}
	if len(accounts) < n {
		// Reached the end of the account table; wrap around next sweep.
		next = block.Hash{}
	}
	return next
}
