// Package reptiers tracks trended online weight and representative tiers
// (component C11): an EMA of recently-seen voting weight, a periodic sweep
// that buckets representatives into Tier1/Tier2/Tier3 by weight share, and
// a peered-rep set keyed by channel id and last-heard timestamp. Grounded
// on original_source/rust/node/src/consensus/rep_tiers.rs's tiering sweep
// and original_source/node/tests/tests/rep_crawler.rs's peered-rep
// expectations (channel id + last-heard).
package reptiers

import (
	"sync"
	"time"

	"github.com/latticenet/node/block"
	"github.com/latticenet/node/kvstore"
)

// Tier is a representative's weight bucket, used by the solicitor (C10) and
// router to prioritize confirmation-request fanout.
type Tier int

const (
	TierNone Tier = iota
	Tier3
	Tier2
	Tier1
)

// SweepInterval is the production tiering cadence (spec.md §4.9 "10-minute
// (500ms dev) tiering sweep").
var SweepInterval = 10 * time.Minute

// DevSweepInterval is used by tests and dev networks.
const DevSweepInterval = 500 * time.Millisecond

// emaAlpha weights the most recent online-weight sample; chosen to match
// the original's multi-minute smoothing window without needing a full
// sample history.
const emaAlpha = 0.2

type peerInfo struct {
	channelID string
	lastHeard time.Time
}

// Tracker maintains the EMA-trended online weight and the tier assignment
// for every representative with known weight.
type Tracker struct {
	store *kvstore.Store

	mu      sync.RWMutex
	online  block.Amount
	tiers   map[block.Hash]Tier
	peers   map[block.Hash]peerInfo
}

func New(store *kvstore.Store) *Tracker {
	return &Tracker{
		store: store,
		tiers: make(map[block.Hash]Tier),
		peers: make(map[block.Hash]peerInfo),
	}
}

// Weight satisfies election.WeightSource by reading rep_weights directly;
// online weight is a trended quantity but per-rep weight is not.
func (t *Tracker) Weight(rep block.Hash) (block.Amount, error) {
	var w block.Amount
	err := t.store.View(func(tx *kvstore.Tx) error {
		var err error
		w, err = tx.GetRepWeight(rep)
		return err
	})
	return w, err
}

// TrendedOnlineWeight satisfies election.WeightSource.
func (t *Tracker) TrendedOnlineWeight() block.Amount {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.online
}

// Observe folds one online-weight sample (e.g. taken from a periodic
// sampler writing kvstore.OnlineWeightSample entries) into the EMA.
func (t *Tracker) Observe(sample block.Amount) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.online.IsZero() {
		t.online = sample
		return
	}
	// EMA over 128-bit amounts done in float64 terms for simplicity; online
	// weight is an advisory trended figure, not a ledger-exact quantity.
	cur := amountToFloat(t.online)
	next := amountToFloat(sample)
	blended := cur*(1-emaAlpha) + next*emaAlpha
	t.online = floatToAmount(blended)
}

func amountToFloat(a block.Amount) float64 {
	return float64(a.Hi)*18446744073709551616.0 + float64(a.Lo)
}

func floatToAmount(f float64) block.Amount {
	if f < 0 {
		f = 0
	}
	hi := uint64(f / 18446744073709551616.0)
	lo := uint64(f - float64(hi)*18446744073709551616.0)
	return block.Amount{Hi: hi, Lo: lo}
}

// Sweep recomputes tier assignments for every rep_weights entry against the
// current trended online weight, per rep_tiers.rs's threshold bands:
// Tier1 >= 1/1000 of online weight, Tier2 >= 1/10000, Tier3 >= 1/100000.
func (t *Tracker) Sweep() error {
	online := t.TrendedOnlineWeight()
	newTiers := make(map[block.Hash]Tier)
	err := t.store.View(func(tx *kvstore.Tx) error {
		return tx.ForEachRepWeight(func(rep block.Hash, weight block.Amount) error {
			newTiers[rep] = classify(weight, online)
			return nil
		})
	})
	if err != nil {
		return err
	}
	t.mu.Lock()
	t.tiers = newTiers
	t.mu.Unlock()
	return nil
}

func classify(weight, online block.Amount) Tier {
	if online.IsZero() {
		return TierNone
	}
	of := amountToFloat(weight)
	total := amountToFloat(online)
	switch {
	case of >= total/1000:
		return Tier1
	case of >= total/10000:
		return Tier2
	case of >= total/100000:
		return Tier3
	default:
		return TierNone
	}
}

// TierOf returns rep's last-swept tier.
func (t *Tracker) TierOf(rep block.Hash) Tier {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.tiers[rep]
}

// NoteHeard records that a representative's vote was just heard from
// channelID, keeping the peered-rep set fresh.
func (t *Tracker) NoteHeard(rep block.Hash, channelID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.peers[rep] = peerInfo{channelID: channelID, lastHeard: time.Now()}
}

// PeeredChannel returns the channel a representative was last heard on, if
// any sample exists within maxAge.
func (t *Tracker) PeeredChannel(rep block.Hash, maxAge time.Duration) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.peers[rep]
	if !ok || time.Since(p.lastHeard) > maxAge {
		return "", false
	}
	return p.channelID, true
}
