// Package election implements the election state machine and vote router
// (component C7): per-block elections, vote application with ordering and
// cooldown rules, and quorum/final-quorum detection. Grounded on
// original_source/node/src/consensus/vote_router.rs's hash->weak(election)
// map and dispatch (Replay/Indeterminate/apply-to-election), generalized
// from Rust's Weak<Election> (no analog needed in Go: elections disconnect
// themselves from the router explicitly on Confirmed/Expired instead of
// relying on reference-count decay).
package election

import (
	"math/big"
	"sync"
	"time"

	"github.com/latticenet/node/block"
)

// State is the election lifecycle (spec.md §4.5).
type State int

const (
	Passive State = iota
	Active
	Confirmed
	ExpiredConfirmed
	ExpiredUnconfirmed
)

func (s State) String() string {
	switch s {
	case Passive:
		return "passive"
	case Active:
		return "active"
	case Confirmed:
		return "confirmed"
	case ExpiredConfirmed:
		return "expired_confirmed"
	case ExpiredUnconfirmed:
		return "expired_unconfirmed"
	default:
		return "unknown"
	}
}

// Behavior is the creation-reason tag (spec.md §3 "Election").
type Behavior int

const (
	Priority Behavior = iota
	Hinted
	Optimistic
)

// VoteCode is the per-hash outcome of applying a vote (spec.md §7 "Vote
// outcome kinds").
type VoteCode int

const (
	Invalid VoteCode = iota
	Replay
	Vote
	Indeterminate
	Ignored
)

func (c VoteCode) String() string {
	switch c {
	case Invalid:
		return "invalid"
	case Replay:
		return "replay"
	case Vote:
		return "vote"
	case Indeterminate:
		return "indeterminate"
	case Ignored:
		return "ignored"
	default:
		return "unknown"
	}
}

// VoteSource distinguishes a vote delivered live from one replayed out of
// votecache.Cache.
type VoteSource int

const (
	SourceLive VoteSource = iota
	SourceCache
)

// WeightSource is what the election needs from the rest of the system to
// compute quorum: per-representative weight and the trended online total
// (reptiers.Tracker implements this).
type WeightSource interface {
	Weight(rep block.Hash) (block.Amount, error)
	TrendedOnlineWeight() block.Amount
}

// QuorumDelta is the fraction of online weight a winner's tally must exceed
// to confirm (spec.md §4.5 "typical 67%"), expressed as a ratio to avoid
// floating point over 128-bit amounts.
type QuorumDelta struct {
	Numerator   uint64
	Denominator uint64
}

var DefaultQuorumDelta = QuorumDelta{Numerator: 67, Denominator: 100}

// Threshold returns online*delta, computed over the full 128-bit amount.
func (d QuorumDelta) Threshold(online block.Amount) block.Amount {
	full := new(big.Int).Lsh(new(big.Int).SetUint64(online.Hi), 64)
	full.Add(full, new(big.Int).SetUint64(online.Lo))
	full.Mul(full, new(big.Int).SetUint64(d.Numerator))
	full.Div(full, new(big.Int).SetUint64(d.Denominator))
	buf := make([]byte, 16)
	full.FillBytes(buf)
	return block.Amount{
		Hi: beU64(buf[:8]),
		Lo: beU64(buf[8:]),
	}
}

func beU64(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}

type voteRecord struct {
	Voter     block.Hash
	Timestamp uint64
	Hash      block.Hash
}

// MaxForkDepth caps the number of distinct candidate hashes one election
// tracks (spec.md §4.5 "a per-election cap on distinct hashes (fork
// depth)").
const MaxForkDepth = 10

// CacheCooldown suppresses burst replays from votecache.Cache for the same
// voter within this window (spec.md §4.5, §9 "exact cooldown ... is
// configuration-driven ... should be exposed as tunables").
var CacheCooldown = 500 * time.Millisecond

// ExpiryDeadline is how long an election may run before expiring
// unconfirmed (spec.md §4.5 "a configurable deadline").
var ExpiryDeadline = 5 * time.Minute

// Election is the ephemeral per-root contest structure (spec.md §3
// "Election").
type Election struct {
	Root     block.Hash
	Behavior Behavior

	weights WeightSource
	quorum  QuorumDelta

	onConfirmed func(winner block.Hash)

	mu          sync.Mutex
	candidates  map[block.Hash]block.Block
	lastVote    map[block.Hash]voteRecord // voter -> record
	lastCacheAt map[block.Hash]time.Time  // voter -> last cache-sourced apply
	winner      block.Hash
	state       State
	created     time.Time
	confirmReqs int
}

// New creates a Passive election for root with winner as the initial
// candidate (spec.md §4.5 "Created by the scheduler (C9) for a specific
// root with an initial winner").
func New(root block.Hash, winner block.Hash, winnerBlock block.Block, behavior Behavior, weights WeightSource, onConfirmed func(block.Hash)) *Election {
	return &Election{
		Root:        root,
		Behavior:    behavior,
		weights:     weights,
		quorum:      DefaultQuorumDelta,
		onConfirmed: onConfirmed,
		candidates:  map[block.Hash]block.Block{winner: winnerBlock},
		lastVote:    make(map[block.Hash]voteRecord),
		lastCacheAt: make(map[block.Hash]time.Time),
		winner:      winner,
		state:       Passive,
		created:     time.Now(),
	}
}

func (e *Election) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Election) Winner() block.Hash {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.winner
}

// Activate transitions Passive -> Active on the first vote or broadcast
// (spec.md §4.5 "Active is entered when at least one vote or broadcast has
// occurred").
func (e *Election) Activate() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == Passive {
		e.state = Active
	}
}

// AddCandidate registers an additional fork candidate for this root, up to
// MaxForkDepth distinct hashes.
func (e *Election) AddCandidate(hash block.Hash, blk block.Block) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.candidates[hash]; exists {
		return true
	}
	if len(e.candidates) >= MaxForkDepth {
		return false
	}
	e.candidates[hash] = blk
	return true
}

// ApplyVote applies one (voter, timestamp, hash, source) vote under the
// election's own mutex (spec.md §5 "vote application order is serialized
// by the election's mutex"). It returns the outcome code and, if the
// election just confirmed, true.
func (e *Election) ApplyVote(voter block.Hash, timestamp uint64, hash block.Hash, source VoteSource) (VoteCode, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == Confirmed || e.state == ExpiredConfirmed || e.state == ExpiredUnconfirmed {
		return Ignored, false
	}
	if _, known := e.candidates[hash]; !known {
		return Ignored, false
	}

	if prev, ok := e.lastVote[voter]; ok {
		if timestamp <= prev.Timestamp {
			return Replay, false
		}
	}

	if source == SourceCache {
		if last, ok := e.lastCacheAt[voter]; ok && time.Since(last) < CacheCooldown {
			return Ignored, false
		}
		e.lastCacheAt[voter] = time.Now()
	}

	final := timestamp == block.FinalTimestamp
	e.lastVote[voter] = voteRecord{Voter: voter, Timestamp: timestamp, Hash: hash}
	if e.state == Passive {
		e.state = Active
	}

	confirmed := e.recomputeTallyLocked(final)
	return Vote, confirmed
}

// recomputeTallyLocked recomputes tally/final-tally from lastVote and
// transitions to Confirmed if the final-quorum threshold is met for the
// current winner (spec.md §4.5). Caller must hold e.mu.
func (e *Election) recomputeTallyLocked(observedFinal bool) (confirmed bool) {
	tally := make(map[block.Hash]block.Amount)
	finalTally := make(map[block.Hash]block.Amount)
	for _, rec := range e.lastVote {
		w, err := e.weights.Weight(rec.Voter)
		_ = err // unknown rep contributes zero weight
		tally[rec.Hash] = addAmount(tally[rec.Hash], w)
		if rec.Timestamp == block.FinalTimestamp {
			finalTally[rec.Hash] = addAmount(finalTally[rec.Hash], w)
		}
	}

	online := e.weights.TrendedOnlineWeight()
	threshold := e.quorum.Threshold(online)

	// Re-pick the winner as the candidate with the highest tally so a late
	// vote for a fork can still overtake the initial winner.
	for hash, amt := range tally {
		if amt.Cmp(tally[e.winner]) > 0 {
			e.winner = hash
		}
	}

	if amt, ok := finalTally[e.winner]; ok && amt.Cmp(threshold) > 0 {
		e.confirmLocked()
		return true
	}
	if observedFinal {
		e.confirmReqs++
	}
	return false
}

func addAmount(a, b block.Amount) block.Amount {
	sum, ok := a.Add(b)
	if !ok {
		return a
	}
	return sum
}

// confirmLocked transitions to Confirmed and fires onConfirmed. Caller must
// hold e.mu.
func (e *Election) confirmLocked() {
	if e.state == Confirmed {
		return
	}
	e.state = Confirmed
	if e.onConfirmed != nil {
		winner := e.winner
		go e.onConfirmed(winner)
	}
}

// Expire transitions a non-terminal election to ExpiredConfirmed (if it had
// already confirmed) or ExpiredUnconfirmed, if ExpiryDeadline has elapsed.
func (e *Election) Expire() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == ExpiredConfirmed || e.state == ExpiredUnconfirmed {
		return e.state
	}
	if time.Since(e.created) < ExpiryDeadline {
		return e.state
	}
	if e.state == Confirmed {
		e.state = ExpiredConfirmed
	} else {
		e.state = ExpiredUnconfirmed
	}
	return e.state
}
