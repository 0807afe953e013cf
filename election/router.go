package election

import (
	"sync"

	"github.com/latticenet/node/block"
	"github.com/latticenet/node/metrics"
	"github.com/latticenet/node/votecache"
)

// Router dispatches inbound votes to live elections, keyed by candidate
// block hash, and falls back to the vote cache / recently-confirmed set
// when no election is currently contesting that hash (spec.md §4.5,
// grounded on original_source/node/src/consensus/vote_router.rs's
// vote_filter: Hash -> Weak<Election> map plus recently_confirmed lookup
// for Replay classification). Elections disconnect themselves explicitly
// on confirmation/expiry rather than relying on reference-count decay.
type Router struct {
	mu        sync.Mutex
	byHash    map[block.Hash]*Election
	cache     *votecache.Cache
	confirmed *votecache.RecentlyConfirmed

	observersMu sync.Mutex
	observers   []func(vote block.Vote, hash block.Hash, code VoteCode)
}

func NewRouter(cache *votecache.Cache, confirmed *votecache.RecentlyConfirmed) *Router {
	return &Router{
		byHash:    make(map[block.Hash]*Election),
		cache:     cache,
		confirmed: confirmed,
	}
}

// Observe registers a callback invoked after every per-hash vote outcome,
// mirroring vote_router.rs's on_vote_processed hook.
func (r *Router) Observe(fn func(vote block.Vote, hash block.Hash, code VoteCode)) {
	r.observersMu.Lock()
	defer r.observersMu.Unlock()
	r.observers = append(r.observers, fn)
}

func (r *Router) emit(vote block.Vote, hash block.Hash, code VoteCode) {
	r.observersMu.Lock()
	obs := append([]func(block.Vote, block.Hash, VoteCode){}, r.observers...)
	r.observersMu.Unlock()
	for _, fn := range obs {
		fn(vote, hash, code)
	}
}

// Connect registers an election as the live contest for hash. A hash may
// be connected to at most one election at a time; connecting a second
// time for the same hash replaces the mapping (a later-arriving fork
// candidate election wins the route).
func (r *Router) Connect(hash block.Hash, e *Election) {
	r.mu.Lock()
	r.byHash[hash] = e
	r.updateActiveGaugeLocked()
	r.mu.Unlock()

	if r.cache != nil {
		if cached, ok := r.cache.Take(hash); ok {
			for _, cv := range cached {
				ts := cv.Timestamp
				if cv.Final {
					ts = block.FinalTimestamp
				}
				e.ApplyVote(cv.Voter, ts, hash, SourceCache)
			}
		}
	}
}

// Disconnect removes the routing entry for a single hash.
func (r *Router) Disconnect(hash block.Hash) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byHash, hash)
	r.updateActiveGaugeLocked()
}

// DisconnectElection removes every hash this router currently routes to e
// (called once, on an election's terminal transition).
func (r *Router) DisconnectElection(e *Election) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for hash, el := range r.byHash {
		if el == e {
			delete(r.byHash, hash)
		}
	}
	r.updateActiveGaugeLocked()
}

// updateActiveGaugeLocked recomputes the distinct-election count routed by
// this router and publishes it (spec.md §1 "elections active"). Caller must
// hold r.mu.
func (r *Router) updateActiveGaugeLocked() {
	seen := make(map[*Election]struct{}, len(r.byHash))
	for _, e := range r.byHash {
		seen[e] = struct{}{}
	}
	metrics.ElectionsActive.Set(float64(len(seen)))
}

// Lookup returns the live election routing hash, if any.
func (r *Router) Lookup(hash block.Hash) (*Election, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byHash[hash]
	return e, ok
}

// Vote applies every hash in vote against its routed election (if any),
// else classifies it Replay (already confirmed) or Indeterminate (unknown,
// cached for a future election to replay), returning one VoteCode per hash.
func (r *Router) Vote(vote block.Vote, source VoteSource) map[block.Hash]VoteCode {
	results := make(map[block.Hash]VoteCode, len(vote.Hashes))
	for _, hash := range vote.Hashes {
		code := r.voteOne(vote, hash, source)
		results[hash] = code
		metrics.VotesProcessedTotal.WithLabelValues(code.String()).Inc()
		r.emit(vote, hash, code)
	}
	return results
}

func (r *Router) voteOne(vote block.Vote, hash block.Hash, source VoteSource) VoteCode {
	r.mu.Lock()
	e, routed := r.byHash[hash]
	r.mu.Unlock()

	if routed {
		code, confirmed := e.ApplyVote(vote.Account, vote.Timestamp, hash, source)
		if confirmed {
			r.DisconnectElection(e)
			if r.confirmed != nil {
				r.confirmed.Insert(votecache.RootHash{Root: e.Root, Hash: e.Winner()})
			}
		}
		return code
	}

	if r.confirmed != nil && r.confirmed.HashExists(hash) {
		return Replay
	}

	if r.cache != nil {
		r.cache.Insert(hash, votecache.CachedVote{
			Voter:     vote.Account,
			Timestamp: vote.Timestamp,
			Final:     vote.IsFinal(),
		})
	}
	return Indeterminate
}
