// Package votecache implements the vote cache and recently-confirmed
// memories (component C8): short-term structures that dedupe vote traffic
// and let a freshly-created election replay votes that arrived before it
// existed. Grounded on the teacher's bounded-map idiom generalized from
// node/store/work.go's LRU-style eviction, and on
// original_source/node/src/consensus/vote_router.rs's RecentlyConfirmedCache
// usage pattern (hash_exists lookups gating Replay vs Indeterminate).
package votecache

import (
	"container/list"
	"sync"

	"github.com/latticenet/node/block"
)

// CachedVote is one indeterminate vote remembered against a candidate hash.
type CachedVote struct {
	Voter     block.Hash
	Timestamp uint64
	Final     bool
}

// MaxHashesPerEntry caps how many distinct voters' votes one cache entry
// remembers (spec.md §4.6 "a small deque of recent indeterminate votes (at
// most MAX_HASHES)").
const MaxHashesPerEntry = 16

type entry struct {
	hash  block.Hash
	votes []CachedVote
}

// Cache is a bounded LRU of block hash -> recent indeterminate votes.
type Cache struct {
	mu       sync.Mutex
	capacity int
	order    *list.List // front = most recently used
	index    map[block.Hash]*list.Element
}

func NewCache(capacity int) *Cache {
	return &Cache{
		capacity: capacity,
		order:    list.New(),
		index:    make(map[block.Hash]*list.Element),
	}
}

// Insert records a vote for hash by voter, replacing that voter's prior
// entry if newer, and touches hash to the front of the LRU.
func (c *Cache) Insert(hash block.Hash, vote CachedVote) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, found := c.index[hash]
	if !found {
		el = c.order.PushFront(&entry{hash: hash})
		c.index[hash] = el
		c.evictIfOverCapacity()
	} else {
		c.order.MoveToFront(el)
	}
	e := el.Value.(*entry)
	for i, v := range e.votes {
		if v.Voter == vote.Voter {
			if vote.Timestamp > v.Timestamp {
				e.votes[i] = vote
			}
			return
		}
	}
	e.votes = append(e.votes, vote)
	if len(e.votes) > MaxHashesPerEntry {
		e.votes = e.votes[len(e.votes)-MaxHashesPerEntry:]
	}
}

// Take removes and returns hash's cached votes, if any (consumed once a new
// election replays them).
func (c *Cache) Take(hash block.Hash) ([]CachedVote, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, found := c.index[hash]
	if !found {
		return nil, false
	}
	e := el.Value.(*entry)
	c.order.Remove(el)
	delete(c.index, hash)
	return e.votes, true
}

func (c *Cache) evictIfOverCapacity() {
	for c.order.Len() > c.capacity {
		back := c.order.Back()
		if back == nil {
			return
		}
		c.order.Remove(back)
		delete(c.index, back.Value.(*entry).hash)
	}
}

// Len reports the number of distinct hashes currently cached.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
