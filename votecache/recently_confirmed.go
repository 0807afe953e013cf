package votecache

import (
	"container/list"
	"sync"

	"github.com/latticenet/node/block"
)

// RootHash is the (root, hash) pair a confirmed election is remembered by
// (spec.md §4.6 "bounded FIFO of (root,hash) pairs").
type RootHash struct {
	Root block.Hash
	Hash block.Hash
}

// RecentlyConfirmed is a bounded FIFO queried on the hot vote path to turn
// a vote for an already-decided election into Replay instead of
// Indeterminate.
type RecentlyConfirmed struct {
	mu       sync.Mutex
	capacity int
	order    *list.List
	byHash   map[block.Hash]*list.Element
	byRoot   map[block.Hash]*list.Element
}

func NewRecentlyConfirmed(capacity int) *RecentlyConfirmed {
	return &RecentlyConfirmed{
		capacity: capacity,
		order:    list.New(),
		byHash:   make(map[block.Hash]*list.Element),
		byRoot:   make(map[block.Hash]*list.Element),
	}
}

// Insert records rh as confirmed, evicting the oldest entry if over
// capacity.
func (r *RecentlyConfirmed) Insert(rh RootHash) {
	r.mu.Lock()
	defer r.mu.Unlock()

	el := r.order.PushBack(rh)
	r.byHash[rh.Hash] = el
	r.byRoot[rh.Root] = el
	for r.order.Len() > r.capacity {
		front := r.order.Front()
		if front == nil {
			break
		}
		old := front.Value.(RootHash)
		r.order.Remove(front)
		delete(r.byHash, old.Hash)
		delete(r.byRoot, old.Root)
	}
}

func (r *RecentlyConfirmed) HashExists(hash block.Hash) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.byHash[hash]
	return ok
}

func (r *RecentlyConfirmed) RootExists(root block.Hash) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.byRoot[root]
	return ok
}

func (r *RecentlyConfirmed) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.order.Len()
}
