package voting

import (
	"container/list"
	"sync"
	"time"

	"github.com/latticenet/node/block"
)

// spacingEntry remembers the last time this node voted for root, and which
// hash it voted for, so a later vote for the SAME hash within the delay
// window is suppressed but a fork-switch vote is still allowed through
// (vote_generator.rs's VoteSpacing distinguishes these).
type spacingEntry struct {
	Root    block.Hash
	Hash    block.Hash
	VotedAt time.Time
}

// MaxSpacingEntries bounds memory; oldest entries are evicted first.
const MaxSpacingEntries = 2048

// Spacing enforces a minimum delay between votes for the same root, unless
// the candidate hash has changed (a fork switch is always re-votable).
type Spacing struct {
	delay time.Duration

	mu      sync.Mutex
	order   *list.List
	byRoot  map[block.Hash]*list.Element
}

func NewSpacing(delay time.Duration) *Spacing {
	return &Spacing{
		delay:  delay,
		order:  list.New(),
		byRoot: make(map[block.Hash]*list.Element),
	}
}

// Votable reports whether root/hash may be voted for now.
func (s *Spacing) Votable(root, hash block.Hash) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	el, ok := s.byRoot[root]
	if !ok {
		return true
	}
	e := el.Value.(*spacingEntry)
	if e.Hash != hash {
		return true
	}
	return time.Since(e.VotedAt) >= s.delay
}

// Record marks root/hash as just voted for.
func (s *Spacing) Record(root, hash block.Hash) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if el, ok := s.byRoot[root]; ok {
		s.order.Remove(el)
	}
	el := s.order.PushBack(&spacingEntry{Root: root, Hash: hash, VotedAt: time.Now()})
	s.byRoot[root] = el
	for s.order.Len() > MaxSpacingEntries {
		front := s.order.Front()
		if front == nil {
			break
		}
		old := front.Value.(*spacingEntry)
		s.order.Remove(front)
		delete(s.byRoot, old.Root)
	}
}
