package cement

import "github.com/latticenet/node/block"

// Section is a pending (bottom, top) chain slice awaiting cementation for
// one account (spec.md §4.4 step 1-2). Sections for a given account must
// cement bottom-up; sectionQueue enforces that by FIFO order alone since
// notifications only ever arrive for increasing heights.
type Section struct {
	Account block.Hash
	Bottom  uint64
	Top     uint64
	TopHash block.Hash
}

// sectionQueue is the per-account FIFO of pending sections plus an
// insertion-ordered list of accounts with at least one pending section, so
// draining can round-robin accounts instead of starving whichever arrived
// first.
type sectionQueue struct {
	byAccount map[block.Hash][]Section
	order     []block.Hash
}

func newSectionQueue() *sectionQueue {
	return &sectionQueue{byAccount: make(map[block.Hash][]Section)}
}

func (q *sectionQueue) push(sec Section) {
	existing, found := q.byAccount[sec.Account]
	if !found {
		q.order = append(q.order, sec.Account)
	}
	q.byAccount[sec.Account] = append(existing, sec)
}

// pushFront re-queues a partially-completed section ahead of any other
// pending section for the same account.
func (q *sectionQueue) pushFront(sec Section) {
	existing, found := q.byAccount[sec.Account]
	if !found {
		q.order = append([]block.Hash{sec.Account}, q.order...)
	}
	q.byAccount[sec.Account] = append([]Section{sec}, existing...)
}

// popFront removes and returns the oldest section belonging to the
// longest-waiting account, round-robining across accounts.
func (q *sectionQueue) popFront() (Section, bool) {
	for len(q.order) > 0 {
		account := q.order[0]
		secs := q.byAccount[account]
		if len(secs) == 0 {
			q.order = q.order[1:]
			delete(q.byAccount, account)
			continue
		}
		sec := secs[0]
		rest := secs[1:]
		if len(rest) == 0 {
			q.order = q.order[1:]
			delete(q.byAccount, account)
		} else {
			q.byAccount[account] = rest
			q.order = append(q.order[1:], account)
		}
		return sec, true
	}
	return Section{}, false
}

func (q *sectionQueue) empty() bool {
	return len(q.order) == 0
}
