package scheduler

import (
	"context"
	"time"

	"github.com/latticenet/node/block"
	"github.com/latticenet/node/election"
	"github.com/latticenet/node/ledger"
)

// timeNow is a seam for deterministic activation-time tests.
var timeNow = func() uint64 { return uint64(time.Now().Unix()) }

// Admitter is what the scheduler hands winning blocks to; election.Router
// plus an election factory closure satisfies this in cmd/latticenode's
// wiring.
type Admitter interface {
	Admit(root block.Hash, hash block.Hash, blk block.Block, behavior election.Behavior) bool
}

// Scheduler pulls from Buckets round-robin and admits into elections
// whenever the admitter reports vacancy (spec.md §4.9).
type Scheduler struct {
	ledger   *ledger.Ledger
	buckets  *Buckets
	admitter Admitter

	pollInterval time.Duration
	rrCursor     int
}

func New(l *ledger.Ledger, admitter Admitter) *Scheduler {
	return &Scheduler{
		ledger:       l,
		buckets:      NewBuckets(),
		admitter:     admitter,
		pollInterval: 50 * time.Millisecond,
	}
}

// Activate enqueues account's next unconfirmed block for election,
// mirroring priority_scheduler.rs's activate(): it compares the confirmed
// frontier to the full-chain frontier, resolves the next block by
// successor, requires its dependents already be confirmed, and derives
// balance/time priority from the confirmed state. Returns false if the
// account has nothing new to activate.
func (s *Scheduler) Activate(account block.Hash) (bool, error) {
	confirmedHead, err := s.ledger.ConfirmedHead(account)
	if err != nil {
		return false, err
	}
	head, err := s.ledger.AccountHead(account)
	if err != nil {
		return false, err
	}
	if head == confirmedHead {
		return false, nil
	}

	var successor block.Hash
	if confirmedHead.IsZero() {
		// Brand new account: its own Open block is the first thing to activate.
		successor = head
		for {
			st, found, err := s.ledger.GetBlock(successor)
			if err != nil || !found {
				return false, err
			}
			if st.Block.Previous.IsZero() {
				break
			}
			successor = st.Block.Previous
		}
	} else {
		succ, ok, err := s.ledger.BlockSuccessor(confirmedHead)
		if err != nil || !ok {
			return false, err
		}
		successor = succ
	}

	st, found, err := s.ledger.GetBlock(successor)
	if err != nil || !found {
		return false, err
	}

	confirmed, err := s.ledger.DependentsConfirmed(successor)
	if err != nil || !confirmed {
		return false, err
	}

	var previousBalance block.Amount // confirmed-side balance; zero for a brand new account
	if !confirmedHead.IsZero() {
		if confirmedSt, found, err := s.ledger.GetBlock(confirmedHead); err == nil && found {
			previousBalance = confirmedSt.Sideband.Balance
		}
	}
	balancePriority := st.Block.Balance
	if previousBalance.Cmp(balancePriority) > 0 {
		balancePriority = previousBalance
	}

	timePriority := timeNow()
	if !confirmedHead.IsZero() {
		confirmedSt, found, err := s.ledger.GetBlock(confirmedHead)
		if err == nil && found {
			timePriority = confirmedSt.Sideband.Height // monotonic proxy for the original's frontier timestamp
		}
	}

	s.buckets.Push(timePriority, st.Block, successor, balancePriority)
	return true, nil
}

// ActivateSuccessors activates blk's own account and, if blk is a send,
// the destination account too (spec.md §4.9, grounded on
// priority_scheduler.rs's activate_successors).
func (s *Scheduler) ActivateSuccessors(account block.Hash, isSend bool, destination block.Hash) {
	_, _ = s.Activate(account)
	if isSend && !destination.IsZero() && destination != account {
		_, _ = s.Activate(destination)
	}
}

func (s *Scheduler) Len() int { return s.buckets.Len() }

// Run polls Buckets and admits into elections while the admitter reports
// vacancy, stopping on ctx cancellation.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.drainOnce()
		}
	}
}

func (s *Scheduler) drainOnce() {
	for {
		blk, hash, ok := s.buckets.Pop(s.rrCursor)
		if !ok {
			return
		}
		s.rrCursor = (s.rrCursor + 1) % NumBuckets
		if !s.admitter.Admit(blk.Root(), hash, blk, election.Priority) {
			return
		}
	}
}
