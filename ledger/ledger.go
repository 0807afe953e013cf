// Package ledger implements the ledger mutator (component C4): the only
// component allowed to turn a validator.Plan into committed store state.
// Grounded on the teacher's node/chainstate.go connect/disconnect pairing
// (apply a delta forward, invert it backward) generalized from a single
// UTXO set to per-account chain state plus representative weights.
package ledger

import (
	"fmt"
	"sync"

	"github.com/latticenet/node/block"
	"github.com/latticenet/node/cryptosuite"
	"github.com/latticenet/node/kvstore"
	"github.com/latticenet/node/validator"
)

// LedgerError is a stable, typed failure distinct from validator.ErrorCode:
// these are ledger-level refusals (cemented, missing) rather than per-block
// validation outcomes.
type LedgerErrorCode string

const (
	ErrCemented    LedgerErrorCode = "CEMENTED"
	ErrNotFound    LedgerErrorCode = "NOT_FOUND"
	ErrNotAncestor LedgerErrorCode = "NOT_ANCESTOR"
)

type LedgerError struct {
	Code LedgerErrorCode
	Msg  string
}

func (e *LedgerError) Error() string {
	if e.Msg == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func lerr(code LedgerErrorCode, format string, args ...any) error {
	return &LedgerError{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// Observation is emitted after a Process commits (spec.md §4.2 "Emits an
// observation (account, block, is_send, is_epoch)").
type Observation struct {
	Account   block.Hash
	BlockHash block.Hash
	IsSend    bool
	IsEpoch   bool
}

// Ledger wraps a kvstore.Store with the validator and exposes the mutation
// and query surface spec.md §4.2 names.
type Ledger struct {
	store        *kvstore.Store
	net          cryptosuite.NetworkThresholds
	epochSigners cryptosuite.EpochSigners

	mu        sync.Mutex
	observers []func(Observation)
}

func New(store *kvstore.Store, net cryptosuite.NetworkThresholds, epochSigners cryptosuite.EpochSigners) *Ledger {
	return &Ledger{store: store, net: net, epochSigners: epochSigners}
}

// Observe registers fn to be called after every committed Process. fn must
// not call back into the ledger (spec.md §5 "observers must not call back
// into the cementer" applies equally here).
func (l *Ledger) Observe(fn func(Observation)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.observers = append(l.observers, fn)
}

func (l *Ledger) emit(obs Observation) {
	l.mu.Lock()
	observers := append([]func(Observation){}, l.observers...)
	l.mu.Unlock()
	for _, fn := range observers {
		fn(obs)
	}
}

// Process validates blk against the current store state and, if it passes,
// commits the resulting Plan atomically (spec.md §4.2).
func (l *Ledger) Process(blk block.Block) (*validator.Plan, error) {
	var plan *validator.Plan
	err := l.store.Update(func(tx *kvstore.Tx) error {
		p, err := validator.Validate(tx, blk, l.net, l.epochSigners)
		if err != nil {
			return err
		}
		if err := applyPlan(tx, p); err != nil {
			return err
		}
		plan = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	l.emit(Observation{
		Account:   plan.Sideband.Account,
		BlockHash: plan.Hash,
		IsSend:    plan.IsSend,
		IsEpoch:   plan.IsEpoch,
	})
	return plan, nil
}

func applyPlan(tx *kvstore.Tx, p *validator.Plan) error {
	st := block.Stored{Block: p.Block, Sideband: p.Sideband}
	if err := tx.PutBlock(p.Hash, st); err != nil {
		return err
	}
	if !p.Block.Previous.IsZero() {
		prevSt, found, err := tx.GetBlock(p.Block.Previous)
		if err != nil {
			return err
		}
		if found {
			prevSt.Sideband.Successor = p.Hash
			if err := tx.PutBlock(p.Block.Previous, *prevSt); err != nil {
				return err
			}
		}
	}
	if err := tx.PutAccount(p.Sideband.Account, p.AccountAfter); err != nil {
		return err
	}
	if p.PendingInsertKey != nil {
		if err := tx.PutPending(*p.PendingInsertKey, *p.PendingInsertValue); err != nil {
			return err
		}
	}
	if p.PendingDeleteKey != nil {
		if err := tx.DeletePending(*p.PendingDeleteKey); err != nil {
			return err
		}
	}
	for _, d := range p.WeightDeltas {
		if err := tx.AddRepWeight(d.Representative, d.Amount, d.Subtract); err != nil {
			return err
		}
	}
	return nil
}

// --- queries (spec.md §4.2) ---

func (l *Ledger) AccountHead(account block.Hash) (block.Hash, error) {
	var head block.Hash
	err := l.store.View(func(tx *kvstore.Tx) error {
		info, found, err := tx.GetAccount(account)
		if err != nil || !found {
			return err
		}
		head = info.Head
		return nil
	})
	return head, err
}

func (l *Ledger) AccountBalance(account block.Hash) (block.Amount, error) {
	var bal block.Amount
	err := l.store.View(func(tx *kvstore.Tx) error {
		info, found, err := tx.GetAccount(account)
		if err != nil || !found {
			return err
		}
		bal = info.Balance
		return nil
	})
	return bal, err
}

func (l *Ledger) BlockSuccessor(hash block.Hash) (block.Hash, bool, error) {
	var succ block.Hash
	var found bool
	err := l.store.View(func(tx *kvstore.Tx) error {
		st, exists, err := tx.GetBlock(hash)
		if err != nil || !exists {
			return err
		}
		succ = st.Sideband.Successor
		found = !succ.IsZero()
		return nil
	})
	return succ, found, err
}

func (l *Ledger) BlockExistsOrPruned(hash block.Hash) (bool, error) {
	var ok bool
	err := l.store.View(func(tx *kvstore.Tx) error {
		var err error
		ok, err = tx.BlockExistsOrPruned(hash)
		return err
	})
	return ok, err
}

func (l *Ledger) Weight(rep block.Hash) (block.Amount, error) {
	var w block.Amount
	err := l.store.View(func(tx *kvstore.Tx) error {
		var err error
		w, err = tx.GetRepWeight(rep)
		return err
	})
	return w, err
}

func (l *Ledger) GetBlock(hash block.Hash) (*block.Stored, bool, error) {
	var st *block.Stored
	var found bool
	err := l.store.View(func(tx *kvstore.Tx) error {
		var err error
		st, found, err = tx.GetBlock(hash)
		return err
	})
	return st, found, err
}

// ConfirmedHead returns the frontier hash of account's cemented chain, or
// the zero hash if nothing has been cemented yet.
func (l *Ledger) ConfirmedHead(account block.Hash) (block.Hash, error) {
	var head block.Hash
	err := l.store.View(func(tx *kvstore.Tx) error {
		info, err := tx.GetConfirmationHeight(account)
		if err != nil {
			return err
		}
		head = info.Frontier
		return nil
	})
	return head, err
}

func (l *Ledger) GetPending(key kvstore.PendingKey) (*kvstore.PendingValue, bool, error) {
	var v *kvstore.PendingValue
	var found bool
	err := l.store.View(func(tx *kvstore.Tx) error {
		var err error
		v, found, err = tx.GetPending(key)
		return err
	})
	return v, found, err
}

// DependentsConfirmed reports whether every block a confirmation of hash
// depends on is itself already cemented: its previous block (same account,
// cemented once the account's confirmation height reaches hash's height
// minus one) and, if hash is a receive, the send block it references
// (spec.md §4.2, feeds C9's admission check).
func (l *Ledger) DependentsConfirmed(hash block.Hash) (bool, error) {
	ok := true
	err := l.store.View(func(tx *kvstore.Tx) error {
		st, exists, err := tx.GetBlock(hash)
		if err != nil {
			return err
		}
		if !exists {
			ok = false
			return nil
		}
		own, err := tx.GetConfirmationHeight(st.Sideband.Account)
		if err != nil {
			return err
		}
		if st.Sideband.Height > own.Height+1 {
			ok = false
			return nil
		}
		source, isReceive, err := receiveSource(tx, st.Block)
		if err != nil {
			return err
		}
		if !isReceive {
			return nil
		}
		sourceSt, exists, err := tx.GetBlock(source)
		if err != nil {
			return err
		}
		if !exists {
			ok = false
			return nil
		}
		height, err := tx.GetConfirmationHeight(sourceSt.Sideband.Account)
		if err != nil {
			return err
		}
		ok = sourceSt.Sideband.Height <= height.Height
		return nil
	})
	return ok, err
}

// receiveSource reports the send-block hash a block depends on, if it is a
// receive in disguise or otherwise. State blocks need the previous block's
// balance to tell a receive from a send/change/epoch, the same
// classification validator.planState uses.
func receiveSource(tx *kvstore.Tx, b block.Block) (source block.Hash, isReceive bool, err error) {
	switch b.Kind {
	case block.KindReceive, block.KindOpen:
		return b.Source, true, nil
	case block.KindState:
		if b.Link.IsZero() || b.Link == block.EpochLink {
			return block.Hash{}, false, nil
		}
		if b.Previous.IsZero() {
			return b.Link, true, nil
		}
		prevSt, exists, err := tx.GetBlock(b.Previous)
		if err != nil {
			return block.Hash{}, false, err
		}
		if !exists {
			return block.Hash{}, false, nil
		}
		if b.Balance.Cmp(prevSt.Sideband.Balance) > 0 {
			return b.Link, true, nil
		}
		return block.Hash{}, false, nil
	default:
		return block.Hash{}, false, nil
	}
}
