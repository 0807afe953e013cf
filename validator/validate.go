package validator

import (
	"github.com/latticenet/node/block"
	"github.com/latticenet/node/cryptosuite"
	"github.com/latticenet/node/kvstore"
)

// BurnAccount is the well-known all-zero account; opening it is rejected so
// funds sent to the burn address can never re-enter circulation via a
// forged open block (spec.md §4.1 "OpenedBurnAccount").
var BurnAccount = block.Hash{}

// Validate runs the eight-step ordered check list (spec.md §4.1) against tx
// and returns either a *ValidationError (safe to report to the submitter and
// discard) or a mutation Plan ready for ledger.Ledger.Process.
func Validate(tx *kvstore.Tx, blk block.Block, net cryptosuite.NetworkThresholds, epochSigners cryptosuite.EpochSigners) (*Plan, error) {
	hash := blk.Hash()

	// 1. Presence.
	if _, exists, err := tx.GetBlock(hash); err != nil {
		return nil, err
	} else if exists {
		return nil, verr(Old, "block %s already present", hash)
	}

	// 2 & 3. Previous / account resolution.
	account, err := resolveAccount(tx, blk)
	if err != nil {
		return nil, err
	}

	existing, hasAccount, err := tx.GetAccount(account)
	if err != nil {
		return nil, err
	}
	if !hasAccount {
		existing = &kvstore.AccountInfo{}
	}

	// A legacy block can never follow a tip that has already upgraded to
	// State/epoch semantics — once an account's head is epoch>=1, only
	// State blocks may extend it (spec.md §4.1 step 2).
	if blk.IsLegacy() && hasAccount && existing.Epoch >= 1 {
		return nil, verr(BlockPosition, "legacy block cannot follow epoch-upgraded tip for account %s", account)
	}

	if blk.Kind == block.KindOpen || (blk.Kind == block.KindState && blk.Previous.IsZero()) {
		if account == BurnAccount {
			return nil, verr(OpenedBurnAccount, "cannot open the burn account")
		}
	}

	// 4. Signature. Pre-epoch-1 accounts get the legacy relaxation; anything
	// that has already upgraded past epoch 0 is verified strictly.
	mode := cryptosuite.VerifyStrict
	if existing.Epoch < 1 {
		mode = cryptosuite.VerifyRelaxedLegacy
	}
	if !cryptosuite.VerifySignature(account, hash, blk.Signature, mode) {
		return nil, verr(BadSignature, "signature does not verify for account %s", account)
	}

	// 5. Work. State blocks aren't fully classified yet, but isReceive is
	// only used to pick a lower bar from epoch 2 onward — a preliminary
	// guess from the raw balance comparison is sufficient here because the
	// full classification in step 7 can only make the check stricter, never
	// looser, for the cases that matter (a send masquerading as a receive
	// would fail balance semantics regardless of its work).
	prelimReceive := preliminaryIsReceive(blk, existing)
	if !cryptosuite.CheckWork(net, blk.Root(), blk.Work, existing.Epoch, prelimReceive) {
		return nil, verr(InsufficientWork, "work does not meet threshold")
	}

	// 6. Fork.
	if blk.Kind == block.KindOpen || (blk.Kind == block.KindState && blk.Previous.IsZero()) {
		if hasAccount {
			return nil, verr(Fork, "account %s already opened", account)
		}
	} else {
		if !hasAccount {
			return nil, verr(GapPrevious, "no account info for %s", account)
		}
		if existing.Head != blk.Previous {
			return nil, verr(Fork, "previous %s is not the current tip %s", blk.Previous, existing.Head)
		}
	}
	// 7 & 8. Balance semantics / epoch rules, per kind.
	switch blk.Kind {
	case block.KindSend:
		return planSend(hash, blk, account, *existing)
	case block.KindReceive:
		return planReceive(tx, hash, blk, account, *existing, blk.Source)
	case block.KindOpen:
		return planReceive(tx, hash, blk, account, kvstore.AccountInfo{}, blk.Source)
	case block.KindChange:
		return planChange(hash, blk, account, *existing)
	case block.KindState:
		return planState(tx, hash, blk, account, *existing, hasAccount, epochSigners)
	default:
		return nil, verr(BlockPosition, "unknown block kind %d", blk.Kind)
	}
}

// resolveAccount implements steps 2-3: find the previous block (if any) and
// the account the new block belongs to.
func resolveAccount(tx *kvstore.Tx, blk block.Block) (account block.Hash, err error) {
	if blk.Kind == block.KindOpen || (blk.Kind == block.KindState && blk.Previous.IsZero()) {
		return blk.Account, nil
	}

	if blk.Previous.IsZero() {
		return block.Hash{}, verr(GapPrevious, "non-open block has zero previous")
	}
	st, exists, err := tx.GetBlock(blk.Previous)
	if err != nil {
		return block.Hash{}, err
	}
	if !exists {
		return block.Hash{}, verr(GapPrevious, "previous block %s not found", blk.Previous)
	}
	if blk.Kind == block.KindState {
		return blk.Account, nil
	}
	return st.Sideband.Account, nil
}

// preliminaryIsReceive is used only to pick a proof-of-work threshold class
// before full balance-semantics classification has run.
func preliminaryIsReceive(blk block.Block, existing *kvstore.AccountInfo) bool {
	switch blk.Kind {
	case block.KindReceive, block.KindOpen:
		return true
	case block.KindSend, block.KindChange:
		return false
	case block.KindState:
		if blk.Previous.IsZero() {
			return true
		}
		return blk.Balance.Cmp(existing.Balance) > 0
	default:
		return false
	}
}

func planSend(hash block.Hash, blk block.Block, account block.Hash, existing kvstore.AccountInfo) (*Plan, error) {
	if blk.Balance.Cmp(existing.Balance) >= 0 {
		return nil, verr(NegativeSpend, "send block does not decrease balance")
	}
	sent, _ := existing.Balance.Sub(blk.Balance)

	p := basePlan(hash, blk, account, existing, blk.Balance)
	p.IsSend = true
	p.PendingInsertKey = &kvstore.PendingKey{Destination: blk.Destination, SendHash: hash}
	p.PendingInsertValue = &kvstore.PendingValue{Source: account, Amount: sent, Epoch: existing.Epoch}
	p.Sideband.Details.IsSend = true
	finalizeWeights(p, existing)
	return p, nil
}

func planReceive(tx *kvstore.Tx, hash block.Hash, blk block.Block, account block.Hash, existing kvstore.AccountInfo, source block.Hash) (*Plan, error) {
	pendKey := kvstore.PendingKey{Destination: account, SendHash: source}
	pend, found, err := tx.GetPending(pendKey)
	if err != nil {
		return nil, err
	}
	if !found {
		if blk.Kind == block.KindOpen {
			return nil, verr(GapEpochOpenPending, "no pending entry for open's claimed source %s", source)
		}
		return nil, verr(Unreceivable, "no pending entry for source %s", source)
	}

	newBalance, ok := existing.Balance.Add(pend.Amount)
	if !ok {
		return nil, verr(BalanceMismatch, "receive overflows balance")
	}
	// Legacy Receive/Open blocks carry no balance field on the wire (spec.md
	// §6 block serialization); the resulting balance is derived entirely
	// from the pending amount, not asserted by the submitter.

	p := basePlan(hash, blk, account, existing, newBalance)
	if blk.Kind == block.KindOpen {
		p.AccountAfter.OpenBlock = hash
		p.AccountAfter.Representative = blk.Representative
		p.Sideband.Height = 1
	}
	p.IsReceive = true
	p.PendingDeleteKey = &pendKey
	p.Sideband.Details.IsReceive = true
	p.Sideband.SourceEpoch = pend.Epoch
	finalizeWeights(p, existing)
	return p, nil
}

func planChange(hash block.Hash, blk block.Block, account block.Hash, existing kvstore.AccountInfo) (*Plan, error) {
	p := basePlan(hash, blk, account, existing, existing.Balance)
	p.AccountAfter.Representative = blk.Representative
	finalizeWeights(p, existing)
	return p, nil
}

func planState(tx *kvstore.Tx, hash block.Hash, blk block.Block, account block.Hash, existing kvstore.AccountInfo, hasAccount bool, epochSigners cryptosuite.EpochSigners) (*Plan, error) {
	cmp := blk.Balance.Cmp(existing.Balance)

	switch {
	case cmp < 0:
		// Send.
		sent, _ := existing.Balance.Sub(blk.Balance)
		p := basePlan(hash, blk, account, existing, blk.Balance)
		p.IsSend = true
		p.AccountAfter.Representative = blk.Representative
		p.PendingInsertKey = &kvstore.PendingKey{Destination: blk.Link, SendHash: hash}
		p.PendingInsertValue = &kvstore.PendingValue{Source: account, Amount: sent, Epoch: existing.Epoch}
		p.Sideband.Details.IsSend = true
		finalizeWeights(p, existing)
		return p, nil

	case cmp > 0:
		// Receive (state-link must reference a send with a pending entry).
		pendKey := kvstore.PendingKey{Destination: account, SendHash: blk.Link}
		pend, found, err := tx.GetPending(pendKey)
		if err != nil {
			return nil, err
		}
		if !found {
			if !hasAccount {
				return nil, verr(GapEpochOpenPending, "no pending entry for open's claimed link %s", blk.Link)
			}
			return nil, verr(Unreceivable, "no pending entry for link %s", blk.Link)
		}
		expected, ok := existing.Balance.Add(pend.Amount)
		if !ok || blk.Balance.Cmp(expected) != 0 {
			return nil, verr(BalanceMismatch, "claimed balance does not match pending amount")
		}
		p := basePlan(hash, blk, account, existing, blk.Balance)
		p.IsReceive = true
		if !hasAccount {
			p.AccountAfter.OpenBlock = hash
			p.Sideband.Height = 1
		}
		p.AccountAfter.Representative = blk.Representative
		p.PendingDeleteKey = &pendKey
		p.Sideband.Details.IsReceive = true
		p.Sideband.SourceEpoch = pend.Epoch
		finalizeWeights(p, existing)
		return p, nil

	default:
		// Balance unchanged: change, or epoch upgrade.
		if blk.Link == block.EpochLink {
			targetEpoch := existing.Epoch + 1
			if !epochSigners.IsEpochSigner(account, targetEpoch) {
				return nil, verr(RepresentativeMismatch, "account %s is not the epoch %d signer", account, targetEpoch)
			}
			if blk.Representative != existing.Representative && hasAccount {
				return nil, verr(RepresentativeMismatch, "epoch block must not change representative")
			}
			p := basePlan(hash, blk, account, existing, existing.Balance)
			p.AccountAfter.Representative = existing.Representative
			if !hasAccount {
				p.AccountAfter.Representative = blk.Representative
				p.AccountAfter.OpenBlock = hash
				p.Sideband.Height = 1
			}
			p.AccountAfter.Epoch = targetEpoch
			p.IsEpoch = true
			p.Sideband.Details.IsEpoch = true
			p.Sideband.Details.Epoch = targetEpoch
			return p, nil
		}

		p := basePlan(hash, blk, account, existing, existing.Balance)
		p.AccountAfter.Representative = blk.Representative
		finalizeWeights(p, existing)
		return p, nil
	}
}

// finalizeWeights computes the weight deltas a plan requires by comparing
// the account's representative/balance before (existing) and after
// (p.AccountAfter) the block: the old representative loses the old balance
// in full and the new representative gains the new balance in full. This
// covers both a Change block (balance fixed, representative moves) and a
// Send/Receive (representative fixed, balance moves) uniformly; when
// neither actually changed the two entries cancel out and are skipped.
func finalizeWeights(p *Plan, existing kvstore.AccountInfo) {
	newRep := p.AccountAfter.Representative
	newBalance := p.AccountAfter.Balance
	if existing.Representative == newRep && existing.Balance.Cmp(newBalance) == 0 {
		return
	}
	if !existing.Representative.IsZero() && !existing.Balance.IsZero() {
		p.WeightDeltas = append(p.WeightDeltas, WeightDelta{Representative: existing.Representative, Amount: existing.Balance, Subtract: true})
	}
	if !newRep.IsZero() && !newBalance.IsZero() {
		p.WeightDeltas = append(p.WeightDeltas, WeightDelta{Representative: newRep, Amount: newBalance, Subtract: false})
	}
}

func basePlan(hash block.Hash, blk block.Block, account block.Hash, existing kvstore.AccountInfo, newBalance block.Amount) *Plan {
	height := existing.BlockCount + 1
	return &Plan{
		Hash:  hash,
		Block: blk,
		Sideband: block.Sideband{
			Account: account,
			Height:  height,
			Balance: newBalance,
		},
		AccountAfter: kvstore.AccountInfo{
			Head:           hash,
			Representative: existing.Representative,
			OpenBlock:      existing.OpenBlock,
			Balance:        newBalance,
			BlockCount:     height,
			Epoch:          existing.Epoch,
		},
	}
}
