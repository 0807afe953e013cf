package ledger

import (
	"github.com/latticenet/node/block"
	"github.com/latticenet/node/kvstore"
)

type chainItem struct {
	hash   block.Hash
	stored block.Stored
}

// Rollback walks account A's chain from its current head back to and
// including target, reversing each block's effect (spec.md §4.2). Cemented
// blocks are never rolled back. When one of the undone blocks is a send
// whose pending entry has already been received, the receiving account's
// chain is rolled back first (recursively, in case its own blocks were in
// turn sent onward and received elsewhere) so the send's pending entry can
// be recreated cleanly — mirroring
// original_source/ledger/src/ledger_tests/rollback_state.rs's
// rollback_received_send, which expects the receiver's open block to
// disappear along with the send, not an error.
func (l *Ledger) Rollback(target block.Hash) error {
	return l.store.Update(func(tx *kvstore.Tx) error {
		return l.rollbackLocked(tx, target)
	})
}

func (l *Ledger) rollbackLocked(tx *kvstore.Tx, target block.Hash) error {
	targetSt, exists, err := tx.GetBlock(target)
	if err != nil {
		return err
	}
	if !exists {
		return lerr(ErrNotFound, "block %s not found", target)
	}
	account := targetSt.Sideband.Account

	height, err := tx.GetConfirmationHeight(account)
	if err != nil {
		return err
	}
	if targetSt.Sideband.Height <= height.Height {
		return lerr(ErrCemented, "block %s at height %d is cemented (confirmed to %d)", target, targetSt.Sideband.Height, height.Height)
	}

	info, found, err := tx.GetAccount(account)
	if err != nil {
		return err
	}
	if !found {
		return lerr(ErrNotFound, "account %s has no info", account)
	}

	chain, err := collectChain(tx, info.Head, target)
	if err != nil {
		return err
	}

	for _, item := range chain {
		if err := l.undoOne(tx, item); err != nil {
			return err
		}
		if err := tx.DeleteBlock(item.hash); err != nil {
			return err
		}
	}

	newHead := targetSt.Block.Previous
	if newHead.IsZero() {
		return tx.DeleteAccount(account)
	}

	newHeadSt, exists, err := tx.GetBlock(newHead)
	if err != nil {
		return err
	}
	if exists {
		newHeadSt.Sideband.Successor = block.Hash{}
		if err := tx.PutBlock(newHead, *newHeadSt); err != nil {
			return err
		}
	}

	balance, representative, epoch, err := stateAsOf(tx, newHead)
	if err != nil {
		return err
	}
	return tx.PutAccount(account, kvstore.AccountInfo{
		Head:           newHead,
		Representative: representative,
		OpenBlock:      info.OpenBlock,
		Balance:        balance,
		BlockCount:     info.BlockCount - uint64(len(chain)),
		Epoch:          epoch,
	})
}

// collectChain walks backward from head to target inclusive, in
// newest-first order (the order Rollback must undo in).
func collectChain(tx *kvstore.Tx, head, target block.Hash) ([]chainItem, error) {
	var chain []chainItem
	cur := head
	for {
		if cur.IsZero() {
			return nil, lerr(ErrNotAncestor, "target block is not on the account's current chain")
		}
		st, exists, err := tx.GetBlock(cur)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, lerr(ErrNotFound, "block %s missing mid-chain during rollback", cur)
		}
		chain = append(chain, chainItem{hash: cur, stored: *st})
		if cur == target {
			return chain, nil
		}
		cur = st.Block.Previous
	}
}

func (l *Ledger) undoOne(tx *kvstore.Tx, item chainItem) error {
	b := item.stored.Block
	beforeBalance, beforeRep, _, err := stateAsOf(tx, b.Previous)
	if err != nil {
		return err
	}
	afterRep := beforeRep
	if blockSetsRepresentative(b) {
		afterRep = b.Representative
	}
	afterBalance := item.stored.Sideband.Balance

	if !beforeRep.IsZero() && !beforeBalance.IsZero() {
		if err := tx.AddRepWeight(beforeRep, beforeBalance, false); err != nil {
			return err
		}
	}
	if !afterRep.IsZero() && !afterBalance.IsZero() {
		if err := tx.AddRepWeight(afterRep, afterBalance, true); err != nil {
			return err
		}
	}

	source, isReceive, err := receiveSource(tx, b)
	if err != nil {
		return err
	}
	if isReceive {
		sourceSt, exists, err := tx.GetBlock(source)
		if err != nil {
			return err
		}
		var sender block.Hash
		if exists {
			sender = sourceSt.Sideband.Account
		}
		amount, _ := afterBalance.Sub(beforeBalance)
		return tx.PutPending(kvstore.PendingKey{Destination: item.stored.Sideband.Account, SendHash: source}, kvstore.PendingValue{
			Source: sender,
			Amount: amount,
			Epoch:  item.stored.Sideband.SourceEpoch,
		})
	}

	if item.stored.Sideband.Details.IsSend {
		dest := sendDestination(b)
		key := kvstore.PendingKey{Destination: dest, SendHash: item.hash}
		_, found, err := tx.GetPending(key)
		if err != nil {
			return err
		}
		if !found {
			receiving, err := findReceivingBlock(tx, dest, item.hash)
			if err != nil {
				return err
			}
			// Rolling back the block that received this send re-creates the
			// pending entry (its own undoOne call, below), since the send
			// block itself is still present in the store at this point.
			if err := l.rollbackLocked(tx, receiving); err != nil {
				return err
			}
		}
		return tx.DeletePending(key)
	}

	return nil
}

// findReceivingBlock walks dest's chain backward from its current head to
// find the block whose receive source is sendHash, so a send's cascading
// rollback can undo the receiver first.
func findReceivingBlock(tx *kvstore.Tx, dest, sendHash block.Hash) (block.Hash, error) {
	info, found, err := tx.GetAccount(dest)
	if err != nil {
		return block.Hash{}, err
	}
	if !found {
		return block.Hash{}, lerr(ErrNotFound, "destination account %s has no info", dest)
	}
	cur := info.Head
	for !cur.IsZero() {
		st, exists, err := tx.GetBlock(cur)
		if err != nil {
			return block.Hash{}, err
		}
		if !exists {
			return block.Hash{}, lerr(ErrNotFound, "block %s missing while searching for receiver of %s", cur, sendHash)
		}
		source, isReceive, err := receiveSource(tx, st.Block)
		if err != nil {
			return block.Hash{}, err
		}
		if isReceive && source == sendHash {
			return cur, nil
		}
		cur = st.Block.Previous
	}
	return block.Hash{}, lerr(ErrNotFound, "no block on account %s receives send %s", dest, sendHash)
}

func sendDestination(b block.Block) block.Hash {
	if b.Kind == block.KindSend {
		return b.Destination
	}
	return b.Link
}

func blockSetsRepresentative(b block.Block) bool {
	switch b.Kind {
	case block.KindOpen, block.KindChange, block.KindState:
		return true
	default:
		return false
	}
}

// stateAsOf reconstructs the account's balance, representative, and epoch as
// they stood immediately after hash was applied (hash may be zero, meaning
// "before the account was ever opened"). Representative and epoch aren't
// denormalized per block, so this recurses to the nearest ancestor that set
// them explicitly.
func stateAsOf(tx *kvstore.Tx, hash block.Hash) (balance block.Amount, representative block.Hash, epoch uint8, err error) {
	if hash.IsZero() {
		return block.Amount{}, block.Hash{}, 0, nil
	}
	st, exists, err := tx.GetBlock(hash)
	if err != nil {
		return block.Amount{}, block.Hash{}, 0, err
	}
	if !exists {
		return block.Amount{}, block.Hash{}, 0, lerr(ErrNotFound, "block %s missing while reconstructing account state", hash)
	}
	balance = st.Sideband.Balance
	if blockSetsRepresentative(st.Block) {
		representative = st.Block.Representative
	} else {
		_, representative, _, err = stateAsOf(tx, st.Block.Previous)
		if err != nil {
			return block.Amount{}, block.Hash{}, 0, err
		}
	}
	if st.Sideband.Details.IsEpoch {
		epoch = st.Sideband.Details.Epoch
	} else {
		_, _, epoch, err = stateAsOf(tx, st.Block.Previous)
		if err != nil {
			return block.Amount{}, block.Hash{}, 0, err
		}
	}
	return balance, representative, epoch, nil
}
