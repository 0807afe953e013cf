package ledger

import (
	"github.com/latticenet/node/block"
	"github.com/latticenet/node/kvstore"
)

// PruningAction walks backward from a cemented frontier (the frontier
// itself included) through Previous links, deleting each block and marking
// it pruned, up to batch deletions per call (spec.md §4.2). It stops early
// at a block already marked pruned, at a block that is not present, or
// after deleting the chain's open block. Blocks that remain are not
// modified.
func (l *Ledger) PruningAction(frontier block.Hash, batch int) (pruned int, err error) {
	err = l.store.Update(func(tx *kvstore.Tx) error {
		cur := frontier
		for pruned < batch {
			if cur.IsZero() {
				return nil
			}
			already, err := tx.IsPruned(cur)
			if err != nil {
				return err
			}
			if already {
				return nil
			}
			st, exists, err := tx.GetBlock(cur)
			if err != nil {
				return err
			}
			if !exists {
				return nil
			}
			prev := st.Block.Previous
			if err := tx.DeleteBlock(cur); err != nil {
				return err
			}
			if err := tx.PutPruned(cur); err != nil {
				return err
			}
			pruned++
			cur = prev
		}
		return nil
	})
	return pruned, err
}
