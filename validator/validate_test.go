package validator

import (
	"crypto/ed25519"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/latticenet/node/block"
	"github.com/latticenet/node/cryptosuite"
	"github.com/latticenet/node/kvstore"
)

func openTestStore(t *testing.T) *kvstore.Store {
	t.Helper()
	s, err := kvstore.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newAccount(t *testing.T) (block.Hash, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	var h block.Hash
	copy(h[:], pub)
	return h, priv
}

// genesisOpen seeds the store with an already-opened account at the given
// balance, standing in for a real genesis block (which has no predecessor
// for Validate to check against). It plants a placeholder row under the
// account's own hash so that a first real block naming it as Previous finds
// something there, the way it would find a real genesis open block, and
// credits the balance to the account's own representative weight.
func genesisOpen(t *testing.T, s *kvstore.Store, account block.Hash, balance block.Amount) {
	t.Helper()
	require.NoError(t, s.Update(func(tx *kvstore.Tx) error {
		if err := tx.PutAccount(account, kvstore.AccountInfo{
			Head:           account,
			Representative: account,
			OpenBlock:      account,
			Balance:        balance,
			BlockCount:     1,
			Epoch:          0,
		}); err != nil {
			return err
		}
		if err := tx.PutRepWeight(account, balance); err != nil {
			return err
		}
		placeholder := block.Stored{
			Block:    block.Block{Kind: block.KindOpen, Account: account, Representative: account, Balance: balance},
			Sideband: block.Sideband{Account: account, Height: 1, Balance: balance},
		}
		return tx.PutBlock(account, placeholder)
	}))
}

func TestValidateOldBlockRejected(t *testing.T) {
	s := openTestStore(t)
	account, priv := newAccount(t)
	genesisOpen(t, s, account, block.Amount{Lo: 1000})

	blk := block.Block{Kind: block.KindChange, Previous: account, Representative: account, Work: 1}
	blk.Signature = cryptosuite.Sign(priv, blk.Hash())

	require.NoError(t, s.Update(func(tx *kvstore.Tx) error {
		return tx.PutBlock(blk.Hash(), block.Stored{Block: blk})
	}))

	require.NoError(t, s.View(func(tx *kvstore.Tx) error {
		_, err := Validate(tx, blk, cryptosuite.DevThresholds, nil)
		code, ok := CodeOf(err)
		require.True(t, ok)
		require.Equal(t, Old, code)
		return nil
	}))
}

func TestValidateSendThenReceive(t *testing.T) {
	s := openTestStore(t)
	account, priv := newAccount(t)
	genesisOpen(t, s, account, block.Amount{Lo: 1000})
	zeroThresholds := cryptosuite.NetworkThresholds{}

	send := block.Block{
		Kind: block.KindState, Account: account, Previous: account,
		Representative: account, Balance: block.Amount{Lo: 950}, Link: account,
		Work: 1,
	}
	send.Signature = cryptosuite.Sign(priv, send.Hash())

	var sendPlan *Plan
	require.NoError(t, s.Update(func(tx *kvstore.Tx) error {
		p, err := Validate(tx, send, zeroThresholds, nil)
		require.NoError(t, err)
		require.True(t, p.IsSend)
		sendPlan = p
		return commitPlan(tx, p)
	}))

	require.NoError(t, s.View(func(tx *kvstore.Tx) error {
		v, found, err := tx.GetPending(*sendPlan.PendingInsertKey)
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, block.Amount{Lo: 50}, v.Amount)
		return nil
	}))

	recv := block.Block{
		Kind: block.KindState, Account: account, Previous: send.Hash(),
		Representative: account, Balance: block.Amount{Lo: 1000}, Link: send.Hash(),
		Work: 1,
	}
	recv.Signature = cryptosuite.Sign(priv, recv.Hash())

	require.NoError(t, s.Update(func(tx *kvstore.Tx) error {
		p, err := Validate(tx, recv, zeroThresholds, nil)
		require.NoError(t, err)
		require.True(t, p.IsReceive)
		return commitPlan(tx, p)
	}))

	require.NoError(t, s.View(func(tx *kvstore.Tx) error {
		_, found, err := tx.GetPending(*sendPlan.PendingInsertKey)
		require.NoError(t, err)
		require.False(t, found)
		w, err := tx.GetRepWeight(account)
		require.NoError(t, err)
		require.Equal(t, block.Amount{Lo: 1000}, w)
		return nil
	}))
}

func TestValidateForkRejectsSecondBlockAtSameHeight(t *testing.T) {
	s := openTestStore(t)
	account, priv := newAccount(t)
	genesisOpen(t, s, account, block.Amount{Lo: 1000})
	zeroThresholds := cryptosuite.NetworkThresholds{}

	mk := func(balance uint64) block.Block {
		b := block.Block{
			Kind: block.KindState, Account: account, Previous: account,
			Representative: account, Balance: block.Amount{Lo: balance}, Link: account, Work: 1,
		}
		b.Signature = cryptosuite.Sign(priv, b.Hash())
		return b
	}
	first := mk(900)
	second := mk(800)

	require.NoError(t, s.Update(func(tx *kvstore.Tx) error {
		p, err := Validate(tx, first, zeroThresholds, nil)
		require.NoError(t, err)
		return commitPlan(tx, p)
	}))

	require.NoError(t, s.View(func(tx *kvstore.Tx) error {
		_, err := Validate(tx, second, zeroThresholds, nil)
		code, ok := CodeOf(err)
		require.True(t, ok)
		require.Equal(t, Fork, code)
		return nil
	}))
}

// TestValidateLegacyBlockAfterEpochUpgradeRejected mirrors
// original_source/rust/ledger/src/block_insertion/validation/tests/validate_legacy_send.rs's
// fails_if_legacy_send_follows_a_state_block: once an account's tip has
// upgraded to epoch>=1, a legacy block naming it as Previous must be
// rejected with BlockPosition rather than routed into planChange/etc.
func TestValidateLegacyBlockAfterEpochUpgradeRejected(t *testing.T) {
	s := openTestStore(t)
	account, priv := newAccount(t)
	genesisOpen(t, s, account, block.Amount{Lo: 1000})

	require.NoError(t, s.Update(func(tx *kvstore.Tx) error {
		info, _, err := tx.GetAccount(account)
		if err != nil {
			return err
		}
		info.Epoch = 1
		return tx.PutAccount(account, *info)
	}))

	blk := block.Block{Kind: block.KindChange, Previous: account, Representative: account, Work: 1}
	blk.Signature = cryptosuite.Sign(priv, blk.Hash())

	require.NoError(t, s.View(func(tx *kvstore.Tx) error {
		_, err := Validate(tx, blk, cryptosuite.DevThresholds, nil)
		code, ok := CodeOf(err)
		require.True(t, ok)
		require.Equal(t, BlockPosition, code)
		return nil
	}))
}

func TestValidateBadSignatureRejected(t *testing.T) {
	s := openTestStore(t)
	account, _ := newAccount(t)
	genesisOpen(t, s, account, block.Amount{Lo: 1000})

	blk := block.Block{Kind: block.KindChange, Previous: account, Representative: account, Work: 1}
	// Left unsigned (zero signature) on purpose.

	require.NoError(t, s.View(func(tx *kvstore.Tx) error {
		_, err := Validate(tx, blk, cryptosuite.DevThresholds, nil)
		code, ok := CodeOf(err)
		require.True(t, ok)
		require.Equal(t, BadSignature, code)
		return nil
	}))
}

func TestValidateInsufficientWorkRejected(t *testing.T) {
	s := openTestStore(t)
	account, priv := newAccount(t)
	genesisOpen(t, s, account, block.Amount{Lo: 1000})

	blk := block.Block{Kind: block.KindChange, Previous: account, Representative: account, Work: 0}
	blk.Signature = cryptosuite.Sign(priv, blk.Hash())

	require.NoError(t, s.View(func(tx *kvstore.Tx) error {
		_, err := Validate(tx, blk, cryptosuite.LiveThresholds, nil)
		code, ok := CodeOf(err)
		require.True(t, ok)
		require.Equal(t, InsufficientWork, code)
		return nil
	}))
}

// commitPlan applies a Plan the way ledger.Ledger.Process will; duplicated
// here in miniature so validator's own tests don't depend on the ledger
// package.
func commitPlan(tx *kvstore.Tx, p *Plan) error {
	st := block.Stored{Block: p.Block, Sideband: p.Sideband}
	if err := tx.PutBlock(p.Hash, st); err != nil {
		return err
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
