package ledger

import (
	"crypto/ed25519"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/latticenet/node/block"
	"github.com/latticenet/node/cryptosuite"
	"github.com/latticenet/node/kvstore"
)

func newTestLedger(t *testing.T) (*Ledger, block.Hash, ed25519.PrivateKey) {
	t.Helper()
	s, err := kvstore.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	var account block.Hash
	copy(account[:], pub)

	l := New(s, cryptosuite.NetworkThresholds{}, nil)

	open := block.Block{Kind: block.KindOpen, Source: block.Hash{1}, Representative: account, Account: account, Balance: block.Amount{Lo: 1000}, Work: 1}
	open.Signature = cryptosuite.Sign(priv, open.Hash())
	// seed a pending entry so the genesis open can receive an initial supply
	require.NoError(t, s.Update(func(tx *kvstore.Tx) error {
		return tx.PutPending(kvstore.PendingKey{Destination: account, SendHash: block.Hash{1}}, kvstore.PendingValue{
			Source: block.Hash{99}, Amount: block.Amount{Lo: 1000},
		})
	}))
	_, err = l.Process(open)
	require.NoError(t, err)

	return l, account, priv
}

// S1: send/receive round trip (spec.md §8 S1), as a self-send: the account
// sends to itself and then receives its own send.
func TestProcessSendThenReceive(t *testing.T) {
	l, account, priv := newTestLedger(t)

	head, err := l.AccountHead(account)
	require.NoError(t, err)

	send := block.Block{
		Kind: block.KindState, Account: account, Previous: head,
		Representative: account, Balance: block.Amount{Lo: 950}, Link: account, Work: 1,
	}
	send.Signature = cryptosuite.Sign(priv, send.Hash())

	var observed []Observation
	l.Observe(func(o Observation) { observed = append(observed, o) })

	_, err = l.Process(send)
	require.NoError(t, err)

	pend, found, err := l.GetPending(kvstore.PendingKey{Destination: account, SendHash: send.Hash()})
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, block.Amount{Lo: 50}, pend.Amount)

	recv := block.Block{
		Kind: block.KindState, Account: account, Previous: send.Hash(),
		Representative: account, Balance: block.Amount{Lo: 1000}, Link: send.Hash(), Work: 1,
	}
	recv.Signature = cryptosuite.Sign(priv, recv.Hash())
	_, err = l.Process(recv)
	require.NoError(t, err)

	bal, err := l.AccountBalance(account)
	require.NoError(t, err)
	require.Equal(t, block.Amount{Lo: 1000}, bal)

	w, err := l.Weight(account)
	require.NoError(t, err)
	require.Equal(t, block.Amount{Lo: 1000}, w)

	succ, found, err := l.BlockSuccessor(send.Hash())
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, recv.Hash(), succ)

	require.Len(t, observed, 2)
	require.True(t, observed[0].IsSend)
	require.True(t, observed[1].IsReceiveForTest())
}

// small helper so the test above reads naturally; Observation itself has no
// IsReceive field (only IsSend/IsEpoch per spec.md §4.2), so derive it.
func (o Observation) IsReceiveForTest() bool { return !o.IsSend && !o.IsEpoch }

// S2: rollback of a receive restores the pending entry and reverses weight.
func TestRollbackReceive(t *testing.T) {
	l, account, priv := newTestLedger(t)
	head, err := l.AccountHead(account)
	require.NoError(t, err)

	send := block.Block{
		Kind: block.KindState, Account: account, Previous: head,
		Representative: account, Balance: block.Amount{Lo: 950}, Link: account, Work: 1,
	}
	send.Signature = cryptosuite.Sign(priv, send.Hash())
	_, err = l.Process(send)
	require.NoError(t, err)

	recv := block.Block{
		Kind: block.KindState, Account: account, Previous: send.Hash(),
		Representative: account, Balance: block.Amount{Lo: 1000}, Link: send.Hash(), Work: 1,
	}
	recv.Signature = cryptosuite.Sign(priv, recv.Hash())
	_, err = l.Process(recv)
	require.NoError(t, err)

	require.NoError(t, l.Rollback(recv.Hash()))

	pend, found, err := l.GetPending(kvstore.PendingKey{Destination: account, SendHash: send.Hash()})
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, block.Amount{Lo: 50}, pend.Amount)

	w, err := l.Weight(account)
	require.NoError(t, err)
	require.Equal(t, block.Amount{Lo: 950}, w)

	succ, found, err := l.BlockSuccessor(send.Hash())
	require.NoError(t, err)
	require.False(t, found)
	require.True(t, succ.IsZero())

	newHead, err := l.AccountHead(account)
	require.NoError(t, err)
	require.Equal(t, send.Hash(), newHead)
}

func TestRollbackRefusesCementedBlock(t *testing.T) {
	l, account, priv := newTestLedger(t)
	head, err := l.AccountHead(account)
	require.NoError(t, err)

	change := block.Block{Kind: block.KindChange, Previous: head, Representative: account, Work: 1}
	change.Signature = cryptosuite.Sign(priv, change.Hash())
	_, err = l.Process(change)
	require.NoError(t, err)

	require.NoError(t, l.store.Update(func(tx *kvstore.Tx) error {
		return tx.PutConfirmationHeight(account, kvstore.ConfirmationHeightInfo{Height: 2, Frontier: change.Hash()})
	}))

	err = l.Rollback(change.Hash())
	require.Error(t, err)
	le, ok := err.(*LedgerError)
	require.True(t, ok)
	require.Equal(t, ErrCemented, le.Code)
}

// TestRollbackCascadesIntoReceivingAccount mirrors
// original_source/ledger/src/ledger_tests/rollback_state.rs's
// rollback_received_send: rolling back a send whose pending entry has
// already been claimed by another account's open block must cascade into
// that account, undoing its open block first, rather than erroring out.
func TestRollbackCascadesIntoReceivingAccount(t *testing.T) {
	l, account, priv := newTestLedger(t)
	head, err := l.AccountHead(account)
	require.NoError(t, err)

	destPub, destPriv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	var dest block.Hash
	copy(dest[:], destPub)

	send := block.Block{
		Kind: block.KindState, Account: account, Previous: head,
		Representative: account, Balance: block.Amount{Lo: 950}, Link: dest, Work: 1,
	}
	send.Signature = cryptosuite.Sign(priv, send.Hash())
	_, err = l.Process(send)
	require.NoError(t, err)

	open := block.Block{
		Kind: block.KindOpen, Source: send.Hash(), Representative: dest, Account: dest, Work: 1,
	}
	open.Signature = cryptosuite.Sign(destPriv, open.Hash())
	_, err = l.Process(open)
	require.NoError(t, err)

	// send is still account's head, but its receiver has already claimed it
	// in a different account's chain; rollback must cascade into dest.
	require.NoError(t, l.Rollback(send.Hash()))

	var sendExists, openExists, destFound, pendingFound bool
	require.NoError(t, l.store.View(func(tx *kvstore.Tx) error {
		var err error
		if _, sendExists, err = tx.GetBlock(send.Hash()); err != nil {
			return err
		}
		if _, openExists, err = tx.GetBlock(open.Hash()); err != nil {
			return err
		}
		if _, destFound, err = tx.GetAccount(dest); err != nil {
			return err
		}
		if _, pendingFound, err = tx.GetPending(kvstore.PendingKey{Destination: dest, SendHash: send.Hash()}); err != nil {
			return err
		}
		return nil
	}))
	require.False(t, sendExists)
	require.False(t, openExists)
	require.False(t, destFound)
	require.False(t, pendingFound)

	balance, err := l.AccountBalance(account)
	require.NoError(t, err)
	require.Equal(t, block.Amount{Lo: 1000}, balance)
}
