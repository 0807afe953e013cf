package cement

import (
	"context"
	"crypto/ed25519"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/latticenet/node/block"
	"github.com/latticenet/node/cryptosuite"
	"github.com/latticenet/node/kvstore"
	"github.com/latticenet/node/ledger"
	"github.com/latticenet/node/writequeue"
)

func newTestChain(t *testing.T) (*kvstore.Store, *ledger.Ledger, block.Hash, ed25519.PrivateKey) {
	t.Helper()
	s, err := kvstore.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	var account block.Hash
	copy(account[:], pub)

	l := ledger.New(s, cryptosuite.NetworkThresholds{}, nil)

	open := block.Block{Kind: block.KindOpen, Source: block.Hash{1}, Representative: account, Account: account, Work: 1}
	open.Signature = cryptosuite.Sign(priv, open.Hash())
	require.NoError(t, s.Update(func(tx *kvstore.Tx) error {
		return tx.PutPending(kvstore.PendingKey{Destination: account, SendHash: block.Hash{1}}, kvstore.PendingValue{
			Source: block.Hash{99}, Amount: block.Amount{Lo: 1000},
		})
	}))
	_, err = l.Process(open)
	require.NoError(t, err)

	return s, l, account, priv
}

func TestCementSimpleChain(t *testing.T) {
	s, l, account, priv := newTestChain(t)

	head, err := l.AccountHead(account)
	require.NoError(t, err)
	change := block.Block{Kind: block.KindChange, Previous: head, Representative: account, Work: 1}
	change.Signature = cryptosuite.Sign(priv, change.Hash())
	_, err = l.Process(change)
	require.NoError(t, err)

	q := writequeue.New()
	c := New(s, q)

	var observed []Observation
	c.Observe(func(o Observation) { observed = append(observed, o) })

	require.NoError(t, c.NotifyConfirmed(account, change.Hash(), 2))
	n, err := c.DrainOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint64(2), n)
	require.Len(t, observed, 2)
	require.Equal(t, uint64(1), observed[0].Height)
	require.Equal(t, uint64(2), observed[1].Height)

	var height kvstore.ConfirmationHeightInfo
	require.NoError(t, s.View(func(tx *kvstore.Tx) error {
		var err error
		height, err = tx.GetConfirmationHeight(account)
		return err
	}))
	require.Equal(t, uint64(2), height.Height)
	require.Equal(t, change.Hash(), height.Frontier)
}

func TestCementRespectsBatchBudget(t *testing.T) {
	s, l, account, priv := newTestChain(t)

	head, err := l.AccountHead(account)
	require.NoError(t, err)
	var lastHash block.Hash
	for i := 0; i < 5; i++ {
		change := block.Block{Kind: block.KindChange, Previous: head, Representative: account, Work: 1}
		change.Signature = cryptosuite.Sign(priv, change.Hash())
		_, err = l.Process(change)
		require.NoError(t, err)
		head = change.Hash()
		lastHash = head
	}

	q := writequeue.New()
	c := New(s, q)
	c.batch.MinBatchSize = 2
	c.batch.MaxBatchSize = 2
	c.batch.current = 2

	require.NoError(t, c.NotifyConfirmed(account, lastHash, 6))
	n, err := c.DrainOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint64(2), n)

	var height kvstore.ConfirmationHeightInfo
	require.NoError(t, s.View(func(tx *kvstore.Tx) error {
		var err error
		height, err = tx.GetConfirmationHeight(account)
		return err
	}))
	require.Equal(t, uint64(2), height.Height)

	n2, err := c.DrainOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint64(2), n2)
}

func TestCementCascadesDependentSend(t *testing.T) {
	s, l, account, priv := newTestChain(t)

	destPub, destPriv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	var dest block.Hash
	copy(dest[:], destPub)

	head, err := l.AccountHead(account)
	require.NoError(t, err)
	send := block.Block{
		Kind: block.KindState, Account: account, Previous: head,
		Representative: account, Balance: block.Amount{Lo: 900}, Link: dest, Work: 1,
	}
	send.Signature = cryptosuite.Sign(priv, send.Hash())
	_, err = l.Process(send)
	require.NoError(t, err)

	open := block.Block{Kind: block.KindOpen, Source: send.Hash(), Representative: dest, Account: dest, Work: 1}
	open.Signature = cryptosuite.Sign(destPriv, open.Hash())
	_, err = l.Process(open)
	require.NoError(t, err)

	q := writequeue.New()
	c := New(s, q)

	// Confirm only the receiver's open block; the cementer must cascade
	// into cementing the sender's send block too, within the same drain
	// since budget allows it.
	require.NoError(t, c.NotifyConfirmed(dest, open.Hash(), 1))
	_, err = c.DrainOnce(context.Background())
	require.NoError(t, err)
	require.False(t, c.HasPending(), "cascaded section should drain in the same pass")

	var senderHeight kvstore.ConfirmationHeightInfo
	require.NoError(t, s.View(func(tx *kvstore.Tx) error {
		var err error
		senderHeight, err = tx.GetConfirmationHeight(account)
		return err
	}))
	require.Equal(t, uint64(2), senderHeight.Height)
	require.Equal(t, send.Hash(), senderHeight.Frontier)
}
