package kvstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/latticenet/node/block"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenWritesSchemaVersion(t *testing.T) {
	s := openTestStore(t)
	v, err := s.Version()
	require.NoError(t, err)
	require.Equal(t, CurrentSchemaVersion, v)
}

func TestAccountRoundTrip(t *testing.T) {
	s := openTestStore(t)
	acc := block.Hash{1}
	info := AccountInfo{
		Head:           block.Hash{2},
		Representative: block.Hash{3},
		OpenBlock:      block.Hash{4},
		Balance:        block.Amount{Hi: 0, Lo: 500},
		Modified:       1234,
		BlockCount:     7,
		Epoch:          2,
	}
	require.NoError(t, s.Update(func(tx *Tx) error {
		return tx.PutAccount(acc, info)
	}))

	var got *AccountInfo
	require.NoError(t, s.View(func(tx *Tx) error {
		var found bool
		var err error
		got, found, err = tx.GetAccount(acc)
		require.True(t, found)
		return err
	}))
	require.Equal(t, info, *got)
}

func TestWriteRejectedOnReadOnlyTx(t *testing.T) {
	s := openTestStore(t)
	err := s.View(func(tx *Tx) error {
		return tx.PutAccount(block.Hash{1}, AccountInfo{})
	})
	require.Error(t, err)
}

func TestPendingForAccountOrdering(t *testing.T) {
	s := openTestStore(t)
	dest := block.Hash{9}
	keys := []PendingKey{
		{Destination: dest, SendHash: block.Hash{1}},
		{Destination: dest, SendHash: block.Hash{2}},
		{Destination: dest, SendHash: block.Hash{3}},
	}
	require.NoError(t, s.Update(func(tx *Tx) error {
		for i, k := range keys {
			if err := tx.PutPending(k, PendingValue{Source: block.Hash{byte(i)}, Amount: block.Amount{Lo: uint64(i + 1)}}); err != nil {
				return err
			}
		}
		// a different destination must not show up in the walk below.
		return tx.PutPending(PendingKey{Destination: block.Hash{200}, SendHash: block.Hash{1}}, PendingValue{})
	}))

	var seen []block.Hash
	require.NoError(t, s.View(func(tx *Tx) error {
		return tx.PendingForAccount(dest, func(k PendingKey, v PendingValue) bool {
			seen = append(seen, k.SendHash)
			return true
		})
	}))
	require.Equal(t, []block.Hash{{1}, {2}, {3}}, seen)
}

func TestRepWeightAccumulates(t *testing.T) {
	s := openTestStore(t)
	rep := block.Hash{5}
	require.NoError(t, s.Update(func(tx *Tx) error {
		if err := tx.AddRepWeight(rep, block.Amount{Lo: 100}, false); err != nil {
			return err
		}
		return tx.AddRepWeight(rep, block.Amount{Lo: 40}, false)
	}))
	var got block.Amount
	require.NoError(t, s.View(func(tx *Tx) error {
		var err error
		got, err = tx.GetRepWeight(rep)
		return err
	}))
	require.Equal(t, block.Amount{Lo: 140}, got)

	require.NoError(t, s.Update(func(tx *Tx) error {
		return tx.AddRepWeight(rep, block.Amount{Lo: 140}, true)
	}))
	require.NoError(t, s.View(func(tx *Tx) error {
		var err error
		got, err = tx.GetRepWeight(rep)
		return err
	}))
	require.True(t, got.IsZero())
}

func TestFinalVoteUniquePerRoot(t *testing.T) {
	s := openTestStore(t)
	qr := QualifiedRoot{Root: block.Hash{1}, Previous: block.Hash{2}}
	first := block.Hash{10}
	second := block.Hash{11}

	var ok1, ok2 bool
	require.NoError(t, s.Update(func(tx *Tx) error {
		var err error
		ok1, err = tx.PutFinalVoteIfAbsent(qr, first)
		return err
	}))
	require.True(t, ok1)

	require.NoError(t, s.Update(func(tx *Tx) error {
		var err error
		ok2, err = tx.PutFinalVoteIfAbsent(qr, second)
		return err
	}))
	require.False(t, ok2)

	require.NoError(t, s.View(func(tx *Tx) error {
		h, found, err := tx.GetFinalVote(qr)
		require.True(t, found)
		require.Equal(t, first, h)
		return err
	}))
}

func TestBlockRoundTripAllKinds(t *testing.T) {
	s := openTestStore(t)
	blocks := []block.Block{
		{Kind: block.KindSend, Previous: block.Hash{1}, Destination: block.Hash{2}, Balance: block.Amount{Lo: 10}, Work: 1},
		{Kind: block.KindReceive, Previous: block.Hash{1}, Source: block.Hash{3}, Work: 2},
		{Kind: block.KindOpen, Source: block.Hash{3}, Representative: block.Hash{4}, Account: block.Hash{5}, Work: 3},
		{Kind: block.KindChange, Previous: block.Hash{1}, Representative: block.Hash{4}, Work: 4},
		{Kind: block.KindState, Account: block.Hash{5}, Previous: block.Hash{1}, Representative: block.Hash{4}, Balance: block.Amount{Lo: 20}, Link: block.Hash{6}, Work: 5},
	}
	for _, b := range blocks {
		h := b.Hash()
		st := block.Stored{
			Block: b,
			Sideband: block.Sideband{
				Account: block.Hash{5},
				Height:  3,
				Balance: b.Balance,
				Details: block.Details{IsSend: b.Kind == block.KindSend, Epoch: 1},
			},
		}
		require.NoError(t, s.Update(func(tx *Tx) error {
			return tx.PutBlock(h, st)
		}))
		var got *block.Stored
		require.NoError(t, s.View(func(tx *Tx) error {
			var found bool
			var err error
			got, found, err = tx.GetBlock(h)
			require.True(t, found)
			return err
		}))
		require.Equal(t, st.Block, got.Block)
		require.Equal(t, st.Sideband, got.Sideband)
	}
}
