package reptiers

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/latticenet/node/block"
	"github.com/latticenet/node/kvstore"
)

func TestSweepClassifiesTiers(t *testing.T) {
	s, err := kvstore.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	repBig := block.Hash{1}
	repSmall := block.Hash{2}
	require.NoError(t, s.Update(func(tx *kvstore.Tx) error {
		if err := tx.PutRepWeight(repBig, block.Amount{Lo: 500}); err != nil {
			return err
		}
		return tx.PutRepWeight(repSmall, block.Amount{Lo: 1})
	}))

	tr := New(s)
	tr.Observe(block.Amount{Lo: 1000})
	require.NoError(t, tr.Sweep())

	require.Equal(t, Tier1, tr.TierOf(repBig))
	require.Equal(t, TierNone, tr.TierOf(repSmall))
}

func TestNoteHeardAndPeeredChannel(t *testing.T) {
	s, err := kvstore.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	tr := New(s)
	rep := block.Hash{9}
	tr.NoteHeard(rep, "chan-1")

	ch, ok := tr.PeeredChannel(rep, DevSweepInterval*100)
	require.True(t, ok)
	require.Equal(t, "chan-1", ch)
}
