package backlog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/latticenet/node/block"
	"github.com/latticenet/node/kvstore"
)

func TestPopulatorActivatesAccountsOnTrigger(t *testing.T) {
	s, err := kvstore.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	acc1, acc2 := block.Hash{1}, block.Hash{2}
	require.NoError(t, s.Update(func(tx *kvstore.Tx) error {
		if err := tx.PutAccount(acc1, kvstore.AccountInfo{}); err != nil {
			return err
		}
		return tx.PutAccount(acc2, kvstore.AccountInfo{})
	}))

	var activated []block.Hash
	p := New(s, Config{Enabled: true, BatchSize: 10, Frequency: 10}, func(account block.Hash) (bool, error) {
		activated = append(activated, account)
		return true, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	p.Trigger()
	require.Eventually(t, func() bool { return len(activated) >= 2 }, time.Second, 5*time.Millisecond)
}
