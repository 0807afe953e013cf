// Package kvstore is the transactional key-value abstraction (component C2):
// named tables over a single bbolt database, with typed read/write
// transactions and cursors. Grounded on the teacher's node/store/db.go,
// generalized from a flat UTXO/block-index/undo schema to the named-table
// list spec.md §6 specifies.
package kvstore

import (
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Table names, matching spec.md §6 "Persistent state layout" verbatim.
var (
	tableBlocks             = []byte("blocks")
	tableAccounts           = []byte("accounts")
	tablePending            = []byte("pending")
	tableConfirmationHeight = []byte("confirmation_height")
	tableFinalVote          = []byte("final_vote")
	tablePruned             = []byte("pruned")
	tableRepWeights         = []byte("rep_weights")
	tableOnlineWeight       = []byte("online_weight")
	tablePeers              = []byte("peers")
	tableVersion            = []byte("version")
)

var allTables = [][]byte{
	tableBlocks, tableAccounts, tablePending, tableConfirmationHeight,
	tableFinalVote, tablePruned, tableRepWeights, tableOnlineWeight,
	tablePeers, tableVersion,
}

const versionKey = "schema_version"

// CurrentSchemaVersion is written to the version table on first open.
const CurrentSchemaVersion uint32 = 1

// Store owns the bbolt database and creates the named tables on open.
type Store struct {
	db *bolt.DB
}

// Open creates or opens a store at path, creating every named table that
// doesn't yet exist.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("kvstore: open: %w", err)
	}
	s := &Store{db: db}
	if err := s.db.Update(func(btx *bolt.Tx) error {
		for _, name := range allTables {
			if _, err := btx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create table %s: %w", name, err)
			}
		}
		b := btx.Bucket(tableVersion)
		if b.Get([]byte(versionKey)) == nil {
			return putU32(b, []byte(versionKey), CurrentSchemaVersion)
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// View runs fn under a read-only transaction.
func (s *Store) View(fn func(*Tx) error) error {
	return s.db.View(func(btx *bolt.Tx) error {
		return fn(&Tx{btx: btx})
	})
}

// Update runs fn under a read-write transaction; bbolt itself serializes
// writers, but callers needing cross-holder fairness (cementer vs block
// processor vs pruner) go through writequeue.Queue first.
func (s *Store) Update(fn func(*Tx) error) error {
	return s.db.Update(func(btx *bolt.Tx) error {
		return fn(&Tx{btx: btx, writable: true})
	})
}

// Version returns the current schema version.
func (s *Store) Version() (uint32, error) {
	var v uint32
	err := s.View(func(tx *Tx) error {
		var err error
		v, err = tx.Version()
		return err
	})
	return v, err
}
