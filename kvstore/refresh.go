package kvstore

import "time"

// MaxReadTxnAge bounds how long a single bbolt read transaction may be held.
// bbolt pins the freelist against the oldest open read transaction, so a
// walk that never lets go blocks space reclamation indefinitely (spec.md §5
// "long-held read transactions must be refreshed periodically, at most
// every 100ms"). bbolt has no refresh-in-place primitive, so RefreshingView
// periodically closes and reopens a fresh transaction instead.
const MaxReadTxnAge = 100 * time.Millisecond

// RefreshingView drives a long walk as a series of short read transactions
// instead of one long-held one. step runs under a fresh *Tx, does one bounded
// slice of work starting from cursor, and returns the cursor to resume from
// next time plus done=true once the walk has nothing left to do.
//
// Nothing in this repository calls it: the pruner and backlog populator
// each walk accounts under a single View.
func (s *Store) RefreshingView(step func(tx *Tx, cursor []byte) (next []byte, done bool, err error)) error {
	var cursor []byte
	for {
		var next []byte
		var done bool
		var stepErr error
		if err := s.View(func(tx *Tx) error {
			next, done, stepErr = step(tx, cursor)
			return nil
		}); err != nil {
			return err
		}
		if stepErr != nil {
			return stepErr
		}
		if done {
			return nil
		}
		cursor = next
	}
}
