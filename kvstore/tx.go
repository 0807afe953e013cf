package kvstore

import (
	"fmt"

	bolt "go.etcd.io/bbolt"

	"github.com/latticenet/node/block"
)

// Tx is a single store transaction, read-only unless opened via Store.Update.
type Tx struct {
	btx      *bolt.Tx
	writable bool
}

func (tx *Tx) requireWritable() error {
	if !tx.writable {
		return fmt.Errorf("kvstore: write attempted on a read-only transaction")
	}
	return nil
}

func (tx *Tx) Version() (uint32, error) {
	b := tx.btx.Bucket(tableVersion)
	v := b.Get([]byte(versionKey))
	if v == nil {
		return 0, fmt.Errorf("kvstore: version not set")
	}
	return getU32(v), nil
}

// --- blocks ---

func (tx *Tx) GetBlock(hash block.Hash) (*block.Stored, bool, error) {
	raw := tx.btx.Bucket(tableBlocks).Get(hash[:])
	if raw == nil {
		return nil, false, nil
	}
	st, err := decodeStoredBlock(raw)
	if err != nil {
		return nil, false, err
	}
	return st, true, nil
}

func (tx *Tx) PutBlock(hash block.Hash, st block.Stored) error {
	if err := tx.requireWritable(); err != nil {
		return err
	}
	raw, err := encodeStoredBlock(st)
	if err != nil {
		return err
	}
	return tx.btx.Bucket(tableBlocks).Put(hash[:], raw)
}

func (tx *Tx) DeleteBlock(hash block.Hash) error {
	if err := tx.requireWritable(); err != nil {
		return err
	}
	return tx.btx.Bucket(tableBlocks).Delete(hash[:])
}

// BlockExistsOrPruned reports whether hash is a known block or a pruned-away
// one (spec.md §4.2 "block_exists_or_pruned").
func (tx *Tx) BlockExistsOrPruned(hash block.Hash) (bool, error) {
	if tx.btx.Bucket(tableBlocks).Get(hash[:]) != nil {
		return true, nil
	}
	return tx.IsPruned(hash)
}

// --- accounts ---

func (tx *Tx) GetAccount(account block.Hash) (*AccountInfo, bool, error) {
	raw := tx.btx.Bucket(tableAccounts).Get(account[:])
	if raw == nil {
		return nil, false, nil
	}
	info, err := decodeAccountInfo(raw)
	if err != nil {
		return nil, false, err
	}
	return info, true, nil
}

func (tx *Tx) PutAccount(account block.Hash, info AccountInfo) error {
	if err := tx.requireWritable(); err != nil {
		return err
	}
	raw := encodeAccountInfo(info)
	return tx.btx.Bucket(tableAccounts).Put(account[:], raw)
}

func (tx *Tx) DeleteAccount(account block.Hash) error {
	if err := tx.requireWritable(); err != nil {
		return err
	}
	return tx.btx.Bucket(tableAccounts).Delete(account[:])
}

// AccountsAfter returns up to n account keys strictly greater than after
// (or from the very first account if after is the zero hash), in key
// order, for the backlog populator's paginated sweep.
func (tx *Tx) AccountsAfter(after block.Hash, n int) []block.Hash {
	c := tx.btx.Bucket(tableAccounts).Cursor()
	var k []byte
	if after.IsZero() {
		k, _ = c.First()
	} else {
		c.Seek(after[:])
		k, _ = c.Next()
	}
	out := make([]block.Hash, 0, n)
	for ; k != nil && len(out) < n; k, _ = c.Next() {
		var account block.Hash
		copy(account[:], k)
		out = append(out, account)
	}
	return out
}

// --- pending ---

func (tx *Tx) GetPending(key PendingKey) (*PendingValue, bool, error) {
	raw := tx.btx.Bucket(tablePending).Get(encodePendingKey(key))
	if raw == nil {
		return nil, false, nil
	}
	v, err := decodePendingValue(raw)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (tx *Tx) PutPending(key PendingKey, v PendingValue) error {
	if err := tx.requireWritable(); err != nil {
		return err
	}
	return tx.btx.Bucket(tablePending).Put(encodePendingKey(key), encodePendingValue(v))
}

func (tx *Tx) DeletePending(key PendingKey) error {
	if err := tx.requireWritable(); err != nil {
		return err
	}
	return tx.btx.Bucket(tablePending).Delete(encodePendingKey(key))
}

// PendingForAccount iterates every pending entry for destination in
// lexicographic send-hash order, calling fn until it returns false or the
// entries are exhausted.
func (tx *Tx) PendingForAccount(destination block.Hash, fn func(PendingKey, PendingValue) bool) error {
	c := tx.btx.Bucket(tablePending).Cursor()
	prefix := destination[:]
	for k, v := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, v = c.Next() {
		key, err := decodePendingKey(k)
		if err != nil {
			return err
		}
		val, err := decodePendingValue(v)
		if err != nil {
			return err
		}
		if !fn(key, *val) {
			break
		}
	}
	return nil
}

func hasPrefix(b, prefix []byte) bool {
	return len(b) >= len(prefix) && string(b[:len(prefix)]) == string(prefix)
}

// --- confirmation height ---

func (tx *Tx) GetConfirmationHeight(account block.Hash) (ConfirmationHeightInfo, error) {
	raw := tx.btx.Bucket(tableConfirmationHeight).Get(account[:])
	if raw == nil {
		return ConfirmationHeightInfo{}, nil
	}
	return decodeConfirmationHeight(raw)
}

func (tx *Tx) PutConfirmationHeight(account block.Hash, info ConfirmationHeightInfo) error {
	if err := tx.requireWritable(); err != nil {
		return err
	}
	return tx.btx.Bucket(tableConfirmationHeight).Put(account[:], encodeConfirmationHeight(info))
}

// --- final vote ---

// QualifiedRoot is (root, previous): the position in an account chain a
// block claims (GLOSSARY "Qualified root").
type QualifiedRoot struct {
	Root     block.Hash
	Previous block.Hash
}

func (tx *Tx) GetFinalVote(qr QualifiedRoot) (block.Hash, bool, error) {
	raw := tx.btx.Bucket(tableFinalVote).Get(encodeQualifiedRoot(qr))
	if raw == nil {
		return block.Hash{}, false, nil
	}
	var h block.Hash
	if len(raw) != 32 {
		return block.Hash{}, false, fmt.Errorf("kvstore: corrupt final_vote record")
	}
	copy(h[:], raw)
	return h, true, nil
}

// PutFinalVoteIfAbsent installs the unique final-vote marker for qr, failing
// (ok=false) if one already exists for a different hash (spec.md §4.8
// "persist a final-vote marker ... with uniqueness per root").
func (tx *Tx) PutFinalVoteIfAbsent(qr QualifiedRoot, hash block.Hash) (ok bool, err error) {
	if err := tx.requireWritable(); err != nil {
		return false, err
	}
	existing, found, err := tx.GetFinalVote(qr)
	if err != nil {
		return false, err
	}
	if found {
		return existing == hash, nil
	}
	return true, tx.btx.Bucket(tableFinalVote).Put(encodeQualifiedRoot(qr), hash[:])
}

// --- pruned ---

func (tx *Tx) IsPruned(hash block.Hash) (bool, error) {
	return tx.btx.Bucket(tablePruned).Get(hash[:]) != nil, nil
}

func (tx *Tx) PutPruned(hash block.Hash) error {
	if err := tx.requireWritable(); err != nil {
		return err
	}
	return tx.btx.Bucket(tablePruned).Put(hash[:], []byte{})
}

// --- rep weights ---

func (tx *Tx) GetRepWeight(rep block.Hash) (block.Amount, error) {
	raw := tx.btx.Bucket(tableRepWeights).Get(rep[:])
	if raw == nil {
		return block.Amount{}, nil
	}
	return decodeAmount16(raw)
}

func (tx *Tx) PutRepWeight(rep block.Hash, amount block.Amount) error {
	if err := tx.requireWritable(); err != nil {
		return err
	}
	if amount.IsZero() {
		return tx.btx.Bucket(tableRepWeights).Delete(rep[:])
	}
	return tx.btx.Bucket(tableRepWeights).Put(rep[:], encodeAmount16(amount))
}

// ForEachRepWeight iterates every representative with nonzero weight.
func (tx *Tx) ForEachRepWeight(fn func(rep block.Hash, amount block.Amount) error) error {
	c := tx.btx.Bucket(tableRepWeights).Cursor()
	for k, v := c.First(); k != nil; k, v = c.Next() {
		var rep block.Hash
		copy(rep[:], k)
		amt, err := decodeAmount16(v)
		if err != nil {
			return err
		}
		if err := fn(rep, amt); err != nil {
			return err
		}
	}
	return nil
}

// AddRepWeight adjusts rep's weight by delta (which may be negative via
// subtract=true), used when account balances move between representatives.
func (tx *Tx) AddRepWeight(rep block.Hash, delta block.Amount, subtract bool) error {
	cur, err := tx.GetRepWeight(rep)
	if err != nil {
		return err
	}
	var next block.Amount
	var ok bool
	if subtract {
		next, ok = cur.Sub(delta)
	} else {
		next, ok = cur.Add(delta)
	}
	if !ok {
		return fmt.Errorf("kvstore: rep weight overflow/underflow for %s", rep)
	}
	return tx.PutRepWeight(rep, next)
}

// --- online weight samples ---

func (tx *Tx) PutOnlineWeightSample(timestamp uint64, amount block.Amount) error {
	if err := tx.requireWritable(); err != nil {
		return err
	}
	var key [8]byte
	putU64BE(key[:], timestamp)
	return tx.btx.Bucket(tableOnlineWeight).Put(key[:], encodeAmount16(amount))
}

// ForEachOnlineWeightSample iterates samples oldest-first.
func (tx *Tx) ForEachOnlineWeightSample(fn func(timestamp uint64, amount block.Amount) error) error {
	c := tx.btx.Bucket(tableOnlineWeight).Cursor()
	for k, v := c.First(); k != nil; k, v = c.Next() {
		amt, err := decodeAmount16(v)
		if err != nil {
			return err
		}
		if err := fn(getU64BE(k), amt); err != nil {
			return err
		}
	}
	return nil
}

func (tx *Tx) DeleteOnlineWeightSample(timestamp uint64) error {
	if err := tx.requireWritable(); err != nil {
		return err
	}
	var key [8]byte
	putU64BE(key[:], timestamp)
	return tx.btx.Bucket(tableOnlineWeight).Delete(key[:])
}

// --- peers ---

func (tx *Tx) PutPeer(endpoint string, lastSeen uint64) error {
	if err := tx.requireWritable(); err != nil {
		return err
	}
	var v [8]byte
	putU64BE(v[:], lastSeen)
	return tx.btx.Bucket(tablePeers).Put([]byte(endpoint), v[:])
}

func (tx *Tx) GetPeer(endpoint string) (uint64, bool, error) {
	raw := tx.btx.Bucket(tablePeers).Get([]byte(endpoint))
	if raw == nil {
		return 0, false, nil
	}
	return getU64BE(raw), true, nil
}
