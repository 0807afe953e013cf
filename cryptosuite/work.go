package cryptosuite

import (
	"golang.org/x/crypto/blake2b"

	"github.com/latticenet/node/block"
)

// Difficulty computes the first 8 bytes (little-endian) of a blake2b hash of
// the work nonce, keyed by root (spec.md §6 "Work thresholds":
// "difficulty(root, work) = first 8 bytes of a keyed hash over (work little-
// endian ‖ root)").
func Difficulty(root block.Hash, work uint64) uint64 {
	h, err := blake2b.New(8, root[:])
	if err != nil {
		// blake2b.New only errors on an oversize key; root is always 32 bytes.
		panic(err)
	}
	var buf [8]byte
	putU64LE(buf[:], work)
	h.Write(buf[:])
	return getU64LE(h.Sum(nil))
}

func putU64LE(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v)
		v >>= 8
	}
}

func getU64LE(b []byte) uint64 {
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}

// EpochThreshold holds the base and receive-block difficulty thresholds for
// one epoch.
type EpochThreshold struct {
	Base    uint64
	Receive uint64
}

// NetworkThresholds is the per-epoch threshold table for one network
// (spec.md §6: "Live/beta/dev/test networks each have their own threshold
// triple").
type NetworkThresholds struct {
	byEpoch map[uint8]EpochThreshold
}

// Threshold returns the difficulty floor for a block of the given epoch and
// receive-ness. Receive blocks get the lower threshold from epoch 2 onward
// (spec.md §4.1.5); epochs below 2 use the base threshold for both classes.
func (t NetworkThresholds) Threshold(epoch uint8, isReceive bool) uint64 {
	e, ok := t.byEpoch[epoch]
	if !ok {
		e = t.highestKnown()
	}
	if isReceive && epoch >= 2 {
		return e.Receive
	}
	return e.Base
}

func (t NetworkThresholds) highestKnown() EpochThreshold {
	var best uint8
	var bestSet bool
	for e := range t.byEpoch {
		if !bestSet || e > best {
			best, bestSet = e, true
		}
	}
	return t.byEpoch[best]
}

// CheckWork reports whether work meets the threshold for (root, epoch,
// isReceive).
func CheckWork(t NetworkThresholds, root block.Hash, work uint64, epoch uint8, isReceive bool) bool {
	return Difficulty(root, work) >= t.Threshold(epoch, isReceive)
}

// Network thresholds. Each network is independent so a devnet can run with
// trivially cheap work while mainnet stays expensive; values are
// placeholders of the right order of magnitude, not tuned against real
// hardware — operators override via nodeconfig.
var (
	LiveThresholds = NetworkThresholds{byEpoch: map[uint8]EpochThreshold{
		0: {Base: 0xffffffc000000000, Receive: 0xffffffc000000000},
		1: {Base: 0xffffffc000000000, Receive: 0xffffffc000000000},
		2: {Base: 0xfffffff800000000, Receive: 0xfffffe0000000000},
	}}
	BetaThresholds = NetworkThresholds{byEpoch: map[uint8]EpochThreshold{
		0: {Base: 0xfffff00000000000, Receive: 0xfffff00000000000},
		1: {Base: 0xfffff00000000000, Receive: 0xfffff00000000000},
		2: {Base: 0xfffffe0000000000, Receive: 0xffffc00000000000},
	}}
	DevThresholds = NetworkThresholds{byEpoch: map[uint8]EpochThreshold{
		0: {Base: 0xfe00000000000000, Receive: 0xfe00000000000000},
		1: {Base: 0xfe00000000000000, Receive: 0xfe00000000000000},
		2: {Base: 0xff00000000000000, Receive: 0xf000000000000000},
	}}
	TestThresholds = DevThresholds
)
