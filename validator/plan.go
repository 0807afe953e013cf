package validator

import (
	"github.com/latticenet/node/block"
	"github.com/latticenet/node/kvstore"
)

// WeightDelta is one representative weight adjustment a Plan requires.
// Subtract=true means the representative loses Amount (e.g. the account's
// old representative, on a Change block).
type WeightDelta struct {
	Representative block.Hash
	Amount         block.Amount
	Subtract       bool
}

// Plan is the pure result of Validate: every store mutation process(block)
// (ledger.Ledger.Process) must apply atomically, computed without side
// effects so callers can re-check preconditions before committing it.
type Plan struct {
	Hash  block.Hash
	Block block.Block

	Sideband     block.Sideband
	AccountAfter kvstore.AccountInfo

	PendingInsertKey   *kvstore.PendingKey
	PendingInsertValue *kvstore.PendingValue
	PendingDeleteKey   *kvstore.PendingKey

	WeightDeltas []WeightDelta

	// IsSend, IsReceive, IsEpoch classify the mutation for observations
	// (spec.md §4.2 "Emits an observation (account, block, is_send, is_epoch)").
	IsSend    bool
	IsReceive bool
	IsEpoch   bool
}
