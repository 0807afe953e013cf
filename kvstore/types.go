package kvstore

import "github.com/latticenet/node/block"

// AccountInfo is the per-account head-of-chain record (spec.md §3
// "Account info").
type AccountInfo struct {
	Head           block.Hash
	Representative block.Hash
	OpenBlock      block.Hash
	Balance        block.Amount
	Modified       uint64 // unix seconds
	BlockCount     uint64
	Epoch          uint8
}

// ConfirmationHeightInfo is the per-account cementation record (spec.md §3
// "Confirmation-height info"). Absent from the table means height 0.
type ConfirmationHeightInfo struct {
	Height uint64
	Frontier block.Hash
}

// PendingKey identifies a receivable entry: (destination account, send block
// hash) (spec.md §3 "Pending entry").
type PendingKey struct {
	Destination block.Hash
	SendHash    block.Hash
}

// PendingValue is the receivable amount and provenance of a pending entry.
type PendingValue struct {
	Source block.Hash
	Amount block.Amount
	Epoch  uint8
}
