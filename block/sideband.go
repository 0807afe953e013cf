package block

// Details packs the per-block-detail flags stored in the sideband (spec.md
// §3 "Sideband").
type Details struct {
	IsSend    bool
	IsReceive bool
	IsEpoch   bool
	Epoch     uint8
}

// Sideband is derived metadata stored alongside each block: never hashed,
// always recomputed by the validator/ledger, never trusted from the wire.
type Sideband struct {
	Account     Hash
	Height      uint64 // 1-based chain position
	Successor   Hash   // zero at tip
	Balance     Amount // balance after this block applies
	Details     Details
	SourceEpoch uint8
}

// Stored pairs a block with its sideband, the unit kvstore persists under the
// `blocks` table (spec.md §6).
type Stored struct {
	Block    Block
	Sideband Sideband
}
