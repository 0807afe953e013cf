// Package block implements the account-chain block and vote model (component C1):
// typed blocks, canonical hashing, signatures, and sideband metadata.
package block

import "fmt"

// Hash is a 32-byte cryptographic digest: a block hash, an account identifier
// (accounts and block hashes share the same ed25519-derived 32-byte space), or
// a link field.
type Hash [32]byte

func (h Hash) IsZero() bool {
	return h == Hash{}
}

func (h Hash) String() string {
	return fmt.Sprintf("%x", h[:])
}

// Signature is a raw 64-byte ed25519 signature.
type Signature [64]byte

// Amount is a 128-bit unsigned balance, stored as big-endian hi:lo halves so it
// serializes directly into the 16-byte wire/store layout §6 specifies for
// rep_weights and balances.
type Amount struct {
	Hi uint64
	Lo uint64
}

func (a Amount) IsZero() bool { return a.Hi == 0 && a.Lo == 0 }

// Cmp returns -1, 0, +1 as a is less than, equal to, or greater than b.
func (a Amount) Cmp(b Amount) int {
	if a.Hi != b.Hi {
		if a.Hi < b.Hi {
			return -1
		}
		return 1
	}
	switch {
	case a.Lo < b.Lo:
		return -1
	case a.Lo > b.Lo:
		return 1
	default:
		return 0
	}
}

// Add returns a+b and reports overflow rather than wrapping.
func (a Amount) Add(b Amount) (Amount, bool) {
	lo, carry := addWithCarry(a.Lo, b.Lo, 0)
	hi, carry2 := addWithCarry(a.Hi, b.Hi, carry)
	if carry2 != 0 {
		return Amount{}, false
	}
	return Amount{Hi: hi, Lo: lo}, true
}

// Sub returns a-b and reports underflow (a<b) rather than wrapping.
func (a Amount) Sub(b Amount) (Amount, bool) {
	if a.Cmp(b) < 0 {
		return Amount{}, false
	}
	lo, borrow := subWithBorrow(a.Lo, b.Lo, 0)
	hi, borrow2 := subWithBorrow(a.Hi, b.Hi, borrow)
	if borrow2 != 0 {
		return Amount{}, false
	}
	return Amount{Hi: hi, Lo: lo}, true
}

func addWithCarry(x, y, carryIn uint64) (sum, carryOut uint64) {
	sum = x + y + carryIn
	carryOut = 0
	if sum < x || (carryIn == 1 && sum == x) {
		carryOut = 1
	}
	return sum, carryOut
}

func subWithBorrow(x, y, borrowIn uint64) (diff, borrowOut uint64) {
	diff = x - y - borrowIn
	borrowOut = 0
	if x < y+borrowIn || (borrowIn == 1 && y == ^uint64(0)) {
		borrowOut = 1
	}
	return diff, borrowOut
}

// Kind is the closed set of block variants (spec.md §3 "Block (variant)").
type Kind uint8

const (
	KindInvalid Kind = iota
	KindSend
	KindReceive
	KindOpen
	KindChange
	KindState
)

func (k Kind) String() string {
	switch k {
	case KindSend:
		return "send"
	case KindReceive:
		return "receive"
	case KindOpen:
		return "open"
	case KindChange:
		return "change"
	case KindState:
		return "state"
	default:
		return "invalid"
	}
}

// EpochLink is the sentinel Link value of a State epoch block, distinguishing
// it from a receive (link = a send hash). It is a well-known constant chosen
// so it can never collide with a real block hash in practice (the genesis
// epoch-signer contract guarantees this out of band).
var EpochLink = Hash{
	0x65, 0x70, 0x6f, 0x63, 0x68, 0x20, 0x76, 0x31,
	0x62, 0x6c, 0x6f, 0x63, 0x6b, 0x20, 0x76, 0x31,
	0x76, 0x32, 0x76, 0x33, 0x76, 0x34, 0x76, 0x35,
	0x76, 0x36, 0x76, 0x37, 0x76, 0x38, 0x76, 0x39,
}

// Block is the closed sum of the five variants. Not every field is
// meaningful for every Kind; see the per-field comments. New block types
// require an explicit update here and at every switch over Kind in this
// module, the validator, and the cementer — no virtual dispatch.
type Block struct {
	Kind Kind

	// Previous is the prior block hash in the account's chain. Zero for Open.
	Previous Hash

	// Account is explicit for Open and State blocks. For legacy Send/Receive/
	// Change it is zero on the wire and resolved from the previous block's
	// sideband during validation.
	Account Hash

	// Representative is set by Open, Change, and State blocks.
	Representative Hash

	// Destination is the recipient account of a legacy Send block.
	Destination Hash

	// Source is the send-block hash a legacy Receive or Open block claims.
	Source Hash

	// Balance is the account's absolute balance immediately after this
	// block applies. Legacy Receive, Open and Change blocks carry no balance
	// on the wire, so it is zero for them once decoded; the balance after
	// every block is recorded in its Sideband.
	Balance Amount

	// Link is State-only: a destination account (send), a source block hash
	// (receive), or EpochLink (epoch upgrade). Zero for a State change.
	Link Hash

	Signature Signature
	Work      uint64
}

// IsLegacy reports whether this is one of the four pre-State block kinds.
func (b Block) IsLegacy() bool {
	return b.Kind == KindSend || b.Kind == KindReceive || b.Kind == KindChange || b.Kind == KindOpen
}

// Root is the proof-of-work root: Previous if non-zero, else Account (Open
// blocks bind work to the account instead of a previous hash).
func (b Block) Root() Hash {
	if !b.Previous.IsZero() {
		return b.Previous
	}
	return b.Account
}
