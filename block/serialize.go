package block

// Wire body sizes per kind: hashable fields, then a 64-byte signature, then
// an 8-byte little-endian work nonce (spec.md §6 "Block serialization"). The
// block type byte itself travels in the message framing header and is
// elided from the body.
const (
	sizeSend    = 32 + 32 + 16 + 64 + 8
	sizeReceive = 32 + 32 + 64 + 8
	sizeOpen    = 32 + 32 + 32 + 64 + 8
	sizeChange  = 32 + 32 + 64 + 8
	sizeState   = 32 + 32 + 32 + 16 + 32 + 64 + 8
)

// EncodedSize returns the fixed wire body size for kind, or 0 if unknown.
func EncodedSize(k Kind) int {
	switch k {
	case KindSend:
		return sizeSend
	case KindReceive:
		return sizeReceive
	case KindOpen:
		return sizeOpen
	case KindChange:
		return sizeChange
	case KindState:
		return sizeState
	default:
		return 0
	}
}

// Encode serializes the block body (without the type-byte framing header).
func Encode(b Block) ([]byte, error) {
	hashable, err := b.hashableBytes()
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(hashable)+64+8)
	out = append(out, hashable...)
	out = append(out, b.Signature[:]...)
	var work [8]byte
	putU64LE(work[:], b.Work)
	out = append(out, work[:]...)
	return out, nil
}

// Decode parses a block body of the given kind (the kind must come from the
// message framing header, per §6).
func Decode(kind Kind, body []byte) (Block, error) {
	want := EncodedSize(kind)
	if want == 0 {
		return Block{}, errParse("unknown block kind %d", kind)
	}
	if len(body) != want {
		return Block{}, errParse("%s: expected %d bytes, got %d", kind, want, len(body))
	}

	b := Block{Kind: kind}
	off := 0
	read := func(n int) []byte {
		s := body[off : off+n]
		off += n
		return s
	}

	switch kind {
	case KindSend:
		copy(b.Previous[:], read(32))
		copy(b.Destination[:], read(32))
		b.Balance = readAmountBE(read(16))
	case KindReceive:
		copy(b.Previous[:], read(32))
		copy(b.Source[:], read(32))
	case KindOpen:
		copy(b.Source[:], read(32))
		copy(b.Representative[:], read(32))
		copy(b.Account[:], read(32))
	case KindChange:
		copy(b.Previous[:], read(32))
		copy(b.Representative[:], read(32))
	case KindState:
		copy(b.Account[:], read(32))
		copy(b.Previous[:], read(32))
		copy(b.Representative[:], read(32))
		b.Balance = readAmountBE(read(16))
		copy(b.Link[:], read(32))
	}
	copy(b.Signature[:], read(64))
	b.Work = getU64LE(read(8))
	return b, nil
}

func readAmountBE(b []byte) Amount {
	return Amount{Hi: getU64BE(b[0:8]), Lo: getU64BE(b[8:16])}
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
