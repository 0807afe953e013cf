package block

import "crypto/sha3"

func sha3_256(b []byte) Hash {
	return Hash(sha3.Sum256(b))
}

// Hash computes the 32-byte digest over the hashable fields only (excluding
// signature and work). Equal blocks hash equal; any hashable-field change
// changes the hash (spec.md §3 "Block hash"). A block of unknown kind has
// no hashable fields and yields the zero Hash.
func (b Block) Hash() Hash {
	hashable, err := b.hashableBytes()
	if err != nil {
		return Hash{}
	}
	return sha3_256(hashable)
}

func (b Block) hashableBytes() ([]byte, error) {
	switch b.Kind {
	case KindSend:
		out := make([]byte, 0, 32+32+16)
		out = append(out, b.Previous[:]...)
		out = append(out, b.Destination[:]...)
		out = appendAmountBE(out, b.Balance)
		return out, nil
	case KindReceive:
		out := make([]byte, 0, 32+32)
		out = append(out, b.Previous[:]...)
		out = append(out, b.Source[:]...)
		return out, nil
	case KindOpen:
		out := make([]byte, 0, 32+32+32)
		out = append(out, b.Source[:]...)
		out = append(out, b.Representative[:]...)
		out = append(out, b.Account[:]...)
		return out, nil
	case KindChange:
		out := make([]byte, 0, 32+32)
		out = append(out, b.Previous[:]...)
		out = append(out, b.Representative[:]...)
		return out, nil
	case KindState:
		out := make([]byte, 0, 32+32+32+16+32)
		out = append(out, b.Account[:]...)
		out = append(out, b.Previous[:]...)
		out = append(out, b.Representative[:]...)
		out = appendAmountBE(out, b.Balance)
		out = append(out, b.Link[:]...)
		return out, nil
	default:
		return nil, errParse("unknown block kind")
	}
}

func appendAmountBE(out []byte, a Amount) []byte {
	var buf [16]byte
	putU64BE(buf[0:8], a.Hi)
	putU64BE(buf[8:16], a.Lo)
	return append(out, buf[:]...)
}

func putU64BE(b []byte, v uint64) {
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
}

func getU64BE(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v = v<<8 | uint64(b[i])
	}
	return v
}
