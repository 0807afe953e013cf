package kvstore

import (
	"fmt"

	bolt "go.etcd.io/bbolt"

	"github.com/latticenet/node/block"
)

func putU32(b *bolt.Bucket, key []byte, v uint32) error {
	var buf [4]byte
	buf[0] = byte(v >> 24)
	buf[1] = byte(v >> 16)
	buf[2] = byte(v >> 8)
	buf[3] = byte(v)
	return b.Put(key, buf[:])
}

func getU32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
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

func encodeAmount16(a block.Amount) []byte {
	buf := make([]byte, 16)
	putU64BE(buf[0:8], a.Hi)
	putU64BE(buf[8:16], a.Lo)
	return buf
}

func decodeAmount16(b []byte) (block.Amount, error) {
	if len(b) != 16 {
		return block.Amount{}, fmt.Errorf("kvstore: corrupt amount record (len %d)", len(b))
	}
	return block.Amount{Hi: getU64BE(b[0:8]), Lo: getU64BE(b[8:16])}, nil
}

// --- stored blocks: type byte + sideband + raw block body ---

func encodeStoredBlock(st block.Stored) ([]byte, error) {
	body, err := block.Encode(st.Block)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, 1+sidebandSize+len(body))
	out = append(out, byte(st.Block.Kind))
	out = appendSideband(out, st.Sideband)
	out = append(out, body...)
	return out, nil
}

func decodeStoredBlock(raw []byte) (*block.Stored, error) {
	if len(raw) < 1+sidebandSize {
		return nil, fmt.Errorf("kvstore: corrupt block record (len %d)", len(raw))
	}
	kind := block.Kind(raw[0])
	sb, err := decodeSideband(raw[1 : 1+sidebandSize])
	if err != nil {
		return nil, err
	}
	b, err := block.Decode(kind, raw[1+sidebandSize:])
	if err != nil {
		return nil, err
	}
	return &block.Stored{Block: b, Sideband: sb}, nil
}

// sidebandSize: account(32) + height(8) + successor(32) + balance(16) +
// details(1) + source_epoch(1).
const sidebandSize = 32 + 8 + 32 + 16 + 1 + 1

func appendSideband(out []byte, sb block.Sideband) []byte {
	out = append(out, sb.Account[:]...)
	var h [8]byte
	putU64BE(h[:], sb.Height)
	out = append(out, h[:]...)
	out = append(out, sb.Successor[:]...)
	out = append(out, encodeAmount16(sb.Balance)...)
	out = append(out, encodeDetails(sb.Details))
	out = append(out, sb.SourceEpoch)
	return out
}

func decodeSideband(b []byte) (block.Sideband, error) {
	if len(b) != sidebandSize {
		return block.Sideband{}, fmt.Errorf("kvstore: corrupt sideband record (len %d)", len(b))
	}
	var sb block.Sideband
	off := 0
	copy(sb.Account[:], b[off:off+32])
	off += 32
	sb.Height = getU64BE(b[off : off+8])
	off += 8
	copy(sb.Successor[:], b[off:off+32])
	off += 32
	amt, err := decodeAmount16(b[off : off+16])
	if err != nil {
		return block.Sideband{}, err
	}
	sb.Balance = amt
	off += 16
	sb.Details = decodeDetails(b[off])
	off++
	sb.SourceEpoch = b[off]
	return sb, nil
}

const (
	detailSendBit    = 1 << 0
	detailReceiveBit = 1 << 1
	detailEpochBit   = 1 << 2
)

func encodeDetails(d block.Details) byte {
	var v byte
	if d.IsSend {
		v |= detailSendBit
	}
	if d.IsReceive {
		v |= detailReceiveBit
	}
	if d.IsEpoch {
		v |= detailEpochBit
	}
	// epoch occupies the top 5 bits; 31 epochs is far beyond anything the
	// network will define.
	v |= d.Epoch << 3
	return v
}

func decodeDetails(v byte) block.Details {
	return block.Details{
		IsSend:    v&detailSendBit != 0,
		IsReceive: v&detailReceiveBit != 0,
		IsEpoch:   v&detailEpochBit != 0,
		Epoch:     v >> 3,
	}
}

// --- account info ---

// accountInfoSize: head(32) + rep(32) + open(32) + balance(16) + modified(8) +
// block_count(8) + epoch(1).
const accountInfoSize = 32 + 32 + 32 + 16 + 8 + 8 + 1

func encodeAccountInfo(info AccountInfo) []byte {
	out := make([]byte, 0, accountInfoSize)
	out = append(out, info.Head[:]...)
	out = append(out, info.Representative[:]...)
	out = append(out, info.OpenBlock[:]...)
	out = append(out, encodeAmount16(info.Balance)...)
	var m, c [8]byte
	putU64BE(m[:], info.Modified)
	putU64BE(c[:], info.BlockCount)
	out = append(out, m[:]...)
	out = append(out, c[:]...)
	out = append(out, info.Epoch)
	return out
}

func decodeAccountInfo(b []byte) (*AccountInfo, error) {
	if len(b) != accountInfoSize {
		return nil, fmt.Errorf("kvstore: corrupt account record (len %d)", len(b))
	}
	var info AccountInfo
	off := 0
	copy(info.Head[:], b[off:off+32])
	off += 32
	copy(info.Representative[:], b[off:off+32])
	off += 32
	copy(info.OpenBlock[:], b[off:off+32])
	off += 32
	amt, err := decodeAmount16(b[off : off+16])
	if err != nil {
		return nil, err
	}
	info.Balance = amt
	off += 16
	info.Modified = getU64BE(b[off : off+8])
	off += 8
	info.BlockCount = getU64BE(b[off : off+8])
	off += 8
	info.Epoch = b[off]
	return &info, nil
}

// --- pending ---

func encodePendingKey(k PendingKey) []byte {
	out := make([]byte, 0, 64)
	out = append(out, k.Destination[:]...)
	out = append(out, k.SendHash[:]...)
	return out
}

func decodePendingKey(b []byte) (PendingKey, error) {
	if len(b) != 64 {
		return PendingKey{}, fmt.Errorf("kvstore: corrupt pending key (len %d)", len(b))
	}
	var k PendingKey
	copy(k.Destination[:], b[0:32])
	copy(k.SendHash[:], b[32:64])
	return k, nil
}

// pendingValueSize: source(32) + amount(16) + epoch(1).
const pendingValueSize = 32 + 16 + 1

func encodePendingValue(v PendingValue) []byte {
	out := make([]byte, 0, pendingValueSize)
	out = append(out, v.Source[:]...)
	out = append(out, encodeAmount16(v.Amount)...)
	out = append(out, v.Epoch)
	return out
}

func decodePendingValue(b []byte) (*PendingValue, error) {
	if len(b) != pendingValueSize {
		return nil, fmt.Errorf("kvstore: corrupt pending value (len %d)", len(b))
	}
	var v PendingValue
	copy(v.Source[:], b[0:32])
	amt, err := decodeAmount16(b[32:48])
	if err != nil {
		return nil, err
	}
	v.Amount = amt
	v.Epoch = b[48]
	return &v, nil
}

// --- confirmation height ---

// confirmationHeightSize: height(8) + frontier(32).
const confirmationHeightSize = 8 + 32

func encodeConfirmationHeight(info ConfirmationHeightInfo) []byte {
	out := make([]byte, 0, confirmationHeightSize)
	var h [8]byte
	putU64BE(h[:], info.Height)
	out = append(out, h[:]...)
	out = append(out, info.Frontier[:]...)
	return out
}

func decodeConfirmationHeight(b []byte) (ConfirmationHeightInfo, error) {
	if len(b) != confirmationHeightSize {
		return ConfirmationHeightInfo{}, fmt.Errorf("kvstore: corrupt confirmation height record (len %d)", len(b))
	}
	var info ConfirmationHeightInfo
	info.Height = getU64BE(b[0:8])
	copy(info.Frontier[:], b[8:40])
	return info, nil
}

// --- qualified root ---

func encodeQualifiedRoot(qr QualifiedRoot) []byte {
	out := make([]byte, 0, 64)
	out = append(out, qr.Root[:]...)
	out = append(out, qr.Previous[:]...)
	return out
}
