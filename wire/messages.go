package wire

import (
	"encoding/binary"
	"fmt"

	"github.com/latticenet/node/block"
)

// Publish carries one block for gossip relay (spec.md §6 "Publish").
type Publish struct {
	Kind  block.Kind
	Block block.Block
}

func EncodePublish(p Publish) ([]byte, error) {
	body, err := block.Encode(p.Block)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 1+len(body))
	out[0] = byte(p.Kind)
	copy(out[1:], body)
	return out, nil
}

func DecodePublish(b []byte) (Publish, error) {
	if len(b) < 1 {
		return Publish{}, fmt.Errorf("wire: truncated publish")
	}
	kind := block.Kind(b[0])
	blk, err := block.Decode(kind, b[1:])
	if err != nil {
		return Publish{}, err
	}
	return Publish{Kind: kind, Block: blk}, nil
}

// ConfirmReq asks a peer to vote on one or more (hash, root) pairs
// (spec.md §6 "ConfirmReq").
type ConfirmReq struct {
	Pairs []HashRoot
}

type HashRoot struct {
	Hash block.Hash
	Root block.Hash
}

func EncodeConfirmReq(r ConfirmReq) []byte {
	out := make([]byte, 4+64*len(r.Pairs))
	binary.LittleEndian.PutUint32(out[0:4], uint32(len(r.Pairs)))
	off := 4
	for _, p := range r.Pairs {
		copy(out[off:off+32], p.Hash[:])
		copy(out[off+32:off+64], p.Root[:])
		off += 64
	}
	return out
}

func DecodeConfirmReq(b []byte) (ConfirmReq, error) {
	if len(b) < 4 {
		return ConfirmReq{}, fmt.Errorf("wire: truncated confirm_req")
	}
	n := binary.LittleEndian.Uint32(b[0:4])
	rest := b[4:]
	if uint64(len(rest)) != uint64(n)*64 {
		return ConfirmReq{}, fmt.Errorf("wire: confirm_req length mismatch")
	}
	pairs := make([]HashRoot, n)
	for i := range pairs {
		off := i * 64
		copy(pairs[i].Hash[:], rest[off:off+32])
		copy(pairs[i].Root[:], rest[off+32:off+64])
	}
	return ConfirmReq{Pairs: pairs}, nil
}

// ConfirmAck is a vote broadcast in response to a ConfirmReq or
// spontaneously by a representative (spec.md §6 "ConfirmAck").
type ConfirmAck struct {
	Vote block.Vote
}

func EncodeConfirmAck(a ConfirmAck) ([]byte, error) {
	return block.EncodeVote(a.Vote)
}

func DecodeConfirmAck(b []byte) (ConfirmAck, error) {
	v, err := block.DecodeVote(b)
	if err != nil {
		return ConfirmAck{}, err
	}
	return ConfirmAck{Vote: v}, nil
}

// Keepalive carries a gossip sample of peer endpoints (spec.md §6
// "Keepalive").
type Keepalive struct {
	Peers []string
}

func EncodeKeepalive(k Keepalive) []byte {
	var out []byte
	out = binary.LittleEndian.AppendUint32(out, uint32(len(k.Peers)))
	for _, p := range k.Peers {
		out = binary.LittleEndian.AppendUint32(out, uint32(len(p)))
		out = append(out, p...)
	}
	return out
}

func DecodeKeepalive(b []byte) (Keepalive, error) {
	if len(b) < 4 {
		return Keepalive{}, fmt.Errorf("wire: truncated keepalive")
	}
	n := binary.LittleEndian.Uint32(b[0:4])
	off := 4
	peers := make([]string, 0, n)
	for i := uint32(0); i < n; i++ {
		if off+4 > len(b) {
			return Keepalive{}, fmt.Errorf("wire: truncated keepalive entry")
		}
		l := binary.LittleEndian.Uint32(b[off : off+4])
		off += 4
		if off+int(l) > len(b) {
			return Keepalive{}, fmt.Errorf("wire: truncated keepalive string")
		}
		peers = append(peers, string(b[off:off+int(l)]))
		off += int(l)
	}
	return Keepalive{Peers: peers}, nil
}

// AscPullReq asks a peer for a bounded window of blocks starting at a root
// (spec.md §6 "AscPullReq" — asynchronous bootstrap pull).
type AscPullReq struct {
	ID    uint64
	Start block.Hash
	Count uint16
}

func EncodeAscPullReq(r AscPullReq) []byte {
	out := make([]byte, 8+32+2)
	binary.LittleEndian.PutUint64(out[0:8], r.ID)
	copy(out[8:40], r.Start[:])
	binary.LittleEndian.PutUint16(out[40:42], r.Count)
	return out
}

func DecodeAscPullReq(b []byte) (AscPullReq, error) {
	if len(b) != 42 {
		return AscPullReq{}, fmt.Errorf("wire: bad asc_pull_req length")
	}
	var r AscPullReq
	r.ID = binary.LittleEndian.Uint64(b[0:8])
	copy(r.Start[:], b[8:40])
	r.Count = binary.LittleEndian.Uint16(b[40:42])
	return r, nil
}

// AscPullAck is the response: a contiguous run of blocks, oldest first.
type AscPullAck struct {
	ID     uint64
	Blocks []Publish
}

func EncodeAscPullAck(a AscPullAck) ([]byte, error) {
	out := make([]byte, 8, 64)
	binary.LittleEndian.PutUint64(out[0:8], a.ID)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(a.Blocks)))
	for _, p := range a.Blocks {
		body, err := EncodePublish(p)
		if err != nil {
			return nil, err
		}
		out = binary.LittleEndian.AppendUint32(out, uint32(len(body)))
		out = append(out, body...)
	}
	return out, nil
}

func DecodeAscPullAck(b []byte) (AscPullAck, error) {
	if len(b) < 12 {
		return AscPullAck{}, fmt.Errorf("wire: truncated asc_pull_ack")
	}
	var a AscPullAck
	a.ID = binary.LittleEndian.Uint64(b[0:8])
	n := binary.LittleEndian.Uint32(b[8:12])
	off := 12
	for i := uint32(0); i < n; i++ {
		if off+4 > len(b) {
			return AscPullAck{}, fmt.Errorf("wire: truncated asc_pull_ack entry length")
		}
		l := binary.LittleEndian.Uint32(b[off : off+4])
		off += 4
		if off+int(l) > len(b) {
			return AscPullAck{}, fmt.Errorf("wire: truncated asc_pull_ack entry body")
		}
		p, err := DecodePublish(b[off : off+int(l)])
		if err != nil {
			return AscPullAck{}, err
		}
		a.Blocks = append(a.Blocks, p)
		off += int(l)
	}
	return a, nil
}

// TelemetryReq has no payload; TelemetryAck carries a small fixed set of
// self-reported node stats (spec.md §6 "Telemetry" — advisory only, never
// trusted for consensus decisions).
type TelemetryAck struct {
	BlockCount      uint64
	CementedCount   uint64
	UncheckedCount  uint64
	AccountCount    uint64
	ProtocolVersion uint8
}

func EncodeTelemetryAck(t TelemetryAck) []byte {
	out := make([]byte, 33)
	binary.LittleEndian.PutUint64(out[0:8], t.BlockCount)
	binary.LittleEndian.PutUint64(out[8:16], t.CementedCount)
	binary.LittleEndian.PutUint64(out[16:24], t.UncheckedCount)
	binary.LittleEndian.PutUint64(out[24:32], t.AccountCount)
	out[32] = t.ProtocolVersion
	return out
}

func DecodeTelemetryAck(b []byte) (TelemetryAck, error) {
	if len(b) != 33 {
		return TelemetryAck{}, fmt.Errorf("wire: bad telemetry_ack length")
	}
	return TelemetryAck{
		BlockCount:      binary.LittleEndian.Uint64(b[0:8]),
		CementedCount:   binary.LittleEndian.Uint64(b[8:16]),
		UncheckedCount:  binary.LittleEndian.Uint64(b[16:24]),
		AccountCount:    binary.LittleEndian.Uint64(b[24:32]),
		ProtocolVersion: b[32],
	}, nil
}
