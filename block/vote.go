package block

// MaxVoteHashes is the largest number of block hashes a single vote may
// bundle (spec.md §3 "Vote").
const MaxVoteHashes = 255

// FinalTimestamp is the all-ones sentinel marking a vote as final: it counts
// toward final quorum (spec.md GLOSSARY "Final vote").
const FinalTimestamp = ^uint64(0)

const voteDomainTag = "lattice-vote-v1"

// Vote is a representative's signed statement that it favors the given
// block hashes at the given qualified roots (spec.md §3 "Vote").
type Vote struct {
	Account   Hash
	Timestamp uint64 // low 4 bits: duration exponent, unless all-ones (final)
	Signature Signature
	Hashes    []Hash
}

// IsFinal reports whether Timestamp is the all-ones final sentinel.
func (v Vote) IsFinal() bool { return v.Timestamp == FinalTimestamp }

// DurationExponent returns the low-4-bit duration exponent. Meaningless for
// a final vote.
func (v Vote) DurationExponent() uint8 { return uint8(v.Timestamp & 0xF) }

// SigningDigest is the domain-tagged hash signed over the hash list and the
// raw timestamp (spec.md §3 "Vote").
func (v Vote) SigningDigest() Hash {
	buf := make([]byte, 0, len(voteDomainTag)+8+32*len(v.Hashes))
	buf = append(buf, voteDomainTag...)
	var ts [8]byte
	putU64LE(ts[:], v.Timestamp)
	buf = append(buf, ts[:]...)
	for _, h := range v.Hashes {
		buf = append(buf, h[:]...)
	}
	return sha3_256(buf)
}

// EncodeVote serializes a vote as account(32) ‖ signature(64) ‖
// timestamp(8 LE) ‖ hashes(32 each) (spec.md §6 "Vote serialization").
func EncodeVote(v Vote) ([]byte, error) {
	if len(v.Hashes) == 0 {
		return nil, errParse("vote: empty hash list")
	}
	if len(v.Hashes) > MaxVoteHashes {
		return nil, errParse("vote: %d hashes exceeds max %d", len(v.Hashes), MaxVoteHashes)
	}
	out := make([]byte, 0, 32+64+8+32*len(v.Hashes))
	out = append(out, v.Account[:]...)
	out = append(out, v.Signature[:]...)
	var ts [8]byte
	putU64LE(ts[:], v.Timestamp)
	out = append(out, ts[:]...)
	for _, h := range v.Hashes {
		out = append(out, h[:]...)
	}
	return out, nil
}

// DecodeVote is the inverse of EncodeVote.
func DecodeVote(b []byte) (Vote, error) {
	const header = 32 + 64 + 8
	if len(b) < header {
		return Vote{}, errParse("vote: truncated header")
	}
	rest := b[header:]
	if len(rest)%32 != 0 {
		return Vote{}, errParse("vote: trailing bytes")
	}
	n := len(rest) / 32
	if n == 0 {
		return Vote{}, errParse("vote: empty hash list")
	}
	if n > MaxVoteHashes {
		return Vote{}, errParse("vote: %d hashes exceeds max %d", n, MaxVoteHashes)
	}
	var v Vote
	copy(v.Account[:], b[0:32])
	copy(v.Signature[:], b[32:96])
	v.Timestamp = getU64LE(b[96:104])
	v.Hashes = make([]Hash, n)
	for i := 0; i < n; i++ {
		copy(v.Hashes[i][:], rest[i*32:(i+1)*32])
	}
	return v, nil
}
