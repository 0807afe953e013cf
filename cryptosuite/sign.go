// Package cryptosuite provides the signing, hashing, and proof-of-work
// difficulty primitives the validator and ledger depend on (spec.md §4.1.4-5,
// §6 "Work thresholds"), generalized from the teacher's narrow
// crypto.CryptoProvider interface (grounded on crypto/provider.go) to
// ed25519 + a keyed blake2b difficulty function instead of the teacher's
// post-quantum/HSM-oriented suites, which have no analog in this domain.
package cryptosuite

import (
	"crypto/ed25519"
	"math/big"

	"github.com/latticenet/node/block"
)

// groupOrder is the ed25519 scalar group order L = 2^252 +
// 27742317777372353535851937790883648493.
var groupOrder = func() *big.Int {
	l, ok := new(big.Int).SetString("1000000000000000000000000000000014def9dea2f79cd65812631a5cf5d3", 16)
	if !ok {
		panic("cryptosuite: bad group order constant")
	}
	return l
}()

// VerifyMode selects the strictness of signature verification. Pre-epoch-1
// blocks (the original network's legacy era, before the v1 epoch upgrade)
// accept a documented relaxation that later strict verification dropped;
// this is spec.md §9's first Open Question, resolved here as: relaxed mode
// additionally accepts a non-canonical (unreduced) S scalar by reducing it
// modulo the group order before re-checking, since that was the concrete
// historical relaxation over plain RFC 8032 verification. It does not
// special-case low-order R components, which strict RFC 8032 verification
// already accepts.
type VerifyMode int

const (
	VerifyStrict VerifyMode = iota
	VerifyRelaxedLegacy
)

// VerifySignature checks sig over msg under pub. mode selects strictness;
// callers pick VerifyRelaxedLegacy only for blocks whose account epoch is
// before epoch 1 (validator enforces this, not this package).
func VerifySignature(pub block.Hash, msg block.Hash, sig block.Signature, mode VerifyMode) bool {
	if ed25519.Verify(pub[:], msg[:], sig[:]) {
		return true
	}
	if mode != VerifyRelaxedLegacy {
		return false
	}
	return verifyWithReducedS(pub, msg, sig)
}

func verifyWithReducedS(pub block.Hash, msg block.Hash, sig block.Signature) bool {
	s := new(big.Int).SetBytes(reverseBytes(sig[32:64]))
	if s.Cmp(groupOrder) < 0 {
		// Already canonical; strict verify already tried and failed.
		return false
	}
	reduced := new(big.Int).Mod(s, groupOrder)
	reducedLE := reduced.FillBytes(make([]byte, 32))
	reverseInPlace(reducedLE)

	var adjusted block.Signature
	copy(adjusted[:32], sig[:32])
	copy(adjusted[32:], reducedLE)
	return ed25519.Verify(pub[:], msg[:], adjusted[:])
}

func reverseBytes(b []byte) []byte {
	out := make([]byte, len(b))
	for i, v := range b {
		out[len(b)-1-i] = v
	}
	return out
}

func reverseInPlace(b []byte) {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}

// Sign produces a signature over msg using priv, for test fixtures and the
// vote generator's own signing path.
func Sign(priv ed25519.PrivateKey, msg block.Hash) block.Signature {
	raw := ed25519.Sign(priv, msg[:])
	var out block.Signature
	copy(out[:], raw)
	return out
}
