package cryptosuite

import "github.com/latticenet/node/block"

// EpochSigners maps epoch number to the account designated to sign the
// epoch-upgrade block for that epoch (spec.md §4.1.8, GLOSSARY "Epoch
// block"). Epoch 0 has no signer: every account starts there implicitly.
type EpochSigners map[uint8]block.Hash

// IsEpochSigner reports whether account is the designated signer for
// targetEpoch.
func (s EpochSigners) IsEpochSigner(account block.Hash, targetEpoch uint8) bool {
	signer, ok := s[targetEpoch]
	return ok && signer == account
}
