package cryptosuite

import (
	"context"

	"github.com/latticenet/node/block"
)

// WorkPool is the external collaborator contract for proof-of-work
// generation (spec.md §1 "wallet key management and work-proof generation
// ... consumed via a work-pool abstraction"). The core never generates work
// itself; it only validates nonces supplied by blocks. Nothing in this
// repository implements or calls WorkPool. Supplemented from
// original_source/node/src/bootstrap/bootstrap_wallet.rs, which shows the
// original exposing the same narrow contract point rather than owning key
// material.
type WorkPool interface {
	// GenerateWork returns a nonce satisfying threshold for root, blocking
	// until ctx is done or one is found.
	GenerateWork(ctx context.Context, root block.Hash, threshold uint64) (work uint64, err error)
}
