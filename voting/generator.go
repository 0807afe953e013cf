// Package voting implements the vote generator and confirmation solicitor
// (component C10): signing and broadcasting this node's own votes (normal
// and final instances), spacing them per root, bundling hashes up to
// CONFIRM_ACK_HASHES_MAX, and fanning out confirmation requests across
// peered representative channels with per-election caps. Grounded on
// original_source/rust/node/src/consensus/{vote_generator.rs,
// confirmation_solicitor.rs,vote_generation/request_aggregator_impl.rs}.
package voting

import (
	"crypto/ed25519"
	"sync"
	"time"

	"github.com/latticenet/node/block"
	"github.com/latticenet/node/cryptosuite"
	"github.com/latticenet/node/metrics"
)

// ConfirmAckHashesMax bounds how many hashes one ConfirmAck/vote bundles
// (spec.md §6 "CONFIRM_ACK_HASHES_MAX"), mirroring block.MaxVoteHashes.
const ConfirmAckHashesMax = block.MaxVoteHashes

// Broadcaster is the transport-facing sink a generated vote is handed to;
// wire.Publisher (once built) or a test double satisfies this.
type Broadcaster interface {
	BroadcastVote(v block.Vote)
}

// Generator accumulates (root, hash) pairs for roots this node represents
// and periodically flushes them into signed, spaced votes. One instance
// handles normal votes; a second, separately configured instance (Final:
// true) handles final votes — mirroring the original's two VoteGenerator
// instances rather than one generator with a mode flag, so spacing state
// never leaks between the two vote kinds.
type Generator struct {
	account     block.Hash
	priv        ed25519.PrivateKey
	final       bool
	broadcaster Broadcaster
	spacing     *Spacing

	mu      sync.Mutex
	pending []pendingEntry
}

type pendingEntry struct {
	Root block.Hash
	Hash block.Hash
}

// NewGenerator constructs a generator that signs as account using priv.
// votingDelay is the minimum spacing between votes for the same root
// (spec.md §4.8, grounded on vote_generator.rs's VoteSpacing).
func NewGenerator(account block.Hash, priv ed25519.PrivateKey, final bool, votingDelay time.Duration, b Broadcaster) *Generator {
	return &Generator{
		account:     account,
		priv:        priv,
		final:       final,
		broadcaster: b,
		spacing:     NewSpacing(votingDelay),
	}
}

// Add enqueues a (root, hash) candidate for the next flush, refusing it if
// VoteSpacing says this root voted too recently.
func (g *Generator) Add(root, hash block.Hash) bool {
	if !g.spacing.Votable(root, hash) {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pending = append(g.pending, pendingEntry{Root: root, Hash: hash})
	return true
}

// Flush signs and broadcasts every pending hash, bundled into as few votes
// as ConfirmAckHashesMax allows, then clears the queue.
func (g *Generator) Flush(now func() uint64) {
	g.mu.Lock()
	entries := g.pending
	g.pending = nil
	g.mu.Unlock()

	if len(entries) == 0 {
		return
	}
	for start := 0; start < len(entries); start += ConfirmAckHashesMax {
		end := min(start+ConfirmAckHashesMax, len(entries))
		batch := entries[start:end]
		hashes := make([]block.Hash, len(batch))
		for i, e := range batch {
			hashes[i] = e.Hash
			g.spacing.Record(e.Root, e.Hash)
		}
		v := g.sign(hashes, now)
		kind := "normal"
		if g.final {
			kind = "final"
		}
		metrics.VotesGeneratedTotal.WithLabelValues(kind).Inc()
		g.broadcaster.BroadcastVote(v)
	}
}

func (g *Generator) sign(hashes []block.Hash, now func() uint64) block.Vote {
	ts := now()
	if g.final {
		ts = block.FinalTimestamp
	}
	v := block.Vote{Account: g.account, Timestamp: ts, Hashes: hashes}
	digest := v.SigningDigest()
	v.Signature = cryptosuite.Sign(g.priv, digest)
	return v
}
