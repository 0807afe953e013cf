// Package ratelimit implements token-bucket backpressure (component C14):
// capacity/refill-rate consumption with a smallest-observed-size burst
// tracker and an unlimited sentinel, used for the PoW work thread, inbound
// vote queue, and outbound per-channel per-traffic-class limits. Grounded
// directly on original_source/network/src/token_bucket.rs, translated from
// its refill-on-consume design.
package ratelimit

import (
	"sync"
	"time"
)

// Unlimited is the sentinel token count/rate meaning "no limit", matching
// token_bucket.rs's UNLIMITED constant (kept finite so largest-burst
// tracking still works for stats).
const Unlimited = 1_000_000_000

// Bucket is a single token bucket. Zero value is not usable; construct with
// New.
type Bucket struct {
	mu sync.Mutex

	lastRefill  time.Time
	currentSize uint64
	maxTokens   uint64
	refillRate  uint64 // tokens per second
	smallest    uint64
}

// New constructs a bucket with maxTokens capacity and refillRate tokens/sec.
// A zero maxTokens or refillRate means unlimited.
func New(maxTokens, refillRate uint64) *Bucket {
	b := &Bucket{}
	b.Reset(maxTokens, refillRate)
	return b
}

// TryConsume attempts to deduct tokensRequired tokens, refilling first. It
// reports whether the operation is permitted: either tokens were available,
// or the bucket is unlimited.
func (b *Bucket) TryConsume(tokensRequired uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refillLocked()
	possible := b.currentSize >= tokensRequired
	if possible {
		b.currentSize -= tokensRequired
	} else if tokensRequired == Unlimited {
		b.currentSize = 0
	}

	if b.currentSize < b.smallest {
		b.smallest = b.currentSize
	}

	return possible || b.refillRate == Unlimited
}

// Reset reparameterizes the bucket and refills it to full capacity,
// matching token_bucket.rs's reset() (0 for either argument means
// unlimited).
func (b *Bucket) Reset(maxTokens, refillRate uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if maxTokens == 0 || refillRate == 0 {
		maxTokens = Unlimited
		refillRate = Unlimited
	}
	b.smallest = maxTokens
	b.maxTokens = maxTokens
	b.currentSize = maxTokens
	b.refillRate = refillRate
	b.lastRefill = time.Now()
}

// LargestBurst returns the largest burst observed since the last Reset.
func (b *Bucket) LargestBurst() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.maxTokens - b.smallest
}

func (b *Bucket) refillLocked() {
	elapsed := time.Since(b.lastRefill)
	toAdd := uint64(elapsed.Seconds() * float64(b.refillRate))
	if toAdd == 0 {
		return
	}
	b.currentSize += toAdd
	if b.currentSize > b.maxTokens {
		b.currentSize = b.maxTokens
	}
	b.lastRefill = time.Now()
}
