package ratelimit

import "golang.org/x/time/rate"

// ChannelLimiter wraps golang.org/x/time/rate.Limiter for the simple
// per-channel, per-traffic-class outbound limits that don't need Bucket's
// reset/burst-tracking contract (spec.md §4.10's "outbound per-channel
// per-traffic-class limits" — most of these are plain "N messages/sec",
// which rate.Limiter already models without reimplementation).
type ChannelLimiter struct {
	limiter *rate.Limiter
}

// NewChannelLimiter builds a limiter allowing ratePerSec sustained events
// with a burst of up to burst.
func NewChannelLimiter(ratePerSec float64, burst int) *ChannelLimiter {
	return &ChannelLimiter{limiter: rate.NewLimiter(rate.Limit(ratePerSec), burst)}
}

// Allow reports whether one event may proceed now.
func (c *ChannelLimiter) Allow() bool {
	return c.limiter.Allow()
}

// SetLimit reparameterizes the sustained rate.
func (c *ChannelLimiter) SetLimit(ratePerSec float64) {
	c.limiter.SetLimit(rate.Limit(ratePerSec))
}
