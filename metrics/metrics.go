// Package metrics holds the process-wide Prometheus collectors shared
// across the long-running loop components (spec.md §5), registered on the
// default registry the way cmd/latticenode exposes it for scraping.
// Grounded on the ambient-stack choice to carry github.com/prometheus/client_golang
// from the wider example corpus (SPEC_FULL.md §1 "Metrics").
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WriteQueueWaitSeconds observes how long each writequeue.Acquire call
	// waited before being granted, labeled by holder (spec.md §4.3).
	WriteQueueWaitSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "latticenode",
		Subsystem: "writequeue",
		Name:      "wait_seconds",
		Help:      "Time spent waiting to acquire the single-writer lock, by holder.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"holder"})

	// CementationBatchSeconds observes the wall time of each cementation
	// write transaction, the same quantity BatchSizeManager adapts toward
	// (spec.md §4.4, ~250ms target).
	CementationBatchSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "latticenode",
		Subsystem: "cement",
		Name:      "batch_seconds",
		Help:      "Wall time of one confirmation-height cementation batch.",
		Buckets:   prometheus.DefBuckets,
	})

	// ElectionsActive tracks the number of elections currently connected in
	// the vote router (spec.md §4.5).
	ElectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "latticenode",
		Subsystem: "election",
		Name:      "active",
		Help:      "Number of elections currently connected in the vote router.",
	})

	// VotesProcessedTotal counts inbound votes by their router classification
	// (spec.md §4.5 VoteCode: vote, replay, indeterminate, ignored, invalid).
	VotesProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "latticenode",
		Subsystem: "election",
		Name:      "votes_processed_total",
		Help:      "Inbound votes processed by the vote router, labeled by outcome code.",
	}, []string{"code"})

	// SchedulerQueuedBlocks tracks how many blocks are currently waiting in
	// the priority scheduler's buckets (spec.md §4.9).
	SchedulerQueuedBlocks = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "latticenode",
		Subsystem: "scheduler",
		Name:      "queued_blocks",
		Help:      "Number of blocks currently queued across all priority buckets.",
	})

	// VotesGeneratedTotal counts this node's own generated votes, labeled by
	// whether they were final votes (spec.md §4.8).
	VotesGeneratedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "latticenode",
		Subsystem: "voting",
		Name:      "votes_generated_total",
		Help:      "Votes generated and signed by this node, labeled by final/normal.",
	}, []string{"kind"})
)
