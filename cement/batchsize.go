package cement

import "time"

// BatchSizeManager adapts how many blocks get cemented per write
// transaction to keep each transaction close to TargetDuration, grounded on
// original_source/rust/node/src/cementing/write_batch_slicer.rs's fixed
// batch_write_size generalized into a feedback loop (spec.md §4.4 "targets
// ~250 ms per write transaction; it adapts the size based on the last
// batch's duration").
type BatchSizeManager struct {
	TargetDuration time.Duration
	MinBatchSize   uint64
	MaxBatchSize   uint64

	current uint64
}

func NewBatchSizeManager() *BatchSizeManager {
	return &BatchSizeManager{
		TargetDuration: 250 * time.Millisecond,
		MinBatchSize:   16,
		MaxBatchSize:   1 << 20,
		current:        16 * 1024,
	}
}

// Size returns the current batch size target.
func (m *BatchSizeManager) Size() uint64 { return m.current }

// Adjust rescales the batch size proportionally to how far the last batch's
// duration was from TargetDuration.
func (m *BatchSizeManager) Adjust(blocksCemented uint64, elapsed time.Duration) {
	if blocksCemented == 0 || elapsed <= 0 {
		return
	}
	ratio := float64(m.TargetDuration) / float64(elapsed)
	next := uint64(float64(blocksCemented) * ratio)
	if next < m.MinBatchSize {
		next = m.MinBatchSize
	}
	if next > m.MaxBatchSize {
		next = m.MaxBatchSize
	}
	m.current = next
}
