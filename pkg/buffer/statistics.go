package buffer

import (
	"time"
)

// Statistics tracks buffer operations.
//
// A Statistics value belongs to the buffer that created it and shares its single-owner
// contract: read it from the goroutine that drives the buffer.
type Statistics struct {
	pushes          int64
	pops            int64
	overflows       int64
	underflows      int64
	drops           int64
	resizes         int64
	allocFailures   int64
	currentCount    int64
	maxCount        int64
	currentCapacity int64
	startTime       time.Time
}

// NewStatistics creates a new statistics tracker.
func NewStatistics() *Statistics {
	return &Statistics{
		startTime: time.Now(),
	}
}

// Push records a stored element.
func (s *Statistics) Push() { s.pushes++ }

// Pop records a removed element.
func (s *Statistics) Pop() { s.pops++ }

// PopN records n removed elements.
func (s *Statistics) PopN(n int) { s.pops += int64(n) }

// Overflow records a push rejected by the boundary policy.
func (s *Statistics) Overflow() { s.overflows++ }

// Underflow records a pop rejected by the boundary policy.
func (s *Statistics) Underflow() { s.underflows++ }

// Drop records an element discarded by the overwrite path.
func (s *Statistics) Drop() { s.drops++ }

// Resize records a completed storage reshape.
func (s *Statistics) Resize() { s.resizes++ }

// AllocationFailure records a construct or resize the allocator could not serve.
func (s *Statistics) AllocationFailure() { s.allocFailures++ }

// UpdateCount updates the live element count and its high-water mark.
func (s *Statistics) UpdateCount(count int) {
	s.currentCount = int64(count)
	if s.currentCount > s.maxCount {
		s.maxCount = s.currentCount
	}
}

// UpdateCapacity records the current capacity.
func (s *Statistics) UpdateCapacity(capacity int) {
	s.currentCapacity = int64(capacity)
}

// Pushes returns the total number of stored elements.
func (s *Statistics) Pushes() int64 { return s.pushes }

// Pops returns the total number of removed elements.
func (s *Statistics) Pops() int64 { return s.pops }

// Overflows returns the number of rejected pushes.
func (s *Statistics) Overflows() int64 { return s.overflows }

// Underflows returns the number of rejected pops.
func (s *Statistics) Underflows() int64 { return s.underflows }

// Drops returns the number of overwritten or discarded elements.
func (s *Statistics) Drops() int64 { return s.drops }

// Resizes returns the number of completed resizes, growth included.
func (s *Statistics) Resizes() int64 { return s.resizes }

// AllocationFailures returns the number of failed allocations.
func (s *Statistics) AllocationFailures() int64 { return s.allocFailures }

// CurrentCount returns the live element count at the last operation.
func (s *Statistics) CurrentCount() int64 { return s.currentCount }

// MaxCount returns the highest live element count observed.
func (s *Statistics) MaxCount() int64 { return s.maxCount }

// Capacity returns the capacity at the last operation.
func (s *Statistics) Capacity() int64 { return s.currentCapacity }

// Utilization returns the current fill ratio (0.0 to 1.0).
func (s *Statistics) Utilization() float64 {
	if s.currentCapacity == 0 {
		return 0.0
	}
	return float64(s.currentCount) / float64(s.currentCapacity)
}

// DropRate returns the share of pushes that evicted an element (0.0 to 1.0).
func (s *Statistics) DropRate() float64 {
	if s.pushes == 0 {
		return 0.0
	}
	return float64(s.drops) / float64(s.pushes)
}

// Uptime returns how long the buffer has existed since creation or the last Reset.
func (s *Statistics) Uptime() time.Duration {
	return time.Since(s.startTime)
}

// Reset zeroes all counters. Count and capacity keep tracking the buffer.
func (s *Statistics) Reset() {
	*s = Statistics{
		currentCount:    s.currentCount,
		maxCount:        s.currentCount,
		currentCapacity: s.currentCapacity,
		startTime:       time.Now(),
	}
}

// StatsSummary is a point-in-time copy of Statistics.
type StatsSummary struct {
	Pushes             int64         `json:"pushes"`
	Pops               int64         `json:"pops"`
	Overflows          int64         `json:"overflows"`
	Underflows         int64         `json:"underflows"`
	Drops              int64         `json:"drops"`
	Resizes            int64         `json:"resizes"`
	AllocationFailures int64         `json:"allocation_failures"`
	CurrentCount       int64         `json:"current_count"`
	MaxCount           int64         `json:"max_count"`
	Capacity           int64         `json:"capacity"`
	Utilization        float64       `json:"utilization"`
	DropRate           float64       `json:"drop_rate"`
	Uptime             time.Duration `json:"uptime"`
}

// Summary returns a snapshot of all statistics.
func (s *Statistics) Summary() StatsSummary {
	return StatsSummary{
		Pushes:             s.pushes,
		Pops:               s.pops,
		Overflows:          s.overflows,
		Underflows:         s.underflows,
		Drops:              s.drops,
		Resizes:            s.resizes,
		AllocationFailures: s.allocFailures,
		CurrentCount:       s.currentCount,
		MaxCount:           s.maxCount,
		Capacity:           s.currentCapacity,
		Utilization:        s.Utilization(),
		DropRate:           s.DropRate(),
		Uptime:             s.Uptime(),
	}
}
