package buffer

import (
	"github.com/mzenz/CircularBuffer/errors"
)

// BoundaryPolicy decides whether overflow and underflow are reported to the caller.
// Implementations are zero-size types selected as a type parameter of RingBuffer.
type BoundaryPolicy interface {
	// CheckFull is consulted when a push finds the buffer full. capacity is the capacity the
	// buffer would have after the growth policy ran, so a growable buffer is never reported full.
	CheckFull(count, capacity int) error

	// CheckEmpty is consulted before every pop.
	CheckEmpty(count int) error
}

// GrowthPolicy computes the capacity a full buffer grows to on push.
// Returning the current capacity disables growth.
type GrowthPolicy interface {
	NewCapacity(current int) int
}

// Unchecked never reports boundary violations.
//
// Combined with Fixed growth a push into a full buffer overwrites the oldest element, and a
// pop from an empty buffer yields the zero value. Use it only where the caller already knows
// the buffer state.
type Unchecked struct{}

// CheckFull is a no-op.
func (Unchecked) CheckFull(int, int) error { return nil }

// CheckEmpty is a no-op.
func (Unchecked) CheckEmpty(int) error { return nil }

// Checked reports ErrBufferFull and ErrBufferEmpty.
type Checked struct{}

// CheckFull returns ErrBufferFull when count has reached capacity.
func (Checked) CheckFull(count, capacity int) error {
	if count >= capacity {
		return errors.ErrBufferFull
	}
	return nil
}

// CheckEmpty returns ErrBufferEmpty when count is zero.
func (Checked) CheckEmpty(count int) error {
	if count == 0 {
		return errors.ErrBufferEmpty
	}
	return nil
}

// Fixed keeps the capacity unchanged.
type Fixed struct{}

// NewCapacity returns current.
func (Fixed) NewCapacity(current int) int { return current }

// GrowByOne adds a single slot per growth step.
type GrowByOne struct{}

// NewCapacity returns current+1.
func (GrowByOne) NewCapacity(current int) int { return current + 1 }

// GrowByDoubling doubles the capacity, starting from 1 for an empty buffer.
type GrowByDoubling struct{}

// NewCapacity returns current*2, or 1 when current is 0.
func (GrowByDoubling) NewCapacity(current int) int {
	if current == 0 {
		return 1
	}
	return current * 2
}

// policyName returns a short label for logs and metrics.
func policyName(p any) string {
	switch p.(type) {
	case Unchecked:
		return "unchecked"
	case Checked:
		return "checked"
	case Fixed:
		return "fixed"
	case GrowByOne:
		return "grow_by_one"
	case GrowByDoubling:
		return "grow_by_doubling"
	default:
		return "custom"
	}
}
