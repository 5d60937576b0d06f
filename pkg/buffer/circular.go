package buffer

import (
	stderrors "errors"
	"fmt"
	"time"

	"github.com/mzenz/CircularBuffer/errors"
)

// RingBuffer is a FIFO container over one contiguous block of slots addressed modulo its
// capacity. G decides how a full buffer grows and B decides whether overflow and underflow
// are reported; both are fixed at instantiation.
//
// A RingBuffer is owned by a single goroutine. Callers sharing one between goroutines must
// serialize access themselves.
type RingBuffer[T any, G GrowthPolicy, B BoundaryPolicy] struct {
	block   []T // as granted by the allocator, released as-is
	storage []T // block[:capacity]
	count   int
	head    int // oldest live element, next to pop
	tail    int // next slot to push into

	growth   G
	boundary B

	stats   *Statistics    // always initialized
	metrics *bufferMetrics // optional
	opts    *bufferOptions[T]
}

// New creates a buffer with room for capacity elements. Capacity may be 0.
// It fails if capacity is negative, if the allocator cannot grant the slots, or if metrics
// registration fails when metrics are requested.
func New[T any, G GrowthPolicy, B BoundaryPolicy](capacity int, options ...Option[T]) (*RingBuffer[T, G, B], error) {
	if capacity < 0 {
		return nil, errors.WrapInvalid(fmt.Errorf("%w: %d", errors.ErrInvalidCapacity, capacity),
			"RingBuffer", "New", "validate capacity")
	}

	rb := &RingBuffer[T, G, B]{
		stats: NewStatistics(),
		opts:  applyOptions(options...),
	}

	block, storage, err := rb.allocate(capacity)
	if err != nil {
		return nil, errors.WrapFatal(err, "RingBuffer", "New", "allocate storage")
	}
	rb.block, rb.storage = block, storage

	if rb.opts.metricsReg != nil {
		metrics, err := newBufferMetrics(rb.opts.metricsReg, rb.opts.metricsPrefix,
			policyName(rb.growth), policyName(rb.boundary))
		if err != nil {
			rb.opts.allocator.Release(block)
			return nil, errors.WrapTransient(err, "RingBuffer", "New", "metrics registration")
		}
		rb.metrics = metrics
	}

	rb.recordSize()
	return rb, nil
}

// Size returns the current capacity.
func (rb *RingBuffer[T, G, B]) Size() int {
	return len(rb.storage)
}

// Count returns the number of live elements.
func (rb *RingBuffer[T, G, B]) Count() int {
	return rb.count
}

// IsEmpty reports whether no element is held.
func (rb *RingBuffer[T, G, B]) IsEmpty() bool {
	return rb.count == 0
}

// IsFull reports whether every slot is live. A capacity-0 buffer is both empty and full.
func (rb *RingBuffer[T, G, B]) IsFull() bool {
	return rb.count == len(rb.storage)
}

// Push stores item as the newest element.
//
// When the buffer is full the growth policy proposes a new capacity and the boundary policy
// is asked whether the push may proceed. A Checked buffer that cannot grow returns an overflow
// error and is left unchanged. A growing buffer resizes first; if the allocator fails, the
// error is returned and the buffer is left unchanged. An Unchecked buffer that cannot grow
// overwrites its oldest element.
func (rb *RingBuffer[T, G, B]) Push(item T) error {
	if rb.count == len(rb.storage) {
		next := rb.growth.NewCapacity(len(rb.storage))

		if err := rb.boundary.CheckFull(rb.count, next); err != nil {
			rb.stats.Overflow()
			if rb.metrics != nil {
				rb.metrics.overflows.Inc()
			}
			return errors.WrapTransient(err, "RingBuffer", "Push", "capacity check")
		}

		if next <= len(rb.storage) {
			rb.overwrite(item)
			return nil
		}

		if err := rb.Resize(next); err != nil {
			return err
		}
	}

	rb.storage[rb.tail] = item
	rb.tail = rb.advance(rb.tail)
	rb.count++

	rb.stats.Push()
	if rb.metrics != nil {
		rb.metrics.pushes.Inc()
	}
	rb.recordSize()

	return nil
}

// overwrite replaces the oldest element of a full buffer with item.
// The push is accounted for even when the item itself is what gets dropped.
func (rb *RingBuffer[T, G, B]) overwrite(item T) {
	rb.stats.Push()
	if rb.metrics != nil {
		rb.metrics.pushes.Inc()
	}

	if len(rb.storage) == 0 {
		// Nothing to evict; the new element itself is lost
		rb.dropped(item)
		return
	}

	// Full, so tail == head
	evicted := rb.storage[rb.tail]
	rb.storage[rb.tail] = item
	rb.tail = rb.advance(rb.tail)
	rb.head = rb.tail

	rb.dropped(evicted)
}

// dropped accounts for a discarded element and hands it to the drop callback.
func (rb *RingBuffer[T, G, B]) dropped(item T) {
	rb.stats.Drop()
	if rb.metrics != nil {
		rb.metrics.drops.Inc()
	}
	if rb.opts.dropCallback != nil {
		rb.opts.dropCallback(item)
	}
}

// Pop removes and returns the oldest element.
//
// A Checked buffer returns an underflow error when empty. An Unchecked buffer returns the
// zero value of T and no error.
func (rb *RingBuffer[T, G, B]) Pop() (T, error) {
	var zero T

	if err := rb.boundary.CheckEmpty(rb.count); err != nil {
		rb.stats.Underflow()
		if rb.metrics != nil {
			rb.metrics.underflows.Inc()
		}
		return zero, errors.WrapTransient(err, "RingBuffer", "Pop", "empty check")
	}
	if rb.count == 0 {
		return zero, nil
	}

	item := rb.take()

	rb.stats.Pop()
	if rb.metrics != nil {
		rb.metrics.pops.Inc()
	}
	rb.recordSize()

	return item, nil
}

// PopBatch removes and returns up to max elements, oldest first.
// Boundary checks apply to the batch as a whole: a Checked buffer fails only when it is empty.
func (rb *RingBuffer[T, G, B]) PopBatch(max int) ([]T, error) {
	if max <= 0 {
		return nil, nil
	}

	if err := rb.boundary.CheckEmpty(rb.count); err != nil {
		rb.stats.Underflow()
		if rb.metrics != nil {
			rb.metrics.underflows.Inc()
		}
		return nil, errors.WrapTransient(err, "RingBuffer", "PopBatch", "empty check")
	}
	if rb.count == 0 {
		return nil, nil
	}

	n := min(max, rb.count)
	result := make([]T, n)
	for i := range result {
		result[i] = rb.take()
	}
	rb.stats.PopN(n)

	if rb.metrics != nil {
		rb.metrics.pops.Add(float64(n))
	}
	rb.recordSize()

	return result, nil
}

// take removes the element at head. The caller guarantees count > 0.
func (rb *RingBuffer[T, G, B]) take() T {
	var zero T

	item := rb.storage[rb.head]
	rb.storage[rb.head] = zero // Clear for GC
	rb.head = rb.advance(rb.head)
	rb.count--

	return item
}

// Clear removes every element, counting each as popped. Capacity is unchanged.
func (rb *RingBuffer[T, G, B]) Clear() {
	n := rb.count
	if n == 0 {
		return
	}
	for rb.count > 0 {
		rb.take()
	}
	rb.head, rb.tail = 0, 0

	rb.stats.PopN(n)
	if rb.metrics != nil {
		rb.metrics.pops.Add(float64(n))
	}
	rb.recordSize()
}

// Resize reshapes the storage to newCapacity slots, keeping every live element in pop order.
//
// The new block is allocated before anything is moved, so an allocation failure leaves the
// buffer exactly as it was. newCapacity must be at least Count().
func (rb *RingBuffer[T, G, B]) Resize(newCapacity int) error {
	capacity := len(rb.storage)
	if newCapacity == capacity {
		return nil
	}
	if newCapacity < 0 || newCapacity < rb.count {
		return errors.WrapInvalid(
			fmt.Errorf("%w: %d slots cannot hold %d live elements", errors.ErrInvalidCapacity, newCapacity, rb.count),
			"RingBuffer", "Resize", "validate capacity")
	}

	start := time.Now()
	block, next, err := rb.allocate(newCapacity)
	if err != nil {
		return errors.WrapFatal(err, "RingBuffer", "Resize", "allocate storage")
	}

	head, tail := rb.relocate(next)

	// Old block goes back only after every live element has been copied out
	rb.opts.allocator.Release(rb.block)
	rb.block, rb.storage = block, next
	rb.head, rb.tail = head, tail

	rb.stats.Resize()
	if rb.metrics != nil {
		rb.metrics.resizes.Inc()
		rb.metrics.resizeDuration.Observe(time.Since(start).Seconds())
	}
	rb.recordSize()

	rb.opts.logger.Debug("Buffer resized",
		"component", rb.opts.metricsPrefix,
		"from", capacity,
		"to", newCapacity,
		"count", rb.count)

	return nil
}

// relocate copies the live elements into next and returns the head and tail they occupy there.
//
// Wrapped (or full) contents are split at tail: [0, tail) keeps its indices and
// [head, capacity) moves to the end of next, shifting head by the capacity difference.
// Contiguous contents keep their indices when they fit and are packed at 0 otherwise.
func (rb *RingBuffer[T, G, B]) relocate(next []T) (head, tail int) {
	newCapacity := len(next)

	switch {
	case rb.count == 0:
		return 0, 0

	case rb.head < rb.tail && rb.tail <= newCapacity:
		copy(next[rb.head:rb.tail], rb.storage[rb.head:rb.tail])
		return rb.head, rb.tail % newCapacity

	case rb.head < rb.tail:
		n := copy(next, rb.storage[rb.head:rb.tail])
		return 0, n % newCapacity

	default:
		offset := newCapacity - len(rb.storage)
		copy(next[:rb.tail], rb.storage[:rb.tail])
		copy(next[rb.head+offset:], rb.storage[rb.head:])
		return rb.head + offset, rb.tail
	}
}

// Peek returns a pointer to the raw slot at index, which is a storage position and not a
// FIFO offset. It is meant for debugging: the slot may hold no live element, in which case
// it holds the zero value. index must be in [0, Size()).
func (rb *RingBuffer[T, G, B]) Peek(index int) *T {
	return &rb.storage[index]
}

// Stats returns buffer statistics.
func (rb *RingBuffer[T, G, B]) Stats() *Statistics {
	return rb.stats
}

// Close clears the buffer, hands its storage back to the allocator and unregisters its
// metrics. The buffer remains usable with capacity 0, and a buffer that grew again after
// Close gives that storage back on the next Close. Closing a buffer that holds nothing is a no-op.
func (rb *RingBuffer[T, G, B]) Close() error {
	if rb.block == nil && rb.count == 0 && rb.metrics == nil {
		return nil
	}

	rb.Clear()
	rb.opts.allocator.Release(rb.block)
	rb.block, rb.storage = nil, nil
	rb.head, rb.tail = 0, 0
	rb.recordSize()

	if rb.metrics != nil {
		rb.metrics.close()
		rb.metrics = nil
	}

	return nil
}

// advance moves a slot index forward by one, wrapping at the current capacity.
// Every index update in the buffer goes through here.
func (rb *RingBuffer[T, G, B]) advance(i int) int {
	i++
	if i == len(rb.storage) {
		return 0
	}
	return i
}

// allocate requests n slots and returns the granted block together with its first n slots.
func (rb *RingBuffer[T, G, B]) allocate(n int) (block, storage []T, err error) {
	block, err = rb.opts.allocator.Allocate(n)
	if err == nil && len(block) < n {
		rb.opts.allocator.Release(block)
		err = fmt.Errorf("%w: granted %d of %d slots", errors.ErrAllocationFailed, len(block), n)
	}
	if err != nil {
		if !stderrors.Is(err, errors.ErrAllocationFailed) {
			err = fmt.Errorf("%w: %w", errors.ErrAllocationFailed, err)
		}
		rb.stats.AllocationFailure()
		rb.opts.logger.Warn("Buffer allocation failed",
			"component", rb.opts.metricsPrefix,
			"requested", n,
			"error", err)
		return nil, nil, err
	}
	return block, block[:n], nil
}

// recordSize pushes count and capacity to stats and, if enabled, metrics.
func (rb *RingBuffer[T, G, B]) recordSize() {
	rb.stats.UpdateCount(rb.count)
	rb.stats.UpdateCapacity(len(rb.storage))

	if rb.metrics != nil {
		rb.metrics.updateSize(rb.count, len(rb.storage))
	}
}
