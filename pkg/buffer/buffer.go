// Package buffer provides a generic FIFO ring buffer whose overflow and growth behavior is
// chosen at instantiation through a pair of policy type parameters.
//
//   - RingBuffer[T, G, B]: contiguous slot storage addressed modulo its capacity
//   - Boundary policies: Unchecked, Checked
//   - Growth policies: Fixed, GrowByOne, GrowByDoubling
//   - Allocators: HeapAllocator, PoolAllocator, LimitedAllocator
//
// Statistics are always collected. Prometheus metrics can be enabled via WithMetrics().
package buffer

// Buffer is the policy-independent view of a RingBuffer. It lets callers that pick policies
// at runtime hold any instantiation behind one type.
type Buffer[T any] interface {
	// Push adds an item as the newest element.
	Push(item T) error

	// Pop removes and returns the oldest element.
	Pop() (T, error)

	// PopBatch removes and returns up to max elements, oldest first.
	PopBatch(max int) ([]T, error)

	// Peek returns the raw slot at a storage index. Debug only.
	Peek(index int) *T

	// Resize reshapes the storage, preserving every live element in order.
	Resize(newCapacity int) error

	// Size returns the current capacity.
	Size() int

	// Count returns the number of live elements.
	Count() int

	// IsFull returns true if every slot is live.
	IsFull() bool

	// IsEmpty returns true if the buffer contains no items.
	IsEmpty() bool

	// Clear removes all items from the buffer.
	Clear()

	// Stats returns buffer statistics.
	Stats() *Statistics

	// Close releases the storage.
	Close() error
}

var (
	_ Buffer[int] = (*RingBuffer[int, Fixed, Checked])(nil)
	_ Buffer[int] = (*RingBuffer[int, GrowByDoubling, Unchecked])(nil)
)

// DropCallback is called when an element is discarded by the overwrite path.
// It receives the element that was dropped.
type DropCallback[T any] func(item T)

// NewFixed creates a fixed-capacity buffer that reports overflow and underflow as errors.
func NewFixed[T any](capacity int, options ...Option[T]) (*RingBuffer[T, Fixed, Checked], error) {
	return New[T, Fixed, Checked](capacity, options...)
}

// NewGrowable creates a buffer that doubles its capacity whenever a push finds it full.
// Underflow is reported as an error.
func NewGrowable[T any](capacity int, options ...Option[T]) (*RingBuffer[T, GrowByDoubling, Checked], error) {
	return New[T, GrowByDoubling, Checked](capacity, options...)
}

// NewOverwriting creates a fixed-capacity buffer without boundary checks: pushing into a full
// buffer evicts the oldest element, popping an empty one yields the zero value. This is the
// opt-in fast path; pair it with WithDropCallback to observe evictions.
func NewOverwriting[T any](capacity int, options ...Option[T]) (*RingBuffer[T, Fixed, Unchecked], error) {
	return New[T, Fixed, Unchecked](capacity, options...)
}
