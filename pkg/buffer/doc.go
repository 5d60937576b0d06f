// Package buffer provides a generic FIFO ring buffer with compile-time selected boundary and
// growth policies, pluggable slot allocators, built-in statistics and optional Prometheus
// metrics.
//
// # Overview
//
// A RingBuffer stores elements in one contiguous block of slots addressed modulo its
// capacity. Push writes at the tail and Pop reads at the head; neither shifts existing
// elements. Exactly Count() slots, starting at the head and wrapping around, hold live
// elements. Every other slot holds the zero value of T.
//
// # Quick Start
//
//	buf, err := buffer.NewFixed[int](3)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	_ = buf.Push(1)
//	_ = buf.Push(2)
//	_ = buf.Push(3)
//	err = buf.Push(4) // errors.IsOverflow(err) == true
//
//	v, _ := buf.Pop() // 1
//
// # Policies
//
// The policies are type parameters, so the checks and growth logic a caller does not ask for
// are not executed:
//
//	buffer.New[T, buffer.Fixed, buffer.Checked](n)          // rejects overflow
//	buffer.New[T, buffer.GrowByDoubling, buffer.Checked](n) // doubles when full
//	buffer.New[T, buffer.GrowByOne, buffer.Unchecked](n)    // grows one slot at a time
//	buffer.New[T, buffer.Fixed, buffer.Unchecked](n)        // overwrites the oldest element
//
// The boundary policy is consulted after the growth policy has proposed a capacity, so a
// growable buffer never reports overflow; it reports allocation failure instead if the
// allocator cannot serve the growth.
//
// Fixed with Unchecked is the unsafe opt-in: overflow silently evicts the oldest element
// (observable through WithDropCallback and Stats().Drops()) and popping an empty buffer
// yields the zero value of T with a nil error.
//
// # Resize
//
// Resize allocates the new block first and only then moves elements, so a failed allocation
// leaves the buffer untouched. Wrapped contents are split at the tail: the run at the front of
// the block keeps its indices and the run at the back moves to the back of the new block.
// Pop order is always preserved. Shrinking below Count() is rejected.
//
// # Allocators
//
// Storage comes from an Allocator, HeapAllocator by default:
//
//	pool := buffer.NewPoolAllocator[[]byte]()
//	limited := buffer.NewLimitedAllocator[[]byte](pool, 1<<16)
//	buf, err := buffer.NewGrowable[[]byte](64, buffer.WithAllocator[[]byte](limited))
//
// A grant shorter than requested is an allocation failure; the buffer never runs with less
// capacity than it asked for.
//
// # Observability
//
// Statistics are always collected and available via Stats(). Prometheus metrics are enabled
// with WithMetrics(registry, prefix) and are labelled with the prefix and the policy pair.
// Resizes are logged at Debug and allocation failures at Warn through WithLogger (default
// slog.Default()).
//
// # Thread Safety
//
// None. A RingBuffer is owned by one goroutine; wrap it in a mutex to share it.
//
// # Performance Characteristics
//
//   - Push: O(1), amortized O(1) with GrowByDoubling, O(n) per push with GrowByOne when full
//   - Pop: O(1)
//   - PopBatch: O(n) where n is batch size
//   - Resize: O(capacity)
//   - Size/Count/IsFull/IsEmpty/Peek: O(1)
package buffer
