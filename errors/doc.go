// Package errors provides the error taxonomy shared by the circular buffer, its allocators and
// the callers that build recovery policy on top of them.
//
// # Error Classification
//
// Every error is one of three classes:
//
//   - Transient: the buffer was full or empty. Another party (a consumer, a producer) can
//     relieve the condition, so the operation may be retried.
//   - Invalid: the request itself was wrong, e.g. a negative capacity or a resize below the
//     number of live elements. Retrying the same call never helps.
//   - Fatal: storage could not be granted, or retries were exhausted.
//
// # Standard Error Variables
//
//   - ErrBufferFull: push into a full buffer that cannot grow (Overflow)
//   - ErrBufferEmpty: pop from an empty buffer (Underflow)
//   - ErrAllocationFailed: the allocator could not grant the requested slots
//   - ErrInvalidCapacity: negative capacity, or a resize below the live count
//
// Match them with errors.Is, or with the IsOverflow, IsUnderflow and IsAllocationFailure
// shortcuts:
//
//	if err := buf.Push(v); errors.IsOverflow(err) {
//	    // drain, drop or retry
//	}
//
// # Error Wrapping Pattern
//
// All error wrapping follows the standardized format:
//
//	"component.method: action failed: %w"
//
// Three wrapper functions attach a class while preserving the chain:
//
//	errors.WrapTransient(err, "RingBuffer", "Push", "capacity check")
//	errors.WrapInvalid(err, "RingBuffer", "Resize", "validate capacity")
//	errors.WrapFatal(err, "RingBuffer", "Resize", "allocate storage")
//
// errors.Wrap adds context without a class; classification then falls back to the sentinel
// found in the chain.
package errors
