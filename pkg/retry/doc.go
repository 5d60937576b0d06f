// Package retry provides exponential backoff for buffer operations that fail transiently.
//
// # Overview
//
// A ring buffer never retries on its own: a push into a full buffer returns an overflow error
// and a pop from an empty one returns an underflow error. When another goroutine is expected
// to relieve the condition, Do retries the operation with exponential backoff.
//
// By default only errors the errors package classifies as transient are retried, so an
// allocation failure or an invalid capacity stops immediately. Config.Retryable overrides the
// decision and NonRetryable marks a single error as final.
//
// # Configuration Presets
//
//   - DefaultConfig(): 5 attempts, 100µs-50ms delay
//   - Spin(): 1000 attempts, 1µs-1ms delay, for tight producer/consumer loops
//   - Persistent(): 30 attempts, 1ms-1s delay
//
// # Usage
//
//	err := retry.Do(ctx, retry.Spin(), func() error {
//	    mu.Lock()
//	    defer mu.Unlock()
//	    return buf.Push(item)
//	})
//
// Exhausting the attempts returns a fatal error that wraps both errors.ErrMaxRetriesExceeded
// and the last failure. All retry operations respect context cancellation, both while fn runs
// and during backoff.
package retry
