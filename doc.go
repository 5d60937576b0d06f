// Package circularbuffer is the root of a generic FIFO ring buffer library and its tooling.
//
// # Layout
//
//   - pkg/buffer: RingBuffer[T, G, B] with pluggable growth and boundary policies and allocators
//   - pkg/retry: exponential backoff for operations that fail transiently, such as pushing into
//     a full buffer
//   - errors: sentinel errors and the transient/invalid/fatal classification every package uses
//   - metric: Prometheus registry and HTTP server shared by buffers and workloads
//   - health: buffer and workload health derived from statistics, served as JSON
//   - cmd/ringsim: producer/consumer simulator exercising all of the above
//
// # Policies
//
// A buffer's behavior when full or empty is chosen by two type parameters:
//
//	buffer.New[Order, buffer.Fixed, buffer.Checked](1024)            // bounded, reports overflow
//	buffer.New[Order, buffer.GrowByDoubling, buffer.Checked](16)     // grows on demand
//	buffer.New[Tick, buffer.Fixed, buffer.Unchecked](256)            // overwrites the oldest
//
// The policy pair is fixed at compile time; cmd/ringsim shows how to select one at runtime
// behind the buffer.Buffer interface.
package circularbuffer
