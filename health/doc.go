// Package health turns buffer statistics and workload errors into healthy, degraded or
// unhealthy statuses and aggregates them for an HTTP health endpoint.
//
// # Health States
//
//   - Healthy: operating normally
//   - Degraded: working, but dropping elements, blocking producers or running saturated
//   - Unhealthy: the allocator refused storage, or the component failed
//
// # Usage
//
//	monitor := health.NewMonitor()
//	monitor.Update("orders", health.FromBufferStats("orders", buf.Stats().Summary(), health.DefaultThresholds()))
//
//	status := monitor.AggregateHealth("ringsim")
//	if status.IsUnhealthy() {
//	    // alert
//	}
//
// Monitor.Handler serves the aggregate as JSON, answering 503 only when it is unhealthy.
//
// # Security
//
// FromError sanitizes error text before it reaches the status message: URLs, paths, IP
// addresses, ports and credential-looking key/value pairs are replaced with placeholders.
//
// # Thread Safety
//
// Monitor is safe for concurrent use. Status values are copied on every read.
package health
