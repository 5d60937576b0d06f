// Package metric provides the Prometheus registry and HTTP server that buffers and the
// workloads driving them report to.
//
// # Architecture
//
//  1. Core Metrics: workload-level metrics registered automatically (Metrics type)
//  2. Component Registry: per-buffer metrics registered under a component name
//     (MetricsRegistrar interface), keyed as "component.metric" so the same name cannot be
//     registered twice for one component
//  3. HTTP Server: /metrics and /health endpoints (Server type)
//
// # Basic Usage
//
//	registry := metric.NewMetricsRegistry()
//
//	buf, err := buffer.NewFixed[int](1024,
//	    buffer.WithMetrics[int](registry, "ingest"),
//	)
//
//	server := metric.NewServer(9090, "/metrics", registry)
//	if err := server.Start(); err != nil {
//	    return err
//	}
//	defer server.Stop()
//
// Duplicate registrations return an invalid-class error from the errors package; failures
// inside Prometheus itself are fatal.
package metric
