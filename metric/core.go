package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains the metrics shared by every workload driving buffers, independent of any
// single buffer instance. Per-buffer metrics are registered by the buffer itself.
type Metrics struct {
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	RetriesTotal      *prometheus.CounterVec
	ErrorsTotal       *prometheus.CounterVec
	WorkloadStatus    *prometheus.GaugeVec
}

// NewMetrics creates a new Metrics instance with all shared metrics
func NewMetrics() *Metrics {
	return &Metrics{
		OperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "circbuf",
				Subsystem: "workload",
				Name:      "operations_total",
				Help:      "Total number of buffer operations issued by workloads",
			},
			[]string{"workload", "operation", "status"},
		),

		OperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "circbuf",
				Subsystem: "workload",
				Name:      "operation_duration_seconds",
				Help:      "Buffer operation duration in seconds, retries included",
				Buckets:   prometheus.ExponentialBuckets(1e-7, 4, 12),
			},
			[]string{"workload", "operation"},
		),

		RetriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "circbuf",
				Subsystem: "workload",
				Name:      "retries_total",
				Help:      "Total number of retried buffer operations",
			},
			[]string{"workload", "operation"},
		),

		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "circbuf",
				Subsystem: "errors",
				Name:      "total",
				Help:      "Total number of errors by class",
			},
			[]string{"workload", "class"},
		),

		WorkloadStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "circbuf",
				Subsystem: "workload",
				Name:      "status",
				Help:      "Workload status (0=stopped, 1=running, 2=failed)",
			},
			[]string{"workload"},
		),
	}
}

// RecordOperation increments the operation counter
func (c *Metrics) RecordOperation(workload, operation, status string) {
	c.OperationsTotal.WithLabelValues(workload, operation, status).Inc()
}

// RecordOperationDuration records how long an operation took
func (c *Metrics) RecordOperationDuration(workload, operation string, duration time.Duration) {
	c.OperationDuration.WithLabelValues(workload, operation).Observe(duration.Seconds())
}

// RecordRetry increments the retry counter
func (c *Metrics) RecordRetry(workload, operation string) {
	c.RetriesTotal.WithLabelValues(workload, operation).Inc()
}

// RecordError increments the error counter
func (c *Metrics) RecordError(workload, class string) {
	c.ErrorsTotal.WithLabelValues(workload, class).Inc()
}

// RecordWorkloadStatus updates the workload status gauge
func (c *Metrics) RecordWorkloadStatus(workload string, status int) {
	c.WorkloadStatus.WithLabelValues(workload).Set(float64(status))
}
