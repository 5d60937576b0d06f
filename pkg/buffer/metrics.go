package buffer

import (
	"github.com/mzenz/CircularBuffer/metric"
	"github.com/prometheus/client_golang/prometheus"
)

// bufferMetrics holds Prometheus metrics for buffer operations.
type bufferMetrics struct {
	pushes     prometheus.Counter
	pops       prometheus.Counter
	overflows  prometheus.Counter
	underflows prometheus.Counter
	drops      prometheus.Counter
	resizes    prometheus.Counter

	count       prometheus.Gauge
	capacity    prometheus.Gauge
	utilization prometheus.Gauge

	resizeDuration prometheus.Histogram // reallocation and relocation only

	registry metric.MetricsRegistrar
	prefix   string
	names    []string
}

func newCounter(name, help string, labels prometheus.Labels) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   "circbuf",
		Subsystem:   "buffer",
		Name:        name,
		ConstLabels: labels,
		Help:        help,
	})
}

func newGauge(name, help string, labels prometheus.Labels) prometheus.Gauge {
	return prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   "circbuf",
		Subsystem:   "buffer",
		Name:        name,
		ConstLabels: labels,
		Help:        help,
	})
}

// newBufferMetrics creates and registers buffer metrics with the provided registry.
// growth and boundary label the policy pair the buffer was instantiated with.
func newBufferMetrics(registry metric.MetricsRegistrar, prefix, growth, boundary string) (*bufferMetrics, error) {
	labels := prometheus.Labels{"component": prefix, "growth": growth, "boundary": boundary}

	m := &bufferMetrics{
		pushes:      newCounter("pushes_total", "Total number of elements pushed", labels),
		pops:        newCounter("pops_total", "Total number of elements popped", labels),
		overflows:   newCounter("overflows_total", "Total number of pushes rejected as overflow", labels),
		underflows:  newCounter("underflows_total", "Total number of pops rejected as underflow", labels),
		drops:       newCounter("drops_total", "Total number of elements overwritten or discarded", labels),
		resizes:     newCounter("resizes_total", "Total number of storage resizes", labels),
		count:       newGauge("count", "Current number of live elements", labels),
		capacity:    newGauge("capacity", "Current number of allocated slots", labels),
		utilization: newGauge("utilization", "Buffer utilization as a ratio (0.0 to 1.0)", labels),
	}
	m.resizeDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace:   "circbuf",
		Subsystem:   "buffer",
		Name:        "resize_duration_seconds",
		ConstLabels: labels,
		Help:        "Time spent reallocating and relocating storage",
		Buckets:     prometheus.ExponentialBuckets(1e-6, 4, 10),
	})

	counters := []struct {
		name string
		c    prometheus.Counter
	}{
		{"buffer_pushes", m.pushes},
		{"buffer_pops", m.pops},
		{"buffer_overflows", m.overflows},
		{"buffer_underflows", m.underflows},
		{"buffer_drops", m.drops},
		{"buffer_resizes", m.resizes},
	}
	var registered []string
	for _, c := range counters {
		if err := registry.RegisterCounter(prefix, c.name, c.c); err != nil {
			unregister(registry, prefix, registered)
			return nil, err
		}
		registered = append(registered, c.name)
	}

	gauges := []struct {
		name string
		g    prometheus.Gauge
	}{
		{"buffer_count", m.count},
		{"buffer_capacity", m.capacity},
		{"buffer_utilization", m.utilization},
	}
	for _, g := range gauges {
		if err := registry.RegisterGauge(prefix, g.name, g.g); err != nil {
			unregister(registry, prefix, registered)
			return nil, err
		}
		registered = append(registered, g.name)
	}

	if err := registry.RegisterHistogram(prefix, "buffer_resize_duration", m.resizeDuration); err != nil {
		unregister(registry, prefix, registered)
		return nil, err
	}
	registered = append(registered, "buffer_resize_duration")

	m.registry = registry
	m.prefix = prefix
	m.names = registered
	return m, nil
}

// close unregisters every metric so the prefix can be reused.
func (m *bufferMetrics) close() {
	unregister(m.registry, m.prefix, m.names)
	m.names = nil
}

// unregister rolls back a partially registered metric set.
func unregister(registry metric.MetricsRegistrar, prefix string, names []string) {
	for _, name := range names {
		registry.Unregister(prefix, name)
	}
}

// updateSize sets the count, capacity and utilization gauges.
func (m *bufferMetrics) updateSize(count, capacity int) {
	m.count.Set(float64(count))
	m.capacity.Set(float64(capacity))
	if capacity == 0 {
		m.utilization.Set(0)
		return
	}
	m.utilization.Set(float64(count) / float64(capacity))
}
