// Package health reports whether ring buffers and the workloads driving them are behaving
package health

import (
	"regexp"
	"strings"
	"time"

	"github.com/mzenz/CircularBuffer/pkg/buffer"
)

// Pre-compiled regexes for error message sanitization
var (
	urlRegex        = regexp.MustCompile(`[a-z]+://[^\s]+`)
	unixPathRegex   = regexp.MustCompile(`/[a-zA-Z0-9/_.-]+`)
	ipAddrRegex     = regexp.MustCompile(`\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`)
	portRegex       = regexp.MustCompile(`:\d{2,5}\b`)
	credentialRegex = regexp.MustCompile(`(?i)(password|token|key|secret|credential)[^a-zA-Z]*[:=][^,\s}]+`)
)

// Status represents the health state of a buffer, a workload, or a whole process
type Status struct {
	Component   string    `json:"component"`
	Healthy     bool      `json:"healthy"` // true if status is "healthy"
	Status      string    `json:"status"`  // "healthy", "unhealthy", "degraded"
	Message     string    `json:"message"`
	Timestamp   time.Time `json:"timestamp"`
	SubStatuses []Status  `json:"sub_statuses,omitempty"`
	Metrics     *Metrics  `json:"metrics,omitempty"`
}

// Metrics is the slice of buffer statistics a health check is decided on
type Metrics struct {
	Uptime             time.Duration `json:"uptime"`
	Pushes             int64         `json:"pushes"`
	Pops               int64         `json:"pops"`
	Overflows          int64         `json:"overflows"`
	Drops              int64         `json:"drops"`
	AllocationFailures int64         `json:"allocation_failures"`
	Utilization        float64       `json:"utilization"`
}

// IsHealthy returns true if the status is healthy
func (s Status) IsHealthy() bool {
	return s.Status == "healthy"
}

// IsDegraded returns true if the status is degraded
func (s Status) IsDegraded() bool {
	return s.Status == "degraded"
}

// IsUnhealthy returns true if the status is unhealthy
func (s Status) IsUnhealthy() bool {
	return s.Status == "unhealthy"
}

// WithMetrics returns a copy of the status with metrics attached
func (s Status) WithMetrics(metrics *Metrics) Status {
	s.Metrics = metrics
	return s
}

// WithSubStatus adds a sub-status and returns a copy
func (s Status) WithSubStatus(subStatus Status) Status {
	// Create a new slice to avoid sharing the underlying array
	newSubStatuses := make([]Status, len(s.SubStatuses), len(s.SubStatuses)+1)
	copy(newSubStatuses, s.SubStatuses)
	s.SubStatuses = append(newSubStatuses, subStatus)
	return s
}

// Thresholds decide when buffer statistics turn a status degraded.
// Any allocation failure makes a buffer unhealthy regardless of thresholds.
type Thresholds struct {
	// MaxDropRate is the share of pushes that may evict an element (0 disables the check)
	MaxDropRate float64
	// MaxOverflowRate is the rejected pushes per accepted push (0 disables the check)
	MaxOverflowRate float64
	// MaxUtilization is the fill ratio above which the buffer counts as saturated (0 disables the check)
	MaxUtilization float64
}

// DefaultThresholds tolerate occasional drops and back-pressure but not a saturated buffer
func DefaultThresholds() Thresholds {
	return Thresholds{
		MaxDropRate:     0.01,
		MaxOverflowRate: 1.0,
		MaxUtilization:  0.95,
	}
}

// FromBufferStats classifies a buffer by its statistics
func FromBufferStats(name string, s buffer.StatsSummary, t Thresholds) Status {
	metrics := &Metrics{
		Uptime:             s.Uptime,
		Pushes:             s.Pushes,
		Pops:               s.Pops,
		Overflows:          s.Overflows,
		Drops:              s.Drops,
		AllocationFailures: s.AllocationFailures,
		Utilization:        s.Utilization,
	}

	var status Status
	switch {
	case s.AllocationFailures > 0:
		status = NewUnhealthy(name, "Allocator refused storage")
	case t.MaxDropRate > 0 && s.DropRate > t.MaxDropRate:
		status = NewDegraded(name, "Drop rate above threshold")
	case t.MaxOverflowRate > 0 && s.Pushes > 0 && float64(s.Overflows)/float64(s.Pushes) > t.MaxOverflowRate:
		status = NewDegraded(name, "Producers are blocked on overflow")
	case t.MaxUtilization > 0 && s.Utilization > t.MaxUtilization:
		status = NewDegraded(name, "Buffer saturated")
	default:
		status = NewHealthy(name, "Buffer healthy")
	}

	return status.WithMetrics(metrics)
}

// FromError reports a failed component. The error text is sanitized before it is exposed.
func FromError(name string, err error) Status {
	if err == nil {
		return NewHealthy(name, "Component healthy")
	}
	return NewUnhealthy(name, sanitizeErrorMessage(err.Error()))
}

// sanitizeErrorMessage removes potentially sensitive information from error messages.
//
// Sanitization patterns:
//   - URLs (any scheme) → [URL]
//   - Unix file paths → [PATH]
//   - IP addresses → [IP]
//   - Port numbers → [PORT]
//   - Credentials (password=X, token=X, key=X, secret=X) → [REDACTED]
func sanitizeErrorMessage(err string) string {
	if err == "" {
		return ""
	}

	// URLs first, as they contain paths
	sanitized := urlRegex.ReplaceAllString(err, "[URL]")
	sanitized = unixPathRegex.ReplaceAllString(sanitized, "[PATH]")
	sanitized = ipAddrRegex.ReplaceAllString(sanitized, "[IP]")
	sanitized = portRegex.ReplaceAllString(sanitized, "[PORT]")

	lower := strings.ToLower(sanitized)
	for _, word := range []string{"password", "token", "key", "secret", "credential"} {
		if strings.Contains(lower, word) {
			sanitized = credentialRegex.ReplaceAllString(sanitized, "[REDACTED]")
			break
		}
	}

	return sanitized
}
