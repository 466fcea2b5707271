// Package metrics provides Prometheus metrics for guard SDK operations.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for guard operations.
type Metrics struct {
	enabled bool

	// Authentication metrics
	authRequestsTotal prometheus.Counter
	authFailuresTotal *prometheus.CounterVec

	// Verification metrics
	scansTotal        *prometheus.CounterVec
	scanDuration      prometheus.Histogram
	otpAttemptsTotal  *prometheus.CounterVec
	malformedPayloads prometheus.Counter

	// Poller metrics
	pollTicksTotal       prometheus.Counter
	pollFailuresTotal    prometheus.Counter
	pendingSurfacedTotal *prometheus.CounterVec
}

// New creates and registers Prometheus metrics.
// If enabled is false, returns a no-op Metrics instance.
func New(enabled bool) *Metrics {
	m := &Metrics{enabled: enabled}

	if !enabled {
		return m
	}

	m.authRequestsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "guard_auth_requests_total",
		Help: "Total login attempts",
	})

	m.authFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "guard_auth_failures_total",
		Help: "Total login failures",
	}, []string{"reason"})

	m.scansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "guard_scans_total",
		Help: "Total guest scan submissions by server decision",
	}, []string{"decision"})

	m.scanDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "guard_scan_duration_seconds",
		Help:    "Scan submission round-trip duration in seconds",
		Buckets: prometheus.DefBuckets,
	})

	m.otpAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "guard_otp_attempts_total",
		Help: "Total OTP verification attempts",
	}, []string{"result"})

	m.malformedPayloads = promauto.NewCounter(prometheus.CounterOpts{
		Name: "guard_malformed_payloads_total",
		Help: "Total scan inputs rejected before any network call",
	})

	m.pollTicksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "guard_poll_ticks_total",
		Help: "Total pending-verification poll ticks",
	})

	m.pollFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "guard_poll_failures_total",
		Help: "Total pending-verification polls that failed",
	})

	m.pendingSurfacedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "guard_pending_surfaced_total",
		Help: "Total pending verifications surfaced to the guard",
	}, []string{"tier"})

	return m
}

// RecordAuthSuccess records a successful login.
func (m *Metrics) RecordAuthSuccess() {
	if !m.enabled {
		return
	}
	m.authRequestsTotal.Inc()
}

// RecordAuthFailure records a failed login.
func (m *Metrics) RecordAuthFailure(reason string) {
	if !m.enabled {
		return
	}
	m.authFailuresTotal.WithLabelValues(reason).Inc()
}

// RecordScan records a completed scan submission.
func (m *Metrics) RecordScan(decision string, durationSeconds float64) {
	if !m.enabled {
		return
	}
	m.scansTotal.WithLabelValues(decision).Inc()
	m.scanDuration.Observe(durationSeconds)
}

// RecordOTPAttempt records an OTP verification attempt result.
func (m *Metrics) RecordOTPAttempt(result string) {
	if !m.enabled {
		return
	}
	m.otpAttemptsTotal.WithLabelValues(result).Inc()
}

// RecordMalformedPayload records a scan input rejected client-side.
func (m *Metrics) RecordMalformedPayload() {
	if !m.enabled {
		return
	}
	m.malformedPayloads.Inc()
}

// RecordPollTick records one poll tick.
func (m *Metrics) RecordPollTick() {
	if !m.enabled {
		return
	}
	m.pollTicksTotal.Inc()
}

// RecordPollFailure records a failed poll tick.
func (m *Metrics) RecordPollFailure() {
	if !m.enabled {
		return
	}
	m.pollFailuresTotal.Inc()
}

// RecordPendingSurfaced records a pending verification shown to the guard.
func (m *Metrics) RecordPendingSurfaced(tier string) {
	if !m.enabled {
		return
	}
	m.pendingSurfacedTotal.WithLabelValues(tier).Inc()
}
