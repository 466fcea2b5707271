package metrics

import (
	"testing"
)

// Global metrics instance (reused across enabled tests to avoid Prometheus
// registry conflicts)
var globalMetrics *Metrics

func init() {
	globalMetrics = New(true)
}

func TestMetricsEnabled(t *testing.T) {
	if globalMetrics == nil {
		t.Fatal("metrics should not be nil")
	}
}

func TestMetricsDisabled(t *testing.T) {
	m := New(false)

	if m == nil {
		t.Fatal("metrics should not be nil (noop)")
	}

	// These should not panic even though they're noop
	m.RecordAuthSuccess()
	m.RecordAuthFailure("bad_credentials")
	m.RecordScan("granted", 0.12)
	m.RecordOTPAttempt("accepted")
	m.RecordMalformedPayload()
	m.RecordPollTick()
	m.RecordPollFailure()
	m.RecordPendingSurfaced("3")
}

func TestRecordScan(t *testing.T) {
	// Should not panic
	globalMetrics.RecordScan("granted", 0.05)
	globalMetrics.RecordScan("denied", 0.07)
	globalMetrics.RecordScan("otp_required", 0.06)
}

func TestRecordOTPAttempt(t *testing.T) {
	globalMetrics.RecordOTPAttempt("accepted")
	globalMetrics.RecordOTPAttempt("rejected")
	globalMetrics.RecordOTPAttempt("transport_error")
}

func TestRecordPollerMetrics(t *testing.T) {
	globalMetrics.RecordPollTick()
	globalMetrics.RecordPollFailure()
	globalMetrics.RecordPendingSurfaced("3")
	globalMetrics.RecordPendingSurfaced("4")
}

func TestRecordAuthMetrics(t *testing.T) {
	globalMetrics.RecordAuthSuccess()
	globalMetrics.RecordAuthFailure("bad_credentials")
	globalMetrics.RecordAuthFailure("transport")
}
