// Package verify implements the guard-side guest verification flow as an
// explicit state machine:
//
//	Idle → Submitting → {Granted | OtpPending | Denied} → Idle
//
// The controller owns only ephemeral per-cycle state (the scan attempt and
// the server's outcome); every grant/deny decision is the server's. At most
// one network call is in flight per controller: concurrent submissions are
// rejected with guard.ErrVerificationInFlight, never queued.
package verify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	guard "github.com/gatepass/guard-go"
	"github.com/gatepass/guard-go/metrics"
)

// State is the controller's primary state.
type State int

const (
	// StateIdle accepts new scan input.
	StateIdle State = iota
	// StateSubmitting has a scan or verify call outstanding.
	StateSubmitting
	// StateOtpPending awaits a 6-digit code for the retained attempt.
	StateOtpPending
	// StateGranted is terminal for the cycle: entry allowed.
	StateGranted
	// StateDenied is terminal for the cycle: entry refused.
	StateDenied
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubmitting:
		return "submitting"
	case StateOtpPending:
		return "otp_pending"
	case StateGranted:
		return "granted"
	case StateDenied:
		return "denied"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Fixed messages for failures that never reach the server.
const (
	msgMalformed = "Invalid QR code. Ask the guest to refresh their invitation."
	msgTransport = "Could not reach the verification service. Try again."
)

// Controller drives one scanner surface. Not shared between surfaces; each
// owns its own cycle state.
type Controller struct {
	svc     guard.VerificationService
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu       sync.Mutex
	state    State
	inFlight bool
	cycle    uint64
	attempt  *guard.ScanAttempt
	outcome  *guard.ScanOutcome
	message  string
}

// Option configures the Controller.
type Option func(*Controller)

// WithLogger sets a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithMetrics enables metric recording.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// New creates a Controller in StateIdle.
func New(svc guard.VerificationService, opts ...Option) *Controller {
	c := &Controller{
		svc:     svc,
		logger:  slog.Default(),
		metrics: metrics.New(false),
		state:   StateIdle,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// State returns the current primary state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Outcome returns a copy of the last server outcome, or nil before the
// first response of the cycle.
func (c *Controller) Outcome() *guard.ScanOutcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.outcome == nil {
		return nil
	}
	o := *c.outcome
	return &o
}

// Message returns the text to show the guard for the current state.
func (c *Controller) Message() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.message
}

// Attempt returns a copy of the retained scan attempt, or nil outside an
// active cycle.
func (c *Controller) Attempt() *guard.ScanAttempt {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.attempt == nil {
		return nil
	}
	a := *c.attempt
	return &a
}

// Submit feeds raw scanned or manually entered text into the flow. Both
// input paths are treated identically. Malformed input transitions
// directly to StateDenied without touching the network. Returns
// guard.ErrVerificationInFlight when a call is already outstanding.
func (c *Controller) Submit(ctx context.Context, raw string) (State, error) {
	attempt, parseErr := guard.ParseScanAttempt(raw)

	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		return StateSubmitting, guard.ErrVerificationInFlight
	}
	if parseErr != nil {
		c.state = StateDenied
		c.attempt = nil
		c.outcome = nil
		c.message = msgMalformed
		c.mu.Unlock()
		c.metrics.RecordMalformedPayload()
		c.logger.Info("scan rejected before submit", "error", parseErr)
		return StateDenied, nil
	}
	c.state = StateSubmitting
	c.inFlight = true
	c.cycle++
	cycle := c.cycle
	c.attempt = attempt
	c.outcome = nil
	c.message = ""
	c.mu.Unlock()

	start := time.Now()
	outcome, err := c.svc.SubmitScan(ctx, *attempt)
	elapsed := time.Since(start).Seconds()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight = false
	if c.cycle != cycle {
		// Reset raced the response; the cycle's result is stale.
		return c.state, nil
	}

	if err != nil {
		c.state = StateDenied
		c.message = denialMessage(err)
		c.metrics.RecordScan("denied", elapsed)
		c.logger.Warn("scan submission failed",
			"invitation", attempt.InvitationID, "error", err)
		return c.state, nil
	}

	c.outcome = outcome
	c.message = outcome.Message
	c.metrics.RecordScan(string(outcome.Decision), elapsed)

	switch outcome.Decision {
	case guard.DecisionGranted:
		c.state = StateGranted
	case guard.DecisionOTPRequired:
		// The original pair stays retained: the verify call must echo
		// it exactly.
		c.state = StateOtpPending
	default:
		c.state = StateDenied
	}
	c.logger.Info("scan decided",
		"invitation", attempt.InvitationID,
		"decision", outcome.Decision,
		"level", outcome.SecurityLevel)
	return c.state, nil
}

// SubmitCode completes an OTP-gated verification with the entered code.
// The code is checked client-side for shape only (exactly 6 digits); all
// business validation is the server's. A rejected or failed attempt keeps
// the controller in StateOtpPending so the guard can retry; only Cancel
// leaves the sub-flow without success.
func (c *Controller) SubmitCode(ctx context.Context, code string) (State, error) {
	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		return StateSubmitting, guard.ErrVerificationInFlight
	}
	if c.state != StateOtpPending || c.attempt == nil {
		state := c.state
		c.mu.Unlock()
		return state, guard.ErrNotAwaitingCode
	}
	if !guard.ValidOTPCode(code) {
		c.mu.Unlock()
		return StateOtpPending, guard.ErrInvalidOTPCode
	}
	attempt := *c.attempt
	cached := c.outcome
	c.inFlight = true
	cycle := c.cycle
	c.mu.Unlock()

	outcome, err := c.svc.SubmitOTP(ctx, attempt, code)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight = false
	if c.cycle != cycle {
		return c.state, nil
	}

	if err != nil {
		// Stay in OtpPending: OTP entry is retry-eligible.
		c.state = StateOtpPending
		c.message = denialMessage(err)
		c.metrics.RecordOTPAttempt("rejected")
		c.logger.Warn("otp verify failed",
			"invitation", attempt.InvitationID, "error", err)
		return c.state, nil
	}
	if outcome.Decision != guard.DecisionGranted {
		c.state = StateOtpPending
		c.message = outcome.Message
		c.metrics.RecordOTPAttempt("rejected")
		return c.state, nil
	}

	// The verify response does not necessarily repeat the guest display
	// fields; merge them from the original scan response.
	merged := *outcome
	if cached != nil {
		if merged.GuestName == "" {
			merged.GuestName = cached.GuestName
		}
		if merged.GuestPhone == "" {
			merged.GuestPhone = cached.GuestPhone
		}
		if merged.EmployeeName == "" {
			merged.EmployeeName = cached.EmployeeName
		}
		if merged.SecurityLevel == 0 {
			merged.SecurityLevel = cached.SecurityLevel
		}
	}
	c.state = StateGranted
	c.outcome = &merged
	c.message = merged.Message
	c.metrics.RecordOTPAttempt("accepted")
	c.logger.Info("otp verified", "invitation", attempt.InvitationID)
	return c.state, nil
}

// Cancel abandons the current cycle and returns to StateIdle, discarding
// all ephemeral state. Idempotent; the explicit way out of OtpPending.
func (c *Controller) Cancel() {
	c.Reset()
}

// Reset returns to StateIdle from any terminal state ("scan another").
// A reset while a call is in flight does not cancel the call; its result
// is discarded when it completes against the cleared attempt.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateIdle
	c.cycle++
	c.attempt = nil
	c.outcome = nil
	c.message = ""
}

// denialMessage maps an error to display text: business rejections carry
// the server's message verbatim, transport failures a generic one.
func denialMessage(err error) string {
	if apiErr := guard.AsAPIError(err); apiErr != nil && apiErr.Message != "" {
		return apiErr.Message
	}
	if errors.Is(err, guard.ErrUnauthorized) {
		return "Session expired. Sign in again."
	}
	return msgTransport
}
