// Package pending polls the server for verifications awaiting guard action
// and surfaces them one at a time per category.
//
// The poller runs on a fixed interval while the guard's own QR surface is
// active and is stopped unconditionally when it goes away. Tier-3
// acknowledgements and tier-4 OTP entries are single-flight per category:
// the first reported item occupies the category's slot until the guard
// acknowledges it, regardless of how many items later ticks report. An
// acknowledged item may be surfaced again on a later tick if the server
// still returns it; at-least-once display is accepted.
package pending

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	guard "github.com/gatepass/guard-go"
	"github.com/gatepass/guard-go/metrics"
)

// Poller issues one idempotent list call per tick. It shares no state with
// the verification flow; the two overlap freely.
type Poller struct {
	svc      guard.PendingService
	interval time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics

	onTierThree func(guard.TierThreeEvent)
	onTierFour  func(guard.TierFourOTP)

	mu        sync.Mutex
	running   bool
	stop      chan struct{}
	done      chan struct{}
	tierThree *guard.TierThreeEvent
	tierFour  *guard.TierFourOTP
}

// Option configures the Poller.
type Option func(*Poller)

// WithInterval overrides the poll interval (default guard.DefaultPollInterval).
func WithInterval(d time.Duration) Option {
	return func(p *Poller) { p.interval = d }
}

// WithLogger sets a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Poller) { p.logger = l }
}

// WithMetrics enables metric recording.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Poller) { p.metrics = m }
}

// OnTierThree registers a callback invoked when a tier-3 event is
// surfaced. Called from the polling goroutine; must not block.
func OnTierThree(fn func(guard.TierThreeEvent)) Option {
	return func(p *Poller) { p.onTierThree = fn }
}

// OnTierFour registers a callback invoked when a tier-4 OTP is surfaced.
func OnTierFour(fn func(guard.TierFourOTP)) Option {
	return func(p *Poller) { p.onTierFour = fn }
}

// New creates a stopped Poller.
func New(svc guard.PendingService, opts ...Option) *Poller {
	p := &Poller{
		svc:      svc,
		interval: guard.DefaultPollInterval,
		logger:   slog.Default(),
		metrics:  metrics.New(false),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Start begins polling: one tick immediately, then every interval. Returns
// an error if already running.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("guard/pending: poller already running")
	}
	p.running = true
	p.stop = make(chan struct{})
	p.done = make(chan struct{})
	stop, done := p.stop, p.done
	p.mu.Unlock()

	go p.run(ctx, stop, done)
	return nil
}

// Stop halts polling and clears the timer. Idempotent; blocks until the
// polling goroutine has exited so no callback fires after Stop returns.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	stop, done := p.stop, p.done
	p.mu.Unlock()

	close(stop)
	<-done
}

func (p *Poller) run(ctx context.Context, stop, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.pollOnce(ctx)
	for {
		select {
		case <-ticker.C:
			p.pollOnce(ctx)
		case <-stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// pollOnce issues a single list call. Failures are logged and counted but
// never surfaced; surfaced items and the interval are left unchanged.
func (p *Poller) pollOnce(ctx context.Context) {
	p.metrics.RecordPollTick()

	set, err := p.svc.ListPending(ctx)
	if err != nil {
		p.metrics.RecordPollFailure()
		p.logger.Debug("pending poll failed", "error", err)
		return
	}

	var surfacedThree *guard.TierThreeEvent
	var surfacedFour *guard.TierFourOTP

	p.mu.Lock()
	if set.HasTierThreeEvents && len(set.TierThreeEvents) > 0 && p.tierThree == nil {
		ev := set.TierThreeEvents[0]
		p.tierThree = &ev
		surfacedThree = &ev
	}
	if set.HasTierFourOTPs && len(set.TierFourOTPs) > 0 && p.tierFour == nil {
		otp := set.TierFourOTPs[0]
		p.tierFour = &otp
		surfacedFour = &otp
	}
	p.mu.Unlock()

	if surfacedThree != nil {
		p.metrics.RecordPendingSurfaced("3")
		p.logger.Info("tier-3 event surfaced", "invitation", surfacedThree.InvitationID)
		if p.onTierThree != nil {
			p.onTierThree(*surfacedThree)
		}
	}
	if surfacedFour != nil {
		p.metrics.RecordPendingSurfaced("4")
		p.logger.Info("tier-4 otp surfaced", "invitation", surfacedFour.InvitationID)
		if p.onTierFour != nil {
			p.onTierFour(*surfacedFour)
		}
	}
}

// TierThree returns a copy of the surfaced tier-3 event, or nil.
func (p *Poller) TierThree() *guard.TierThreeEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.tierThree == nil {
		return nil
	}
	ev := *p.tierThree
	return &ev
}

// TierFour returns a copy of the surfaced tier-4 OTP, or nil.
func (p *Poller) TierFour() *guard.TierFourOTP {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.tierFour == nil {
		return nil
	}
	otp := *p.tierFour
	return &otp
}

// AcknowledgeTierThree clears the surfaced tier-3 slot. Local-only: no
// network call is made, and the next tick may surface the next item (or
// the same one, if the server has not cleared it yet).
func (p *Poller) AcknowledgeTierThree() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tierThree = nil
}

// AcknowledgeTierFour clears the surfaced tier-4 slot. Local-only.
func (p *Poller) AcknowledgeTierFour() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tierFour = nil
}
