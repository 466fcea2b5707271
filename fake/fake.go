// Package fake provides in-memory implementations of all guard interfaces
// for testing.
//
// Use fake.NewClient() in unit tests to exercise the full scan/OTP/poll
// flow without a server. Tier semantics live in the fake backend, exactly
// as they do server-side: tier 1 grants immediately, tier 2 demands an
// OTP, tiers 3 and 4 deny the direct scan and show up through the
// pending-verification list instead.
package fake

import (
	"context"
	"fmt"
	"sync"
	"time"

	guard "github.com/gatepass/guard-go"
	"github.com/gatepass/guard-go/securestore"
)

// Option configures the fake backend.
type Option func(*state)

type invitation struct {
	guestName    string
	guestPhone   string
	employeeName string
	tier         int
	qrPayload    string
	otpCode      string
	expired      bool
}

type credentials struct {
	password string
	profile  guard.GuardProfile
}

type state struct {
	mu          sync.RWMutex
	guards      map[string]*credentials // username → credentials
	invitations map[string]*invitation  // invitationID → invitation
	tierThree   []guard.TierThreeEvent
	tierFour    []guard.TierFourOTP
	stats       guard.DashboardStats
	activity    []guard.ActivityEntry
	qrPayload   string
	token       string
	current     string // username of the logged-in guard
	nextToken   int
}

// WithGuard adds a guard account.
func WithGuard(username, password string, profile guard.GuardProfile) Option {
	return func(s *state) {
		if profile.Username == "" {
			profile.Username = username
		}
		s.guards[username] = &credentials{password: password, profile: profile}
	}
}

// WithInvitation adds an invitation. For tier 2 invitations otpCode is the
// code the fake server accepts; other tiers ignore it.
func WithInvitation(id, qrPayload string, tier int, guestName, employeeName, otpCode string) Option {
	return func(s *state) {
		s.invitations[id] = &invitation{
			guestName:    guestName,
			employeeName: employeeName,
			tier:         tier,
			qrPayload:    qrPayload,
			otpCode:      otpCode,
		}
	}
}

// WithExpiredInvitation adds an invitation the server will always deny.
func WithExpiredInvitation(id, qrPayload string) Option {
	return func(s *state) {
		s.invitations[id] = &invitation{qrPayload: qrPayload, expired: true}
	}
}

// WithTierThreeEvent seeds a pending tier-3 acknowledgement.
func WithTierThreeEvent(ev guard.TierThreeEvent) Option {
	return func(s *state) { s.tierThree = append(s.tierThree, ev) }
}

// WithTierFourOTP seeds a pending tier-4 OTP entry.
func WithTierFourOTP(otp guard.TierFourOTP) Option {
	return func(s *state) { s.tierFour = append(s.tierFour, otp) }
}

// WithDashboard seeds the dashboard counters.
func WithDashboard(stats guard.DashboardStats) Option {
	return func(s *state) { s.stats = stats }
}

// WithActivity seeds the activity log.
func WithActivity(entries ...guard.ActivityEntry) Option {
	return func(s *state) { s.activity = append(s.activity, entries...) }
}

// WithQRPayload sets the guard's own QR payload.
func WithQRPayload(payload string) Option {
	return func(s *state) { s.qrPayload = payload }
}

// NewClient creates a *guard.Client with all services wired to in-memory
// fakes and a memory session store.
func NewClient(opts ...Option) *guard.Client {
	b := NewBackend(opts...)

	c, _ := guard.NewClient(
		guard.Config{BaseURL: "fake://localhost"},
		guard.WithAuthService(b),
		guard.WithProfileService(b),
		guard.WithVerificationService(b),
		guard.WithPendingService(b),
		guard.WithDashboardService(b),
		guard.WithQRService(b),
		guard.WithSessionStore(securestore.NewMemory()),
	)
	return c
}

// Backend is the in-memory implementation of every service interface.
type Backend struct {
	s *state
}

// Compile-time interface checks.
var (
	_ guard.AuthService         = (*Backend)(nil)
	_ guard.ProfileService      = (*Backend)(nil)
	_ guard.VerificationService = (*Backend)(nil)
	_ guard.PendingService      = (*Backend)(nil)
	_ guard.DashboardService    = (*Backend)(nil)
	_ guard.QRService           = (*Backend)(nil)
)

// NewBackend creates the fake backend without wrapping it in a Client.
func NewBackend(opts ...Option) *Backend {
	s := &state{
		guards:      make(map[string]*credentials),
		invitations: make(map[string]*invitation),
		qrPayload:   "fake-guard-qr",
	}
	for _, o := range opts {
		o(s)
	}
	return &Backend{s: s}
}

// --- AuthService ---

// Login checks credentials against the seeded guards.
func (b *Backend) Login(_ context.Context, username, password string) (*guard.Session, error) {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()

	cred, ok := b.s.guards[username]
	if !ok || cred.password != password {
		return nil, &guard.APIError{Status: 401, Message: "invalid credentials"}
	}
	if cred.profile.Status == guard.GuardDisabled {
		return nil, &guard.APIError{Status: 403, Message: "guard account disabled"}
	}

	b.s.nextToken++
	b.s.token = fmt.Sprintf("fake-token-%d", b.s.nextToken)
	b.s.current = username
	return &guard.Session{Token: b.s.token, Guard: cred.profile}, nil
}

// Logout drops the issued token.
func (b *Backend) Logout(_ context.Context) error {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	b.s.token = ""
	b.s.current = ""
	return nil
}

// --- ProfileService ---

// Fetch returns the logged-in guard's profile.
func (b *Backend) Fetch(_ context.Context) (*guard.GuardProfile, error) {
	b.s.mu.RLock()
	defer b.s.mu.RUnlock()

	cred, ok := b.s.guards[b.s.current]
	if b.s.token == "" || !ok {
		return nil, guard.ErrUnauthorized
	}
	p := cred.profile
	return &p, nil
}

// Update stores the new profile for the matching guard.
func (b *Backend) Update(_ context.Context, profile guard.GuardProfile) (*guard.GuardProfile, error) {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()

	for _, cred := range b.s.guards {
		if cred.profile.ID == profile.ID {
			cred.profile = profile
			p := profile
			return &p, nil
		}
	}
	return nil, &guard.APIError{Status: 404, Message: "guard not found"}
}

// --- VerificationService ---

// SubmitScan applies tier policy the way the real server does.
func (b *Backend) SubmitScan(_ context.Context, attempt guard.ScanAttempt) (*guard.ScanOutcome, error) {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()

	inv, ok := b.s.invitations[attempt.InvitationID]
	if !ok {
		return nil, &guard.APIError{Status: 404, Message: "invitation not found"}
	}
	if inv.expired {
		return nil, &guard.APIError{Status: 410, Message: "invitation expired"}
	}
	if inv.qrPayload != attempt.QRPayload {
		return nil, &guard.APIError{Status: 409, Message: "QR code mismatch"}
	}

	outcome := &guard.ScanOutcome{
		GuestName:     inv.guestName,
		GuestPhone:    inv.guestPhone,
		EmployeeName:  inv.employeeName,
		SecurityLevel: inv.tier,
	}
	switch inv.tier {
	case 1:
		outcome.Decision = guard.DecisionGranted
		outcome.Message = "Access granted"
	case 2:
		outcome.Decision = guard.DecisionOTPRequired
		outcome.Message = "One-time code required"
	default:
		outcome.Decision = guard.DecisionDenied
		outcome.Message = "Awaiting confirmation from the host"
	}
	return outcome, nil
}

// SubmitOTP accepts the invitation's seeded code.
func (b *Backend) SubmitOTP(_ context.Context, attempt guard.ScanAttempt, code string) (*guard.ScanOutcome, error) {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()

	inv, ok := b.s.invitations[attempt.InvitationID]
	if !ok {
		return nil, &guard.APIError{Status: 404, Message: "invitation not found"}
	}
	if inv.qrPayload != attempt.QRPayload {
		return nil, &guard.APIError{Status: 409, Message: "QR code mismatch"}
	}
	if inv.otpCode == "" || inv.otpCode != code {
		return nil, &guard.APIError{Status: 422, Message: "incorrect code"}
	}

	// The verify response deliberately omits guest display fields; the
	// client is expected to reuse the scan response's copy.
	return &guard.ScanOutcome{
		Decision: guard.DecisionGranted,
		Message:  "Access granted",
	}, nil
}

// --- PendingService ---

// ListPending returns the seeded pending sets.
func (b *Backend) ListPending(_ context.Context) (*guard.PendingSet, error) {
	b.s.mu.RLock()
	defer b.s.mu.RUnlock()

	set := &guard.PendingSet{
		HasTierThreeEvents: len(b.s.tierThree) > 0,
		HasTierFourOTPs:    len(b.s.tierFour) > 0,
		TierThreeEvents:    append([]guard.TierThreeEvent(nil), b.s.tierThree...),
		TierFourOTPs:       append([]guard.TierFourOTP(nil), b.s.tierFour...),
	}
	return set, nil
}

// ConsumeTierThree removes a seeded tier-3 event, simulating the server
// clearing it after some other action.
func (b *Backend) ConsumeTierThree(invitationID string) {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()

	for i, ev := range b.s.tierThree {
		if ev.InvitationID == invitationID {
			b.s.tierThree = append(b.s.tierThree[:i], b.s.tierThree[i+1:]...)
			return
		}
	}
}

// ConsumeTierFour removes a seeded tier-4 OTP.
func (b *Backend) ConsumeTierFour(invitationID string) {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()

	for i, otp := range b.s.tierFour {
		if otp.InvitationID == invitationID {
			b.s.tierFour = append(b.s.tierFour[:i], b.s.tierFour[i+1:]...)
			return
		}
	}
}

// --- DashboardService ---

// Stats returns the seeded dashboard counters.
func (b *Backend) Stats(_ context.Context) (*guard.DashboardStats, error) {
	b.s.mu.RLock()
	defer b.s.mu.RUnlock()
	stats := b.s.stats
	return &stats, nil
}

// Activity returns the seeded activity log with pagination.
func (b *Backend) Activity(_ context.Context, opts guard.ListOptions) ([]guard.ActivityEntry, int, error) {
	b.s.mu.RLock()
	defer b.s.mu.RUnlock()

	total := len(b.s.activity)
	page := opts.Page
	if page < 1 {
		page = 1
	}
	size := opts.PageSize
	if size < 1 {
		size = 20
	}

	start := (page - 1) * size
	if start >= total {
		return nil, total, nil
	}
	end := start + size
	if end > total {
		end = total
	}
	out := make([]guard.ActivityEntry, end-start)
	copy(out, b.s.activity[start:end])
	return out, total, nil
}

// --- QRService ---

// FetchOwnQR returns the seeded QR payload.
func (b *Backend) FetchOwnQR(_ context.Context) (string, error) {
	b.s.mu.RLock()
	defer b.s.mu.RUnlock()
	return b.s.qrPayload, nil
}

// RecordScan appends an activity entry, simulating server-side logging.
func (b *Backend) RecordScan(entry guard.ActivityEntry) {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	if entry.ScannedAt.IsZero() {
		entry.ScannedAt = time.Now()
	}
	b.s.activity = append(b.s.activity, entry)
}
