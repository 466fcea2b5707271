package guard

import "context"

// AuthService authenticates guards against the backend.
// Implementations: rest/ (HTTP), fake/ (testing).
type AuthService interface {
	// Login exchanges credentials for a session. The returned token is
	// opaque; the client never inspects it.
	Login(ctx context.Context, username, password string) (*Session, error)

	// Logout invalidates the current session server-side. Best-effort:
	// local state is cleared regardless of the result.
	Logout(ctx context.Context) error
}

// ProfileService provides the authenticated guard's profile.
type ProfileService interface {
	// Fetch returns the current profile from the server.
	Fetch(ctx context.Context) (*GuardProfile, error)

	// Update submits profile changes and returns the server's copy.
	Update(ctx context.Context, profile GuardProfile) (*GuardProfile, error)
}

// VerificationService submits guest verifications. Every decision in the
// returned outcome is server-computed; implementations must not add local
// policy.
type VerificationService interface {
	// SubmitScan submits a scanned invitation for verification.
	SubmitScan(ctx context.Context, attempt ScanAttempt) (*ScanOutcome, error)

	// SubmitOTP completes an OTP-gated verification. The attempt must be
	// the exact pair from the original scan.
	SubmitOTP(ctx context.Context, attempt ScanAttempt, code string) (*ScanOutcome, error)
}

// PendingService lists verifications awaiting guard action on this device.
type PendingService interface {
	// ListPending returns the current pending set. Idempotent; safe to
	// call on a fixed interval.
	ListPending(ctx context.Context) (*PendingSet, error)
}

// DashboardService provides server-aggregated scan statistics and history.
type DashboardService interface {
	// Stats returns the guard's dashboard counters.
	Stats(ctx context.Context) (*DashboardStats, error)

	// Activity returns the guard's scan history with pagination.
	Activity(ctx context.Context, opts ListOptions) ([]ActivityEntry, int, error)
}

// QRService fetches the guard's own displayable QR payload.
type QRService interface {
	// FetchOwnQR returns the opaque payload encoded in the guard's
	// personal QR code.
	FetchOwnQR(ctx context.Context) (string, error)
}

// SessionStore persists the bearer token and cached profile across process
// restarts. Implementations: securestore/ (encrypted file and in-memory).
// Operations are not transactional; a logout racing a profile write is an
// accepted benign race.
type SessionStore interface {
	// Token returns the stored token, or "" if none is stored.
	Token() (string, error)

	// SetToken stores the token, replacing any previous value.
	SetToken(token string) error

	// Profile returns the cached profile, or nil if none is stored.
	Profile() (*GuardProfile, error)

	// SetProfile stores the cached profile.
	SetProfile(profile *GuardProfile) error

	// Clear removes the token and cached profile.
	Clear() error
}
