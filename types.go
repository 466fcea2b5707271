package guard

import "time"

// GuardStatus is the server-assigned account status of a guard.
type GuardStatus string

const (
	GuardActive   GuardStatus = "active"
	GuardDisabled GuardStatus = "disabled"
)

// Organization is the organization a guard belongs to, if any.
type Organization struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// GuardProfile is the authenticated guard's profile as reported by the
// server. The cached copy may go stale between refreshes; there is no
// invalidation beyond an explicit refresh or re-login.
type GuardProfile struct {
	ID           string        `json:"id"`
	Username     string        `json:"username"`
	Status       GuardStatus   `json:"status"`
	ShiftStart   string        `json:"shiftStart,omitempty"`
	ShiftEnd     string        `json:"shiftEnd,omitempty"`
	Organization *Organization `json:"organization,omitempty"`
}

// Session pairs an opaque bearer token with the guard it belongs to.
// The token is never parsed client-side.
type Session struct {
	Token string       `json:"token"`
	Guard GuardProfile `json:"guard"`
}

// ScanAttempt is the decoded content of a guest's displayed QR code.
// Ephemeral: it lives for one scan cycle and is never persisted.
type ScanAttempt struct {
	InvitationID string `json:"invitationId"`
	QRPayload    string `json:"qrCode"`
}

// Decision classifies the server's verdict on a scan or OTP submission.
// The client never computes this itself.
type Decision string

const (
	DecisionGranted     Decision = "granted"
	DecisionOTPRequired Decision = "otp_required"
	DecisionDenied      Decision = "denied"
)

// ScanOutcome is the server's response to a scan or verify submission,
// carrying guest display fields and a human-readable message.
type ScanOutcome struct {
	Decision      Decision `json:"decision"`
	GuestName     string   `json:"guestName,omitempty"`
	GuestPhone    string   `json:"guestPhone,omitempty"`
	EmployeeName  string   `json:"employeeName,omitempty"`
	SecurityLevel int      `json:"securityLevel,omitempty"`
	Message       string   `json:"message,omitempty"`
}

// TierThreeEvent is a completed higher-tier scan awaiting guard
// acknowledgement on this device.
type TierThreeEvent struct {
	InvitationID string    `json:"invitationId"`
	GuestName    string    `json:"guestName"`
	GuestPhone   string    `json:"guestPhone,omitempty"`
	EmployeeName string    `json:"employeeName,omitempty"`
	ScannedAt    time.Time `json:"scannedAt"`
}

// TierFourOTP is a server-issued OTP awaiting guard-side entry.
type TierFourOTP struct {
	InvitationID string    `json:"invitationId"`
	GuestName    string    `json:"guestName"`
	GuestPhone   string    `json:"guestPhone,omitempty"`
	EmployeeName string    `json:"employeeName,omitempty"`
	IssuedAt     time.Time `json:"issuedAt"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// PendingSet is one poll response: everything the server considers
// pending for this guard, split by category.
type PendingSet struct {
	HasTierThreeEvents bool             `json:"hasTierThreeEvents"`
	HasTierFourOTPs    bool             `json:"hasTierFourOtps"`
	TierThreeEvents    []TierThreeEvent `json:"tierThreeEvents"`
	TierFourOTPs       []TierFourOTP    `json:"tierFourOtps"`
}

// DashboardStats aggregates a guard's scan activity, server-computed.
type DashboardStats struct {
	ScansToday    int `json:"scansToday"`
	GrantedToday  int `json:"grantedToday"`
	DeniedToday   int `json:"deniedToday"`
	PendingCount  int `json:"pendingCount"`
	ScansThisWeek int `json:"scansThisWeek"`
}

// ActivityEntry is one row of the guard's scan history.
type ActivityEntry struct {
	ID            string    `json:"id"`
	InvitationID  string    `json:"invitationId"`
	GuestName     string    `json:"guestName"`
	EmployeeName  string    `json:"employeeName,omitempty"`
	SecurityLevel int       `json:"securityLevel"`
	Result        Decision  `json:"result"`
	ScannedAt     time.Time `json:"scannedAt"`
}

// ListOptions holds pagination parameters.
type ListOptions struct {
	Page     int
	PageSize int
}
