// Package rest implements every guard service interface over the HTTP/JSON
// security API. One Client instance backs all of them: it attaches the
// bearer token from the session store to outgoing requests, maps the
// response envelope onto guard types, and clears the stored session when
// any operation answers 401.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	guard "github.com/gatepass/guard-go"
)

// Client is the HTTP gateway to the security API.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	store          guard.SessionStore
	logger         *slog.Logger
	onUnauthorized func()
}

// Compile-time interface checks.
var (
	_ guard.AuthService         = (*Client)(nil)
	_ guard.ProfileService      = (*Client)(nil)
	_ guard.VerificationService = (*Client)(nil)
	_ guard.PendingService      = (*Client)(nil)
	_ guard.DashboardService    = (*Client)(nil)
	_ guard.QRService           = (*Client)(nil)
)

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client. The default uses a 30 second
// timeout, the only timeout the SDK applies.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Client) { r.httpClient = c }
}

// WithSessionStore sets the store the bearer token is read from and
// cleared into on 401.
func WithSessionStore(s guard.SessionStore) Option {
	return func(r *Client) { r.store = s }
}

// WithLogger sets a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Client) { r.logger = l }
}

// WithUnauthorizedHandler registers a callback invoked after a 401 has
// cleared the stored session. Typically wired to the session manager's
// Invalidate.
func WithUnauthorizedHandler(fn func()) Option {
	return func(r *Client) { r.onUnauthorized = fn }
}

// New creates a REST client for the given base URL
// (e.g. "https://api.example.com/security").
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: guard.DefaultRequestTimeout},
		logger:     slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// envelope is the wire shape of every API response.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// do issues one request and decodes the envelope data into out (if non-nil).
// withAuth controls bearer attachment and whether a 401 clears the session;
// login is the one call that opts out.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}, withAuth bool) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("guard/rest: encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("guard/rest: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	requestID := guard.RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	req.Header.Set("X-Request-Id", requestID)

	if withAuth && c.store != nil {
		token, err := c.store.Token()
		if err != nil {
			c.logger.Warn("session store read failed", "error", err)
		} else if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("guard/rest: %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusUnauthorized && withAuth {
		c.clearSession()
		return guard.ErrUnauthorized
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("guard/rest: read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("guard/rest: decode response (%d): %w", resp.StatusCode, err)
	}
	if !env.Success {
		return &guard.APIError{Status: resp.StatusCode, Message: env.Error}
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("guard/rest: decode data: %w", err)
		}
	}
	return nil
}

// clearSession wipes the stored token and profile after a 401. The side
// effect happens before the error is returned to the caller.
func (c *Client) clearSession() {
	if c.store != nil {
		if err := c.store.Clear(); err != nil {
			c.logger.Error("clear session after 401 failed", "error", err)
		}
	}
	if c.onUnauthorized != nil {
		c.onUnauthorized()
	}
	c.logger.Info("session cleared after unauthorized response")
}

// --- AuthService ---

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string             `json:"token"`
	Guard guard.GuardProfile `json:"guard"`
}

// Login exchanges credentials for a session. A 401 here means bad
// credentials, not an expired session, so the store is left untouched.
func (c *Client) Login(ctx context.Context, username, password string) (*guard.Session, error) {
	var out loginResponse
	err := c.do(ctx, http.MethodPost, "/login", loginRequest{Username: username, Password: password}, &out, false)
	if err != nil {
		return nil, err
	}
	if out.Token == "" {
		return nil, fmt.Errorf("guard/rest: login response missing token")
	}
	return &guard.Session{Token: out.Token, Guard: out.Guard}, nil
}

// Logout invalidates the session server-side.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/logout", nil, nil, true)
}

// --- ProfileService ---

// Fetch returns the current guard profile.
func (c *Client) Fetch(ctx context.Context) (*guard.GuardProfile, error) {
	var out guard.GuardProfile
	if err := c.do(ctx, http.MethodGet, "/profile", nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// Update submits profile changes and returns the server's copy.
func (c *Client) Update(ctx context.Context, profile guard.GuardProfile) (*guard.GuardProfile, error) {
	var out guard.GuardProfile
	if err := c.do(ctx, http.MethodPut, "/profile", profile, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// --- VerificationService ---

type scanRequest struct {
	InvitationID string `json:"invitationId"`
	QRCode       string `json:"qrCode"`
}

type verifyRequest struct {
	InvitationID string `json:"invitationId"`
	QRCode       string `json:"qrCode"`
	OTPCode      string `json:"otpCode"`
}

// SubmitScan submits a scanned invitation for verification. The decision
// in the outcome is the server's verdict, relayed untouched.
func (c *Client) SubmitScan(ctx context.Context, attempt guard.ScanAttempt) (*guard.ScanOutcome, error) {
	var out guard.ScanOutcome
	req := scanRequest{InvitationID: attempt.InvitationID, QRCode: attempt.QRPayload}
	if err := c.do(ctx, http.MethodPost, "/scan-guest", req, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitOTP completes an OTP-gated verification, echoing the exact
// invitationId/qrCode pair from the original scan.
func (c *Client) SubmitOTP(ctx context.Context, attempt guard.ScanAttempt, code string) (*guard.ScanOutcome, error) {
	var out guard.ScanOutcome
	req := verifyRequest{InvitationID: attempt.InvitationID, QRCode: attempt.QRPayload, OTPCode: code}
	if err := c.do(ctx, http.MethodPost, "/verify-otp", req, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// --- PendingService ---

// ListPending returns verifications awaiting guard action.
func (c *Client) ListPending(ctx context.Context) (*guard.PendingSet, error) {
	var out guard.PendingSet
	if err := c.do(ctx, http.MethodGet, "/pending-verifications", nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// --- DashboardService ---

// Stats returns the guard's dashboard counters.
func (c *Client) Stats(ctx context.Context) (*guard.DashboardStats, error) {
	var out guard.DashboardStats
	if err := c.do(ctx, http.MethodGet, "/dashboard", nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

type activityResponse struct {
	Entries []guard.ActivityEntry `json:"entries"`
	Total   int                   `json:"total"`
}

// Activity returns the guard's scan history with pagination.
func (c *Client) Activity(ctx context.Context, opts guard.ListOptions) ([]guard.ActivityEntry, int, error) {
	page := opts.Page
	if page < 1 {
		page = 1
	}
	size := opts.PageSize
	if size < 1 {
		size = 20
	}
	path := fmt.Sprintf("/activity?page=%d&pageSize=%d", page, size)

	var out activityResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &out, true); err != nil {
		return nil, 0, err
	}
	return out.Entries, out.Total, nil
}

// --- QRService ---

type qrResponse struct {
	Payload string `json:"payload"`
}

// FetchOwnQR returns the opaque payload for the guard's personal QR code.
func (c *Client) FetchOwnQR(ctx context.Context) (string, error) {
	var out qrResponse
	if err := c.do(ctx, http.MethodGet, "/qr", nil, &out, true); err != nil {
		return "", err
	}
	return out.Payload, nil
}
