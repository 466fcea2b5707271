// Package guard provides a framework-agnostic Go SDK for a guard-side
// guest verification workflow: login, guest QR scanning, tiered OTP
// verification, pending-action polling, dashboard statistics, and the
// guard's own QR display payload.
//
// The SDK defines interfaces for each backend operation; concrete
// implementations are injected via Option functions, keeping the SDK
// independent of any specific transport. The rest package implements all
// of them over HTTP/JSON, and the fake package provides in-memory
// implementations for tests.
//
// Example usage with the REST backend:
//
//	api := rest.New("https://api.example.com/security", rest.WithSessionStore(store))
//	client, err := guard.NewClient(
//	    guard.Config{BaseURL: "https://api.example.com/security"},
//	    guard.WithAuthService(api),
//	    guard.WithVerificationService(api),
//	    guard.WithPendingService(api),
//	)
package guard

import (
	"fmt"
	"io"
	"log/slog"
	"time"
)

// Client is the main entry point for guard SDK operations.
// Service implementations are injected via Option functions.
type Client struct {
	config    Config
	logger    *slog.Logger
	auth      AuthService
	profiles  ProfileService
	verify    VerificationService
	pending   PendingService
	dashboard DashboardService
	qr        QRService
	store     SessionStore
}

// Config holds connection and behavior configuration.
type Config struct {
	// BaseURL is the base address of the security API
	// (e.g. "https://api.example.com/security").
	BaseURL string

	// RequestTimeout bounds every HTTP request. Default: 30 seconds.
	// There is no application-level timeout beyond this.
	RequestTimeout time.Duration

	// PollInterval is how often the pending-verification poller asks the
	// server for outstanding actions. Default: 3 seconds.
	PollInterval time.Duration

	// QRRefreshInterval is how long the guard's own QR payload is cached
	// before a re-fetch. Default: 5 minutes.
	QRRefreshInterval time.Duration

	// MetricsEnabled turns on Prometheus metrics registration.
	MetricsEnabled bool
}

// Option configures the Client.
type Option func(*Client)

// WithLogger sets a structured logger for the client.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithAuthService sets the authentication implementation.
func WithAuthService(a AuthService) Option {
	return func(c *Client) { c.auth = a }
}

// WithProfileService sets the profile implementation.
func WithProfileService(p ProfileService) Option {
	return func(c *Client) { c.profiles = p }
}

// WithVerificationService sets the guest verification implementation.
func WithVerificationService(v VerificationService) Option {
	return func(c *Client) { c.verify = v }
}

// WithPendingService sets the pending-verification implementation.
func WithPendingService(p PendingService) Option {
	return func(c *Client) { c.pending = p }
}

// WithDashboardService sets the dashboard implementation.
func WithDashboardService(d DashboardService) Option {
	return func(c *Client) { c.dashboard = d }
}

// WithQRService sets the own-QR implementation.
func WithQRService(q QRService) Option {
	return func(c *Client) { c.qr = q }
}

// WithSessionStore sets the durable session store.
func WithSessionStore(s SessionStore) Option {
	return func(c *Client) { c.store = s }
}

// Defaults applied by NewClient when the corresponding Config field is zero.
const (
	DefaultRequestTimeout    = 30 * time.Second
	DefaultPollInterval      = 3 * time.Second
	DefaultQRRefreshInterval = 5 * time.Minute
)

// NewClient creates a new guard client with the given configuration and
// options.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("guard: BaseURL is required")
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.QRRefreshInterval == 0 {
		cfg.QRRefreshInterval = DefaultQRRefreshInterval
	}

	c := &Client{config: cfg}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Config returns the client configuration.
func (c *Client) Config() Config { return c.config }

// Logger returns the configured logger, or slog.Default() if none was set.
func (c *Client) Logger() *slog.Logger {
	if c.logger == nil {
		return slog.Default()
	}
	return c.logger
}

// Auth returns the authentication service, or nil if not configured.
func (c *Client) Auth() AuthService { return c.auth }

// Profiles returns the profile service, or nil if not configured.
func (c *Client) Profiles() ProfileService { return c.profiles }

// Verify returns the verification service, or nil if not configured.
func (c *Client) Verify() VerificationService { return c.verify }

// Pending returns the pending-verification service, or nil if not configured.
func (c *Client) Pending() PendingService { return c.pending }

// Dashboard returns the dashboard service, or nil if not configured.
func (c *Client) Dashboard() DashboardService { return c.dashboard }

// QR returns the own-QR service, or nil if not configured.
func (c *Client) QR() QRService { return c.qr }

// Store returns the session store, or nil if not configured.
func (c *Client) Store() SessionStore { return c.store }

// Close releases all resources held by the client.
// Any injected service that implements io.Closer will be closed.
func (c *Client) Close() error {
	closers := []interface{}{
		c.auth, c.profiles, c.verify,
		c.pending, c.dashboard, c.qr, c.store,
	}
	var firstErr error
	for _, svc := range closers {
		if cl, ok := svc.(io.Closer); ok && cl != nil {
			if err := cl.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
