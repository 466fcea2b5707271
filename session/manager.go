// Package session holds the single process-wide authentication state.
//
// One Manager replaces any per-screen session bookkeeping: it is initialized
// from the durable store at startup, mutated only through Login, Logout and
// RefreshProfile, and read-only everywhere else. Every mutation writes
// through to the store.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	guard "github.com/gatepass/guard-go"
)

// Manager owns the in-memory session. The injected store is the durable
// backing copy.
type Manager struct {
	auth     guard.AuthService
	profiles guard.ProfileService
	store    guard.SessionStore
	logger   *slog.Logger

	mu       sync.RWMutex
	session  *guard.Session
	loading  bool
	onChange []func()
}

// Option configures the Manager.
type Option func(*Manager)

// WithLogger sets a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithProfileService enables RefreshProfile.
func WithProfileService(p guard.ProfileService) Option {
	return func(m *Manager) { m.profiles = p }
}

// OnChange registers a callback invoked after every state change. UI layers
// use this to re-render; callbacks must not block.
func OnChange(fn func()) Option {
	return func(m *Manager) { m.onChange = append(m.onChange, fn) }
}

// New creates a Manager. The session starts unauthenticated until Restore
// or Login succeeds.
func New(auth guard.AuthService, store guard.SessionStore, opts ...Option) *Manager {
	m := &Manager{
		auth:   auth,
		store:  store,
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Restore loads a previously persisted session from the store. Called once
// at process start. A store without a token leaves the manager
// unauthenticated without error.
func (m *Manager) Restore(ctx context.Context) error {
	m.setLoading(true)
	defer m.setLoading(false)

	token, err := m.store.Token()
	if err != nil {
		return fmt.Errorf("guard/session: restore token: %w", err)
	}
	if token == "" {
		return nil
	}

	profile, err := m.store.Profile()
	if err != nil {
		return fmt.Errorf("guard/session: restore profile: %w", err)
	}
	if profile == nil {
		// Token without a cached profile: stale half-write. Treat as
		// unauthenticated and clear the remnant.
		m.logger.Warn("stored token without profile, clearing")
		if err := m.store.Clear(); err != nil {
			m.logger.Error("clear stale session failed", "error", err)
		}
		return nil
	}

	m.set(&guard.Session{Token: token, Guard: *profile})
	m.logger.Info("session restored", "guard", profile.Username)
	return nil
}

// Login authenticates and persists the new session.
func (m *Manager) Login(ctx context.Context, username, password string) (*guard.GuardProfile, error) {
	m.setLoading(true)
	defer m.setLoading(false)

	sess, err := m.auth.Login(ctx, username, password)
	if err != nil {
		return nil, fmt.Errorf("guard/session: %w", err)
	}

	if err := m.store.SetToken(sess.Token); err != nil {
		return nil, fmt.Errorf("guard/session: persist token: %w", err)
	}
	if err := m.store.SetProfile(&sess.Guard); err != nil {
		return nil, fmt.Errorf("guard/session: persist profile: %w", err)
	}

	m.set(sess)
	m.logger.Info("logged in", "guard", sess.Guard.Username)
	guardCopy := sess.Guard
	return &guardCopy, nil
}

// Logout clears local state unconditionally. The server call is
// best-effort: a transport failure still logs the guard out locally.
func (m *Manager) Logout(ctx context.Context) error {
	if err := m.auth.Logout(ctx); err != nil {
		m.logger.Warn("server logout failed, clearing locally", "error", err)
	}

	if err := m.store.Clear(); err != nil {
		return fmt.Errorf("guard/session: clear store: %w", err)
	}
	m.set(nil)
	m.logger.Info("logged out")
	return nil
}

// RefreshProfile re-fetches the profile and updates the cached copy. This
// is the only staleness remedy short of re-login.
func (m *Manager) RefreshProfile(ctx context.Context) (*guard.GuardProfile, error) {
	if m.profiles == nil {
		return nil, fmt.Errorf("guard/session: no profile service configured")
	}
	m.mu.RLock()
	sess := m.session
	m.mu.RUnlock()
	if sess == nil {
		return nil, guard.ErrNoSession
	}

	profile, err := m.profiles.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("guard/session: %w", err)
	}

	if err := m.store.SetProfile(profile); err != nil {
		return nil, fmt.Errorf("guard/session: persist profile: %w", err)
	}

	m.mu.Lock()
	if m.session != nil {
		m.session.Guard = *profile
	}
	m.mu.Unlock()
	m.notify()

	guardCopy := *profile
	return &guardCopy, nil
}

// Invalidate drops the in-memory session. Wired to the transport's
// unauthorized handler: the store has already been cleared by the time the
// 401 propagates.
func (m *Manager) Invalidate() {
	m.set(nil)
	m.logger.Info("session invalidated by unauthorized response")
}

// Authenticated reports whether a session is active.
func (m *Manager) Authenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session != nil
}

// Loading reports whether a login or restore is in progress.
func (m *Manager) Loading() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loading
}

// Profile returns a copy of the cached guard profile, or nil when
// unauthenticated.
func (m *Manager) Profile() *guard.GuardProfile {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return nil
	}
	p := m.session.Guard
	return &p
}

// Token returns the current bearer token, or "" when unauthenticated.
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return ""
	}
	return m.session.Token
}

func (m *Manager) set(sess *guard.Session) {
	m.mu.Lock()
	m.session = sess
	m.mu.Unlock()
	m.notify()
}

func (m *Manager) setLoading(v bool) {
	m.mu.Lock()
	m.loading = v
	m.mu.Unlock()
	m.notify()
}

func (m *Manager) notify() {
	for _, fn := range m.onChange {
		fn()
	}
}
