package securestore

import (
	"sync"

	guard "github.com/gatepass/guard-go"
)

// Memory is an in-memory guard.SessionStore for tests and demos.
type Memory struct {
	mu      sync.Mutex
	token   string
	profile *guard.GuardProfile
}

var _ guard.SessionStore = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory { return &Memory{} }

// Token returns the stored token, or "" if none is stored.
func (m *Memory) Token() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

// SetToken stores the token.
func (m *Memory) SetToken(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

// Profile returns the cached profile, or nil if none is stored.
func (m *Memory) Profile() (*guard.GuardProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.profile == nil {
		return nil, nil
	}
	p := *m.profile
	return &p, nil
}

// SetProfile stores the cached profile.
func (m *Memory) SetProfile(profile *guard.GuardProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if profile == nil {
		m.profile = nil
		return nil
	}
	p := *profile
	m.profile = &p
	return nil
}

// Clear removes the token and cached profile.
func (m *Memory) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	m.profile = nil
	return nil
}
