package session

import (
	"context"
	"errors"
	"testing"

	guard "github.com/gatepass/guard-go"
	"github.com/gatepass/guard-go/securestore"
)

// mockAuth implements guard.AuthService for testing.
type mockAuth struct {
	session      *guard.Session
	loginErr     error
	logoutErr    error
	loginCalls   int
	logoutCalls  int
	lastUsername string
}

func (m *mockAuth) Login(_ context.Context, username, _ string) (*guard.Session, error) {
	m.loginCalls++
	m.lastUsername = username
	if m.loginErr != nil {
		return nil, m.loginErr
	}
	sess := *m.session
	return &sess, nil
}

func (m *mockAuth) Logout(_ context.Context) error {
	m.logoutCalls++
	return m.logoutErr
}

// mockProfiles implements guard.ProfileService for testing.
type mockProfiles struct {
	profile  *guard.GuardProfile
	fetchErr error
}

func (m *mockProfiles) Fetch(_ context.Context) (*guard.GuardProfile, error) {
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	p := *m.profile
	return &p, nil
}

func (m *mockProfiles) Update(_ context.Context, p guard.GuardProfile) (*guard.GuardProfile, error) {
	m.profile = &p
	return &p, nil
}

func testSession() *guard.Session {
	return &guard.Session{
		Token: "tok-1",
		Guard: guard.GuardProfile{ID: "g1", Username: "guard1", Status: guard.GuardActive},
	}
}

func TestLogin_PersistsAndExposesSession(t *testing.T) {
	store := securestore.NewMemory()
	auth := &mockAuth{session: testSession()}
	m := New(auth, store)

	profile, err := m.Login(context.Background(), "guard1", "secret")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if profile.ID != "g1" {
		t.Errorf("profile.ID = %q, want %q", profile.ID, "g1")
	}
	if !m.Authenticated() {
		t.Error("manager should be authenticated after login")
	}
	if m.Token() != "tok-1" {
		t.Errorf("Token() = %q, want %q", m.Token(), "tok-1")
	}

	// Written through to the durable store.
	token, _ := store.Token()
	if token != "tok-1" {
		t.Errorf("stored token = %q, want %q", token, "tok-1")
	}
	stored, _ := store.Profile()
	if stored == nil || stored.Username != "guard1" {
		t.Errorf("stored profile = %+v, want guard1", stored)
	}
}

func TestLogin_FailureLeavesUnauthenticated(t *testing.T) {
	store := securestore.NewMemory()
	auth := &mockAuth{loginErr: errors.New("bad credentials")}
	m := New(auth, store)

	_, err := m.Login(context.Background(), "guard1", "wrong")
	if err == nil {
		t.Fatal("expected error")
	}
	if m.Authenticated() {
		t.Error("manager should not be authenticated after failed login")
	}
	token, _ := store.Token()
	if token != "" {
		t.Errorf("store should stay empty, got token %q", token)
	}
}

func TestRestore_FromPopulatedStore(t *testing.T) {
	store := securestore.NewMemory()
	_ = store.SetToken("tok-restored")
	_ = store.SetProfile(&guard.GuardProfile{ID: "g1", Username: "guard1"})

	m := New(&mockAuth{}, store)
	if err := m.Restore(context.Background()); err != nil {
		t.Fatalf("Restore returned error: %v", err)
	}
	if !m.Authenticated() {
		t.Fatal("manager should be authenticated after restore")
	}
	if m.Token() != "tok-restored" {
		t.Errorf("Token() = %q, want %q", m.Token(), "tok-restored")
	}
	if m.Profile().Username != "guard1" {
		t.Errorf("Profile().Username = %q, want %q", m.Profile().Username, "guard1")
	}
}

func TestRestore_EmptyStore(t *testing.T) {
	m := New(&mockAuth{}, securestore.NewMemory())
	if err := m.Restore(context.Background()); err != nil {
		t.Fatalf("Restore returned error: %v", err)
	}
	if m.Authenticated() {
		t.Error("manager should stay unauthenticated with empty store")
	}
}

func TestRestore_TokenWithoutProfileClearsRemnant(t *testing.T) {
	store := securestore.NewMemory()
	_ = store.SetToken("orphan-token")

	m := New(&mockAuth{}, store)
	if err := m.Restore(context.Background()); err != nil {
		t.Fatalf("Restore returned error: %v", err)
	}
	if m.Authenticated() {
		t.Error("manager should stay unauthenticated")
	}
	token, _ := store.Token()
	if token != "" {
		t.Errorf("orphan token should be cleared, got %q", token)
	}
}

func TestLogout_ClearsEverything(t *testing.T) {
	store := securestore.NewMemory()
	auth := &mockAuth{session: testSession()}
	m := New(auth, store)
	_, _ = m.Login(context.Background(), "guard1", "secret")

	if err := m.Logout(context.Background()); err != nil {
		t.Fatalf("Logout returned error: %v", err)
	}
	if m.Authenticated() {
		t.Error("manager should be unauthenticated after logout")
	}
	token, _ := store.Token()
	if token != "" {
		t.Errorf("stored token should be cleared, got %q", token)
	}
	if auth.logoutCalls != 1 {
		t.Errorf("logoutCalls = %d, want 1", auth.logoutCalls)
	}
}

func TestLogout_ServerFailureStillClearsLocally(t *testing.T) {
	store := securestore.NewMemory()
	auth := &mockAuth{session: testSession(), logoutErr: errors.New("network down")}
	m := New(auth, store)
	_, _ = m.Login(context.Background(), "guard1", "secret")

	if err := m.Logout(context.Background()); err != nil {
		t.Fatalf("Logout returned error: %v", err)
	}
	if m.Authenticated() {
		t.Error("manager should be unauthenticated even when server logout fails")
	}
}

func TestRefreshProfile_UpdatesMemoryAndStore(t *testing.T) {
	store := securestore.NewMemory()
	auth := &mockAuth{session: testSession()}
	profiles := &mockProfiles{profile: &guard.GuardProfile{ID: "g1", Username: "guard1", ShiftStart: "06:00"}}
	m := New(auth, store, WithProfileService(profiles))
	_, _ = m.Login(context.Background(), "guard1", "secret")

	updated, err := m.RefreshProfile(context.Background())
	if err != nil {
		t.Fatalf("RefreshProfile returned error: %v", err)
	}
	if updated.ShiftStart != "06:00" {
		t.Errorf("ShiftStart = %q, want %q", updated.ShiftStart, "06:00")
	}
	if m.Profile().ShiftStart != "06:00" {
		t.Error("in-memory profile not updated")
	}
	stored, _ := store.Profile()
	if stored.ShiftStart != "06:00" {
		t.Error("stored profile not updated")
	}
}

func TestRefreshProfile_RequiresSession(t *testing.T) {
	m := New(&mockAuth{}, securestore.NewMemory(), WithProfileService(&mockProfiles{}))
	_, err := m.RefreshProfile(context.Background())
	if !errors.Is(err, guard.ErrNoSession) {
		t.Errorf("err = %v, want ErrNoSession", err)
	}
}

func TestInvalidate_DropsInMemorySession(t *testing.T) {
	store := securestore.NewMemory()
	auth := &mockAuth{session: testSession()}
	m := New(auth, store)
	_, _ = m.Login(context.Background(), "guard1", "secret")

	m.Invalidate()
	if m.Authenticated() {
		t.Error("manager should be unauthenticated after Invalidate")
	}
	if m.Token() != "" {
		t.Errorf("Token() = %q, want empty", m.Token())
	}
}

func TestOnChange_FiresOnTransitions(t *testing.T) {
	store := securestore.NewMemory()
	auth := &mockAuth{session: testSession()}
	changes := 0
	m := New(auth, store, OnChange(func() { changes++ }))

	_, _ = m.Login(context.Background(), "guard1", "secret")
	if changes == 0 {
		t.Error("OnChange should fire during login")
	}

	before := changes
	m.Invalidate()
	if changes <= before {
		t.Error("OnChange should fire on Invalidate")
	}
}

func TestProfile_ReturnsCopy(t *testing.T) {
	store := securestore.NewMemory()
	auth := &mockAuth{session: testSession()}
	m := New(auth, store)
	_, _ = m.Login(context.Background(), "guard1", "secret")

	p := m.Profile()
	p.Username = "mutated"
	if m.Profile().Username != "guard1" {
		t.Error("Profile() must return a copy")
	}
}
