package pending

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	guard "github.com/gatepass/guard-go"
)

// mockPending implements guard.PendingService with a swappable response.
type mockPending struct {
	mu    sync.Mutex
	set   *guard.PendingSet
	err   error
	calls int
}

func (m *mockPending) ListPending(_ context.Context) (*guard.PendingSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	set := *m.set
	return &set, nil
}

func (m *mockPending) setResponse(set *guard.PendingSet, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.set = set
	m.err = err
}

func (m *mockPending) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func twoTierThreeEvents() *guard.PendingSet {
	return &guard.PendingSet{
		HasTierThreeEvents: true,
		TierThreeEvents: []guard.TierThreeEvent{
			{InvitationID: "inv-a", GuestName: "Alice"},
			{InvitationID: "inv-b", GuestName: "Bob"},
		},
	}
}

// With two events reported, exactly the first is surfaced, and no second
// surface appears until the first is acknowledged, however many ticks
// report events in the meantime.
func TestPoll_SingleFlightPerCategory(t *testing.T) {
	svc := &mockPending{set: twoTierThreeEvents()}
	surfaced := 0
	p := New(svc, OnTierThree(func(guard.TierThreeEvent) { surfaced++ }))

	for i := 0; i < 5; i++ {
		p.pollOnce(context.Background())
	}

	if surfaced != 1 {
		t.Fatalf("surfaced %d tier-3 events, want 1", surfaced)
	}
	ev := p.TierThree()
	if ev == nil || ev.InvitationID != "inv-a" {
		t.Fatalf("surfaced event = %+v, want inv-a", ev)
	}

	p.AcknowledgeTierThree()
	if p.TierThree() != nil {
		t.Fatal("slot should be empty after acknowledge")
	}

	// Next tick surfaces again (server still reports the items).
	p.pollOnce(context.Background())
	if surfaced != 2 {
		t.Errorf("surfaced = %d after re-poll, want 2", surfaced)
	}
	ev = p.TierThree()
	if ev == nil || ev.InvitationID != "inv-a" {
		t.Errorf("re-surfaced event = %+v, want first list element", ev)
	}
}

// Tier-3 and tier-4 single-flight flags are independent.
func TestPoll_CategoriesAreIndependent(t *testing.T) {
	svc := &mockPending{set: &guard.PendingSet{
		HasTierThreeEvents: true,
		TierThreeEvents:    []guard.TierThreeEvent{{InvitationID: "inv3"}},
		HasTierFourOTPs:    true,
		TierFourOTPs:       []guard.TierFourOTP{{InvitationID: "inv4"}},
	}}
	p := New(svc)

	p.pollOnce(context.Background())
	if p.TierThree() == nil || p.TierFour() == nil {
		t.Fatal("both categories should surface")
	}

	p.AcknowledgeTierThree()
	if p.TierFour() == nil {
		t.Error("acknowledging tier-3 must not clear tier-4")
	}
}

// The has-flags gate surfacing: lists are ignored when flags are false.
func TestPoll_RespectsHasFlags(t *testing.T) {
	svc := &mockPending{set: &guard.PendingSet{
		HasTierThreeEvents: false,
		TierThreeEvents:    []guard.TierThreeEvent{{InvitationID: "stale"}},
	}}
	p := New(svc)

	p.pollOnce(context.Background())
	if p.TierThree() != nil {
		t.Error("events must not surface when hasTierThreeEvents is false")
	}
}

func TestPoll_EmptyListWithTrueFlag(t *testing.T) {
	svc := &mockPending{set: &guard.PendingSet{HasTierThreeEvents: true}}
	p := New(svc)

	p.pollOnce(context.Background())
	if p.TierThree() != nil {
		t.Error("nothing to surface from an empty list")
	}
}

// A failed poll is swallowed: surfaced items unchanged, polling continues.
func TestPoll_FailureLeavesStateUntouched(t *testing.T) {
	svc := &mockPending{set: twoTierThreeEvents()}
	p := New(svc)

	p.pollOnce(context.Background())
	before := p.TierThree()
	if before == nil {
		t.Fatal("expected a surfaced event")
	}

	svc.setResponse(nil, errors.New("network unreachable"))
	p.pollOnce(context.Background())

	after := p.TierThree()
	if after == nil || after.InvitationID != before.InvitationID {
		t.Errorf("surfaced item changed across failed poll: %+v", after)
	}

	// Recovery without backoff: the next successful tick behaves normally.
	p.AcknowledgeTierThree()
	svc.setResponse(twoTierThreeEvents(), nil)
	p.pollOnce(context.Background())
	if p.TierThree() == nil {
		t.Error("polling should continue after a failure")
	}
}

func TestStartStop_Lifecycle(t *testing.T) {
	svc := &mockPending{set: &guard.PendingSet{}}
	p := New(svc, WithInterval(5*time.Millisecond))

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if err := p.Start(context.Background()); err == nil {
		t.Error("second Start should fail while running")
	}

	// Let a few ticks elapse.
	time.Sleep(30 * time.Millisecond)
	p.Stop()

	calls := svc.callCount()
	if calls < 2 {
		t.Errorf("calls = %d, want several ticks before stop", calls)
	}

	// No further ticks after Stop.
	time.Sleep(30 * time.Millisecond)
	if got := svc.callCount(); got != calls {
		t.Errorf("calls went from %d to %d after Stop", calls, got)
	}

	// Stop is idempotent and the poller can be restarted.
	p.Stop()
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("restart returned error: %v", err)
	}
	p.Stop()
}

func TestStop_ContextCancelAlsoStops(t *testing.T) {
	svc := &mockPending{set: &guard.PendingSet{}}
	p := New(svc, WithInterval(5*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	cancel()
	time.Sleep(20 * time.Millisecond)
	calls := svc.callCount()
	time.Sleep(20 * time.Millisecond)
	if got := svc.callCount(); got != calls {
		t.Errorf("calls went from %d to %d after context cancel", calls, got)
	}
	p.Stop()
}
