package qrcode

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// mockQR implements guard.QRService with call counting.
type mockQR struct {
	payload string
	err     error
	calls   int32
	delay   time.Duration
}

func (m *mockQR) FetchOwnQR(_ context.Context) (string, error) {
	atomic.AddInt32(&m.calls, 1)
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	if m.err != nil {
		return "", m.err
	}
	return m.payload, nil
}

func TestPayload_FetchesOnce(t *testing.T) {
	svc := &mockQR{payload: "qr-payload"}
	p := New(svc)

	for i := 0; i < 3; i++ {
		got, err := p.Payload(context.Background())
		if err != nil {
			t.Fatalf("Payload returned error: %v", err)
		}
		if got != "qr-payload" {
			t.Errorf("Payload = %q, want qr-payload", got)
		}
	}
	if n := atomic.LoadInt32(&svc.calls); n != 1 {
		t.Errorf("fetch calls = %d, want 1 (cached)", n)
	}
}

func TestPayload_RefetchesAfterTTL(t *testing.T) {
	svc := &mockQR{payload: "qr-payload"}
	p := New(svc, WithTTL(10*time.Millisecond))

	_, _ = p.Payload(context.Background())
	time.Sleep(20 * time.Millisecond)
	_, err := p.Payload(context.Background())
	if err != nil {
		t.Fatalf("Payload returned error: %v", err)
	}
	if n := atomic.LoadInt32(&svc.calls); n != 2 {
		t.Errorf("fetch calls = %d, want 2 after TTL expiry", n)
	}
}

func TestPayload_ConcurrentCallersShareOneFetch(t *testing.T) {
	svc := &mockQR{payload: "qr-payload", delay: 20 * time.Millisecond}
	p := New(svc)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := p.Payload(context.Background())
			if err != nil || got != "qr-payload" {
				t.Errorf("Payload = %q, %v", got, err)
			}
		}()
	}
	wg.Wait()

	if n := atomic.LoadInt32(&svc.calls); n != 1 {
		t.Errorf("fetch calls = %d, want 1 (singleflight)", n)
	}
}

func TestRefresh_ForcesFetch(t *testing.T) {
	svc := &mockQR{payload: "qr-v1"}
	p := New(svc)

	_, _ = p.Payload(context.Background())
	svc.payload = "qr-v2"

	got, err := p.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}
	if got != "qr-v2" {
		t.Errorf("Refresh = %q, want qr-v2", got)
	}
}

func TestInvalidate_DropsCache(t *testing.T) {
	svc := &mockQR{payload: "qr-payload"}
	p := New(svc)

	_, _ = p.Payload(context.Background())
	p.Invalidate()
	_, _ = p.Payload(context.Background())

	if n := atomic.LoadInt32(&svc.calls); n != 2 {
		t.Errorf("fetch calls = %d, want 2 after Invalidate", n)
	}
}

func TestPayload_ErrorPropagates(t *testing.T) {
	svc := &mockQR{err: errors.New("boom")}
	p := New(svc)

	_, err := p.Payload(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestPayload_EmptyPayloadIsError(t *testing.T) {
	svc := &mockQR{payload: ""}
	p := New(svc)

	_, err := p.Payload(context.Background())
	if err == nil {
		t.Fatal("expected error for empty payload")
	}
}
