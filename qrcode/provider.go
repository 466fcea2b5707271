// Package qrcode provides the guard's own displayable QR payload with a
// TTL cache. Concurrent refreshes are deduplicated so the display surface
// never triggers more than one fetch at a time.
package qrcode

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	guard "github.com/gatepass/guard-go"
)

// Provider caches the opaque QR payload fetched from the backend.
type Provider struct {
	svc guard.QRService
	ttl time.Duration

	mu        sync.RWMutex
	payload   string
	fetchedAt time.Time

	sf singleflight.Group
}

// Option configures the Provider.
type Option func(*Provider)

// WithTTL sets how long a fetched payload stays fresh
// (default guard.DefaultQRRefreshInterval).
func WithTTL(d time.Duration) Option {
	return func(p *Provider) { p.ttl = d }
}

// New creates a Provider with an empty cache.
func New(svc guard.QRService, opts ...Option) *Provider {
	p := &Provider{
		svc: svc,
		ttl: guard.DefaultQRRefreshInterval,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Payload returns the cached QR payload, fetching if the cache is empty or
// stale. Concurrent callers share one fetch.
func (p *Provider) Payload(ctx context.Context) (string, error) {
	p.mu.RLock()
	if p.payload != "" && time.Since(p.fetchedAt) < p.ttl {
		defer p.mu.RUnlock()
		return p.payload, nil
	}
	p.mu.RUnlock()

	return p.fetch(ctx)
}

// Refresh forces a fetch, replacing the cached payload.
func (p *Provider) Refresh(ctx context.Context) (string, error) {
	p.mu.Lock()
	p.payload = ""
	p.mu.Unlock()
	return p.fetch(ctx)
}

// Invalidate drops the cached payload without fetching. Called on logout.
func (p *Provider) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.payload = ""
	p.fetchedAt = time.Time{}
}

func (p *Provider) fetch(ctx context.Context) (string, error) {
	// singleflight prevents duplicate fetches from re-renders
	result, err, _ := p.sf.Do("qr", func() (interface{}, error) {
		payload, err := p.svc.FetchOwnQR(ctx)
		if err != nil {
			return nil, err
		}
		if payload == "" {
			return nil, fmt.Errorf("guard/qrcode: empty payload in response")
		}
		return payload, nil
	})
	if err != nil {
		return "", fmt.Errorf("guard/qrcode: %w", err)
	}

	payload := result.(string)
	p.mu.Lock()
	p.payload = payload
	p.fetchedAt = time.Now()
	p.mu.Unlock()

	return payload, nil
}
