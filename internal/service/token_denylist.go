package service

import (
	"context"
	"sync"
	"time"
)

// TokenDenylist records revoked token IDs (jti) until their natural expiry.
type TokenDenylist interface {
	Deny(ctx context.Context, tokenID string, ttl time.Duration) error
	IsDenied(ctx context.Context, tokenID string) (bool, error)
}

type InMemoryTokenDenylist struct {
	mu    sync.RWMutex
	store map[string]time.Time
	now   func() time.Time
}

func NewInMemoryTokenDenylist() *InMemoryTokenDenylist {
	return &InMemoryTokenDenylist{
		store: make(map[string]time.Time),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (d *InMemoryTokenDenylist) IsDenied(_ context.Context, tokenID string) (bool, error) {
	now := d.now()
	d.mu.RLock()
	expiresAt, ok := d.store[tokenID]
	d.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if now.After(expiresAt) {
		d.mu.Lock()
		if exp, ok := d.store[tokenID]; ok && now.After(exp) {
			delete(d.store, tokenID)
		}
		d.mu.Unlock()
		return false, nil
	}
	return true, nil
}

// Deny ignores non-positive ttl: the token has already expired on its own.
func (d *InMemoryTokenDenylist) Deny(_ context.Context, tokenID string, ttl time.Duration) error {
	if tokenID == "" || ttl <= 0 {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.store[tokenID] = d.now().Add(ttl)
	return nil
}
