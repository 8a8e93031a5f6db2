package service

import (
	"context"
	"time"

	"golang.org/x/oauth2"

	"github.com/xcloud/console-client/internal/domain"
)

// tokenExpiryDelta refreshes slightly ahead of expiry, matching oauth2's own
// early-expiry window.
const tokenExpiryDelta = 10 * time.Second

type sessionTokenSource struct {
	ctx   context.Context
	store *SessionStore
}

// TokenSource exposes the session as an oauth2.TokenSource. A token that is
// about to expire is refreshed through the store first.
func (s *SessionStore) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &sessionTokenSource{ctx: ctx, store: s}
}

func (ts *sessionTokenSource) Token() (*oauth2.Token, error) {
	snap := ts.store.Snapshot()
	if !snap.Authenticated() && snap.RefreshToken == "" {
		return nil, ErrNotAuthenticated
	}
	if !snap.Authenticated() || snap.Expired(ts.store.now().Add(tokenExpiryDelta)) {
		if err := ts.store.Refresh(ts.ctx); err != nil {
			return nil, err
		}
		snap = ts.store.Snapshot()
	}
	return &oauth2.Token{
		AccessToken:  snap.AccessToken,
		TokenType:    domain.TokenTypeBearer,
		RefreshToken: snap.RefreshToken,
		Expiry:       snap.ExpiresAt,
	}, nil
}
