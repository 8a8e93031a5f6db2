package service

import (
	"context"
	"errors"
	"time"

	"github.com/xcloud/console-client/internal/domain"
	"github.com/xcloud/console-client/internal/security"
)

var (
	ErrInvalidRefreshToken       = errors.New("invalid refresh token")
	ErrRefreshTokenReuseDetected = errors.New("refresh token reuse detected")
	ErrInvalidAccessToken        = errors.New("invalid access token")
	ErrTokenRevoked              = errors.New("token revoked")
)

// TokenService issues and rotates the token pairs served by the mock API.
// Rotated refresh tokens and logged-out access tokens are denylisted by jti
// until they would have expired anyway.
type TokenService struct {
	jwtMgr     *security.JWTManager
	denylist   TokenDenylist
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewTokenService(jwtMgr *security.JWTManager, denylist TokenDenylist, accessTTL, refreshTTL time.Duration) *TokenService {
	return &TokenService{
		jwtMgr:     jwtMgr,
		denylist:   denylist,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

func (s *TokenService) Issue(user domain.UserRecord) (domain.TokenData, error) {
	sub := security.Subject{UserID: user.ID, Username: user.Username, Role: string(user.Role)}
	access, _, err := s.jwtMgr.SignAccessToken(sub, s.accessTTL)
	if err != nil {
		return domain.TokenData{}, err
	}
	refresh, _, err := s.jwtMgr.SignRefreshToken(sub, s.refreshTTL)
	if err != nil {
		return domain.TokenData{}, err
	}
	return domain.TokenData{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int(s.accessTTL / time.Second),
		TokenType:    domain.TokenTypeBearer,
	}, nil
}

// Rotate exchanges a refresh token for a new pair. Presenting a refresh
// token that was already rotated reports ErrRefreshTokenReuseDetected.
func (s *TokenService) Rotate(ctx context.Context, refreshToken string, fetch func(ctx context.Context, id string) (*domain.UserRecord, error)) (domain.TokenData, *domain.UserRecord, error) {
	claims, err := s.jwtMgr.ParseRefreshToken(refreshToken)
	if err != nil {
		return domain.TokenData{}, nil, ErrInvalidRefreshToken
	}
	denied, err := s.denylist.IsDenied(ctx, claims.ID)
	if err != nil {
		return domain.TokenData{}, nil, err
	}
	if denied {
		return domain.TokenData{}, nil, ErrRefreshTokenReuseDetected
	}
	user, err := fetch(ctx, claims.Subject)
	if err != nil || user == nil || !user.IsActive {
		return domain.TokenData{}, nil, ErrInvalidRefreshToken
	}
	if err := s.denylist.Deny(ctx, claims.ID, s.remaining(claims)); err != nil {
		return domain.TokenData{}, nil, err
	}
	pair, err := s.Issue(*user)
	if err != nil {
		return domain.TokenData{}, nil, err
	}
	return pair, user, nil
}

// Authenticate verifies a bearer access token and checks the denylist.
func (s *TokenService) Authenticate(ctx context.Context, accessToken string) (*security.Claims, error) {
	claims, err := s.jwtMgr.ParseAccessToken(accessToken)
	if err != nil {
		return nil, ErrInvalidAccessToken
	}
	denied, err := s.denylist.IsDenied(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if denied {
		return nil, ErrTokenRevoked
	}
	return claims, nil
}

// Revoke denylists the token behind claims for the rest of its lifetime.
func (s *TokenService) Revoke(ctx context.Context, claims *security.Claims) error {
	if claims == nil {
		return nil
	}
	return s.denylist.Deny(ctx, claims.ID, s.remaining(claims))
}

func (s *TokenService) remaining(claims *security.Claims) time.Duration {
	if claims.ExpiresAt == nil {
		return s.refreshTTL
	}
	return claims.ExpiresAt.Sub(s.now())
}
