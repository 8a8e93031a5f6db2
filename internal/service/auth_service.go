package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/xcloud/console-client/internal/domain"
	"github.com/xcloud/console-client/internal/observability"
	"github.com/xcloud/console-client/internal/repository"
	"github.com/xcloud/console-client/internal/security"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAccountDisabled    = errors.New("account is disabled")
	ErrUserNotFound       = errors.New("user not found")
)

// AuthService is the server side of the auth contract: it backs the mock API
// handlers, including the in-process fixture transport.
type AuthService struct {
	accounts repository.AccountRepository
	tokens   *TokenService
	logger   *slog.Logger
	now      func() time.Time
}

func NewAuthService(accounts repository.AccountRepository, tokens *TokenService, logger *slog.Logger) *AuthService {
	return &AuthService{accounts: accounts, tokens: tokens, logger: logger, now: time.Now}
}

func (s *AuthService) Login(ctx context.Context, creds domain.Credentials) (domain.TokenData, error) {
	acct, err := s.accounts.FindByUsername(ctx, creds.Username)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			observability.RecordServerAuthEvent(ctx, "login", "invalid_credentials")
			return domain.TokenData{}, ErrInvalidCredentials
		}
		return domain.TokenData{}, err
	}
	if err := security.CheckPassword(acct.PasswordHash, creds.Password); err != nil {
		observability.RecordServerAuthEvent(ctx, "login", "invalid_credentials")
		return domain.TokenData{}, ErrInvalidCredentials
	}
	if !acct.User.IsActive {
		observability.RecordServerAuthEvent(ctx, "login", "disabled")
		return domain.TokenData{}, ErrAccountDisabled
	}
	pair, err := s.tokens.Issue(acct.User)
	if err != nil {
		return domain.TokenData{}, err
	}
	if err := s.accounts.TouchLastLogin(ctx, acct.User.ID, s.now()); err != nil {
		s.logger.Warn("record last login failed", "user_id", acct.User.ID, "error", err)
	}
	observability.RecordServerAuthEvent(ctx, "login", "success")
	return pair, nil
}

func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (domain.TokenData, error) {
	pair, user, err := s.tokens.Rotate(ctx, refreshToken, s.fetchUser)
	if err != nil {
		if errors.Is(err, ErrRefreshTokenReuseDetected) {
			s.logger.Warn("refresh token reuse detected")
		}
		observability.RecordServerAuthEvent(ctx, "refresh", "rejected")
		return domain.TokenData{}, err
	}
	s.logger.Debug("refresh token rotated", "user_id", user.ID)
	observability.RecordServerAuthEvent(ctx, "refresh", "success")
	return pair, nil
}

// Logout revokes the presented access token.
func (s *AuthService) Logout(ctx context.Context, claims *security.Claims) error {
	if err := s.tokens.Revoke(ctx, claims); err != nil {
		return err
	}
	observability.RecordServerAuthEvent(ctx, "logout", "success")
	return nil
}

func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*security.Claims, error) {
	claims, err := s.tokens.Authenticate(ctx, accessToken)
	if err != nil {
		observability.RecordServerAuthEvent(ctx, "authenticate", "rejected")
		return nil, err
	}
	return claims, nil
}

func (s *AuthService) Profile(ctx context.Context, userID string) (*domain.UserRecord, error) {
	return s.fetchUser(ctx, userID)
}

func (s *AuthService) ListUsers(ctx context.Context) ([]domain.UserRecord, error) {
	return s.accounts.List(ctx)
}

func (s *AuthService) fetchUser(ctx context.Context, id string) (*domain.UserRecord, error) {
	acct, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &acct.User, nil
}
