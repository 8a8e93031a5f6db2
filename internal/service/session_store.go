package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"

	"github.com/xcloud/console-client/internal/apierror"
	"github.com/xcloud/console-client/internal/domain"
	"github.com/xcloud/console-client/internal/observability"
	"github.com/xcloud/console-client/internal/repository"
	"github.com/xcloud/console-client/internal/security"
)

var (
	ErrNoRefreshToken   = errors.New("no refresh token")
	ErrNotAuthenticated = errors.New("not authenticated")
)

type SessionStoreOptions struct {
	// SingleFlight coalesces concurrent Refresh calls into one request.
	SingleFlight bool
}

// SessionStore owns the client-side session. Memory is authoritative once
// Restore has run; every mutation is written through to storage.
type SessionStore struct {
	mu      sync.RWMutex
	session domain.Session

	// persistMu orders storage writes so storage never lags a newer
	// in-memory value.
	persistMu sync.Mutex
	storage   repository.KeyValueStore

	auth         AuthClient
	logger       *slog.Logger
	singleFlight bool
	group        singleflight.Group
	now          func() time.Time
}

func NewSessionStore(storage repository.KeyValueStore, auth AuthClient, logger *slog.Logger, opts SessionStoreOptions) *SessionStore {
	return &SessionStore{
		storage:      storage,
		auth:         auth,
		logger:       logger,
		singleFlight: opts.SingleFlight,
		now:          time.Now,
	}
}

// Restore loads the persisted session. A malformed user_info entry is
// discarded with a warning; only storage failures are returned.
func (s *SessionStore) Restore(ctx context.Context) error {
	access, err := s.load(ctx, repository.KeyAccessToken)
	if err != nil {
		observability.RecordSessionRestore(ctx, "error")
		return fmt.Errorf("restore access token: %w", err)
	}
	refresh, err := s.load(ctx, repository.KeyRefreshToken)
	if err != nil {
		observability.RecordSessionRestore(ctx, "error")
		return fmt.Errorf("restore refresh token: %w", err)
	}
	rawUser, err := s.load(ctx, repository.KeyUserInfo)
	if err != nil {
		observability.RecordSessionRestore(ctx, "error")
		return fmt.Errorf("restore user info: %w", err)
	}

	outcome := "restored"
	var user *domain.UserRecord
	if rawUser != "" {
		var u domain.UserRecord
		if err := json.Unmarshal([]byte(rawUser), &u); err != nil {
			s.logger.Warn("discarding malformed persisted user info", "error", err)
			outcome = "user_info_discarded"
		} else {
			user = &u
		}
	}
	if access == "" && refresh == "" && user == nil {
		outcome = "empty"
	}

	s.mu.Lock()
	s.session = domain.Session{
		AccessToken:  access,
		RefreshToken: refresh,
		UserInfo:     user,
		IsLoading:    s.session.IsLoading,
		ExpiresAt:    security.TokenExpiry(access),
	}
	s.mu.Unlock()

	observability.RecordSessionRestore(ctx, outcome)
	s.logger.Debug("session restored", "outcome", outcome, "authenticated", access != "")
	return nil
}

// Login reports true when the API accepted the credentials. The session is
// left untouched on any failure, including a token pair that could only be
// partly persisted.
func (s *SessionStore) Login(ctx context.Context, creds domain.Credentials) (bool, error) {
	s.setLoading(true)
	defer s.setLoading(false)

	resp, err := s.auth.Login(ctx, creds)
	if err != nil {
		observability.RecordAuthLogin(ctx, "password", "error")
		return false, err
	}
	if resp.Code != domain.ResponseCodeOK {
		observability.RecordAuthLogin(ctx, "password", "rejected")
		return false, apierror.Application(resp.Code, resp.Message, nil)
	}
	prev := s.Snapshot()
	if err := s.SaveTokens(ctx, resp.Data); err != nil {
		observability.RecordAuthLogin(ctx, "password", "error")
		if rbErr := s.restoreTokens(ctx, prev); rbErr != nil {
			s.logger.Warn("roll back session after failed login", "error", rbErr)
		}
		return false, err
	}
	observability.RecordAuthLogin(ctx, "password", "success")
	s.logger.Info("login succeeded", "username", creds.Username)
	return true, nil
}

// Refresh exchanges the refresh token for a new pair. Any failure after the
// request is attempted clears the whole session.
func (s *SessionStore) Refresh(ctx context.Context) error {
	if !s.singleFlight {
		return s.refresh(ctx)
	}
	_, err, shared := s.group.Do("refresh", func() (any, error) {
		return nil, s.refresh(ctx)
	})
	if shared {
		s.logger.Debug("refresh coalesced with in-flight call")
	}
	return err
}

func (s *SessionStore) refresh(ctx context.Context) (err error) {
	ctx, span := observability.Tracer().Start(ctx, "session.refresh")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "refresh failed")
		}
		span.End()
	}()

	token := s.RefreshToken()
	if token == "" {
		observability.RecordAuthRefresh(ctx, "no_token")
		return ErrNoRefreshToken
	}

	resp, err := s.auth.Refresh(ctx, token)
	if err == nil && resp.Code != domain.ResponseCodeOK {
		err = apierror.Application(resp.Code, resp.Message, nil)
	}
	if err == nil {
		data := resp.Data
		if data.RefreshToken == "" {
			data.RefreshToken = token
		}
		err = s.SaveTokens(ctx, data)
	}
	if err != nil {
		if cerr := s.Clear(ctx); cerr != nil {
			s.logger.Warn("clear session after failed refresh", "error", cerr)
		}
		observability.RecordAuthRefresh(ctx, "failure")
		s.logger.Warn("token refresh failed", "error", err)
		return err
	}
	observability.RecordAuthRefresh(ctx, "success")
	s.logger.Debug("token refreshed")
	return nil
}

// Logout notifies the API when a token is held, then always clears the
// session. Remote failures are logged and never returned.
func (s *SessionStore) Logout(ctx context.Context) error {
	if token := s.Token(); token != "" {
		resp, err := s.auth.Logout(ctx, token)
		switch {
		case err != nil:
			observability.RecordAuthLogout(ctx, "remote_error")
			s.logger.Warn("logout request failed", "error", err)
		case !resp.OK():
			observability.RecordAuthLogout(ctx, "remote_rejected")
			s.logger.Warn("logout rejected", "code", resp.Code, "message", resp.Message)
		default:
			observability.RecordAuthLogout(ctx, "success")
		}
	} else {
		observability.RecordAuthLogout(ctx, "local_only")
	}
	return s.Clear(ctx)
}

// Clear empties the session in memory and in storage. Memory is cleared even
// when the storage delete fails.
func (s *SessionStore) Clear(ctx context.Context) error {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.Lock()
	s.session = domain.Session{IsLoading: s.session.IsLoading}
	s.mu.Unlock()

	if err := s.storage.Delete(ctx, repository.SessionKeys...); err != nil {
		return fmt.Errorf("clear persisted session: %w", err)
	}
	return nil
}

func (s *SessionStore) SaveTokens(ctx context.Context, data domain.TokenData) error {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.Lock()
	s.session.AccessToken = data.AccessToken
	s.session.RefreshToken = data.RefreshToken
	s.session.ExpiresAt = security.TokenExpiry(data.AccessToken)
	if s.session.ExpiresAt.IsZero() && data.ExpiresIn > 0 {
		s.session.ExpiresAt = s.now().Add(time.Duration(data.ExpiresIn) * time.Second)
	}
	s.mu.Unlock()

	if err := s.storage.Set(ctx, repository.KeyAccessToken, data.AccessToken); err != nil {
		return fmt.Errorf("persist access token: %w", err)
	}
	if err := s.storage.Set(ctx, repository.KeyRefreshToken, data.RefreshToken); err != nil {
		return fmt.Errorf("persist refresh token: %w", err)
	}
	return nil
}

// restoreTokens puts back the token pair held before a partial save, in
// memory and in storage. Empty values are deleted rather than written.
func (s *SessionStore) restoreTokens(ctx context.Context, prev domain.Session) error {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.Lock()
	s.session.AccessToken = prev.AccessToken
	s.session.RefreshToken = prev.RefreshToken
	s.session.ExpiresAt = prev.ExpiresAt
	s.mu.Unlock()

	var errs []error
	for key, v := range map[string]string{
		repository.KeyAccessToken:  prev.AccessToken,
		repository.KeyRefreshToken: prev.RefreshToken,
	} {
		var err error
		if v == "" {
			err = s.storage.Delete(ctx, key)
		} else {
			err = s.storage.Set(ctx, key, v)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("restore %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

func (s *SessionStore) SaveUserInfo(ctx context.Context, user domain.UserRecord) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user info: %w", err)
	}

	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.Lock()
	s.session.UserInfo = user.Clone()
	s.mu.Unlock()

	if err := s.storage.Set(ctx, repository.KeyUserInfo, string(raw)); err != nil {
		return fmt.Errorf("persist user info: %w", err)
	}
	return nil
}

// FetchProfile loads the current user from the API and stores it.
func (s *SessionStore) FetchProfile(ctx context.Context, users ProfileClient) (*domain.UserRecord, error) {
	resp, err := users.Profile(ctx)
	if err != nil {
		return nil, err
	}
	if resp.Code != domain.ResponseCodeOK {
		return nil, apierror.Application(resp.Code, resp.Message, nil)
	}
	if err := s.SaveUserInfo(ctx, resp.Data); err != nil {
		return nil, err
	}
	return resp.Data.Clone(), nil
}

func (s *SessionStore) Snapshot() domain.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := s.session
	snap.UserInfo = s.session.UserInfo.Clone()
	return snap
}

func (s *SessionStore) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.AccessToken
}

func (s *SessionStore) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.RefreshToken
}

func (s *SessionStore) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.IsLoading
}

func (s *SessionStore) IsAuthenticated() bool {
	return s.Token() != ""
}

// Role is empty until user info is known.
func (s *SessionStore) Role() domain.Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session.UserInfo == nil {
		return ""
	}
	return s.session.UserInfo.Role
}

func (s *SessionStore) HasRole(role domain.Role) bool {
	return s.Role() == role
}

// HasPermission reports whether the current role includes min in the
// admin > operator > viewer hierarchy.
func (s *SessionStore) HasPermission(min domain.Role) bool {
	return s.Role().Includes(min)
}

func (s *SessionStore) setLoading(v bool) {
	s.mu.Lock()
	s.session.IsLoading = v
	s.mu.Unlock()
}

func (s *SessionStore) load(ctx context.Context, key string) (string, error) {
	v, err := s.storage.Get(ctx, key)
	if errors.Is(err, repository.ErrKeyNotFound) {
		return "", nil
	}
	return v, err
}
