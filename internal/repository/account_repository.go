package repository

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xcloud/console-client/internal/domain"
	"github.com/xcloud/console-client/internal/security"
)

var ErrAccountNotFound = errors.New("account not found")

// accountNamespace derives stable account IDs from usernames, so tokens
// issued by one process resolve in the next.
var accountNamespace = uuid.MustParse("6f1c4f2e-3b8a-4d57-9a61-2c0f8e7d5b13")

// Account is a user record plus its bcrypt password hash.
type Account struct {
	User         domain.UserRecord
	PasswordHash string
}

type SeedAccount struct {
	Username string
	Password string
	Email    string
	Role     domain.Role
}

// DefaultSeedAccounts are the development logins served by the mock API and
// the fixture transport.
var DefaultSeedAccounts = []SeedAccount{
	{Username: "admin", Password: "admin123", Email: "admin@xcloud.local", Role: domain.RoleAdmin},
	{Username: "operator", Password: "operator123", Email: "operator@xcloud.local", Role: domain.RoleOperator},
	{Username: "viewer", Password: "viewer123", Email: "viewer@xcloud.local", Role: domain.RoleViewer},
}

type AccountRepository interface {
	FindByUsername(ctx context.Context, username string) (*Account, error)
	FindByID(ctx context.Context, id string) (*Account, error)
	List(ctx context.Context) ([]domain.UserRecord, error)
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
}

type InMemoryAccountRepository struct {
	mu     sync.RWMutex
	byID   map[string]*Account
	byName map[string]string
}

func NewInMemoryAccountRepository(seed []SeedAccount) (*InMemoryAccountRepository, error) {
	r := &InMemoryAccountRepository{
		byID:   make(map[string]*Account, len(seed)),
		byName: make(map[string]string, len(seed)),
	}
	created := time.Now().UTC()
	for _, s := range seed {
		hash, err := security.HashPassword(s.Password)
		if err != nil {
			return nil, err
		}
		id := uuid.NewSHA1(accountNamespace, []byte(normalizeUsername(s.Username))).String()
		r.byID[id] = &Account{
			User: domain.UserRecord{
				ID:        id,
				Username:  s.Username,
				Email:     s.Email,
				Role:      s.Role,
				IsActive:  true,
				CreatedAt: created,
			},
			PasswordHash: hash,
		}
		r.byName[normalizeUsername(s.Username)] = id
	}
	return r, nil
}

func (r *InMemoryAccountRepository) FindByUsername(_ context.Context, username string) (*Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byName[normalizeUsername(username)]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return cloneAccount(r.byID[id]), nil
}

func (r *InMemoryAccountRepository) FindByID(_ context.Context, id string) (*Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byID[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return cloneAccount(a), nil
}

func (r *InMemoryAccountRepository) List(_ context.Context) ([]domain.UserRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.UserRecord, 0, len(r.byID))
	for _, a := range r.byID {
		out = append(out, *a.User.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (r *InMemoryAccountRepository) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return ErrAccountNotFound
	}
	t := at.UTC()
	a.User.LastLoginAt = &t
	return nil
}

// SetActive toggles an account; used to exercise disabled-account handling.
func (r *InMemoryAccountRepository) SetActive(id string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return ErrAccountNotFound
	}
	a.User.IsActive = active
	return nil
}

func normalizeUsername(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

func cloneAccount(a *Account) *Account {
	cp := *a
	cp.User = *a.User.Clone()
	return &cp
}
