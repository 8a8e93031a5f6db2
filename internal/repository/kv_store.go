package repository

import (
	"context"
	"errors"
	"sync"
)

// Keys under which the session store persists its state.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyUserInfo     = "user_info"
)

var SessionKeys = []string{KeyAccessToken, KeyRefreshToken, KeyUserInfo}

var ErrKeyNotFound = errors.New("key not found")

// KeyValueStore is the persistent storage behind the session store.
// Get returns ErrKeyNotFound for absent keys; Delete of absent keys is not
// an error.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

type InMemoryKeyValueStore struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewInMemoryKeyValueStore() *InMemoryKeyValueStore {
	return &InMemoryKeyValueStore{data: make(map[string]string)}
}

func (s *InMemoryKeyValueStore) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	if !ok {
		return "", ErrKeyNotFound
	}
	return v, nil
}

func (s *InMemoryKeyValueStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *InMemoryKeyValueStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.data, k)
	}
	return nil
}

// Len is used by tests to assert a cleared store.
func (s *InMemoryKeyValueStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
