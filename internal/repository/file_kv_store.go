package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/xcloud/console-client/internal/observability"
)

// FileKeyValueStore keeps the session in a single JSON object on disk,
// the CLI counterpart of browser local storage. Every call re-reads the file
// so separate CLI invocations see each other's writes.
type FileKeyValueStore struct {
	mu   sync.Mutex
	path string
}

func NewFileKeyValueStore(path string) *FileKeyValueStore {
	return &FileKeyValueStore{path: path}
}

func (s *FileKeyValueStore) Path() string { return s.path }

func (s *FileKeyValueStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := s.read()
	if err != nil {
		observability.RecordStorageOperation(ctx, "file", "get", "error")
		return "", err
	}
	v, ok := data[key]
	if !ok {
		observability.RecordStorageOperation(ctx, "file", "get", "not_found")
		return "", ErrKeyNotFound
	}
	observability.RecordStorageOperation(ctx, "file", "get", "success")
	return v, nil
}

func (s *FileKeyValueStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := s.read()
	if err != nil {
		observability.RecordStorageOperation(ctx, "file", "set", "error")
		return err
	}
	data[key] = value
	if err := s.write(data); err != nil {
		observability.RecordStorageOperation(ctx, "file", "set", "error")
		return err
	}
	observability.RecordStorageOperation(ctx, "file", "set", "success")
	return nil
}

func (s *FileKeyValueStore) Delete(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := s.read()
	if err != nil {
		observability.RecordStorageOperation(ctx, "file", "delete", "error")
		return err
	}
	for _, k := range keys {
		delete(data, k)
	}
	if len(data) == 0 {
		if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			observability.RecordStorageOperation(ctx, "file", "delete", "error")
			return fmt.Errorf("remove session file: %w", err)
		}
		observability.RecordStorageOperation(ctx, "file", "delete", "success")
		return nil
	}
	if err := s.write(data); err != nil {
		observability.RecordStorageOperation(ctx, "file", "delete", "error")
		return err
	}
	observability.RecordStorageOperation(ctx, "file", "delete", "success")
	return nil
}

func (s *FileKeyValueStore) read() (map[string]string, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}
	data := map[string]string{}
	if len(raw) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode session file: %w", err)
	}
	return data, nil
}

// write replaces the file atomically so a crash never leaves half a session.
func (s *FileKeyValueStore) write(data map[string]string) error {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session file: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".session-*.json")
	if err != nil {
		return fmt.Errorf("create temp session file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod temp session file: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp session file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}
