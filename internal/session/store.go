package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"codepair/internal/model"
)

// Storage keys, mirroring the browser local-storage contract: the stored
// user is a serialized profile, the tokens are opaque strings.
const (
	KeyUser         = "user"
	KeyAccessToken  = "accessToken"
	KeyRefreshToken = "refreshToken"
)

// Store is the persistence boundary for the session triple. It behaves like
// web local storage: flat string keys, last write wins.
type Store interface {
	Get(key string) (string, bool)
	Set(key string, value string) error
	Delete(key string) error
	Clear() error
}

// MemoryStore keeps values in process memory. Used in tests and as the
// fallback when no session file is configured.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: map[string]string{}}
}

func (s *MemoryStore) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]
	return v, ok
}

func (s *MemoryStore) Set(key string, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value
	return nil
}

func (s *MemoryStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, key)
	return nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values = map[string]string{}
	return nil
}

// FileStore persists the key set as a JSON document so a restart
// reconstructs the same session.
type FileStore struct {
	mu     sync.Mutex
	path   string
	values map[string]string
}

func NewFileStore(path string) (*FileStore, error) {
	store := &FileStore{path: path, values: map[string]string{}}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return store, nil
	}
	if err != nil {
		return nil, err
	}

	if len(data) > 0 {
		if err := json.Unmarshal(data, &store.values); err != nil {
			// A corrupt session file is recoverable: start empty.
			store.values = map[string]string{}
		}
	}

	return store, nil
}

func (s *FileStore) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.values[key]
	return v, ok
}

func (s *FileStore) Set(key string, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value
	return s.saveLocked()
}

func (s *FileStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, key)
	return s.saveLocked()
}

func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values = map[string]string{}
	return s.saveLocked()
}

func (s *FileStore) saveLocked() error {
	data, err := json.MarshalIndent(s.values, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(s.path, data, 0o600)
}

// LoadSession reconstructs the session triple from storage. A stored user
// that fails to parse marks the whole session as corrupt.
func LoadSession(store Store) (model.Session, error) {
	var sess model.Session

	sess.AccessToken, _ = store.Get(KeyAccessToken)
	sess.RefreshToken, _ = store.Get(KeyRefreshToken)

	raw, ok := store.Get(KeyUser)
	if !ok || raw == "" {
		return sess, nil
	}

	var user model.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return model.Session{}, fmt.Errorf("%w: %v", model.ErrMalformedSession, err)
	}
	sess.User = &user

	return sess, nil
}
