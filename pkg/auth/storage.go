package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// SessionStorage persists the authenticated session. Implementations must
// treat the session as a value replaced wholesale on Set; partial updates
// would race a fresh login against a concurrent refresh.
type SessionStorage interface {
	// Get returns the stored session, or nil when none exists.
	Get(ctx context.Context) (*Session, error)

	// Set replaces the stored session.
	Set(ctx context.Context, session Session) error

	// Clear removes the stored session. Clearing an empty store is fine.
	Clear(ctx context.Context) error
}

// MemoryStorage keeps the session in process memory. This is the default
// backing store for short-lived clients.
type MemoryStorage struct {
	mu      sync.RWMutex
	session *Session
}

// NewMemoryStorage creates an empty in-memory store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (s *MemoryStorage) Get(ctx context.Context) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.session == nil {
		return nil, nil
	}
	copied := *s.session
	return &copied, nil
}

func (s *MemoryStorage) Set(ctx context.Context, session Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.session = &session
	return nil
}

func (s *MemoryStorage) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.session = nil
	return nil
}

// FileStorage persists the session as JSON on disk, so CLI invocations can
// reuse a login across processes. The file is written 0600; the token is
// stored clear (encryption is a storage-backend concern, not handled here).
type FileStorage struct {
	mu   sync.Mutex
	path string
}

// NewFileStorage creates a file-backed store. An empty path defaults to
// ~/.tpsdk/session.json.
func NewFileStorage(path string) (*FileStorage, error) {
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, ".tpsdk", "session.json")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &FileStorage{path: path}, nil
}

// Path returns the backing file path.
func (s *FileStorage) Path() string {
	return s.path
}

func (s *FileStorage) Get(ctx context.Context) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to parse session file: %w", err)
	}
	return &session, nil
}

func (s *FileStorage) Set(ctx context.Context, session Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	// Write-then-rename keeps the session file whole if the process dies
	// mid-write
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace session file: %w", err)
	}
	return nil
}

func (s *FileStorage) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}
