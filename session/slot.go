package session

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/cotovideo/client/models"
)

// ErrNoSession indicates the persisted slot holds no session.
var ErrNoSession = errors.New("no persisted session")

// Slot persists the current session so it can survive process restarts.
type Slot interface {
	Load(ctx context.Context) (models.Session, error)
	Save(ctx context.Context, session models.Session) error
	Clear(ctx context.Context) error
}

// FileSlot stores the session as a JSON file on disk.
type FileSlot struct {
	path string
}

// NewFileSlot returns a Slot backed by the file at path.
func NewFileSlot(path string) *FileSlot {
	return &FileSlot{path: path}
}

// Load reads and decodes the persisted session.
func (s *FileSlot) Load(_ context.Context) (models.Session, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return models.Session{}, ErrNoSession
		}
		return models.Session{}, err
	}

	var session models.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return models.Session{}, err
	}
	return session, nil
}

// Save encodes and writes the session, creating parent directories as needed.
// The file is private to the user because it carries the auth token.
func (s *FileSlot) Save(_ context.Context, session models.Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(s.path, raw, 0o600)
}

// Clear removes the persisted session. Clearing an empty slot is not an error.
func (s *FileSlot) Clear(_ context.Context) error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// NewMemorySlot returns a Slot backed by process memory. Useful for tests.
func NewMemorySlot() *MemorySlot {
	return &MemorySlot{}
}

// MemorySlot implements Slot without touching the filesystem.
type MemorySlot struct {
	mu      sync.RWMutex
	session models.Session
	held    bool
}

// Load returns the stored session, if any.
func (s *MemorySlot) Load(_ context.Context) (models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.held {
		return models.Session{}, ErrNoSession
	}
	return s.session, nil
}

// Save stores the provided session.
func (s *MemorySlot) Save(_ context.Context, session models.Session) error {
	s.mu.Lock()
	s.session = session
	s.held = true
	s.mu.Unlock()
	return nil
}

// Clear removes the stored session.
func (s *MemorySlot) Clear(_ context.Context) error {
	s.mu.Lock()
	s.session = models.Session{}
	s.held = false
	s.mu.Unlock()
	return nil
}

// Has reports whether a session is stored. Useful for tests.
func (s *MemorySlot) Has() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.held
}
