package session

import (
	"context"
	"sync"

	"github.com/plumefeed/plume/internal/models"
)

// Credentials is the persisted slice of a session: the token pair plus the
// last-known identity of its owner.
type Credentials struct {
	User   models.User      `json:"user"`
	Tokens models.TokenPair `json:"token"`
}

// CredentialStore persists credentials across process restarts. It is read
// once at startup and written on every session-mutating operation.
type CredentialStore interface {
	Save(ctx context.Context, creds Credentials) error
	Load(ctx context.Context) (Credentials, bool, error)
	Clear(ctx context.Context) error
}

// NewMemoryStore returns a CredentialStore backed by process memory, for
// tests and ephemeral sessions.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// MemoryStore implements CredentialStore without touching disk.
type MemoryStore struct {
	mu    sync.Mutex
	creds Credentials
	set   bool
}

// Save stores the credentials.
func (s *MemoryStore) Save(_ context.Context, creds Credentials) error {
	s.mu.Lock()
	s.creds = creds
	s.set = true
	s.mu.Unlock()
	return nil
}

// Load returns the stored credentials and whether any exist.
func (s *MemoryStore) Load(_ context.Context) (Credentials, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creds, s.set, nil
}

// Clear removes any stored credentials.
func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	s.creds = Credentials{}
	s.set = false
	s.mu.Unlock()
	return nil
}

// Has reports whether credentials are stored. Useful for tests.
func (s *MemoryStore) Has() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set
}
