// Package session owns the authenticated identity and token pair for the
// process. At most one session is active at a time; session-mutating
// operations serialize so concurrent sign-ins cannot interleave.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/plumefeed/plume/internal/api"
	"github.com/plumefeed/plume/internal/models"
)

// Gateway captures the remote operations the store depends on.
type Gateway interface {
	Login(ctx context.Context, email, password string) (models.User, models.TokenPair, error)
	Register(ctx context.Context, name, email, password string) (models.User, models.TokenPair, error)
	Me(ctx context.Context, token string) (models.User, error)
	Logout(ctx context.Context, token string) error
	UpdateUser(ctx context.Context, token, id, name, email string) (models.User, error)
}

const logoutTimeout = 5 * time.Second

// Store holds the current session and keeps it in step with the credential
// store. The session is atomic: user and tokens are always set and cleared
// together.
type Store struct {
	gateway Gateway
	creds   CredentialStore
	logger  *slog.Logger

	// op serializes session-mutating operations end to end, including
	// their network calls. mu guards only the in-memory snapshot.
	op sync.Mutex
	mu sync.RWMutex

	user   models.User
	tokens models.TokenPair
	active bool
}

// NewStore constructs a session store over the given gateway and persistence.
func NewStore(gateway Gateway, creds CredentialStore, logger *slog.Logger) *Store {
	if gateway == nil || creds == nil {
		panic("session: gateway and credential store must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{gateway: gateway, creds: creds, logger: logger}
}

// Current returns the active identity and token pair, if any.
func (s *Store) Current() (models.User, models.TokenPair, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user, s.tokens, s.active
}

// Authenticated reports whether a session is active.
func (s *Store) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

func (s *Store) set(user models.User, tokens models.TokenPair) {
	s.mu.Lock()
	s.user = user
	s.tokens = tokens
	s.active = true
	s.mu.Unlock()
}

func (s *Store) reset() {
	s.mu.Lock()
	s.user = models.User{}
	s.tokens = models.TokenPair{}
	s.active = false
	s.mu.Unlock()
}

// Restore loads persisted credentials and validates them against the remote
// service. A missing pair, or one the service rejects, yields an empty
// session without error: "logged out" is a normal terminal state here, not
// a failure. Rejected credentials are removed from persistence; transient
// network failures keep them so a later start can retry.
func (s *Store) Restore(ctx context.Context) error {
	s.op.Lock()
	defer s.op.Unlock()

	creds, found, err := s.creds.Load(ctx)
	if err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	if !found || creds.Tokens.AccessToken == "" {
		s.reset()
		return nil
	}

	user, err := s.gateway.Me(ctx, creds.Tokens.AccessToken)
	if err != nil {
		s.reset()
		if errors.Is(err, api.ErrUnauthenticated) || errors.Is(err, api.ErrNotFound) {
			s.logger.Info("persisted session rejected, clearing credentials", "error", err)
			if clearErr := s.creds.Clear(ctx); clearErr != nil {
				s.logger.Warn("clear rejected credentials", "error", clearErr)
			}
			return nil
		}
		s.logger.Warn("session validation unreachable, starting unauthenticated", "error", err)
		return nil
	}

	s.set(user, creds.Tokens)
	return nil
}

// SignIn exchanges credentials for a session and persists it. On failure the
// session is left exactly as it was; the error distinguishes rejected
// credentials (api.ErrCredentialsInvalid) from connectivity problems
// (api.ErrRemote).
func (s *Store) SignIn(ctx context.Context, email, password string) error {
	s.op.Lock()
	defer s.op.Unlock()

	user, tokens, err := s.gateway.Login(ctx, email, password)
	if err != nil {
		return err
	}

	s.set(user, tokens)
	if err := s.creds.Save(ctx, Credentials{User: user, Tokens: tokens}); err != nil {
		s.logger.Warn("persist session", "error", err)
	}
	return nil
}

// SignUp provisions a new identity and starts its session. Password policy
// is the caller's responsibility; the store performs no checks.
func (s *Store) SignUp(ctx context.Context, name, email, password string) error {
	s.op.Lock()
	defer s.op.Unlock()

	user, tokens, err := s.gateway.Register(ctx, name, email, password)
	if err != nil {
		return err
	}

	s.set(user, tokens)
	if err := s.creds.Save(ctx, Credentials{User: user, Tokens: tokens}); err != nil {
		s.logger.Warn("persist session", "error", err)
	}
	return nil
}

// SignOut clears the in-memory and persisted session unconditionally, then
// notifies the remote service best-effort. The local clear is authoritative:
// a failed logout call never resurrects the session.
func (s *Store) SignOut(ctx context.Context) {
	s.op.Lock()
	defer s.op.Unlock()

	_, tokens, active := s.Current()

	s.reset()
	if err := s.creds.Clear(ctx); err != nil {
		s.logger.Warn("clear persisted session", "error", err)
	}

	if !active || tokens.AccessToken == "" {
		return
	}

	logoutCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), logoutTimeout)
	defer cancel()
	if err := s.gateway.Logout(logoutCtx, tokens.AccessToken); err != nil {
		s.logger.Warn("remote logout", "error", err)
	}
}

// UpdateProfile changes the authenticated user's name and email and refreshes
// the cached identity from the server's response.
func (s *Store) UpdateProfile(ctx context.Context, name, email string) error {
	s.op.Lock()
	defer s.op.Unlock()

	user, tokens, active := s.Current()
	if !active {
		return fmt.Errorf("update profile: %w", api.ErrUnauthenticated)
	}

	updated, err := s.gateway.UpdateUser(ctx, tokens.AccessToken, user.ID, name, email)
	if err != nil {
		return err
	}
	if updated.ID == "" {
		updated.ID = user.ID
	}

	s.set(updated, tokens)
	if err := s.creds.Save(ctx, Credentials{User: updated, Tokens: tokens}); err != nil {
		s.logger.Warn("persist session", "error", err)
	}
	return nil
}
