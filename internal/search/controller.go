// Package search runs query-scoped fetches against posts or users, whichever
// mode is active, replacing the displayed results on every completed query.
// Overlapping fetches are ordered by a monotonic token: a slow early
// response can never overwrite a newer one.
package search

import (
	"context"
	"strings"
	"sync"

	"github.com/plumefeed/plume/internal/models"
)

// Mode selects which entity kind a query targets. The modes are exclusive.
type Mode int

const (
	ModePosts Mode = iota
	ModeUsers
)

func (m Mode) String() string {
	if m == ModeUsers {
		return "users"
	}
	return "posts"
}

// Gateway captures the remote search operations.
type Gateway interface {
	SearchPosts(ctx context.Context, token, query string) ([]models.Post, error)
	SearchUsers(ctx context.Context, token, query string) ([]models.User, error)
}

// Session exposes the current access token for authenticated searches.
type Session interface {
	Current() (models.User, models.TokenPair, bool)
}

// Controller owns the query text, the active mode, and the latest results.
type Controller struct {
	gateway Gateway
	session Session

	mu      sync.Mutex
	query   string
	mode    Mode
	seq     uint64
	posts   []models.Post
	users   []models.User
	loading bool
	errMsg  string
}

// NewController constructs a search controller in posts mode with no query.
func NewController(gateway Gateway, session Session) *Controller {
	if gateway == nil || session == nil {
		panic("search: gateway and session must not be nil")
	}
	return &Controller{gateway: gateway, session: session}
}

// SetQuery records the new query text and, when it is non-empty after
// trimming, issues a fetch for the active mode. An empty query clears the
// results without a request; HasQuery distinguishes that state from a query
// with zero matches.
func (s *Controller) SetQuery(ctx context.Context, query string) error {
	trimmed := strings.TrimSpace(query)

	s.mu.Lock()
	s.query = trimmed
	if trimmed == "" {
		// Invalidate any in-flight fetch so its late response is discarded.
		s.seq++
		s.posts = nil
		s.users = nil
		s.loading = false
		s.errMsg = ""
		s.mu.Unlock()
		return nil
	}
	mode := s.mode
	token := s.begin()
	s.mu.Unlock()

	return s.fetch(ctx, token, mode, trimmed)
}

// SetMode switches the target entity kind. With a live query the fetch is
// re-issued against the new mode; the previous mode's results never linger.
func (s *Controller) SetMode(ctx context.Context, mode Mode) error {
	s.mu.Lock()
	if s.mode == mode {
		s.mu.Unlock()
		return nil
	}
	s.mode = mode
	s.posts = nil
	s.users = nil
	query := s.query
	if query == "" {
		s.seq++
		s.loading = false
		s.errMsg = ""
		s.mu.Unlock()
		return nil
	}
	token := s.begin()
	s.mu.Unlock()

	return s.fetch(ctx, token, mode, query)
}

// begin issues a request token. Caller must hold s.mu.
func (s *Controller) begin() uint64 {
	s.seq++
	s.loading = true
	s.errMsg = ""
	return s.seq
}

func (s *Controller) fetch(ctx context.Context, token uint64, mode Mode, query string) error {
	accessToken := s.accessToken()

	var (
		posts []models.Post
		users []models.User
		err   error
	)
	if mode == ModeUsers {
		users, err = s.gateway.SearchUsers(ctx, accessToken, query)
	} else {
		posts, err = s.gateway.SearchPosts(ctx, accessToken, query)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if token != s.seq {
		// Superseded by a newer keystroke or mode switch.
		return nil
	}
	s.loading = false
	if err != nil {
		s.errMsg = err.Error()
		return err
	}
	if mode == ModeUsers {
		s.users = users
		s.posts = nil
	} else {
		s.posts = posts
		s.users = nil
	}
	s.errMsg = ""
	return nil
}

func (s *Controller) accessToken() string {
	_, tokens, _ := s.session.Current()
	return tokens.AccessToken
}

// Query returns the current trimmed query text.
func (s *Controller) Query() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query
}

// HasQuery reports whether a non-empty query is active.
func (s *Controller) HasQuery() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query != ""
}

// Mode returns the active mode.
func (s *Controller) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Posts returns the latest post results.
func (s *Controller) Posts() []models.Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Post, len(s.posts))
	copy(out, s.posts)
	return out
}

// Users returns the latest user results.
func (s *Controller) Users() []models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.User, len(s.users))
	copy(out, s.users)
	return out
}

// Loading reports whether the most recent fetch is still in flight.
func (s *Controller) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Err returns the message from the most recent failed fetch, or "".
func (s *Controller) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}
