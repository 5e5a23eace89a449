package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/plumefeed/plume/internal/api"
	"github.com/plumefeed/plume/internal/models"
)

type stubSession struct {
	user   models.User
	tokens models.TokenPair
	active bool
}

func (s *stubSession) Current() (models.User, models.TokenPair, bool) {
	return s.user, s.tokens, s.active
}

func signedIn() *stubSession {
	return &stubSession{
		user:   models.User{ID: "viewer", Name: "Viewer"},
		tokens: models.TokenPair{AccessToken: "tok"},
		active: true,
	}
}

// stubGateway tracks calls and lets tests block individual operations.
type stubGateway struct {
	mu sync.Mutex

	posts    []models.Post
	users    []models.User
	comments []models.Comment
	stats    []models.Stat

	createErr  error
	likeErr    error
	likeCalls  int
	likeBlock  chan struct{}
	liked      bool
	createSeen []models.Post
}

func (g *stubGateway) Posts(context.Context, string) ([]models.Post, error) {
	return g.posts, nil
}

func (g *stubGateway) UserPosts(_ context.Context, _ string, ownerID string) ([]models.Post, error) {
	var out []models.Post
	for _, p := range g.posts {
		if p.UserID == ownerID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (g *stubGateway) Post(_ context.Context, _ string, id string) (models.Post, error) {
	for _, p := range g.posts {
		if p.ID.String() == id {
			return p, nil
		}
	}
	return models.Post{}, fmt.Errorf("GET /post/%s: %w", id, api.ErrNotFound)
}

func (g *stubGateway) CreatePost(_ context.Context, _ string, post models.Post) (models.Post, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return models.Post{}, g.createErr
	}
	g.createSeen = append(g.createSeen, post)
	post.ID = models.FlexID(fmt.Sprintf("p%d", len(g.createSeen)))
	return post, nil
}

func (g *stubGateway) DeletePost(context.Context, string, string) error { return nil }

func (g *stubGateway) PostStats(context.Context, string) ([]models.Stat, error) {
	return g.stats, nil
}

func (g *stubGateway) Users(context.Context, string) ([]models.User, error) {
	return g.users, nil
}

func (g *stubGateway) User(_ context.Context, _ string, id string) (models.User, error) {
	for _, u := range g.users {
		if u.ID == id {
			return u, nil
		}
	}
	return models.User{}, fmt.Errorf("GET /user/%s: %w", id, api.ErrNotFound)
}

func (g *stubGateway) PostComments(context.Context, string, string) ([]models.Comment, error) {
	return g.comments, nil
}

func (g *stubGateway) CreateComment(_ context.Context, _ string, comment models.Comment) (models.Comment, error) {
	comment.ID = "c1"
	return comment, nil
}

func (g *stubGateway) UpdateComment(_ context.Context, _ string, comment models.Comment) (models.Comment, error) {
	return comment, nil
}

func (g *stubGateway) LikePost(context.Context, string, string, string) error {
	g.mu.Lock()
	g.likeCalls++
	block := g.likeBlock
	err := g.likeErr
	g.mu.Unlock()

	if block != nil {
		<-block
	}
	if err != nil {
		return err
	}
	g.mu.Lock()
	g.liked = !g.liked
	g.mu.Unlock()
	return nil
}

func (g *stubGateway) LikeUser(context.Context, string, string, string) error { return g.likeErr }

func (g *stubGateway) Follow(context.Context, string, string, string) error { return g.likeErr }

func (g *stubGateway) IsLiked(context.Context, string, string, string) (bool, error) {
	return g.liked, nil
}

func (g *stubGateway) IsFollower(context.Context, string, string, string) (bool, error) {
	return false, nil
}

func (g *stubGateway) Followers(context.Context, string, string) ([]models.User, error) {
	return g.users, nil
}

func newTestCoordinator(gw *stubGateway, session Session) *Coordinator {
	return NewCoordinator(gw, session, Config{ToggleInterval: time.Nanosecond})
}

func TestLoadFeedFillsPostCache(t *testing.T) {
	gw := &stubGateway{posts: []models.Post{{ID: "1"}, {ID: "2"}}}
	c := newTestCoordinator(gw, signedIn())

	if err := c.LoadFeed(context.Background()); err != nil {
		t.Fatalf("load feed: %v", err)
	}
	if c.Posts().Len() != 2 {
		t.Fatalf("expected 2 posts cached, got %d", c.Posts().Len())
	}
}

func TestLoadUserPostsDefaultsToViewer(t *testing.T) {
	gw := &stubGateway{posts: []models.Post{
		{ID: "1", UserID: "viewer"},
		{ID: "2", UserID: "someone-else"},
	}}
	c := newTestCoordinator(gw, signedIn())

	if err := c.LoadUserPosts(context.Background(), ""); err != nil {
		t.Fatalf("load own posts: %v", err)
	}
	got := c.Posts().Snapshot()
	if len(got) != 1 || got[0].UserID != "viewer" {
		t.Fatalf("expected only the viewer's posts: %+v", got)
	}
}

func TestLoadUserPostsRequiresSessionForSelf(t *testing.T) {
	c := newTestCoordinator(&stubGateway{}, &stubSession{})

	err := c.LoadUserPosts(context.Background(), "")
	if !errors.Is(err, api.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated got %v", err)
	}
}

func TestCreatePostValidatesBeforeNetwork(t *testing.T) {
	gw := &stubGateway{}
	c := newTestCoordinator(gw, signedIn())

	_, err := c.CreatePost(context.Background(), Draft{Title: "   ", Content: "body"})
	if !errors.Is(err, api.ErrValidation) {
		t.Fatalf("expected ErrValidation got %v", err)
	}
	if len(gw.createSeen) != 0 {
		t.Fatal("no request may be issued for an invalid draft")
	}
	if c.Posts().Len() != 0 {
		t.Fatal("nothing may be cached for an invalid draft")
	}
}

func TestCreatePostNormalizesAndCaches(t *testing.T) {
	gw := &stubGateway{}
	c := newTestCoordinator(gw, signedIn())
	stamp := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	c.NowFunc = func() time.Time { return stamp }

	created, err := c.CreatePost(context.Background(), Draft{
		Title:     "  Hello  ",
		Content:   "body",
		TagLabels: []string{"Go", "go", " ", "news"},
	})
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected server-assigned id")
	}

	sent := gw.createSeen[0]
	if sent.Title != "Hello" {
		t.Fatalf("expected trimmed title, got %q", sent.Title)
	}
	if len(sent.Tags) != 2 || sent.Tags[0].Label != "go" || sent.Tags[1].Label != "news" {
		t.Fatalf("expected normalized tags, got %+v", sent.Tags)
	}
	if !sent.CreatedAt.Equal(stamp) {
		t.Fatalf("expected draft stamped with NowFunc, got %v", sent.CreatedAt)
	}

	if got, ok := c.Posts().Get(created.ID.String()); !ok || got.Title != "Hello" {
		t.Fatalf("expected server response cached: %+v %v", got, ok)
	}
}

func TestCreatePostFailureCachesNothing(t *testing.T) {
	gw := &stubGateway{createErr: fmt.Errorf("POST /post: %w: status 500", api.ErrRemote)}
	c := newTestCoordinator(gw, signedIn())

	_, err := c.CreatePost(context.Background(), Draft{Title: "t", Content: "c"})
	if !errors.Is(err, api.ErrRemote) {
		t.Fatalf("expected ErrRemote got %v", err)
	}
	if c.Posts().Len() != 0 {
		t.Fatal("failed submission must not be cached")
	}
}

func TestAddCommentAppendsServerResponse(t *testing.T) {
	gw := &stubGateway{}
	c := newTestCoordinator(gw, signedIn())

	created, err := c.AddComment(context.Background(), "p1", "  nice post  ")
	if err != nil {
		t.Fatalf("add comment: %v", err)
	}
	if created.ID != "c1" || created.Content != "nice post" {
		t.Fatalf("unexpected comment: %+v", created)
	}
	if c.Comments().Len() != 1 {
		t.Fatal("expected the comment cached")
	}

	if _, err := c.AddComment(context.Background(), "p1", "   "); !errors.Is(err, api.ErrValidation) {
		t.Fatalf("expected ErrValidation for empty content, got %v", err)
	}
}

func TestToggleRequiresSession(t *testing.T) {
	c := newTestCoordinator(&stubGateway{}, &stubSession{})

	err := c.ToggleLikePost(context.Background(), "p1")
	if !errors.Is(err, api.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated got %v", err)
	}
}

func TestToggleRefusedWhileInFlight(t *testing.T) {
	gw := &stubGateway{likeBlock: make(chan struct{})}
	c := newTestCoordinator(gw, signedIn())

	firstDone := make(chan error, 1)
	go func() {
		firstDone <- c.ToggleLikePost(context.Background(), "p1")
	}()

	// wait for the first toggle to reach the gateway
	for {
		gw.mu.Lock()
		calls := gw.likeCalls
		gw.mu.Unlock()
		if calls == 1 {
			break
		}
		time.Sleep(time.Millisecond)
	}

	err := c.ToggleLikePost(context.Background(), "p1")
	if !errors.Is(err, ErrToggleInFlight) {
		t.Fatalf("expected ErrToggleInFlight got %v", err)
	}

	close(gw.likeBlock)
	if err := <-firstDone; err != nil {
		t.Fatalf("first toggle: %v", err)
	}
	if gw.likeCalls != 1 {
		t.Fatalf("refused tap must not reach the gateway, got %d calls", gw.likeCalls)
	}
}

func TestTwoSettledTogglesRoundTrip(t *testing.T) {
	gw := &stubGateway{}
	c := newTestCoordinator(gw, signedIn())
	ctx := context.Background()

	if err := c.ToggleLikePost(ctx, "p1"); err != nil {
		t.Fatalf("first toggle: %v", err)
	}
	if !gw.liked {
		t.Fatal("expected server-side like set")
	}
	if err := c.ToggleLikePost(ctx, "p1"); err != nil {
		t.Fatalf("second toggle: %v", err)
	}
	if gw.liked {
		t.Fatal("expected server-side like cleared after the second flip")
	}
	if gw.likeCalls != 2 {
		t.Fatalf("expected exactly two requests, got %d", gw.likeCalls)
	}
}

func TestToggleFailureSurfacesForRevert(t *testing.T) {
	gw := &stubGateway{likeErr: fmt.Errorf("POST /like_post/p1: %w: status 502", api.ErrRemote)}
	c := newTestCoordinator(gw, signedIn())

	err := c.ToggleLikePost(context.Background(), "p1")
	if !errors.Is(err, api.ErrRemote) {
		t.Fatalf("expected remote failure surfaced for revert, got %v", err)
	}

	// the guard settles on failure too; the next tap goes out
	gw.mu.Lock()
	gw.likeErr = nil
	gw.mu.Unlock()
	if err := c.ToggleLikePost(context.Background(), "p1"); err != nil {
		t.Fatalf("toggle after failure: %v", err)
	}
}

func TestIsLikedByMe(t *testing.T) {
	gw := &stubGateway{liked: true}
	c := newTestCoordinator(gw, signedIn())

	liked, err := c.IsLikedByMe(context.Background(), "owner")
	if err != nil {
		t.Fatalf("isLikedByMe: %v", err)
	}
	if !liked {
		t.Fatal("expected liked state reported")
	}
}
