package search

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/plumefeed/plume/internal/models"
)

type stubSession struct{}

func (stubSession) Current() (models.User, models.TokenPair, bool) {
	return models.User{ID: "viewer"}, models.TokenPair{AccessToken: "tok"}, true
}

// stubGateway returns canned results per query and can hold selected queries
// until released.
type stubGateway struct {
	mu         sync.Mutex
	postsFor   map[string][]models.Post
	usersFor   map[string][]models.User
	holds      map[string]chan struct{}
	postCalls  []string
	userCalls  []string
	tokensSeen []string
}

func newStubGateway() *stubGateway {
	return &stubGateway{
		postsFor: make(map[string][]models.Post),
		usersFor: make(map[string][]models.User),
		holds:    make(map[string]chan struct{}),
	}
}

func (g *stubGateway) SearchPosts(_ context.Context, token, query string) ([]models.Post, error) {
	g.mu.Lock()
	g.postCalls = append(g.postCalls, query)
	g.tokensSeen = append(g.tokensSeen, token)
	hold := g.holds[query]
	g.mu.Unlock()

	if hold != nil {
		<-hold
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.postsFor[query], nil
}

func (g *stubGateway) SearchUsers(_ context.Context, token, query string) ([]models.User, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.userCalls = append(g.userCalls, query)
	return g.usersFor[query], nil
}

func TestSetQueryFetchesActiveMode(t *testing.T) {
	gw := newStubGateway()
	gw.postsFor["go"] = []models.Post{{ID: "1", Title: "go post"}}
	c := NewController(gw, stubSession{})

	if err := c.SetQuery(context.Background(), "  go  "); err != nil {
		t.Fatalf("set query: %v", err)
	}
	if c.Query() != "go" {
		t.Fatalf("expected trimmed query, got %q", c.Query())
	}
	if got := c.Posts(); len(got) != 1 || got[0].ID != "1" {
		t.Fatalf("unexpected results: %+v", got)
	}
	if len(gw.tokensSeen) != 1 || gw.tokensSeen[0] != "tok" {
		t.Fatalf("expected session token attached, got %v", gw.tokensSeen)
	}
}

func TestEmptyQueryClearsWithoutRequest(t *testing.T) {
	gw := newStubGateway()
	gw.postsFor["go"] = []models.Post{{ID: "1"}}
	c := NewController(gw, stubSession{})

	if err := c.SetQuery(context.Background(), "go"); err != nil {
		t.Fatalf("set query: %v", err)
	}
	if err := c.SetQuery(context.Background(), "   "); err != nil {
		t.Fatalf("clear query: %v", err)
	}

	if c.HasQuery() {
		t.Fatal("expected HasQuery false after clearing")
	}
	if len(c.Posts()) != 0 {
		t.Fatal("expected results cleared")
	}
	if len(gw.postCalls) != 1 {
		t.Fatalf("clearing must not issue a request, got %v", gw.postCalls)
	}
}

func TestModeSwitchReplacesResultsEntirely(t *testing.T) {
	gw := newStubGateway()
	gw.postsFor["ann"] = []models.Post{{ID: "1", Title: "ann's post"}}
	gw.usersFor["ann"] = []models.User{{ID: "u1", Name: "Ann"}}
	c := NewController(gw, stubSession{})
	ctx := context.Background()

	if err := c.SetQuery(ctx, "ann"); err != nil {
		t.Fatalf("set query: %v", err)
	}
	if err := c.SetMode(ctx, ModeUsers); err != nil {
		t.Fatalf("set mode: %v", err)
	}

	if len(c.Posts()) != 0 {
		t.Fatal("previous mode's results must not linger")
	}
	if got := c.Users(); len(got) != 1 || got[0].Name != "Ann" {
		t.Fatalf("expected user results after mode switch: %+v", got)
	}
	if len(gw.userCalls) != 1 || gw.userCalls[0] != "ann" {
		t.Fatalf("expected the live query re-issued, got %v", gw.userCalls)
	}
}

func TestModeSwitchWithoutQueryIssuesNothing(t *testing.T) {
	gw := newStubGateway()
	c := NewController(gw, stubSession{})

	if err := c.SetMode(context.Background(), ModeUsers); err != nil {
		t.Fatalf("set mode: %v", err)
	}
	if len(gw.userCalls) != 0 {
		t.Fatal("mode switch without a query must not fetch")
	}
	if c.Mode() != ModeUsers {
		t.Fatalf("expected mode recorded, got %v", c.Mode())
	}
}

func TestSameModeSwitchIsANoOp(t *testing.T) {
	gw := newStubGateway()
	gw.postsFor["go"] = []models.Post{{ID: "1"}}
	c := NewController(gw, stubSession{})
	ctx := context.Background()

	if err := c.SetQuery(ctx, "go"); err != nil {
		t.Fatalf("set query: %v", err)
	}
	if err := c.SetMode(ctx, ModePosts); err != nil {
		t.Fatalf("set mode: %v", err)
	}
	if len(c.Posts()) != 1 {
		t.Fatal("re-selecting the active mode must keep the results")
	}
	if len(gw.postCalls) != 1 {
		t.Fatalf("re-selecting the active mode must not refetch, got %v", gw.postCalls)
	}
}

func TestStaleResponseDiscarded(t *testing.T) {
	gw := newStubGateway()
	gw.postsFor["a"] = []models.Post{{ID: "broad"}}
	gw.postsFor["ab"] = []models.Post{{ID: "narrow"}}
	release := make(chan struct{})
	gw.holds["a"] = release
	c := NewController(gw, stubSession{})
	ctx := context.Background()

	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		close(started)
		done <- c.SetQuery(ctx, "a")
	}()
	<-started

	// wait for the slow fetch to be in flight before the next keystroke
	for {
		gw.mu.Lock()
		n := len(gw.postCalls)
		gw.mu.Unlock()
		if n == 1 {
			break
		}
		time.Sleep(time.Millisecond)
	}

	if err := c.SetQuery(ctx, "ab"); err != nil {
		t.Fatalf("second query: %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("stale query must settle without error, got %v", err)
	}

	if got := c.Posts(); len(got) != 1 || got[0].ID != "narrow" {
		t.Fatalf("late broad response must not overwrite the newer one: %+v", got)
	}
	if c.Loading() {
		t.Fatal("loading must be settled")
	}
}
