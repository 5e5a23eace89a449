package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/plumefeed/plume/internal/models"
)

func testDraftPost() models.Post {
	return models.Post{
		Title:   "hello",
		Content: "body",
		UserID:  "u1",
		Tags:    []models.Tag{{Label: "go"}},
		Medias:  []models.Media{models.NewMedia("https://cdn/p.png", models.MediaImage)},
	}
}

func TestPostsKeyedEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/posts" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Fatalf("expected bearer token, got %q", got)
		}
		w.Write([]byte(`{"data":{"2":{"id":"p2","title":"second"},"1":{"id":"p1","title":"first"}}}`))
	}))
	defer srv.Close()

	posts, err := New(srv.URL).Posts(context.Background(), "tok")
	if err != nil {
		t.Fatalf("posts: %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("expected 2 posts got %d", len(posts))
	}
	if posts[0].ID != "p1" || posts[1].ID != "p2" {
		t.Fatalf("expected deterministic key order, got %+v", posts)
	}
}

func TestSearchPostsBareArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "go fast" {
			t.Fatalf("expected query to survive escaping, got %q", got)
		}
		w.Write([]byte(`{"posts":[{"id":1,"title":"hit"}]}`))
	}))
	defer srv.Close()

	posts, err := New(srv.URL).SearchPosts(context.Background(), "", "go fast")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(posts) != 1 || posts[0].ID != "1" {
		t.Fatalf("unexpected results: %+v", posts)
	}
}

func TestLoginNestedEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode login body: %v", err)
		}
		if body["email"] != "a@b.c" {
			t.Fatalf("unexpected body: %+v", body)
		}
		w.Write([]byte(`{"data":{"user":{"id":"u1","name":"Alice"},"token":{"accessToken":"at","refreshToken":"rt"}}}`))
	}))
	defer srv.Close()

	user, tokens, err := New(srv.URL).Login(context.Background(), "a@b.c", "pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if user.ID != "u1" || tokens.AccessToken != "at" || tokens.RefreshToken != "rt" {
		t.Fatalf("unexpected payload: %+v %+v", user, tokens)
	}
}

func TestLoginRejectedMapsToCredentialsInvalid(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, _, err := New(srv.URL).Login(context.Background(), "a@b.c", "wrong")
	if !errors.Is(err, ErrCredentialsInvalid) {
		t.Fatalf("expected ErrCredentialsInvalid got %v", err)
	}
}

func TestLoginServerFailureMapsToRemote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, _, err := New(srv.URL).Login(context.Background(), "a@b.c", "pw")
	if !errors.Is(err, ErrRemote) {
		t.Fatalf("expected ErrRemote got %v", err)
	}
}

func TestMeInvalidToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := New(srv.URL).Me(context.Background(), "stale")
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated got %v", err)
	}
}

func TestPostNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := New(srv.URL).Post(context.Background(), "", "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound got %v", err)
	}
}

func TestCreatePostEncodesMediasAndTagsAsStrings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body createPostRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode create body: %v", err)
		}
		// medias and tags travel double-encoded on this endpoint
		var medias []map[string]any
		if err := json.Unmarshal([]byte(body.Medias), &medias); err != nil {
			t.Fatalf("medias not a JSON string payload: %v", err)
		}
		var tags []map[string]any
		if err := json.Unmarshal([]byte(body.Tags), &tags); err != nil {
			t.Fatalf("tags not a JSON string payload: %v", err)
		}
		if len(medias) != 1 || len(tags) != 1 {
			t.Fatalf("unexpected payload: %+v %+v", medias, tags)
		}
		w.Write([]byte(`{"data":{"id":99,"title":"hello","user_id":"u1"}}`))
	}))
	defer srv.Close()

	post, err := New(srv.URL).CreatePost(context.Background(), "tok", testDraftPost())
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
	if post.ID != "99" {
		t.Fatalf("expected server-assigned id, got %q", post.ID)
	}
}

func TestUserBareObject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"u7","name":"Grace","followersCount":3}`))
	}))
	defer srv.Close()

	user, err := New(srv.URL).User(context.Background(), "", "u7")
	if err != nil {
		t.Fatalf("user: %v", err)
	}
	if user.ID != "u7" || user.FollowersCount != 3 {
		t.Fatalf("unexpected user: %+v", user)
	}
}

func TestIsLikedFlagShapes(t *testing.T) {
	cases := []struct {
		name string
		body string
		want bool
	}{
		{"bare bool", `true`, true},
		{"wrapped bool", `{"data":false}`, false},
		{"object flag", `{"data":{"liked":true}}`, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			got, err := New(srv.URL).IsLiked(context.Background(), "tok", "owner", "viewer")
			if err != nil {
				t.Fatalf("isLiked: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %v got %v", tc.want, got)
			}
		})
	}
}
