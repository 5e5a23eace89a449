// Package feed coordinates the entity caches and the optimistic mutations
// applied to them. Toggle-style mutations (like, follow) are flipped in the
// calling view before the server answers; the coordinator's job is to issue
// the request exactly once per tap, report the settled outcome so the caller
// can revert on failure, and keep the caches consistent with the server's
// authoritative responses.
package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/plumefeed/plume/internal/api"
	"github.com/plumefeed/plume/internal/cache"
	"github.com/plumefeed/plume/internal/media"
	"github.com/plumefeed/plume/internal/models"
)

// ErrToggleInFlight indicates a toggle for the same entity has not settled
// yet; the caller should ignore the tap rather than revert anything.
var ErrToggleInFlight = errors.New("toggle already in flight")

// Session exposes the current authenticated identity to the coordinator.
type Session interface {
	Current() (models.User, models.TokenPair, bool)
}

// Gateway captures the remote operations the coordinator depends on.
type Gateway interface {
	Posts(ctx context.Context, token string) ([]models.Post, error)
	UserPosts(ctx context.Context, token, userID string) ([]models.Post, error)
	Post(ctx context.Context, token, id string) (models.Post, error)
	CreatePost(ctx context.Context, token string, post models.Post) (models.Post, error)
	DeletePost(ctx context.Context, token, id string) error
	PostStats(ctx context.Context, token string) ([]models.Stat, error)

	Users(ctx context.Context, token string) ([]models.User, error)
	User(ctx context.Context, token, id string) (models.User, error)

	PostComments(ctx context.Context, token, postID string) ([]models.Comment, error)
	CreateComment(ctx context.Context, token string, comment models.Comment) (models.Comment, error)
	UpdateComment(ctx context.Context, token string, comment models.Comment) (models.Comment, error)

	LikePost(ctx context.Context, token, postID, userID string) error
	LikeUser(ctx context.Context, token, userID, likerID string) error
	Follow(ctx context.Context, token, userID, followerID string) error
	IsLiked(ctx context.Context, token, userID, likerID string) (bool, error)
	IsFollower(ctx context.Context, token, userID, followerID string) (bool, error)
	Followers(ctx context.Context, token, userID string) ([]models.User, error)
}

// Config tunes the coordinator's toggle guard.
type Config struct {
	// ToggleInterval is the minimum spacing between settled toggles for
	// one entity.
	ToggleInterval time.Duration
	// GuardTTL controls how long idle guard entries are retained.
	GuardTTL time.Duration
}

// Coordinator owns the three entity caches and every mutation against them.
type Coordinator struct {
	gateway  Gateway
	session  Session
	uploader media.Uploader
	logger   *slog.Logger
	guard    *toggleGuard

	posts    *cache.Cache[models.Post]
	users    *cache.Cache[models.User]
	comments *cache.Cache[models.Comment]

	// NowFunc stamps locally constructed drafts. Overridable in tests.
	NowFunc func() time.Time
}

// Option customises a Coordinator.
type Option func(*Coordinator)

// WithUploader enables staging of local media files to object storage before
// post submission.
func WithUploader(u media.Uploader) Option {
	return func(c *Coordinator) { c.uploader = u }
}

// WithLogger substitutes the coordinator's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCoordinator wires the coordinator over the gateway and session.
func NewCoordinator(gateway Gateway, session Session, cfg Config, opts ...Option) *Coordinator {
	if gateway == nil || session == nil {
		panic("feed: gateway and session must not be nil")
	}
	c := &Coordinator{
		gateway:  gateway,
		session:  session,
		logger:   slog.Default(),
		guard:    newToggleGuard(cfg.ToggleInterval, cfg.GuardTTL),
		posts:    cache.New(func(p models.Post) string { return p.ID.String() }),
		users:    cache.New(func(u models.User) string { return u.ID }),
		comments: cache.New(func(cm models.Comment) string { return cm.ID.String() }),
		NowFunc:  func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Posts returns the post cache.
func (c *Coordinator) Posts() *cache.Cache[models.Post] { return c.posts }

// Users returns the user cache.
func (c *Coordinator) Users() *cache.Cache[models.User] { return c.users }

// Comments returns the comment cache.
func (c *Coordinator) Comments() *cache.Cache[models.Comment] { return c.comments }

// token returns the access token when a session is active, otherwise "".
// Read operations attach it opportunistically.
func (c *Coordinator) token() string {
	_, tokens, _ := c.session.Current()
	return tokens.AccessToken
}

// viewer returns the authenticated identity or ErrUnauthenticated.
func (c *Coordinator) viewer() (models.User, string, error) {
	user, tokens, active := c.session.Current()
	if !active {
		return models.User{}, "", api.ErrUnauthenticated
	}
	return user, tokens.AccessToken, nil
}

// LoadFeed replaces the post cache with the global feed.
func (c *Coordinator) LoadFeed(ctx context.Context) error {
	return c.posts.Load(ctx, func(ctx context.Context) ([]models.Post, error) {
		return c.gateway.Posts(ctx, c.token())
	})
}

// LoadUserPosts replaces the post cache with one owner's posts. An empty
// ownerID means the current viewer.
func (c *Coordinator) LoadUserPosts(ctx context.Context, ownerID string) error {
	if ownerID == "" {
		user, _, err := c.viewer()
		if err != nil {
			return fmt.Errorf("load own posts: %w", err)
		}
		ownerID = user.ID
	}
	return c.posts.Load(ctx, func(ctx context.Context) ([]models.Post, error) {
		return c.gateway.UserPosts(ctx, c.token(), ownerID)
	})
}

// LoadPost replaces the post cache with a single post, for the detail view.
func (c *Coordinator) LoadPost(ctx context.Context, id string) error {
	return c.posts.LoadOne(ctx, func(ctx context.Context) (models.Post, error) {
		return c.gateway.Post(ctx, c.token(), id)
	})
}

// LoadUsers replaces the user cache with the global directory.
func (c *Coordinator) LoadUsers(ctx context.Context) error {
	return c.users.Load(ctx, func(ctx context.Context) ([]models.User, error) {
		return c.gateway.Users(ctx, c.token())
	})
}

// LoadUser replaces the user cache with a single profile.
func (c *Coordinator) LoadUser(ctx context.Context, id string) error {
	return c.users.LoadOne(ctx, func(ctx context.Context) (models.User, error) {
		return c.gateway.User(ctx, c.token(), id)
	})
}

// LoadComments replaces the comment cache with one post's thread.
func (c *Coordinator) LoadComments(ctx context.Context, postID string) error {
	return c.comments.Load(ctx, func(ctx context.Context) ([]models.Comment, error) {
		return c.gateway.PostComments(ctx, c.token(), postID)
	})
}

// Draft is the local, not-yet-submitted form of a post.
type Draft struct {
	Title      string
	Content    string
	TagLabels  []string
	MediaPaths []string
}

func (d Draft) validate() error {
	err := validation.Errors{
		"title":   validation.Validate(strings.TrimSpace(d.Title), validation.Required),
		"content": validation.Validate(strings.TrimSpace(d.Content), validation.Required),
	}.Filter()
	if err != nil {
		return fmt.Errorf("%w: %v", api.ErrValidation, err)
	}
	return nil
}

// CreatePost validates the draft, stages its media, submits it, and appends
// the server's response to the post cache. Validation failures surface as
// api.ErrValidation before any network traffic. On any failure nothing is
// appended and the caller should retain the draft for resubmission.
func (c *Coordinator) CreatePost(ctx context.Context, draft Draft) (models.Post, error) {
	if err := draft.validate(); err != nil {
		return models.Post{}, err
	}

	user, token, err := c.viewer()
	if err != nil {
		return models.Post{}, fmt.Errorf("create post: %w", err)
	}

	attachments, err := media.Stage(ctx, c.uploaderFor(user.ID), draft.MediaPaths)
	if err != nil {
		return models.Post{}, fmt.Errorf("create post: %w", err)
	}

	post := models.Post{
		Title:     strings.TrimSpace(draft.Title),
		Content:   strings.TrimSpace(draft.Content),
		UserID:    user.ID,
		Tags:      models.NormalizeTags(draft.TagLabels),
		Medias:    attachments,
		CreatedAt: c.NowFunc(),
	}

	created, err := c.gateway.CreatePost(ctx, token, post)
	if err != nil {
		return models.Post{}, err
	}

	c.posts.InsertLocal(created)
	return created, nil
}

func (c *Coordinator) uploaderFor(userID string) media.Uploader {
	if c.uploader == nil {
		return nil
	}
	return &media.PrefixedUploader{Prefix: userID, Base: c.uploader}
}

// DeletePost removes a post remotely and drops it from the cache.
func (c *Coordinator) DeletePost(ctx context.Context, id string) error {
	_, token, err := c.viewer()
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if err := c.gateway.DeletePost(ctx, token, id); err != nil {
		return err
	}
	c.posts.RemoveLocal(id)
	return nil
}

// AddComment validates and submits a comment, appending the server's
// response to the comment cache. On failure the caller keeps the input for
// retry.
func (c *Coordinator) AddComment(ctx context.Context, postID, content string) (models.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return models.Comment{}, fmt.Errorf("%w: comment content is required", api.ErrValidation)
	}

	user, token, err := c.viewer()
	if err != nil {
		return models.Comment{}, fmt.Errorf("add comment: %w", err)
	}

	comment := models.Comment{
		Content:   content,
		PostID:    models.FlexID(postID),
		UserID:    user.ID,
		CreatedAt: c.NowFunc(),
	}

	created, err := c.gateway.CreateComment(ctx, token, comment)
	if err != nil {
		return models.Comment{}, err
	}

	c.comments.InsertLocal(created)
	return created, nil
}

// UpdateComment replaces a comment's content remotely and in the cache.
func (c *Coordinator) UpdateComment(ctx context.Context, commentID, content string) (models.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return models.Comment{}, fmt.Errorf("%w: comment content is required", api.ErrValidation)
	}

	_, token, err := c.viewer()
	if err != nil {
		return models.Comment{}, fmt.Errorf("update comment: %w", err)
	}

	updated, err := c.gateway.UpdateComment(ctx, token, models.Comment{
		ID:      models.FlexID(commentID),
		Content: content,
	})
	if err != nil {
		return models.Comment{}, err
	}

	c.comments.ReplaceLocal(updated)
	return updated, nil
}

// toggle guards and issues one toggle request. A nil return means the server
// accepted the flip; any error means the caller must revert its optimistic
// local state (except ErrToggleInFlight, where nothing was flipped remotely).
func (c *Coordinator) toggle(key string, send func(token, viewerID string) error) error {
	user, token, err := c.viewer()
	if err != nil {
		return err
	}

	if !c.guard.tryAcquire(key) {
		return ErrToggleInFlight
	}
	defer c.guard.release(key)

	return send(token, user.ID)
}

// ToggleLikePost flips the viewer's like on a post.
func (c *Coordinator) ToggleLikePost(ctx context.Context, postID string) error {
	return c.toggle("post-like:"+postID, func(token, viewerID string) error {
		return c.gateway.LikePost(ctx, token, postID, viewerID)
	})
}

// ToggleLikeUser flips the viewer's like on a profile.
func (c *Coordinator) ToggleLikeUser(ctx context.Context, userID string) error {
	return c.toggle("user-like:"+userID, func(token, viewerID string) error {
		return c.gateway.LikeUser(ctx, token, userID, viewerID)
	})
}

// ToggleFollow flips the viewer's follow edge toward a profile.
func (c *Coordinator) ToggleFollow(ctx context.Context, userID string) error {
	return c.toggle("follow:"+userID, func(token, viewerID string) error {
		return c.gateway.Follow(ctx, token, userID, viewerID)
	})
}

// IsLikedByMe reports whether the viewer currently likes the given profile.
func (c *Coordinator) IsLikedByMe(ctx context.Context, ownerID string) (bool, error) {
	user, token, err := c.viewer()
	if err != nil {
		return false, err
	}
	return c.gateway.IsLiked(ctx, token, ownerID, user.ID)
}

// IsFollowedByMe reports whether the viewer currently follows the given
// profile.
func (c *Coordinator) IsFollowedByMe(ctx context.Context, ownerID string) (bool, error) {
	user, token, err := c.viewer()
	if err != nil {
		return false, err
	}
	return c.gateway.IsFollower(ctx, token, ownerID, user.ID)
}

// FollowersOf lists the users following a profile.
func (c *Coordinator) FollowersOf(ctx context.Context, userID string) ([]models.User, error) {
	return c.gateway.Followers(ctx, c.token(), userID)
}

// Stats fetches the posting-activity histogram.
func (c *Coordinator) Stats(ctx context.Context) ([]models.Stat, error) {
	return c.gateway.PostStats(ctx, c.token())
}
