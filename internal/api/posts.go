package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/plumefeed/plume/internal/models"
)

// Posts returns the global feed.
func (c *Client) Posts(ctx context.Context, token string) ([]models.Post, error) {
	data, err := c.call(ctx, http.MethodGet, "/posts", token, nil)
	if err != nil {
		return nil, err
	}
	return decodeList[models.Post](payload(data, "data", "posts"))
}

// UserPosts returns the posts owned by one user.
func (c *Client) UserPosts(ctx context.Context, token, userID string) ([]models.Post, error) {
	data, err := c.call(ctx, http.MethodGet, "/posts/"+userID, token, nil)
	if err != nil {
		return nil, err
	}
	return decodeList[models.Post](payload(data, "data", "posts"))
}

// Post fetches a single post by id.
func (c *Client) Post(ctx context.Context, token, id string) (models.Post, error) {
	data, err := c.call(ctx, http.MethodGet, "/post/"+id, token, nil)
	if err != nil {
		return models.Post{}, err
	}
	return decodeOne[models.Post](data, "post", "data")
}

// SearchPosts runs a query-scoped post fetch.
func (c *Client) SearchPosts(ctx context.Context, token, query string) ([]models.Post, error) {
	data, err := c.call(ctx, http.MethodGet, searchPath("/posts/search", query), token, nil)
	if err != nil {
		return nil, err
	}
	return decodeList[models.Post](payload(data, "posts", "data"))
}

// createPostRequest mirrors the service's creation payload. Medias and tags
// travel as JSON-encoded strings inside the JSON body; that is the wire
// contract, not an accident, and it is confined to this file.
type createPostRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	UserID  string `json:"user_id"`
	Medias  string `json:"medias"`
	Tags    string `json:"tags"`
}

// CreatePost submits a draft and returns the stored post with its
// server-assigned id.
func (c *Client) CreatePost(ctx context.Context, token string, post models.Post) (models.Post, error) {
	medias, err := json.Marshal(post.Medias)
	if err != nil {
		return models.Post{}, fmt.Errorf("encode medias: %w", err)
	}
	tags, err := json.Marshal(post.Tags)
	if err != nil {
		return models.Post{}, fmt.Errorf("encode tags: %w", err)
	}

	body := createPostRequest{
		Title:   post.Title,
		Content: post.Content,
		UserID:  post.UserID,
		Medias:  string(medias),
		Tags:    string(tags),
	}

	data, err := c.call(ctx, http.MethodPost, "/post", token, body)
	if err != nil {
		return models.Post{}, err
	}
	return decodeOne[models.Post](data, "post", "data")
}

// DeletePost removes a post owned by the authenticated user.
func (c *Client) DeletePost(ctx context.Context, token, id string) error {
	_, err := c.call(ctx, http.MethodDelete, "/post/"+id, token, nil)
	return err
}

// PostStats returns the posting-activity histogram.
func (c *Client) PostStats(ctx context.Context, token string) ([]models.Stat, error) {
	data, err := c.call(ctx, http.MethodGet, "/post/stat", token, nil)
	if err != nil {
		return nil, err
	}
	return decodeList[models.Stat](payload(data, "data"))
}
