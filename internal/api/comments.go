package api

import (
	"context"
	"net/http"

	"github.com/plumefeed/plume/internal/models"
)

// PostComments returns the discussion thread for one post.
func (c *Client) PostComments(ctx context.Context, token, postID string) ([]models.Comment, error) {
	data, err := c.call(ctx, http.MethodGet, "/comment/"+postID, token, nil)
	if err != nil {
		return nil, err
	}
	return decodeList[models.Comment](payload(data, "data", "comments"))
}

// CreateComment appends a comment to a post and returns the stored record.
func (c *Client) CreateComment(ctx context.Context, token string, comment models.Comment) (models.Comment, error) {
	body := map[string]any{
		"content": comment.Content,
		"post_id": comment.PostID.String(),
		"user_id": comment.UserID,
	}
	data, err := c.call(ctx, http.MethodPost, "/comment", token, body)
	if err != nil {
		return models.Comment{}, err
	}
	return decodeOne[models.Comment](data, "data", "comment")
}

// UpdateComment replaces the content of an existing comment.
func (c *Client) UpdateComment(ctx context.Context, token string, comment models.Comment) (models.Comment, error) {
	body := map[string]string{"content": comment.Content}
	data, err := c.call(ctx, http.MethodPut, "/comment/"+comment.ID.String(), token, body)
	if err != nil {
		return models.Comment{}, err
	}
	return decodeOne[models.Comment](data, "data", "comment")
}
