package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/plumefeed/plume/internal/models"
)

// LikePost toggles the viewer's like on a post. Each call flips the
// server-side state: callers must guard against accidental double sends.
func (c *Client) LikePost(ctx context.Context, token, postID, userID string) error {
	body := map[string]string{"user_id": userID}
	_, err := c.call(ctx, http.MethodPost, "/like_post/"+postID, token, body)
	return err
}

// LikeUser toggles the viewer's like on a profile.
func (c *Client) LikeUser(ctx context.Context, token, userID, likerID string) error {
	body := map[string]string{"liker_id": likerID}
	_, err := c.call(ctx, http.MethodPost, "/like_user/"+userID, token, body)
	return err
}

// Follow toggles the viewer's follow edge toward a profile.
func (c *Client) Follow(ctx context.Context, token, userID, followerID string) error {
	body := map[string]string{"follower_id": followerID}
	_, err := c.call(ctx, http.MethodPost, "/follow/"+userID, token, body)
	return err
}

// PostLikes returns the users who liked a post.
func (c *Client) PostLikes(ctx context.Context, token, postID string) ([]models.User, error) {
	data, err := c.call(ctx, http.MethodGet, "/like_post/"+postID, token, nil)
	if err != nil {
		return nil, err
	}
	return decodeList[models.User](payload(data, "data", "likes"))
}

// UserLikes returns the users who liked a profile.
func (c *Client) UserLikes(ctx context.Context, token, userID string) ([]models.User, error) {
	data, err := c.call(ctx, http.MethodGet, "/like_user/"+userID, token, nil)
	if err != nil {
		return nil, err
	}
	return decodeList[models.User](payload(data, "data", "likes"))
}

// Followers returns the users following a profile.
func (c *Client) Followers(ctx context.Context, token, userID string) ([]models.User, error) {
	data, err := c.call(ctx, http.MethodGet, "/follower/"+userID, token, nil)
	if err != nil {
		return nil, err
	}
	return decodeList[models.User](payload(data, "data", "followers"))
}

func decodeBool(raw []byte) (bool, error) {
	var flag bool
	if err := json.Unmarshal(payload(raw, "data"), &flag); err == nil {
		return flag, nil
	}
	var body struct {
		Liked    *bool `json:"liked"`
		Follower *bool `json:"follower"`
	}
	if err := json.Unmarshal(payload(raw, "data"), &body); err != nil {
		return false, fmt.Errorf("decode membership response: %w", err)
	}
	if body.Liked != nil {
		return *body.Liked, nil
	}
	if body.Follower != nil {
		return *body.Follower, nil
	}
	return false, nil
}

// IsLiked reports whether likerID currently likes the given profile.
func (c *Client) IsLiked(ctx context.Context, token, userID, likerID string) (bool, error) {
	body := map[string]string{"user_id": userID, "liker_id": likerID}
	data, err := c.call(ctx, http.MethodPost, "/isLiked/"+userID, token, body)
	if err != nil {
		return false, err
	}
	return decodeBool(data)
}

// IsFollower reports whether followerID currently follows the given profile.
func (c *Client) IsFollower(ctx context.Context, token, userID, followerID string) (bool, error) {
	body := map[string]string{"user_id": userID, "follower_id": followerID}
	data, err := c.call(ctx, http.MethodPost, "/isFollower/"+userID, token, body)
	if err != nil {
		return false, err
	}
	return decodeBool(data)
}

// RecordView registers that userID viewed a post. The endpoint is
// unauthenticated on the wire; the token is still attached when present.
func (c *Client) RecordView(ctx context.Context, token, postID, userID string) error {
	body := map[string]string{"user_id": userID}
	_, err := c.call(ctx, http.MethodPost, "/view_post/"+postID, token, body)
	return err
}
