package api

import (
	"context"
	"net/http"

	"github.com/plumefeed/plume/internal/models"
)

// Users returns the global user directory.
func (c *Client) Users(ctx context.Context, token string) ([]models.User, error) {
	data, err := c.call(ctx, http.MethodGet, "/users", token, nil)
	if err != nil {
		return nil, err
	}
	return decodeList[models.User](payload(data, "data", "users"))
}

// User fetches a single profile by id.
func (c *Client) User(ctx context.Context, token, id string) (models.User, error) {
	data, err := c.call(ctx, http.MethodGet, "/user/"+id, token, nil)
	if err != nil {
		return models.User{}, err
	}
	return decodeOne[models.User](data, "data", "user")
}

// SearchUsers runs a query-scoped user fetch.
func (c *Client) SearchUsers(ctx context.Context, token, query string) ([]models.User, error) {
	data, err := c.call(ctx, http.MethodGet, searchPath("/users/search", query), token, nil)
	if err != nil {
		return nil, err
	}
	return decodeList[models.User](payload(data, "data", "users"))
}
