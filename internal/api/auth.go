package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/plumefeed/plume/internal/models"
)

type authPayload struct {
	User  models.User      `json:"user"`
	Token models.TokenPair `json:"token"`
}

func decodeAuth(raw []byte) (models.User, models.TokenPair, error) {
	var body authPayload
	if err := json.Unmarshal(payload(raw, "data"), &body); err != nil {
		return models.User{}, models.TokenPair{}, fmt.Errorf("decode auth response: %w", err)
	}
	return body.User, body.Token, nil
}

// Login exchanges credentials for a user identity and token pair. A 4xx
// rejection maps to ErrCredentialsInvalid; 5xx and transport failures map to
// ErrRemote so callers can message the two outcomes differently.
func (c *Client) Login(ctx context.Context, email, password string) (models.User, models.TokenPair, error) {
	body := map[string]string{"email": email, "password": password}
	status, data, err := c.request(ctx, http.MethodPost, "/login", "", body)
	if err != nil {
		return models.User{}, models.TokenPair{}, err
	}
	if status >= 400 && status < 500 {
		return models.User{}, models.TokenPair{}, fmt.Errorf("login: %w", ErrCredentialsInvalid)
	}
	if err := classify(status, data, http.MethodPost, "/login"); err != nil {
		return models.User{}, models.TokenPair{}, err
	}
	return decodeAuth(data)
}

// Register provisions a new identity and returns it with a token pair.
// Status mapping matches Login.
func (c *Client) Register(ctx context.Context, name, email, password string) (models.User, models.TokenPair, error) {
	body := map[string]string{"name": name, "email": email, "password": password}
	status, data, err := c.request(ctx, http.MethodPost, "/register", "", body)
	if err != nil {
		return models.User{}, models.TokenPair{}, err
	}
	if status >= 400 && status < 500 {
		return models.User{}, models.TokenPair{}, fmt.Errorf("register: %w", ErrCredentialsInvalid)
	}
	if err := classify(status, data, http.MethodPost, "/register"); err != nil {
		return models.User{}, models.TokenPair{}, err
	}
	return decodeAuth(data)
}

// Me fetches the profile of the token's owner. An invalid or expired token
// yields ErrUnauthenticated.
func (c *Client) Me(ctx context.Context, token string) (models.User, error) {
	data, err := c.call(ctx, http.MethodGet, "/moi", token, nil)
	if err != nil {
		return models.User{}, err
	}
	return decodeOne[models.User](data, "data", "user")
}

// Logout notifies the service that the session ended. Best effort; callers
// treat failures as non-fatal.
func (c *Client) Logout(ctx context.Context, token string) error {
	_, err := c.call(ctx, http.MethodPost, "/logout", token, nil)
	return err
}

// UpdateUser changes the authenticated user's name and email and returns the
// refreshed identity.
func (c *Client) UpdateUser(ctx context.Context, token, id, name, email string) (models.User, error) {
	body := map[string]string{"username": name, "email": email}
	data, err := c.call(ctx, http.MethodPut, "/update_user/"+id, token, body)
	if err != nil {
		return models.User{}, err
	}
	return decodeOne[models.User](data, "data", "user")
}
