package client

import (
	"context"
	"fmt"

	"github.com/donaldgifford/auto-marketplace/internal/session"
	domain "github.com/donaldgifford/auto-marketplace/pkg/types"
)

// Register creates a new account. It does not sign in.
func (c *Client) Register(ctx context.Context, r *domain.Registration) error {
	return c.post(ctx, "/users/register/", r, nil)
}

// Login exchanges credentials for tokens and stores them.
func (c *Client) Login(ctx context.Context, creds domain.Credentials) (*domain.LoginResponse, error) {
	var resp domain.LoginResponse
	if err := c.post(ctx, "/users/login/", creds, &resp); err != nil {
		return nil, err
	}
	if c.creds != nil {
		user := resp.User
		if err := c.creds.Save(session.Credentials{
			Token:        resp.Access,
			RefreshToken: resp.Refresh,
			User:         &user,
		}); err != nil {
			return nil, fmt.Errorf("storing credentials: %w", err)
		}
	}
	return &resp, nil
}

// Logout blacklists the refresh token on the server when possible and
// always clears the local credentials. A server-side failure is logged,
// not returned, so a user can always sign out locally.
func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken != "" && c.token() != "" {
		body := map[string]string{"refresh": refreshToken}
		if err := c.post(ctx, "/users/logout/", body, nil); err != nil {
			c.log.Warn("server logout failed", "err", err)
		}
	}
	if c.creds == nil {
		return nil
	}
	return c.creds.Clear()
}

// Profile returns the signed-in user's profile.
func (c *Client) Profile(ctx context.Context) (*domain.User, error) {
	if err := c.requireToken(); err != nil {
		return nil, err
	}
	var u domain.User
	if err := c.get(ctx, "/users/profile/", &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateProfile updates the signed-in user's profile fields.
func (c *Client) UpdateProfile(ctx context.Context, u *domain.User) (*domain.User, error) {
	if err := c.requireToken(); err != nil {
		return nil, err
	}
	var updated domain.User
	if err := c.put(ctx, "/users/profile/", u, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}
