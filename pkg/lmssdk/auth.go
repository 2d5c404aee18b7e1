package lmssdk

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/ministrylearn/ministrylearn/pkg/metrics"
	"github.com/ministrylearn/ministrylearn/pkg/tokenstore"
)

var errNoRefreshToken = errors.New("no refresh token stored")

// Login exchanges credentials for a token pair and stores it. The call is
// anonymous, so bad credentials come back as a 401 *APIError and leave any
// existing session alone.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	req := LoginRequest{Email: email, Password: password}
	if err := req.validate(); err != nil {
		return nil, fmt.Errorf("invalid login request: %w", err)
	}

	out, err := SendJSON[LoginResponse](ctx, c, &Request{
		Method:    http.MethodPost,
		Path:      "/auth/login",
		Body:      req,
		Anonymous: true,
	})
	if err != nil {
		return nil, err
	}

	sess := tokenstore.Session{AccessToken: out.AccessToken, RefreshToken: out.RefreshToken}
	if err := tokenstore.Save(ctx, c.store, sess); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	return &out, nil
}

// Register creates an account. It does not log in.
func (c *Client) Register(ctx context.Context, req RegisterRequest) error {
	if err := req.validate(); err != nil {
		return fmt.Errorf("invalid register request: %w", err)
	}
	return sendNoContent(ctx, c, &Request{
		Method:    http.MethodPost,
		Path:      "/auth/register",
		Body:      req,
		Anonymous: true,
	})
}

// Profile returns the current user.
func (c *Client) Profile(ctx context.Context) (*Profile, error) {
	p, err := GetJSON[Profile](ctx, c, "/auth/profile", nil)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateProfile changes the current user's profile and returns the result.
func (c *Client) UpdateProfile(ctx context.Context, upd ProfileUpdate) (*Profile, error) {
	p, err := SendJSON[Profile](ctx, c, &Request{
		Method: http.MethodPut,
		Path:   "/auth/profile",
		Body:   upd,
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Refresh exchanges the stored refresh token for a new access token outside
// of the automatic 401 path. A rejected refresh token ends the session the
// same way an automatic refresh does.
func (c *Client) Refresh(ctx context.Context) error {
	refreshToken, err := c.store.Get(ctx, tokenstore.RefreshKey)
	if err != nil {
		return err
	}
	if refreshToken == "" {
		metrics.Refreshes.WithLabelValues(metrics.RefreshNoop).Inc()
		return c.expire(ctx, errNoRefreshToken)
	}

	if _, err := c.exchange(ctx, refreshToken); err != nil {
		if errors.Is(err, ErrSessionExpired) {
			return err
		}
		return c.expire(ctx, err)
	}
	return nil
}

// Logout forgets the session locally. The API has no logout endpoint.
func (c *Client) Logout(ctx context.Context) error {
	return tokenstore.Clear(ctx, c.store)
}
