package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/deskhive/deskhive/internal/shared"
)

// Client talks to the identity provider's REST surface using the anonymous
// key. Admin-level operations live on Admin and use the service-role key.
type Client struct {
	baseURL string
	anonKey string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient constructs a Client. timeout bounds every provider round trip so
// the request gate can never hang on an unresponsive upstream.
func NewClient(baseURL, anonKey string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		anonKey: anonKey,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type userPayload struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type tokenResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	ExpiresIn    int         `json:"expires_in"`
	User         userPayload `json:"user"`
}

// Resolve validates the access token with the provider. Every failure mode
// short of context cancellation degrades to unauthenticated; transport-level
// failures are tagged ErrUpstreamUnavailable so the caller can log the
// distinction, but both deny in exactly the same way.
func (c *Client) Resolve(ctx context.Context, creds Credentials) (*shared.Principal, error) {
	if creds.AccessToken == "" {
		return nil, shared.ErrUnauthenticated
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/user", nil)
	if err != nil {
		return nil, shared.ErrUnauthenticated
	}
	c.decorate(req, creds.AccessToken)

	res, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %w", shared.ErrUpstreamUnavailable, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, shared.ErrUnauthenticated
	}
	var user userPayload
	if err := json.NewDecoder(res.Body).Decode(&user); err != nil || user.ID == "" {
		return nil, shared.ErrUnauthenticated
	}
	return &shared.Principal{ID: user.ID, Email: user.Email}, nil
}

// Refresh resolves the credentials, rotating the token pair when the access
// token no longer validates but a refresh token is present.
func (c *Client) Refresh(ctx context.Context, creds Credentials) (*shared.Principal, *TokenPair, error) {
	principal, err := c.Resolve(ctx, creds)
	if err == nil {
		return principal, nil, nil
	}
	if !errors.Is(err, shared.ErrUnauthenticated) || creds.RefreshToken == "" {
		return nil, nil, err
	}

	token, err := c.grant(ctx, "refresh_token", map[string]string{"refresh_token": creds.RefreshToken})
	if err != nil {
		return nil, nil, err
	}
	pair := &TokenPair{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresIn:    token.ExpiresIn,
	}
	return &shared.Principal{ID: token.User.ID, Email: token.User.Email}, pair, nil
}

// PasswordGrant exchanges login form credentials for a token pair.
func (c *Client) PasswordGrant(ctx context.Context, email, password string) (*shared.Principal, *TokenPair, error) {
	token, err := c.grant(ctx, "password", map[string]string{"email": email, "password": password})
	if err != nil {
		if errors.Is(err, shared.ErrUnauthenticated) {
			return nil, nil, shared.ErrInvalidCredentials
		}
		return nil, nil, err
	}
	pair := &TokenPair{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresIn:    token.ExpiresIn,
	}
	return &shared.Principal{ID: token.User.ID, Email: token.User.Email}, pair, nil
}

// Logout revokes the token upstream. Best effort: a failure only means the
// token dies by expiry instead.
func (c *Client) Logout(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/logout", nil)
	if err != nil {
		return err
	}
	c.decorate(req, accessToken)
	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrUpstreamUnavailable, err)
	}
	defer res.Body.Close()
	return nil
}

func (c *Client) grant(ctx context.Context, grantType string, body map[string]string) (*tokenResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	endpoint := c.baseURL + "/token?grant_type=" + url.QueryEscape(grantType)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	c.decorate(req, "")

	res, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %w", shared.ErrUpstreamUnavailable, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		if c.logger != nil && res.StatusCode >= http.StatusInternalServerError {
			c.logger.Warn("identity grant failed", slog.String("grant", grantType), slog.Int("status", res.StatusCode))
		}
		return nil, shared.ErrUnauthenticated
	}
	var token tokenResponse
	if err := json.NewDecoder(res.Body).Decode(&token); err != nil {
		return nil, shared.ErrUnauthenticated
	}
	if token.AccessToken == "" || token.User.ID == "" {
		return nil, shared.ErrUnauthenticated
	}
	return &token, nil
}

func (c *Client) decorate(req *http.Request, bearer string) {
	req.Header.Set("apikey", c.anonKey)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
}

var _ Resolver = (*Client)(nil)
