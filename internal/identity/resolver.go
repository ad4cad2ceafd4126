// Package identity adapts the external identity provider to the session
// resolver contract: given request credentials, return a principal or nothing,
// possibly emitting rotated credential material for the caller to persist.
package identity

import (
	"context"
	"net/http"
	"time"

	"github.com/deskhive/deskhive/internal/shared"
)

const (
	// AccessCookie carries the short-lived access token.
	AccessCookie = "dh_access_token"
	// RefreshCookie carries the rotation token.
	RefreshCookie = "dh_refresh_token"
)

// Credentials is the raw material extracted from an inbound request.
type Credentials struct {
	AccessToken  string
	RefreshToken string
}

// Empty reports whether the request carried no credential material at all.
func (c Credentials) Empty() bool {
	return c.AccessToken == "" && c.RefreshToken == ""
}

// TokenPair is rotated credential material issued by the provider. Whenever a
// resolver call returns one, it must be flushed to the response on every path,
// including early-return redirects.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int
}

// Resolver validates request credentials against the identity provider.
// Resolve is read-only and idempotent. Refresh may rotate the token pair.
// Both degrade to shared.ErrUnauthenticated on any resolution failure; they
// never return a stale principal.
type Resolver interface {
	Resolve(ctx context.Context, creds Credentials) (*shared.Principal, error)
	Refresh(ctx context.Context, creds Credentials) (*shared.Principal, *TokenPair, error)
}

// ReadCredentials extracts the cookie pair from a request.
func ReadCredentials(r *http.Request) Credentials {
	var creds Credentials
	if c, err := r.Cookie(AccessCookie); err == nil {
		creds.AccessToken = c.Value
	}
	if c, err := r.Cookie(RefreshCookie); err == nil {
		creds.RefreshToken = c.Value
	}
	return creds
}

// WriteTokenPair sets the rotated cookie pair. Both cookies are written
// together so a half-rotated pair never reaches the client.
func WriteTokenPair(w http.ResponseWriter, pair *TokenPair, secure bool) {
	if pair == nil {
		return
	}
	expiry := time.Now().Add(time.Duration(pair.ExpiresIn) * time.Second)
	http.SetCookie(w, &http.Cookie{
		Name:     AccessCookie,
		Value:    pair.AccessToken,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  expiry,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookie,
		Value:    pair.RefreshToken,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(30 * 24 * time.Hour),
	})
}

// ClearCredentials expires both cookies.
func ClearCredentials(w http.ResponseWriter, secure bool) {
	for _, name := range []string{AccessCookie, RefreshCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}
