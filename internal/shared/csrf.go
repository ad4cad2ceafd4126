package shared

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"strings"
	"time"
)

const (
	// CSRFCookieName carries the signed token on the client.
	CSRFCookieName = "dh_csrf"
	// CSRFFormField is the form field name carrying the CSRF token.
	CSRFFormField = "csrf_token"
	// CSRFHeaderName is the header alternative used by API clients.
	CSRFHeaderName = "X-CSRF-Token"
)

// CSRFManager issues and verifies double-submit tokens. There is no server-side
// session store to bind tokens to, so each token is a random value signed with
// the process secret; the cookie and the form/header copy must agree.
type CSRFManager struct {
	secret []byte
	secure bool
}

// NewCSRFManager returns a CSRFManager using the provided secret key.
func NewCSRFManager(secret string, secure bool) *CSRFManager {
	return &CSRFManager{secret: []byte(secret), secure: secure}
}

// EnsureToken returns the request's existing token or mints a new one and sets
// the cookie on the response.
func (m *CSRFManager) EnsureToken(w http.ResponseWriter, r *http.Request) string {
	if cookie, err := r.Cookie(CSRFCookieName); err == nil && m.verify(cookie.Value) {
		return cookie.Value
	}
	token := m.mint()
	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteStrictMode,
		Expires:  time.Now().Add(12 * time.Hour),
	})
	return token
}

// VerifyRequest checks the submitted token against the cookie copy.
func (m *CSRFManager) VerifyRequest(r *http.Request) error {
	cookie, err := r.Cookie(CSRFCookieName)
	if err != nil || cookie.Value == "" {
		return ErrCSRFTokenMissing
	}
	submitted := r.PostFormValue(CSRFFormField)
	if submitted == "" {
		submitted = r.Header.Get(CSRFHeaderName)
	}
	if submitted == "" {
		return ErrCSRFTokenMissing
	}
	if !m.verify(cookie.Value) || !hmac.Equal([]byte(cookie.Value), []byte(submitted)) {
		return ErrCSRFTokenMismatch
	}
	return nil
}

func (m *CSRFManager) mint() string {
	nonce := make([]byte, 16)
	_, _ = rand.Read(nonce)
	encoded := base64.RawURLEncoding.EncodeToString(nonce)
	return encoded + "." + m.sign(encoded)
}

func (m *CSRFManager) verify(token string) bool {
	nonce, sig, ok := strings.Cut(token, ".")
	if !ok || nonce == "" || sig == "" {
		return false
	}
	return hmac.Equal([]byte(sig), []byte(m.sign(nonce)))
}

func (m *CSRFManager) sign(nonce string) string {
	mac := hmac.New(sha256.New, m.secret)
	_, _ = mac.Write([]byte(nonce))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
