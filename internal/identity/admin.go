package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/deskhive/deskhive/internal/shared"
)

// Admin performs provider operations that require the service-role key. It is
// only ever constructed inside admin-gated handlers; the key must not be
// reachable from any other code path.
type Admin struct {
	baseURL    string
	serviceKey string
	http       *http.Client
}

// NewAdmin constructs an Admin client.
func NewAdmin(baseURL, serviceKey string, timeout time.Duration) *Admin {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Admin{
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
		http:       &http.Client{Timeout: timeout},
	}
}

// ResetPassword sets a new password for the given provider user.
func (a *Admin) ResetPassword(ctx context.Context, userID, newPassword string) error {
	if userID == "" || newPassword == "" {
		return shared.ErrValidation
	}
	payload, err := json.Marshal(map[string]string{"password": newPassword})
	if err != nil {
		return err
	}
	endpoint := a.baseURL + "/admin/users/" + url.PathEscape(userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", a.serviceKey)
	req.Header.Set("Authorization", "Bearer "+a.serviceKey)

	res, err := a.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrUpstreamUnavailable, err)
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		return nil
	case http.StatusNotFound:
		return shared.ErrNotFound
	default:
		return fmt.Errorf("%w: admin reset password status %d", shared.ErrUpstreamUnavailable, res.StatusCode)
	}
}

// CreateUser provisions a provider account and returns its id. Used by the
// admin/manager user management flow; the application profile row is created
// separately.
func (a *Admin) CreateUser(ctx context.Context, email, password string) (string, error) {
	if email == "" || password == "" {
		return "", shared.ErrValidation
	}
	payload, err := json.Marshal(map[string]any{
		"email":         email,
		"password":      password,
		"email_confirm": true,
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/admin/users", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", a.serviceKey)
	req.Header.Set("Authorization", "Bearer "+a.serviceKey)

	res, err := a.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", shared.ErrUpstreamUnavailable, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK && res.StatusCode != http.StatusCreated {
		if res.StatusCode == http.StatusUnprocessableEntity || res.StatusCode == http.StatusConflict {
			return "", shared.ErrDuplicate
		}
		return "", fmt.Errorf("%w: admin create user status %d", shared.ErrUpstreamUnavailable, res.StatusCode)
	}
	var user userPayload
	if err := json.NewDecoder(res.Body).Decode(&user); err != nil || user.ID == "" {
		return "", fmt.Errorf("%w: malformed admin response", shared.ErrUpstreamUnavailable)
	}
	return user.ID, nil
}
