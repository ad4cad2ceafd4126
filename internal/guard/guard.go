// Package guard enforces the coarse role gate in front of HTTP handlers.
// Fine-grained per-resource checks stay in the handlers themselves, which call
// the authz evaluator with the target's organization and owner.
package guard

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/deskhive/deskhive/internal/authz"
	"github.com/deskhive/deskhive/internal/platform/httpx"
	"github.com/deskhive/deskhive/internal/profiles"
	"github.com/deskhive/deskhive/internal/shared"
)

// Requirement is the minimum role a guarded route declares.
type Requirement int

const (
	// AnyAuthenticated admits every principal with a provisioned profile.
	AnyAuthenticated Requirement = iota
	// AdminOrManager admits the two management tiers.
	AdminOrManager
	// AdminOnly admits administrators exclusively.
	AdminOnly
)

func (req Requirement) satisfiedBy(role authz.Role) bool {
	switch req {
	case AnyAuthenticated:
		return role.Valid()
	case AdminOrManager:
		return role == authz.RoleAdmin || role == authz.RoleManager
	case AdminOnly:
		return role == authz.RoleAdmin
	default:
		return false
	}
}

// ProfileLoader is the slice of the profile service the guard needs.
type ProfileLoader interface {
	Load(ctx context.Context, principalID string) (*profiles.Profile, error)
}

// DenialRecorder counts rejected requests per failing rule.
type DenialRecorder interface {
	AuthzDenial(rule string)
}

// Guard wires session state, profile loading, and the role requirement.
type Guard struct {
	Profiles ProfileLoader
	Logger   *slog.Logger
	Metrics  DenialRecorder
}

// Require guards an API route. Rejections are structured JSON: 401 for a
// missing principal, 403 otherwise. Role and profile failures share the same
// generic body.
func (g Guard) Require(req Requirement) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := shared.PrincipalFromContext(r.Context())
			if principal == nil {
				g.deny(r, "unauthenticated")
				httpx.Error(w, http.StatusUnauthorized, httpx.MsgUnauthenticated)
				return
			}
			profile, err := g.Profiles.Load(r.Context(), principal.ID)
			if err != nil {
				if errors.Is(err, shared.ErrProfileMissing) {
					g.deny(r, "profile_missing")
					httpx.Error(w, http.StatusForbidden, httpx.MsgAccessDenied)
					return
				}
				g.log("load profile", r, err)
				httpx.RespondError(w, shared.ErrUpstreamUnavailable)
				return
			}
			if !req.satisfiedBy(profile.Role) {
				g.deny(r, "insufficient_role")
				httpx.Error(w, http.StatusForbidden, httpx.MsgInsufficient)
				return
			}
			next.ServeHTTP(w, r.WithContext(profiles.ContextWithProfile(r.Context(), profile)))
		})
	}
}

// RequirePage guards a page route. Page semantics redirect instead of
// answering with JSON: unauthenticated to the login form, everything else to
// the dashboard.
func (g Guard) RequirePage(req Requirement) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := shared.PrincipalFromContext(r.Context())
			if principal == nil {
				g.deny(r, "unauthenticated")
				http.Redirect(w, r, "/login", http.StatusFound)
				return
			}
			profile, err := g.Profiles.Load(r.Context(), principal.ID)
			if err != nil {
				if errors.Is(err, shared.ErrProfileMissing) {
					g.deny(r, "profile_missing")
				} else {
					g.log("load profile", r, err)
				}
				redirectSafe(w, r)
				return
			}
			if !req.satisfiedBy(profile.Role) {
				g.deny(r, "insufficient_role")
				redirectSafe(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(profiles.ContextWithProfile(r.Context(), profile)))
		})
	}
}

// redirectSafe sends the browser to the dashboard unless that is where the
// denial happened, which would loop forever.
func redirectSafe(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/dashboard" {
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

func (g Guard) deny(r *http.Request, rule string) {
	if g.Metrics != nil {
		g.Metrics.AuthzDenial(rule)
	}
	if g.Logger != nil {
		g.Logger.Warn("request denied",
			slog.String("rule", rule),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
	}
}

func (g Guard) log(msg string, r *http.Request, err error) {
	if g.Logger != nil {
		g.Logger.Error(msg, slog.String("path", r.URL.Path), slog.Any("error", err))
	}
}
