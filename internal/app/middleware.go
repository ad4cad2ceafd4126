package app

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"

	"github.com/deskhive/deskhive/internal/identity"
	"github.com/deskhive/deskhive/internal/observability"
	"github.com/deskhive/deskhive/internal/shared"
)

// MiddlewareConfig aggregates dependencies shared by the middleware stack.
type MiddlewareConfig struct {
	Logger      *slog.Logger
	Config      *Config
	Resolver    identity.Resolver
	CSRFManager *shared.CSRFManager
	Metrics     *observability.Metrics
}

// Public paths reachable without a session. Auth pages are listed separately
// because an authenticated user must never see them.
var (
	publicPaths = map[string]struct{}{
		"/":                      {},
		"/healthz":               {},
		"/metrics":               {},
		"/registration-disabled": {},
		"/auth/callback":         {},
	}
	authPages = map[string]struct{}{
		"/login":    {},
		"/register": {},
	}
)

func isStaticAsset(path string) bool {
	return strings.HasPrefix(path, "/static/") || path == "/favicon.ico" || path == "/robots.txt"
}

func isPublicPath(path string) bool {
	if _, ok := publicPaths[path]; ok {
		return true
	}
	_, ok := authPages[path]
	return ok
}

func isAuthPage(path string) bool {
	_, ok := authPages[path]
	return ok
}

func isAPIPath(path string) bool {
	return strings.HasPrefix(path, "/api/")
}

// SessionGate classifies the request path and resolves the session before any
// handler runs. Exactly one resolver call per request, no retries; rotated
// credentials are flushed to the response on every outcome, redirects included.
func SessionGate(cfg MiddlewareConfig) func(http.Handler) http.Handler {
	secureCookies := cfg.Config != nil && cfg.Config.IsProduction()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path
			if isStaticAsset(path) {
				next.ServeHTTP(w, r)
				return
			}

			creds := identity.ReadCredentials(r)
			var principal *shared.Principal
			if !creds.Empty() {
				resolved, pair, err := cfg.Resolver.Refresh(r.Context(), creds)
				if pair != nil {
					identity.WriteTokenPair(w, pair, secureCookies)
				}
				if err != nil {
					if r.Context().Err() != nil {
						return
					}
					if cfg.Logger != nil {
						cfg.Logger.Warn("session resolution failed",
							slog.String("rule", "unauthenticated"),
							slog.String("path", path),
						)
					}
				} else {
					principal = resolved
				}
			}

			if principal == nil {
				if isPublicPath(path) {
					next.ServeHTTP(w, r)
					return
				}
				if isAPIPath(path) {
					// API semantics: the route guard answers with a
					// structured 401 instead of a redirect.
					next.ServeHTTP(w, r)
					return
				}
				if cfg.Metrics != nil {
					cfg.Metrics.AuthzDenial("unauthenticated")
				}
				http.Redirect(w, r, "/login", http.StatusFound)
				return
			}

			if isAuthPage(path) {
				http.Redirect(w, r, "/dashboard", http.StatusFound)
				return
			}

			ctx := shared.ContextWithPrincipal(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// MiddlewareStack installs the Deskhive middleware chain.
func MiddlewareStack(cfg MiddlewareConfig) []func(http.Handler) http.Handler {
	secureMiddleware := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		FeaturePolicy:         "none",
		ContentSecurityPolicy: "default-src 'self'",
		SSLRedirect:           cfg.Config != nil && cfg.Config.IsProduction(),
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
	})

	csrfMiddleware := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			if err := cfg.CSRFManager.VerifyRequest(r); err != nil {
				if cfg.Logger != nil {
					cfg.Logger.Warn("csrf validation failed", slog.String("path", r.URL.Path))
				}
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}

	timeout := 30 * time.Second
	if cfg.Config != nil && cfg.Config.AppRequestTimeout > 0 {
		timeout = cfg.Config.AppRequestTimeout
	}

	middlewares := []func(http.Handler) http.Handler{
		middleware.RealIP,
		middleware.RequestID,
		middleware.Recoverer,
		middleware.Timeout(timeout),
		func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if err := secureMiddleware.Process(w, r); err != nil {
					if cfg.Logger != nil {
						cfg.Logger.Warn("secure headers blocked request", slog.Any("error", err))
					}
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
					return
				}
				next.ServeHTTP(w, r)
			})
		},
		middleware.Compress(5),
		httprate.Limit(120, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)),
		SessionGate(cfg),
		csrfMiddleware,
	}
	if cfg.Metrics != nil {
		middlewares = append(middlewares, func(next http.Handler) http.Handler {
			return cfg.Metrics.Middleware(next)
		})
	}
	return middlewares
}
