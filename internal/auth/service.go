package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/deskhive/deskhive/internal/identity"
	"github.com/deskhive/deskhive/internal/shared"
)

// Provider is the slice of the identity client the login flow needs.
type Provider interface {
	PasswordGrant(ctx context.Context, email, password string) (*shared.Principal, *identity.TokenPair, error)
	Logout(ctx context.Context, accessToken string) error
}

// Service wraps the password login flow: normalization, throttling, and the
// provider exchange.
type Service struct {
	provider Provider
	throttle *Throttle
	logger   *slog.Logger
}

// NewService constructs a Service.
func NewService(provider Provider, throttle *Throttle, logger *slog.Logger) *Service {
	return &Service{provider: provider, throttle: throttle, logger: logger}
}

// Login exchanges form credentials for a token pair.
func (s *Service) Login(ctx context.Context, email, password, ip string) (*shared.Principal, *identity.TokenPair, error) {
	normalized, err := identity.NormalizeEmail(email)
	if err != nil {
		return nil, nil, shared.ErrInvalidCredentials
	}
	if err := s.throttle.Allow(ctx, normalized, ip); err != nil {
		return nil, nil, err
	}

	principal, pair, err := s.provider.PasswordGrant(ctx, normalized, password)
	if err != nil {
		if errors.Is(err, shared.ErrInvalidCredentials) {
			s.throttle.RecordFailure(ctx, normalized, ip)
		}
		return nil, nil, err
	}
	s.throttle.Reset(ctx, normalized, ip)
	return principal, pair, nil
}

// Logout revokes the access token upstream. Best effort.
func (s *Service) Logout(ctx context.Context, accessToken string) {
	if err := s.provider.Logout(ctx, accessToken); err != nil && s.logger != nil {
		s.logger.Warn("provider logout", slog.Any("error", err))
	}
}
