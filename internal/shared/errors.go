package shared

import "errors"

var (
	// ErrUnauthenticated indicates the request carried no valid session.
	ErrUnauthenticated = errors.New("user not authenticated")
	// ErrProfileMissing indicates a valid session whose account has not been
	// provisioned with an application profile yet.
	ErrProfileMissing = errors.New("profile not provisioned")
	// ErrInsufficientRole indicates the profile's role does not meet the
	// declared requirement.
	ErrInsufficientRole = errors.New("insufficient role")
	// ErrCrossTenantDenied indicates a role-sufficient principal touching a
	// resource outside its organization partition.
	ErrCrossTenantDenied = errors.New("cross-tenant access denied")
	// ErrUpstreamUnavailable indicates the identity provider or data store
	// could not be reached in time.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate indicates a uniqueness violation.
	ErrDuplicate = errors.New("duplicate entry")
	// ErrValidation indicates rejected input.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrTooManyAttempts indicates the login throttle tripped.
	ErrTooManyAttempts = errors.New("too many login attempts")

	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)
