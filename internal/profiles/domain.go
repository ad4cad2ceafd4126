package profiles

import (
	"time"

	"github.com/deskhive/deskhive/internal/authz"
)

// Profile is the application-level record attached to a provider principal.
// A principal without one is treated as unauthenticated everywhere except the
// who-am-I endpoint.
type Profile struct {
	ID             string
	Email          string
	Role           authz.Role
	OrganizationID *string
	FullName       string
	AvatarURL      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
