package orgs

import "time"

// Organization is a helpdesk tenant. Every profile and most tickets hang off
// one of these.
type Organization struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
