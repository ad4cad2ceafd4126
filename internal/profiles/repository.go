package profiles

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/deskhive/deskhive/internal/authz"
	"github.com/deskhive/deskhive/internal/shared"
)

// RepositoryPort defines data access methods for profiles.
type RepositoryPort interface {
	GetByID(ctx context.Context, id string) (*Profile, error)
	Create(ctx context.Context, p *Profile) error
	Update(ctx context.Context, id, fullName, avatarURL string) error
	UpdateRole(ctx context.Context, id string, role authz.Role) error
	List(ctx context.Context, scope authz.OrgScope, limit, offset int) ([]Profile, int, error)
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetByID loads one profile. A missing row maps to shared.ErrProfileMissing,
// never to a fabricated default profile.
func (r *Repository) GetByID(ctx context.Context, id string) (*Profile, error) {
	var (
		p    Profile
		role string
	)
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, role, organization_id, full_name, avatar_url, created_at, updated_at FROM profiles WHERE id = $1`,
		id,
	).Scan(&p.ID, &p.Email, &role, &p.OrganizationID, &p.FullName, &p.AvatarURL, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrProfileMissing
		}
		return nil, err
	}
	p.Role = authz.ParseRole(role)
	return &p, nil
}

// Create inserts a profile row alongside account provisioning.
func (r *Repository) Create(ctx context.Context, p *Profile) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO profiles (id, email, role, organization_id, full_name, avatar_url, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())`,
		p.ID, p.Email, p.Role.String(), p.OrganizationID, p.FullName, p.AvatarURL,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return shared.ErrDuplicate
		}
		return err
	}
	return nil
}

// Update mutates display metadata only; role changes go through UpdateRole.
func (r *Repository) Update(ctx context.Context, id, fullName, avatarURL string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE profiles SET full_name = $2, avatar_url = $3, updated_at = NOW() WHERE id = $1`,
		id, fullName, avatarURL,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrProfileMissing
	}
	return nil
}

// UpdateRole changes a profile's privilege tier.
func (r *Repository) UpdateRole(ctx context.Context, id string, role authz.Role) error {
	if !role.Valid() {
		return shared.ErrValidation
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE profiles SET role = $2, updated_at = NOW() WHERE id = $1`,
		id, role.String(),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrProfileMissing
	}
	return nil
}

// List returns profiles visible under the given organization scope with the
// total row count for pagination.
func (r *Repository) List(ctx context.Context, scope authz.OrgScope, limit, offset int) ([]Profile, int, error) {
	where := ``
	args := []any{}
	if !scope.All {
		if len(scope.IDs) == 0 {
			return nil, 0, nil
		}
		where = `WHERE organization_id = ANY($1)`
		args = append(args, scope.IDs)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM profiles `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT id, email, role, organization_id, full_name, avatar_url, created_at, updated_at FROM profiles ` + where
	if scope.All {
		query += ` ORDER BY created_at DESC LIMIT $1 OFFSET $2`
		args = append(args, limit, offset)
	} else {
		query += ` ORDER BY created_at DESC LIMIT $2 OFFSET $3`
		args = append(args, limit, offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Profile
	for rows.Next() {
		var (
			p    Profile
			role string
		)
		if err := rows.Scan(&p.ID, &p.Email, &role, &p.OrganizationID, &p.FullName, &p.AvatarURL, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, err
		}
		p.Role = authz.ParseRole(role)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

var _ RepositoryPort = (*Repository)(nil)
