package tickets

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/deskhive/deskhive/internal/authz"
	"github.com/deskhive/deskhive/internal/platform/db"
	"github.com/deskhive/deskhive/internal/shared"
)

// RepositoryPort defines persistence operations for tickets.
type RepositoryPort interface {
	GetByID(ctx context.Context, id string) (*Ticket, error)
	List(ctx context.Context, scope authz.OrgScope, limit, offset int) ([]Ticket, int, error)
	Create(ctx context.Context, t *Ticket) error
	Update(ctx context.Context, t *Ticket) error
	Delete(ctx context.Context, id string) error
	Assign(ctx context.Context, ticketID, assigneeID, actorID string) error
	ListComments(ctx context.Context, ticketID string) ([]Comment, error)
	CreateComment(ctx context.Context, c *Comment) error
}

const ticketColumns = `id, organization_id, created_by, assigned_to, subject, body, status, priority, created_at, updated_at`

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanTicket(row pgx.Row) (*Ticket, error) {
	var t Ticket
	err := row.Scan(&t.ID, &t.OrganizationID, &t.CreatedBy, &t.AssignedTo, &t.Subject, &t.Body, &t.Status, &t.Priority, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// GetByID fetches one ticket.
func (r *Repository) GetByID(ctx context.Context, id string) (*Ticket, error) {
	return scanTicket(r.pool.QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id = $1`, id))
}

// List returns tickets within the organization scope, newest first.
func (r *Repository) List(ctx context.Context, scope authz.OrgScope, limit, offset int) ([]Ticket, int, error) {
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
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tickets `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + ticketColumns + ` FROM tickets ` + where + ` ORDER BY created_at DESC`
	if scope.All {
		query += ` LIMIT $1 OFFSET $2`
	} else {
		query += ` LIMIT $2 OFFSET $3`
	}
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Ticket
	for rows.Next() {
		var t Ticket
		if err := rows.Scan(&t.ID, &t.OrganizationID, &t.CreatedBy, &t.AssignedTo, &t.Subject, &t.Body, &t.Status, &t.Priority, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Create inserts a ticket row.
func (r *Repository) Create(ctx context.Context, t *Ticket) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO tickets (id, organization_id, created_by, assigned_to, subject, body, status, priority, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())`,
		t.ID, t.OrganizationID, t.CreatedBy, t.AssignedTo, t.Subject, t.Body, t.Status, t.Priority,
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

// Update persists mutable ticket fields.
func (r *Repository) Update(ctx context.Context, t *Ticket) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE tickets SET subject = $2, body = $3, status = $4, priority = $5, updated_at = NOW() WHERE id = $1`,
		t.ID, t.Subject, t.Body, t.Status, t.Priority,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete removes a ticket and its comments.
func (r *Repository) Delete(ctx context.Context, id string) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM ticket_comments WHERE ticket_id = $1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM tickets WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// Assign updates the assignee and records the event in the same transaction.
func (r *Repository) Assign(ctx context.Context, ticketID, assigneeID, actorID string) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE tickets SET assigned_to = $2, status = CASE WHEN status = 'open' THEN 'in_progress' ELSE status END, updated_at = NOW() WHERE id = $1`,
			ticketID, assigneeID,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		payload, err := json.Marshal(map[string]string{"assignee": assigneeID})
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO ticket_events (ticket_id, actor_id, kind, payload, created_at) VALUES ($1, $2, 'assigned', $3, NOW())`,
			ticketID, actorID, payload,
		)
		return err
	})
}

// ListComments returns a ticket's comments oldest first.
func (r *Repository) ListComments(ctx context.Context, ticketID string) ([]Comment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, ticket_id, author_id, body, created_at FROM ticket_comments WHERE ticket_id = $1 ORDER BY created_at`,
		ticketID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Comment
	for rows.Next() {
		var c Comment
		if err := rows.Scan(&c.ID, &c.TicketID, &c.AuthorID, &c.Body, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateComment inserts a comment row.
func (r *Repository) CreateComment(ctx context.Context, c *Comment) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO ticket_comments (id, ticket_id, author_id, body, created_at) VALUES ($1, $2, $3, $4, NOW())`,
		c.ID, c.TicketID, c.AuthorID, c.Body,
	)
	return err
}

var _ RepositoryPort = (*Repository)(nil)
