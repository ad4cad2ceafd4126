package notifications

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/deskhive/deskhive/internal/shared"
)

// RepositoryPort defines persistence operations for notifications.
type RepositoryPort interface {
	GetByID(ctx context.Context, id string) (*Notification, error)
	ListForUser(ctx context.Context, userID string, unreadOnly bool, limit, offset int) ([]Notification, int, error)
	Create(ctx context.Context, n *Notification) error
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context, userID string) error
	DeleteOlderThan(ctx context.Context, userID string, keep int) error
}

const notificationColumns = `id, user_id, kind, title, body, ticket_id, read_at, created_at`

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetByID fetches one notification.
func (r *Repository) GetByID(ctx context.Context, id string) (*Notification, error) {
	var n Notification
	err := r.pool.QueryRow(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, id).
		Scan(&n.ID, &n.UserID, &n.Kind, &n.Title, &n.Body, &n.TicketID, &n.ReadAt, &n.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &n, nil
}

// ListForUser returns the recipient's notifications, newest first.
func (r *Repository) ListForUser(ctx context.Context, userID string, unreadOnly bool, limit, offset int) ([]Notification, int, error) {
	where := `WHERE user_id = $1`
	if unreadOnly {
		where += ` AND read_at IS NULL`
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM notifications `+where, userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+notificationColumns+` FROM notifications `+where+` ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Kind, &n.Title, &n.Body, &n.TicketID, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Create inserts a notification row.
func (r *Repository) Create(ctx context.Context, n *Notification) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO notifications (id, user_id, kind, title, body, ticket_id, created_at) VALUES ($1, $2, $3, $4, $5, $6, NOW())`,
		n.ID, n.UserID, n.Kind, n.Title, n.Body, n.TicketID,
	)
	return err
}

// MarkRead stamps one notification.
func (r *Repository) MarkRead(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE notifications SET read_at = NOW() WHERE id = $1 AND read_at IS NULL`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// MarkAllRead stamps every unread notification of the recipient.
func (r *Repository) MarkAllRead(ctx context.Context, userID string) error {
	_, err := r.pool.Exec(ctx, `UPDATE notifications SET read_at = NOW() WHERE user_id = $1 AND read_at IS NULL`, userID)
	return err
}

// DeleteOlderThan trims the recipient's feed down to the newest keep rows.
// Used by the retention cron.
func (r *Repository) DeleteOlderThan(ctx context.Context, userID string, keep int) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM notifications WHERE user_id = $1 AND id NOT IN (
			SELECT id FROM notifications WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2
		)`,
		userID, keep,
	)
	return err
}

var _ RepositoryPort = (*Repository)(nil)
