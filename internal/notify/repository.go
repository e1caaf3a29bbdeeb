package notify

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskhive/taskhive/internal/shared"
)

// ErrNotFound indicates that the requested notification does not exist.
var ErrNotFound = errors.New("notify: not found")

const columns = `id, company_id, user_id, kind, title, body, read_at, created_at`

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Get fetches a notification by ID.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Notification, error) {
	query := `SELECT ` + columns + ` FROM notifications WHERE id = $1`
	return scanNotification(r.pool.QueryRow(ctx, query, id))
}

// ListForUser pages a user's inbox, newest first.
func (r *Repository) ListForUser(ctx context.Context, userID uuid.UUID, page shared.PageRequest) ([]Notification, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM notifications WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := `SELECT ` + columns + `
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, userID, page.PerPage, page.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	list := make([]Notification, 0)
	for rows.Next() {
		var n Notification
		var kind string
		if err := rows.Scan(&n.ID, &n.CompanyID, &n.UserID, &kind, &n.Title, &n.Body, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, 0, err
		}
		n.Kind = Kind(kind)
		list = append(list, n)
	}
	return list, total, rows.Err()
}

// CountUnread counts unacknowledged entries for a user.
func (r *Repository) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM notifications WHERE user_id = $1 AND read_at IS NULL`, userID).Scan(&n)
	return n, err
}

// Create inserts one notification.
func (r *Repository) Create(ctx context.Context, n Notification) (Notification, error) {
	query := `
		INSERT INTO notifications (company_id, user_id, kind, title, body)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + columns
	return scanNotification(r.pool.QueryRow(ctx, query, n.CompanyID, n.UserID, string(n.Kind), n.Title, n.Body))
}

// MarkRead stamps an entry as acknowledged.
func (r *Repository) MarkRead(ctx context.Context, id uuid.UUID) (Notification, error) {
	query := `
		UPDATE notifications
		SET read_at = COALESCE(read_at, now())
		WHERE id = $1
		RETURNING ` + columns
	return scanNotification(r.pool.QueryRow(ctx, query, id))
}

// Delete removes an entry. Returns ErrNotFound if nothing was deleted.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM notifications WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListUnreadUserIDs returns the users of one company holding unread entries.
// Used by the digest job.
func (r *Repository) ListUnreadUserIDs(ctx context.Context, companyID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT DISTINCT user_id FROM notifications WHERE company_id = $1 AND read_at IS NULL`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UnreadSummary is one user's unread backlog, for the digest job.
type UnreadSummary struct {
	UserID uuid.UUID
	Count  int
}

// ListUnreadSummaries groups unread entries by user across all companies.
func (r *Repository) ListUnreadSummaries(ctx context.Context) ([]UnreadSummary, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT user_id, count(*) FROM notifications WHERE read_at IS NULL GROUP BY user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	summaries := make([]UnreadSummary, 0)
	for rows.Next() {
		var s UnreadSummary
		if err := rows.Scan(&s.UserID, &s.Count); err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

func scanNotification(row pgx.Row) (Notification, error) {
	var n Notification
	var kind string
	err := row.Scan(&n.ID, &n.CompanyID, &n.UserID, &kind, &n.Title, &n.Body, &n.ReadAt, &n.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Notification{}, ErrNotFound
		}
		return Notification{}, err
	}
	n.Kind = Kind(kind)
	return n, nil
}
