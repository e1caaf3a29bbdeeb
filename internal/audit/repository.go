package audit

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskhive/taskhive/internal/shared"
)

// RepositoryPort defines persistence operations for the audit trail.
type RepositoryPort interface {
	Insert(ctx context.Context, event Event) error
	List(ctx context.Context, filters Filters, page shared.PageRequest) ([]Event, int, error)
}

// Repository implements RepositoryPort on PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a Repository instance.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert appends one event to the trail.
func (r *Repository) Insert(ctx context.Context, event Event) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO audit_events (company_id, actor_id, action, resource, operation, reason, detail, request_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		event.CompanyID, event.ActorID, event.Action, event.Resource,
		event.Operation, event.Reason, event.Detail, event.RequestID)
	if err != nil {
		return fmt.Errorf("audit: insert event: %w", err)
	}
	return nil
}

// List pages the trail newest first, applying the optional filters.
func (r *Repository) List(ctx context.Context, filters Filters, page shared.PageRequest) ([]Event, int, error) {
	where, args := buildWhere(filters)

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM audit_events`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("audit: count events: %w", err)
	}

	query := `SELECT id, company_id, actor_id, action, resource, operation, reason, detail, request_id, created_at
		FROM audit_events` + where +
		` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)
	rows, err := r.pool.Query(ctx, query, append(args, page.PerPage, page.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("audit: list events: %w", err)
	}
	defer rows.Close()

	events, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Event, error) {
		var e Event
		err := row.Scan(&e.ID, &e.CompanyID, &e.ActorID, &e.Action, &e.Resource,
			&e.Operation, &e.Reason, &e.Detail, &e.RequestID, &e.CreatedAt)
		return e, err
	})
	if err != nil {
		return nil, 0, fmt.Errorf("audit: scan events: %w", err)
	}
	return events, total, nil
}

func buildWhere(filters Filters) (string, []any) {
	clauses := make([]string, 0, 4)
	args := make([]any, 0, 4)
	add := func(clause string, value any) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}
	if filters.CompanyID != uuid.Nil {
		add("company_id = $%d", filters.CompanyID)
	}
	if filters.Action != "" {
		add("action = $%d", filters.Action)
	}
	if !filters.From.IsZero() {
		add("created_at >= $%d", filters.From)
	}
	if !filters.To.IsZero() {
		add("created_at < $%d", filters.To)
	}
	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

var _ RepositoryPort = (*Repository)(nil)
