package departments

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound indicates that the requested department does not exist.
	ErrNotFound = errors.New("departments: not found")
	// ErrDuplicate indicates a department name collision within the company.
	ErrDuplicate = errors.New("departments: name already taken")
)

const uniqueViolation = "23505"

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Get fetches a department by ID.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Department, error) {
	const query = `
		SELECT id, company_id, name, created_at, updated_at
		FROM departments
		WHERE id = $1
	`
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

// ListByCompany returns all departments of a company ordered by name.
func (r *Repository) ListByCompany(ctx context.Context, companyID uuid.UUID) ([]Department, error) {
	const query = `
		SELECT id, company_id, name, created_at, updated_at
		FROM departments
		WHERE company_id = $1
		ORDER BY name
	`
	rows, err := r.pool.Query(ctx, query, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.collect(rows)
}

// Create inserts a department.
func (r *Repository) Create(ctx context.Context, companyID uuid.UUID, name string) (Department, error) {
	const query = `
		INSERT INTO departments (company_id, name)
		VALUES ($1, $2)
		RETURNING id, company_id, name, created_at, updated_at
	`
	dept, err := r.scanOne(r.pool.QueryRow(ctx, query, companyID, name))
	if err != nil {
		if isUniqueViolation(err) {
			return Department{}, ErrDuplicate
		}
		return Department{}, err
	}
	return dept, nil
}

// Update renames a department.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, name string) (Department, error) {
	const query = `
		UPDATE departments
		SET name = $2, updated_at = now()
		WHERE id = $1
		RETURNING id, company_id, name, created_at, updated_at
	`
	dept, err := r.scanOne(r.pool.QueryRow(ctx, query, id, name))
	if err != nil {
		if isUniqueViolation(err) {
			return Department{}, ErrDuplicate
		}
		return Department{}, err
	}
	return dept, nil
}

// Delete removes a department. Returns ErrNotFound if nothing was deleted.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM departments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) scanOne(row pgx.Row) (Department, error) {
	var d Department
	err := row.Scan(&d.ID, &d.CompanyID, &d.Name, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Department{}, ErrNotFound
		}
		return Department{}, err
	}
	return d, nil
}

func (r *Repository) collect(rows pgx.Rows) ([]Department, error) {
	depts := make([]Department, 0)
	for rows.Next() {
		var d Department
		if err := rows.Scan(&d.ID, &d.CompanyID, &d.Name, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		depts = append(depts, d)
	}
	return depts, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
