package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskhive/taskhive/internal/policy"
)

var (
	// ErrNotFound indicates that the requested user does not exist.
	ErrNotFound = errors.New("users: not found")
	// ErrDuplicate indicates an email collision.
	ErrDuplicate = errors.New("users: email already taken")
)

const uniqueViolation = "23505"

const userColumns = `id, company_id, department_id, email, name, role, is_active, created_at, updated_at`

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Get fetches a user by ID.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

// ListByCompany returns all users of a company ordered by name.
func (r *Repository) ListByCompany(ctx context.Context, companyID uuid.UUID) ([]User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE company_id = $1 ORDER BY name`
	rows, err := r.pool.Query(ctx, query, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectUsers(rows)
}

// ListByDepartment returns the users of one department ordered by name.
func (r *Repository) ListByDepartment(ctx context.Context, companyID, departmentID uuid.UUID) ([]User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE company_id = $1 AND department_id = $2 ORDER BY name`
	rows, err := r.pool.Query(ctx, query, companyID, departmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectUsers(rows)
}

// CreateParams carries the fields needed to provision a user.
type CreateParams struct {
	CompanyID    uuid.UUID
	DepartmentID uuid.UUID
	Email        string
	Name         string
	Role         policy.Role
	PasswordHash string
}

// Create inserts a user.
func (r *Repository) Create(ctx context.Context, params CreateParams) (User, error) {
	query := `
		INSERT INTO users (company_id, department_id, email, name, role, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + userColumns
	user, err := scanUser(r.pool.QueryRow(ctx, query,
		params.CompanyID, params.DepartmentID, params.Email, params.Name, params.Role.String(), params.PasswordHash))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return User{}, ErrDuplicate
		}
		return User{}, err
	}
	return user, nil
}

// UpdateProfile changes the user's display name.
func (r *Repository) UpdateProfile(ctx context.Context, id uuid.UUID, name string) (User, error) {
	query := `
		UPDATE users
		SET name = $2, updated_at = now()
		WHERE id = $1
		RETURNING ` + userColumns
	return scanUser(r.pool.QueryRow(ctx, query, id, name))
}

// UpdatePasswordHash replaces the stored password hash.
func (r *Repository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`, id, hash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CountActiveByDepartment counts active members of one department.
func (r *Repository) CountActiveByDepartment(ctx context.Context, companyID, departmentID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM users WHERE company_id = $1 AND department_id = $2 AND is_active`,
		companyID, departmentID).Scan(&n)
	return n, err
}

// CountActiveByCompany counts active members across the company.
func (r *Repository) CountActiveByCompany(ctx context.Context, companyID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM users WHERE company_id = $1 AND is_active`, companyID).Scan(&n)
	return n, err
}

// Delete removes a user. Returns ErrNotFound if nothing was deleted.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (User, error) {
	var u User
	var role string
	err := row.Scan(&u.ID, &u.CompanyID, &u.DepartmentID, &u.Email, &u.Name, &role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	parsed, ok := policy.ParseRole(role)
	if !ok {
		return User{}, fmt.Errorf("users: unknown role %q for user %s", role, u.ID)
	}
	u.Role = parsed
	return u, nil
}

func collectUsers(rows pgx.Rows) ([]User, error) {
	list := make([]User, 0)
	for rows.Next() {
		var u User
		var role string
		if err := rows.Scan(&u.ID, &u.CompanyID, &u.DepartmentID, &u.Email, &u.Name, &role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		parsed, ok := policy.ParseRole(role)
		if !ok {
			return nil, fmt.Errorf("users: unknown role %q for user %s", role, u.ID)
		}
		u.Role = parsed
		list = append(list, u)
	}
	return list, rows.Err()
}
