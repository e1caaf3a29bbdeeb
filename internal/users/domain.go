// Package users manages user accounts inside a company. Provisioning is
// SuperAdmin-only; everyone may maintain their own profile.
package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/taskhive/taskhive/internal/policy"
)

// User represents a user account.
type User struct {
	ID           uuid.UUID   `json:"id"`
	CompanyID    uuid.UUID   `json:"company_id"`
	DepartmentID uuid.UUID   `json:"department_id"`
	Email        string      `json:"email"`
	Name         string      `json:"name"`
	Role         policy.Role `json:"role"`
	IsActive     bool        `json:"is_active"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}
