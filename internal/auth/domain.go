// Package auth handles credential checks, login sessions, and per-request
// actor resolution.
package auth

import (
	"time"

	"github.com/google/uuid"

	"github.com/taskhive/taskhive/internal/policy"
)

// Account is the credential view of a user record.
type Account struct {
	ID           uuid.UUID
	CompanyID    uuid.UUID
	DepartmentID uuid.UUID
	Email        string
	Name         string
	Role         policy.Role
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Actor converts the account into the policy evaluation subject.
func (a Account) Actor() *policy.Actor {
	return &policy.Actor{
		UserID:       a.ID,
		CompanyID:    a.CompanyID,
		DepartmentID: a.DepartmentID,
		Role:         a.Role,
	}
}
