// Package departments manages departments, the visibility unit inside a
// company for Admin and Manager roles.
package departments

import (
	"time"

	"github.com/google/uuid"
)

// Department is an organizational unit within one company.
type Department struct {
	ID        uuid.UUID `json:"id"`
	CompanyID uuid.UUID `json:"company_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
