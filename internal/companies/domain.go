// Package companies manages the tenant root entity. A company is the
// absolute isolation boundary: nothing in TaskHive crosses it.
package companies

import (
	"time"

	"github.com/google/uuid"
)

// Company is the tenant record.
type Company struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
