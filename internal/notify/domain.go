// Package notify manages user notifications. End users can only read,
// acknowledge and delete their own inbox; creation happens exclusively
// through the trusted Recorder, which other services call directly and which
// never passes through the end-user policy evaluator.
package notify

import (
	"time"

	"github.com/google/uuid"
)

// Kind classifies a notification for client rendering.
type Kind string

const (
	// KindTaskAssigned is emitted when a user is added to a task.
	KindTaskAssigned Kind = "task_assigned"
	// KindDigest is emitted by the daily digest job.
	KindDigest Kind = "digest"
)

// Notification is one inbox entry.
type Notification struct {
	ID        uuid.UUID  `json:"id"`
	CompanyID uuid.UUID  `json:"company_id"`
	UserID    uuid.UUID  `json:"user_id"`
	Kind      Kind       `json:"kind"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
