// Package tasks manages the three task variants (assigned, project,
// routine) and the activity log on assigned tasks. Assigned tasks carry an
// assignee set; assignment is constrained to the task's department at the
// write path, while read access for assignees is granted by assignment
// alone.
package tasks

import (
	"time"

	"github.com/google/uuid"

	"github.com/taskhive/taskhive/internal/policy"
)

// Kind discriminates the task variants.
type Kind string

const (
	KindAssigned Kind = "assigned"
	KindProject  Kind = "project"
	KindRoutine  Kind = "routine"
)

// Valid reports whether the kind is one of the three variants.
func (k Kind) Valid() bool {
	return k == KindAssigned || k == KindProject || k == KindRoutine
}

// Resource maps the kind to its policy resource type.
func (k Kind) Resource() policy.ResourceType {
	switch k {
	case KindProject:
		return policy.ResourceProjectTask
	case KindRoutine:
		return policy.ResourceRoutineTask
	default:
		return policy.ResourceAssignedTask
	}
}

// Status is the task lifecycle state.
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Valid reports whether the status is a known state.
func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Priority orders tasks for display.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// Valid reports whether the priority is a known level.
func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityNormal || p == PriorityHigh
}

// Task is one unit of work inside a department.
type Task struct {
	ID           uuid.UUID   `json:"id"`
	CompanyID    uuid.UUID   `json:"company_id"`
	DepartmentID uuid.UUID   `json:"department_id"`
	Kind         Kind        `json:"kind"`
	Title        string      `json:"title"`
	Description  string      `json:"description"`
	Status       Status      `json:"status"`
	Priority     Priority    `json:"priority"`
	DueDate      *time.Time  `json:"due_date,omitempty"`
	CreatedBy    uuid.UUID   `json:"created_by"`
	Assignees    []uuid.UUID `json:"assignees,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// Scope builds the policy scope describing this task.
func (t Task) Scope() policy.Scope {
	return policy.Scope{
		CompanyID:       t.CompanyID,
		DepartmentID:    t.DepartmentID,
		OwnerID:         t.CreatedBy,
		AssignedUserIDs: t.Assignees,
	}
}

// Activity is a work log entry on an assigned task.
type Activity struct {
	ID          uuid.UUID `json:"id"`
	TaskID      uuid.UUID `json:"task_id"`
	CompanyID   uuid.UUID `json:"company_id"`
	PerformedBy uuid.UUID `json:"performed_by"`
	Note        string    `json:"note"`
	Minutes     int       `json:"minutes"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
