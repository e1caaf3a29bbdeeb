// Package policy implements the access policy evaluator: a pure,
// table-driven decision function over (actor, operation, resource, scope).
// Every authorization judgment in TaskHive flows through Evaluate; route
// middleware uses it for early rejects and services use it as the
// authoritative post-fetch check.
package policy

import (
	"fmt"

	"github.com/google/uuid"
)

// Role identifies the policy class of an authenticated user.
type Role int

const (
	// RoleUser is the base role, limited to self-scoped access.
	RoleUser Role = iota
	// RoleManager is department-scoped. Policy-equivalent to RoleAdmin.
	RoleManager
	// RoleAdmin is department-scoped. Policy-equivalent to RoleManager.
	RoleAdmin
	// RoleSuperAdmin has unrestricted access within its own company.
	RoleSuperAdmin
)

// String returns the canonical role name as stored in the database.
func (r Role) String() string {
	switch r {
	case RoleUser:
		return "User"
	case RoleManager:
		return "Manager"
	case RoleAdmin:
		return "Admin"
	case RoleSuperAdmin:
		return "SuperAdmin"
	}
	return "Unknown"
}

// DepartmentScoped reports whether the role belongs to the Admin/Manager
// policy class.
func (r Role) DepartmentScoped() bool {
	return r == RoleAdmin || r == RoleManager
}

// MarshalText renders the role by its canonical name.
func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText parses a canonical role name.
func (r *Role) UnmarshalText(text []byte) error {
	parsed, ok := ParseRole(string(text))
	if !ok {
		return fmt.Errorf("policy: unknown role %q", text)
	}
	*r = parsed
	return nil
}

// ParseRole maps a stored role name to a Role.
func ParseRole(s string) (Role, bool) {
	switch s {
	case "User":
		return RoleUser, true
	case "Manager":
		return RoleManager, true
	case "Admin":
		return RoleAdmin, true
	case "SuperAdmin":
		return RoleSuperAdmin, true
	}
	return RoleUser, false
}

// Operation is the closed set of actions evaluated by the policy.
type Operation int

const (
	OpCreate Operation = iota
	OpRead
	OpUpdate
	OpDelete
)

// String returns the lowercase operation name used in logs and metrics.
func (o Operation) String() string {
	switch o {
	case OpCreate:
		return "create"
	case OpRead:
		return "read"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	}
	return "unknown"
}

// ResourceType is the closed set of protected resources.
type ResourceType int

const (
	ResourceCompany ResourceType = iota
	ResourceDepartment
	ResourceUser
	ResourceAssignedTask
	ResourceProjectTask
	ResourceRoutineTask
	ResourceTaskActivity
	ResourceNotification
)

// String returns the resource name used in logs and metrics.
func (t ResourceType) String() string {
	switch t {
	case ResourceCompany:
		return "company"
	case ResourceDepartment:
		return "department"
	case ResourceUser:
		return "user"
	case ResourceAssignedTask:
		return "assigned_task"
	case ResourceProjectTask:
		return "project_task"
	case ResourceRoutineTask:
		return "routine_task"
	case ResourceTaskActivity:
		return "task_activity"
	case ResourceNotification:
		return "notification"
	}
	return "unknown"
}

// Actor is the authenticated caller, rebuilt fresh on every request from the
// session user. Immutable for the duration of one evaluation.
type Actor struct {
	UserID       uuid.UUID
	CompanyID    uuid.UUID
	DepartmentID uuid.UUID
	Role         Role
}

// Scope describes the target of an operation. CompanyID is mandatory for any
// persisted target; DepartmentID, OwnerID and AssignedUserIDs are present
// only where the resource carries them.
type Scope struct {
	CompanyID       uuid.UUID
	DepartmentID    uuid.UUID
	OwnerID         uuid.UUID
	AssignedUserIDs []uuid.UUID
}

// Reason is the machine-readable denial code exposed to clients. The string
// values are an external contract and must not change.
type Reason string

const (
	ReasonAuthenticationRequired   Reason = "AUTHENTICATION_REQUIRED"
	ReasonInsufficientPermissions  Reason = "INSUFFICIENT_PERMISSIONS"
	ReasonDepartmentAccessDenied   Reason = "DEPARTMENT_ACCESS_DENIED"
	ReasonUserAccessDenied         Reason = "USER_ACCESS_DENIED"
	ReasonTaskAccessDenied         Reason = "TASK_ACCESS_DENIED"
	ReasonCompanyAccessDenied      Reason = "COMPANY_ACCESS_DENIED"
	ReasonNotificationAccessDenied Reason = "NOTIFICATION_ACCESS_DENIED"
)

// Decision is the transient judgment returned by Evaluate. Never persisted.
type Decision struct {
	Allowed bool
	Reason  Reason
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(reason Reason) Decision {
	return Decision{Allowed: false, Reason: reason}
}
