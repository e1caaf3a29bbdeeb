package policy

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrMissingScope reports a caller contract violation: a resource that needs
// a scope field (department, owner, assignees) was evaluated without it.
// This is an integration bug, never a policy denial.
var ErrMissingScope = errors.New("policy: required scope field missing")

// ErrUnknownRule reports a (resource, operation) pair outside the policy
// table. The table is closed; hitting this means a new resource or operation
// was added without a row.
var ErrUnknownRule = errors.New("policy: no rule for resource/operation")

// Requirement is the scope a non-SuperAdmin actor must satisfy for a given
// (resource, operation, role-class) cell.
type Requirement int

const (
	// Forbidden denies regardless of scope.
	Forbidden Requirement = iota
	// CompanyWide allows any target inside the actor's company.
	CompanyWide
	// Department requires the target department to equal the actor's.
	Department
	// Self requires the target owner to be the actor.
	Self
	// SelfAssigned requires the actor to appear in the target's assignees.
	// It does not additionally require a department match: assignment is
	// the narrower scope and takes precedence.
	SelfAssigned
	// SelfAuthoredAssigned requires both: the actor authored the target and
	// is assigned to its parent task.
	SelfAuthoredAssigned
)

// String returns the requirement name used in logs.
func (r Requirement) String() string {
	switch r {
	case Forbidden:
		return "forbidden"
	case CompanyWide:
		return "company"
	case Department:
		return "department"
	case Self:
		return "self"
	case SelfAssigned:
		return "self_assigned"
	case SelfAuthoredAssigned:
		return "self_authored_assigned"
	}
	return "unknown"
}

// rule holds the requirement per role class. Admin and Manager always share
// the deptRoles cell; they are one policy class.
type rule struct {
	deptRoles Requirement
	user      Requirement
}

// ruleTable is the whole policy, expressed as data. Adding a resource type
// means adding a row here, not editing call sites. SuperAdmin and the
// company boundary are handled before the table is consulted.
var ruleTable = map[ResourceType]map[Operation]rule{
	ResourceCompany: {
		OpCreate: {deptRoles: Forbidden, user: Forbidden},
		OpRead:   {deptRoles: CompanyWide, user: CompanyWide},
		OpUpdate: {deptRoles: Forbidden, user: Forbidden},
		OpDelete: {deptRoles: Forbidden, user: Forbidden},
	},
	ResourceDepartment: {
		OpCreate: {deptRoles: Forbidden, user: Forbidden},
		OpRead:   {deptRoles: Department, user: Department},
		OpUpdate: {deptRoles: Forbidden, user: Forbidden},
		OpDelete: {deptRoles: Forbidden, user: Forbidden},
	},
	ResourceUser: {
		OpCreate: {deptRoles: Forbidden, user: Forbidden},
		OpRead:   {deptRoles: Department, user: Self},
		OpUpdate: {deptRoles: Self, user: Self},
		OpDelete: {deptRoles: Forbidden, user: Forbidden},
	},
	ResourceAssignedTask: {
		OpCreate: {deptRoles: Department, user: Forbidden},
		OpRead:   {deptRoles: Department, user: SelfAssigned},
		OpUpdate: {deptRoles: Department, user: Forbidden},
		OpDelete: {deptRoles: Department, user: Forbidden},
	},
	ResourceProjectTask: {
		OpCreate: {deptRoles: Department, user: Forbidden},
		OpRead:   {deptRoles: Department, user: Forbidden},
		OpUpdate: {deptRoles: Department, user: Forbidden},
		OpDelete: {deptRoles: Department, user: Forbidden},
	},
	ResourceRoutineTask: {
		OpCreate: {deptRoles: Department, user: Department},
		OpRead:   {deptRoles: Department, user: Department},
		OpUpdate: {deptRoles: Department, user: Department},
		OpDelete: {deptRoles: Department, user: Department},
	},
	ResourceTaskActivity: {
		OpCreate: {deptRoles: Department, user: SelfAssigned},
		OpRead:   {deptRoles: Department, user: SelfAssigned},
		OpUpdate: {deptRoles: Department, user: SelfAuthoredAssigned},
		OpDelete: {deptRoles: Department, user: SelfAuthoredAssigned},
	},
	ResourceNotification: {
		// Creation is system-only; see notify.Recorder for the internal
		// pathway, which never passes through Evaluate.
		OpCreate: {deptRoles: Forbidden, user: Forbidden},
		OpRead:   {deptRoles: Self, user: Self},
		OpUpdate: {deptRoles: Self, user: Self},
		OpDelete: {deptRoles: Self, user: Self},
	},
}

// Evaluate judges one operation. It is pure and side-effect free: identical
// inputs always yield identical output, and the company boundary is checked
// afresh on every call.
//
// The returned error is reserved for caller contract violations (missing
// scope fields, unknown resource/operation). A well-formed input always gets
// a Decision and a nil error.
func Evaluate(actor *Actor, op Operation, res ResourceType, scope Scope) (Decision, error) {
	if actor == nil || actor.UserID == uuid.Nil {
		return deny(ReasonAuthenticationRequired), nil
	}

	// The company boundary is absolute. No role, SuperAdmin included, ever
	// crosses it.
	if scope.CompanyID != uuid.Nil && scope.CompanyID != actor.CompanyID {
		return deny(ReasonCompanyAccessDenied), nil
	}

	if actor.Role == RoleSuperAdmin {
		return allow(), nil
	}

	req, err := RequiredScope(actor, op, res)
	if err != nil {
		return Decision{}, err
	}

	switch req {
	case Forbidden:
		return deny(forbiddenReason(res)), nil
	case CompanyWide:
		return allow(), nil
	case Department:
		if scope.DepartmentID == uuid.Nil {
			return Decision{}, missingScope(res, op, "department")
		}
		if scope.DepartmentID == actor.DepartmentID {
			return allow(), nil
		}
		return deny(scopeReason(res)), nil
	case Self:
		if scope.OwnerID == uuid.Nil {
			return Decision{}, missingScope(res, op, "owner")
		}
		if scope.OwnerID == actor.UserID {
			return allow(), nil
		}
		return deny(scopeReason(res)), nil
	case SelfAssigned:
		if scope.AssignedUserIDs == nil {
			return Decision{}, missingScope(res, op, "assignees")
		}
		if assignedTo(scope.AssignedUserIDs, actor.UserID) {
			return allow(), nil
		}
		return deny(scopeReason(res)), nil
	case SelfAuthoredAssigned:
		if scope.OwnerID == uuid.Nil {
			return Decision{}, missingScope(res, op, "owner")
		}
		if scope.AssignedUserIDs == nil {
			return Decision{}, missingScope(res, op, "assignees")
		}
		if scope.OwnerID == actor.UserID && assignedTo(scope.AssignedUserIDs, actor.UserID) {
			return allow(), nil
		}
		return deny(scopeReason(res)), nil
	}
	return Decision{}, fmt.Errorf("%w: %s %s", ErrUnknownRule, res, op)
}

// RequiredScope resolves the table cell for an actor. List endpoints use it
// to build query filters that implement the same contract Evaluate enforces
// per item: the filter never fetches rows Evaluate would deny.
func RequiredScope(actor *Actor, op Operation, res ResourceType) (Requirement, error) {
	if actor == nil {
		return Forbidden, errors.New("policy: actor required")
	}
	if actor.Role == RoleSuperAdmin {
		return CompanyWide, nil
	}
	ops, ok := ruleTable[res]
	if !ok {
		return Forbidden, fmt.Errorf("%w: %s", ErrUnknownRule, res)
	}
	cell, ok := ops[op]
	if !ok {
		return Forbidden, fmt.Errorf("%w: %s %s", ErrUnknownRule, res, op)
	}
	if actor.Role.DepartmentScoped() {
		return cell.deptRoles, nil
	}
	return cell.user, nil
}

// forbiddenReason maps a Forbidden cell to its denial code. Notifications
// carry their own code so clients can distinguish the system-only channel.
func forbiddenReason(res ResourceType) Reason {
	if res == ResourceNotification {
		return ReasonNotificationAccessDenied
	}
	return ReasonInsufficientPermissions
}

// scopeReason maps a scope mismatch to the per-resource denial code.
func scopeReason(res ResourceType) Reason {
	switch res {
	case ResourceCompany:
		return ReasonCompanyAccessDenied
	case ResourceDepartment:
		return ReasonDepartmentAccessDenied
	case ResourceUser:
		return ReasonUserAccessDenied
	case ResourceAssignedTask, ResourceProjectTask, ResourceRoutineTask, ResourceTaskActivity:
		return ReasonTaskAccessDenied
	case ResourceNotification:
		return ReasonNotificationAccessDenied
	}
	return ReasonInsufficientPermissions
}

func missingScope(res ResourceType, op Operation, field string) error {
	return fmt.Errorf("%w: %s %s needs %s", ErrMissingScope, res, op, field)
}

func assignedTo(assignees []uuid.UUID, userID uuid.UUID) bool {
	for _, id := range assignees {
		if id == userID {
			return true
		}
	}
	return false
}
