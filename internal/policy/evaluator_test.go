package policy

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var (
	companyA = uuid.New()
	companyB = uuid.New()
	deptA    = uuid.New()
	deptB    = uuid.New()
)

func actorWith(role Role) *Actor {
	return &Actor{
		UserID:       uuid.New(),
		CompanyID:    companyA,
		DepartmentID: deptA,
		Role:         role,
	}
}

func allResources() []ResourceType {
	return []ResourceType{
		ResourceCompany, ResourceDepartment, ResourceUser,
		ResourceAssignedTask, ResourceProjectTask, ResourceRoutineTask,
		ResourceTaskActivity, ResourceNotification,
	}
}

func allOperations() []Operation {
	return []Operation{OpCreate, OpRead, OpUpdate, OpDelete}
}

func TestEvaluateUnauthenticated(t *testing.T) {
	d, err := Evaluate(nil, OpRead, ResourceCompany, Scope{CompanyID: companyA})
	require.NoError(t, err)
	require.False(t, d.Allowed)
	require.Equal(t, ReasonAuthenticationRequired, d.Reason)

	d, err = Evaluate(&Actor{}, OpRead, ResourceCompany, Scope{CompanyID: companyA})
	require.NoError(t, err)
	require.Equal(t, ReasonAuthenticationRequired, d.Reason)
}

func TestCompanyIsolationIsUniversal(t *testing.T) {
	for _, role := range []Role{RoleUser, RoleManager, RoleAdmin, RoleSuperAdmin} {
		actor := actorWith(role)
		for _, res := range allResources() {
			for _, op := range allOperations() {
				scope := Scope{
					CompanyID:       companyB,
					DepartmentID:    actor.DepartmentID,
					OwnerID:         actor.UserID,
					AssignedUserIDs: []uuid.UUID{actor.UserID},
				}
				d, err := Evaluate(actor, op, res, scope)
				require.NoError(t, err)
				require.False(t, d.Allowed, "%s %s %s must not cross the company boundary", role, res, op)
				require.Equal(t, ReasonCompanyAccessDenied, d.Reason)
			}
		}
	}
}

func TestSuperAdminSupremacy(t *testing.T) {
	actor := actorWith(RoleSuperAdmin)
	for _, res := range allResources() {
		for _, op := range allOperations() {
			// Deliberately hostile scope: foreign department, foreign owner.
			scope := Scope{
				CompanyID:       companyA,
				DepartmentID:    deptB,
				OwnerID:         uuid.New(),
				AssignedUserIDs: []uuid.UUID{uuid.New()},
			}
			d, err := Evaluate(actor, op, res, scope)
			require.NoError(t, err)
			require.True(t, d.Allowed, "SuperAdmin must be allowed for %s %s within own company", res, op)
		}
	}
}

func TestSelfScopeOnUserUpdate(t *testing.T) {
	for _, role := range []Role{RoleUser, RoleManager, RoleAdmin} {
		actor := actorWith(role)

		d, err := Evaluate(actor, OpUpdate, ResourceUser, Scope{CompanyID: companyA, OwnerID: actor.UserID})
		require.NoError(t, err)
		require.True(t, d.Allowed, "%s must update own profile", role)

		d, err = Evaluate(actor, OpUpdate, ResourceUser, Scope{CompanyID: companyA, OwnerID: uuid.New()})
		require.NoError(t, err)
		require.False(t, d.Allowed, "%s must not update another profile", role)
		require.Equal(t, ReasonUserAccessDenied, d.Reason)
	}
}

func TestDepartmentScopeOnAssignedTask(t *testing.T) {
	for _, role := range []Role{RoleManager, RoleAdmin} {
		actor := actorWith(role)
		for _, op := range []Operation{OpRead, OpUpdate, OpDelete} {
			d, err := Evaluate(actor, op, ResourceAssignedTask, Scope{CompanyID: companyA, DepartmentID: deptA})
			require.NoError(t, err)
			require.True(t, d.Allowed, "%s %s own department", role, op)

			// Admin of a different department in the same company.
			d, err = Evaluate(actor, op, ResourceAssignedTask, Scope{CompanyID: companyA, DepartmentID: deptB})
			require.NoError(t, err)
			require.False(t, d.Allowed, "%s %s foreign department", role, op)
			require.Equal(t, ReasonTaskAccessDenied, d.Reason)
		}
	}
}

func TestUserForbiddenOnProjectTask(t *testing.T) {
	actor := actorWith(RoleUser)
	for _, op := range allOperations() {
		d, err := Evaluate(actor, op, ResourceProjectTask, Scope{CompanyID: companyA, DepartmentID: deptA})
		require.NoError(t, err)
		require.False(t, d.Allowed, "User must never touch project tasks (%s)", op)
		require.Equal(t, ReasonInsufficientPermissions, d.Reason)
	}
}

func TestAssignmentPrecedesDepartment(t *testing.T) {
	actor := actorWith(RoleUser)

	// Assigned: allowed even though the task sits in another department.
	d, err := Evaluate(actor, OpRead, ResourceAssignedTask, Scope{
		CompanyID:       companyA,
		DepartmentID:    deptB,
		AssignedUserIDs: []uuid.UUID{actor.UserID, uuid.New()},
	})
	require.NoError(t, err)
	require.True(t, d.Allowed)

	// Not assigned: denied even in the actor's own department.
	d, err = Evaluate(actor, OpRead, ResourceAssignedTask, Scope{
		CompanyID:       companyA,
		DepartmentID:    deptA,
		AssignedUserIDs: []uuid.UUID{uuid.New()},
	})
	require.NoError(t, err)
	require.False(t, d.Allowed)
	require.Equal(t, ReasonTaskAccessDenied, d.Reason)
}

func TestManagerAssignedTaskScenarios(t *testing.T) {
	manager := actorWith(RoleManager)

	d, err := Evaluate(manager, OpRead, ResourceAssignedTask, Scope{CompanyID: companyA, DepartmentID: deptB})
	require.NoError(t, err)
	require.False(t, d.Allowed)
	require.Equal(t, ReasonTaskAccessDenied, d.Reason)

	d, err = Evaluate(manager, OpRead, ResourceAssignedTask, Scope{CompanyID: companyA, DepartmentID: deptA})
	require.NoError(t, err)
	require.True(t, d.Allowed)
}

func TestNotificationCreateIsSystemOnly(t *testing.T) {
	for _, role := range []Role{RoleUser, RoleManager, RoleAdmin} {
		actor := actorWith(role)
		d, err := Evaluate(actor, OpCreate, ResourceNotification, Scope{CompanyID: companyA})
		require.NoError(t, err)
		require.False(t, d.Allowed)
		require.Equal(t, ReasonNotificationAccessDenied, d.Reason)
	}
}

func TestNotificationSelfScope(t *testing.T) {
	actor := actorWith(RoleUser)
	for _, op := range []Operation{OpRead, OpUpdate, OpDelete} {
		d, err := Evaluate(actor, op, ResourceNotification, Scope{CompanyID: companyA, OwnerID: actor.UserID})
		require.NoError(t, err)
		require.True(t, d.Allowed)

		d, err = Evaluate(actor, op, ResourceNotification, Scope{CompanyID: companyA, OwnerID: uuid.New()})
		require.NoError(t, err)
		require.False(t, d.Allowed)
		require.Equal(t, ReasonNotificationAccessDenied, d.Reason)
	}
}

func TestCompanyReadWithinTenant(t *testing.T) {
	for _, role := range []Role{RoleUser, RoleManager, RoleAdmin} {
		actor := actorWith(role)
		d, err := Evaluate(actor, OpRead, ResourceCompany, Scope{CompanyID: companyA})
		require.NoError(t, err)
		require.True(t, d.Allowed, "%s may read its own company", role)

		d, err = Evaluate(actor, OpUpdate, ResourceCompany, Scope{CompanyID: companyA})
		require.NoError(t, err)
		require.False(t, d.Allowed)
		require.Equal(t, ReasonInsufficientPermissions, d.Reason)
	}
}

func TestTaskActivityAuthorship(t *testing.T) {
	actor := actorWith(RoleUser)
	assigned := []uuid.UUID{actor.UserID}

	// Authored by the actor on a task they are assigned to.
	d, err := Evaluate(actor, OpUpdate, ResourceTaskActivity, Scope{
		CompanyID:       companyA,
		OwnerID:         actor.UserID,
		AssignedUserIDs: assigned,
	})
	require.NoError(t, err)
	require.True(t, d.Allowed)

	// Authored by somebody else.
	d, err = Evaluate(actor, OpUpdate, ResourceTaskActivity, Scope{
		CompanyID:       companyA,
		OwnerID:         uuid.New(),
		AssignedUserIDs: assigned,
	})
	require.NoError(t, err)
	require.False(t, d.Allowed)
	require.Equal(t, ReasonTaskAccessDenied, d.Reason)

	// Authored by the actor but no longer assigned.
	d, err = Evaluate(actor, OpUpdate, ResourceTaskActivity, Scope{
		CompanyID:       companyA,
		OwnerID:         actor.UserID,
		AssignedUserIDs: []uuid.UUID{uuid.New()},
	})
	require.NoError(t, err)
	require.False(t, d.Allowed)
}

func TestRoutineTaskDepartmentForAllRoles(t *testing.T) {
	for _, role := range []Role{RoleUser, RoleManager, RoleAdmin} {
		actor := actorWith(role)
		for _, op := range allOperations() {
			d, err := Evaluate(actor, op, ResourceRoutineTask, Scope{CompanyID: companyA, DepartmentID: deptA})
			require.NoError(t, err)
			require.True(t, d.Allowed, "%s %s routine task in own department", role, op)

			d, err = Evaluate(actor, op, ResourceRoutineTask, Scope{CompanyID: companyA, DepartmentID: deptB})
			require.NoError(t, err)
			require.False(t, d.Allowed)
		}
	}
}

func TestMissingScopeIsContractError(t *testing.T) {
	actor := actorWith(RoleManager)

	_, err := Evaluate(actor, OpRead, ResourceAssignedTask, Scope{CompanyID: companyA})
	require.ErrorIs(t, err, ErrMissingScope)

	user := actorWith(RoleUser)
	_, err = Evaluate(user, OpRead, ResourceAssignedTask, Scope{CompanyID: companyA, DepartmentID: deptA})
	require.ErrorIs(t, err, ErrMissingScope, "user-class read needs the assignee set")

	_, err = Evaluate(user, OpUpdate, ResourceUser, Scope{CompanyID: companyA})
	require.ErrorIs(t, err, ErrMissingScope)
}

func TestEvaluateIsIdempotent(t *testing.T) {
	actor := actorWith(RoleManager)
	scope := Scope{CompanyID: companyA, DepartmentID: deptB}
	first, err := Evaluate(actor, OpRead, ResourceAssignedTask, scope)
	require.NoError(t, err)
	second, err := Evaluate(actor, OpRead, ResourceAssignedTask, scope)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestAdminManagerEquivalence(t *testing.T) {
	admin := actorWith(RoleAdmin)
	manager := &Actor{UserID: admin.UserID, CompanyID: admin.CompanyID, DepartmentID: admin.DepartmentID, Role: RoleManager}
	for _, res := range allResources() {
		for _, op := range allOperations() {
			scope := Scope{
				CompanyID:       companyA,
				DepartmentID:    deptA,
				OwnerID:         admin.UserID,
				AssignedUserIDs: []uuid.UUID{admin.UserID},
			}
			da, errA := Evaluate(admin, op, res, scope)
			dm, errM := Evaluate(manager, op, res, scope)
			require.Equal(t, errA, errM)
			require.Equal(t, da, dm, "Admin and Manager diverge on %s %s", res, op)
		}
	}
}

func TestRequiredScopeMatchesTable(t *testing.T) {
	super := actorWith(RoleSuperAdmin)
	req, err := RequiredScope(super, OpDelete, ResourceCompany)
	require.NoError(t, err)
	require.Equal(t, CompanyWide, req)

	admin := actorWith(RoleAdmin)
	req, err = RequiredScope(admin, OpRead, ResourceUser)
	require.NoError(t, err)
	require.Equal(t, Department, req)

	user := actorWith(RoleUser)
	req, err = RequiredScope(user, OpRead, ResourceUser)
	require.NoError(t, err)
	require.Equal(t, Self, req)

	req, err = RequiredScope(user, OpRead, ResourceAssignedTask)
	require.NoError(t, err)
	require.Equal(t, SelfAssigned, req)

	req, err = RequiredScope(user, OpRead, ResourceProjectTask)
	require.NoError(t, err)
	require.Equal(t, Forbidden, req)
}

func TestRuleTableIsComplete(t *testing.T) {
	// Every (resource, operation) cell must exist for both role classes so a
	// new resource cannot ship without a row.
	for _, res := range allResources() {
		for _, op := range allOperations() {
			for _, role := range []Role{RoleUser, RoleAdmin} {
				actor := actorWith(role)
				_, err := RequiredScope(actor, op, res)
				require.NoError(t, err, "missing rule for %s %s", res, op)
			}
		}
	}
}
