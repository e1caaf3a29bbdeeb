package audit

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/taskhive/taskhive/internal/policy"
	"github.com/taskhive/taskhive/internal/shared"
)

type memoryRepo struct {
	events []Event
}

func (m *memoryRepo) Insert(_ context.Context, event Event) error {
	event.ID = int64(len(m.events) + 1)
	event.CreatedAt = time.Now()
	m.events = append(m.events, event)
	return nil
}

func (m *memoryRepo) List(_ context.Context, filters Filters, page shared.PageRequest) ([]Event, int, error) {
	matched := make([]Event, 0)
	for _, e := range m.events {
		if filters.CompanyID != uuid.Nil && e.CompanyID != filters.CompanyID {
			continue
		}
		if filters.Action != "" && e.Action != filters.Action {
			continue
		}
		matched = append(matched, e)
	}
	return matched, len(matched), nil
}

func TestListIsSuperAdminOnly(t *testing.T) {
	service := NewService(&memoryRepo{})
	page := shared.PageRequest{Page: 1, PerPage: 20}

	for _, role := range []policy.Role{policy.RoleUser, policy.RoleManager, policy.RoleAdmin} {
		actor := &policy.Actor{UserID: uuid.New(), CompanyID: uuid.New(), DepartmentID: uuid.New(), Role: role}
		_, _, err := service.List(context.Background(), actor, Filters{}, page)
		var denied *policy.DeniedError
		require.ErrorAs(t, err, &denied, "role %s must be denied", role)
		require.Equal(t, policy.ReasonInsufficientPermissions, denied.Decision.Reason)
	}

	super := &policy.Actor{UserID: uuid.New(), CompanyID: uuid.New(), DepartmentID: uuid.New(), Role: policy.RoleSuperAdmin}
	_, _, err := service.List(context.Background(), super, Filters{}, page)
	require.NoError(t, err)
}

func TestRecorderCapturesDenialsAndLogins(t *testing.T) {
	repo := &memoryRepo{}
	recorder := NewRecorder(repo, nil)
	actor := &policy.Actor{UserID: uuid.New(), CompanyID: uuid.New(), DepartmentID: uuid.New(), Role: policy.RoleUser}

	recorder.RecordDenial(context.Background(), actor, "project_task", "create", policy.ReasonInsufficientPermissions)
	recorder.LoginSucceeded(context.Background(), actor.CompanyID, actor.UserID, "10.0.0.1")
	recorder.LoginFailed(context.Background(), "ghost@test.local", "10.0.0.2")

	require.Len(t, repo.events, 3)

	denial := repo.events[0]
	require.Equal(t, ActionPolicyDenied, denial.Action)
	require.Equal(t, actor.CompanyID, denial.CompanyID)
	require.Equal(t, "project_task", denial.Resource)
	require.Equal(t, string(policy.ReasonInsufficientPermissions), denial.Reason)

	failed := repo.events[2]
	require.Equal(t, ActionLoginFailed, failed.Action)
	require.Equal(t, uuid.Nil, failed.ActorID)
	require.Contains(t, failed.Detail, "ghost@test.local")
}

func TestListFiltersByCompanyAndAction(t *testing.T) {
	repo := &memoryRepo{}
	recorder := NewRecorder(repo, nil)
	companyA := uuid.New()
	actorA := &policy.Actor{UserID: uuid.New(), CompanyID: companyA, DepartmentID: uuid.New(), Role: policy.RoleUser}
	actorB := &policy.Actor{UserID: uuid.New(), CompanyID: uuid.New(), DepartmentID: uuid.New(), Role: policy.RoleUser}

	recorder.RecordDenial(context.Background(), actorA, "assigned_task", "delete", policy.ReasonInsufficientPermissions)
	recorder.RecordDenial(context.Background(), actorB, "assigned_task", "delete", policy.ReasonInsufficientPermissions)
	recorder.LoginSucceeded(context.Background(), companyA, actorA.UserID, "10.0.0.1")

	service := NewService(repo)
	super := &policy.Actor{UserID: uuid.New(), CompanyID: uuid.New(), DepartmentID: uuid.New(), Role: policy.RoleSuperAdmin}
	page := shared.PageRequest{Page: 1, PerPage: 20}

	events, _, err := service.List(context.Background(), super, Filters{CompanyID: companyA}, page)
	require.NoError(t, err)
	require.Len(t, events, 2)

	events, _, err = service.List(context.Background(), super, Filters{CompanyID: companyA, Action: ActionPolicyDenied}, page)
	require.NoError(t, err)
	require.Len(t, events, 1)
}
