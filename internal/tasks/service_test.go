package tasks

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/taskhive/taskhive/internal/policy"
	"github.com/taskhive/taskhive/internal/shared"
)

type fakeRepo struct {
	tasks      map[uuid.UUID]Task
	activities map[uuid.UUID]Activity
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{tasks: make(map[uuid.UUID]Task), activities: make(map[uuid.UUID]Activity)}
}

func (f *fakeRepo) Get(_ context.Context, id uuid.UUID) (Task, error) {
	task, ok := f.tasks[id]
	if !ok {
		return Task{}, ErrNotFound
	}
	return task, nil
}

func (f *fakeRepo) ListByDepartment(_ context.Context, companyID, departmentID uuid.UUID, kind Kind, _ shared.PageRequest) ([]Task, int, error) {
	list := make([]Task, 0)
	for _, t := range f.tasks {
		if t.CompanyID == companyID && t.DepartmentID == departmentID && t.Kind == kind {
			list = append(list, t)
		}
	}
	return list, len(list), nil
}

func (f *fakeRepo) ListByCompany(_ context.Context, companyID uuid.UUID, kind Kind, _ shared.PageRequest) ([]Task, int, error) {
	list := make([]Task, 0)
	for _, t := range f.tasks {
		if t.CompanyID == companyID && t.Kind == kind {
			list = append(list, t)
		}
	}
	return list, len(list), nil
}

func (f *fakeRepo) ListAssignedTo(_ context.Context, companyID, userID uuid.UUID, _ shared.PageRequest) ([]Task, int, error) {
	list := make([]Task, 0)
	for _, t := range f.tasks {
		if t.CompanyID != companyID || t.Kind != KindAssigned {
			continue
		}
		for _, a := range t.Assignees {
			if a == userID {
				list = append(list, t)
				break
			}
		}
	}
	return list, len(list), nil
}

func (f *fakeRepo) Create(_ context.Context, task Task) (Task, error) {
	task.ID = uuid.New()
	if task.Kind == KindAssigned && task.Assignees == nil {
		task.Assignees = []uuid.UUID{}
	}
	f.tasks[task.ID] = task
	return task, nil
}

func (f *fakeRepo) Update(_ context.Context, task Task, assignees []uuid.UUID) (Task, error) {
	if assignees != nil {
		task.Assignees = assignees
	}
	f.tasks[task.ID] = task
	return task, nil
}

func (f *fakeRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := f.tasks[id]; !ok {
		return ErrNotFound
	}
	delete(f.tasks, id)
	return nil
}

func (f *fakeRepo) GetActivity(_ context.Context, id uuid.UUID) (Activity, error) {
	a, ok := f.activities[id]
	if !ok {
		return Activity{}, ErrNotFound
	}
	return a, nil
}

func (f *fakeRepo) ListActivities(_ context.Context, taskID uuid.UUID) ([]Activity, error) {
	list := make([]Activity, 0)
	for _, a := range f.activities {
		if a.TaskID == taskID {
			list = append(list, a)
		}
	}
	return list, nil
}

func (f *fakeRepo) CreateActivity(_ context.Context, activity Activity) (Activity, error) {
	activity.ID = uuid.New()
	f.activities[activity.ID] = activity
	return activity, nil
}

func (f *fakeRepo) UpdateActivity(_ context.Context, id uuid.UUID, note string, minutes int) (Activity, error) {
	a, ok := f.activities[id]
	if !ok {
		return Activity{}, ErrNotFound
	}
	a.Note, a.Minutes = note, minutes
	f.activities[id] = a
	return a, nil
}

func (f *fakeRepo) DeleteActivity(_ context.Context, id uuid.UUID) error {
	if _, ok := f.activities[id]; !ok {
		return ErrNotFound
	}
	delete(f.activities, id)
	return nil
}

type fakeDirectory struct {
	members map[uuid.UUID][2]uuid.UUID
}

func (f *fakeDirectory) Membership(_ context.Context, userID uuid.UUID) (uuid.UUID, uuid.UUID, error) {
	m, ok := f.members[userID]
	if !ok {
		return uuid.Nil, uuid.Nil, errors.New("no such user")
	}
	return m[0], m[1], nil
}

type fakeNotifier struct {
	notified [][]uuid.UUID
}

func (f *fakeNotifier) TaskAssigned(_ context.Context, _ uuid.UUID, userIDs []uuid.UUID, _ uuid.UUID, _ string) error {
	f.notified = append(f.notified, userIDs)
	return nil
}

type fixture struct {
	repo      *fakeRepo
	directory *fakeDirectory
	notifier  *fakeNotifier
	service   *Service
	company   uuid.UUID
	deptA     uuid.UUID
	deptB     uuid.UUID
	manager   *policy.Actor
	worker    *policy.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:      newFakeRepo(),
		directory: &fakeDirectory{members: make(map[uuid.UUID][2]uuid.UUID)},
		notifier:  &fakeNotifier{},
		company:   uuid.New(),
		deptA:     uuid.New(),
		deptB:     uuid.New(),
	}
	f.service = NewService(f.repo, f.directory, f.notifier)
	f.manager = &policy.Actor{UserID: uuid.New(), CompanyID: f.company, DepartmentID: f.deptA, Role: policy.RoleManager}
	f.worker = &policy.Actor{UserID: uuid.New(), CompanyID: f.company, DepartmentID: f.deptA, Role: policy.RoleUser}
	f.directory.members[f.manager.UserID] = [2]uuid.UUID{f.company, f.deptA}
	f.directory.members[f.worker.UserID] = [2]uuid.UUID{f.company, f.deptA}
	return f
}

func TestManagerCreatesAssignedTaskAndNotifies(t *testing.T) {
	f := newFixture(t)

	task, err := f.service.Create(context.Background(), f.manager, CreateInput{
		Kind:      KindAssigned,
		Title:     "Quarterly report",
		Assignees: []uuid.UUID{f.worker.UserID},
	}, CreateOptions{})
	require.NoError(t, err)
	require.Equal(t, f.deptA, task.DepartmentID)
	require.Equal(t, StatusOpen, task.Status)
	require.Len(t, f.notifier.notified, 1)
	require.Equal(t, []uuid.UUID{f.worker.UserID}, f.notifier.notified[0])
}

func TestUserCannotCreateAssignedTask(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Create(context.Background(), f.worker, CreateInput{
		Kind:  KindAssigned,
		Title: "Sneaky task",
	}, CreateOptions{})
	var denied *policy.DeniedError
	require.ErrorAs(t, err, &denied)
	require.Equal(t, policy.ReasonInsufficientPermissions, denied.Decision.Reason)
}

func TestAssignmentOutsideDepartmentRejected(t *testing.T) {
	f := newFixture(t)
	outsider := uuid.New()
	f.directory.members[outsider] = [2]uuid.UUID{f.company, f.deptB}

	_, err := f.service.Create(context.Background(), f.manager, CreateInput{
		Kind:      KindAssigned,
		Title:     "Cross-department task",
		Assignees: []uuid.UUID{outsider},
	}, CreateOptions{})
	require.ErrorIs(t, err, ErrAssigneeOutsideDepartment)
}

func TestUserListsOnlyAssignedTasks(t *testing.T) {
	f := newFixture(t)

	mine, err := f.service.Create(context.Background(), f.manager, CreateInput{
		Kind:      KindAssigned,
		Title:     "Mine",
		Assignees: []uuid.UUID{f.worker.UserID},
	}, CreateOptions{})
	require.NoError(t, err)
	_, err = f.service.Create(context.Background(), f.manager, CreateInput{
		Kind:      KindAssigned,
		Title:     "Somebody else's",
		Assignees: []uuid.UUID{f.manager.UserID},
	}, CreateOptions{})
	require.NoError(t, err)

	list, pagination, err := f.service.List(context.Background(), f.worker, KindAssigned, shared.PageRequest{Page: 1, PerPage: 20})
	require.NoError(t, err)
	require.Equal(t, 1, pagination.Total)
	require.Len(t, list, 1)
	require.Equal(t, mine.ID, list[0].ID)
}

func TestUserDeniedProjectTaskList(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.service.List(context.Background(), f.worker, KindProject, shared.PageRequest{Page: 1, PerPage: 20})
	var denied *policy.DeniedError
	require.ErrorAs(t, err, &denied)
	require.Equal(t, policy.ReasonTaskAccessDenied, denied.Decision.Reason)
}

func TestGetVerifiesDepartmentAfterFetch(t *testing.T) {
	f := newFixture(t)
	foreign, err := f.service.Create(context.Background(), &policy.Actor{
		UserID: uuid.New(), CompanyID: f.company, DepartmentID: f.deptB, Role: policy.RoleAdmin,
	}, CreateInput{Kind: KindProject, Title: "Other department plan"}, CreateOptions{})
	require.NoError(t, err)

	_, err = f.service.Get(context.Background(), f.manager, foreign.ID)
	var denied *policy.DeniedError
	require.ErrorAs(t, err, &denied)
	require.Equal(t, policy.ReasonTaskAccessDenied, denied.Decision.Reason)
}

func TestAssignedUserReadsTaskInOtherDepartment(t *testing.T) {
	// Assignment precedence: the check is assignment, not department.
	f := newFixture(t)
	task := Task{
		ID: uuid.New(), CompanyID: f.company, DepartmentID: f.deptB,
		Kind: KindAssigned, Title: "Borrowed hands", Status: StatusOpen, Priority: PriorityNormal,
		CreatedBy: f.manager.UserID, Assignees: []uuid.UUID{f.worker.UserID},
	}
	f.repo.tasks[task.ID] = task

	got, err := f.service.Get(context.Background(), f.worker, task.ID)
	require.NoError(t, err)
	require.Equal(t, task.ID, got.ID)
}

func TestActivityAuthorshipRules(t *testing.T) {
	f := newFixture(t)
	task, err := f.service.Create(context.Background(), f.manager, CreateInput{
		Kind:      KindAssigned,
		Title:     "With activity log",
		Assignees: []uuid.UUID{f.worker.UserID},
	}, CreateOptions{})
	require.NoError(t, err)

	activity, err := f.service.AddActivity(context.Background(), f.worker, task.ID, "drafted outline", 30)
	require.NoError(t, err)

	// The author can edit their own entry.
	updated, err := f.service.UpdateActivity(context.Background(), f.worker, activity.ID, "finished outline", 45)
	require.NoError(t, err)
	require.Equal(t, "finished outline", updated.Note)

	// Another plain user assigned to the task cannot edit it.
	other := &policy.Actor{UserID: uuid.New(), CompanyID: f.company, DepartmentID: f.deptA, Role: policy.RoleUser}
	f.directory.members[other.UserID] = [2]uuid.UUID{f.company, f.deptA}
	f.repo.tasks[task.ID] = withAssignee(f.repo.tasks[task.ID], other.UserID)

	_, err = f.service.UpdateActivity(context.Background(), other, activity.ID, "hijacked", 1)
	var denied *policy.DeniedError
	require.ErrorAs(t, err, &denied)
	require.Equal(t, policy.ReasonTaskAccessDenied, denied.Decision.Reason)

	// The department manager can.
	_, err = f.service.UpdateActivity(context.Background(), f.manager, activity.ID, "reviewed", 45)
	require.NoError(t, err)
}

func TestActivitiesRejectedOnRoutineTask(t *testing.T) {
	f := newFixture(t)
	task, err := f.service.Create(context.Background(), f.manager, CreateInput{
		Kind:  KindRoutine,
		Title: "Weekly cleanup",
	}, CreateOptions{})
	require.NoError(t, err)

	_, err = f.service.AddActivity(context.Background(), f.manager, task.ID, "note", 5)
	require.ErrorIs(t, err, ErrActivityOnWrongKind)
}

func TestReassignmentNotifiesOnlyNewAssignees(t *testing.T) {
	f := newFixture(t)
	second := uuid.New()
	f.directory.members[second] = [2]uuid.UUID{f.company, f.deptA}

	task, err := f.service.Create(context.Background(), f.manager, CreateInput{
		Kind:      KindAssigned,
		Title:     "Growing team",
		Assignees: []uuid.UUID{f.worker.UserID},
	}, CreateOptions{})
	require.NoError(t, err)

	_, err = f.service.Update(context.Background(), f.manager, task.ID, UpdateInput{
		Assignees: []uuid.UUID{f.worker.UserID, second},
	})
	require.NoError(t, err)
	require.Len(t, f.notifier.notified, 2)
	require.Equal(t, []uuid.UUID{second}, f.notifier.notified[1])
}

func withAssignee(task Task, userID uuid.UUID) Task {
	task.Assignees = append(task.Assignees, userID)
	return task
}
