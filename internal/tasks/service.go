package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/taskhive/taskhive/internal/policy"
	"github.com/taskhive/taskhive/internal/shared"
)

var (
	// ErrInvalidKind rejects an unknown task variant.
	ErrInvalidKind = errors.New("tasks: invalid task kind")
	// ErrInvalidInput rejects malformed create/update payloads.
	ErrInvalidInput = errors.New("tasks: invalid input")
	// ErrAssigneeOutsideDepartment enforces the same-department assignment
	// rule at the write path.
	ErrAssigneeOutsideDepartment = errors.New("tasks: assignee outside task department")
	// ErrActivityOnWrongKind limits activity logs to assigned tasks.
	ErrActivityOnWrongKind = errors.New("tasks: activities exist only on assigned tasks")
)

// RepositoryPort defines data access methods for tasks and activities.
type RepositoryPort interface {
	Get(ctx context.Context, id uuid.UUID) (Task, error)
	ListByDepartment(ctx context.Context, companyID, departmentID uuid.UUID, kind Kind, page shared.PageRequest) ([]Task, int, error)
	ListByCompany(ctx context.Context, companyID uuid.UUID, kind Kind, page shared.PageRequest) ([]Task, int, error)
	ListAssignedTo(ctx context.Context, companyID, userID uuid.UUID, page shared.PageRequest) ([]Task, int, error)
	Create(ctx context.Context, task Task) (Task, error)
	Update(ctx context.Context, task Task, assignees []uuid.UUID) (Task, error)
	Delete(ctx context.Context, id uuid.UUID) error
	GetActivity(ctx context.Context, id uuid.UUID) (Activity, error)
	ListActivities(ctx context.Context, taskID uuid.UUID) ([]Activity, error)
	CreateActivity(ctx context.Context, activity Activity) (Activity, error)
	UpdateActivity(ctx context.Context, id uuid.UUID, note string, minutes int) (Activity, error)
	DeleteActivity(ctx context.Context, id uuid.UUID) error
}

// Directory resolves user membership for assignment validation.
type Directory interface {
	Membership(ctx context.Context, userID uuid.UUID) (companyID, departmentID uuid.UUID, err error)
}

// Notifier records system notifications for task events. Implemented by the
// notify package's trusted recorder; never subject to the end-user policy.
type Notifier interface {
	TaskAssigned(ctx context.Context, companyID uuid.UUID, userIDs []uuid.UUID, taskID uuid.UUID, title string) error
}

// Service enforces task policy and the write-path invariants.
type Service struct {
	repo      RepositoryPort
	directory Directory
	notifier  Notifier
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, directory Directory, notifier Notifier) *Service {
	return &Service{repo: repo, directory: directory, notifier: notifier}
}

// Get fetches one task, verified against the per-kind policy after the
// fetch. This is the authoritative check; the route middleware only does the
// cheap class-level reject.
func (s *Service) Get(ctx context.Context, actor *policy.Actor, id uuid.UUID) (Task, error) {
	task, err := s.repo.Get(ctx, id)
	if err != nil {
		return Task{}, err
	}
	if err := s.authorize(actor, policy.OpRead, task); err != nil {
		return Task{}, err
	}
	return task, nil
}

// List pages the tasks of one kind visible to the actor. The scope
// requirement from the rule table becomes the query filter, so out-of-scope
// rows are never fetched.
func (s *Service) List(ctx context.Context, actor *policy.Actor, kind Kind, page shared.PageRequest) ([]Task, shared.Pagination, error) {
	if !kind.Valid() {
		return nil, shared.Pagination{}, ErrInvalidKind
	}
	req, err := policy.RequiredScope(actor, policy.OpRead, kind.Resource())
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	var (
		list  []Task
		total int
	)
	switch req {
	case policy.CompanyWide:
		list, total, err = s.repo.ListByCompany(ctx, actor.CompanyID, kind, page)
	case policy.Department:
		list, total, err = s.repo.ListByDepartment(ctx, actor.CompanyID, actor.DepartmentID, kind, page)
	case policy.SelfAssigned:
		list, total, err = s.repo.ListAssignedTo(ctx, actor.CompanyID, actor.UserID, page)
	default:
		return nil, shared.Pagination{}, policy.Denied(policy.Decision{Reason: policy.ReasonTaskAccessDenied})
	}
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return list, shared.NewPagination(page.Page, page.PerPage, total), nil
}

// CreateInput carries a task creation request.
type CreateInput struct {
	Kind        Kind
	Title       string
	Description string
	Priority    Priority
	DueDate     *time.Time
	Assignees   []uuid.UUID
}

// Create adds a task in the actor's department (SuperAdmin may target any
// department via DepartmentID override).
type CreateOptions struct {
	DepartmentID uuid.UUID
}

// Create inserts a task after the policy and assignment checks pass.
func (s *Service) Create(ctx context.Context, actor *policy.Actor, input CreateInput, opts CreateOptions) (Task, error) {
	if !input.Kind.Valid() {
		return Task{}, ErrInvalidKind
	}
	input.Title = strings.TrimSpace(input.Title)
	if input.Title == "" {
		return Task{}, fmt.Errorf("%w: title required", ErrInvalidInput)
	}
	if input.Priority == "" {
		input.Priority = PriorityNormal
	}
	if !input.Priority.Valid() {
		return Task{}, fmt.Errorf("%w: unknown priority", ErrInvalidInput)
	}

	departmentID := actor.DepartmentID
	if opts.DepartmentID != uuid.Nil {
		departmentID = opts.DepartmentID
	}

	decision, err := policy.Evaluate(actor, policy.OpCreate, input.Kind.Resource(), policy.Scope{
		CompanyID:       actor.CompanyID,
		DepartmentID:    departmentID,
		OwnerID:         actor.UserID,
		AssignedUserIDs: []uuid.UUID{},
	})
	if err != nil {
		return Task{}, err
	}
	if !decision.Allowed {
		return Task{}, policy.Denied(decision)
	}

	if input.Kind == KindAssigned {
		if err := s.validateAssignees(ctx, actor.CompanyID, departmentID, input.Assignees); err != nil {
			return Task{}, err
		}
	} else if len(input.Assignees) > 0 {
		return Task{}, fmt.Errorf("%w: only assigned tasks carry assignees", ErrInvalidInput)
	}

	task, err := s.repo.Create(ctx, Task{
		CompanyID:    actor.CompanyID,
		DepartmentID: departmentID,
		Kind:         input.Kind,
		Title:        input.Title,
		Description:  strings.TrimSpace(input.Description),
		Status:       StatusOpen,
		Priority:     input.Priority,
		DueDate:      input.DueDate,
		CreatedBy:    actor.UserID,
		Assignees:    input.Assignees,
	})
	if err != nil {
		return Task{}, err
	}
	s.notifyAssigned(ctx, task, input.Assignees)
	return task, nil
}

// UpdateInput carries a task update request. Nil pointers leave the field
// untouched; a non-nil Assignees replaces the whole set.
type UpdateInput struct {
	Title       *string
	Description *string
	Status      *Status
	Priority    *Priority
	DueDate     *time.Time
	ClearDue    bool
	Assignees   []uuid.UUID
}

// Update mutates a task after the per-kind policy check.
func (s *Service) Update(ctx context.Context, actor *policy.Actor, id uuid.UUID, input UpdateInput) (Task, error) {
	task, err := s.repo.Get(ctx, id)
	if err != nil {
		return Task{}, err
	}
	if err := s.authorize(actor, policy.OpUpdate, task); err != nil {
		return Task{}, err
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return Task{}, fmt.Errorf("%w: title required", ErrInvalidInput)
		}
		task.Title = title
	}
	if input.Description != nil {
		task.Description = strings.TrimSpace(*input.Description)
	}
	if input.Status != nil {
		if !input.Status.Valid() {
			return Task{}, fmt.Errorf("%w: unknown status", ErrInvalidInput)
		}
		task.Status = *input.Status
	}
	if input.Priority != nil {
		if !input.Priority.Valid() {
			return Task{}, fmt.Errorf("%w: unknown priority", ErrInvalidInput)
		}
		task.Priority = *input.Priority
	}
	if input.ClearDue {
		task.DueDate = nil
	} else if input.DueDate != nil {
		task.DueDate = input.DueDate
	}

	var newAssignees []uuid.UUID
	if input.Assignees != nil {
		if task.Kind != KindAssigned {
			return Task{}, fmt.Errorf("%w: only assigned tasks carry assignees", ErrInvalidInput)
		}
		if err := s.validateAssignees(ctx, task.CompanyID, task.DepartmentID, input.Assignees); err != nil {
			return Task{}, err
		}
		newAssignees = diffAssignees(task.Assignees, input.Assignees)
	}

	updated, err := s.repo.Update(ctx, task, input.Assignees)
	if err != nil {
		return Task{}, err
	}
	s.notifyAssigned(ctx, updated, newAssignees)
	return updated, nil
}

// Delete removes a task after the per-kind policy check.
func (s *Service) Delete(ctx context.Context, actor *policy.Actor, id uuid.UUID) error {
	task, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authorize(actor, policy.OpDelete, task); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// ListActivities returns the activity log of an assigned task, gated by the
// activity read policy on the parent task's scope.
func (s *Service) ListActivities(ctx context.Context, actor *policy.Actor, taskID uuid.UUID) ([]Activity, error) {
	task, err := s.activityParent(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeActivity(actor, policy.OpRead, task, actor.UserID); err != nil {
		return nil, err
	}
	return s.repo.ListActivities(ctx, taskID)
}

// AddActivity appends a work log entry.
func (s *Service) AddActivity(ctx context.Context, actor *policy.Actor, taskID uuid.UUID, note string, minutes int) (Activity, error) {
	note = strings.TrimSpace(note)
	if note == "" {
		return Activity{}, fmt.Errorf("%w: note required", ErrInvalidInput)
	}
	if minutes < 0 {
		return Activity{}, fmt.Errorf("%w: negative minutes", ErrInvalidInput)
	}
	task, err := s.activityParent(ctx, taskID)
	if err != nil {
		return Activity{}, err
	}
	if err := s.authorizeActivity(actor, policy.OpCreate, task, actor.UserID); err != nil {
		return Activity{}, err
	}
	return s.repo.CreateActivity(ctx, Activity{
		TaskID:      taskID,
		CompanyID:   task.CompanyID,
		PerformedBy: actor.UserID,
		Note:        note,
		Minutes:     minutes,
	})
}

// UpdateActivity rewrites an entry. For the User role this requires both
// authorship and current assignment on the parent task.
func (s *Service) UpdateActivity(ctx context.Context, actor *policy.Actor, id uuid.UUID, note string, minutes int) (Activity, error) {
	note = strings.TrimSpace(note)
	if note == "" {
		return Activity{}, fmt.Errorf("%w: note required", ErrInvalidInput)
	}
	activity, err := s.repo.GetActivity(ctx, id)
	if err != nil {
		return Activity{}, err
	}
	task, err := s.activityParent(ctx, activity.TaskID)
	if err != nil {
		return Activity{}, err
	}
	if err := s.authorizeActivity(actor, policy.OpUpdate, task, activity.PerformedBy); err != nil {
		return Activity{}, err
	}
	return s.repo.UpdateActivity(ctx, id, note, minutes)
}

// DeleteActivity removes an entry under the same rule as UpdateActivity.
func (s *Service) DeleteActivity(ctx context.Context, actor *policy.Actor, id uuid.UUID) error {
	activity, err := s.repo.GetActivity(ctx, id)
	if err != nil {
		return err
	}
	task, err := s.activityParent(ctx, activity.TaskID)
	if err != nil {
		return err
	}
	if err := s.authorizeActivity(actor, policy.OpDelete, task, activity.PerformedBy); err != nil {
		return err
	}
	return s.repo.DeleteActivity(ctx, id)
}

func (s *Service) authorize(actor *policy.Actor, op policy.Operation, task Task) error {
	decision, err := policy.Evaluate(actor, op, task.Kind.Resource(), task.Scope())
	if err != nil {
		return err
	}
	if !decision.Allowed {
		return policy.Denied(decision)
	}
	return nil
}

func (s *Service) authorizeActivity(actor *policy.Actor, op policy.Operation, task Task, author uuid.UUID) error {
	assignees := task.Assignees
	if assignees == nil {
		assignees = []uuid.UUID{}
	}
	decision, err := policy.Evaluate(actor, op, policy.ResourceTaskActivity, policy.Scope{
		CompanyID:       task.CompanyID,
		DepartmentID:    task.DepartmentID,
		OwnerID:         author,
		AssignedUserIDs: assignees,
	})
	if err != nil {
		return err
	}
	if !decision.Allowed {
		return policy.Denied(decision)
	}
	return nil
}

func (s *Service) activityParent(ctx context.Context, taskID uuid.UUID) (Task, error) {
	task, err := s.repo.Get(ctx, taskID)
	if err != nil {
		return Task{}, err
	}
	if task.Kind != KindAssigned {
		return Task{}, ErrActivityOnWrongKind
	}
	return task, nil
}

func (s *Service) validateAssignees(ctx context.Context, companyID, departmentID uuid.UUID, assignees []uuid.UUID) error {
	for _, userID := range assignees {
		memberCompany, memberDept, err := s.directory.Membership(ctx, userID)
		if err != nil {
			return fmt.Errorf("tasks: resolve assignee %s: %w", userID, err)
		}
		if memberCompany != companyID || memberDept != departmentID {
			return ErrAssigneeOutsideDepartment
		}
	}
	return nil
}

func (s *Service) notifyAssigned(ctx context.Context, task Task, assignees []uuid.UUID) {
	if s.notifier == nil || len(assignees) == 0 {
		return
	}
	// Notification delivery must not fail the task write.
	_ = s.notifier.TaskAssigned(ctx, task.CompanyID, assignees, task.ID, task.Title)
}

// diffAssignees returns the members of next that are not in prev.
func diffAssignees(prev, next []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(prev))
	for _, id := range prev {
		seen[id] = struct{}{}
	}
	added := make([]uuid.UUID, 0)
	for _, id := range next {
		if _, ok := seen[id]; !ok {
			added = append(added, id)
		}
	}
	return added
}
