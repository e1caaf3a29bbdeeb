package departments

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/taskhive/taskhive/internal/policy"
)

// RepositoryPort defines data access methods for departments.
type RepositoryPort interface {
	Get(ctx context.Context, id uuid.UUID) (Department, error)
	ListByCompany(ctx context.Context, companyID uuid.UUID) ([]Department, error)
	Create(ctx context.Context, companyID uuid.UUID, name string) (Department, error)
	Update(ctx context.Context, id uuid.UUID, name string) (Department, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Service enforces department policy on top of the repository.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Get fetches one department, verified against the policy after the fetch.
func (s *Service) Get(ctx context.Context, actor *policy.Actor, id uuid.UUID) (Department, error) {
	dept, err := s.repo.Get(ctx, id)
	if err != nil {
		return Department{}, err
	}
	if err := s.authorize(actor, policy.OpRead, dept); err != nil {
		return Department{}, err
	}
	return dept, nil
}

// List returns the departments visible to the actor: the whole company for
// SuperAdmin, the actor's own department for everyone else. The filter
// implements the same contract Evaluate enforces per item.
func (s *Service) List(ctx context.Context, actor *policy.Actor) ([]Department, error) {
	req, err := policy.RequiredScope(actor, policy.OpRead, policy.ResourceDepartment)
	if err != nil {
		return nil, err
	}
	switch req {
	case policy.CompanyWide:
		return s.repo.ListByCompany(ctx, actor.CompanyID)
	case policy.Department:
		dept, err := s.repo.Get(ctx, actor.DepartmentID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return []Department{}, nil
			}
			return nil, err
		}
		return []Department{dept}, nil
	default:
		return nil, policy.Denied(policy.Decision{Reason: policy.ReasonDepartmentAccessDenied})
	}
}

// Create adds a department. Only SuperAdmin passes the policy.
func (s *Service) Create(ctx context.Context, actor *policy.Actor, name string) (Department, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Department{}, errors.New("departments: name required")
	}
	decision, err := policy.Evaluate(actor, policy.OpCreate, policy.ResourceDepartment, policy.Scope{CompanyID: actor.CompanyID})
	if err != nil {
		return Department{}, err
	}
	if !decision.Allowed {
		return Department{}, policy.Denied(decision)
	}
	return s.repo.Create(ctx, actor.CompanyID, name)
}

// Update renames a department. Only SuperAdmin passes the policy.
func (s *Service) Update(ctx context.Context, actor *policy.Actor, id uuid.UUID, name string) (Department, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Department{}, errors.New("departments: name required")
	}
	dept, err := s.repo.Get(ctx, id)
	if err != nil {
		return Department{}, err
	}
	if err := s.authorize(actor, policy.OpUpdate, dept); err != nil {
		return Department{}, err
	}
	return s.repo.Update(ctx, id, name)
}

// Delete removes a department. Only SuperAdmin passes the policy.
func (s *Service) Delete(ctx context.Context, actor *policy.Actor, id uuid.UUID) error {
	dept, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authorize(actor, policy.OpDelete, dept); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) authorize(actor *policy.Actor, op policy.Operation, dept Department) error {
	decision, err := policy.Evaluate(actor, op, policy.ResourceDepartment, policy.Scope{
		CompanyID:    dept.CompanyID,
		DepartmentID: dept.ID,
	})
	if err != nil {
		return err
	}
	if !decision.Allowed {
		return policy.Denied(decision)
	}
	return nil
}
