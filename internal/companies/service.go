package companies

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/taskhive/taskhive/internal/policy"
)

// RepositoryPort defines data access methods for companies.
type RepositoryPort interface {
	Get(ctx context.Context, id uuid.UUID) (Company, error)
	Update(ctx context.Context, id uuid.UUID, name string) (Company, error)
}

// Service enforces policy around company access.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Get returns the actor's company. The fetched row is verified against the
// policy before it leaves the service.
func (s *Service) Get(ctx context.Context, actor *policy.Actor, id uuid.UUID) (Company, error) {
	company, err := s.repo.Get(ctx, id)
	if err != nil {
		return Company{}, err
	}
	decision, err := policy.Evaluate(actor, policy.OpRead, policy.ResourceCompany, policy.Scope{CompanyID: company.ID})
	if err != nil {
		return Company{}, err
	}
	if !decision.Allowed {
		return Company{}, policy.Denied(decision)
	}
	return company, nil
}

// Update renames the company. SuperAdmin only; every other role hits the
// Forbidden cell.
func (s *Service) Update(ctx context.Context, actor *policy.Actor, id uuid.UUID, name string) (Company, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Company{}, errors.New("companies: name required")
	}
	company, err := s.repo.Get(ctx, id)
	if err != nil {
		return Company{}, err
	}
	decision, err := policy.Evaluate(actor, policy.OpUpdate, policy.ResourceCompany, policy.Scope{CompanyID: company.ID})
	if err != nil {
		return Company{}, err
	}
	if !decision.Allowed {
		return Company{}, policy.Denied(decision)
	}
	return s.repo.Update(ctx, id, name)
}
