package audit

import (
	"context"

	"github.com/taskhive/taskhive/internal/policy"
	"github.com/taskhive/taskhive/internal/shared"
)

// Service serves the trail to SuperAdmin. The trail is the one read surface
// that crosses companies, so it sits outside the rule table and gates on
// role directly.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// List pages trail events for SuperAdmin. Everyone else is denied.
func (s *Service) List(ctx context.Context, actor *policy.Actor, filters Filters, page shared.PageRequest) ([]Event, shared.Pagination, error) {
	if actor.Role != policy.RoleSuperAdmin {
		return nil, shared.Pagination{}, policy.Denied(policy.Decision{Reason: policy.ReasonInsufficientPermissions})
	}
	events, total, err := s.repo.List(ctx, filters, page)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return events, shared.NewPagination(page.Page, page.PerPage, total), nil
}
