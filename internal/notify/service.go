package notify

import (
	"context"

	"github.com/google/uuid"

	"github.com/taskhive/taskhive/internal/policy"
	"github.com/taskhive/taskhive/internal/shared"
)

// RepositoryPort defines data access methods for notifications.
type RepositoryPort interface {
	Get(ctx context.Context, id uuid.UUID) (Notification, error)
	ListForUser(ctx context.Context, userID uuid.UUID, page shared.PageRequest) ([]Notification, int, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
	Create(ctx context.Context, n Notification) (Notification, error)
	MarkRead(ctx context.Context, id uuid.UUID) (Notification, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListUnreadUserIDs(ctx context.Context, companyID uuid.UUID) ([]uuid.UUID, error)
}

// Service is the end-user inbox surface, gated by the self-scope policy.
type Service struct {
	repo  RepositoryPort
	cache *UnreadCache
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, cache *UnreadCache) *Service {
	return &Service{repo: repo, cache: cache}
}

// List pages the actor's own inbox. The user filter is unconditional: an
// inbox is personal even for SuperAdmin.
func (s *Service) List(ctx context.Context, actor *policy.Actor, page shared.PageRequest) ([]Notification, shared.Pagination, error) {
	list, total, err := s.repo.ListForUser(ctx, actor.UserID, page)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return list, shared.NewPagination(page.Page, page.PerPage, total), nil
}

// Unread returns the actor's unread count, served from cache when warm.
func (s *Service) Unread(ctx context.Context, actor *policy.Actor) (int, error) {
	if count, ok := s.cache.Get(ctx, actor.UserID); ok {
		return count, nil
	}
	count, err := s.repo.CountUnread(ctx, actor.UserID)
	if err != nil {
		return 0, err
	}
	s.cache.Set(ctx, actor.UserID, count)
	return count, nil
}

// MarkRead acknowledges one entry after the self-scope check.
func (s *Service) MarkRead(ctx context.Context, actor *policy.Actor, id uuid.UUID) (Notification, error) {
	notification, err := s.repo.Get(ctx, id)
	if err != nil {
		return Notification{}, err
	}
	if err := s.authorize(actor, policy.OpUpdate, notification); err != nil {
		return Notification{}, err
	}
	updated, err := s.repo.MarkRead(ctx, id)
	if err != nil {
		return Notification{}, err
	}
	s.cache.Invalidate(ctx, notification.UserID)
	return updated, nil
}

// Delete removes one entry after the self-scope check.
func (s *Service) Delete(ctx context.Context, actor *policy.Actor, id uuid.UUID) error {
	notification, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authorize(actor, policy.OpDelete, notification); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, notification.UserID)
	return nil
}

func (s *Service) authorize(actor *policy.Actor, op policy.Operation, n Notification) error {
	decision, err := policy.Evaluate(actor, op, policy.ResourceNotification, policy.Scope{
		CompanyID: n.CompanyID,
		OwnerID:   n.UserID,
	})
	if err != nil {
		return err
	}
	if !decision.Allowed {
		return policy.Denied(decision)
	}
	return nil
}
