// Package overview serves the dashboard summary: the few counters a client
// renders on its landing screen, gathered concurrently and filtered to the
// actor's scope.
package overview

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/taskhive/taskhive/internal/policy"
)

// TaskCounter supplies open-task counts.
type TaskCounter interface {
	CountOpenForUser(ctx context.Context, companyID, userID uuid.UUID) (int, error)
	CountOpenForDepartment(ctx context.Context, companyID, departmentID uuid.UUID) (int, error)
	CountOpenForCompany(ctx context.Context, companyID uuid.UUID) (int, error)
}

// InboxCounter supplies the unread notification count.
type InboxCounter interface {
	Unread(ctx context.Context, actor *policy.Actor) (int, error)
}

// Headcounter supplies active member counts.
type Headcounter interface {
	CountActiveByDepartment(ctx context.Context, companyID, departmentID uuid.UUID) (int, error)
	CountActiveByCompany(ctx context.Context, companyID uuid.UUID) (int, error)
}

// Summary is the dashboard payload. ScopeOpenTasks and ScopeMembers cover
// the widest slice the actor may see: their department for scoped roles,
// the whole company for SuperAdmin. Both are zero for plain users.
type Summary struct {
	MyOpenTasks         int    `json:"my_open_tasks"`
	UnreadNotifications int    `json:"unread_notifications"`
	Scope               string `json:"scope"`
	ScopeOpenTasks      int    `json:"scope_open_tasks,omitempty"`
	ScopeMembers        int    `json:"scope_members,omitempty"`
}

// Service aggregates the summary.
type Service struct {
	tasks     TaskCounter
	inbox     InboxCounter
	headcount Headcounter
}

// NewService builds a Service instance.
func NewService(tasks TaskCounter, inbox InboxCounter, headcount Headcounter) *Service {
	return &Service{tasks: tasks, inbox: inbox, headcount: headcount}
}

// Build assembles the summary for the actor, fanning the counters out.
func (s *Service) Build(ctx context.Context, actor *policy.Actor) (Summary, error) {
	var summary Summary
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		n, err := s.tasks.CountOpenForUser(ctx, actor.CompanyID, actor.UserID)
		if err != nil {
			return err
		}
		summary.MyOpenTasks = n
		return nil
	})

	g.Go(func() error {
		n, err := s.inbox.Unread(ctx, actor)
		if err != nil {
			return err
		}
		summary.UnreadNotifications = n
		return nil
	})

	switch {
	case actor.Role == policy.RoleSuperAdmin:
		summary.Scope = "company"
		g.Go(func() error {
			n, err := s.tasks.CountOpenForCompany(ctx, actor.CompanyID)
			if err != nil {
				return err
			}
			summary.ScopeOpenTasks = n
			return nil
		})
		g.Go(func() error {
			n, err := s.headcount.CountActiveByCompany(ctx, actor.CompanyID)
			if err != nil {
				return err
			}
			summary.ScopeMembers = n
			return nil
		})
	case actor.Role.DepartmentScoped():
		summary.Scope = "department"
		g.Go(func() error {
			n, err := s.tasks.CountOpenForDepartment(ctx, actor.CompanyID, actor.DepartmentID)
			if err != nil {
				return err
			}
			summary.ScopeOpenTasks = n
			return nil
		})
		g.Go(func() error {
			n, err := s.headcount.CountActiveByDepartment(ctx, actor.CompanyID, actor.DepartmentID)
			if err != nil {
				return err
			}
			summary.ScopeMembers = n
			return nil
		})
	default:
		summary.Scope = "self"
	}

	if err := g.Wait(); err != nil {
		return Summary{}, err
	}
	return summary, nil
}
