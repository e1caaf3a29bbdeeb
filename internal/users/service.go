package users

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/taskhive/taskhive/internal/policy"
)

// ErrWeakPassword rejects passwords below the minimum length.
var ErrWeakPassword = errors.New("users: password too short")

const minPasswordLength = 8

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	Get(ctx context.Context, id uuid.UUID) (User, error)
	ListByCompany(ctx context.Context, companyID uuid.UUID) ([]User, error)
	ListByDepartment(ctx context.Context, companyID, departmentID uuid.UUID) ([]User, error)
	Create(ctx context.Context, params CreateParams) (User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, name string) (User, error)
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Service handles user business logic behind the policy.
type Service struct {
	repo  RepositoryPort
	title cases.Caser
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo, title: cases.Title(language.English)}
}

// Get fetches one user, verified against the policy after the fetch.
func (s *Service) Get(ctx context.Context, actor *policy.Actor, id uuid.UUID) (User, error) {
	user, err := s.repo.Get(ctx, id)
	if err != nil {
		return User{}, err
	}
	if err := s.authorize(actor, policy.OpRead, user); err != nil {
		return User{}, err
	}
	return user, nil
}

// List returns the users visible to the actor: whole company for SuperAdmin,
// own department for Admin/Manager, just themselves for User.
func (s *Service) List(ctx context.Context, actor *policy.Actor) ([]User, error) {
	req, err := policy.RequiredScope(actor, policy.OpRead, policy.ResourceUser)
	if err != nil {
		return nil, err
	}
	switch req {
	case policy.CompanyWide:
		return s.repo.ListByCompany(ctx, actor.CompanyID)
	case policy.Department:
		return s.repo.ListByDepartment(ctx, actor.CompanyID, actor.DepartmentID)
	case policy.Self:
		self, err := s.repo.Get(ctx, actor.UserID)
		if err != nil {
			return nil, err
		}
		return []User{self}, nil
	default:
		return nil, policy.Denied(policy.Decision{Reason: policy.ReasonUserAccessDenied})
	}
}

// CreateInput carries the provisioning request.
type CreateInput struct {
	DepartmentID uuid.UUID
	Email        string
	Name         string
	Role         policy.Role
	Password     string
}

// Create provisions a user inside the actor's company. SuperAdmin only.
func (s *Service) Create(ctx context.Context, actor *policy.Actor, input CreateInput) (User, error) {
	decision, err := policy.Evaluate(actor, policy.OpCreate, policy.ResourceUser, policy.Scope{CompanyID: actor.CompanyID})
	if err != nil {
		return User{}, err
	}
	if !decision.Allowed {
		return User{}, policy.Denied(decision)
	}
	if len(input.Password) < minPasswordLength {
		return User{}, ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}
	return s.repo.Create(ctx, CreateParams{
		CompanyID:    actor.CompanyID,
		DepartmentID: input.DepartmentID,
		Email:        strings.ToLower(strings.TrimSpace(input.Email)),
		Name:         s.normalizeName(input.Name),
		Role:         input.Role,
		PasswordHash: string(hash),
	})
}

// UpdateProfile changes the target's display name. Self-scoped: only the
// profile owner (or SuperAdmin) passes the policy.
func (s *Service) UpdateProfile(ctx context.Context, actor *policy.Actor, id uuid.UUID, name string) (User, error) {
	user, err := s.repo.Get(ctx, id)
	if err != nil {
		return User{}, err
	}
	if err := s.authorize(actor, policy.OpUpdate, user); err != nil {
		return User{}, err
	}
	name = s.normalizeName(name)
	if name == "" {
		return User{}, errors.New("users: name required")
	}
	return s.repo.UpdateProfile(ctx, id, name)
}

// ChangePassword rotates the target's password. Same self-scope as profile
// updates.
func (s *Service) ChangePassword(ctx context.Context, actor *policy.Actor, id uuid.UUID, password string) error {
	user, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authorize(actor, policy.OpUpdate, user); err != nil {
		return err
	}
	if len(password) < minPasswordLength {
		return ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.repo.UpdatePasswordHash(ctx, id, string(hash))
}

// Delete removes a user. SuperAdmin only.
func (s *Service) Delete(ctx context.Context, actor *policy.Actor, id uuid.UUID) error {
	user, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authorize(actor, policy.OpDelete, user); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// Membership reports a user's company and department, for assignee
// validation on the task write path. Not policy gated: it exposes no data
// beyond what the caller already supplies.
func (s *Service) Membership(ctx context.Context, id uuid.UUID) (uuid.UUID, uuid.UUID, error) {
	user, err := s.repo.Get(ctx, id)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return user.CompanyID, user.DepartmentID, nil
}

func (s *Service) authorize(actor *policy.Actor, op policy.Operation, target User) error {
	decision, err := policy.Evaluate(actor, op, policy.ResourceUser, policy.Scope{
		CompanyID:    target.CompanyID,
		DepartmentID: target.DepartmentID,
		OwnerID:      target.ID,
	})
	if err != nil {
		return err
	}
	if !decision.Allowed {
		return policy.Denied(decision)
	}
	return nil
}

func (s *Service) normalizeName(name string) string {
	return s.title.String(strings.TrimSpace(name))
}
