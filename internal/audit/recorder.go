package audit

import (
	"context"
	"log/slog"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/taskhive/taskhive/internal/policy"
)

// Recorder writes trail events. Recording is best effort: a failed insert
// is logged and never propagated to the caller path that triggered it.
type Recorder struct {
	repo   RepositoryPort
	logger *slog.Logger
}

// NewRecorder builds a Recorder instance.
func NewRecorder(repo RepositoryPort, logger *slog.Logger) *Recorder {
	return &Recorder{repo: repo, logger: logger}
}

// RecordDenial persists a policy denial.
func (r *Recorder) RecordDenial(ctx context.Context, actor *policy.Actor, resource, operation string, reason policy.Reason) {
	r.insert(ctx, Event{
		CompanyID: actor.CompanyID,
		ActorID:   actor.UserID,
		Action:    ActionPolicyDenied,
		Resource:  resource,
		Operation: operation,
		Reason:    string(reason),
		RequestID: middleware.GetReqID(ctx),
	})
}

// LoginSucceeded persists a successful login.
func (r *Recorder) LoginSucceeded(ctx context.Context, companyID, userID uuid.UUID, ip string) {
	r.insert(ctx, Event{
		CompanyID: companyID,
		ActorID:   userID,
		Action:    ActionLoginSucceeded,
		Detail:    ip,
		RequestID: middleware.GetReqID(ctx),
	})
}

// LoginFailed persists a failed login attempt. There is no actor yet, so
// the submitted email goes into the detail field.
func (r *Recorder) LoginFailed(ctx context.Context, email, ip string) {
	r.insert(ctx, Event{
		Action:    ActionLoginFailed,
		Detail:    email + " from " + ip,
		RequestID: middleware.GetReqID(ctx),
	})
}

func (r *Recorder) insert(ctx context.Context, event Event) {
	if err := r.repo.Insert(ctx, event); err != nil && r.logger != nil {
		r.logger.Error("audit record", slog.Any("error", err), slog.String("action", event.Action))
	}
}

var _ policy.DenialRecorder = (*Recorder)(nil)
