package policy

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/taskhive/taskhive/internal/platform/httpx"
)

// DeniedError wraps a denial Decision so services can return it through the
// usual error path. errors.As in handlers recovers the Decision.
type DeniedError struct {
	Decision Decision
}

func (e *DeniedError) Error() string {
	return "policy: denied: " + string(e.Decision.Reason)
}

// Denied builds a DeniedError from a decision.
func Denied(d Decision) *DeniedError {
	return &DeniedError{Decision: d}
}

// StatusFor maps a denial reason to its transport status code.
func StatusFor(reason Reason) int {
	if reason == ReasonAuthenticationRequired {
		return http.StatusUnauthorized
	}
	return http.StatusForbidden
}

// Respond writes a denial Decision as an RFC7807 problem with the reason as
// machine-readable code.
func Respond(w http.ResponseWriter, d Decision) {
	status := StatusFor(d.Reason)
	httpx.ProblemCode(w, status, http.StatusText(status), "", string(d.Reason))
}

// DecisionObserver receives every middleware-level judgment, for metrics.
type DecisionObserver interface {
	ObserveDecision(resource, operation string, allowed bool, reason string)
}

// DenialRecorder persists denied decisions for the audit trail.
type DenialRecorder interface {
	RecordDenial(ctx context.Context, actor *Actor, resource, operation string, reason Reason)
}

// Middleware performs the cheap early reject on routes: authentication and
// the Forbidden cells of the rule table. The authoritative check is the
// service-layer Evaluate call with the full scope, after the row is fetched.
type Middleware struct {
	Logger   *slog.Logger
	Observer DecisionObserver
	Audit    DenialRecorder
}

// Require rejects requests whose actor could never pass the rule for the
// given resource and operation, before any data is fetched.
func (m Middleware) Require(res ResourceType, op Operation) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := ActorFromContext(r.Context())
			if actor == nil {
				m.reject(w, r, nil, res, op, deny(ReasonAuthenticationRequired))
				return
			}
			req, err := RequiredScope(actor, op, res)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Error("policy require", slog.Any("error", err))
				}
				httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
				return
			}
			if req == Forbidden {
				m.reject(w, r, actor, res, op, deny(forbiddenReason(res)))
				return
			}
			m.observe(res, op, true, "")
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuthenticated rejects unauthenticated requests without consulting
// the rule table. Used for routes whose scope is purely the actor itself.
func (m Middleware) RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ActorFromContext(r.Context()) == nil {
			Respond(w, deny(ReasonAuthenticationRequired))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m Middleware) reject(w http.ResponseWriter, r *http.Request, actor *Actor, res ResourceType, op Operation, d Decision) {
	m.observe(res, op, false, string(d.Reason))
	if m.Audit != nil && actor != nil {
		m.Audit.RecordDenial(r.Context(), actor, res.String(), op.String(), d.Reason)
	}
	if m.Logger != nil {
		m.Logger.Warn("policy early reject",
			slog.String("resource", res.String()),
			slog.String("operation", op.String()),
			slog.String("reason", string(d.Reason)),
			slog.String("path", r.URL.Path))
	}
	Respond(w, d)
}

func (m Middleware) observe(res ResourceType, op Operation, allowed bool, reason string) {
	if m.Observer != nil {
		m.Observer.ObserveDecision(res.String(), op.String(), allowed, reason)
	}
}
