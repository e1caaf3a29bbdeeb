package auth

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/taskhive/taskhive/internal/policy"
	"github.com/taskhive/taskhive/internal/shared"
)

// ActorMiddleware resolves the session user into a policy actor on every
// request. Requests without a valid session pass through without an actor;
// per-route guards decide whether that is acceptable.
func ActorMiddleware(logger *slog.Logger, service *Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := shared.SessionFromContext(r.Context())
			if sess == nil || sess.User() == "" {
				next.ServeHTTP(w, r)
				return
			}
			userID, err := uuid.Parse(sess.User())
			if err != nil {
				logger.Warn("session holds malformed user id", slog.String("session", sess.ID))
				next.ServeHTTP(w, r)
				return
			}
			account, err := service.Resolve(r.Context(), userID)
			if err != nil {
				// Deleted or deactivated since login; treat as anonymous.
				next.ServeHTTP(w, r)
				return
			}
			ctx := policy.ContextWithActor(r.Context(), account.Actor())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
