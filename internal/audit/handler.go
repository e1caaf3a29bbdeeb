package audit

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/taskhive/taskhive/internal/platform/httpx"
	"github.com/taskhive/taskhive/internal/policy"
	"github.com/taskhive/taskhive/internal/shared"
)

// Handler exposes the audit trail endpoint.
type Handler struct {
	logger  *slog.Logger
	service *Service
	guard   policy.Middleware
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard policy.Middleware) *Handler {
	return &Handler{logger: logger, service: service, guard: guard}
}

// MountRoutes registers audit routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAuthenticated)
		r.Get("/", h.list)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filters, err := parseFilters(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	page := shared.ParsePageRequest(r)

	events, pagination, err := h.service.List(r.Context(), policy.ActorFromContext(r.Context()), filters, page)
	if err != nil {
		var denied *policy.DeniedError
		if errors.As(err, &denied) {
			policy.Respond(w, denied.Decision)
			return
		}
		h.logger.Error("audit handler", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"events": events, "pagination": pagination})
}

func parseFilters(r *http.Request) (Filters, error) {
	var filters Filters
	query := r.URL.Query()
	if raw := query.Get("company_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return Filters{}, errors.New("invalid company_id")
		}
		filters.CompanyID = id
	}
	filters.Action = query.Get("action")
	if raw := query.Get("from"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return Filters{}, errors.New("invalid from timestamp")
		}
		filters.From = from
	}
	if raw := query.Get("to"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return Filters{}, errors.New("invalid to timestamp")
		}
		filters.To = to
	}
	return filters, nil
}
