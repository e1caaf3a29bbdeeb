package tasks

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/taskhive/taskhive/internal/platform/httpx"
	"github.com/taskhive/taskhive/internal/policy"
	"github.com/taskhive/taskhive/internal/shared"
)

// Handler exposes task and activity endpoints. Routes are mounted per kind
// so the policy middleware can pin the correct resource type.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	guard     policy.Middleware
	validator *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard policy.Middleware) *Handler {
	return &Handler{logger: logger, service: service, guard: guard, validator: validator.New()}
}

// MountRoutes registers task routes under /assigned, /project and /routine.
func (h *Handler) MountRoutes(r chi.Router) {
	for _, kind := range []Kind{KindAssigned, KindProject, KindRoutine} {
		kind := kind
		r.Route("/"+string(kind), func(r chi.Router) {
			res := kind.Resource()
			r.Group(func(r chi.Router) {
				r.Use(h.guard.Require(res, policy.OpRead))
				r.Get("/", h.list(kind))
				r.Get("/{taskID}", h.get)
			})
			r.Group(func(r chi.Router) {
				r.Use(h.guard.Require(res, policy.OpCreate))
				r.Post("/", h.create(kind))
			})
			r.Group(func(r chi.Router) {
				r.Use(h.guard.Require(res, policy.OpUpdate))
				r.Put("/{taskID}", h.update)
			})
			r.Group(func(r chi.Router) {
				r.Use(h.guard.Require(res, policy.OpDelete))
				r.Delete("/{taskID}", h.remove)
			})
		})
	}

	// Activity log lives on assigned tasks only.
	r.Route("/assigned/{taskID}/activities", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(h.guard.Require(policy.ResourceTaskActivity, policy.OpRead))
			r.Get("/", h.listActivities)
		})
		r.Group(func(r chi.Router) {
			r.Use(h.guard.Require(policy.ResourceTaskActivity, policy.OpCreate))
			r.Post("/", h.addActivity)
		})
	})
	r.Route("/activities/{activityID}", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(h.guard.Require(policy.ResourceTaskActivity, policy.OpUpdate))
			r.Put("/", h.updateActivity)
		})
		r.Group(func(r chi.Router) {
			r.Use(h.guard.Require(policy.ResourceTaskActivity, policy.OpDelete))
			r.Delete("/", h.removeActivity)
		})
	})
}

type createTaskRequest struct {
	Title        string   `json:"title" validate:"required,min=2,max=200"`
	Description  string   `json:"description" validate:"max=4000"`
	Priority     string   `json:"priority" validate:"omitempty,oneof=low normal high"`
	DueDate      *string  `json:"due_date"`
	DepartmentID string   `json:"department_id" validate:"omitempty,uuid4"`
	Assignees    []string `json:"assignees" validate:"dive,uuid4"`
}

type updateTaskRequest struct {
	Title       *string  `json:"title" validate:"omitempty,min=2,max=200"`
	Description *string  `json:"description" validate:"omitempty,max=4000"`
	Status      *string  `json:"status" validate:"omitempty,oneof=open in_progress completed cancelled"`
	Priority    *string  `json:"priority" validate:"omitempty,oneof=low normal high"`
	DueDate     *string  `json:"due_date"`
	ClearDue    bool     `json:"clear_due"`
	Assignees   []string `json:"assignees" validate:"omitempty,dive,uuid4"`
}

type activityRequest struct {
	Note    string `json:"note" validate:"required,min=1,max=2000"`
	Minutes int    `json:"minutes" validate:"gte=0,lte=1440"`
}

func (h *Handler) list(kind Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page := shared.ParsePageRequest(r)
		list, pagination, err := h.service.List(r.Context(), policy.ActorFromContext(r.Context()), kind, page)
		if err != nil {
			h.respondError(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]any{"tasks": list, "pagination": pagination})
	}
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathUUID(w, r, "taskID")
	if !ok {
		return
	}
	task, err := h.service.Get(r.Context(), policy.ActorFromContext(r.Context()), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, task)
}

func (h *Handler) create(kind Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createTaskRequest
		if !h.decode(w, r, &req) {
			return
		}
		dueDate, ok := h.parseDue(w, req.DueDate)
		if !ok {
			return
		}
		assignees, ok := h.parseAssignees(w, req.Assignees)
		if !ok {
			return
		}
		var opts CreateOptions
		if req.DepartmentID != "" {
			deptID, err := uuid.Parse(req.DepartmentID)
			if err != nil {
				httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid department id")
				return
			}
			opts.DepartmentID = deptID
		}
		task, err := h.service.Create(r.Context(), policy.ActorFromContext(r.Context()), CreateInput{
			Kind:        kind,
			Title:       req.Title,
			Description: req.Description,
			Priority:    Priority(req.Priority),
			DueDate:     dueDate,
			Assignees:   assignees,
		}, opts)
		if err != nil {
			h.respondError(w, err)
			return
		}
		httpx.JSON(w, http.StatusCreated, task)
	}
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathUUID(w, r, "taskID")
	if !ok {
		return
	}
	var req updateTaskRequest
	if !h.decode(w, r, &req) {
		return
	}
	dueDate, ok := h.parseDue(w, req.DueDate)
	if !ok {
		return
	}
	input := UpdateInput{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     dueDate,
		ClearDue:    req.ClearDue,
	}
	if req.Status != nil {
		status := Status(*req.Status)
		input.Status = &status
	}
	if req.Priority != nil {
		priority := Priority(*req.Priority)
		input.Priority = &priority
	}
	if req.Assignees != nil {
		assignees, ok := h.parseAssignees(w, req.Assignees)
		if !ok {
			return
		}
		input.Assignees = assignees
	}
	task, err := h.service.Update(r.Context(), policy.ActorFromContext(r.Context()), id, input)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, task)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathUUID(w, r, "taskID")
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), policy.ActorFromContext(r.Context()), id); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listActivities(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathUUID(w, r, "taskID")
	if !ok {
		return
	}
	activities, err := h.service.ListActivities(r.Context(), policy.ActorFromContext(r.Context()), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"activities": activities})
}

func (h *Handler) addActivity(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathUUID(w, r, "taskID")
	if !ok {
		return
	}
	var req activityRequest
	if !h.decode(w, r, &req) {
		return
	}
	activity, err := h.service.AddActivity(r.Context(), policy.ActorFromContext(r.Context()), id, req.Note, req.Minutes)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, activity)
}

func (h *Handler) updateActivity(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathUUID(w, r, "activityID")
	if !ok {
		return
	}
	var req activityRequest
	if !h.decode(w, r, &req) {
		return
	}
	activity, err := h.service.UpdateActivity(r.Context(), policy.ActorFromContext(r.Context()), id, req.Note, req.Minutes)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, activity)
}

func (h *Handler) removeActivity(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathUUID(w, r, "activityID")
	if !ok {
		return
	}
	if err := h.service.DeleteActivity(r.Context(), policy.ActorFromContext(r.Context()), id); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) parseDue(w http.ResponseWriter, raw *string) (*time.Time, bool) {
	if raw == nil || *raw == "" {
		return nil, true
	}
	due, err := time.Parse("2006-01-02", *raw)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "due_date must be YYYY-MM-DD")
		return nil, false
	}
	return &due, true
}

func (h *Handler) parseAssignees(w http.ResponseWriter, raw []string) ([]uuid.UUID, bool) {
	if raw == nil {
		return nil, true
	}
	assignees := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid assignee id")
			return nil, false
		}
		assignees = append(assignees, id)
	}
	return assignees, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid body")
		return false
	}
	if err := h.validator.Struct(target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return false
	}
	return true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	var denied *policy.DeniedError
	switch {
	case errors.As(err, &denied):
		policy.Respond(w, denied.Decision)
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "task not found")
	case errors.Is(err, ErrInvalidKind), errors.Is(err, ErrInvalidInput), errors.Is(err, ErrActivityOnWrongKind):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrAssigneeOutsideDepartment):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Invalid Assignment", err.Error())
	default:
		h.logger.Error("tasks handler", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
