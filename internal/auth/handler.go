package auth

import (
	"context"
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

// Auditor records login outcomes. A nil auditor disables recording.
type Auditor interface {
	LoginSucceeded(ctx context.Context, companyID, userID uuid.UUID, ip string)
	LoginFailed(ctx context.Context, email, ip string)
}

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	sessionManager *shared.SessionManager
	auditor        Auditor
	validator      *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, sessions *shared.SessionManager, auditor Auditor) *Handler {
	return &Handler{
		logger:         logger,
		service:        service,
		sessionManager: sessions,
		auditor:        auditor,
		validator:      validator.New(),
	}
}

// MountRoutes registers auth routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.login)
	r.Post("/logout", h.logout)
	r.Get("/me", h.me)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type accountResponse struct {
	ID           uuid.UUID   `json:"id"`
	CompanyID    uuid.UUID   `json:"company_id"`
	DepartmentID uuid.UUID   `json:"department_id"`
	Email        string      `json:"email"`
	Name         string      `json:"name"`
	Role         policy.Role `json:"role"`
}

func newAccountResponse(a Account) accountResponse {
	return accountResponse{
		ID:           a.ID,
		CompanyID:    a.CompanyID,
		DepartmentID: a.DepartmentID,
		Email:        a.Email,
		Name:         a.Name,
		Role:         a.Role,
	}
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	account, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if h.auditor != nil {
			h.auditor.LoginFailed(r.Context(), req.Email, r.RemoteAddr)
		}
		if errors.Is(err, shared.ErrInvalidCredentials) {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid email or password")
			return
		}
		h.logger.Error("authenticate", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("session missing during login")
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	sess.SetUser(account.ID.String())
	expiresAt := time.Now().Add(h.sessionManager.TTL())
	if err := h.service.RegisterSession(r.Context(), sess.ID, account.ID, expiresAt, r.RemoteAddr, r.UserAgent()); err != nil {
		h.logger.Warn("register session", slog.Any("error", err))
	}
	if h.auditor != nil {
		h.auditor.LoginSucceeded(r.Context(), account.CompanyID, account.ID, r.RemoteAddr)
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"user": newAccountResponse(account)})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		if err := h.service.RemoveSession(r.Context(), sess.ID); err != nil {
			h.logger.Warn("remove session", slog.Any("error", err))
		}
		h.sessionManager.Destroy(sess)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	actor := policy.ActorFromContext(r.Context())
	if actor == nil {
		policy.Respond(w, policy.Decision{Reason: policy.ReasonAuthenticationRequired})
		return
	}
	account, err := h.service.Resolve(r.Context(), actor.UserID)
	if err != nil {
		h.logger.Error("resolve current account", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"user": newAccountResponse(account)})
}
