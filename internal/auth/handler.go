package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/horizon-hrms/horizon-hrms/internal/platform/httpx"
	"github.com/horizon-hrms/horizon-hrms/internal/rbac"
	"github.com/horizon-hrms/horizon-hrms/internal/shared"
)

// Handler exposes login, logout and identity endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
	mw        Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		validator: validator.New(),
		mw:        Middleware{Service: service, Logger: logger},
	}
}

// MountRoutes registers auth routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.login)
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequireActor)
		r.Post("/logout", h.logout)
		r.Get("/me", h.me)
	})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginResponse struct {
	Token string   `json:"token"`
	User  userView `json:"user"`
}

type userView struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	IsActive bool   `json:"is_active"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	user, token, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, shared.ErrInvalidCredentials) {
			httpx.RespondError(w, httpx.ErrUnauthorized)
			return
		}
		h.logger.Error("login", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, loginResponse{
		Token: token,
		User:  userView{ID: user.ID, Email: user.Email, Name: user.Name, IsActive: user.IsActive},
	})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Logout(r.Context(), BearerToken(r)); err != nil {
		if errors.Is(err, ErrUnauthenticated) {
			httpx.RespondError(w, httpx.ErrUnauthorized)
			return
		}
		h.logger.Error("logout", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

type meResponse struct {
	ID               int64   `json:"id"`
	IsActive         bool    `json:"is_active"`
	RoleIDs          []int64 `json:"role_ids"`
	ChiefOfModuleIDs []int64 `json:"chief_of_module_ids"`
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	actor := rbac.ActorFromContext(r.Context())
	httpx.JSON(w, http.StatusOK, meResponse{
		ID:               actor.ID,
		IsActive:         actor.IsActive,
		RoleIDs:          actor.RoleIDs,
		ChiefOfModuleIDs: actor.ChiefOfModuleIDs,
	})
}
