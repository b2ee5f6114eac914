package catalog

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/horizon-hrms/horizon-hrms/internal/platform/httpx"
	"github.com/horizon-hrms/horizon-hrms/internal/rbac"
)

// Capability paths guarding the catalog administration surface.
const (
	CapCatalogView   = "/administration/catalogue/view"
	CapCatalogManage = "/administration/catalogue/manage"
)

// Handler manages module and capability administration endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
	rbac      rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New(), rbac: rbac}
}

// MountRoutes registers catalog routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireCapability(CapCatalogView))
		r.Get("/modules", h.listModules)
		r.Get("/modules/{moduleID}", h.getModule)
		r.Get("/modules/{moduleID}/capabilities", h.listCapabilities)
		r.Get("/capabilities/{capabilityID}", h.getCapability)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireCapability(CapCatalogManage))
		r.Post("/modules", h.createModule)
		r.Put("/modules/{moduleID}", h.updateModule)
		r.Put("/modules/{moduleID}/chief", h.assignChief)
		r.Post("/modules/{moduleID}/capabilities", h.createCapability)
		r.Put("/capabilities/{capabilityID}", h.updateCapability)
		r.Delete("/capabilities/{capabilityID}", h.deleteCapability)
	})
}

func (h *Handler) listModules(w http.ResponseWriter, r *http.Request) {
	modules, err := h.service.ListModules(r.Context())
	if err != nil {
		h.respondError(w, "list modules", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"modules": modules})
}

func (h *Handler) getModule(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "moduleID")
	if !ok {
		return
	}
	module, err := h.service.GetModule(r.Context(), id)
	if err != nil {
		h.respondError(w, "get module", err)
		return
	}
	httpx.JSON(w, http.StatusOK, module)
}

type moduleRequest struct {
	Name     string `json:"name" validate:"required,max=255"`
	Slug     string `json:"slug" validate:"max=255"`
	IsActive bool   `json:"is_active"`
}

func (h *Handler) createModule(w http.ResponseWriter, r *http.Request) {
	var req moduleRequest
	if !h.decode(w, r, &req) {
		return
	}
	module, err := h.service.CreateModule(r.Context(), req.Name, req.Slug, req.IsActive)
	if err != nil {
		h.respondError(w, "create module", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, module)
}

func (h *Handler) updateModule(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "moduleID")
	if !ok {
		return
	}
	var req moduleRequest
	if !h.decode(w, r, &req) {
		return
	}
	module, err := h.service.UpdateModule(r.Context(), id, req.Name, req.Slug, req.IsActive)
	if err != nil {
		h.respondError(w, "update module", err)
		return
	}
	httpx.JSON(w, http.StatusOK, module)
}

type assignChiefRequest struct {
	ChiefID *int64 `json:"chief_id" validate:"omitempty,gt=0"`
}

func (h *Handler) assignChief(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "moduleID")
	if !ok {
		return
	}
	var req assignChiefRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.service.AssignChief(r.Context(), id, req.ChiefID); err != nil {
		h.respondError(w, "assign chief", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) listCapabilities(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "moduleID")
	if !ok {
		return
	}
	capabilities, err := h.service.ListCapabilities(r.Context(), id)
	if err != nil {
		h.respondError(w, "list capabilities", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"capabilities": capabilities})
}

func (h *Handler) getCapability(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "capabilityID")
	if !ok {
		return
	}
	capability, err := h.service.GetCapability(r.Context(), id)
	if err != nil {
		h.respondError(w, "get capability", err)
		return
	}
	httpx.JSON(w, http.StatusOK, capability)
}

type capabilityRequest struct {
	Name        string `json:"name" validate:"required,max=255"`
	Path        string `json:"path" validate:"required,max=255,startswith=/"`
	Position    int    `json:"position" validate:"gte=0"`
	Description string `json:"description" validate:"max=1024"`
}

func (h *Handler) createCapability(w http.ResponseWriter, r *http.Request) {
	moduleID, ok := h.pathID(w, r, "moduleID")
	if !ok {
		return
	}
	var req capabilityRequest
	if !h.decode(w, r, &req) {
		return
	}
	capability, err := h.service.CreateCapability(r.Context(), Capability{
		ModuleID:    moduleID,
		Name:        req.Name,
		Path:        req.Path,
		Position:    req.Position,
		Description: req.Description,
	})
	if err != nil {
		h.respondError(w, "create capability", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, capability)
}

func (h *Handler) updateCapability(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "capabilityID")
	if !ok {
		return
	}
	var req capabilityRequest
	if !h.decode(w, r, &req) {
		return
	}
	capability, err := h.service.UpdateCapability(r.Context(), Capability{
		ID:          id,
		Name:        req.Name,
		Path:        req.Path,
		Position:    req.Position,
		Description: req.Description,
	})
	if err != nil {
		h.respondError(w, "update capability", err)
		return
	}
	httpx.JSON(w, http.StatusOK, capability)
}

func (h *Handler) deleteCapability(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "capabilityID")
	if !ok {
		return
	}
	if err := h.service.DeleteCapability(r.Context(), id); err != nil {
		h.respondError(w, "delete capability", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return false
	}
	if err := h.validator.Struct(target); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return false
	}
	return true
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		httpx.RespondError(w, httpx.ErrValidation)
		return 0, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.RespondError(w, httpx.ErrNotFound)
	case errors.Is(err, ErrDuplicate):
		httpx.RespondError(w, httpx.ErrDuplicate)
	case errors.Is(err, ErrChiefNotFound), errors.Is(err, ErrChiefInactive):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Invalid Chief", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
