package rbac

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/horizon-hrms/horizon-hrms/internal/platform/httpx"
)

// Capability paths guarding the grant administration surface itself.
const (
	CapAccessView   = "/administration/access/view"
	CapAccessManage = "/administration/access/manage"
)

// Handler exposes the grant administration API.
type Handler struct {
	logger    *slog.Logger
	grants    *Grants
	engine    *Engine
	validator *validator.Validate
	rbac      Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, grants *Grants, engine *Engine, rbac Middleware) *Handler {
	return &Handler{
		logger:    logger,
		grants:    grants,
		engine:    engine,
		validator: validator.New(),
		rbac:      rbac,
	}
}

// MountRoutes registers grant administration routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireCapability(CapAccessView))
		r.Get("/users/{userID}/capabilities", h.listUserCapabilities)
		r.Get("/roles/{roleID}/capabilities", h.listRoleCapabilities)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireCapability(CapAccessManage))
		r.Post("/users/{userID}/capabilities", h.grantCapability)
		r.Delete("/users/{userID}/capabilities/{capabilityID}", h.revokeCapability)
		r.Post("/users/{userID}/roles", h.assignRole)
		r.Delete("/users/{userID}/roles/{roleID}", h.revokeRole)
		r.Post("/roles/{roleID}/capabilities", h.bindCapabilities)
		r.Delete("/roles/{roleID}/capabilities/{capabilityID}", h.unbindCapability)
	})
	r.Get("/check", h.check)
}

type grantCapabilityRequest struct {
	CapabilityID int64  `json:"capability_id" validate:"required,gt=0"`
	GrantedBy    string `json:"granted_by" validate:"max=255"`
	Note         string `json:"note" validate:"max=255"`
}

func (h *Handler) grantCapability(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	var req grantCapabilityRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	result, err := h.grants.GrantCapabilityToUser(r.Context(), UserCapabilityGrant{
		UserID:       userID,
		CapabilityID: req.CapabilityID,
		GrantedBy:    req.GrantedBy,
		Note:         req.Note,
	})
	if err != nil {
		h.respondGrantError(w, err)
		return
	}
	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	httpx.JSON(w, status, result)
}

func (h *Handler) revokeCapability(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	capabilityID, ok := pathID(w, r, "capabilityID")
	if !ok {
		return
	}
	result, err := h.grants.RevokeCapabilityFromUser(r.Context(), userID, capabilityID)
	if err != nil {
		h.respondGrantError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

type assignRoleRequest struct {
	RoleID     int64  `json:"role_id" validate:"required,gt=0"`
	ModuleID   *int64 `json:"module_id" validate:"omitempty,gt=0"`
	AssignedBy string `json:"assigned_by" validate:"max=255"`
	Note       string `json:"note" validate:"max=255"`
}

func (h *Handler) assignRole(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	var req assignRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	result, err := h.grants.AssignRoleToUser(r.Context(), UserRoleGrant{
		UserID:     userID,
		RoleID:     req.RoleID,
		ModuleID:   req.ModuleID,
		AssignedBy: req.AssignedBy,
		Note:       req.Note,
	})
	if err != nil {
		h.respondGrantError(w, err)
		return
	}
	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	httpx.JSON(w, status, result)
}

func (h *Handler) revokeRole(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	roleID, ok := pathID(w, r, "roleID")
	if !ok {
		return
	}
	var moduleID *int64
	if raw := r.URL.Query().Get("module_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			httpx.RespondError(w, httpx.ErrValidation)
			return
		}
		moduleID = &id
	}
	result, err := h.grants.RevokeRoleFromUser(r.Context(), userID, roleID, moduleID)
	if err != nil {
		h.respondGrantError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

type bindCapabilitiesRequest struct {
	CapabilityIDs []int64 `json:"capability_ids" validate:"required,min=1,dive,gt=0"`
}

func (h *Handler) bindCapabilities(w http.ResponseWriter, r *http.Request) {
	roleID, ok := pathID(w, r, "roleID")
	if !ok {
		return
	}
	var req bindCapabilitiesRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	result, err := h.grants.BindCapabilitiesToRole(r.Context(), roleID, req.CapabilityIDs)
	if err != nil {
		h.respondGrantError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) unbindCapability(w http.ResponseWriter, r *http.Request) {
	roleID, ok := pathID(w, r, "roleID")
	if !ok {
		return
	}
	capabilityID, ok := pathID(w, r, "capabilityID")
	if !ok {
		return
	}
	result, err := h.grants.UnbindCapabilityFromRole(r.Context(), roleID, capabilityID)
	if err != nil {
		h.respondGrantError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) listUserCapabilities(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	grants, err := h.grants.ListUserCapabilities(r.Context(), userID)
	if err != nil {
		h.logger.Error("list user capabilities", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"grants": grants})
}

func (h *Handler) listRoleCapabilities(w http.ResponseWriter, r *http.Request) {
	roleID, ok := pathID(w, r, "roleID")
	if !ok {
		return
	}
	ids, err := h.grants.ListRoleCapabilities(r.Context(), roleID)
	if err != nil {
		h.logger.Error("list role capabilities", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"capability_ids": ids})
}

type checkResponse struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`
}

// check lets a caller probe their own access to a capability without
// invoking it.
func (h *Handler) check(w http.ResponseWriter, r *http.Request) {
	var ref Ref
	if path := r.URL.Query().Get("path"); path != "" {
		ref = RefByPath(path)
	} else if raw := r.URL.Query().Get("id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			httpx.RespondError(w, httpx.ErrValidation)
			return
		}
		ref = RefByID(id)
	} else {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	decision := h.engine.Authorize(r.Context(), ActorFromContext(r.Context()), ref)
	httpx.JSON(w, http.StatusOK, checkResponse{
		Allowed: decision.Allowed,
		Reason:  string(decision.Reason),
		Message: decision.Message,
	})
}

func (h *Handler) respondGrantError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrUnknownReference) {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	h.logger.Error("grant operation", slog.Any("error", err))
	httpx.RespondError(w, httpx.ErrUnavailable)
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		httpx.RespondError(w, httpx.ErrValidation)
		return 0, false
	}
	return id, true
}
