package roles

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/financehub/finance-hub/internal/api"
	"github.com/financehub/finance-hub/internal/api/auth"
	"github.com/financehub/finance-hub/internal/types"
)

type AssignRoleRequest struct {
	UserID uuid.UUID  `json:"user_id"`
	Role   types.Role `json:"role"`
}

type HandlerImpl struct {
	rolesService RolesService
	logger       *slog.Logger
}

func NewHandlerImpl(rolesService RolesService, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		rolesService: rolesService,
		logger:       logger,
	}
}

// ListOwnRoles godoc
// @Summary      List the caller's roles
// @Tags         Roles
// @Produce      json
// @Success      200 {array} types.UserRole
// @Security     BearerAuth
// @Router       /roles [get]
func (h *HandlerImpl) ListOwnRoles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userIDStr, ok := auth.GetUserIDFromContext(ctx)
	if !ok || userIDStr == "" {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid user ID format")
		return
	}

	roles, err := h.rolesService.ListUserRoles(ctx, userID)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	if roles == nil {
		roles = []types.UserRole{}
	}

	api.WriteJSONResponse(w, r, http.StatusOK, roles)
}

// ListAllRoles godoc
// @Summary      List all role memberships (admin)
// @Tags         Admin
// @Produce      json
// @Success      200 {array} types.UserRole
// @Failure      403 {object} types.Response
// @Security     BearerAuth
// @Router       /admin/roles [get]
func (h *HandlerImpl) ListAllRoles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	roles, err := h.rolesService.ListAllRoles(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to list roles", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	if roles == nil {
		roles = []types.UserRole{}
	}

	api.WriteJSONResponse(w, r, http.StatusOK, roles)
}

// AssignRole godoc
// @Summary      Assign a role to a user (admin)
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        body body AssignRoleRequest true "Membership"
// @Success      201 {object} types.UserRole
// @Failure      400 {object} types.Response
// @Failure      409 {object} types.Response
// @Security     BearerAuth
// @Router       /admin/roles [post]
func (h *HandlerImpl) AssignRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "AssignRole"))

	var req AssignRoleRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	ur, err := h.rolesService.AssignRole(ctx, req.UserID, req.Role)
	if err != nil {
		l.ErrorContext(ctx, "Failed to assign role", slog.Any("error", err))
		switch {
		case errors.Is(err, types.ErrValidation):
			api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		case errors.Is(err, types.ErrConflict):
			api.ErrorResponse(w, r, http.StatusConflict, "Role already assigned")
		default:
			api.ErrorResponse(w, r, http.StatusInternalServerError, err.Error())
		}
		return
	}

	api.WriteJSONResponse(w, r, http.StatusCreated, ur)
}

// RemoveRole godoc
// @Summary      Remove a role membership (admin)
// @Tags         Admin
// @Produce      json
// @Param        roleID path string true "Role membership ID"
// @Success      200 {object} types.UserRole
// @Failure      404 {object} types.Response
// @Security     BearerAuth
// @Router       /admin/roles/{roleID} [delete]
func (h *HandlerImpl) RemoveRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	roleID, err := uuid.Parse(chi.URLParam(r, "roleID"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid role ID format")
		return
	}

	ur, err := h.rolesService.RemoveRole(ctx, roleID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "Role membership not found")
		} else {
			api.ErrorResponse(w, r, http.StatusInternalServerError, err.Error())
		}
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, ur)
}
