package automations

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/financehub/finance-hub/internal/api"
	"github.com/financehub/finance-hub/internal/api/auth"
	"github.com/financehub/finance-hub/internal/types"
)

type HandlerImpl struct {
	automationService AutomationService
	logger            *slog.Logger
}

func NewHandlerImpl(automationService AutomationService, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		automationService: automationService,
		logger:            logger,
	}
}

// ListAutomations godoc
// @Summary      List automations
// @Tags         Automations
// @Produce      json
// @Param        type query string false "Filter by type"
// @Param        status query string false "Filter by status"
// @Param        limit query int false "Max results"
// @Success      200 {array} types.Automation
// @Failure      401 {object} types.Response
// @Security     BearerAuth
// @Router       /automations [get]
func (h *HandlerImpl) ListAutomations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "ListAutomations"))

	userID, ok := authenticatedUserID(w, r)
	if !ok {
		return
	}

	filter := types.AutomationFilter{
		Type:   types.AutomationType(r.URL.Query().Get("type")),
		Status: types.AutomationStatus(r.URL.Query().Get("status")),
	}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid limit parameter")
			return
		}
		filter.Limit = limit
	}

	autos, err := h.automationService.ListAutomations(ctx, userID, filter)
	if err != nil {
		l.ErrorContext(ctx, "Failed to list automations", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, autos)
}

// GetAutomation godoc
// @Summary      Get an automation
// @Tags         Automations
// @Produce      json
// @Param        automationID path string true "Automation ID"
// @Success      200 {object} types.Automation
// @Failure      404 {object} types.Response
// @Security     BearerAuth
// @Router       /automations/{automationID} [get]
func (h *HandlerImpl) GetAutomation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "GetAutomation"))

	userID, ok := authenticatedUserID(w, r)
	if !ok {
		return
	}
	autoID, ok := pathUUID(w, r, "automationID")
	if !ok {
		return
	}

	auto, err := h.automationService.GetAutomation(ctx, userID, autoID)
	if err != nil {
		l.ErrorContext(ctx, "Failed to get automation", slog.Any("error", err))
		if errors.Is(err, types.ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "Automation not found")
			return
		}
		api.ErrorResponse(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, auto)
}

// CreateAutomation godoc
// @Summary      Create an automation
// @Description  Creates a rule with a trigger matching the automation type and a single action.
// @Tags         Automations
// @Accept       json
// @Produce      json
// @Param        automation body types.CreateAutomationParams true "Automation details"
// @Success      201 {object} types.Automation
// @Failure      400 {object} types.Response
// @Security     BearerAuth
// @Router       /automations [post]
func (h *HandlerImpl) CreateAutomation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "CreateAutomation"))

	userID, ok := authenticatedUserID(w, r)
	if !ok {
		return
	}

	var params types.CreateAutomationParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		l.WarnContext(ctx, "Failed to decode request", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	auto, err := h.automationService.CreateAutomation(ctx, userID, params)
	if err != nil {
		l.ErrorContext(ctx, "Failed to create automation", slog.Any("error", err))
		if errors.Is(err, types.ErrValidation) {
			api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
			return
		}
		api.ErrorResponse(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	api.WriteJSONResponse(w, r, http.StatusCreated, auto)
}

// UpdateAutomation godoc
// @Summary      Update an automation
// @Tags         Automations
// @Accept       json
// @Produce      json
// @Param        automationID path string true "Automation ID"
// @Param        automation body types.UpdateAutomationParams true "Fields to update"
// @Success      200 {object} types.Automation
// @Failure      404 {object} types.Response
// @Security     BearerAuth
// @Router       /automations/{automationID} [put]
func (h *HandlerImpl) UpdateAutomation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "UpdateAutomation"))

	userID, ok := authenticatedUserID(w, r)
	if !ok {
		return
	}
	autoID, ok := pathUUID(w, r, "automationID")
	if !ok {
		return
	}

	var params types.UpdateAutomationParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		l.WarnContext(ctx, "Failed to decode request", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	auto, err := h.automationService.UpdateAutomation(ctx, userID, autoID, params)
	if err != nil {
		l.ErrorContext(ctx, "Failed to update automation", slog.Any("error", err))
		switch {
		case errors.Is(err, types.ErrValidation):
			api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		case errors.Is(err, types.ErrNotFound):
			api.ErrorResponse(w, r, http.StatusNotFound, "Automation not found")
		default:
			api.ErrorResponse(w, r, http.StatusInternalServerError, err.Error())
		}
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, auto)
}

// DeleteAutomation godoc
// @Summary      Delete an automation
// @Tags         Automations
// @Param        automationID path string true "Automation ID"
// @Success      204 "No Content"
// @Failure      404 {object} types.Response
// @Security     BearerAuth
// @Router       /automations/{automationID} [delete]
func (h *HandlerImpl) DeleteAutomation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "DeleteAutomation"))

	userID, ok := authenticatedUserID(w, r)
	if !ok {
		return
	}
	autoID, ok := pathUUID(w, r, "automationID")
	if !ok {
		return
	}

	if err := h.automationService.DeleteAutomation(ctx, userID, autoID); err != nil {
		l.ErrorContext(ctx, "Failed to delete automation", slog.Any("error", err))
		if errors.Is(err, types.ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "Automation not found")
			return
		}
		api.ErrorResponse(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ExecuteAutomation godoc
// @Summary      Execute an automation
// @Description  Runs an active automation immediately and returns it with updated execution stats.
// @Tags         Automations
// @Produce      json
// @Param        automationID path string true "Automation ID"
// @Success      200 {object} types.Automation
// @Failure      400 {object} types.Response
// @Failure      404 {object} types.Response
// @Security     BearerAuth
// @Router       /automations/{automationID}/execute [post]
func (h *HandlerImpl) ExecuteAutomation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "ExecuteAutomation"))

	userID, ok := authenticatedUserID(w, r)
	if !ok {
		return
	}
	autoID, ok := pathUUID(w, r, "automationID")
	if !ok {
		return
	}

	auto, err := h.automationService.ExecuteAutomation(ctx, userID, autoID)
	if err != nil {
		l.ErrorContext(ctx, "Failed to execute automation", slog.Any("error", err))
		switch {
		case errors.Is(err, types.ErrValidation):
			api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		case errors.Is(err, types.ErrNotFound):
			api.ErrorResponse(w, r, http.StatusNotFound, "Automation not found")
		default:
			api.ErrorResponse(w, r, http.StatusInternalServerError, err.Error())
		}
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, auto)
}

func authenticatedUserID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userIDStr, ok := auth.GetUserIDFromContext(r.Context())
	if !ok || userIDStr == "" {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return uuid.Nil, false
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid user ID format")
		return uuid.Nil, false
	}
	return userID, true
}

func pathUUID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid "+param+" format")
		return uuid.Nil, false
	}
	return id, true
}
