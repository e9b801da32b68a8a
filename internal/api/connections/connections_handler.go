package connections

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
	connectionService ConnectionService
	logger            *slog.Logger
}

func NewHandlerImpl(connectionService ConnectionService, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		connectionService: connectionService,
		logger:            logger,
	}
}

// ListConnections godoc
// @Summary      List connections
// @Tags         Connections
// @Produce      json
// @Param        provider query string false "Filter by provider"
// @Param        status query string false "Filter by status"
// @Param        limit query int false "Max results"
// @Success      200 {array} types.Connection
// @Failure      401 {object} types.Response
// @Security     BearerAuth
// @Router       /connections [get]
func (h *HandlerImpl) ListConnections(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "ListConnections"))

	userID, ok := authenticatedUserID(w, r)
	if !ok {
		return
	}

	filter := types.ConnectionFilter{
		Provider: r.URL.Query().Get("provider"),
		Status:   types.ConnectionStatus(r.URL.Query().Get("status")),
	}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid limit parameter")
			return
		}
		filter.Limit = limit
	}

	conns, err := h.connectionService.ListConnections(ctx, userID, filter)
	if err != nil {
		l.ErrorContext(ctx, "Failed to list connections", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, conns)
}

// GetConnection godoc
// @Summary      Get a connection
// @Tags         Connections
// @Produce      json
// @Param        connectionID path string true "Connection ID"
// @Success      200 {object} types.Connection
// @Failure      404 {object} types.Response
// @Security     BearerAuth
// @Router       /connections/{connectionID} [get]
func (h *HandlerImpl) GetConnection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "GetConnection"))

	userID, ok := authenticatedUserID(w, r)
	if !ok {
		return
	}
	connID, ok := pathUUID(w, r, "connectionID")
	if !ok {
		return
	}

	conn, err := h.connectionService.GetConnection(ctx, userID, connID)
	if err != nil {
		l.ErrorContext(ctx, "Failed to get connection", slog.Any("error", err))
		if errors.Is(err, types.ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "Connection not found")
			return
		}
		api.ErrorResponse(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, conn)
}

// CreateConnection godoc
// @Summary      Create a connection
// @Tags         Connections
// @Accept       json
// @Produce      json
// @Param        connection body types.CreateConnectionParams true "Connection details"
// @Success      201 {object} types.Connection
// @Failure      400 {object} types.Response
// @Security     BearerAuth
// @Router       /connections [post]
func (h *HandlerImpl) CreateConnection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "CreateConnection"))

	userID, ok := authenticatedUserID(w, r)
	if !ok {
		return
	}

	var params types.CreateConnectionParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		l.WarnContext(ctx, "Failed to decode request", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	conn, err := h.connectionService.CreateConnection(ctx, userID, params)
	if err != nil {
		l.ErrorContext(ctx, "Failed to create connection", slog.Any("error", err))
		if errors.Is(err, types.ErrValidation) {
			api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
			return
		}
		api.ErrorResponse(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	api.WriteJSONResponse(w, r, http.StatusCreated, conn)
}

// UpdateConnection godoc
// @Summary      Update a connection
// @Tags         Connections
// @Accept       json
// @Produce      json
// @Param        connectionID path string true "Connection ID"
// @Param        connection body types.UpdateConnectionParams true "Fields to update"
// @Success      200 {object} types.Connection
// @Failure      404 {object} types.Response
// @Security     BearerAuth
// @Router       /connections/{connectionID} [put]
func (h *HandlerImpl) UpdateConnection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "UpdateConnection"))

	userID, ok := authenticatedUserID(w, r)
	if !ok {
		return
	}
	connID, ok := pathUUID(w, r, "connectionID")
	if !ok {
		return
	}

	var params types.UpdateConnectionParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		l.WarnContext(ctx, "Failed to decode request", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	conn, err := h.connectionService.UpdateConnection(ctx, userID, connID, params)
	if err != nil {
		l.ErrorContext(ctx, "Failed to update connection", slog.Any("error", err))
		switch {
		case errors.Is(err, types.ErrValidation):
			api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		case errors.Is(err, types.ErrNotFound):
			api.ErrorResponse(w, r, http.StatusNotFound, "Connection not found")
		default:
			api.ErrorResponse(w, r, http.StatusInternalServerError, err.Error())
		}
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, conn)
}

// DeleteConnection godoc
// @Summary      Delete a connection
// @Tags         Connections
// @Param        connectionID path string true "Connection ID"
// @Success      204 "No Content"
// @Failure      404 {object} types.Response
// @Security     BearerAuth
// @Router       /connections/{connectionID} [delete]
func (h *HandlerImpl) DeleteConnection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "DeleteConnection"))

	userID, ok := authenticatedUserID(w, r)
	if !ok {
		return
	}
	connID, ok := pathUUID(w, r, "connectionID")
	if !ok {
		return
	}

	if err := h.connectionService.DeleteConnection(ctx, userID, connID); err != nil {
		l.ErrorContext(ctx, "Failed to delete connection", slog.Any("error", err))
		if errors.Is(err, types.ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "Connection not found")
			return
		}
		api.ErrorResponse(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RefreshConnection godoc
// @Summary      Refresh a connection
// @Description  Runs a provider sync and returns the connection with fresh sync metadata.
// @Tags         Connections
// @Produce      json
// @Param        connectionID path string true "Connection ID"
// @Success      200 {object} types.Connection
// @Failure      404 {object} types.Response
// @Security     BearerAuth
// @Router       /connections/{connectionID}/refresh [post]
func (h *HandlerImpl) RefreshConnection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "RefreshConnection"))

	userID, ok := authenticatedUserID(w, r)
	if !ok {
		return
	}
	connID, ok := pathUUID(w, r, "connectionID")
	if !ok {
		return
	}

	conn, err := h.connectionService.RefreshConnection(ctx, userID, connID)
	if err != nil {
		l.ErrorContext(ctx, "Failed to refresh connection", slog.Any("error", err))
		if errors.Is(err, types.ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "Connection not found")
			return
		}
		api.ErrorResponse(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, conn)
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
