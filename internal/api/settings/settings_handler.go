package settings

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/financehub/finance-hub/internal/api"
	"github.com/financehub/finance-hub/internal/api/auth"
	"github.com/financehub/finance-hub/internal/types"
)

type HandlerImpl struct {
	settingsService SettingsService
	logger          *slog.Logger
}

func NewHandlerImpl(settingsService SettingsService, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		settingsService: settingsService,
		logger:          logger,
	}
}

// GetSettings godoc
// @Summary      Get settings
// @Tags         Settings
// @Produce      json
// @Success      200 {object} types.UserSettings
// @Failure      401 {object} types.Response
// @Security     BearerAuth
// @Router       /settings [get]
func (h *HandlerImpl) GetSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "GetSettings"))

	userID, ok := authenticatedUserID(w, r)
	if !ok {
		return
	}

	settings, err := h.settingsService.GetSettings(ctx, userID)
	if err != nil {
		l.ErrorContext(ctx, "Failed to get settings", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, settings)
}

// UpdateSettings godoc
// @Summary      Update settings
// @Tags         Settings
// @Accept       json
// @Produce      json
// @Param        settings body types.UpdateSettingsParams true "Settings fields"
// @Success      200 {object} types.UserSettings
// @Failure      400 {object} types.Response
// @Security     BearerAuth
// @Router       /settings [put]
func (h *HandlerImpl) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "UpdateSettings"))

	userID, ok := authenticatedUserID(w, r)
	if !ok {
		return
	}

	var params types.UpdateSettingsParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		l.WarnContext(ctx, "Failed to decode request", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	settings, err := h.settingsService.UpdateSettings(ctx, userID, params)
	if err != nil {
		l.ErrorContext(ctx, "Failed to update settings", slog.Any("error", err))
		switch {
		case errors.Is(err, types.ErrValidation):
			api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		case errors.Is(err, types.ErrNotFound):
			api.ErrorResponse(w, r, http.StatusNotFound, "Settings not found")
		default:
			api.ErrorResponse(w, r, http.StatusInternalServerError, err.Error())
		}
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, settings)
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
