package securityLogs

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/financehub/finance-hub/internal/api"
	"github.com/financehub/finance-hub/internal/api/auth"
	"github.com/financehub/finance-hub/internal/types"
)

type HandlerImpl struct {
	securityLogService SecurityLogService
	logger             *slog.Logger
}

func NewHandlerImpl(securityLogService SecurityLogService, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		securityLogService: securityLogService,
		logger:             logger,
	}
}

// LogEventResponse is returned after appending an audit row.
type LogEventResponse struct {
	Success bool      `json:"success"`
	LogID   uuid.UUID `json:"log_id"`
}

// LogEvent godoc
// @Summary      Log a security event
// @Description  Appends an audit row for the caller. IP and user agent fall back to request values when omitted.
// @Tags         Security
// @Accept       json
// @Produce      json
// @Param        event body types.LogEventParams true "Event details"
// @Success      201 {object} LogEventResponse
// @Failure      400 {object} types.Response
// @Security     BearerAuth
// @Router       /security/log-event [post]
func (h *HandlerImpl) LogEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "LogEvent"))

	userID, ok := authenticatedUserID(w, r)
	if !ok {
		return
	}

	var params types.LogEventParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		l.WarnContext(ctx, "Failed to decode request", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if params.IPAddress == nil {
		ip := r.RemoteAddr
		params.IPAddress = &ip
	}
	if params.UserAgent == nil {
		ua := r.UserAgent()
		params.UserAgent = &ua
	}

	logID, err := h.securityLogService.LogEvent(ctx, userID, params)
	if err != nil {
		l.ErrorContext(ctx, "Failed to log security event", slog.Any("error", err))
		if errors.Is(err, types.ErrValidation) {
			api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
			return
		}
		api.ErrorResponse(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	api.WriteJSONResponse(w, r, http.StatusCreated, LogEventResponse{Success: true, LogID: logID})
}

// ListSecurityLogs godoc
// @Summary      List security logs
// @Description  Returns the caller's audit trail, newest first.
// @Tags         Security
// @Produce      json
// @Param        event_type query string false "Filter by event type"
// @Param        start_date query string false "Inclusive lower bound (RFC 3339)"
// @Param        end_date query string false "Inclusive upper bound (RFC 3339)"
// @Param        limit query int false "Max results"
// @Success      200 {array} types.SecurityLog
// @Failure      401 {object} types.Response
// @Security     BearerAuth
// @Router       /security/logs [get]
func (h *HandlerImpl) ListSecurityLogs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "ListSecurityLogs"))

	userID, ok := authenticatedUserID(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	filter := types.SecurityLogFilter{EventType: q.Get("event_type")}

	if v := q.Get("start_date"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid start_date parameter")
			return
		}
		filter.StartDate = &t
	}
	if v := q.Get("end_date"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid end_date parameter")
			return
		}
		filter.EndDate = &t
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid limit parameter")
			return
		}
		filter.Limit = limit
	}

	logs, err := h.securityLogService.ListSecurityLogs(ctx, userID, filter)
	if err != nil {
		l.ErrorContext(ctx, "Failed to list security logs", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, logs)
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
