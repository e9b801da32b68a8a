package admin

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/financehub/finance-hub/internal/api"
	"github.com/financehub/finance-hub/internal/types"
)

type HandlerImpl struct {
	adminService AdminService
	logger       *slog.Logger
}

func NewHandlerImpl(adminService AdminService, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		adminService: adminService,
		logger:       logger,
	}
}

// CreateAdmin godoc
// @Summary      Bootstrap the admin account
// @Description  Creates the configured admin user if missing. The generated password is returned only on the creating call.
// @Tags         Admin
// @Produce      json
// @Success      200 {object} BootstrapResult
// @Success      201 {object} BootstrapResult
// @Failure      500 {object} types.Response
// @Router       /admin/create-admin [post]
func (h *HandlerImpl) CreateAdmin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "CreateAdmin"))

	result, err := h.adminService.EnsureAdmin(ctx)
	if err != nil {
		l.ErrorContext(ctx, "Admin bootstrap failed", slog.Any("error", err))
		if errors.Is(err, types.ErrValidation) {
			api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
			return
		}
		api.ErrorResponse(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	api.WriteJSONResponse(w, r, status, result)
}
