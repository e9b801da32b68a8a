package transactions

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/financehub/finance-hub/internal/api"
	"github.com/financehub/finance-hub/internal/api/auth"
	"github.com/financehub/finance-hub/internal/types"
)

type HandlerImpl struct {
	transactionService TransactionService
	logger             *slog.Logger
}

func NewHandlerImpl(transactionService TransactionService, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		transactionService: transactionService,
		logger:             logger,
	}
}

// ListTransactions godoc
// @Summary      List transactions
// @Description  Returns the caller's transactions, newest first.
// @Tags         Transactions
// @Produce      json
// @Param        type query string false "Filter by type"
// @Param        status query string false "Filter by status"
// @Param        source query string false "Filter by source"
// @Param        start_date query string false "Inclusive lower bound (RFC 3339)"
// @Param        end_date query string false "Inclusive upper bound (RFC 3339)"
// @Param        limit query int false "Max results"
// @Success      200 {array} types.Transaction
// @Failure      401 {object} types.Response
// @Security     BearerAuth
// @Router       /transactions [get]
func (h *HandlerImpl) ListTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "ListTransactions"))

	userID, ok := authenticatedUserID(w, r)
	if !ok {
		return
	}

	filter, ok := parseFilter(w, r)
	if !ok {
		return
	}

	txns, err := h.transactionService.ListTransactions(ctx, userID, filter)
	if err != nil {
		l.ErrorContext(ctx, "Failed to list transactions", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, txns)
}

// GetTransaction godoc
// @Summary      Get a transaction
// @Tags         Transactions
// @Produce      json
// @Param        transactionID path string true "Transaction ID"
// @Success      200 {object} types.Transaction
// @Failure      404 {object} types.Response
// @Security     BearerAuth
// @Router       /transactions/{transactionID} [get]
func (h *HandlerImpl) GetTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "GetTransaction"))

	userID, ok := authenticatedUserID(w, r)
	if !ok {
		return
	}
	txnID, ok := pathUUID(w, r, "transactionID")
	if !ok {
		return
	}

	txn, err := h.transactionService.GetTransaction(ctx, userID, txnID)
	if err != nil {
		l.ErrorContext(ctx, "Failed to get transaction", slog.Any("error", err))
		if errors.Is(err, types.ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "Transaction not found")
			return
		}
		api.ErrorResponse(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, txn)
}

// CreateTransaction godoc
// @Summary      Create a transaction
// @Tags         Transactions
// @Accept       json
// @Produce      json
// @Param        transaction body types.CreateTransactionParams true "Transaction details"
// @Success      201 {object} types.Transaction
// @Failure      400 {object} types.Response
// @Security     BearerAuth
// @Router       /transactions [post]
func (h *HandlerImpl) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "CreateTransaction"))

	userID, ok := authenticatedUserID(w, r)
	if !ok {
		return
	}

	var params types.CreateTransactionParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		l.WarnContext(ctx, "Failed to decode request", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	txn, err := h.transactionService.CreateTransaction(ctx, userID, params)
	if err != nil {
		l.ErrorContext(ctx, "Failed to create transaction", slog.Any("error", err))
		if errors.Is(err, types.ErrValidation) {
			api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
			return
		}
		api.ErrorResponse(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	api.WriteJSONResponse(w, r, http.StatusCreated, txn)
}

// UpdateTransaction godoc
// @Summary      Update a transaction
// @Tags         Transactions
// @Accept       json
// @Produce      json
// @Param        transactionID path string true "Transaction ID"
// @Param        transaction body types.UpdateTransactionParams true "Fields to update"
// @Success      200 {object} types.Transaction
// @Failure      404 {object} types.Response
// @Security     BearerAuth
// @Router       /transactions/{transactionID} [put]
func (h *HandlerImpl) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "UpdateTransaction"))

	userID, ok := authenticatedUserID(w, r)
	if !ok {
		return
	}
	txnID, ok := pathUUID(w, r, "transactionID")
	if !ok {
		return
	}

	var params types.UpdateTransactionParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		l.WarnContext(ctx, "Failed to decode request", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	txn, err := h.transactionService.UpdateTransaction(ctx, userID, txnID, params)
	if err != nil {
		l.ErrorContext(ctx, "Failed to update transaction", slog.Any("error", err))
		switch {
		case errors.Is(err, types.ErrValidation):
			api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		case errors.Is(err, types.ErrNotFound):
			api.ErrorResponse(w, r, http.StatusNotFound, "Transaction not found")
		default:
			api.ErrorResponse(w, r, http.StatusInternalServerError, err.Error())
		}
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, txn)
}

// DeleteTransaction godoc
// @Summary      Delete a transaction
// @Tags         Transactions
// @Param        transactionID path string true "Transaction ID"
// @Success      204 "No Content"
// @Failure      404 {object} types.Response
// @Security     BearerAuth
// @Router       /transactions/{transactionID} [delete]
func (h *HandlerImpl) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "DeleteTransaction"))

	userID, ok := authenticatedUserID(w, r)
	if !ok {
		return
	}
	txnID, ok := pathUUID(w, r, "transactionID")
	if !ok {
		return
	}

	if err := h.transactionService.DeleteTransaction(ctx, userID, txnID); err != nil {
		l.ErrorContext(ctx, "Failed to delete transaction", slog.Any("error", err))
		if errors.Is(err, types.ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "Transaction not found")
			return
		}
		api.ErrorResponse(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func parseFilter(w http.ResponseWriter, r *http.Request) (types.TransactionFilter, bool) {
	q := r.URL.Query()
	filter := types.TransactionFilter{
		Type:   types.TransactionType(q.Get("type")),
		Status: types.TransactionStatus(q.Get("status")),
		Source: q.Get("source"),
	}

	if v := q.Get("start_date"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid start_date parameter")
			return filter, false
		}
		filter.StartDate = &t
	}
	if v := q.Get("end_date"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid end_date parameter")
			return filter, false
		}
		filter.EndDate = &t
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid limit parameter")
			return filter, false
		}
		filter.Limit = limit
	}
	return filter, true
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
