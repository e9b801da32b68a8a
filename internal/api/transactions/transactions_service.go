package transactions

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/financehub/finance-hub/internal/types"
)

var _ TransactionService = (*TransactionServiceImpl)(nil)

type TransactionService interface {
	ListTransactions(ctx context.Context, userID uuid.UUID, filter types.TransactionFilter) ([]types.Transaction, error)
	GetTransaction(ctx context.Context, userID, id uuid.UUID) (*types.Transaction, error)
	CreateTransaction(ctx context.Context, userID uuid.UUID, params types.CreateTransactionParams) (*types.Transaction, error)
	UpdateTransaction(ctx context.Context, userID, id uuid.UUID, params types.UpdateTransactionParams) (*types.Transaction, error)
	DeleteTransaction(ctx context.Context, userID, id uuid.UUID) error
}

type TransactionServiceImpl struct {
	logger *slog.Logger
	repo   TransactionRepository
	cache  *cache.Cache
}

func NewTransactionService(repo TransactionRepository, logger *slog.Logger) *TransactionServiceImpl {
	return &TransactionServiceImpl{
		logger: logger,
		repo:   repo,
		cache:  cache.New(5*time.Minute, 10*time.Minute),
	}
}

func cacheKey(userID uuid.UUID) string {
	return "transactions:" + userID.String()
}

func emptyFilter(f types.TransactionFilter) bool {
	return f.Type == "" && f.Status == "" && f.Source == "" &&
		f.StartDate == nil && f.EndDate == nil && f.Limit == 0
}

func validateParams(txType types.TransactionType, status types.TransactionStatus) error {
	if !txType.Valid() {
		return fmt.Errorf("%w: invalid transaction type %q", types.ErrValidation, txType)
	}
	if !status.Valid() {
		return fmt.Errorf("%w: invalid transaction status %q", types.ErrValidation, status)
	}
	return nil
}

func (s *TransactionServiceImpl) ListTransactions(ctx context.Context, userID uuid.UUID, filter types.TransactionFilter) ([]types.Transaction, error) {
	l := s.logger.With(slog.String("method", "ListTransactions"), slog.String("userID", userID.String()))

	unfiltered := emptyFilter(filter)
	if unfiltered {
		if cached, found := s.cache.Get(cacheKey(userID)); found {
			l.DebugContext(ctx, "Returning cached transactions")
			return cached.([]types.Transaction), nil
		}
	}

	txns, err := s.repo.List(ctx, userID, filter)
	if err != nil {
		l.ErrorContext(ctx, "Failed to list transactions", slog.Any("error", err))
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	if txns == nil {
		txns = []types.Transaction{}
	}

	if unfiltered {
		s.cache.Set(cacheKey(userID), txns, cache.DefaultExpiration)
	}
	return txns, nil
}

func (s *TransactionServiceImpl) GetTransaction(ctx context.Context, userID, id uuid.UUID) (*types.Transaction, error) {
	t, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return t, nil
}

func (s *TransactionServiceImpl) CreateTransaction(ctx context.Context, userID uuid.UUID, params types.CreateTransactionParams) (*types.Transaction, error) {
	l := s.logger.With(slog.String("method", "CreateTransaction"), slog.String("userID", userID.String()))

	if params.Description == "" {
		return nil, fmt.Errorf("%w: description is required", types.ErrValidation)
	}
	if params.Currency == "" {
		return nil, fmt.Errorf("%w: currency is required", types.ErrValidation)
	}
	if params.Status == "" {
		params.Status = types.TransactionCompleted
	}
	if err := validateParams(params.Type, params.Status); err != nil {
		return nil, err
	}
	if params.Date.IsZero() {
		params.Date = time.Now()
	}

	t, err := s.repo.Create(ctx, userID, params)
	if err != nil {
		l.ErrorContext(ctx, "Failed to create transaction", slog.Any("error", err))
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	s.cache.Delete(cacheKey(userID))
	return t, nil
}

func (s *TransactionServiceImpl) UpdateTransaction(ctx context.Context, userID, id uuid.UUID, params types.UpdateTransactionParams) (*types.Transaction, error) {
	l := s.logger.With(slog.String("method", "UpdateTransaction"), slog.String("transactionID", id.String()))

	if params.Type != nil && !params.Type.Valid() {
		return nil, fmt.Errorf("%w: invalid transaction type %q", types.ErrValidation, *params.Type)
	}
	if params.Status != nil && !params.Status.Valid() {
		return nil, fmt.Errorf("%w: invalid transaction status %q", types.ErrValidation, *params.Status)
	}

	t, err := s.repo.Update(ctx, userID, id, params)
	if err != nil {
		l.ErrorContext(ctx, "Failed to update transaction", slog.Any("error", err))
		return nil, fmt.Errorf("failed to update transaction: %w", err)
	}

	s.cache.Delete(cacheKey(userID))
	return t, nil
}

func (s *TransactionServiceImpl) DeleteTransaction(ctx context.Context, userID, id uuid.UUID) error {
	l := s.logger.With(slog.String("method", "DeleteTransaction"), slog.String("transactionID", id.String()))

	if err := s.repo.Delete(ctx, userID, id); err != nil {
		l.ErrorContext(ctx, "Failed to delete transaction", slog.Any("error", err))
		return fmt.Errorf("failed to delete transaction: %w", err)
	}

	s.cache.Delete(cacheKey(userID))
	return nil
}
