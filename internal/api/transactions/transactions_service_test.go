package transactions

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/financehub/finance-hub/internal/types"
)

type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) List(ctx context.Context, userID uuid.UUID, filter types.TransactionFilter) ([]types.Transaction, error) {
	args := m.Called(ctx, userID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) Get(ctx context.Context, userID, id uuid.UUID) (*types.Transaction, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) Create(ctx context.Context, userID uuid.UUID, params types.CreateTransactionParams) (*types.Transaction, error) {
	args := m.Called(ctx, userID, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) Update(ctx context.Context, userID, id uuid.UUID, params types.UpdateTransactionParams) (*types.Transaction, error) {
	args := m.Called(ctx, userID, id, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	args := m.Called(ctx, userID, id)
	return args.Error(0)
}

func setupTransactionServiceTest() (*TransactionServiceImpl, *MockTransactionRepository) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mockRepo := new(MockTransactionRepository)
	service := NewTransactionService(mockRepo, logger)
	return service, mockRepo
}

func TestTransactionServiceImpl_ListTransactions(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("unfiltered list is cached", func(t *testing.T) {
		service, mockRepo := setupTransactionServiceTest()
		txns := []types.Transaction{{
			ID:     uuid.New(),
			UserID: userID,
			Amount: decimal.NewFromFloat(-42.50),
			Type:   types.TransactionWithdrawal,
		}}
		mockRepo.On("List", ctx, userID, types.TransactionFilter{}).Return(txns, nil).Once()

		first, err := service.ListTransactions(ctx, userID, types.TransactionFilter{})
		require.NoError(t, err)
		second, err := service.ListTransactions(ctx, userID, types.TransactionFilter{})
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.True(t, first[0].Amount.IsNegative())
		mockRepo.AssertNumberOfCalls(t, "List", 1)
	})

	t.Run("date-bounded list bypasses the cache", func(t *testing.T) {
		service, mockRepo := setupTransactionServiceTest()
		start := time.Now().AddDate(0, -1, 0)
		filter := types.TransactionFilter{StartDate: &start}
		mockRepo.On("List", ctx, userID, filter).Return([]types.Transaction{}, nil).Twice()

		_, err := service.ListTransactions(ctx, userID, filter)
		require.NoError(t, err)
		_, err = service.ListTransactions(ctx, userID, filter)
		require.NoError(t, err)
		mockRepo.AssertNumberOfCalls(t, "List", 2)
	})
}

func TestTransactionServiceImpl_CreateTransaction(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	validParams := func() types.CreateTransactionParams {
		return types.CreateTransactionParams{
			Date:        time.Now(),
			Description: "Groceries",
			Amount:      decimal.NewFromFloat(-31.20),
			Currency:    "EUR",
			Type:        types.TransactionWithdrawal,
			Status:      types.TransactionCompleted,
		}
	}

	t.Run("create invalidates the cached list", func(t *testing.T) {
		service, mockRepo := setupTransactionServiceTest()
		params := validParams()
		created := &types.Transaction{ID: uuid.New(), UserID: userID, Amount: params.Amount}

		mockRepo.On("List", ctx, userID, types.TransactionFilter{}).Return([]types.Transaction{}, nil).Once()
		mockRepo.On("Create", ctx, userID, params).Return(created, nil).Once()
		mockRepo.On("List", ctx, userID, types.TransactionFilter{}).Return([]types.Transaction{*created}, nil).Once()

		_, err := service.ListTransactions(ctx, userID, types.TransactionFilter{})
		require.NoError(t, err)

		_, err = service.CreateTransaction(ctx, userID, params)
		require.NoError(t, err)

		txns, err := service.ListTransactions(ctx, userID, types.TransactionFilter{})
		require.NoError(t, err)
		assert.Len(t, txns, 1)
		mockRepo.AssertNumberOfCalls(t, "List", 2)
	})

	t.Run("status defaults to completed", func(t *testing.T) {
		service, mockRepo := setupTransactionServiceTest()
		params := validParams()
		params.Status = ""

		mockRepo.On("Create", ctx, userID, mock.MatchedBy(func(p types.CreateTransactionParams) bool {
			return p.Status == types.TransactionCompleted
		})).Return(&types.Transaction{ID: uuid.New(), UserID: userID}, nil).Once()

		_, err := service.CreateTransaction(ctx, userID, params)
		require.NoError(t, err)
		mockRepo.AssertExpectations(t)
	})

	t.Run("invalid type is rejected", func(t *testing.T) {
		service, mockRepo := setupTransactionServiceTest()
		params := validParams()
		params.Type = types.TransactionType("donation")

		_, err := service.CreateTransaction(ctx, userID, params)
		require.Error(t, err)
		assert.True(t, errors.Is(err, types.ErrValidation))
		mockRepo.AssertNotCalled(t, "Create", ctx, userID, mock.Anything)
	})

	t.Run("missing currency is rejected", func(t *testing.T) {
		service, _ := setupTransactionServiceTest()
		params := validParams()
		params.Currency = ""

		_, err := service.CreateTransaction(ctx, userID, params)
		require.Error(t, err)
		assert.True(t, errors.Is(err, types.ErrValidation))
	})
}

func TestTransactionServiceImpl_DeleteTransaction(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	txnID := uuid.New()

	t.Run("delete invalidates the cached list", func(t *testing.T) {
		service, mockRepo := setupTransactionServiceTest()
		mockRepo.On("List", ctx, userID, types.TransactionFilter{}).Return([]types.Transaction{}, nil).Twice()
		mockRepo.On("Delete", ctx, userID, txnID).Return(nil).Once()

		_, err := service.ListTransactions(ctx, userID, types.TransactionFilter{})
		require.NoError(t, err)

		require.NoError(t, service.DeleteTransaction(ctx, userID, txnID))

		_, err = service.ListTransactions(ctx, userID, types.TransactionFilter{})
		require.NoError(t, err)
		mockRepo.AssertNumberOfCalls(t, "List", 2)
	})

	t.Run("unknown transaction", func(t *testing.T) {
		service, mockRepo := setupTransactionServiceTest()
		mockRepo.On("Delete", ctx, userID, txnID).Return(types.ErrNotFound).Once()

		err := service.DeleteTransaction(ctx, userID, txnID)
		require.Error(t, err)
		assert.True(t, errors.Is(err, types.ErrNotFound))
	})
}
