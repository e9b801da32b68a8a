package connections

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/financehub/finance-hub/internal/types"
)

type MockConnectionRepository struct {
	mock.Mock
}

func (m *MockConnectionRepository) List(ctx context.Context, userID uuid.UUID, filter types.ConnectionFilter) ([]types.Connection, error) {
	args := m.Called(ctx, userID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Connection), args.Error(1)
}

func (m *MockConnectionRepository) Get(ctx context.Context, userID, id uuid.UUID) (*types.Connection, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Connection), args.Error(1)
}

func (m *MockConnectionRepository) Create(ctx context.Context, userID uuid.UUID, params types.CreateConnectionParams) (*types.Connection, error) {
	args := m.Called(ctx, userID, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Connection), args.Error(1)
}

func (m *MockConnectionRepository) Update(ctx context.Context, userID, id uuid.UUID, params types.UpdateConnectionParams) (*types.Connection, error) {
	args := m.Called(ctx, userID, id, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Connection), args.Error(1)
}

func (m *MockConnectionRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	args := m.Called(ctx, userID, id)
	return args.Error(0)
}

func (m *MockConnectionRepository) MarkSynced(ctx context.Context, userID, id uuid.UUID) (*types.Connection, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Connection), args.Error(1)
}

func setupConnectionServiceTest() (*ConnectionServiceImpl, *MockConnectionRepository) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mockRepo := new(MockConnectionRepository)
	service := NewConnectionService(mockRepo, logger)
	service.syncDelay = time.Millisecond
	return service, mockRepo
}

func TestConnectionServiceImpl_ListConnections(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("unfiltered list is cached", func(t *testing.T) {
		service, mockRepo := setupConnectionServiceTest()
		conns := []types.Connection{{ID: uuid.New(), UserID: userID, Name: "Main Bank", Status: types.ConnectionActive}}
		mockRepo.On("List", ctx, userID, types.ConnectionFilter{}).Return(conns, nil).Once()

		first, err := service.ListConnections(ctx, userID, types.ConnectionFilter{})
		require.NoError(t, err)
		second, err := service.ListConnections(ctx, userID, types.ConnectionFilter{})
		require.NoError(t, err)

		assert.Equal(t, first, second)
		mockRepo.AssertNumberOfCalls(t, "List", 1)
	})

	t.Run("filtered list bypasses the cache", func(t *testing.T) {
		service, mockRepo := setupConnectionServiceTest()
		filter := types.ConnectionFilter{Status: types.ConnectionError}
		mockRepo.On("List", ctx, userID, filter).Return([]types.Connection{}, nil).Twice()

		_, err := service.ListConnections(ctx, userID, filter)
		require.NoError(t, err)
		_, err = service.ListConnections(ctx, userID, filter)
		require.NoError(t, err)

		mockRepo.AssertNumberOfCalls(t, "List", 2)
	})

	t.Run("failed filtered fetch leaves the cached list untouched", func(t *testing.T) {
		service, mockRepo := setupConnectionServiceTest()
		conns := []types.Connection{{ID: uuid.New(), UserID: userID, Name: "Main Bank", Status: types.ConnectionActive}}
		filter := types.ConnectionFilter{Status: types.ConnectionError}
		mockRepo.On("List", ctx, userID, types.ConnectionFilter{}).Return(conns, nil).Once()
		mockRepo.On("List", ctx, userID, filter).Return(nil, errors.New("connection reset")).Once()

		cached, err := service.ListConnections(ctx, userID, types.ConnectionFilter{})
		require.NoError(t, err)

		_, err = service.ListConnections(ctx, userID, filter)
		require.Error(t, err)

		again, err := service.ListConnections(ctx, userID, types.ConnectionFilter{})
		require.NoError(t, err)
		assert.Equal(t, cached, again)
		mockRepo.AssertNumberOfCalls(t, "List", 2)
	})

	t.Run("no rows yields empty slice", func(t *testing.T) {
		service, mockRepo := setupConnectionServiceTest()
		mockRepo.On("List", ctx, userID, types.ConnectionFilter{}).Return(nil, nil).Once()

		conns, err := service.ListConnections(ctx, userID, types.ConnectionFilter{})
		require.NoError(t, err)
		assert.NotNil(t, conns)
		assert.Empty(t, conns)
	})
}

func TestConnectionServiceImpl_CreateConnection(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("create invalidates the cached list", func(t *testing.T) {
		service, mockRepo := setupConnectionServiceTest()
		params := types.CreateConnectionParams{Name: "Main Bank", Provider: "acme"}
		created := &types.Connection{ID: uuid.New(), UserID: userID, Name: "Main Bank", Provider: "acme", Status: types.ConnectionActive}

		mockRepo.On("List", ctx, userID, types.ConnectionFilter{}).Return([]types.Connection{}, nil).Once()
		mockRepo.On("Create", ctx, userID, params).Return(created, nil).Once()
		mockRepo.On("List", ctx, userID, types.ConnectionFilter{}).Return([]types.Connection{*created}, nil).Once()

		_, err := service.ListConnections(ctx, userID, types.ConnectionFilter{})
		require.NoError(t, err)

		_, err = service.CreateConnection(ctx, userID, params)
		require.NoError(t, err)

		conns, err := service.ListConnections(ctx, userID, types.ConnectionFilter{})
		require.NoError(t, err)
		assert.Len(t, conns, 1)
		mockRepo.AssertNumberOfCalls(t, "List", 2)
	})

	t.Run("missing name is rejected", func(t *testing.T) {
		service, mockRepo := setupConnectionServiceTest()
		_, err := service.CreateConnection(ctx, userID, types.CreateConnectionParams{Provider: "acme"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, types.ErrValidation))
		mockRepo.AssertNotCalled(t, "Create", ctx, userID, mock.Anything)
	})

	t.Run("invalid status is rejected", func(t *testing.T) {
		service, _ := setupConnectionServiceTest()
		_, err := service.CreateConnection(ctx, userID, types.CreateConnectionParams{
			Name: "Main Bank", Provider: "acme", Status: types.ConnectionStatus("broken"),
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, types.ErrValidation))
	})
}

func TestConnectionServiceImpl_RefreshConnection(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	connID := uuid.New()

	t.Run("sync marks the connection healthy", func(t *testing.T) {
		service, mockRepo := setupConnectionServiceTest()
		now := time.Now()
		errMsg := "provider timeout"
		stale := &types.Connection{ID: connID, UserID: userID, Status: types.ConnectionError, ErrorMessage: &errMsg}
		synced := &types.Connection{ID: connID, UserID: userID, Status: types.ConnectionActive, LastSync: &now}

		mockRepo.On("Get", ctx, userID, connID).Return(stale, nil).Once()
		mockRepo.On("MarkSynced", ctx, userID, connID).Return(synced, nil).Once()

		conn, err := service.RefreshConnection(ctx, userID, connID)
		require.NoError(t, err)
		assert.Equal(t, types.ConnectionActive, conn.Status)
		assert.Nil(t, conn.ErrorMessage)
		assert.NotNil(t, conn.LastSync)
		mockRepo.AssertExpectations(t)
	})

	t.Run("unknown connection", func(t *testing.T) {
		service, mockRepo := setupConnectionServiceTest()
		mockRepo.On("Get", ctx, userID, connID).Return(nil, types.ErrNotFound).Once()

		_, err := service.RefreshConnection(ctx, userID, connID)
		require.Error(t, err)
		assert.True(t, errors.Is(err, types.ErrNotFound))
		mockRepo.AssertNotCalled(t, "MarkSynced", ctx, userID, connID)
	})

	t.Run("cancelled context aborts the sync", func(t *testing.T) {
		service, mockRepo := setupConnectionServiceTest()
		service.syncDelay = time.Second

		cancelCtx, cancel := context.WithCancel(ctx)
		mockRepo.On("Get", cancelCtx, userID, connID).Return(&types.Connection{ID: connID, UserID: userID}, nil).Once()
		cancel()

		_, err := service.RefreshConnection(cancelCtx, userID, connID)
		require.Error(t, err)
		assert.True(t, errors.Is(err, context.Canceled))
		mockRepo.AssertNotCalled(t, "MarkSynced", cancelCtx, userID, connID)
	})

	t.Run("refresh invalidates the cached list", func(t *testing.T) {
		service, mockRepo := setupConnectionServiceTest()
		synced := &types.Connection{ID: connID, UserID: userID, Status: types.ConnectionActive}

		mockRepo.On("List", ctx, userID, types.ConnectionFilter{}).Return([]types.Connection{}, nil).Twice()
		mockRepo.On("Get", ctx, userID, connID).Return(synced, nil).Once()
		mockRepo.On("MarkSynced", ctx, userID, connID).Return(synced, nil).Once()

		_, err := service.ListConnections(ctx, userID, types.ConnectionFilter{})
		require.NoError(t, err)

		_, err = service.RefreshConnection(ctx, userID, connID)
		require.NoError(t, err)

		_, err = service.ListConnections(ctx, userID, types.ConnectionFilter{})
		require.NoError(t, err)
		mockRepo.AssertNumberOfCalls(t, "List", 2)
	})
}
