package securityLogs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/financehub/finance-hub/internal/types"
)

type MockSecurityLogRepository struct {
	mock.Mock
}

func (m *MockSecurityLogRepository) LogEvent(ctx context.Context, userID uuid.UUID, params types.LogEventParams) (uuid.UUID, error) {
	args := m.Called(ctx, userID, params)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockSecurityLogRepository) List(ctx context.Context, userID uuid.UUID, filter types.SecurityLogFilter) ([]types.SecurityLog, error) {
	args := m.Called(ctx, userID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.SecurityLog), args.Error(1)
}

func setupSecurityLogServiceTest() (*SecurityLogServiceImpl, *MockSecurityLogRepository) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mockRepo := new(MockSecurityLogRepository)
	service := NewSecurityLogService(mockRepo, logger)
	return service, mockRepo
}

func TestSecurityLogServiceImpl_LogEvent(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("success", func(t *testing.T) {
		service, mockRepo := setupSecurityLogServiceTest()
		logID := uuid.New()
		ip := "203.0.113.7"
		ua := "Mozilla/5.0"
		params := types.LogEventParams{
			EventType:   "login_success",
			Description: "User signed in",
			IPAddress:   &ip,
			UserAgent:   &ua,
		}
		mockRepo.On("LogEvent", ctx, userID, params).Return(logID, nil).Once()

		got, err := service.LogEvent(ctx, userID, params)
		require.NoError(t, err)
		assert.Equal(t, logID, got)
		mockRepo.AssertExpectations(t)
	})

	t.Run("missing event type is rejected", func(t *testing.T) {
		service, mockRepo := setupSecurityLogServiceTest()

		_, err := service.LogEvent(ctx, userID, types.LogEventParams{Description: "something happened"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, types.ErrValidation))
		mockRepo.AssertNotCalled(t, "LogEvent", ctx, userID, mock.Anything)
	})

	t.Run("missing description is rejected", func(t *testing.T) {
		service, _ := setupSecurityLogServiceTest()

		_, err := service.LogEvent(ctx, userID, types.LogEventParams{EventType: "login_failed"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, types.ErrValidation))
	})

	t.Run("repository failure is wrapped", func(t *testing.T) {
		service, mockRepo := setupSecurityLogServiceTest()
		params := types.LogEventParams{EventType: "login_failed", Description: "Bad password"}
		mockRepo.On("LogEvent", ctx, userID, params).Return(uuid.Nil, errors.New("db down")).Once()

		_, err := service.LogEvent(ctx, userID, params)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to log security event")
	})
}

func TestSecurityLogServiceImpl_ListSecurityLogs(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("returns logs", func(t *testing.T) {
		service, mockRepo := setupSecurityLogServiceTest()
		logs := []types.SecurityLog{{ID: uuid.New(), UserID: userID, EventType: "login_success"}}
		mockRepo.On("List", ctx, userID, types.SecurityLogFilter{}).Return(logs, nil).Once()

		got, err := service.ListSecurityLogs(ctx, userID, types.SecurityLogFilter{})
		require.NoError(t, err)
		assert.Equal(t, logs, got)
	})

	t.Run("nil result becomes empty slice", func(t *testing.T) {
		service, mockRepo := setupSecurityLogServiceTest()
		mockRepo.On("List", ctx, userID, types.SecurityLogFilter{}).Return(nil, nil).Once()

		got, err := service.ListSecurityLogs(ctx, userID, types.SecurityLogFilter{})
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("event type filter is passed through", func(t *testing.T) {
		service, mockRepo := setupSecurityLogServiceTest()
		filter := types.SecurityLogFilter{EventType: "password_changed", Limit: 20}
		mockRepo.On("List", ctx, userID, filter).Return([]types.SecurityLog{}, nil).Once()

		_, err := service.ListSecurityLogs(ctx, userID, filter)
		require.NoError(t, err)
		mockRepo.AssertExpectations(t)
	})
}
