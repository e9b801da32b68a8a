package automations

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/financehub/finance-hub/internal/types"
)

type MockAutomationRepository struct {
	mock.Mock
}

func (m *MockAutomationRepository) List(ctx context.Context, userID uuid.UUID, filter types.AutomationFilter) ([]types.Automation, error) {
	args := m.Called(ctx, userID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Automation), args.Error(1)
}

func (m *MockAutomationRepository) Get(ctx context.Context, userID, id uuid.UUID) (*types.Automation, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Automation), args.Error(1)
}

func (m *MockAutomationRepository) Create(ctx context.Context, userID uuid.UUID, params types.CreateAutomationParams) (*types.Automation, error) {
	args := m.Called(ctx, userID, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Automation), args.Error(1)
}

func (m *MockAutomationRepository) Update(ctx context.Context, userID, id uuid.UUID, params types.UpdateAutomationParams) (*types.Automation, error) {
	args := m.Called(ctx, userID, id, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Automation), args.Error(1)
}

func (m *MockAutomationRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	args := m.Called(ctx, userID, id)
	return args.Error(0)
}

func (m *MockAutomationRepository) RecordExecution(ctx context.Context, userID, id uuid.UUID) (*types.Automation, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Automation), args.Error(1)
}

func setupAutomationServiceTest() (*AutomationServiceImpl, *MockAutomationRepository) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mockRepo := new(MockAutomationRepository)
	service := NewAutomationService(mockRepo, logger)
	return service, mockRepo
}

func scheduleParams() types.CreateAutomationParams {
	return types.CreateAutomationParams{
		Name: "Monthly savings sweep",
		Type: types.AutomationSchedule,
		Trigger: types.Trigger{
			Description: "First day of every month",
			Schedule:    &types.ScheduleTrigger{Cron: "0 9 1 * *"},
		},
		Action: types.Action{
			Description: "Move spare cash",
			Kind:        types.ActionTransfer,
			Transfer: &types.TransferAction{
				FromConnectionID: uuid.New(),
				ToConnectionID:   uuid.New(),
				Amount:           decimal.NewFromInt(200),
				Currency:         "EUR",
			},
		},
	}
}

func TestAutomationServiceImpl_CreateAutomation(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("success", func(t *testing.T) {
		service, mockRepo := setupAutomationServiceTest()
		params := scheduleParams()
		created := &types.Automation{ID: uuid.New(), UserID: userID, Name: params.Name, Type: params.Type, Status: types.AutomationDraft}
		mockRepo.On("Create", ctx, userID, params).Return(created, nil).Once()

		auto, err := service.CreateAutomation(ctx, userID, params)
		require.NoError(t, err)
		assert.Equal(t, types.AutomationDraft, auto.Status)
		mockRepo.AssertExpectations(t)
	})

	t.Run("trigger variant must match the automation type", func(t *testing.T) {
		service, mockRepo := setupAutomationServiceTest()
		params := scheduleParams()
		params.Type = types.AutomationWebhook // schedule trigger attached

		_, err := service.CreateAutomation(ctx, userID, params)
		require.Error(t, err)
		assert.True(t, errors.Is(err, types.ErrValidation))
		mockRepo.AssertNotCalled(t, "Create", ctx, userID, mock.Anything)
	})

	t.Run("two trigger variants are rejected", func(t *testing.T) {
		service, _ := setupAutomationServiceTest()
		params := scheduleParams()
		params.Trigger.Webhook = &types.WebhookTrigger{Slug: "incoming"}

		_, err := service.CreateAutomation(ctx, userID, params)
		require.Error(t, err)
		assert.True(t, errors.Is(err, types.ErrValidation))
	})

	t.Run("zero transfer amount is rejected", func(t *testing.T) {
		service, _ := setupAutomationServiceTest()
		params := scheduleParams()
		params.Action.Transfer.Amount = decimal.Zero

		_, err := service.CreateAutomation(ctx, userID, params)
		require.Error(t, err)
		assert.True(t, errors.Is(err, types.ErrValidation))
	})

	t.Run("unknown action kind is rejected", func(t *testing.T) {
		service, _ := setupAutomationServiceTest()
		params := scheduleParams()
		params.Action.Kind = types.ActionKind("launch_rocket")

		_, err := service.CreateAutomation(ctx, userID, params)
		require.Error(t, err)
		assert.True(t, errors.Is(err, types.ErrValidation))
	})
}

func TestAutomationServiceImpl_UpdateAutomation(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	autoID := uuid.New()

	t.Run("replacement trigger is checked against the stored type", func(t *testing.T) {
		service, mockRepo := setupAutomationServiceTest()
		existing := &types.Automation{ID: autoID, UserID: userID, Type: types.AutomationSchedule}
		badTrigger := types.Trigger{Webhook: &types.WebhookTrigger{Slug: "incoming"}}

		mockRepo.On("Get", ctx, userID, autoID).Return(existing, nil).Once()

		_, err := service.UpdateAutomation(ctx, userID, autoID, types.UpdateAutomationParams{Trigger: &badTrigger})
		require.Error(t, err)
		assert.True(t, errors.Is(err, types.ErrValidation))
		mockRepo.AssertNotCalled(t, "Update", ctx, userID, autoID, mock.Anything)
	})

	t.Run("status change", func(t *testing.T) {
		service, mockRepo := setupAutomationServiceTest()
		status := types.AutomationActive
		params := types.UpdateAutomationParams{Status: &status}
		updated := &types.Automation{ID: autoID, UserID: userID, Status: types.AutomationActive}
		mockRepo.On("Update", ctx, userID, autoID, params).Return(updated, nil).Once()

		auto, err := service.UpdateAutomation(ctx, userID, autoID, params)
		require.NoError(t, err)
		assert.Equal(t, types.AutomationActive, auto.Status)
	})
}

func TestAutomationServiceImpl_ExecuteAutomation(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	autoID := uuid.New()

	t.Run("active automation records an execution", func(t *testing.T) {
		service, mockRepo := setupAutomationServiceTest()
		active := &types.Automation{ID: autoID, UserID: userID, Status: types.AutomationActive, Executions: 3}
		executed := &types.Automation{ID: autoID, UserID: userID, Status: types.AutomationActive, Executions: 4}

		mockRepo.On("Get", ctx, userID, autoID).Return(active, nil).Once()
		mockRepo.On("RecordExecution", ctx, userID, autoID).Return(executed, nil).Once()

		auto, err := service.ExecuteAutomation(ctx, userID, autoID)
		require.NoError(t, err)
		assert.Equal(t, 4, auto.Executions)
		mockRepo.AssertExpectations(t)
	})

	t.Run("paused automation cannot run", func(t *testing.T) {
		service, mockRepo := setupAutomationServiceTest()
		paused := &types.Automation{ID: autoID, UserID: userID, Status: types.AutomationPaused}
		mockRepo.On("Get", ctx, userID, autoID).Return(paused, nil).Once()

		_, err := service.ExecuteAutomation(ctx, userID, autoID)
		require.Error(t, err)
		assert.True(t, errors.Is(err, types.ErrValidation))
		mockRepo.AssertNotCalled(t, "RecordExecution", ctx, userID, autoID)
	})

	t.Run("unknown automation", func(t *testing.T) {
		service, mockRepo := setupAutomationServiceTest()
		mockRepo.On("Get", ctx, userID, autoID).Return(nil, types.ErrNotFound).Once()

		_, err := service.ExecuteAutomation(ctx, userID, autoID)
		require.Error(t, err)
		assert.True(t, errors.Is(err, types.ErrNotFound))
	})

	t.Run("execution invalidates the cached list", func(t *testing.T) {
		service, mockRepo := setupAutomationServiceTest()
		active := &types.Automation{ID: autoID, UserID: userID, Status: types.AutomationActive}

		mockRepo.On("List", ctx, userID, types.AutomationFilter{}).Return([]types.Automation{*active}, nil).Twice()
		mockRepo.On("Get", ctx, userID, autoID).Return(active, nil).Once()
		mockRepo.On("RecordExecution", ctx, userID, autoID).Return(active, nil).Once()

		_, err := service.ListAutomations(ctx, userID, types.AutomationFilter{})
		require.NoError(t, err)

		_, err = service.ExecuteAutomation(ctx, userID, autoID)
		require.NoError(t, err)

		_, err = service.ListAutomations(ctx, userID, types.AutomationFilter{})
		require.NoError(t, err)
		mockRepo.AssertNumberOfCalls(t, "List", 2)
	})
}
