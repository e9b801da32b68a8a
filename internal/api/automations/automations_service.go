package automations

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/financehub/finance-hub/internal/types"
)

var _ AutomationService = (*AutomationServiceImpl)(nil)

type AutomationService interface {
	ListAutomations(ctx context.Context, userID uuid.UUID, filter types.AutomationFilter) ([]types.Automation, error)
	GetAutomation(ctx context.Context, userID, id uuid.UUID) (*types.Automation, error)
	CreateAutomation(ctx context.Context, userID uuid.UUID, params types.CreateAutomationParams) (*types.Automation, error)
	UpdateAutomation(ctx context.Context, userID, id uuid.UUID, params types.UpdateAutomationParams) (*types.Automation, error)
	DeleteAutomation(ctx context.Context, userID, id uuid.UUID) error
	ExecuteAutomation(ctx context.Context, userID, id uuid.UUID) (*types.Automation, error)
}

type AutomationServiceImpl struct {
	logger *slog.Logger
	repo   AutomationRepository
	cache  *cache.Cache
}

func NewAutomationService(repo AutomationRepository, logger *slog.Logger) *AutomationServiceImpl {
	return &AutomationServiceImpl{
		logger: logger,
		repo:   repo,
		cache:  cache.New(5*time.Minute, 10*time.Minute),
	}
}

func cacheKey(userID uuid.UUID) string {
	return "automations:" + userID.String()
}

func (s *AutomationServiceImpl) ListAutomations(ctx context.Context, userID uuid.UUID, filter types.AutomationFilter) ([]types.Automation, error) {
	l := s.logger.With(slog.String("method", "ListAutomations"), slog.String("userID", userID.String()))

	unfiltered := filter == (types.AutomationFilter{})
	if unfiltered {
		if cached, found := s.cache.Get(cacheKey(userID)); found {
			l.DebugContext(ctx, "Returning cached automations")
			return cached.([]types.Automation), nil
		}
	}

	autos, err := s.repo.List(ctx, userID, filter)
	if err != nil {
		l.ErrorContext(ctx, "Failed to list automations", slog.Any("error", err))
		return nil, fmt.Errorf("failed to list automations: %w", err)
	}
	if autos == nil {
		autos = []types.Automation{}
	}

	if unfiltered {
		s.cache.Set(cacheKey(userID), autos, cache.DefaultExpiration)
	}
	return autos, nil
}

func (s *AutomationServiceImpl) GetAutomation(ctx context.Context, userID, id uuid.UUID) (*types.Automation, error) {
	a, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get automation: %w", err)
	}
	return a, nil
}

func (s *AutomationServiceImpl) CreateAutomation(ctx context.Context, userID uuid.UUID, params types.CreateAutomationParams) (*types.Automation, error) {
	l := s.logger.With(slog.String("method", "CreateAutomation"), slog.String("userID", userID.String()))

	if params.Name == "" {
		return nil, fmt.Errorf("%w: name is required", types.ErrValidation)
	}
	if !params.Type.Valid() {
		return nil, fmt.Errorf("%w: invalid automation type %q", types.ErrValidation, params.Type)
	}
	if params.Status != "" && !params.Status.Valid() {
		return nil, fmt.Errorf("%w: invalid automation status %q", types.ErrValidation, params.Status)
	}
	if err := params.Trigger.Validate(params.Type); err != nil {
		return nil, err
	}
	if err := params.Action.Validate(); err != nil {
		return nil, err
	}

	a, err := s.repo.Create(ctx, userID, params)
	if err != nil {
		l.ErrorContext(ctx, "Failed to create automation", slog.Any("error", err))
		return nil, fmt.Errorf("failed to create automation: %w", err)
	}

	s.cache.Delete(cacheKey(userID))
	return a, nil
}

func (s *AutomationServiceImpl) UpdateAutomation(ctx context.Context, userID, id uuid.UUID, params types.UpdateAutomationParams) (*types.Automation, error) {
	l := s.logger.With(slog.String("method", "UpdateAutomation"), slog.String("automationID", id.String()))

	if params.Status != nil && !params.Status.Valid() {
		return nil, fmt.Errorf("%w: invalid automation status %q", types.ErrValidation, *params.Status)
	}
	// A replacement trigger is validated against the automation's stored type,
	// which cannot change after creation.
	if params.Trigger != nil {
		existing, err := s.repo.Get(ctx, userID, id)
		if err != nil {
			return nil, fmt.Errorf("failed to update automation: %w", err)
		}
		if err := params.Trigger.Validate(existing.Type); err != nil {
			return nil, err
		}
	}
	if params.Action != nil {
		if err := params.Action.Validate(); err != nil {
			return nil, err
		}
	}

	a, err := s.repo.Update(ctx, userID, id, params)
	if err != nil {
		l.ErrorContext(ctx, "Failed to update automation", slog.Any("error", err))
		return nil, fmt.Errorf("failed to update automation: %w", err)
	}

	s.cache.Delete(cacheKey(userID))
	return a, nil
}

func (s *AutomationServiceImpl) DeleteAutomation(ctx context.Context, userID, id uuid.UUID) error {
	l := s.logger.With(slog.String("method", "DeleteAutomation"), slog.String("automationID", id.String()))

	if err := s.repo.Delete(ctx, userID, id); err != nil {
		l.ErrorContext(ctx, "Failed to delete automation", slog.Any("error", err))
		return fmt.Errorf("failed to delete automation: %w", err)
	}

	s.cache.Delete(cacheKey(userID))
	return nil
}

// ExecuteAutomation runs an automation on demand. Paused and draft automations
// cannot be executed.
func (s *AutomationServiceImpl) ExecuteAutomation(ctx context.Context, userID, id uuid.UUID) (*types.Automation, error) {
	l := s.logger.With(slog.String("method", "ExecuteAutomation"), slog.String("automationID", id.String()))

	existing, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to execute automation: %w", err)
	}
	if existing.Status != types.AutomationActive {
		return nil, fmt.Errorf("%w: automation is %s", types.ErrValidation, existing.Status)
	}

	a, err := s.repo.RecordExecution(ctx, userID, id)
	if err != nil {
		l.ErrorContext(ctx, "Failed to record execution", slog.Any("error", err))
		return nil, fmt.Errorf("failed to execute automation: %w", err)
	}

	s.cache.Delete(cacheKey(userID))
	l.InfoContext(ctx, "Automation executed", slog.Int("executions", a.Executions))
	return a, nil
}
