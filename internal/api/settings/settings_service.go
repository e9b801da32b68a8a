package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/financehub/finance-hub/internal/types"
)

var _ SettingsService = (*SettingsServiceImpl)(nil)

type SettingsService interface {
	GetSettings(ctx context.Context, userID uuid.UUID) (*types.UserSettings, error)
	UpdateSettings(ctx context.Context, userID uuid.UUID, params types.UpdateSettingsParams) (*types.UserSettings, error)
}

type SettingsServiceImpl struct {
	logger *slog.Logger
	repo   SettingsRepository
}

func NewSettingsService(repo SettingsRepository, logger *slog.Logger) *SettingsServiceImpl {
	return &SettingsServiceImpl{
		logger: logger,
		repo:   repo,
	}
}

// GetSettings returns the user's settings, creating the default row lazily
// for accounts that predate eager creation.
func (s *SettingsServiceImpl) GetSettings(ctx context.Context, userID uuid.UUID) (*types.UserSettings, error) {
	l := s.logger.With(slog.String("method", "GetSettings"), slog.String("userID", userID.String()))
	l.DebugContext(ctx, "Fetching user settings")

	settings, err := s.repo.GetSettings(ctx, userID)
	if errors.Is(err, types.ErrNotFound) {
		settings, err = s.repo.CreateSettings(ctx, types.DefaultSettings(userID))
	}
	if err != nil {
		l.ErrorContext(ctx, "Failed to fetch user settings", slog.Any("error", err))
		return nil, fmt.Errorf("error fetching user settings: %w", err)
	}
	return settings, nil
}

func (s *SettingsServiceImpl) UpdateSettings(ctx context.Context, userID uuid.UUID, params types.UpdateSettingsParams) (*types.UserSettings, error) {
	l := s.logger.With(slog.String("method", "UpdateSettings"), slog.String("userID", userID.String()))
	l.DebugContext(ctx, "Updating user settings")

	if params.Theme != nil && *params.Theme != types.ThemeLight && *params.Theme != types.ThemeDark {
		return nil, fmt.Errorf("%w: unknown theme %q", types.ErrValidation, *params.Theme)
	}
	if params.Language != nil && *params.Language != types.LanguageSpanish && *params.Language != types.LanguageEnglish {
		return nil, fmt.Errorf("%w: unknown language %q", types.ErrValidation, *params.Language)
	}

	settings, err := s.repo.UpdateSettings(ctx, userID, params)
	if err != nil {
		l.ErrorContext(ctx, "Failed to update user settings", slog.Any("error", err))
		return nil, fmt.Errorf("error updating user settings: %w", err)
	}

	l.InfoContext(ctx, "User settings updated")
	return settings, nil
}
