package userProfiles

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/financehub/finance-hub/internal/types"
)

var _ ProfileService = (*ProfileServiceImpl)(nil)

// ProfileService defines the business logic contract for profile operations.
type ProfileService interface {
	GetUserProfile(ctx context.Context, userID uuid.UUID) (*types.UserProfile, error)
	UpdateUserProfile(ctx context.Context, userID uuid.UUID, params types.UpdateProfileParams) (*types.UserProfile, error)
	ListUsers(ctx context.Context) ([]types.UserWithRoles, error)
}

type ProfileServiceImpl struct {
	logger *slog.Logger
	repo   ProfileRepository
}

func NewProfileService(repo ProfileRepository, logger *slog.Logger) *ProfileServiceImpl {
	return &ProfileServiceImpl{
		logger: logger,
		repo:   repo,
	}
}

func (s *ProfileServiceImpl) GetUserProfile(ctx context.Context, userID uuid.UUID) (*types.UserProfile, error) {
	l := s.logger.With(slog.String("method", "GetUserProfile"), slog.String("userID", userID.String()))
	l.DebugContext(ctx, "Fetching user profile")

	profile, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		l.ErrorContext(ctx, "Failed to fetch user profile", slog.Any("error", err))
		return nil, fmt.Errorf("error fetching user profile: %w", err)
	}
	return profile, nil
}

// UpdateUserProfile writes the allowed profile fields and returns the row the
// database produced, never a locally patched copy.
func (s *ProfileServiceImpl) UpdateUserProfile(ctx context.Context, userID uuid.UUID, params types.UpdateProfileParams) (*types.UserProfile, error) {
	l := s.logger.With(slog.String("method", "UpdateUserProfile"), slog.String("userID", userID.String()))
	l.DebugContext(ctx, "Updating user profile")

	profile, err := s.repo.UpdateProfile(ctx, userID, params)
	if err != nil {
		l.ErrorContext(ctx, "Failed to update user profile", slog.Any("error", err))
		return nil, fmt.Errorf("error updating user profile: %w", err)
	}

	l.InfoContext(ctx, "User profile updated")
	return profile, nil
}

func (s *ProfileServiceImpl) ListUsers(ctx context.Context) ([]types.UserWithRoles, error) {
	l := s.logger.With(slog.String("method", "ListUsers"))
	l.DebugContext(ctx, "Listing users with roles")

	users, err := s.repo.ListProfilesWithRoles(ctx)
	if err != nil {
		l.ErrorContext(ctx, "Failed to list users", slog.Any("error", err))
		return nil, fmt.Errorf("error listing users: %w", err)
	}
	return users, nil
}
