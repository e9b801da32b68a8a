package roles

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/financehub/finance-hub/internal/types"
)

var _ RolesService = (*RolesServiceImpl)(nil)

type RolesService interface {
	ListUserRoles(ctx context.Context, userID uuid.UUID) ([]types.UserRole, error)
	ListAllRoles(ctx context.Context) ([]types.UserRole, error)
	AssignRole(ctx context.Context, userID uuid.UUID, role types.Role) (*types.UserRole, error)
	RemoveRole(ctx context.Context, roleID uuid.UUID) (*types.UserRole, error)
}

type RolesServiceImpl struct {
	logger *slog.Logger
	repo   RolesRepository
}

func NewRolesService(repo RolesRepository, logger *slog.Logger) *RolesServiceImpl {
	return &RolesServiceImpl{
		logger: logger,
		repo:   repo,
	}
}

func (s *RolesServiceImpl) ListUserRoles(ctx context.Context, userID uuid.UUID) ([]types.UserRole, error) {
	roles, err := s.repo.ListUserRoles(ctx, userID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list user roles", slog.Any("error", err))
		return nil, fmt.Errorf("error listing user roles: %w", err)
	}
	return roles, nil
}

func (s *RolesServiceImpl) ListAllRoles(ctx context.Context) ([]types.UserRole, error) {
	roles, err := s.repo.ListAllRoles(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list all roles", slog.Any("error", err))
		return nil, fmt.Errorf("error listing roles: %w", err)
	}
	return roles, nil
}

// AssignRole adds a (user, role) membership. Membership is additive; the
// repository rejects duplicates with ErrConflict.
func (s *RolesServiceImpl) AssignRole(ctx context.Context, userID uuid.UUID, role types.Role) (*types.UserRole, error) {
	l := s.logger.With(slog.String("method", "AssignRole"), slog.String("userID", userID.String()))

	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", types.ErrValidation, role)
	}

	ur, err := s.repo.AssignRole(ctx, userID, role)
	if err != nil {
		l.ErrorContext(ctx, "Failed to assign role", slog.Any("error", err))
		return nil, fmt.Errorf("error assigning role: %w", err)
	}

	l.InfoContext(ctx, "Role assigned", slog.String("role", string(role)))
	return ur, nil
}

func (s *RolesServiceImpl) RemoveRole(ctx context.Context, roleID uuid.UUID) (*types.UserRole, error) {
	l := s.logger.With(slog.String("method", "RemoveRole"), slog.String("roleID", roleID.String()))

	ur, err := s.repo.RemoveRole(ctx, roleID)
	if err != nil {
		l.ErrorContext(ctx, "Failed to remove role", slog.Any("error", err))
		return nil, fmt.Errorf("error removing role: %w", err)
	}

	l.InfoContext(ctx, "Role removed", slog.String("role", string(ur.Role)))
	return ur, nil
}
