package connections

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/financehub/finance-hub/internal/types"
)

var _ ConnectionService = (*ConnectionServiceImpl)(nil)

// DefaultSyncDelay is how long a simulated provider sync takes.
const DefaultSyncDelay = 1500 * time.Millisecond

type ConnectionService interface {
	ListConnections(ctx context.Context, userID uuid.UUID, filter types.ConnectionFilter) ([]types.Connection, error)
	GetConnection(ctx context.Context, userID, id uuid.UUID) (*types.Connection, error)
	CreateConnection(ctx context.Context, userID uuid.UUID, params types.CreateConnectionParams) (*types.Connection, error)
	UpdateConnection(ctx context.Context, userID, id uuid.UUID, params types.UpdateConnectionParams) (*types.Connection, error)
	DeleteConnection(ctx context.Context, userID, id uuid.UUID) error
	RefreshConnection(ctx context.Context, userID, id uuid.UUID) (*types.Connection, error)
}

type ConnectionServiceImpl struct {
	logger    *slog.Logger
	repo      ConnectionRepository
	cache     *cache.Cache
	syncDelay time.Duration
}

func NewConnectionService(repo ConnectionRepository, logger *slog.Logger) *ConnectionServiceImpl {
	return &ConnectionServiceImpl{
		logger:    logger,
		repo:      repo,
		cache:     cache.New(5*time.Minute, 10*time.Minute),
		syncDelay: DefaultSyncDelay,
	}
}

func cacheKey(userID uuid.UUID) string {
	return "connections:" + userID.String()
}

func (s *ConnectionServiceImpl) ListConnections(ctx context.Context, userID uuid.UUID, filter types.ConnectionFilter) ([]types.Connection, error) {
	l := s.logger.With(slog.String("method", "ListConnections"), slog.String("userID", userID.String()))

	// Only the unfiltered list is cached; filtered queries go to the DB.
	unfiltered := filter == (types.ConnectionFilter{})
	if unfiltered {
		if cached, found := s.cache.Get(cacheKey(userID)); found {
			l.DebugContext(ctx, "Returning cached connections")
			return cached.([]types.Connection), nil
		}
	}

	conns, err := s.repo.List(ctx, userID, filter)
	if err != nil {
		l.ErrorContext(ctx, "Failed to list connections", slog.Any("error", err))
		return nil, fmt.Errorf("failed to list connections: %w", err)
	}
	if conns == nil {
		conns = []types.Connection{}
	}

	if unfiltered {
		s.cache.Set(cacheKey(userID), conns, cache.DefaultExpiration)
	}
	return conns, nil
}

func (s *ConnectionServiceImpl) GetConnection(ctx context.Context, userID, id uuid.UUID) (*types.Connection, error) {
	c, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get connection: %w", err)
	}
	return c, nil
}

func (s *ConnectionServiceImpl) CreateConnection(ctx context.Context, userID uuid.UUID, params types.CreateConnectionParams) (*types.Connection, error) {
	l := s.logger.With(slog.String("method", "CreateConnection"), slog.String("userID", userID.String()))

	if params.Name == "" || params.Provider == "" {
		return nil, fmt.Errorf("%w: name and provider are required", types.ErrValidation)
	}
	if params.Status != "" && !params.Status.Valid() {
		return nil, fmt.Errorf("%w: invalid status %q", types.ErrValidation, params.Status)
	}

	c, err := s.repo.Create(ctx, userID, params)
	if err != nil {
		l.ErrorContext(ctx, "Failed to create connection", slog.Any("error", err))
		return nil, fmt.Errorf("failed to create connection: %w", err)
	}

	s.cache.Delete(cacheKey(userID))
	return c, nil
}

func (s *ConnectionServiceImpl) UpdateConnection(ctx context.Context, userID, id uuid.UUID, params types.UpdateConnectionParams) (*types.Connection, error) {
	l := s.logger.With(slog.String("method", "UpdateConnection"), slog.String("connectionID", id.String()))

	if params.Status != nil && !params.Status.Valid() {
		return nil, fmt.Errorf("%w: invalid status %q", types.ErrValidation, *params.Status)
	}

	c, err := s.repo.Update(ctx, userID, id, params)
	if err != nil {
		l.ErrorContext(ctx, "Failed to update connection", slog.Any("error", err))
		return nil, fmt.Errorf("failed to update connection: %w", err)
	}

	s.cache.Delete(cacheKey(userID))
	return c, nil
}

func (s *ConnectionServiceImpl) DeleteConnection(ctx context.Context, userID, id uuid.UUID) error {
	l := s.logger.With(slog.String("method", "DeleteConnection"), slog.String("connectionID", id.String()))

	if err := s.repo.Delete(ctx, userID, id); err != nil {
		l.ErrorContext(ctx, "Failed to delete connection", slog.Any("error", err))
		return fmt.Errorf("failed to delete connection: %w", err)
	}

	s.cache.Delete(cacheKey(userID))
	return nil
}

// RefreshConnection runs a simulated provider sync: it waits for the sync
// delay, then marks the connection healthy and stamps last_sync. The delay is
// interruptible through the request context.
func (s *ConnectionServiceImpl) RefreshConnection(ctx context.Context, userID, id uuid.UUID) (*types.Connection, error) {
	l := s.logger.With(slog.String("method", "RefreshConnection"), slog.String("connectionID", id.String()))

	// Ownership check up front so a missing connection fails fast.
	if _, err := s.repo.Get(ctx, userID, id); err != nil {
		return nil, fmt.Errorf("failed to refresh connection: %w", err)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(s.syncDelay):
	}

	c, err := s.repo.MarkSynced(ctx, userID, id)
	if err != nil {
		l.ErrorContext(ctx, "Failed to mark connection synced", slog.Any("error", err))
		return nil, fmt.Errorf("failed to refresh connection: %w", err)
	}

	s.cache.Delete(cacheKey(userID))
	l.InfoContext(ctx, "Connection synced", slog.String("status", string(c.Status)))
	return c, nil
}
