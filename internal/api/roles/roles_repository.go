package roles

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/financehub/finance-hub/internal/types"
)

var _ RolesRepository = (*PostgresRolesRepo)(nil)

type RolesRepository interface {
	ListUserRoles(ctx context.Context, userID uuid.UUID) ([]types.UserRole, error)
	ListAllRoles(ctx context.Context) ([]types.UserRole, error)
	AssignRole(ctx context.Context, userID uuid.UUID, role types.Role) (*types.UserRole, error)
	RemoveRole(ctx context.Context, roleID uuid.UUID) (*types.UserRole, error)
}

type PostgresRolesRepo struct {
	logger *slog.Logger
	pgpool *pgxpool.Pool
}

func NewPostgresRolesRepo(pgxpool *pgxpool.Pool, logger *slog.Logger) *PostgresRolesRepo {
	return &PostgresRolesRepo{
		logger: logger,
		pgpool: pgxpool,
	}
}

func (r *PostgresRolesRepo) ListUserRoles(ctx context.Context, userID uuid.UUID) ([]types.UserRole, error) {
	ctx, span := otel.Tracer("RolesRepo").Start(ctx, "ListUserRoles", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "user_roles"),
		attribute.String("db.user.id", userID.String()),
	))
	defer span.End()

	rows, err := r.pgpool.Query(ctx,
		`SELECT id, user_id, role, created_at FROM user_roles WHERE user_id = $1 ORDER BY created_at DESC`,
		userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error fetching roles: %w", err)
	}
	defer rows.Close()

	return scanRoles(rows)
}

func (r *PostgresRolesRepo) ListAllRoles(ctx context.Context) ([]types.UserRole, error) {
	ctx, span := otel.Tracer("RolesRepo").Start(ctx, "ListAllRoles", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "user_roles"),
	))
	defer span.End()

	rows, err := r.pgpool.Query(ctx,
		`SELECT id, user_id, role, created_at FROM user_roles ORDER BY created_at DESC`)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("database error fetching roles: %w", err)
	}
	defer rows.Close()

	return scanRoles(rows)
}

func (r *PostgresRolesRepo) AssignRole(ctx context.Context, userID uuid.UUID, role types.Role) (*types.UserRole, error) {
	ctx, span := otel.Tracer("RolesRepo").Start(ctx, "AssignRole", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "user_roles"),
		attribute.String("db.user.id", userID.String()),
		attribute.String("role", string(role)),
	))
	defer span.End()

	var ur types.UserRole
	err := r.pgpool.QueryRow(ctx,
		`INSERT INTO user_roles (user_id, role) VALUES ($1, $2)
         RETURNING id, user_id, role, created_at`,
		userID, role).Scan(&ur.ID, &ur.UserID, &ur.Role, &ur.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, fmt.Errorf("role already assigned: %w", types.ErrConflict)
		}
		span.RecordError(err)
		return nil, fmt.Errorf("database error assigning role: %w", err)
	}

	r.logger.InfoContext(ctx, "Role assigned",
		slog.String("userID", userID.String()),
		slog.String("role", string(role)),
	)
	return &ur, nil
}

func (r *PostgresRolesRepo) RemoveRole(ctx context.Context, roleID uuid.UUID) (*types.UserRole, error) {
	ctx, span := otel.Tracer("RolesRepo").Start(ctx, "RemoveRole", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "user_roles"),
	))
	defer span.End()

	var ur types.UserRole
	err := r.pgpool.QueryRow(ctx,
		`DELETE FROM user_roles WHERE id = $1 RETURNING id, user_id, role, created_at`,
		roleID).Scan(&ur.ID, &ur.UserID, &ur.Role, &ur.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("database error removing role: %w", err)
	}
	return &ur, nil
}

func scanRoles(rows pgx.Rows) ([]types.UserRole, error) {
	var roles []types.UserRole
	for rows.Next() {
		var ur types.UserRole
		if err := rows.Scan(&ur.ID, &ur.UserID, &ur.Role, &ur.CreatedAt); err != nil {
			return nil, fmt.Errorf("database error scanning role row: %w", err)
		}
		roles = append(roles, ur)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database error reading roles: %w", err)
	}
	return roles, nil
}
