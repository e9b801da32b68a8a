package userProfiles

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/financehub/finance-hub/internal/types"
)

var _ ProfileRepository = (*PostgresProfileRepo)(nil)

type ProfileRepository interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*types.UserProfile, error)
	GetProfileByEmail(ctx context.Context, email string) (*types.UserProfile, error)
	CreateProfile(ctx context.Context, profile types.UserProfile) (*types.UserProfile, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, params types.UpdateProfileParams) (*types.UserProfile, error)
	ListProfilesWithRoles(ctx context.Context) ([]types.UserWithRoles, error)
}

type PostgresProfileRepo struct {
	logger *slog.Logger
	pgpool *pgxpool.Pool
}

func NewPostgresProfileRepo(pgxpool *pgxpool.Pool, logger *slog.Logger) *PostgresProfileRepo {
	return &PostgresProfileRepo{
		logger: logger,
		pgpool: pgxpool,
	}
}

func (r *PostgresProfileRepo) GetProfile(ctx context.Context, userID uuid.UUID) (*types.UserProfile, error) {
	ctx, span := otel.Tracer("ProfileRepo").Start(ctx, "GetProfile", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "user_profiles"),
		attribute.String("db.user.id", userID.String()),
	))
	defer span.End()

	var p types.UserProfile
	err := r.pgpool.QueryRow(ctx,
		`SELECT id, email, full_name, avatar_url, created_at, updated_at
         FROM user_profiles WHERE id = $1`, userID).Scan(
		&p.ID, &p.Email, &p.FullName, &p.AvatarURL, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error fetching profile: %w", err)
	}
	return &p, nil
}

func (r *PostgresProfileRepo) GetProfileByEmail(ctx context.Context, email string) (*types.UserProfile, error) {
	ctx, span := otel.Tracer("ProfileRepo").Start(ctx, "GetProfileByEmail", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "user_profiles"),
	))
	defer span.End()

	var p types.UserProfile
	err := r.pgpool.QueryRow(ctx,
		`SELECT id, email, full_name, avatar_url, created_at, updated_at
         FROM user_profiles WHERE email = $1`, email).Scan(
		&p.ID, &p.Email, &p.FullName, &p.AvatarURL, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("database error fetching profile: %w", err)
	}
	return &p, nil
}

func (r *PostgresProfileRepo) CreateProfile(ctx context.Context, profile types.UserProfile) (*types.UserProfile, error) {
	ctx, span := otel.Tracer("ProfileRepo").Start(ctx, "CreateProfile", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "user_profiles"),
		attribute.String("db.user.id", profile.ID.String()),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "CreateProfile"), slog.String("userID", profile.ID.String()))

	var p types.UserProfile
	err := r.pgpool.QueryRow(ctx,
		`INSERT INTO user_profiles (id, email, full_name, avatar_url)
         VALUES ($1, $2, $3, $4)
         ON CONFLICT (id) DO UPDATE SET updated_at = user_profiles.updated_at
         RETURNING id, email, full_name, avatar_url, created_at, updated_at`,
		profile.ID, profile.Email, profile.FullName, profile.AvatarURL).Scan(
		&p.ID, &p.Email, &p.FullName, &p.AvatarURL, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		l.ErrorContext(ctx, "Failed to create profile", slog.Any("error", err))
		span.RecordError(err)
		return nil, fmt.Errorf("database error creating profile: %w", err)
	}

	l.InfoContext(ctx, "Profile created")
	return &p, nil
}

func (r *PostgresProfileRepo) UpdateProfile(ctx context.Context, userID uuid.UUID, params types.UpdateProfileParams) (*types.UserProfile, error) {
	ctx, span := otel.Tracer("ProfileRepo").Start(ctx, "UpdateProfile", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "user_profiles"),
		attribute.String("db.user.id", userID.String()),
	))
	defer span.End()

	setClauses := []string{"updated_at = $1"}
	args := []interface{}{time.Now()}
	idx := 2

	if params.FullName != nil {
		setClauses = append(setClauses, fmt.Sprintf("full_name = $%d", idx))
		args = append(args, *params.FullName)
		idx++
	}
	if params.AvatarURL != nil {
		setClauses = append(setClauses, fmt.Sprintf("avatar_url = $%d", idx))
		args = append(args, *params.AvatarURL)
		idx++
	}

	args = append(args, userID)
	query := fmt.Sprintf(
		`UPDATE user_profiles SET %s WHERE id = $%d
         RETURNING id, email, full_name, avatar_url, created_at, updated_at`,
		strings.Join(setClauses, ", "), idx)

	var p types.UserProfile
	err := r.pgpool.QueryRow(ctx, query, args...).Scan(
		&p.ID, &p.Email, &p.FullName, &p.AvatarURL, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("database error updating profile: %w", err)
	}
	return &p, nil
}

func (r *PostgresProfileRepo) ListProfilesWithRoles(ctx context.Context) ([]types.UserWithRoles, error) {
	ctx, span := otel.Tracer("ProfileRepo").Start(ctx, "ListProfilesWithRoles", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "user_profiles, user_roles"),
	))
	defer span.End()

	query := `
        SELECT p.id, p.email, p.full_name, p.avatar_url, p.created_at, p.updated_at,
               COALESCE(array_agg(r.role) FILTER (WHERE r.role IS NOT NULL), '{}') AS roles
        FROM user_profiles p
        LEFT JOIN user_roles r ON r.user_id = p.id
        GROUP BY p.id, p.email, p.full_name, p.avatar_url, p.created_at, p.updated_at
        ORDER BY p.created_at DESC`

	rows, err := r.pgpool.Query(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error listing profiles: %w", err)
	}
	defer rows.Close()

	var users []types.UserWithRoles
	for rows.Next() {
		var u types.UserWithRoles
		var roles []string
		err := rows.Scan(
			&u.Profile.ID, &u.Profile.Email, &u.Profile.FullName, &u.Profile.AvatarURL,
			&u.Profile.CreatedAt, &u.Profile.UpdatedAt, &roles,
		)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("database error scanning profile row: %w", err)
		}
		for _, role := range roles {
			u.Roles = append(u.Roles, types.Role(role))
		}
		users = append(users, u)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("database error reading profiles: %w", err)
	}

	return users, nil
}
