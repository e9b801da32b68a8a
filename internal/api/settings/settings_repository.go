package settings

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

var _ SettingsRepository = (*PostgresSettingsRepo)(nil)

type SettingsRepository interface {
	// GetSettings retrieves the settings row for a user; ErrNotFound when the
	// account predates eager creation and has not been backfilled yet.
	GetSettings(ctx context.Context, userID uuid.UUID) (*types.UserSettings, error)
	CreateSettings(ctx context.Context, settings types.UserSettings) (*types.UserSettings, error)
	UpdateSettings(ctx context.Context, userID uuid.UUID, params types.UpdateSettingsParams) (*types.UserSettings, error)
}

type PostgresSettingsRepo struct {
	logger *slog.Logger
	pgpool *pgxpool.Pool
}

func NewPostgresSettingsRepo(pgxpool *pgxpool.Pool, logger *slog.Logger) *PostgresSettingsRepo {
	return &PostgresSettingsRepo{
		logger: logger,
		pgpool: pgxpool,
	}
}

const settingsColumns = `id, user_id, theme, language, notifications, email_notifications, dashboard_widgets, created_at, updated_at`

func (r *PostgresSettingsRepo) GetSettings(ctx context.Context, userID uuid.UUID) (*types.UserSettings, error) {
	ctx, span := otel.Tracer("SettingsRepo").Start(ctx, "GetSettings", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "settings"),
		attribute.String("db.user.id", userID.String()),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "GetSettings"), slog.String("userID", userID.String()))
	l.DebugContext(ctx, "Fetching user settings")

	var s types.UserSettings
	err := r.pgpool.QueryRow(ctx,
		`SELECT `+settingsColumns+` FROM settings WHERE user_id = $1`, userID).Scan(
		&s.ID, &s.UserID, &s.Theme, &s.Language, &s.Notifications,
		&s.EmailNotifications, &s.DashboardWidgets, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error fetching settings: %w", err)
	}
	return &s, nil
}

func (r *PostgresSettingsRepo) CreateSettings(ctx context.Context, settings types.UserSettings) (*types.UserSettings, error) {
	ctx, span := otel.Tracer("SettingsRepo").Start(ctx, "CreateSettings", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "settings"),
		attribute.String("db.user.id", settings.UserID.String()),
	))
	defer span.End()

	var s types.UserSettings
	err := r.pgpool.QueryRow(ctx,
		`INSERT INTO settings (user_id, theme, language, notifications, email_notifications, dashboard_widgets)
         VALUES ($1, $2, $3, $4, $5, $6)
         ON CONFLICT (user_id) DO UPDATE SET updated_at = settings.updated_at
         RETURNING `+settingsColumns,
		settings.UserID, settings.Theme, settings.Language, settings.Notifications,
		settings.EmailNotifications, settings.DashboardWidgets).Scan(
		&s.ID, &s.UserID, &s.Theme, &s.Language, &s.Notifications,
		&s.EmailNotifications, &s.DashboardWidgets, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("database error creating settings: %w", err)
	}

	r.logger.InfoContext(ctx, "Settings row created", slog.String("userID", settings.UserID.String()))
	return &s, nil
}

func (r *PostgresSettingsRepo) UpdateSettings(ctx context.Context, userID uuid.UUID, params types.UpdateSettingsParams) (*types.UserSettings, error) {
	ctx, span := otel.Tracer("SettingsRepo").Start(ctx, "UpdateSettings", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "settings"),
		attribute.String("db.user.id", userID.String()),
	))
	defer span.End()

	setClauses := []string{"updated_at = $1"}
	args := []interface{}{time.Now()}
	idx := 2

	if params.Theme != nil {
		setClauses = append(setClauses, fmt.Sprintf("theme = $%d", idx))
		args = append(args, *params.Theme)
		idx++
	}
	if params.Language != nil {
		setClauses = append(setClauses, fmt.Sprintf("language = $%d", idx))
		args = append(args, *params.Language)
		idx++
	}
	if params.Notifications != nil {
		setClauses = append(setClauses, fmt.Sprintf("notifications = $%d", idx))
		args = append(args, *params.Notifications)
		idx++
	}
	if params.EmailNotifications != nil {
		setClauses = append(setClauses, fmt.Sprintf("email_notifications = $%d", idx))
		args = append(args, *params.EmailNotifications)
		idx++
	}
	if params.DashboardWidgets != nil {
		setClauses = append(setClauses, fmt.Sprintf("dashboard_widgets = $%d", idx))
		args = append(args, *params.DashboardWidgets)
		idx++
	}

	args = append(args, userID)
	query := fmt.Sprintf(
		`UPDATE settings SET %s WHERE user_id = $%d RETURNING `+settingsColumns,
		strings.Join(setClauses, ", "), idx)

	var s types.UserSettings
	err := r.pgpool.QueryRow(ctx, query, args...).Scan(
		&s.ID, &s.UserID, &s.Theme, &s.Language, &s.Notifications,
		&s.EmailNotifications, &s.DashboardWidgets, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("database error updating settings: %w", err)
	}
	return &s, nil
}
