package connections

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

var _ ConnectionRepository = (*PostgresConnectionRepo)(nil)

type ConnectionRepository interface {
	List(ctx context.Context, userID uuid.UUID, filter types.ConnectionFilter) ([]types.Connection, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*types.Connection, error)
	Create(ctx context.Context, userID uuid.UUID, params types.CreateConnectionParams) (*types.Connection, error)
	Update(ctx context.Context, userID, id uuid.UUID, params types.UpdateConnectionParams) (*types.Connection, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	// MarkSynced stamps last_sync, forces status to active and clears the
	// error message. It backs the simulated provider sync.
	MarkSynced(ctx context.Context, userID, id uuid.UUID) (*types.Connection, error)
}

type PostgresConnectionRepo struct {
	logger *slog.Logger
	pgpool *pgxpool.Pool
}

func NewPostgresConnectionRepo(pgxpool *pgxpool.Pool, logger *slog.Logger) *PostgresConnectionRepo {
	return &PostgresConnectionRepo{
		logger: logger,
		pgpool: pgxpool,
	}
}

const connectionColumns = `id, user_id, name, provider, status, logo, api_key, last_sync, error_message, created_at, updated_at`

func scanConnection(row pgx.Row) (*types.Connection, error) {
	var c types.Connection
	err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.Provider, &c.Status, &c.Logo,
		&c.APIKey, &c.LastSync, &c.ErrorMessage, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *PostgresConnectionRepo) List(ctx context.Context, userID uuid.UUID, filter types.ConnectionFilter) ([]types.Connection, error) {
	ctx, span := otel.Tracer("ConnectionRepo").Start(ctx, "List", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "connections"),
		attribute.String("db.user.id", userID.String()),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "List"), slog.String("userID", userID.String()))
	l.DebugContext(ctx, "Fetching connections")

	where := []string{"user_id = $1"}
	args := []interface{}{userID}
	idx := 2

	if filter.Provider != "" {
		where = append(where, fmt.Sprintf("provider = $%d", idx))
		args = append(args, filter.Provider)
		idx++
	}
	if filter.Status != "" {
		where = append(where, fmt.Sprintf("status = $%d", idx))
		args = append(args, filter.Status)
		idx++
	}

	query := fmt.Sprintf(
		`SELECT %s FROM connections WHERE %s ORDER BY created_at DESC`,
		connectionColumns, strings.Join(where, " AND "))
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", idx)
		args = append(args, filter.Limit)
	}

	rows, err := r.pgpool.Query(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error fetching connections: %w", err)
	}
	defer rows.Close()

	var conns []types.Connection
	for rows.Next() {
		c, err := scanConnection(rows)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("database error scanning connection: %w", err)
		}
		conns = append(conns, *c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("database error reading connections: %w", err)
	}

	l.DebugContext(ctx, "Fetched connections", slog.Int("count", len(conns)))
	return conns, nil
}

func (r *PostgresConnectionRepo) Get(ctx context.Context, userID, id uuid.UUID) (*types.Connection, error) {
	ctx, span := otel.Tracer("ConnectionRepo").Start(ctx, "Get", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "connections"),
	))
	defer span.End()

	c, err := scanConnection(r.pgpool.QueryRow(ctx,
		`SELECT `+connectionColumns+` FROM connections WHERE id = $1 AND user_id = $2`,
		id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("database error fetching connection: %w", err)
	}
	return c, nil
}

func (r *PostgresConnectionRepo) Create(ctx context.Context, userID uuid.UUID, params types.CreateConnectionParams) (*types.Connection, error) {
	ctx, span := otel.Tracer("ConnectionRepo").Start(ctx, "Create", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "connections"),
		attribute.String("db.user.id", userID.String()),
	))
	defer span.End()

	status := params.Status
	if status == "" {
		status = types.ConnectionActive
	}

	c, err := scanConnection(r.pgpool.QueryRow(ctx,
		`INSERT INTO connections (user_id, name, provider, status, logo, api_key)
         VALUES ($1, $2, $3, $4, $5, $6)
         RETURNING `+connectionColumns,
		userID, params.Name, params.Provider, status, params.Logo, params.APIKey))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB insert failed")
		return nil, fmt.Errorf("database error creating connection: %w", err)
	}

	r.logger.InfoContext(ctx, "Connection created",
		slog.String("connectionID", c.ID.String()),
		slog.String("provider", c.Provider),
	)
	return c, nil
}

func (r *PostgresConnectionRepo) Update(ctx context.Context, userID, id uuid.UUID, params types.UpdateConnectionParams) (*types.Connection, error) {
	ctx, span := otel.Tracer("ConnectionRepo").Start(ctx, "Update", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "connections"),
	))
	defer span.End()

	setClauses := []string{"updated_at = $1"}
	args := []interface{}{time.Now()}
	idx := 2

	if params.Name != nil {
		setClauses = append(setClauses, fmt.Sprintf("name = $%d", idx))
		args = append(args, *params.Name)
		idx++
	}
	if params.Provider != nil {
		setClauses = append(setClauses, fmt.Sprintf("provider = $%d", idx))
		args = append(args, *params.Provider)
		idx++
	}
	if params.Status != nil {
		setClauses = append(setClauses, fmt.Sprintf("status = $%d", idx))
		args = append(args, *params.Status)
		idx++
	}
	if params.Logo != nil {
		setClauses = append(setClauses, fmt.Sprintf("logo = $%d", idx))
		args = append(args, *params.Logo)
		idx++
	}
	if params.APIKey != nil {
		setClauses = append(setClauses, fmt.Sprintf("api_key = $%d", idx))
		args = append(args, *params.APIKey)
		idx++
	}
	if params.ErrorMessage != nil {
		setClauses = append(setClauses, fmt.Sprintf("error_message = $%d", idx))
		args = append(args, *params.ErrorMessage)
		idx++
	}

	args = append(args, id, userID)
	query := fmt.Sprintf(
		`UPDATE connections SET %s WHERE id = $%d AND user_id = $%d RETURNING `+connectionColumns,
		strings.Join(setClauses, ", "), idx, idx+1)

	c, err := scanConnection(r.pgpool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("database error updating connection: %w", err)
	}
	return c, nil
}

func (r *PostgresConnectionRepo) Delete(ctx context.Context, userID, id uuid.UUID) error {
	ctx, span := otel.Tracer("ConnectionRepo").Start(ctx, "Delete", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "connections"),
	))
	defer span.End()

	tag, err := r.pgpool.Exec(ctx,
		`DELETE FROM connections WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("database error deleting connection: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}

func (r *PostgresConnectionRepo) MarkSynced(ctx context.Context, userID, id uuid.UUID) (*types.Connection, error) {
	ctx, span := otel.Tracer("ConnectionRepo").Start(ctx, "MarkSynced", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "connections"),
	))
	defer span.End()

	c, err := scanConnection(r.pgpool.QueryRow(ctx,
		`UPDATE connections
         SET last_sync = $1, status = 'active', error_message = NULL, updated_at = $1
         WHERE id = $2 AND user_id = $3
         RETURNING `+connectionColumns,
		time.Now(), id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("database error syncing connection: %w", err)
	}
	return c, nil
}
