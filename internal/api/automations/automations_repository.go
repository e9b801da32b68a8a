package automations

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

var _ AutomationRepository = (*PostgresAutomationRepo)(nil)

type AutomationRepository interface {
	List(ctx context.Context, userID uuid.UUID, filter types.AutomationFilter) ([]types.Automation, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*types.Automation, error)
	Create(ctx context.Context, userID uuid.UUID, params types.CreateAutomationParams) (*types.Automation, error)
	Update(ctx context.Context, userID, id uuid.UUID, params types.UpdateAutomationParams) (*types.Automation, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	// RecordExecution stamps last_execution and increments the execution
	// counter in a single statement.
	RecordExecution(ctx context.Context, userID, id uuid.UUID) (*types.Automation, error)
}

type PostgresAutomationRepo struct {
	logger *slog.Logger
	pgpool *pgxpool.Pool
}

func NewPostgresAutomationRepo(pgxpool *pgxpool.Pool, logger *slog.Logger) *PostgresAutomationRepo {
	return &PostgresAutomationRepo{
		logger: logger,
		pgpool: pgxpool,
	}
}

const automationColumns = `id, user_id, name, description, type, status, trigger, action, last_execution, next_execution, executions, created_at, updated_at`

func scanAutomation(row pgx.Row) (*types.Automation, error) {
	var a types.Automation
	err := row.Scan(&a.ID, &a.UserID, &a.Name, &a.Description, &a.Type, &a.Status,
		&a.Trigger, &a.Action, &a.LastExecution, &a.NextExecution, &a.Executions,
		&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *PostgresAutomationRepo) List(ctx context.Context, userID uuid.UUID, filter types.AutomationFilter) ([]types.Automation, error) {
	ctx, span := otel.Tracer("AutomationRepo").Start(ctx, "List", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "automations"),
		attribute.String("db.user.id", userID.String()),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "List"), slog.String("userID", userID.String()))

	where := []string{"user_id = $1"}
	args := []interface{}{userID}
	idx := 2

	if filter.Type != "" {
		where = append(where, fmt.Sprintf("type = $%d", idx))
		args = append(args, filter.Type)
		idx++
	}
	if filter.Status != "" {
		where = append(where, fmt.Sprintf("status = $%d", idx))
		args = append(args, filter.Status)
		idx++
	}

	query := fmt.Sprintf(
		`SELECT %s FROM automations WHERE %s ORDER BY created_at DESC`,
		automationColumns, strings.Join(where, " AND "))
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", idx)
		args = append(args, filter.Limit)
	}

	rows, err := r.pgpool.Query(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error fetching automations: %w", err)
	}
	defer rows.Close()

	var autos []types.Automation
	for rows.Next() {
		a, err := scanAutomation(rows)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("database error scanning automation: %w", err)
		}
		autos = append(autos, *a)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("database error reading automations: %w", err)
	}

	l.DebugContext(ctx, "Fetched automations", slog.Int("count", len(autos)))
	return autos, nil
}

func (r *PostgresAutomationRepo) Get(ctx context.Context, userID, id uuid.UUID) (*types.Automation, error) {
	ctx, span := otel.Tracer("AutomationRepo").Start(ctx, "Get", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "automations"),
	))
	defer span.End()

	a, err := scanAutomation(r.pgpool.QueryRow(ctx,
		`SELECT `+automationColumns+` FROM automations WHERE id = $1 AND user_id = $2`,
		id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("database error fetching automation: %w", err)
	}
	return a, nil
}

func (r *PostgresAutomationRepo) Create(ctx context.Context, userID uuid.UUID, params types.CreateAutomationParams) (*types.Automation, error) {
	ctx, span := otel.Tracer("AutomationRepo").Start(ctx, "Create", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "automations"),
		attribute.String("db.user.id", userID.String()),
	))
	defer span.End()

	status := params.Status
	if status == "" {
		status = types.AutomationDraft
	}

	triggerJSON, err := types.MarshalTrigger(params.Trigger)
	if err != nil {
		return nil, fmt.Errorf("failed to encode trigger: %w", err)
	}
	actionJSON, err := types.MarshalAction(params.Action)
	if err != nil {
		return nil, fmt.Errorf("failed to encode action: %w", err)
	}

	a, err := scanAutomation(r.pgpool.QueryRow(ctx,
		`INSERT INTO automations (user_id, name, description, type, status, trigger, action, next_execution)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
         RETURNING `+automationColumns,
		userID, params.Name, params.Description, params.Type, status,
		triggerJSON, actionJSON, params.NextExecution))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB insert failed")
		return nil, fmt.Errorf("database error creating automation: %w", err)
	}

	r.logger.InfoContext(ctx, "Automation created",
		slog.String("automationID", a.ID.String()),
		slog.String("type", string(a.Type)),
	)
	return a, nil
}

func (r *PostgresAutomationRepo) Update(ctx context.Context, userID, id uuid.UUID, params types.UpdateAutomationParams) (*types.Automation, error) {
	ctx, span := otel.Tracer("AutomationRepo").Start(ctx, "Update", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "automations"),
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
	if params.Description != nil {
		setClauses = append(setClauses, fmt.Sprintf("description = $%d", idx))
		args = append(args, *params.Description)
		idx++
	}
	if params.Status != nil {
		setClauses = append(setClauses, fmt.Sprintf("status = $%d", idx))
		args = append(args, *params.Status)
		idx++
	}
	if params.Trigger != nil {
		triggerJSON, err := types.MarshalTrigger(*params.Trigger)
		if err != nil {
			return nil, fmt.Errorf("failed to encode trigger: %w", err)
		}
		setClauses = append(setClauses, fmt.Sprintf("trigger = $%d", idx))
		args = append(args, triggerJSON)
		idx++
	}
	if params.Action != nil {
		actionJSON, err := types.MarshalAction(*params.Action)
		if err != nil {
			return nil, fmt.Errorf("failed to encode action: %w", err)
		}
		setClauses = append(setClauses, fmt.Sprintf("action = $%d", idx))
		args = append(args, actionJSON)
		idx++
	}
	if params.NextExecution != nil {
		setClauses = append(setClauses, fmt.Sprintf("next_execution = $%d", idx))
		args = append(args, *params.NextExecution)
		idx++
	}

	args = append(args, id, userID)
	query := fmt.Sprintf(
		`UPDATE automations SET %s WHERE id = $%d AND user_id = $%d RETURNING `+automationColumns,
		strings.Join(setClauses, ", "), idx, idx+1)

	a, err := scanAutomation(r.pgpool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("database error updating automation: %w", err)
	}
	return a, nil
}

func (r *PostgresAutomationRepo) Delete(ctx context.Context, userID, id uuid.UUID) error {
	ctx, span := otel.Tracer("AutomationRepo").Start(ctx, "Delete", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "automations"),
	))
	defer span.End()

	tag, err := r.pgpool.Exec(ctx,
		`DELETE FROM automations WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("database error deleting automation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}

func (r *PostgresAutomationRepo) RecordExecution(ctx context.Context, userID, id uuid.UUID) (*types.Automation, error) {
	ctx, span := otel.Tracer("AutomationRepo").Start(ctx, "RecordExecution", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "automations"),
	))
	defer span.End()

	a, err := scanAutomation(r.pgpool.QueryRow(ctx,
		`UPDATE automations
         SET last_execution = $1, executions = executions + 1, updated_at = $1
         WHERE id = $2 AND user_id = $3
         RETURNING `+automationColumns,
		time.Now(), id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("database error recording execution: %w", err)
	}
	return a, nil
}
