package transactions

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

var _ TransactionRepository = (*PostgresTransactionRepo)(nil)

type TransactionRepository interface {
	List(ctx context.Context, userID uuid.UUID, filter types.TransactionFilter) ([]types.Transaction, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*types.Transaction, error)
	Create(ctx context.Context, userID uuid.UUID, params types.CreateTransactionParams) (*types.Transaction, error)
	Update(ctx context.Context, userID, id uuid.UUID, params types.UpdateTransactionParams) (*types.Transaction, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

type PostgresTransactionRepo struct {
	logger *slog.Logger
	pgpool *pgxpool.Pool
}

func NewPostgresTransactionRepo(pgxpool *pgxpool.Pool, logger *slog.Logger) *PostgresTransactionRepo {
	return &PostgresTransactionRepo{
		logger: logger,
		pgpool: pgxpool,
	}
}

const transactionColumns = `id, user_id, connection_id, date, description, amount, currency, type, status, source, metadata, created_at, updated_at`

func scanTransaction(row pgx.Row) (*types.Transaction, error) {
	var t types.Transaction
	err := row.Scan(&t.ID, &t.UserID, &t.ConnectionID, &t.Date, &t.Description,
		&t.Amount, &t.Currency, &t.Type, &t.Status, &t.Source, &t.Metadata,
		&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *PostgresTransactionRepo) List(ctx context.Context, userID uuid.UUID, filter types.TransactionFilter) ([]types.Transaction, error) {
	ctx, span := otel.Tracer("TransactionRepo").Start(ctx, "List", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "transactions"),
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
	if filter.Source != "" {
		where = append(where, fmt.Sprintf("source = $%d", idx))
		args = append(args, filter.Source)
		idx++
	}
	if filter.StartDate != nil {
		where = append(where, fmt.Sprintf("date >= $%d", idx))
		args = append(args, *filter.StartDate)
		idx++
	}
	if filter.EndDate != nil {
		where = append(where, fmt.Sprintf("date <= $%d", idx))
		args = append(args, *filter.EndDate)
		idx++
	}

	query := fmt.Sprintf(
		`SELECT %s FROM transactions WHERE %s ORDER BY date DESC`,
		transactionColumns, strings.Join(where, " AND "))
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", idx)
		args = append(args, filter.Limit)
	}

	rows, err := r.pgpool.Query(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error fetching transactions: %w", err)
	}
	defer rows.Close()

	var txns []types.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("database error scanning transaction: %w", err)
		}
		txns = append(txns, *t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("database error reading transactions: %w", err)
	}

	l.DebugContext(ctx, "Fetched transactions", slog.Int("count", len(txns)))
	return txns, nil
}

func (r *PostgresTransactionRepo) Get(ctx context.Context, userID, id uuid.UUID) (*types.Transaction, error) {
	ctx, span := otel.Tracer("TransactionRepo").Start(ctx, "Get", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "transactions"),
	))
	defer span.End()

	t, err := scanTransaction(r.pgpool.QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1 AND user_id = $2`,
		id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("database error fetching transaction: %w", err)
	}
	return t, nil
}

func (r *PostgresTransactionRepo) Create(ctx context.Context, userID uuid.UUID, params types.CreateTransactionParams) (*types.Transaction, error) {
	ctx, span := otel.Tracer("TransactionRepo").Start(ctx, "Create", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "transactions"),
		attribute.String("db.user.id", userID.String()),
	))
	defer span.End()

	t, err := scanTransaction(r.pgpool.QueryRow(ctx,
		`INSERT INTO transactions (user_id, connection_id, date, description, amount, currency, type, status, source, metadata)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
         RETURNING `+transactionColumns,
		userID, params.ConnectionID, params.Date, params.Description, params.Amount,
		params.Currency, params.Type, params.Status, params.Source, params.Metadata))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB insert failed")
		return nil, fmt.Errorf("database error creating transaction: %w", err)
	}

	r.logger.InfoContext(ctx, "Transaction created",
		slog.String("transactionID", t.ID.String()),
		slog.String("type", string(t.Type)),
	)
	return t, nil
}

func (r *PostgresTransactionRepo) Update(ctx context.Context, userID, id uuid.UUID, params types.UpdateTransactionParams) (*types.Transaction, error) {
	ctx, span := otel.Tracer("TransactionRepo").Start(ctx, "Update", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "transactions"),
	))
	defer span.End()

	setClauses := []string{"updated_at = $1"}
	args := []interface{}{time.Now()}
	idx := 2

	if params.Date != nil {
		setClauses = append(setClauses, fmt.Sprintf("date = $%d", idx))
		args = append(args, *params.Date)
		idx++
	}
	if params.Description != nil {
		setClauses = append(setClauses, fmt.Sprintf("description = $%d", idx))
		args = append(args, *params.Description)
		idx++
	}
	if params.Amount != nil {
		setClauses = append(setClauses, fmt.Sprintf("amount = $%d", idx))
		args = append(args, *params.Amount)
		idx++
	}
	if params.Currency != nil {
		setClauses = append(setClauses, fmt.Sprintf("currency = $%d", idx))
		args = append(args, *params.Currency)
		idx++
	}
	if params.Type != nil {
		setClauses = append(setClauses, fmt.Sprintf("type = $%d", idx))
		args = append(args, *params.Type)
		idx++
	}
	if params.Status != nil {
		setClauses = append(setClauses, fmt.Sprintf("status = $%d", idx))
		args = append(args, *params.Status)
		idx++
	}
	if params.Source != nil {
		setClauses = append(setClauses, fmt.Sprintf("source = $%d", idx))
		args = append(args, *params.Source)
		idx++
	}
	if params.Metadata != nil {
		setClauses = append(setClauses, fmt.Sprintf("metadata = $%d", idx))
		args = append(args, *params.Metadata)
		idx++
	}

	args = append(args, id, userID)
	query := fmt.Sprintf(
		`UPDATE transactions SET %s WHERE id = $%d AND user_id = $%d RETURNING `+transactionColumns,
		strings.Join(setClauses, ", "), idx, idx+1)

	t, err := scanTransaction(r.pgpool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("database error updating transaction: %w", err)
	}
	return t, nil
}

func (r *PostgresTransactionRepo) Delete(ctx context.Context, userID, id uuid.UUID) error {
	ctx, span := otel.Tracer("TransactionRepo").Start(ctx, "Delete", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "transactions"),
	))
	defer span.End()

	tag, err := r.pgpool.Exec(ctx,
		`DELETE FROM transactions WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("database error deleting transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}
