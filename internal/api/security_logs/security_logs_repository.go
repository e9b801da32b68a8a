package securityLogs

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/financehub/finance-hub/internal/types"
)

var _ SecurityLogRepository = (*PostgresSecurityLogRepo)(nil)

// SecurityLogRepository is append-and-read only. Audit rows are never updated
// or deleted through the API.
type SecurityLogRepository interface {
	LogEvent(ctx context.Context, userID uuid.UUID, params types.LogEventParams) (uuid.UUID, error)
	List(ctx context.Context, userID uuid.UUID, filter types.SecurityLogFilter) ([]types.SecurityLog, error)
}

type PostgresSecurityLogRepo struct {
	logger *slog.Logger
	pgpool *pgxpool.Pool
}

func NewPostgresSecurityLogRepo(pgxpool *pgxpool.Pool, logger *slog.Logger) *PostgresSecurityLogRepo {
	return &PostgresSecurityLogRepo{
		logger: logger,
		pgpool: pgxpool,
	}
}

// LogEvent delegates to the log_security_event database function so that
// server-side defaulting stays in one place.
func (r *PostgresSecurityLogRepo) LogEvent(ctx context.Context, userID uuid.UUID, params types.LogEventParams) (uuid.UUID, error) {
	ctx, span := otel.Tracer("SecurityLogRepo").Start(ctx, "LogEvent", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "security_logs"),
		attribute.String("audit.event_type", params.EventType),
	))
	defer span.End()

	var logID uuid.UUID
	err := r.pgpool.QueryRow(ctx,
		`SELECT log_security_event($1, $2, $3, $4, $5)`,
		userID, params.EventType, params.Description, params.IPAddress, params.UserAgent,
	).Scan(&logID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB function call failed")
		return uuid.Nil, fmt.Errorf("database error logging security event: %w", err)
	}

	r.logger.DebugContext(ctx, "Security event logged",
		slog.String("logID", logID.String()),
		slog.String("event_type", params.EventType),
	)
	return logID, nil
}

func (r *PostgresSecurityLogRepo) List(ctx context.Context, userID uuid.UUID, filter types.SecurityLogFilter) ([]types.SecurityLog, error) {
	ctx, span := otel.Tracer("SecurityLogRepo").Start(ctx, "List", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "security_logs"),
		attribute.String("db.user.id", userID.String()),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "List"), slog.String("userID", userID.String()))

	where := []string{"user_id = $1"}
	args := []interface{}{userID}
	idx := 2

	if filter.EventType != "" {
		where = append(where, fmt.Sprintf("event_type = $%d", idx))
		args = append(args, filter.EventType)
		idx++
	}
	if filter.StartDate != nil {
		where = append(where, fmt.Sprintf("created_at >= $%d", idx))
		args = append(args, *filter.StartDate)
		idx++
	}
	if filter.EndDate != nil {
		where = append(where, fmt.Sprintf("created_at <= $%d", idx))
		args = append(args, *filter.EndDate)
		idx++
	}

	query := fmt.Sprintf(
		`SELECT id, user_id, event_type, description, ip_address, user_agent, created_at
         FROM security_logs WHERE %s ORDER BY created_at DESC`,
		strings.Join(where, " AND "))
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", idx)
		args = append(args, filter.Limit)
	}

	rows, err := r.pgpool.Query(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error fetching security logs: %w", err)
	}
	defer rows.Close()

	var logs []types.SecurityLog
	for rows.Next() {
		var sl types.SecurityLog
		err := rows.Scan(&sl.ID, &sl.UserID, &sl.EventType, &sl.Description,
			&sl.IPAddress, &sl.UserAgent, &sl.CreatedAt)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("database error scanning security log: %w", err)
		}
		logs = append(logs, sl)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("database error reading security logs: %w", err)
	}

	l.DebugContext(ctx, "Fetched security logs", slog.Int("count", len(logs)))
	return logs, nil
}
