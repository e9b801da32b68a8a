package securityLogs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/financehub/finance-hub/app/observability/metrics"
	"github.com/financehub/finance-hub/internal/types"
)

var _ SecurityLogService = (*SecurityLogServiceImpl)(nil)

type SecurityLogService interface {
	LogEvent(ctx context.Context, userID uuid.UUID, params types.LogEventParams) (uuid.UUID, error)
	ListSecurityLogs(ctx context.Context, userID uuid.UUID, filter types.SecurityLogFilter) ([]types.SecurityLog, error)
}

type SecurityLogServiceImpl struct {
	logger *slog.Logger
	repo   SecurityLogRepository
}

func NewSecurityLogService(repo SecurityLogRepository, logger *slog.Logger) *SecurityLogServiceImpl {
	return &SecurityLogServiceImpl{
		logger: logger,
		repo:   repo,
	}
}

func (s *SecurityLogServiceImpl) LogEvent(ctx context.Context, userID uuid.UUID, params types.LogEventParams) (uuid.UUID, error) {
	l := s.logger.With(slog.String("method", "LogEvent"), slog.String("userID", userID.String()))

	if params.EventType == "" {
		return uuid.Nil, fmt.Errorf("%w: event_type is required", types.ErrValidation)
	}
	if params.Description == "" {
		return uuid.Nil, fmt.Errorf("%w: description is required", types.ErrValidation)
	}

	logID, err := s.repo.LogEvent(ctx, userID, params)
	if err != nil {
		l.ErrorContext(ctx, "Failed to log security event", slog.Any("error", err))
		if m := metrics.Get(); m != nil {
			m.AuditFailuresTotal.Add(ctx, 1,
				metric.WithAttributes(attribute.String("event_type", params.EventType)))
		}
		return uuid.Nil, fmt.Errorf("failed to log security event: %w", err)
	}

	if m := metrics.Get(); m != nil {
		m.AuditEventsTotal.Add(ctx, 1,
			metric.WithAttributes(attribute.String("event_type", params.EventType)))
	}
	return logID, nil
}

func (s *SecurityLogServiceImpl) ListSecurityLogs(ctx context.Context, userID uuid.UUID, filter types.SecurityLogFilter) ([]types.SecurityLog, error) {
	l := s.logger.With(slog.String("method", "ListSecurityLogs"), slog.String("userID", userID.String()))

	logs, err := s.repo.List(ctx, userID, filter)
	if err != nil {
		l.ErrorContext(ctx, "Failed to list security logs", slog.Any("error", err))
		return nil, fmt.Errorf("failed to list security logs: %w", err)
	}
	if logs == nil {
		logs = []types.SecurityLog{}
	}
	return logs, nil
}
