package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bigkaa/carecenter/governance-core/internal/domain/model"
	"github.com/bigkaa/carecenter/governance-core/internal/domain/rbac"
	"github.com/bigkaa/carecenter/governance-core/internal/repository"
)

// IncidentLog — журнал инцидентов безопасности (только добавление).
// Запись синхронная: вызывающий получает ошибку только после того,
// как инцидент сохранён или сохранить его не удалось.
type IncidentLog struct {
	repo    repository.IncidentRepository
	timeout time.Duration
	now     func() time.Time
	logger  *slog.Logger
}

// NewIncidentLog создаёт журнал инцидентов.
func NewIncidentLog(repo repository.IncidentRepository, timeout time.Duration, logger *slog.Logger) *IncidentLog {
	return &IncidentLog{
		repo:    repo,
		timeout: timeout,
		now:     time.Now,
		logger:  logger.With(slog.String("component", "incident_log")),
	}
}

// Record сохраняет инцидент. ID и DetectedAt заполняются, если пусты.
func (l *IncidentLog) Record(ctx context.Context, inc *model.Incident) error {
	if inc.ID == "" {
		inc.ID = uuid.NewString()
	}
	if inc.DetectedAt.IsZero() {
		inc.DetectedAt = l.now().UTC()
	}

	level := slog.LevelWarn
	if inc.Severity == model.SeverityCritical {
		level = slog.LevelError
	}
	l.logger.Log(ctx, level, "Инцидент безопасности",
		slog.String("incident_id", inc.ID),
		slog.String("type", string(inc.Type)),
		slog.String("severity", string(inc.Severity)),
		slog.String("principal_id", inc.PrincipalID),
		slog.String("source_address", inc.SourceAddress),
	)
	incidentsTotal.WithLabelValues(string(inc.Type), string(inc.Severity)).Inc()

	err := withTimeout(ctx, l.timeout, func(ctx context.Context) error {
		return l.repo.Append(ctx, inc)
	})
	if err != nil {
		l.logger.Error("Инцидент не сохранён",
			slog.String("incident_id", inc.ID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("запись инцидента: %w", err)
	}
	return nil
}

// List возвращает инциденты с полными подробностями. Только для admin/chief-staff;
// роль viewer должна быть проверена PrivilegeValidator.
func (l *IncidentLog) List(ctx context.Context, viewerRole string, f model.IncidentFilter) ([]*model.Incident, error) {
	if !rbac.IsReviewer(viewerRole) {
		return nil, ErrForbidden
	}
	var list []*model.Incident
	err := withTimeout(ctx, l.timeout, func(ctx context.Context) error {
		var err error
		list, err = l.repo.List(ctx, f)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("получение инцидентов: %w", err)
	}
	return list, nil
}
