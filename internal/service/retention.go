package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/bigkaa/carecenter/governance-core/internal/domain/classification"
	"github.com/bigkaa/carecenter/governance-core/internal/domain/model"
	"github.com/bigkaa/carecenter/governance-core/internal/domain/rbac"
	"github.com/bigkaa/carecenter/governance-core/internal/repository"
)

// DefaultSweepTableTimeout — таймаут очистки одной таблицы.
const DefaultSweepTableTimeout = 5 * time.Minute

// policyIdentPattern — допустимое имя таблицы (в том числе schema.table) или столбца политики.
var policyIdentPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}(\.[a-z_][a-z0-9_]{0,62})?$`)

// Archiver сохраняет удаляемые строки таблицы до фиксации удаления.
type Archiver interface {
	Archive(ctx context.Context, table string, rows []json.RawMessage) (string, error)
}

// SweepResult — итог прохода очистки: удалённые строки и ошибки по таблицам.
type SweepResult struct {
	Deleted map[string]int    `json:"deleted"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// RetentionConfig — параметры RetentionEnforcer.
type RetentionConfig struct {
	TableTimeout       time.Duration
	PersistenceTimeout time.Duration
}

// RetentionEnforcer удаляет строки старше срока хранения. Каждая таблица
// очищается в своей транзакции: сбой одной таблицы не влияет на остальные.
type RetentionEnforcer struct {
	repo         repository.RetentionRepository
	validator    *PrivilegeValidator
	archiver     Archiver
	tableTimeout time.Duration
	timeout      time.Duration
	mu           sync.Mutex
	now          func() time.Time
	logger       *slog.Logger
}

// NewRetentionEnforcer создаёт RetentionEnforcer. archiver может быть nil.
func NewRetentionEnforcer(repo repository.RetentionRepository, validator *PrivilegeValidator, archiver Archiver, cfg RetentionConfig, logger *slog.Logger) *RetentionEnforcer {
	if cfg.TableTimeout <= 0 {
		cfg.TableTimeout = DefaultSweepTableTimeout
	}
	return &RetentionEnforcer{
		repo:         repo,
		validator:    validator,
		archiver:     archiver,
		tableTimeout: cfg.TableTimeout,
		timeout:      cfg.PersistenceTimeout,
		now:          time.Now,
		logger:       logger.With(slog.String("component", "retention_enforcer")),
	}
}

// Sweep выполняет проход по всем политикам с autoDelete. Повторный проход
// сразу после успешного удаляет ноль строк. Параллельные вызовы в одном
// процессе выполняются по очереди.
func (e *RetentionEnforcer) Sweep(ctx context.Context) (*SweepResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	defer func() {
		retentionSweepDuration.Observe(time.Since(start).Seconds())
	}()

	var policies []*model.RetentionPolicy
	err := withTimeout(ctx, e.timeout, func(ctx context.Context) error {
		var err error
		policies, err = e.repo.ListPolicies(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("получение политик хранения: %w", err)
	}

	result := &SweepResult{Deleted: make(map[string]int), Errors: make(map[string]string)}
	now := e.now().UTC()

	for _, p := range policies {
		if !p.AutoDelete {
			continue
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}

		n, err := e.purge(ctx, p, now)
		if err != nil {
			result.Errors[p.Table] = err.Error()
			e.logger.Error("Очистка таблицы не выполнена",
				slog.String("policy", p.PolicyName),
				slog.String("table", p.Table),
				slog.String("error", err.Error()),
			)
			continue
		}
		result.Deleted[p.Table] = n
		retentionDeletedTotal.WithLabelValues(p.Table).Add(float64(n))
		e.logger.Info("Таблица очищена",
			slog.String("policy", p.PolicyName),
			slog.String("table", p.Table),
			slog.Int("deleted", n),
		)
	}
	return result, nil
}

// purge очищает таблицу одной политики в отдельной транзакции.
func (e *RetentionEnforcer) purge(ctx context.Context, p *model.RetentionPolicy, now time.Time) (int, error) {
	if err := validatePolicy(p); err != nil {
		return 0, err
	}

	var archive repository.ArchiveFunc
	if e.archiver != nil {
		archive = func(ctx context.Context, rows []json.RawMessage) error {
			_, err := e.archiver.Archive(ctx, p.Table, rows)
			return err
		}
	}

	tctx, cancel := context.WithTimeout(ctx, e.tableTimeout)
	defer cancel()
	n, err := e.repo.Purge(tctx, p, p.Cutoff(now), now, archive)
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		return 0, fmt.Errorf("%w: %w", ErrPersistenceTimeout, err)
	}
	return n, err
}

// ListPolicies возвращает политики хранения.
func (e *RetentionEnforcer) ListPolicies(ctx context.Context) ([]*model.RetentionPolicy, error) {
	var list []*model.RetentionPolicy
	err := withTimeout(ctx, e.timeout, func(ctx context.Context) error {
		var err error
		list, err = e.repo.ListPolicies(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("получение политик хранения: %w", err)
	}
	return list, nil
}

// UpsertPolicy создаёт или изменяет политику. Только admin.
func (e *RetentionEnforcer) UpsertPolicy(ctx context.Context, actor model.Principal, p *model.RetentionPolicy) error {
	if p != nil && p.TimestampColumn == "" {
		p.TimestampColumn = "created_at"
	}
	if err := validatePolicy(p); err != nil {
		return err
	}
	if _, err := e.validator.Authorize(ctx, actor, rbac.RoleAdmin); err != nil {
		return err
	}

	err := withTimeout(ctx, e.timeout, func(ctx context.Context) error {
		return e.repo.UpsertPolicy(ctx, p)
	})
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return fmt.Errorf("%w: для таблицы %s уже есть политика", ErrValidation, p.Table)
		}
		return fmt.Errorf("сохранение политики хранения: %w", err)
	}

	e.logger.Info("Политика хранения обновлена",
		slog.String("policy", p.PolicyName),
		slog.String("table", p.Table),
		slog.Int("retention_days", p.RetentionDays),
		slog.Bool("auto_delete", p.AutoDelete),
		slog.String("actor_id", actor.ID),
	)
	return nil
}

func validatePolicy(p *model.RetentionPolicy) error {
	if p == nil {
		return fmt.Errorf("%w: пустая политика", ErrValidation)
	}
	p.PolicyName = strings.TrimSpace(p.PolicyName)
	switch {
	case p.PolicyName == "":
		return fmt.Errorf("%w: не задано имя политики", ErrValidation)
	case !policyIdentPattern.MatchString(p.Table):
		return fmt.Errorf("%w: недопустимое имя таблицы %q", ErrValidation, p.Table)
	case !identPattern.MatchString(p.TimestampColumn):
		return fmt.Errorf("%w: недопустимый столбец времени %q", ErrValidation, p.TimestampColumn)
	case p.RetentionDays <= 0:
		return fmt.Errorf("%w: срок хранения должен быть положительным", ErrValidation)
	}
	if p.Level == "" {
		p.Level = classification.Default
	}
	if !p.Level.IsValid() {
		return fmt.Errorf("%w: недопустимый уровень %q", ErrValidation, p.Level)
	}
	return nil
}
