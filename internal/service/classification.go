package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/bigkaa/carecenter/governance-core/internal/domain/classification"
	"github.com/bigkaa/carecenter/governance-core/internal/domain/model"
	"github.com/bigkaa/carecenter/governance-core/internal/domain/rbac"
	"github.com/bigkaa/carecenter/governance-core/internal/repository"
)

// ClassificationCacheConfig — параметры кэша классификаций.
type ClassificationCacheConfig struct {
	Size int
	TTL  time.Duration
}

// ClassificationRegistry — реестр классификации данных по (таблица, столбец).
// Неклассифицированный столбец получает уровень internal, никогда public.
// Чтение идёт через LRU-кэш записей таблицы; изменение сбрасывает кэш таблицы.
type ClassificationRegistry struct {
	repo      repository.ClassificationRepository
	validator *PrivilegeValidator
	cache     *expirable.LRU[string, []*model.ClassificationEntry]
	timeout   time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

// NewClassificationRegistry создаёт реестр классификаций.
func NewClassificationRegistry(
	repo repository.ClassificationRepository,
	validator *PrivilegeValidator,
	cacheCfg ClassificationCacheConfig,
	timeout time.Duration,
	logger *slog.Logger,
) *ClassificationRegistry {
	size := cacheCfg.Size
	if size <= 0 {
		size = 256
	}
	return &ClassificationRegistry{
		repo:      repo,
		validator: validator,
		cache:     expirable.NewLRU[string, []*model.ClassificationEntry](size, nil, cacheCfg.TTL),
		timeout:   timeout,
		now:       time.Now,
		logger:    logger.With(slog.String("component", "classification_registry")),
	}
}

// tableEntries возвращает записи таблицы из кэша или хранилища.
func (r *ClassificationRegistry) tableEntries(ctx context.Context, table string) ([]*model.ClassificationEntry, error) {
	if entries, ok := r.cache.Get(table); ok {
		return entries, nil
	}
	var entries []*model.ClassificationEntry
	err := withTimeout(ctx, r.timeout, func(ctx context.Context) error {
		var err error
		entries, err = r.repo.ListByTable(ctx, table)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("чтение классификаций таблицы %s: %w", table, err)
	}
	r.cache.Add(table, entries)
	return entries, nil
}

// Classify возвращает запись классификации столбца или запись по умолчанию.
func (r *ClassificationRegistry) Classify(ctx context.Context, table, column string) (*model.ClassificationEntry, error) {
	entries, err := r.tableEntries(ctx, table)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.Column == column {
			cp := *e
			return &cp, nil
		}
	}
	return model.DefaultClassification(table, column), nil
}

// ClassifyTable возвращает максимальный уровень среди столбцов таблицы
// (internal, если таблица не классифицирована).
func (r *ClassificationRegistry) ClassifyTable(ctx context.Context, table string) (classification.Level, error) {
	entries, err := r.tableEntries(ctx, table)
	if err != nil {
		return "", err
	}
	levels := make([]classification.Level, 0, len(entries))
	for _, e := range entries {
		levels = append(levels, e.Level)
	}
	return classification.Max(levels...), nil
}

// Entries возвращает явные записи классификации таблицы.
// Пустой результат означает, что таблица не классифицирована.
func (r *ClassificationRegistry) Entries(ctx context.Context, table string) ([]*model.ClassificationEntry, error) {
	entries, err := r.tableEntries(ctx, table)
	if err != nil {
		return nil, err
	}
	out := make([]*model.ClassificationEntry, 0, len(entries))
	for _, e := range entries {
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}

// List возвращает все записи реестра.
func (r *ClassificationRegistry) List(ctx context.Context) ([]*model.ClassificationEntry, error) {
	var list []*model.ClassificationEntry
	err := withTimeout(ctx, r.timeout, func(ctx context.Context) error {
		var err error
		list, err = r.repo.List(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("получение классификаций: %w", err)
	}
	return list, nil
}

// Upsert создаёт или изменяет классификацию столбца. Требует admin или
// chief-staff. Понижение уровня выполняется только при allowDowngrade.
func (r *ClassificationRegistry) Upsert(ctx context.Context, actor model.Principal, entry *model.ClassificationEntry, allowDowngrade bool) error {
	if err := validateEntry(entry); err != nil {
		return err
	}
	if _, err := r.validator.Authorize(ctx, actor, rbac.ReviewerRoles...); err != nil {
		return err
	}

	var current *model.ClassificationEntry
	err := withTimeout(ctx, r.timeout, func(ctx context.Context) error {
		var err error
		current, err = r.repo.Get(ctx, entry.Table, entry.Column)
		return err
	})
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("чтение классификации: %w", err)
	}

	if current != nil && current.Level.Rank() > entry.Level.Rank() {
		if !allowDowngrade {
			return fmt.Errorf("%w: %s %s → %s", ErrClassificationDowngrade, entry.Field(), current.Level, entry.Level)
		}
		classificationDowngradesTotal.Inc()
		r.logger.Warn("Понижение классификации",
			slog.String("field", entry.Field()),
			slog.String("from", string(current.Level)),
			slog.String("to", string(entry.Level)),
			slog.String("actor_id", actor.ID),
		)
	}

	entry.UpdatedBy = actor.ID
	entry.UpdatedAt = r.now().UTC()
	err = withTimeout(ctx, r.timeout, func(ctx context.Context) error {
		return r.repo.Upsert(ctx, entry)
	})
	if err != nil {
		return fmt.Errorf("сохранение классификации: %w", err)
	}
	r.cache.Remove(entry.Table)

	r.logger.Info("Классификация обновлена",
		slog.String("field", entry.Field()),
		slog.String("level", string(entry.Level)),
		slog.String("actor_id", actor.ID),
	)
	return nil
}

// Seed вставляет отсутствующие записи (начальная загрузка). Существующие
// записи не меняются, поэтому понижение через Seed невозможно.
func (r *ClassificationRegistry) Seed(ctx context.Context, entries []*model.ClassificationEntry) (int, error) {
	now := r.now().UTC()
	for _, e := range entries {
		if err := validateEntry(e); err != nil {
			return 0, err
		}
		if e.UpdatedBy == "" {
			e.UpdatedBy = "seed"
		}
		e.UpdatedAt = now
	}

	var inserted int
	err := withTimeout(ctx, r.timeout, func(ctx context.Context) error {
		var err error
		inserted, err = r.repo.SeedIfAbsent(ctx, entries)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("начальная загрузка классификаций: %w", err)
	}
	r.cache.Purge()
	return inserted, nil
}

func validateEntry(e *model.ClassificationEntry) error {
	if e == nil {
		return fmt.Errorf("%w: пустая запись", ErrValidation)
	}
	e.Table = strings.TrimSpace(e.Table)
	e.Column = strings.TrimSpace(e.Column)
	if e.Table == "" || e.Column == "" {
		return fmt.Errorf("%w: не заданы таблица или столбец", ErrValidation)
	}
	if !e.Level.IsValid() {
		return fmt.Errorf("%w: недопустимый уровень %q", ErrValidation, e.Level)
	}
	if e.RetentionDays < 0 {
		return fmt.Errorf("%w: отрицательный срок хранения", ErrValidation)
	}
	return nil
}
