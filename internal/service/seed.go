package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/bigkaa/carecenter/governance-core/internal/domain/model"
	"github.com/bigkaa/carecenter/governance-core/internal/repository"
)

// GovernanceSeed — содержимое файла начальной загрузки (YAML).
//
//	classifications:
//	  - {table: patients, column: diagnosis, level: restricted, category: medical, retention_days: 3650, encrypted: true}
//	retention_policies:
//	  - {name: sessions-30d, table: sessions, timestamp_column: last_validated_at, retention_days: 30, auto_delete: true}
type GovernanceSeed struct {
	Classifications   []*model.ClassificationEntry `yaml:"classifications"`
	RetentionPolicies []*model.RetentionPolicy     `yaml:"retention_policies"`
}

// LoadSeedFile читает и разбирает файл начальной загрузки.
func LoadSeedFile(path string) (*GovernanceSeed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("чтение файла начальной загрузки: %w", err)
	}
	var seed GovernanceSeed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("разбор файла начальной загрузки %s: %w", path, err)
	}
	return &seed, nil
}

// SeedResult — число добавленных записей.
type SeedResult struct {
	Classifications   int
	RetentionPolicies int
}

// ApplySeed добавляет отсутствующие классификации и политики хранения.
// Существующие записи не изменяются.
func ApplySeed(
	ctx context.Context,
	seed *GovernanceSeed,
	registry *ClassificationRegistry,
	policies repository.RetentionRepository,
	logger *slog.Logger,
) (SeedResult, error) {
	var res SeedResult

	if len(seed.Classifications) > 0 {
		n, err := registry.Seed(ctx, seed.Classifications)
		if err != nil {
			return res, err
		}
		res.Classifications = n
	}

	for _, p := range seed.RetentionPolicies {
		if p.TimestampColumn == "" {
			p.TimestampColumn = "created_at"
		}
		if err := validatePolicy(p); err != nil {
			return res, fmt.Errorf("политика %q: %w", p.PolicyName, err)
		}

		err := withTimeout(ctx, registry.timeout, func(ctx context.Context) error {
			_, err := policies.GetPolicy(ctx, p.PolicyName)
			if err == nil {
				return nil
			}
			if !errors.Is(err, repository.ErrNotFound) {
				return err
			}
			if err := policies.UpsertPolicy(ctx, p); err != nil {
				// Таблица уже покрыта другой политикой
				if errors.Is(err, repository.ErrConflict) {
					logger.Warn("Политика пропущена: таблица уже покрыта",
						slog.String("policy", p.PolicyName),
						slog.String("table", p.Table),
					)
					return nil
				}
				return err
			}
			res.RetentionPolicies++
			return nil
		})
		if err != nil {
			return res, fmt.Errorf("начальная загрузка политики %q: %w", p.PolicyName, err)
		}
	}

	logger.Info("Начальная загрузка применена",
		slog.Int("classifications", res.Classifications),
		slog.Int("retention_policies", res.RetentionPolicies),
	)
	return res, nil
}
