package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/carecenter/governance-core/internal/domain/model"
)

// ClassificationRepository — классификации столбцов (data_classifications).
type ClassificationRepository interface {
	Get(ctx context.Context, table, column string) (*model.ClassificationEntry, error)
	ListByTable(ctx context.Context, table string) ([]*model.ClassificationEntry, error)
	List(ctx context.Context) ([]*model.ClassificationEntry, error)
	// Upsert создаёт или заменяет запись для (table, column).
	Upsert(ctx context.Context, e *model.ClassificationEntry) error
	// SeedIfAbsent вставляет записи, которых ещё нет; существующие не трогает.
	SeedIfAbsent(ctx context.Context, entries []*model.ClassificationEntry) (int, error)
}

type classificationRepo struct {
	db TxDB
}

// NewClassificationRepository создаёт репозиторий классификаций.
func NewClassificationRepository(db TxDB) ClassificationRepository {
	return &classificationRepo{db: db}
}

const classificationColumns = `table_name, column_name, classification_level, data_category,
	retention_days, encrypted, updated_by, updated_at`

func scanClassification(row pgx.Row) (*model.ClassificationEntry, error) {
	e := &model.ClassificationEntry{}
	err := row.Scan(&e.Table, &e.Column, &e.Level, &e.DataCategory,
		&e.RetentionDays, &e.Encrypted, &e.UpdatedBy, &e.UpdatedAt)
	return e, err
}

func (r *classificationRepo) Get(ctx context.Context, table, column string) (*model.ClassificationEntry, error) {
	query := fmt.Sprintf(`SELECT %s FROM data_classifications WHERE table_name = $1 AND column_name = $2`,
		classificationColumns)
	e, err := scanClassification(r.db.QueryRow(ctx, query, table, column))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения классификации: %w", err)
	}
	return e, nil
}

func (r *classificationRepo) ListByTable(ctx context.Context, table string) ([]*model.ClassificationEntry, error) {
	query := fmt.Sprintf(`SELECT %s FROM data_classifications WHERE table_name = $1 ORDER BY column_name`,
		classificationColumns)
	return r.query(ctx, query, table)
}

func (r *classificationRepo) List(ctx context.Context) ([]*model.ClassificationEntry, error) {
	query := fmt.Sprintf(`SELECT %s FROM data_classifications ORDER BY table_name, column_name`,
		classificationColumns)
	return r.query(ctx, query)
}

func (r *classificationRepo) query(ctx context.Context, query string, args ...any) ([]*model.ClassificationEntry, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения классификаций: %w", err)
	}
	defer rows.Close()

	var result []*model.ClassificationEntry
	for rows.Next() {
		e, err := scanClassification(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования классификации: %w", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

func (r *classificationRepo) Upsert(ctx context.Context, e *model.ClassificationEntry) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO data_classifications (table_name, column_name, classification_level, data_category,
			retention_days, encrypted, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (table_name, column_name) DO UPDATE SET
			classification_level = EXCLUDED.classification_level,
			data_category = EXCLUDED.data_category,
			retention_days = EXCLUDED.retention_days,
			encrypted = EXCLUDED.encrypted,
			updated_by = EXCLUDED.updated_by,
			updated_at = now()
		RETURNING updated_at`,
		e.Table, e.Column, e.Level, e.DataCategory, e.RetentionDays, e.Encrypted, e.UpdatedBy,
	).Scan(&e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("ошибка upsert классификации: %w", err)
	}
	return nil
}

func (r *classificationRepo) SeedIfAbsent(ctx context.Context, entries []*model.ClassificationEntry) (int, error) {
	inserted := 0
	err := runInTx(ctx, r.db, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, e := range entries {
			batch.Queue(`
				INSERT INTO data_classifications (table_name, column_name, classification_level, data_category,
					retention_days, encrypted, updated_by)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
				ON CONFLICT (table_name, column_name) DO NOTHING`,
				e.Table, e.Column, e.Level, e.DataCategory, e.RetentionDays, e.Encrypted, e.UpdatedBy)
		}
		br := tx.SendBatch(ctx, batch)
		for range entries {
			tag, err := br.Exec()
			if err != nil {
				br.Close()
				return fmt.Errorf("ошибка загрузки начальных классификаций: %w", err)
			}
			inserted += int(tag.RowsAffected())
		}
		return br.Close()
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}
