package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/carecenter/governance-core/internal/domain/model"
)

// ArchiveFunc получает удаляемые строки (JSON) до фиксации транзакции.
// Ошибка архивации откатывает удаление.
type ArchiveFunc func(ctx context.Context, rows []json.RawMessage) error

// RetentionRepository — политики хранения и очистка таблиц.
type RetentionRepository interface {
	ListPolicies(ctx context.Context) ([]*model.RetentionPolicy, error)
	GetPolicy(ctx context.Context, name string) (*model.RetentionPolicy, error)
	UpsertPolicy(ctx context.Context, p *model.RetentionPolicy) error
	// Purge в одной транзакции удаляет строки таблицы политики старше cutoff,
	// передаёт их в archive (если задан) и обновляет last_executed_at.
	Purge(ctx context.Context, p *model.RetentionPolicy, cutoff, now time.Time, archive ArchiveFunc) (int, error)
}

type retentionRepo struct {
	db TxDB
}

// NewRetentionRepository создаёт репозиторий политик хранения.
func NewRetentionRepository(db TxDB) RetentionRepository {
	return &retentionRepo{db: db}
}

const retentionColumns = `policy_name, table_name, timestamp_column, retention_days,
	classification_level, auto_delete, last_executed_at`

func scanPolicy(row pgx.Row) (*model.RetentionPolicy, error) {
	p := &model.RetentionPolicy{}
	err := row.Scan(&p.PolicyName, &p.Table, &p.TimestampColumn, &p.RetentionDays,
		&p.Level, &p.AutoDelete, &p.LastExecutedAt)
	return p, err
}

func (r *retentionRepo) ListPolicies(ctx context.Context) ([]*model.RetentionPolicy, error) {
	query := fmt.Sprintf(`SELECT %s FROM retention_policies ORDER BY table_name`, retentionColumns)
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения политик хранения: %w", err)
	}
	defer rows.Close()

	var result []*model.RetentionPolicy
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования политики хранения: %w", err)
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (r *retentionRepo) GetPolicy(ctx context.Context, name string) (*model.RetentionPolicy, error) {
	query := fmt.Sprintf(`SELECT %s FROM retention_policies WHERE policy_name = $1`, retentionColumns)
	p, err := scanPolicy(r.db.QueryRow(ctx, query, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения политики хранения: %w", err)
	}
	return p, nil
}

func (r *retentionRepo) UpsertPolicy(ctx context.Context, p *model.RetentionPolicy) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO retention_policies (policy_name, table_name, timestamp_column, retention_days,
			classification_level, auto_delete)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (policy_name) DO UPDATE SET
			table_name = EXCLUDED.table_name,
			timestamp_column = EXCLUDED.timestamp_column,
			retention_days = EXCLUDED.retention_days,
			classification_level = EXCLUDED.classification_level,
			auto_delete = EXCLUDED.auto_delete`,
		p.PolicyName, p.Table, p.TimestampColumn, p.RetentionDays, p.Level, p.AutoDelete,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("ошибка upsert политики хранения: %w", err)
	}
	return nil
}

func (r *retentionRepo) Purge(ctx context.Context, p *model.RetentionPolicy, cutoff, now time.Time, archive ArchiveFunc) (int, error) {
	table := pgx.Identifier(strings.Split(p.Table, ".")).Sanitize()
	column := pgx.Identifier{p.TimestampColumn}.Sanitize()

	deleted := 0
	err := runInTx(ctx, r.db, func(tx pgx.Tx) error {
		query := fmt.Sprintf(`DELETE FROM %s AS t WHERE t.%s < $1 RETURNING row_to_json(t)::text`, table, column)
		rows, err := tx.Query(ctx, query, cutoff)
		if err != nil {
			return fmt.Errorf("ошибка удаления из %s: %w", p.Table, err)
		}

		var archived []json.RawMessage
		for rows.Next() {
			var raw string
			if err := rows.Scan(&raw); err != nil {
				rows.Close()
				return fmt.Errorf("ошибка чтения удалённой строки %s: %w", p.Table, err)
			}
			archived = append(archived, json.RawMessage(raw))
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("ошибка удаления из %s: %w", p.Table, err)
		}

		if archive != nil && len(archived) > 0 {
			if err := archive(ctx, archived); err != nil {
				return fmt.Errorf("архивация строк %s: %w", p.Table, err)
			}
		}

		if _, err := tx.Exec(ctx,
			`UPDATE retention_policies SET last_executed_at = $2 WHERE policy_name = $1`,
			p.PolicyName, now,
		); err != nil {
			return fmt.Errorf("ошибка обновления last_executed_at: %w", err)
		}
		deleted = len(archived)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}
