package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/carecenter/governance-core/internal/domain/model"
)

// ExportRequestRepository — хранилище заявок на экспорт.
type ExportRequestRepository interface {
	Create(ctx context.Context, req *model.ExportRequest) error
	Get(ctx context.Context, id string) (*model.ExportRequest, error)
	List(ctx context.Context, f model.ExportFilter) ([]*model.ExportRequest, error)
	// UpdateLocked блокирует строку заявки (SELECT ... FOR UPDATE), передаёт
	// её в fn и сохраняет изменённые поля решения. Ошибка fn откатывает
	// транзакцию. Конкурентные вызовы для одной заявки выполняются строго
	// последовательно: второй видит результат первого.
	UpdateLocked(ctx context.Context, id string, fn func(req *model.ExportRequest) error) (*model.ExportRequest, error)
	// ExpirePending переводит в expired все pending-заявки с expires_at < now.
	ExpirePending(ctx context.Context, now time.Time) (int, error)
}

type exportRequestRepo struct {
	db          TxDB
	lockTimeout time.Duration
}

// NewExportRequestRepository создаёт репозиторий заявок.
// lockTimeout ограничивает ожидание блокировки строки (0 — без ограничения).
func NewExportRequestRepository(db TxDB, lockTimeout time.Duration) ExportRequestRepository {
	return &exportRequestRepo{db: db, lockTimeout: lockTimeout}
}

const exportColumns = `id, export_type, tables, filters, justification, requester_id, requester_role,
	classification_level, status, requested_at, expires_at, decided_at, decided_by, decision_notes, executed_at`

func scanExportRequest(row pgx.Row) (*model.ExportRequest, error) {
	req := &model.ExportRequest{}
	err := row.Scan(
		&req.ID, &req.ExportType, &req.Tables, &req.Filters, &req.Justification,
		&req.RequesterID, &req.RequesterRole, &req.ClassificationLevel, &req.Status,
		&req.RequestedAt, &req.ExpiresAt, &req.DecidedAt, &req.DecidedBy,
		&req.DecisionNotes, &req.ExecutedAt,
	)
	return req, err
}

func (r *exportRequestRepo) Create(ctx context.Context, req *model.ExportRequest) error {
	filters := req.Filters
	if filters == nil {
		filters = map[string]string{}
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO export_requests (id, export_type, tables, filters, justification, requester_id,
			requester_role, classification_level, status, requested_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		req.ID, req.ExportType, req.Tables, filters, req.Justification, req.RequesterID,
		req.RequesterRole, req.ClassificationLevel, req.Status, req.RequestedAt, req.ExpiresAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("ошибка создания заявки на экспорт: %w", err)
	}
	return nil
}

func (r *exportRequestRepo) Get(ctx context.Context, id string) (*model.ExportRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM export_requests WHERE id = $1`, exportColumns)
	req, err := scanExportRequest(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения заявки на экспорт: %w", err)
	}
	return req, nil
}

func (r *exportRequestRepo) List(ctx context.Context, f model.ExportFilter) ([]*model.ExportRequest, error) {
	var (
		conds []string
		args  []any
	)
	if f.RequesterID != "" {
		args = append(args, f.RequesterID)
		conds = append(conds, fmt.Sprintf("requester_id = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}

	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}
	limit, offset := normalizePage(f.Limit, f.Offset)
	args = append(args, limit, offset)

	query := fmt.Sprintf(`
		SELECT %s FROM export_requests %s
		ORDER BY requested_at DESC, id DESC
		LIMIT $%d OFFSET $%d`, exportColumns, where, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка заявок: %w", err)
	}
	defer rows.Close()

	var result []*model.ExportRequest
	for rows.Next() {
		req, err := scanExportRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования заявки: %w", err)
		}
		result = append(result, req)
	}
	return result, rows.Err()
}

func (r *exportRequestRepo) UpdateLocked(ctx context.Context, id string, fn func(req *model.ExportRequest) error) (*model.ExportRequest, error) {
	var updated *model.ExportRequest

	err := runInTx(ctx, r.db, func(tx pgx.Tx) error {
		if r.lockTimeout > 0 {
			if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.lockTimeout.Milliseconds())); err != nil {
				return fmt.Errorf("установка lock_timeout: %w", err)
			}
		}

		query := fmt.Sprintf(`SELECT %s FROM export_requests WHERE id = $1 FOR UPDATE`, exportColumns)
		req, err := scanExportRequest(tx.QueryRow(ctx, query, id))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			if isLockNotAvailable(err) {
				return ErrLocked
			}
			return fmt.Errorf("ошибка блокировки заявки: %w", err)
		}

		if err := fn(req); err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			UPDATE export_requests
			SET status = $2, decided_at = $3, decided_by = $4, decision_notes = $5, executed_at = $6
			WHERE id = $1`,
			req.ID, req.Status, req.DecidedAt, req.DecidedBy, req.DecisionNotes, req.ExecutedAt,
		)
		if err != nil {
			return fmt.Errorf("ошибка обновления заявки: %w", err)
		}
		updated = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *exportRequestRepo) ExpirePending(ctx context.Context, now time.Time) (int, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE export_requests SET status = 'expired'
		WHERE status = 'pending' AND expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("ошибка перевода просроченных заявок: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
