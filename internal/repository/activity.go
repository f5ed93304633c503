package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bigkaa/carecenter/governance-core/internal/domain/classification"
	"github.com/bigkaa/carecenter/governance-core/internal/domain/model"
)

// ActivityRepository — журнал выгрузок (только добавление).
type ActivityRepository interface {
	Append(ctx context.Context, a *model.DownloadActivity) error
	// CountSince считает выгрузки пользователя указанных уровней начиная с since.
	CountSince(ctx context.Context, userID string, levels []classification.Level, since time.Time) (int, error)
	List(ctx context.Context, f model.ActivityFilter) ([]*model.DownloadActivity, error)
}

type activityRepo struct {
	db DBTX
}

// NewActivityRepository создаёт репозиторий журнала выгрузок.
func NewActivityRepository(db DBTX) ActivityRepository {
	return &activityRepo{db: db}
}

const activityColumns = `id, user_id, user_role, file_name, file_type, data_classification, file_size,
	downloaded_at, source_address, watermarked, suspicious_flag, suspicious_reasons, export_request_id`

func (r *activityRepo) Append(ctx context.Context, a *model.DownloadActivity) error {
	reasons := a.SuspiciousReasons
	if reasons == nil {
		reasons = []string{}
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO download_activity (id, user_id, user_role, file_name, file_type, data_classification,
			file_size, downloaded_at, source_address, watermarked, suspicious_flag, suspicious_reasons,
			export_request_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		a.ID, a.UserID, a.UserRole, a.FileName, a.FileType, a.DataClassification,
		a.FileSize, a.DownloadedAt, a.SourceAddress, a.Watermarked, a.SuspiciousFlag, reasons,
		a.ExportRequestID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("ошибка записи выгрузки: %w", err)
	}
	return nil
}

func (r *activityRepo) CountSince(ctx context.Context, userID string, levels []classification.Level, since time.Time) (int, error) {
	lv := make([]string, len(levels))
	for i, l := range levels {
		lv[i] = string(l)
	}

	var count int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM download_activity
		WHERE user_id = $1 AND data_classification = ANY($2) AND downloaded_at >= $3`,
		userID, lv, since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчёта выгрузок: %w", err)
	}
	return count, nil
}

func (r *activityRepo) List(ctx context.Context, f model.ActivityFilter) ([]*model.DownloadActivity, error) {
	var (
		conds []string
		args  []any
	)
	if f.UserID != "" {
		args = append(args, f.UserID)
		conds = append(conds, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if f.SuspiciousOnly {
		conds = append(conds, "suspicious_flag")
	}
	if f.Since != nil {
		args = append(args, *f.Since)
		conds = append(conds, fmt.Sprintf("downloaded_at >= $%d", len(args)))
	}

	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}
	limit, offset := normalizePage(f.Limit, f.Offset)
	args = append(args, limit, offset)

	query := fmt.Sprintf(`
		SELECT %s FROM download_activity %s
		ORDER BY downloaded_at DESC
		LIMIT $%d OFFSET $%d`, activityColumns, where, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения журнала выгрузок: %w", err)
	}
	defer rows.Close()

	var result []*model.DownloadActivity
	for rows.Next() {
		a := &model.DownloadActivity{}
		if err := rows.Scan(
			&a.ID, &a.UserID, &a.UserRole, &a.FileName, &a.FileType, &a.DataClassification,
			&a.FileSize, &a.DownloadedAt, &a.SourceAddress, &a.Watermarked, &a.SuspiciousFlag,
			&a.SuspiciousReasons, &a.ExportRequestID,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования выгрузки: %w", err)
		}
		result = append(result, a)
	}
	return result, rows.Err()
}
