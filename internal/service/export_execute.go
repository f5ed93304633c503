package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bigkaa/carecenter/governance-core/internal/domain/classification"
	"github.com/bigkaa/carecenter/governance-core/internal/domain/exportflow"
	"github.com/bigkaa/carecenter/governance-core/internal/domain/model"
	"github.com/bigkaa/carecenter/governance-core/internal/domain/rbac"
	"github.com/bigkaa/carecenter/governance-core/internal/fieldaccess"
	"github.com/bigkaa/carecenter/governance-core/internal/repository"
)

// exportDocument — содержимое файла экспорта.
type exportDocument struct {
	RequestID      string                      `json:"request_id"`
	Watermark      string                      `json:"watermark"`
	Classification classification.Level        `json:"classification_level"`
	GeneratedAt    time.Time                   `json:"generated_at"`
	GeneratedFor   string                      `json:"generated_for"`
	Tables         map[string][]map[string]any `json:"tables"`
}

// Execute выполняет одобренный экспорт: только автор заявки, только один
// раз и только до истечения срока. Столбцы проходят через политику
// доступа к полям для роли автора. Запись в журнал выгрузок делается
// до возврата данных.
func (w *ExportWorkflow) Execute(ctx context.Context, requester model.Principal, id, sourceAddress string) (*ExportFile, error) {
	role, err := w.validator.Authorize(ctx, requester, rbac.StaffRoles...)
	if err != nil {
		return nil, err
	}

	var file *ExportFile
	err = withTimeout(ctx, w.timeout, func(ctx context.Context) error {
		_, err := w.repo.UpdateLocked(ctx, id, func(r *model.ExportRequest) error {
			if r.RequesterID != requester.ID {
				return ErrNotFound
			}
			now := w.now().UTC()
			switch {
			case r.Status == exportflow.StatusPending &&
				exportflow.Effective(r.Status, r.ExpiresAt, now) == exportflow.StatusExpired:
				return ErrExportExpired
			case r.Status != exportflow.StatusApproved:
				return ErrNotApproved
			case r.ExecutedAt != nil:
				return ErrAlreadyExecuted
			case !now.Before(r.ExpiresAt):
				return ErrExportExpired
			}

			f, err := w.buildFile(ctx, r, role, now)
			if err != nil {
				return err
			}

			_, err = w.monitor.Record(ctx, DownloadInput{
				UserID:          requester.ID,
				UserRole:        role,
				FileName:        f.FileName,
				FileType:        r.ExportType,
				Classification:  r.ClassificationLevel,
				FileSize:        int64(len(f.Data)),
				SourceAddress:   sourceAddress,
				Watermarked:     true,
				ExportRequestID: r.ID,
			})
			if err != nil {
				return fmt.Errorf("журнал выгрузок: %w", err)
			}

			r.ExecutedAt = &now
			file = f
			return nil
		})
		return err
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	w.logger.Info("Экспорт выполнен",
		slog.String("request_id", id),
		slog.String("requester_id", requester.ID),
		slog.Int("bytes", len(file.Data)),
	)
	return file, nil
}

// buildFile читает таблицы заявки и формирует файл с водяным знаком.
func (w *ExportWorkflow) buildFile(ctx context.Context, r *model.ExportRequest, role string, now time.Time) (*ExportFile, error) {
	watermark := fmt.Sprintf("%s | %s (%s) | %s | %s",
		r.ID, r.RequesterID, role, now.Format(time.RFC3339), strings.ToUpper(string(r.ClassificationLevel)))

	doc := exportDocument{
		RequestID:      r.ID,
		Watermark:      watermark,
		Classification: r.ClassificationLevel,
		GeneratedAt:    now,
		GeneratedFor:   r.RequesterID,
		Tables:         make(map[string][]map[string]any, len(r.Tables)),
	}

	for _, table := range r.Tables {
		rows, err := w.source.ReadTable(ctx, table, filtersFor(table, r.Filters), w.maxRows)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrUnknownColumn) {
				return nil, fmt.Errorf("%w: %w", ErrValidation, err)
			}
			return nil, fmt.Errorf("чтение таблицы %s: %w", table, err)
		}
		masked, err := w.applyPolicy(ctx, table, role, rows)
		if err != nil {
			return nil, err
		}
		doc.Tables[table] = masked
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("сериализация экспорта: %w", err)
	}
	return &ExportFile{
		RequestID:      r.ID,
		FileName:       fmt.Sprintf("%s.json", strings.ToLower(r.ID)),
		ContentType:    "application/json",
		Classification: r.ClassificationLevel,
		Watermark:      watermark,
		Data:           data,
	}, nil
}

// filtersFor выбирает фильтры, относящиеся к таблице.
func filtersFor(table string, filters map[string]string) map[string]string {
	out := make(map[string]string)
	for key, v := range filters {
		t, col, qualified := strings.Cut(key, ".")
		switch {
		case !qualified:
			out[t] = v
		case t == table:
			out[col] = v
		}
	}
	return out
}

// applyPolicy применяет видимость к каждому столбцу строк. Зашифрованные
// столбцы разрешаются через таблицу политики полей, остальные — по уровню
// классификации столбца.
func (w *ExportWorkflow) applyPolicy(ctx context.Context, table, role string, rows []map[string]any) ([]map[string]any, error) {
	entries, err := w.registry.Entries(ctx, table)
	if err != nil {
		return nil, err
	}
	byColumn := make(map[string]*model.ClassificationEntry, len(entries))
	for _, e := range entries {
		byColumn[e.Column] = e
	}

	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		res := make(map[string]any, len(row))
		for col, val := range row {
			entry, ok := byColumn[col]
			if !ok {
				entry = model.DefaultClassification(table, col)
			}

			if entry.Encrypted {
				ct, isString := val.(string)
				if !isString {
					if val == nil {
						res[col] = nil
					}
					continue
				}
				r, err := w.policy.Resolve(role, entry.Field(), ct)
				if err != nil {
					w.logger.Warn("Поле экспорта не удалось расшифровать, выдана маска",
						slog.String("field", entry.Field()),
						slog.String("error", err.Error()),
					)
					res[col] = fieldaccess.MaskedPlaceholder
					continue
				}
				if r.Visibility != fieldaccess.Omitted {
					res[col] = r.Value
				}
				continue
			}

			switch fieldaccess.VisibilityForClassification(role, entry.Level) {
			case fieldaccess.Plaintext:
				res[col] = val
			case fieldaccess.Masked:
				res[col] = fieldaccess.MaskedPlaceholder
			}
		}
		out = append(out, res)
	}
	return out, nil
}
