package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/bigkaa/carecenter/governance-core/internal/domain/model"
)

// IncidentRepository — журнал инцидентов (только добавление).
type IncidentRepository interface {
	Append(ctx context.Context, inc *model.Incident) error
	List(ctx context.Context, f model.IncidentFilter) ([]*model.Incident, error)
}

type incidentRepo struct {
	db DBTX
}

// NewIncidentRepository создаёт репозиторий журнала инцидентов.
func NewIncidentRepository(db DBTX) IncidentRepository {
	return &incidentRepo{db: db}
}

const incidentColumns = `id, incident_type, principal_id, source_address, severity, details, detected_at`

func (r *incidentRepo) Append(ctx context.Context, inc *model.Incident) error {
	details := inc.Details
	if details == nil {
		details = map[string]string{}
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO incidents (id, incident_type, principal_id, source_address, severity, details, detected_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		inc.ID, inc.Type, inc.PrincipalID, inc.SourceAddress, inc.Severity, details, inc.DetectedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("ошибка записи инцидента: %w", err)
	}
	return nil
}

func (r *incidentRepo) List(ctx context.Context, f model.IncidentFilter) ([]*model.Incident, error) {
	var (
		conds []string
		args  []any
	)
	if f.Type != "" {
		args = append(args, f.Type)
		conds = append(conds, fmt.Sprintf("incident_type = $%d", len(args)))
	}
	if f.PrincipalID != "" {
		args = append(args, f.PrincipalID)
		conds = append(conds, fmt.Sprintf("principal_id = $%d", len(args)))
	}
	if f.Since != nil {
		args = append(args, *f.Since)
		conds = append(conds, fmt.Sprintf("detected_at >= $%d", len(args)))
	}

	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}
	limit, offset := normalizePage(f.Limit, f.Offset)
	args = append(args, limit, offset)

	query := fmt.Sprintf(`
		SELECT %s FROM incidents %s
		ORDER BY detected_at DESC
		LIMIT $%d OFFSET $%d`, incidentColumns, where, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения инцидентов: %w", err)
	}
	defer rows.Close()

	var result []*model.Incident
	for rows.Next() {
		inc := &model.Incident{}
		if err := rows.Scan(
			&inc.ID, &inc.Type, &inc.PrincipalID, &inc.SourceAddress,
			&inc.Severity, &inc.Details, &inc.DetectedAt,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования инцидента: %w", err)
		}
		result = append(result, inc)
	}
	return result, rows.Err()
}
