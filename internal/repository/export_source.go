package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnknownColumn — фильтр ссылается на отсутствующий столбец.
var ErrUnknownColumn = errors.New("неизвестный столбец")

// governanceTables — служебные таблицы ядра: сессии, роли, журналы и
// реестры. Экспорт их не читает независимо от классификации.
var governanceTables = map[string]bool{
	"principals":           true,
	"role_overrides":       true,
	"sessions":             true,
	"incidents":            true,
	"export_requests":      true,
	"data_classifications": true,
	"retention_policies":   true,
	"download_activity":    true,
	"schema_migrations":    true,
}

// IsGovernanceTable сообщает, что таблица принадлежит самому ядру.
func IsGovernanceTable(table string) bool {
	return governanceTables[table]
}

// ExportSource читает строки таблиц для исполнения одобренного экспорта.
type ExportSource interface {
	// ReadTable возвращает не более limit строк таблицы, удовлетворяющих
	// фильтрам на равенство (столбец → значение). ErrNotFound, если таблицы
	// нет или она служебная.
	ReadTable(ctx context.Context, table string, filters map[string]string, limit int) ([]map[string]any, error)
}

type exportSource struct {
	db DBTX
}

// NewExportSource создаёт источник данных экспорта поверх того же хранилища.
func NewExportSource(db DBTX) ExportSource {
	return &exportSource{db: db}
}

// tableColumns возвращает множество столбцов таблицы текущей схемы.
func (s *exportSource) tableColumns(ctx context.Context, table string) (map[string]bool, error) {
	rows, err := s.db.Query(ctx, `
		SELECT column_name FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1`, table)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения структуры таблицы %s: %w", table, err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("ошибка чтения структуры таблицы %s: %w", table, err)
		}
		cols[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, ErrNotFound
	}
	return cols, nil
}

func (s *exportSource) ReadTable(ctx context.Context, table string, filters map[string]string, limit int) ([]map[string]any, error) {
	if IsGovernanceTable(table) {
		return nil, ErrNotFound
	}
	cols, err := s.tableColumns(ctx, table)
	if err != nil {
		return nil, err
	}

	// Детерминированный порядок условий
	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var (
		conds []string
		args  []any
	)
	for _, col := range keys {
		if !cols[col] {
			return nil, fmt.Errorf("%w: %s.%s", ErrUnknownColumn, table, col)
		}
		args = append(args, filters[col])
		conds = append(conds, fmt.Sprintf("t.%s::text = $%d", quoteIdent(col), len(args)))
	}

	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}
	args = append(args, limit)

	query := fmt.Sprintf(`SELECT row_to_json(t)::text FROM %s AS t %s LIMIT $%d`,
		quoteIdent(table), where, len(args))

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения таблицы %s: %w", table, err)
	}
	defer rows.Close()

	var result []map[string]any
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("ошибка чтения строки %s: %w", table, err)
		}
		row := make(map[string]any)
		if err := json.Unmarshal([]byte(raw), &row); err != nil {
			return nil, fmt.Errorf("ошибка разбора строки %s: %w", table, err)
		}
		result = append(result, row)
	}
	return result, rows.Err()
}
