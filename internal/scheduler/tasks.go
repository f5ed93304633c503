package scheduler

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/bigkaa/carecenter/governance-core/internal/service"
)

// Имена задач.
const (
	TaskRetentionSweep = "retention_sweep"
	TaskExportExpiry   = "export_expiry"
)

// RetentionSweeper — проход очистки по политикам хранения.
type RetentionSweeper interface {
	Sweep(ctx context.Context) (*service.SweepResult, error)
}

// ExportExpirer переводит просроченные заявки в expired.
type ExportExpirer interface {
	ExpireStale(ctx context.Context) (int, error)
}

// RetentionTask — задача очистки. Ошибки отдельных таблиц возвращаются
// одной ошибкой после прохода по всем таблицам.
func RetentionTask(schedule string, sweeper RetentionSweeper) Task {
	return Task{
		Name:     TaskRetentionSweep,
		Schedule: schedule,
		Run: func(ctx context.Context) error {
			res, err := sweeper.Sweep(ctx)
			if err != nil {
				return err
			}
			if len(res.Errors) == 0 {
				return nil
			}
			tables := make([]string, 0, len(res.Errors))
			for table := range res.Errors {
				tables = append(tables, table)
			}
			sort.Strings(tables)
			return fmt.Errorf("очистка не выполнена для таблиц: %s", strings.Join(tables, ", "))
		},
	}
}

// ExpiryTask — задача истечения заявок на экспорт.
func ExpiryTask(schedule string, expirer ExportExpirer) Task {
	return Task{
		Name:     TaskExportExpiry,
		Schedule: schedule,
		Run: func(ctx context.Context) error {
			_, err := expirer.ExpireStale(ctx)
			return err
		},
	}
}
