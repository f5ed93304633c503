package model

import (
	"time"

	"github.com/bigkaa/carecenter/governance-core/internal/domain/classification"
)

// RetentionPolicy — политика хранения строк таблицы.
type RetentionPolicy struct {
	PolicyName string `json:"policy_name" yaml:"name"`
	Table      string `json:"table" yaml:"table"`
	// TimestampColumn — столбец времени, относительно которого считается возраст строки
	TimestampColumn string               `json:"timestamp_column" yaml:"timestamp_column"`
	RetentionDays   int                  `json:"retention_days" yaml:"retention_days"`
	Level           classification.Level `json:"classification_level" yaml:"level"`
	AutoDelete      bool                 `json:"auto_delete" yaml:"auto_delete"`
	LastExecutedAt  *time.Time           `json:"last_executed_at,omitempty" yaml:"-"`
}

// Cutoff возвращает границу: строки старше неё подлежат удалению.
func (p *RetentionPolicy) Cutoff(now time.Time) time.Time {
	return now.AddDate(0, 0, -p.RetentionDays)
}
