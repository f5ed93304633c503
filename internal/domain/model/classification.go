package model

import (
	"time"

	"github.com/bigkaa/carecenter/governance-core/internal/domain/classification"
)

// ClassificationEntry — классификация пары (таблица, столбец).
type ClassificationEntry struct {
	Table         string               `json:"table" yaml:"table"`
	Column        string               `json:"column" yaml:"column"`
	Level         classification.Level `json:"classification_level" yaml:"level"`
	DataCategory  string               `json:"data_category" yaml:"category"`
	RetentionDays int                  `json:"retention_days" yaml:"retention_days"`
	// Encrypted — столбец хранит шифротекст CryptoEngine
	Encrypted bool      `json:"encrypted" yaml:"encrypted"`
	UpdatedBy string    `json:"updated_by,omitempty" yaml:"-"`
	UpdatedAt time.Time `json:"updated_at" yaml:"-"`
}

// Field возвращает полное имя поля в форме table.column.
func (e *ClassificationEntry) Field() string {
	return e.Table + "." + e.Column
}

// DefaultClassification возвращает запись по умолчанию для неклассифицированного столбца.
func DefaultClassification(table, column string) *ClassificationEntry {
	return &ClassificationEntry{
		Table:        table,
		Column:       column,
		Level:        classification.Default,
		DataCategory: "unclassified",
	}
}
