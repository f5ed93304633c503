package model

import (
	"time"

	"github.com/bigkaa/carecenter/governance-core/internal/domain/classification"
	"github.com/bigkaa/carecenter/governance-core/internal/domain/exportflow"
)

// ExportRequest — заявка на массовую выгрузку данных.
type ExportRequest struct {
	ID                  string               `json:"request_id"`
	ExportType          string               `json:"export_type"`
	Tables              []string             `json:"tables"`
	Filters             map[string]string    `json:"filters"`
	Justification       string               `json:"justification"`
	RequesterID         string               `json:"requester_id"`
	RequesterRole       string               `json:"requester_role"`
	ClassificationLevel classification.Level `json:"classification_level"`
	Status              exportflow.Status    `json:"status"`
	RequestedAt         time.Time            `json:"requested_at"`
	ExpiresAt           time.Time            `json:"expires_at"`
	DecidedAt           *time.Time           `json:"decided_at,omitempty"`
	DecidedBy           string               `json:"decided_by,omitempty"`
	DecisionNotes       string               `json:"decision_notes,omitempty"`
	ExecutedAt          *time.Time           `json:"executed_at,omitempty"`
}

// ExportFilter — параметры выборки заявок.
type ExportFilter struct {
	// RequesterID — ограничение по автору (пусто — все)
	RequesterID string
	// Status — фильтр по статусу (пусто — все)
	Status exportflow.Status
	Limit  int
	Offset int
}
