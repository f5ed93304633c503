package model

import (
	"time"

	"github.com/bigkaa/carecenter/governance-core/internal/domain/classification"
)

// DownloadActivity — запись журнала выгрузок. Только добавление.
type DownloadActivity struct {
	ID                 string               `json:"id"`
	UserID             string               `json:"user_id"`
	UserRole           string               `json:"user_role"`
	FileName           string               `json:"file_name"`
	FileType           string               `json:"file_type"`
	DataClassification classification.Level `json:"data_classification"`
	FileSize           int64                `json:"file_size"`
	DownloadedAt       time.Time            `json:"downloaded_at"`
	SourceAddress      string               `json:"source_address"`
	Watermarked        bool                 `json:"watermarked"`
	SuspiciousFlag     bool                 `json:"suspicious_flag"`
	SuspiciousReasons  []string             `json:"suspicious_reasons,omitempty"`
	ExportRequestID    string               `json:"export_request_id,omitempty"`
}

// ActivityFilter — параметры выборки журнала выгрузок.
type ActivityFilter struct {
	UserID         string
	SuspiciousOnly bool
	Since          *time.Time
	Limit          int
	Offset         int
}
