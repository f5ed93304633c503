package model

import "time"

// IncidentType — тип инцидента безопасности.
type IncidentType string

const (
	IncidentSessionHijacking    IncidentType = "session_hijacking"
	IncidentPrivilegeEscalation IncidentType = "privilege_escalation"
)

// Severity — критичность инцидента.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Incident — запись журнала инцидентов. Только добавление.
type Incident struct {
	ID            string       `json:"id"`
	Type          IncidentType `json:"incident_type"`
	PrincipalID   string       `json:"principal_id"`
	SourceAddress string       `json:"source_address"`
	Severity      Severity     `json:"severity"`
	// Details — подробности для администраторов (никогда не отдаются конечному пользователю)
	Details    map[string]string `json:"details,omitempty"`
	DetectedAt time.Time         `json:"detected_at"`
}

// IncidentFilter — параметры выборки журнала инцидентов.
type IncidentFilter struct {
	Type        IncidentType
	PrincipalID string
	Since       *time.Time
	Limit       int
	Offset      int
}
