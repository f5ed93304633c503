package model

import "time"

// SessionState — состояние сессии. active → invalidated — единственный переход.
type SessionState string

const (
	SessionActive      SessionState = "active"
	SessionInvalidated SessionState = "invalidated"
)

// Причины инвалидации сессии.
const (
	InvalidatedByMismatch = "fingerprint_mismatch"
	InvalidatedByLogout   = "logout"
	InvalidatedByIdle     = "idle_timeout"
)

// Session — запись сессии браузера.
// Fingerprint задаётся один раз при создании и не меняется.
type Session struct {
	ID                 string       `json:"-"`
	Fingerprint        string       `json:"fingerprint"`
	PrincipalID        string       `json:"principal_id"`
	AssertedRole       string       `json:"asserted_role"`
	State              SessionState `json:"state"`
	InvalidationReason string       `json:"invalidation_reason,omitempty"`
	CreatedAt          time.Time    `json:"created_at"`
	LastValidatedAt    time.Time    `json:"last_validated_at"`
	InvalidatedAt      *time.Time   `json:"invalidated_at,omitempty"`
}

// IsActive сообщает, активна ли сессия.
func (s *Session) IsActive() bool {
	return s.State == SessionActive
}

// IdleExpired сообщает, превышен ли таймаут бездействия на момент now.
func (s *Session) IdleExpired(now time.Time, idle time.Duration) bool {
	return now.Sub(s.LastValidatedAt) > idle
}
