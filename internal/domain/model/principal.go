// Пакет model — доменные модели Governance Core.
package model

import "time"

// Principal — явный контекст вызывающего, передаваемый в каждую
// операцию ядра. Role — роль, заявленная сессией (подсказка, не истина).
type Principal struct {
	ID        string
	Role      string
	SessionID string
	// SourceAddress — адрес источника текущего запроса (для инцидентов)
	SourceAddress string
}

// ClientContext — характеристики клиента текущего запроса.
type ClientContext struct {
	// Attributes — атрибуты для отпечатка (user-agent, tls.version, ...)
	Attributes map[string]string
	// SourceAddress — адрес источника запроса (для инцидентов и аудита)
	SourceAddress string
}

// IdentityPrincipal — запись авторитетного хранилища ролей (таблица principals).
type IdentityPrincipal struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RoleOverride — локальное повышение роли пользователя IdP.
// Хранится в таблице role_overrides.
type RoleOverride struct {
	ID             string
	PrincipalID    string
	Username       string
	AdditionalRole string
	CreatedBy      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
