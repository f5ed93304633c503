package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bigkaa/carecenter/governance-core/internal/domain/model"
	"github.com/bigkaa/carecenter/governance-core/internal/domain/rbac"
)

// PrivilegeValidator сверяет роль, заявленную сессией, с авторитетной ролью
// из identity store. Роль сессии — только подсказка: любое расхождение
// фиксируется как инцидент privilege_escalation и запрещает операцию,
// даже если авторитетная роль сама по себе подошла бы.
type PrivilegeValidator struct {
	identity  IdentityStore
	incidents *IncidentLog
	timeout   time.Duration
	logger    *slog.Logger
}

// NewPrivilegeValidator создаёт PrivilegeValidator.
func NewPrivilegeValidator(identity IdentityStore, incidents *IncidentLog, timeout time.Duration, logger *slog.Logger) *PrivilegeValidator {
	return &PrivilegeValidator{
		identity:  identity,
		incidents: incidents,
		timeout:   timeout,
		logger:    logger.With(slog.String("component", "privilege_validator")),
	}
}

// AuthorizedRole запрашивает текущую роль принципала без кэширования.
func (v *PrivilegeValidator) AuthorizedRole(ctx context.Context, principalID string) (string, error) {
	var role string
	err := withTimeout(ctx, v.timeout, func(ctx context.Context) error {
		var err error
		role, err = v.identity.LookupRole(ctx, principalID)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrPersistenceTimeout) || errors.Is(err, ErrIdentityUnavailable) {
			return "", err
		}
		return "", fmt.Errorf("%w: %w", ErrIdentityUnavailable, err)
	}
	return role, nil
}

// Authorize возвращает авторитетную роль, если она совпадает с ролью сессии
// и входит в required. Пустой required не разрешает ничего: вызывающий
// перечисляет роли явно (rbac.StaffRoles — любая роль персонала).
// Расхождение ролей записывается в журнал инцидентов при каждом вызове
// до возврата ErrPrivilegeMismatch.
func (v *PrivilegeValidator) Authorize(ctx context.Context, p model.Principal, required ...string) (string, error) {
	role, err := v.AuthorizedRole(ctx, p.ID)
	if err != nil {
		privilegeChecksTotal.WithLabelValues("unavailable").Inc()
		v.logger.Warn("Роль не удалось проверить, доступ запрещён",
			slog.String("principal_id", p.ID),
			slog.String("error", err.Error()),
		)
		return "", err
	}

	if role != p.Role {
		privilegeChecksTotal.WithLabelValues("mismatch").Inc()
		return "", v.recordMismatch(ctx, p, role)
	}

	if !rbac.IsValidRole(role) {
		privilegeChecksTotal.WithLabelValues("denied").Inc()
		return "", ErrForbidden
	}
	if !rbac.Contains(required, role) {
		privilegeChecksTotal.WithLabelValues("denied").Inc()
		return "", ErrForbidden
	}

	privilegeChecksTotal.WithLabelValues("granted").Inc()
	return role, nil
}

// CheckAccess — булев вариант Authorize.
func (v *PrivilegeValidator) CheckAccess(ctx context.Context, principalID, claimedRole string, required []string) bool {
	_, err := v.Authorize(ctx, model.Principal{ID: principalID, Role: claimedRole}, required...)
	return err == nil
}

// SessionRole вычисляет роль для новой сессии по identity store.
// tokenRole — роль из JWT: авторитетная роль может быть старше неё
// (локальное повышение), но не младше. Токен, заявляющий больше, чем
// выдаёт identity store, фиксируется как privilege_escalation.
func (v *PrivilegeValidator) SessionRole(ctx context.Context, p model.Principal, tokenRole string) (string, error) {
	role, err := v.AuthorizedRole(ctx, p.ID)
	if err != nil {
		v.logger.Warn("Роль не удалось проверить, сессия не создана",
			slog.String("principal_id", p.ID),
			slog.String("error", err.Error()),
		)
		return "", err
	}
	if !rbac.IsValidRole(role) {
		return "", ErrForbidden
	}
	if tokenRole != "" && !rbac.AtLeast(role, tokenRole) {
		privilegeChecksTotal.WithLabelValues("mismatch").Inc()
		p.Role = tokenRole
		return "", v.recordMismatch(ctx, p, role)
	}
	return role, nil
}

// recordMismatch записывает инцидент расхождения ролей и возвращает ErrPrivilegeMismatch.
func (v *PrivilegeValidator) recordMismatch(ctx context.Context, p model.Principal, authoritative string) error {
	err := v.incidents.Record(ctx, &model.Incident{
		Type:          model.IncidentPrivilegeEscalation,
		PrincipalID:   p.ID,
		SourceAddress: p.SourceAddress,
		Severity:      model.SeverityCritical,
		Details: map[string]string{
			"claimed_role":       p.Role,
			"authoritative_role": authoritative,
			"session_ref":        sessionRef(p.SessionID),
		},
	})
	if err != nil {
		return fmt.Errorf("%w (инцидент не сохранён: %v)", ErrPrivilegeMismatch, err)
	}
	return ErrPrivilegeMismatch
}

// sessionRef — необратимая ссылка на сессию для подробностей инцидента:
// первые 16 hex-символов SHA-256 идентификатора.
func sessionRef(id string) string {
	if id == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(id))
	return hex.EncodeToString(sum[:8])
}
