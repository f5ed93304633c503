package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bigkaa/carecenter/governance-core/internal/domain/model"
	"github.com/bigkaa/carecenter/governance-core/internal/repository"
)

// SessionGuardConfig — параметры SessionGuard.
type SessionGuardConfig struct {
	// Key — ключ HMAC отпечатка.
	Key []byte
	// Attributes — атрибуты клиента, входящие в отпечаток, в фиксированном порядке.
	Attributes []string
	// IdleTimeout — таймаут бездействия сессии.
	IdleTimeout time.Duration
	// PersistenceTimeout — таймаут обращения к хранилищу сессий.
	PersistenceTimeout time.Duration
}

// SessionInit — данные для создания сессии.
type SessionInit struct {
	SessionID   string
	PrincipalID string
	Role        string
	Client      model.ClientContext
}

// SessionGuard привязывает сессию к стабильным характеристикам клиента.
// Отпечаток — HMAC-SHA256 по настроенному набору атрибутов; он задаётся
// один раз при создании сессии. Повтор токена сессии с другого клиента
// инвалидирует сессию и записывает инцидент session_hijacking.
type SessionGuard struct {
	repo       repository.SessionRepository
	incidents  *IncidentLog
	key        []byte
	attributes []string
	idle       time.Duration
	timeout    time.Duration
	now        func() time.Time
	logger     *slog.Logger
}

// NewSessionGuard создаёт SessionGuard.
func NewSessionGuard(repo repository.SessionRepository, incidents *IncidentLog, cfg SessionGuardConfig, logger *slog.Logger) *SessionGuard {
	attrs := make([]string, 0, len(cfg.Attributes))
	for _, a := range cfg.Attributes {
		if a = strings.ToLower(strings.TrimSpace(a)); a != "" {
			attrs = append(attrs, a)
		}
	}
	return &SessionGuard{
		repo:       repo,
		incidents:  incidents,
		key:        cfg.Key,
		attributes: attrs,
		idle:       cfg.IdleTimeout,
		timeout:    cfg.PersistenceTimeout,
		now:        time.Now,
		logger:     logger.With(slog.String("component", "session_guard")),
	}
}

// Attributes возвращает нормализованные имена атрибутов отпечатка.
func (g *SessionGuard) Attributes() []string {
	return append([]string(nil), g.attributes...)
}

// Fingerprint вычисляет отпечаток клиента.
// Отсутствующий атрибут входит в отпечаток как пустое значение.
func (g *SessionGuard) Fingerprint(client model.ClientContext) string {
	mac := hmac.New(sha256.New, g.key)
	for _, name := range g.attributes {
		mac.Write([]byte(name))
		mac.Write([]byte{'='})
		mac.Write([]byte(strings.TrimSpace(client.Attributes[name])))
		mac.Write([]byte{'\n'})
	}
	return hex.EncodeToString(mac.Sum(nil))
}

// Initialize создаёт сессию и возвращает её отпечаток (только для диагностики).
func (g *SessionGuard) Initialize(ctx context.Context, in SessionInit) (string, error) {
	if in.SessionID == "" || in.PrincipalID == "" {
		return "", fmt.Errorf("%w: не заданы идентификаторы сессии или принципала", ErrValidation)
	}

	now := g.now().UTC()
	s := &model.Session{
		ID:              in.SessionID,
		Fingerprint:     g.Fingerprint(in.Client),
		PrincipalID:     in.PrincipalID,
		AssertedRole:    in.Role,
		State:           model.SessionActive,
		CreatedAt:       now,
		LastValidatedAt: now,
	}

	err := withTimeout(ctx, g.timeout, func(ctx context.Context) error {
		return g.repo.Create(ctx, s)
	})
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return "", fmt.Errorf("%w: идентификатор сессии уже занят", ErrValidation)
		}
		return "", fmt.Errorf("создание сессии: %w", err)
	}

	g.logger.Info("Сессия создана",
		slog.String("principal_id", in.PrincipalID),
		slog.String("role", in.Role),
	)
	return s.Fingerprint, nil
}

// Validate — булев вариант Check. Любая ошибка означает отказ.
func (g *SessionGuard) Validate(ctx context.Context, sessionID string, client model.ClientContext) bool {
	_, err := g.Check(ctx, sessionID, client)
	return err == nil
}

// Check проверяет сессию для текущего запроса и возвращает её запись.
// Все ошибки оборачивают ErrSessionInvalid.
func (g *SessionGuard) Check(ctx context.Context, sessionID string, client model.ClientContext) (*model.Session, error) {
	s, err := g.check(ctx, sessionID, client)
	if err != nil {
		sessionValidationsTotal.WithLabelValues("denied").Inc()
		if errors.Is(err, ErrSessionInvalid) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrSessionInvalid, err)
	}
	sessionValidationsTotal.WithLabelValues("ok").Inc()
	return s, nil
}

func (g *SessionGuard) check(ctx context.Context, sessionID string, client model.ClientContext) (*model.Session, error) {
	if sessionID == "" {
		return nil, ErrSessionInvalid
	}

	var s *model.Session
	err := withTimeout(ctx, g.timeout, func(ctx context.Context) error {
		var err error
		s, err = g.repo.Get(ctx, sessionID)
		return err
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionInvalid
		}
		return nil, err
	}

	now := g.now().UTC()
	current := g.Fingerprint(client)
	if !hmac.Equal([]byte(current), []byte(s.Fingerprint)) {
		return nil, g.onMismatch(ctx, s, client, now)
	}

	if !s.IsActive() {
		return nil, ErrSessionInvalid
	}

	if g.idle > 0 && s.IdleExpired(now, g.idle) {
		if _, err := g.invalidate(ctx, s.ID, model.InvalidatedByIdle, now); err != nil {
			g.logger.Warn("Не удалось инвалидировать сессию по таймауту",
				slog.String("principal_id", s.PrincipalID),
				slog.String("error", err.Error()),
			)
		}
		return nil, ErrSessionInvalid
	}

	err = withTimeout(ctx, g.timeout, func(ctx context.Context) error {
		return g.repo.Touch(ctx, s.ID, now)
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionInvalid
		}
		return nil, err
	}
	s.LastValidatedAt = now
	return s, nil
}

// onMismatch инвалидирует сессию и записывает инцидент. Инцидент
// записывается на каждую попытку, в том числе для уже инвалидированной сессии.
func (g *SessionGuard) onMismatch(ctx context.Context, s *model.Session, client model.ClientContext, now time.Time) error {
	if s.IsActive() {
		if _, err := g.invalidate(ctx, s.ID, model.InvalidatedByMismatch, now); err != nil {
			g.logger.Error("Не удалось инвалидировать сессию при несовпадении отпечатка",
				slog.String("principal_id", s.PrincipalID),
				slog.String("error", err.Error()),
			)
		}
	}

	err := g.incidents.Record(ctx, &model.Incident{
		Type:          model.IncidentSessionHijacking,
		PrincipalID:   s.PrincipalID,
		SourceAddress: client.SourceAddress,
		Severity:      model.SeverityHigh,
		Details: map[string]string{
			"session_ref":   sessionRef(s.ID),
			"session_state": string(s.State),
			"user_agent":    client.Attributes["user-agent"],
		},
		DetectedAt: now,
	})
	if err != nil {
		return fmt.Errorf("%w: отпечаток не совпал (инцидент не сохранён: %v)", ErrSessionInvalid, err)
	}
	return fmt.Errorf("%w: отпечаток не совпал", ErrSessionInvalid)
}

func (g *SessionGuard) invalidate(ctx context.Context, id, reason string, now time.Time) (bool, error) {
	var changed bool
	err := withTimeout(ctx, g.timeout, func(ctx context.Context) error {
		var err error
		changed, err = g.repo.Invalidate(ctx, id, reason, now)
		return err
	})
	if err == nil && changed {
		g.logger.Info("Сессия инвалидирована", slog.String("reason", reason))
	}
	return changed, err
}

// Logout завершает сессию. Повторный выход не является ошибкой.
func (g *SessionGuard) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrSessionInvalid
	}
	if _, err := g.invalidate(ctx, sessionID, model.InvalidatedByLogout, g.now().UTC()); err != nil {
		return fmt.Errorf("завершение сессии: %w", err)
	}
	return nil
}
