package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bigkaa/carecenter/governance-core/internal/domain/model"
	"github.com/bigkaa/carecenter/governance-core/internal/domain/rbac"
)

func laptopClient() model.ClientContext {
	return model.ClientContext{
		Attributes: map[string]string{
			"user-agent":      "Mozilla/5.0 (X11; Linux x86_64) Firefox/128.0",
			"accept-language": "ru-RU,ru;q=0.9",
			"tls.version":     "TLS1.3",
		},
		SourceAddress: "10.0.0.5",
	}
}

func attackerClient() model.ClientContext {
	return model.ClientContext{
		Attributes: map[string]string{
			"user-agent":      "curl/8.5.0",
			"accept-language": "en-US",
			"tls.version":     "TLS1.2",
		},
		SourceAddress: "203.0.113.7",
	}
}

func initSession(t *testing.T, env *testEnv, id string) {
	t.Helper()
	_, err := env.guard.Initialize(context.Background(), SessionInit{
		SessionID:   id,
		PrincipalID: nurseID,
		Role:        rbac.RoleNurse,
		Client:      laptopClient(),
	})
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
}

func TestSessionGuard_ValidSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	initSession(t, env, "sess-1")

	env.clock.Advance(10 * time.Minute)
	s, err := env.guard.Check(ctx, "sess-1", laptopClient())
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !s.LastValidatedAt.Equal(env.clock.Now()) {
		t.Errorf("LastValidatedAt = %v, хотели %v", s.LastValidatedAt, env.clock.Now())
	}
	if env.incidents.Count(model.IncidentSessionHijacking) != 0 {
		t.Error("валидная сессия не должна создавать инцидент")
	}
}

func TestSessionGuard_FingerprintMismatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	initSession(t, env, "sess-hijack")

	if env.guard.Validate(ctx, "sess-hijack", attackerClient()) {
		t.Fatal("повтор с другого клиента должен быть отклонён")
	}
	if got := env.incidents.Count(model.IncidentSessionHijacking); got != 1 {
		t.Fatalf("хотели 1 инцидент, получили %d", got)
	}

	inc := env.incidents.All()[0]
	if inc.Severity != model.SeverityHigh {
		t.Errorf("severity: хотели high, получили %s", inc.Severity)
	}
	if inc.PrincipalID != nurseID || inc.SourceAddress != "203.0.113.7" {
		t.Errorf("инцидент: principal=%s source=%s", inc.PrincipalID, inc.SourceAddress)
	}

	// Сессия инвалидирована и для исходного клиента
	if env.guard.Validate(ctx, "sess-hijack", laptopClient()) {
		t.Error("инвалидированная сессия не должна проходить проверку")
	}
	if got := env.incidents.Count(model.IncidentSessionHijacking); got != 1 {
		t.Errorf("исходный клиент не должен создавать инцидент, всего %d", got)
	}

	// Каждый повтор — новый инцидент
	env.guard.Validate(ctx, "sess-hijack", attackerClient())
	if got := env.incidents.Count(model.IncidentSessionHijacking); got != 2 {
		t.Errorf("хотели 2 инцидента после повтора, получили %d", got)
	}

	s, _ := env.sessions.Get(ctx, "sess-hijack")
	if s.InvalidationReason != model.InvalidatedByMismatch {
		t.Errorf("причина: хотели %s, получили %s", model.InvalidatedByMismatch, s.InvalidationReason)
	}
}

func TestSessionGuard_MissingSession(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.guard.Check(context.Background(), "nope", laptopClient())
	if !errors.Is(err, ErrSessionInvalid) {
		t.Errorf("хотели ErrSessionInvalid, получили %v", err)
	}
	if len(env.incidents.All()) != 0 {
		t.Error("отсутствующая сессия не создаёт инцидент")
	}
}

func TestSessionGuard_IdleTimeout(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	initSession(t, env, "sess-idle")

	env.clock.Advance(31 * time.Minute)
	if env.guard.Validate(ctx, "sess-idle", laptopClient()) {
		t.Fatal("сессия после таймаута бездействия должна быть отклонена")
	}
	s, _ := env.sessions.Get(ctx, "sess-idle")
	if s.IsActive() || s.InvalidationReason != model.InvalidatedByIdle {
		t.Errorf("хотели invalidated/%s, получили %s/%s", model.InvalidatedByIdle, s.State, s.InvalidationReason)
	}
}

func TestSessionGuard_Logout(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	initSession(t, env, "sess-out")

	if err := env.guard.Logout(ctx, "sess-out"); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if env.guard.Validate(ctx, "sess-out", laptopClient()) {
		t.Error("сессия после выхода должна быть отклонена")
	}
	if err := env.guard.Logout(ctx, "sess-out"); err != nil {
		t.Errorf("повторный выход: %v", err)
	}
}

func TestSessionGuard_StoreFailureDenies(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	initSession(t, env, "sess-db")

	env.sessions.Err = errors.New("connection refused")
	_, err := env.guard.Check(ctx, "sess-db", laptopClient())
	if !errors.Is(err, ErrSessionInvalid) {
		t.Errorf("хотели ErrSessionInvalid при сбое хранилища, получили %v", err)
	}
}

func TestSessionGuard_DuplicateID(t *testing.T) {
	env := newTestEnv(t)
	initSession(t, env, "sess-dup")

	_, err := env.guard.Initialize(context.Background(), SessionInit{
		SessionID: "sess-dup", PrincipalID: doctorID, Role: rbac.RoleDoctor, Client: attackerClient(),
	})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("хотели ErrValidation, получили %v", err)
	}
}

func TestSessionGuard_Fingerprint(t *testing.T) {
	env := newTestEnv(t)

	a := env.guard.Fingerprint(laptopClient())
	if a != env.guard.Fingerprint(laptopClient()) {
		t.Error("отпечаток должен быть детерминированным")
	}
	if a == env.guard.Fingerprint(attackerClient()) {
		t.Error("разные клиенты должны давать разные отпечатки")
	}

	// Атрибуты вне списка не влияют на отпечаток
	moved := laptopClient()
	moved.SourceAddress = "192.168.1.20"
	moved.Attributes["x-forwarded-for"] = "192.168.1.20"
	if a != env.guard.Fingerprint(moved) {
		t.Error("смена адреса не должна менять отпечаток по умолчанию")
	}
	if len(a) != 64 {
		t.Errorf("длина hex HMAC-SHA256: хотели 64, получили %d", len(a))
	}
}
