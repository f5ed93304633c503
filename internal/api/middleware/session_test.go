package middleware

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bigkaa/carecenter/governance-core/internal/domain/model"
	"github.com/bigkaa/carecenter/governance-core/internal/service"
)

// mockChecker — мок SessionChecker.
type mockChecker struct {
	checkFn func(ctx context.Context, id string, client model.ClientContext) (*model.Session, error)
	attrs   []string
}

func (m *mockChecker) Check(ctx context.Context, id string, client model.ClientContext) (*model.Session, error) {
	return m.checkFn(ctx, id, client)
}

func (m *mockChecker) Attributes() []string {
	return m.attrs
}

func TestSessionAuth_Middleware(t *testing.T) {
	var gotID string
	var gotClient model.ClientContext
	checker := &mockChecker{
		attrs: []string{"user-agent", "tls.version", "remote.ip"},
		checkFn: func(_ context.Context, id string, client model.ClientContext) (*model.Session, error) {
			gotID, gotClient = id, client
			return &model.Session{PrincipalID: "doctor-1", AssertedRole: "doctor", State: model.SessionActive}, nil
		},
	}

	var principal model.Principal
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, _ = PrincipalFromContext(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/exports", http.NoBody)
	req.RemoteAddr = "10.0.0.7:53122"
	req.Header.Set("User-Agent", "Firefox/128")
	req.TLS = &tls.ConnectionState{Version: tls.VersionTLS13}
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "sess-cookie"})
	req.Header.Set(SessionHeaderName, "sess-header")

	rec := httptest.NewRecorder()
	NewSessionAuth(checker, testLogger()).Middleware()(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("хотели 200, получили %d", rec.Code)
	}
	if gotID != "sess-cookie" {
		t.Errorf("cookie должна иметь приоритет, получили %q", gotID)
	}
	if gotClient.Attributes["user-agent"] != "Firefox/128" {
		t.Errorf("user-agent: получили %q", gotClient.Attributes["user-agent"])
	}
	if gotClient.Attributes["tls.version"] != "TLS 1.3" {
		t.Errorf("tls.version: получили %q", gotClient.Attributes["tls.version"])
	}
	if gotClient.Attributes["remote.ip"] != "10.0.0.7" || gotClient.SourceAddress != "10.0.0.7" {
		t.Errorf("адрес: получили %q / %q", gotClient.Attributes["remote.ip"], gotClient.SourceAddress)
	}
	if principal.ID != "doctor-1" || principal.Role != "doctor" || principal.SessionID != "sess-cookie" {
		t.Errorf("неверный принципал в контексте: %+v", principal)
	}
}

func TestSessionAuth_Errors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"недействительная сессия", service.ErrSessionInvalid, http.StatusUnauthorized},
		{"таймаут хранилища", fmt.Errorf("%w: %w", service.ErrSessionInvalid, service.ErrPersistenceTimeout), http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := &mockChecker{
				checkFn: func(context.Context, string, model.ClientContext) (*model.Session, error) {
					return nil, tt.err
				},
			}
			called := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })

			req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
			req.Header.Set(SessionHeaderName, "sess-1")
			rec := httptest.NewRecorder()
			NewSessionAuth(checker, testLogger()).Middleware()(next).ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Errorf("хотели %d, получили %d", tt.wantCode, rec.Code)
			}
			if called {
				t.Error("следующий обработчик не должен вызываться")
			}
			if tt.wantCode == http.StatusServiceUnavailable && rec.Header().Get("Retry-After") == "" {
				t.Error("отсутствует Retry-After")
			}
		})
	}
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/health/live", "/health/live"},
		{"/api/v1/exports", "/api/v1/exports"},
		{"/api/v1/exports/", "/api/v1/exports/"},
		{"/api/v1/exports/EXP-20260310-090000-1a2b3c4d", "/api/v1/exports/{id}"},
		{"/api/v1/exports/EXP-20260310-090000-1a2b3c4d/approve", "/api/v1/exports/{id}/approve"},
		{"/api/v1/exports/EXP-1/download", "/api/v1/exports/{id}/download"},
		{"/api/v1/exports/EXP-1/anything", "/api/v1/exports/{id}/other"},
	}
	for _, tt := range tests {
		if got := normalizePath(tt.path); got != tt.want {
			t.Errorf("normalizePath(%q): хотели %q, получили %q", tt.path, tt.want, got)
		}
	}
}
