package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/bigkaa/carecenter/governance-core/internal/api/middleware"
	"github.com/bigkaa/carecenter/governance-core/internal/domain/classification"
	"github.com/bigkaa/carecenter/governance-core/internal/domain/model"
	"github.com/bigkaa/carecenter/governance-core/internal/domain/rbac"
	"github.com/bigkaa/carecenter/governance-core/internal/fieldaccess"
	"github.com/bigkaa/carecenter/governance-core/internal/fieldcrypto"
	"github.com/bigkaa/carecenter/governance-core/internal/service"
	"github.com/bigkaa/carecenter/governance-core/internal/testutil"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// Принципалы тестового окружения.
const (
	nurseID     = "nurse-1"
	doctorID    = "doctor-1"
	adminID     = "admin-1"
	receptionID = "reception-1"
)

// testEnv — APIHandler поверх in-memory репозиториев.
type testEnv struct {
	handler    *APIHandler
	svc        Services
	principals *testutil.Principals
	sessions   *testutil.Sessions
	incidents  *testutil.Incidents
	retention  *testutil.Retention
	source     *testutil.ExportSource
	engine     *fieldcrypto.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	kp, err := fieldcrypto.GenerateKeyPair(nil)
	if err != nil {
		t.Fatal(err)
	}
	engine, err := fieldcrypto.New(kp)
	if err != nil {
		t.Fatal(err)
	}

	env := &testEnv{
		principals: testutil.NewPrincipals(),
		sessions:   testutil.NewSessions(),
		incidents:  testutil.NewIncidents(),
		retention:  testutil.NewRetention(),
		source:     testutil.NewExportSource(),
		engine:     engine,
	}
	env.principals.Put(nurseID, rbac.RoleNurse)
	env.principals.Put(doctorID, rbac.RoleDoctor)
	env.principals.Put(adminID, rbac.RoleAdmin)
	env.principals.Put(receptionID, rbac.RoleReceptionist)

	classes := testutil.NewClassifications(
		&model.ClassificationEntry{Table: "patients", Column: "diagnosis", Level: classification.Restricted, DataCategory: "medical", Encrypted: true},
		&model.ClassificationEntry{Table: "patients", Column: "room_number", Level: classification.Internal, DataCategory: "administrative"},
	)

	logger := testLogger()
	timeout := time.Second

	incidents := service.NewIncidentLog(env.incidents, timeout, logger)
	identity := service.NewPostgresIdentityStore(env.principals, env.principals.Overrides())
	validator := service.NewPrivilegeValidator(identity, incidents, timeout, logger)
	guard := service.NewSessionGuard(env.sessions, incidents, service.SessionGuardConfig{
		Key:                []byte("0123456789abcdef0123456789abcdef"),
		Attributes:         []string{"user-agent"},
		IdleTimeout:        30 * time.Minute,
		PersistenceTimeout: timeout,
	}, logger)
	registry := service.NewClassificationRegistry(classes, validator,
		service.ClassificationCacheConfig{Size: 16, TTL: time.Minute}, timeout, logger)
	monitor := service.NewActivityMonitor(testutil.NewActivity(), service.ActivityMonitorConfig{
		Threshold:          5,
		Window:             time.Hour,
		PersistenceTimeout: timeout,
	}, logger)
	policy := fieldaccess.New(engine, logger)
	workflow := service.NewExportWorkflow(testutil.NewExports(), env.source, registry, validator,
		policy, monitor, service.ExportWorkflowConfig{
			TTL:                72 * time.Hour,
			MaxRows:            100,
			RequestsPerHour:    10,
			PersistenceTimeout: timeout,
		}, logger)
	enforcer := service.NewRetentionEnforcer(env.retention, validator, nil,
		service.RetentionConfig{PersistenceTimeout: timeout}, logger)

	env.svc = Services{
		Guard:     guard,
		Validator: validator,
		Incidents: incidents,
		Registry:  registry,
		Workflow:  workflow,
		Monitor:   monitor,
		Retention: enforcer,
		Policy:    policy,
		Engine:    engine,
	}
	env.handler = NewAPIHandler(NewHealthHandler(), env.svc,
		SessionCookieConfig{Secure: true, IdleTimeout: 30 * time.Minute}, logger)
	return env
}

// as возвращает принципала с заявленной ролью.
func as(id, role string) model.Principal {
	return model.Principal{ID: id, Role: role, SessionID: "sess-" + id, SourceAddress: "10.0.0.5"}
}

// call вызывает обработчик от имени принципала.
func call(t *testing.T, fn http.HandlerFunc, method, target string, body any, p *model.Principal) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	if body == nil {
		req = httptest.NewRequest(method, target, http.NoBody)
	}

	ctx := req.Context()
	if p != nil {
		ctx = middleware.WithPrincipal(ctx, *p)
	}

	rec := httptest.NewRecorder()
	fn(rec, req.WithContext(ctx))
	return rec
}

// withParams привязывает к обработчику параметры, которые в работе
// извлекает обёртка generated.ServerInterfaceWrapper.
func withParams[P any](fn func(http.ResponseWriter, *http.Request, P), params P) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fn(w, r, params)
	}
}

func ptr[T any](v T) *T {
	return &v
}

// decodeBody разбирает JSON-ответ.
func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("разбор ответа %q: %v", rec.Body.String(), err)
	}
	return v
}

// errorCode извлекает код ошибки из ответа.
func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	body := decodeBody[struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}](t, rec)
	return body.Error.Code
}

// contextWithClaims помещает claims JWT в контекст запроса.
func contextWithClaims(r *http.Request, claims *middleware.AuthClaims) context.Context {
	return context.WithValue(r.Context(), middleware.ContextKeyClaims, claims)
}
