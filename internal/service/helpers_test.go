package service

import (
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/bigkaa/carecenter/governance-core/internal/domain/classification"
	"github.com/bigkaa/carecenter/governance-core/internal/domain/model"
	"github.com/bigkaa/carecenter/governance-core/internal/domain/rbac"
	"github.com/bigkaa/carecenter/governance-core/internal/fieldaccess"
	"github.com/bigkaa/carecenter/governance-core/internal/fieldcrypto"
	"github.com/bigkaa/carecenter/governance-core/internal/testutil"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// testClock — управляемые часы для сервисов.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// testEnv — полный набор сервисов поверх in-memory репозиториев.
type testEnv struct {
	clock *testClock

	principals *testutil.Principals
	sessions   *testutil.Sessions
	incidents  *testutil.Incidents
	exports    *testutil.Exports
	classes    *testutil.Classifications
	activity   *testutil.Activity
	retention  *testutil.Retention
	source     *testutil.ExportSource

	engine    *fieldcrypto.Engine
	log       *IncidentLog
	validator *PrivilegeValidator
	guard     *SessionGuard
	registry  *ClassificationRegistry
	monitor   *ActivityMonitor
	workflow  *ExportWorkflow
	enforcer  *RetentionEnforcer
}

// Классификации, с которыми стартует тестовое окружение.
var testClassifications = []*model.ClassificationEntry{
	{Table: "patients", Column: "diagnosis", Level: classification.Restricted, DataCategory: "medical", Encrypted: true},
	{Table: "patients", Column: "phone", Level: classification.Confidential, DataCategory: "personal_info", Encrypted: true},
	{Table: "patients", Column: "room_number", Level: classification.Internal, DataCategory: "administrative"},
	{Table: "rooms", Column: "number", Level: classification.Public, DataCategory: "facility"},
	{Table: "staff", Column: "phone", Level: classification.Confidential, DataCategory: "personal_info"},
}

// Принципалы тестового окружения.
const (
	nurseID     = "nurse-1"
	doctorID    = "doctor-1"
	adminID     = "admin-1"
	chiefID     = "chief-1"
	receptionID = "reception-1"
)

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
		clock:      &testClock{t: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)},
		principals: testutil.NewPrincipals(),
		sessions:   testutil.NewSessions(),
		incidents:  testutil.NewIncidents(),
		exports:    testutil.NewExports(),
		classes:    testutil.NewClassifications(testClassifications...),
		activity:   testutil.NewActivity(),
		retention:  testutil.NewRetention(),
		source:     testutil.NewExportSource(),
		engine:     engine,
	}
	env.principals.Put(nurseID, rbac.RoleNurse)
	env.principals.Put(doctorID, rbac.RoleDoctor)
	env.principals.Put(adminID, rbac.RoleAdmin)
	env.principals.Put(chiefID, rbac.RoleChiefStaff)
	env.principals.Put(receptionID, rbac.RoleReceptionist)

	logger := testLogger()
	timeout := time.Second

	env.log = NewIncidentLog(env.incidents, timeout, logger)
	env.log.now = env.clock.Now

	identity := NewPostgresIdentityStore(env.principals, env.principals.Overrides())
	env.validator = NewPrivilegeValidator(identity, env.log, timeout, logger)

	env.guard = NewSessionGuard(env.sessions, env.log, SessionGuardConfig{
		Key:                []byte("0123456789abcdef0123456789abcdef"),
		Attributes:         []string{"user-agent", "accept-language", "tls.version"},
		IdleTimeout:        30 * time.Minute,
		PersistenceTimeout: timeout,
	}, logger)
	env.guard.now = env.clock.Now

	env.registry = NewClassificationRegistry(env.classes, env.validator,
		ClassificationCacheConfig{Size: 16, TTL: time.Minute}, timeout, logger)
	env.registry.now = env.clock.Now

	env.monitor = NewActivityMonitor(env.activity, ActivityMonitorConfig{
		Threshold:          3,
		Window:             time.Hour,
		PersistenceTimeout: timeout,
	}, logger)
	env.monitor.now = env.clock.Now

	policy := fieldaccess.New(engine, logger)
	env.workflow = NewExportWorkflow(env.exports, env.source, env.registry, env.validator,
		policy, env.monitor, ExportWorkflowConfig{
			TTL:                72 * time.Hour,
			MaxRows:            100,
			RequestsPerHour:    10,
			PersistenceTimeout: timeout,
		}, logger)
	env.workflow.now = env.clock.Now

	env.enforcer = NewRetentionEnforcer(env.retention, env.validator, nil,
		RetentionConfig{PersistenceTimeout: timeout}, logger)
	env.enforcer.now = env.clock.Now

	return env
}

// principal возвращает Principal с ролью из identity store.
func principal(id, role string) model.Principal {
	return model.Principal{ID: id, Role: role, SessionID: "sess-" + id, SourceAddress: "10.0.0.5"}
}
