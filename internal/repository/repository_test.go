package repository

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/bigkaa/carecenter/governance-core/internal/config"
	"github.com/bigkaa/carecenter/governance-core/internal/database"
	"github.com/bigkaa/carecenter/governance-core/internal/domain/classification"
	"github.com/bigkaa/carecenter/governance-core/internal/domain/exportflow"
	"github.com/bigkaa/carecenter/governance-core/internal/domain/model"
)

// setupTestDB запускает PostgreSQL контейнер и применяет миграции.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("Пропуск интеграционного теста: TEST_INTEGRATION не установлена")
	}

	ctx := context.Background()
	container, err := postgres.Run(ctx,
		"docker.io/postgres:17-alpine",
		postgres.WithDatabase("governance_test"),
		postgres.WithUsername("governance"),
		postgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("Не удалось запустить PostgreSQL контейнер: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Ошибка остановки контейнера: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Не удалось получить host контейнера: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Не удалось получить port контейнера: %v", err)
	}

	t.Setenv("GM_DB_HOST", host)
	t.Setenv("GM_DB_PORT", port.Port())
	t.Setenv("GM_DB_NAME", "governance_test")
	t.Setenv("GM_DB_USER", "governance")
	t.Setenv("GM_DB_PASSWORD", "test-password")
	t.Setenv("GM_FINGERPRINT_KEY", strings.Repeat("k", 32))
	t.Setenv("GM_PUBLIC_KEY_PATH", "/dev/null")
	t.Setenv("GM_PRIVATE_KEY_PATH", "/dev/null")
	t.Setenv("GM_KEYCLOAK_URL", "http://localhost:8080")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	if err := database.Migrate(cfg, logger); err != nil {
		t.Fatalf("Ошибка миграций: %v", err)
	}
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		t.Fatalf("Ошибка подключения: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

func TestSessionRepository(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewSessionRepository(pool)
	ctx := context.Background()

	s := newTestSession("pg-s1")
	if err := repo.Create(ctx, s); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.Create(ctx, s); !errors.Is(err, ErrConflict) {
		t.Errorf("повторный Create: хотели ErrConflict, получили %v", err)
	}

	at := s.CreatedAt.Add(10 * time.Minute)
	if err := repo.Touch(ctx, s.ID, at); err != nil {
		t.Fatalf("Touch: %v", err)
	}
	changed, err := repo.Invalidate(ctx, s.ID, model.InvalidatedByLogout, at)
	if err != nil || !changed {
		t.Fatalf("Invalidate: %v, %v", changed, err)
	}
	if changed, _ := repo.Invalidate(ctx, s.ID, model.InvalidatedByLogout, at); changed {
		t.Error("повторная инвалидация не должна менять запись")
	}

	got, err := repo.Get(ctx, s.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.State != model.SessionInvalidated || got.InvalidationReason != model.InvalidatedByLogout {
		t.Errorf("неверное состояние: %s / %s", got.State, got.InvalidationReason)
	}

	// Отпечаток неизменяем на уровне схемы
	if _, err := pool.Exec(ctx, `UPDATE sessions SET fingerprint = 'other' WHERE id = $1`, s.ID); err == nil {
		t.Error("изменение отпечатка должно быть запрещено")
	}
}

func newExportRequest(id, requester string, expiresIn time.Duration) *model.ExportRequest {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &model.ExportRequest{
		ID:                  id,
		ExportType:          "csv",
		Tables:              []string{"staff", "users"},
		Filters:             map[string]string{"department": "rehab"},
		Justification:       "audit",
		RequesterID:         requester,
		RequesterRole:       "nurse",
		ClassificationLevel: classification.Confidential,
		Status:              exportflow.StatusPending,
		RequestedAt:         now,
		ExpiresAt:           now.Add(expiresIn),
	}
}

func TestExportRequestRepository_UpdateLockedSerializes(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewExportRequestRepository(pool, 5*time.Second)
	ctx := context.Background()

	req := newExportRequest("EXP-20260301-100000-0000abcd", "nurse-1", 72*time.Hour)
	if err := repo.Create(ctx, req); err != nil {
		t.Fatalf("Create: %v", err)
	}

	errNotPending := errors.New("not pending")
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
		denied  int
	)
	for _, approver := range []string{"admin-1", "chief-1", "admin-2", "chief-2"} {
		wg.Add(1)
		go func(approver string) {
			defer wg.Done()
			_, err := repo.UpdateLocked(ctx, req.ID, func(r *model.ExportRequest) error {
				if r.Status != exportflow.StatusPending {
					return errNotPending
				}
				now := time.Now().UTC()
				r.Status = exportflow.StatusApproved
				r.DecidedAt = &now
				r.DecidedBy = approver
				return nil
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				success++
			case errors.Is(err, errNotPending):
				denied++
			default:
				t.Errorf("UpdateLocked(%s): %v", approver, err)
			}
		}(approver)
	}
	wg.Wait()

	if success != 1 || denied != 3 {
		t.Errorf("хотели 1 успех и 3 отказа, получили %d и %d", success, denied)
	}

	got, _ := repo.Get(ctx, req.ID)
	if got.Status != exportflow.StatusApproved || got.DecidedBy == "" {
		t.Errorf("неверное итоговое состояние: %s / %q", got.Status, got.DecidedBy)
	}
	if got.Filters["department"] != "rehab" || len(got.Tables) != 2 {
		t.Errorf("фильтры или таблицы потеряны: %v %v", got.Filters, got.Tables)
	}
}

func TestExportRequestRepository_ExpirePending(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewExportRequestRepository(pool, 0)
	ctx := context.Background()

	_ = repo.Create(ctx, newExportRequest("EXP-1", "nurse-1", -time.Hour))
	_ = repo.Create(ctx, newExportRequest("EXP-2", "nurse-1", time.Hour))

	n, err := repo.ExpirePending(ctx, time.Now())
	if err != nil {
		t.Fatalf("ExpirePending: %v", err)
	}
	if n != 1 {
		t.Errorf("хотели 1 истёкшую заявку, получили %d", n)
	}

	list, err := repo.List(ctx, model.ExportFilter{Status: exportflow.StatusExpired})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 || list[0].ID != "EXP-1" {
		t.Errorf("хотели только EXP-1, получили %d записей", len(list))
	}
}

func TestRetentionRepository_PurgeIdempotent(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewRetentionRepository(pool)
	activity := NewActivityRepository(pool)
	ctx := context.Background()

	now := time.Now().UTC()
	for i, age := range []time.Duration{800 * 24 * time.Hour, 900 * 24 * time.Hour, time.Hour} {
		err := activity.Append(ctx, &model.DownloadActivity{
			ID:                 []string{"00000000-0000-0000-0000-000000000001", "00000000-0000-0000-0000-000000000002", "00000000-0000-0000-0000-000000000003"}[i],
			UserID:             "nurse-1",
			UserRole:           "nurse",
			FileName:           "export.json",
			FileType:           "application/json",
			DataClassification: classification.Confidential,
			DownloadedAt:       now.Add(-age),
		})
		if err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	policy, err := repo.GetPolicy(ctx, "download-activity-2y")
	if err != nil {
		t.Fatalf("GetPolicy: %v", err)
	}

	var archived []json.RawMessage
	archive := func(_ context.Context, rows []json.RawMessage) error {
		archived = append(archived, rows...)
		return nil
	}

	n, err := repo.Purge(ctx, policy, policy.Cutoff(now), now, archive)
	if err != nil {
		t.Fatalf("Purge: %v", err)
	}
	if n != 2 || len(archived) != 2 {
		t.Errorf("хотели 2 удалённые строки, получили %d (архив %d)", n, len(archived))
	}

	n, err = repo.Purge(ctx, policy, policy.Cutoff(now), now, archive)
	if err != nil {
		t.Fatalf("повторный Purge: %v", err)
	}
	if n != 0 {
		t.Errorf("повторная очистка: хотели 0, получили %d", n)
	}

	got, _ := repo.GetPolicy(ctx, policy.PolicyName)
	if got.LastExecutedAt == nil {
		t.Error("last_executed_at не обновлён")
	}
}

func TestRetentionRepository_PurgeArchiveFailureRollsBack(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewRetentionRepository(pool)
	incidents := NewIncidentRepository(pool)
	ctx := context.Background()

	old := time.Now().Add(-1000 * 24 * time.Hour)
	_ = incidents.Append(ctx, &model.Incident{
		ID: "00000000-0000-0000-0000-0000000000aa", Type: model.IncidentSessionHijacking,
		PrincipalID: "nurse-1", Severity: model.SeverityHigh, DetectedAt: old,
	})

	policy, _ := repo.GetPolicy(ctx, "incidents-2y")
	_, err := repo.Purge(ctx, policy, policy.Cutoff(time.Now()), time.Now(), func(context.Context, []json.RawMessage) error {
		return errors.New("s3 недоступен")
	})
	if err == nil {
		t.Fatal("ожидалась ошибка архивации")
	}

	list, _ := incidents.List(ctx, model.IncidentFilter{})
	if len(list) != 1 {
		t.Errorf("строки должны остаться после отката: получили %d", len(list))
	}
}

func TestClassificationRepository_SeedAndUpsert(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewClassificationRepository(pool)
	ctx := context.Background()

	n, err := repo.SeedIfAbsent(ctx, []*model.ClassificationEntry{
		{Table: "users", Column: "email", Level: classification.Public, UpdatedBy: "seed"},
		{Table: "wards", Column: "name", Level: classification.Internal, UpdatedBy: "seed"},
	})
	if err != nil {
		t.Fatalf("SeedIfAbsent: %v", err)
	}
	if n != 1 {
		t.Errorf("хотели 1 новую запись, получили %d", n)
	}

	// Существующая классификация не затирается начальными данными
	e, err := repo.Get(ctx, "users", "email")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if e.Level != classification.Confidential {
		t.Errorf("users.email: хотели confidential, получили %s", e.Level)
	}

	e.Level = classification.Restricted
	e.UpdatedBy = "admin-1"
	if err := repo.Upsert(ctx, e); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	list, _ := repo.ListByTable(ctx, "users")
	found := false
	for _, it := range list {
		if it.Column == "email" && it.Level == classification.Restricted && it.UpdatedBy == "admin-1" {
			found = true
		}
	}
	if !found {
		t.Error("обновлённая классификация не найдена")
	}
}

func TestExportSource_ReadTable(t *testing.T) {
	pool := setupTestDB(t)
	src := NewExportSource(pool)
	ctx := context.Background()

	_, err := pool.Exec(ctx, `
		CREATE TABLE ward_rooms (number text, ward text);
		INSERT INTO ward_rooms VALUES ('101', 'A'), ('102', 'A'), ('201', 'B')`)
	if err != nil {
		t.Fatalf("подготовка таблицы: %v", err)
	}

	rows, err := src.ReadTable(ctx, "ward_rooms", map[string]string{"ward": "A"}, 100)
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("хотели 2 строки палаты A, получили %d", len(rows))
	}

	if _, err := src.ReadTable(ctx, "no_such_table", nil, 10); !errors.Is(err, ErrNotFound) {
		t.Errorf("хотели ErrNotFound, получили %v", err)
	}
	if _, err := src.ReadTable(ctx, "ward_rooms", map[string]string{"x; DROP TABLE ward_rooms": "1"}, 10); !errors.Is(err, ErrUnknownColumn) {
		t.Errorf("хотели ErrUnknownColumn, получили %v", err)
	}

	// Служебные таблицы ядра не читаются
	for _, table := range []string{"sessions", "principals", "role_overrides", "incidents", "data_classifications"} {
		if _, err := src.ReadTable(ctx, table, nil, 10); !errors.Is(err, ErrNotFound) {
			t.Errorf("%s: хотели ErrNotFound, получили %v", table, err)
		}
	}
}
