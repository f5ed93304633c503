package archive

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	appconfig "github.com/bigkaa/carecenter/governance-core/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestArchiver_Archive(t *testing.T) {
	store := NewMemoryStore()
	a := New(store, "retention", testLogger())
	a.now = func() time.Time { return time.Date(2026, 4, 2, 3, 0, 0, 0, time.UTC) }

	rows := []json.RawMessage{
		json.RawMessage(`{"id": "1", "user_id": "nurse-1"}`),
		json.RawMessage(`{"id": "2",
			"user_id": "doctor-7"}`),
	}
	key, err := a.Archive(context.Background(), "download_activity", rows)
	if err != nil {
		t.Fatalf("Archive: %v", err)
	}
	if !strings.HasPrefix(key, "retention/download_activity/2026/04/02/") || !strings.HasSuffix(key, ".jsonl") {
		t.Errorf("неверный ключ: %s", key)
	}

	data := string(store.Objects()[key])
	lines := strings.Split(strings.TrimRight(data, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("хотели 2 строки, получили %d: %q", len(lines), data)
	}
	if lines[1] != `{"id":"2","user_id":"doctor-7"}` {
		t.Errorf("строка не компактна: %s", lines[1])
	}
}

func TestArchiver_InvalidRow(t *testing.T) {
	a := New(NewMemoryStore(), "retention", testLogger())
	if _, err := a.Archive(context.Background(), "t", []json.RawMessage{json.RawMessage(`{broken`)}); err == nil {
		t.Error("ожидалась ошибка для некорректного JSON")
	}
}

func TestS3Store_Put(t *testing.T) {
	var (
		mu     sync.Mutex
		method string
		reqURL string
		body   string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		method, reqURL, body = r.Method, r.URL.Path, string(b)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	store, err := NewS3Store(context.Background(), S3Config{
		Bucket:          "governance-archive",
		Region:          "us-east-1",
		Endpoint:        srv.URL,
		AccessKeyID:     "test",
		SecretAccessKey: "test",
		UsePathStyle:    true,
	})
	if err != nil {
		t.Fatalf("NewS3Store: %v", err)
	}

	err = store.Put(context.Background(), "retention/sessions/a.jsonl", []byte(`{"id":"s1"}`+"\n"), "application/x-ndjson")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if method != http.MethodPut {
		t.Errorf("метод: хотели PUT, получили %s", method)
	}
	if reqURL != "/governance-archive/retention/sessions/a.jsonl" {
		t.Errorf("путь: получили %s", reqURL)
	}
	if !strings.Contains(body, `{"id":"s1"}`) {
		t.Errorf("тело запроса не содержит строку архива: %q", body)
	}
}

func TestNewS3Store_Validation(t *testing.T) {
	if _, err := NewS3Store(context.Background(), S3Config{Region: "us-east-1"}); err == nil {
		t.Error("ожидалась ошибка без bucket")
	}
	if _, err := NewS3Store(context.Background(), S3Config{Bucket: "b"}); err == nil {
		t.Error("ожидалась ошибка без региона")
	}
}

func TestS3ConfigFrom(t *testing.T) {
	cfg := S3ConfigFrom(&appconfig.Config{
		ArchiveBucket:       "governance-archive",
		ArchiveRegion:       "eu-central-1",
		ArchiveEndpoint:     "http://minio:9000",
		ArchiveAccessKey:    "ak",
		ArchiveSecretKey:    "sk",
		ArchiveUsePathStyle: true,
	})
	want := S3Config{
		Bucket:          "governance-archive",
		Region:          "eu-central-1",
		Endpoint:        "http://minio:9000",
		AccessKeyID:     "ak",
		SecretAccessKey: "sk",
		UsePathStyle:    true,
	}
	if cfg != want {
		t.Errorf("хотели %+v, получили %+v", want, cfg)
	}
}
