package keysource

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/vault/api"

	"github.com/bigkaa/carecenter/governance-core/internal/fieldcrypto"
)

// writeKeyPair сохраняет ключевую пару в base64-файлы.
func writeKeyPair(t *testing.T, kp *fieldcrypto.KeyPair) (string, string) {
	t.Helper()
	dir := t.TempDir()
	pubPath := filepath.Join(dir, "field.pub")
	privPath := filepath.Join(dir, "field.key")
	if err := os.WriteFile(pubPath, []byte(EncodeKey(kp.Public[:])+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(privPath, []byte(EncodeKey(kp.Private[:])), 0o600); err != nil {
		t.Fatal(err)
	}
	return pubPath, privPath
}

func TestFileSource_Load(t *testing.T) {
	kp, err := fieldcrypto.GenerateKeyPair(nil)
	if err != nil {
		t.Fatal(err)
	}
	pubPath, privPath := writeKeyPair(t, kp)

	got, err := NewFileSource(pubPath, privPath).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Public != kp.Public || got.Private != kp.Private {
		t.Error("загруженная пара не совпадает с исходной")
	}
}

func TestFileSource_Errors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad")
	short := filepath.Join(dir, "short")
	_ = os.WriteFile(bad, []byte("не base64!"), 0o600)
	_ = os.WriteFile(short, []byte(EncodeKey([]byte("short"))), 0o600)

	tests := []struct {
		name      string
		pub, priv string
	}{
		{"нет файла", filepath.Join(dir, "missing"), bad},
		{"битый base64", bad, bad},
		{"короткий ключ", short, short},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFileSource(tt.pub, tt.priv).Load(context.Background())
			if !errors.Is(err, ErrKeyMaterial) {
				t.Errorf("хотели ErrKeyMaterial, получили %v", err)
			}
		})
	}
}

// newMockVault создаёт mock Vault, отдающий секрет KV v2 по пути secret/data/governance/field-keys.
func newMockVault(t *testing.T, data map[string]any) *api.Client {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/secret/data/governance/field-keys" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Header.Get("X-Vault-Token") != "test-token" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"data": data},
		})
	}))
	t.Cleanup(srv.Close)

	cfg := api.DefaultConfig()
	cfg.Address = srv.URL
	client, err := api.NewClient(cfg)
	if err != nil {
		t.Fatalf("api.NewClient: %v", err)
	}
	client.SetToken("test-token")
	return client
}

func TestVaultSource_Load(t *testing.T) {
	kp, _ := fieldcrypto.GenerateKeyPair(nil)
	client := newMockVault(t, map[string]any{
		"public_key":  EncodeKey(kp.Public[:]),
		"private_key": EncodeKey(kp.Private[:]),
	})

	src := NewVaultSource(client, "/secret/", "governance/field-keys")
	got, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Public != kp.Public || got.Private != kp.Private {
		t.Error("ключевая пара из Vault не совпадает")
	}
}

func TestVaultSource_MissingField(t *testing.T) {
	kp, _ := fieldcrypto.GenerateKeyPair(nil)
	client := newMockVault(t, map[string]any{
		"public_key": EncodeKey(kp.Public[:]),
	})

	_, err := NewVaultSource(client, "secret", "governance/field-keys").Load(context.Background())
	if !errors.Is(err, ErrKeyMaterial) {
		t.Errorf("хотели ErrKeyMaterial, получили %v", err)
	}
}

func TestVaultSource_NotFound(t *testing.T) {
	client := newMockVault(t, nil)

	_, err := NewVaultSource(client, "secret", "other/path").Load(context.Background())
	if !errors.Is(err, ErrKeyMaterial) {
		t.Errorf("хотели ErrKeyMaterial, получили %v", err)
	}
}

func TestFileSource_StoreAndLoad(t *testing.T) {
	kp, _ := fieldcrypto.GenerateKeyPair(nil)
	dir := t.TempDir()
	src := NewFileSource(filepath.Join(dir, "field.pub"), filepath.Join(dir, "field.key"))

	if err := src.Store(context.Background(), kp); err != nil {
		t.Fatalf("Store: %v", err)
	}
	info, err := os.Stat(src.PrivateKeyPath)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("права закрытого ключа: хотели 0600, получили %o", perm)
	}

	got, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Public != kp.Public || got.Private != kp.Private {
		t.Error("загруженная пара не совпадает с записанной")
	}

	// Повторная запись не перезаписывает существующие ключи
	other, _ := fieldcrypto.GenerateKeyPair(nil)
	if err := src.Store(context.Background(), other); err == nil {
		t.Fatal("ожидалась ошибка при перезаписи ключей")
	}
	got, _ = src.Load(context.Background())
	if got.Private != kp.Private {
		t.Error("закрытый ключ был перезаписан")
	}
}

func TestVaultSource_Store(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/secret/data/governance/field-keys" || (r.Method != http.MethodPut && r.Method != http.MethodPost) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"version":1}}`))
	}))
	t.Cleanup(srv.Close)

	cfg := api.DefaultConfig()
	cfg.Address = srv.URL
	client, err := api.NewClient(cfg)
	if err != nil {
		t.Fatal(err)
	}
	client.SetToken("test-token")

	kp, _ := fieldcrypto.GenerateKeyPair(nil)
	if err := NewVaultSource(client, "secret", "governance/field-keys").Store(context.Background(), kp); err != nil {
		t.Fatalf("Store: %v", err)
	}

	data, _ := body["data"].(map[string]any)
	if data["public_key"] != EncodeKey(kp.Public[:]) || data["private_key"] != EncodeKey(kp.Private[:]) {
		t.Errorf("неверное содержимое секрета: %v", data)
	}
	opts, _ := body["options"].(map[string]any)
	if cas, _ := opts["cas"].(float64); cas != 0 || opts == nil {
		t.Errorf("хотели options.cas=0, получили %v", opts)
	}
}
