package keysource

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/hashicorp/vault/api"

	"github.com/bigkaa/carecenter/governance-core/internal/fieldcrypto"
)

// Поля секрета KV v2 с ключевой парой.
const (
	vaultPublicKeyField  = "public_key"
	vaultPrivateKeyField = "private_key"
)

// VaultSource читает ключевую пару из секрета HashiCorp Vault KV v2.
type VaultSource struct {
	client *api.Client
	mount  string
	path   string
}

// NewVaultClient создаёт клиент Vault из окружения: VAULT_ADDR обязателен,
// аутентификация через VAULT_TOKEN или AppRole (VAULT_ROLE_ID + VAULT_SECRET_ID).
func NewVaultClient() (*api.Client, error) {
	cfg := api.DefaultConfig()
	if cfg.Error != nil {
		return nil, fmt.Errorf("конфигурация Vault: %w", cfg.Error)
	}
	if addr := os.Getenv("VAULT_ADDR"); addr != "" {
		cfg.Address = addr
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("%w: не задана VAULT_ADDR", ErrKeyMaterial)
	}
	cfg.HttpClient.Transport = &http.Transport{Proxy: http.ProxyFromEnvironment}

	client, err := api.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("создание клиента Vault: %w", err)
	}
	if ns := os.Getenv("VAULT_NAMESPACE"); ns != "" {
		client.SetNamespace(ns)
	}

	if token := os.Getenv("VAULT_TOKEN"); token != "" {
		client.SetToken(token)
		return client, nil
	}

	roleID, secretID := os.Getenv("VAULT_ROLE_ID"), os.Getenv("VAULT_SECRET_ID")
	if roleID == "" || secretID == "" {
		return nil, fmt.Errorf("%w: нет способа аутентификации в Vault (VAULT_TOKEN или VAULT_ROLE_ID+VAULT_SECRET_ID)", ErrKeyMaterial)
	}
	resp, err := client.Logical().Write("auth/approle/login", map[string]any{
		"role_id":   roleID,
		"secret_id": secretID,
	})
	if err != nil {
		return nil, fmt.Errorf("вход в Vault через AppRole: %w", err)
	}
	if resp == nil || resp.Auth == nil {
		return nil, fmt.Errorf("%w: Vault не вернул токен AppRole", ErrKeyMaterial)
	}
	client.SetToken(resp.Auth.ClientToken)
	return client, nil
}

// NewVaultSource создаёт источник ключей поверх готового клиента.
// mount — точка монтирования KV v2, path — путь секрета внутри неё.
func NewVaultSource(client *api.Client, mount, path string) *VaultSource {
	return &VaultSource{
		client: client,
		mount:  strings.Trim(mount, "/"),
		path:   strings.Trim(path, "/"),
	}
}

// Address возвращает адрес Vault (для мониторинга зависимостей).
func (s *VaultSource) Address() string {
	return s.client.Address()
}

// Load читает секрет и декодирует ключевую пару.
func (s *VaultSource) Load(ctx context.Context) (*fieldcrypto.KeyPair, error) {
	fullPath := fmt.Sprintf("%s/data/%s", s.mount, s.path)

	secret, err := s.client.Logical().ReadWithContext(ctx, fullPath)
	if err != nil {
		return nil, fmt.Errorf("%w: чтение %s из Vault: %w", ErrKeyMaterial, fullPath, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("%w: секрет %s не найден", ErrKeyMaterial, fullPath)
	}

	// KV v2 вкладывает значения в ключ "data"
	data, ok := secret.Data["data"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: неверный формат секрета KV v2 %s", ErrKeyMaterial, fullPath)
	}

	pub, err := vaultKeyField(data, vaultPublicKeyField)
	if err != nil {
		return nil, err
	}
	priv, err := vaultKeyField(data, vaultPrivateKeyField)
	if err != nil {
		return nil, err
	}

	kp, err := fieldcrypto.KeyPairFromBytes(pub, priv)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrKeyMaterial, err)
	}
	return kp, nil
}

// Store записывает ключевую пару в Vault. Запись выполняется с cas=0:
// существующий секрет не перезаписывается.
func (s *VaultSource) Store(ctx context.Context, kp *fieldcrypto.KeyPair) error {
	fullPath := fmt.Sprintf("%s/data/%s", s.mount, s.path)

	_, err := s.client.Logical().WriteWithContext(ctx, fullPath, map[string]any{
		"data": map[string]any{
			vaultPublicKeyField:  EncodeKey(kp.Public[:]),
			vaultPrivateKeyField: EncodeKey(kp.Private[:]),
		},
		"options": map[string]any{"cas": 0},
	})
	if err != nil {
		return fmt.Errorf("запись %s в Vault: %w", fullPath, err)
	}
	return nil
}

// vaultKeyField извлекает и декодирует base64-поле секрета.
func vaultKeyField(data map[string]any, field string) ([]byte, error) {
	raw, ok := data[field].(string)
	if !ok || raw == "" {
		return nil, fmt.Errorf("%w: поле %s отсутствует в секрете", ErrKeyMaterial, field)
	}
	return decodeKey(raw)
}
