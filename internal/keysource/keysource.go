// Пакет keysource — поставщики ключевой пары для fieldcrypto.
// Ключи загружаются один раз при старте процесса; ротация сводится
// к замене ключевого материала в источнике без изменения кода.
package keysource

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/bigkaa/carecenter/governance-core/internal/fieldcrypto"
)

// ErrKeyMaterial — ключевой материал отсутствует или повреждён.
var ErrKeyMaterial = errors.New("ключевой материал недоступен")

// Source — хранилище ключевого материала.
type Source interface {
	// Load возвращает ключевую пару для CryptoEngine.
	Load(ctx context.Context) (*fieldcrypto.KeyPair, error)
}

// FileSource читает ключи из файлов, содержащих base64 (например,
// смонтированных Kubernetes Secret).
type FileSource struct {
	PublicKeyPath  string
	PrivateKeyPath string
}

// NewFileSource создаёт файловый источник ключей.
func NewFileSource(publicKeyPath, privateKeyPath string) *FileSource {
	return &FileSource{PublicKeyPath: publicKeyPath, PrivateKeyPath: privateKeyPath}
}

// Load читает и декодирует обе половины ключевой пары.
func (s *FileSource) Load(_ context.Context) (*fieldcrypto.KeyPair, error) {
	pub, err := readKeyFile(s.PublicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("открытый ключ: %w", err)
	}
	priv, err := readKeyFile(s.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("закрытый ключ: %w", err)
	}
	kp, err := fieldcrypto.KeyPairFromBytes(pub, priv)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrKeyMaterial, err)
	}
	return kp, nil
}

// readKeyFile читает base64-ключ из файла.
func readKeyFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: чтение %s: %w", ErrKeyMaterial, path, err)
	}
	return decodeKey(string(data))
}

// decodeKey декодирует base64 (стандартный алфавит) с пробелами по краям.
func decodeKey(s string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("%w: некорректный base64", ErrKeyMaterial)
	}
	return b, nil
}

// Store записывает ключевую пару в файлы. Существующие файлы не
// перезаписываются: потеря закрытого ключа делает зашифрованные поля нечитаемыми.
func (s *FileSource) Store(_ context.Context, kp *fieldcrypto.KeyPair) error {
	if err := writeKeyFile(s.PublicKeyPath, kp.Public[:], 0o644); err != nil {
		return fmt.Errorf("открытый ключ: %w", err)
	}
	if err := writeKeyFile(s.PrivateKeyPath, kp.Private[:], 0o600); err != nil {
		_ = os.Remove(s.PublicKeyPath)
		return fmt.Errorf("закрытый ключ: %w", err)
	}
	return nil
}

// writeKeyFile создаёт файл с base64-ключом; файл не должен существовать.
func writeKeyFile(path string, key []byte, perm os.FileMode) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return fmt.Errorf("создание %s: %w", path, err)
	}
	if _, err := f.WriteString(EncodeKey(key) + "\n"); err != nil {
		_ = f.Close()
		return fmt.Errorf("запись %s: %w", path, err)
	}
	return f.Close()
}

// EncodeKey кодирует ключ для хранения в файле или секрете.
func EncodeKey(key []byte) string {
	return base64.StdEncoding.EncodeToString(key)
}
