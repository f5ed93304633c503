// Пакет fieldcrypto — асимметричное шифрование отдельных значений полей.
//
// Используются анонимные запечатанные контейнеры NaCl (X25519 +
// XSalsa20-Poly1305): шифрование требует только открытого ключа,
// расшифровка — ключевой пары. Формат шифротекста: "v1." + base64url.
//
// Engine не хранит состояния между вызовами и безопасен для
// параллельного использования. Открытый текст никогда не логируется.
package fieldcrypto

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/nacl/box"
)

// KeySize — размер открытого и закрытого ключей X25519.
const KeySize = 32

// ciphertextPrefix — версия формата шифротекста.
const ciphertextPrefix = "v1."

// Ошибки CryptoEngine.
var (
	// ErrDecryption — шифротекст повреждён, чужой или имеет неверный формат.
	ErrDecryption = errors.New("ошибка расшифровки")
	// ErrInvalidPlaintext — открытый текст не является корректным UTF-8.
	ErrInvalidPlaintext = errors.New("открытый текст не является корректным UTF-8")
	// ErrInvalidKey — ключ имеет неверную длину.
	ErrInvalidKey = errors.New("некорректный ключ")
)

// DecryptionError описывает причину отказа расшифровки.
// errors.Is(err, ErrDecryption) истинно для любой DecryptionError.
type DecryptionError struct {
	Reason string
}

func (e *DecryptionError) Error() string {
	return fmt.Sprintf("%s: %s", ErrDecryption.Error(), e.Reason)
}

// Is позволяет сопоставлять DecryptionError с ErrDecryption.
func (e *DecryptionError) Is(target error) bool {
	return target == ErrDecryption
}

// KeyPair — ключевая пара X25519.
type KeyPair struct {
	Public  [KeySize]byte
	Private [KeySize]byte
}

// GenerateKeyPair создаёт новую ключевую пару.
func GenerateKeyPair(random io.Reader) (*KeyPair, error) {
	if random == nil {
		random = rand.Reader
	}
	pub, priv, err := box.GenerateKey(random)
	if err != nil {
		return nil, fmt.Errorf("генерация ключевой пары: %w", err)
	}
	return &KeyPair{Public: *pub, Private: *priv}, nil
}

// KeyPairFromBytes собирает ключевую пару из сырых байтов.
func KeyPairFromBytes(public, private []byte) (*KeyPair, error) {
	if len(public) != KeySize {
		return nil, fmt.Errorf("%w: открытый ключ %d байт, ожидается %d", ErrInvalidKey, len(public), KeySize)
	}
	if len(private) != KeySize {
		return nil, fmt.Errorf("%w: закрытый ключ %d байт, ожидается %d", ErrInvalidKey, len(private), KeySize)
	}
	kp := &KeyPair{}
	copy(kp.Public[:], public)
	copy(kp.Private[:], private)
	return kp, nil
}

// Engine — шифрование и расшифровка значений полей.
type Engine struct {
	keys   KeyPair
	random io.Reader
}

// New создаёт Engine с ключевой парой из хранилища ключей.
func New(keys *KeyPair) (*Engine, error) {
	if keys == nil {
		return nil, fmt.Errorf("%w: ключевая пара не задана", ErrInvalidKey)
	}
	return &Engine{keys: *keys, random: rand.Reader}, nil
}

// Encrypt запечатывает открытый текст открытым ключом.
// Для корректного UTF-8 ошибка возможна только при отказе источника энтропии.
func (e *Engine) Encrypt(plaintext string) (string, error) {
	if !utf8.ValidString(plaintext) {
		return "", ErrInvalidPlaintext
	}
	sealed, err := box.SealAnonymous(nil, []byte(plaintext), &e.keys.Public, e.random)
	if err != nil {
		return "", fmt.Errorf("шифрование значения: %w", err)
	}
	return ciphertextPrefix + base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Decrypt вскрывает шифротекст. Возвращает *DecryptionError при любом
// нарушении формата или подлинности.
func (e *Engine) Decrypt(ciphertext string) (string, error) {
	encoded, ok := strings.CutPrefix(ciphertext, ciphertextPrefix)
	if !ok {
		return "", &DecryptionError{Reason: "неизвестный формат шифротекста"}
	}
	sealed, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", &DecryptionError{Reason: "некорректная кодировка base64"}
	}
	if len(sealed) < box.AnonymousOverhead {
		return "", &DecryptionError{Reason: "шифротекст слишком короткий"}
	}
	plain, ok := box.OpenAnonymous(nil, sealed, &e.keys.Public, &e.keys.Private)
	if !ok {
		return "", &DecryptionError{Reason: "проверка подлинности не пройдена"}
	}
	if !utf8.Valid(plain) {
		return "", &DecryptionError{Reason: "результат не является корректным UTF-8"}
	}
	return string(plain), nil
}
