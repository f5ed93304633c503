// field-keygen — генерация ключевой пары шифрования полей Governance Core.
// Записывает пару в base64-файлы или в секрет Vault KV v2. Существующий
// ключевой материал не перезаписывается.
//
//	field-keygen -target file -public /secrets/field.pub -private /secrets/field.key
//	field-keygen -target vault -vault-mount secret -vault-path governance/field-keys
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/bigkaa/carecenter/governance-core/internal/config"
	"github.com/bigkaa/carecenter/governance-core/internal/fieldcrypto"
	"github.com/bigkaa/carecenter/governance-core/internal/keysource"
)

// keyStore — хранилище, в которое записывается новая пара.
type keyStore interface {
	Store(ctx context.Context, kp *fieldcrypto.KeyPair) error
	Load(ctx context.Context) (*fieldcrypto.KeyPair, error)
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "field-keygen: %v\n", err)
		os.Exit(1)
	}
}

// run разбирает флаги, генерирует пару, записывает её и проверяет
// шифрованием контрольного значения после повторного чтения.
func run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("field-keygen", flag.ContinueOnError)
	target := fs.String("target", "file", "Куда записать ключи: file, vault")
	publicPath := fs.String("public", "field.pub", "Файл открытого ключа (target=file)")
	privatePath := fs.String("private", "field.key", "Файл закрытого ключа (target=file)")
	vaultMount := fs.String("vault-mount", "secret", "Mount KV v2 (target=vault)")
	vaultPath := fs.String("vault-path", "governance/field-keys", "Путь секрета (target=vault)")
	timeout := fs.Duration("timeout", 30*time.Second, "Таймаут операции")
	showVersion := fs.Bool("version", false, "Показать версию")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *showVersion {
		fmt.Fprintf(out, "field-keygen %s\n", config.Version)
		return nil
	}

	var store keyStore
	switch *target {
	case "file":
		store = keysource.NewFileSource(*publicPath, *privatePath)
	case "vault":
		client, err := keysource.NewVaultClient()
		if err != nil {
			return err
		}
		store = keysource.NewVaultSource(client, *vaultMount, *vaultPath)
	default:
		return fmt.Errorf("недопустимое значение -target %q, допустимые: file, vault", *target)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	kp, err := fieldcrypto.GenerateKeyPair(nil)
	if err != nil {
		return err
	}
	if err := store.Store(ctx, kp); err != nil {
		return err
	}
	if err := verify(ctx, store); err != nil {
		return fmt.Errorf("проверка записанных ключей: %w", err)
	}

	switch *target {
	case "file":
		fmt.Fprintf(out, "Ключи записаны: %s, %s\n", *publicPath, *privatePath)
	case "vault":
		fmt.Fprintf(out, "Ключи записаны в Vault: %s/%s\n", *vaultMount, *vaultPath)
	}
	return nil
}

// verify читает пару из хранилища и выполняет пробное шифрование.
func verify(ctx context.Context, store keyStore) error {
	kp, err := store.Load(ctx)
	if err != nil {
		return err
	}
	engine, err := fieldcrypto.New(kp)
	if err != nil {
		return err
	}
	const sample = "field-keygen"
	ct, err := engine.Encrypt(sample)
	if err != nil {
		return err
	}
	pt, err := engine.Decrypt(ct)
	if err != nil {
		return err
	}
	if pt != sample {
		return errors.New("расшифрованное значение не совпадает")
	}
	return nil
}
