// Пакет repository — доступ к PostgreSQL и Redis.
// Запросы к PostgreSQL пишутся на чистом SQL через pgx.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Ошибки слоя репозиториев.
var (
	// ErrNotFound — запись не найдена.
	ErrNotFound = errors.New("запись не найдена")
	// ErrConflict — запись с таким ключом уже существует.
	ErrConflict = errors.New("конфликт — запись уже существует")
	// ErrLocked — строка заблокирована другой транзакцией дольше допустимого.
	ErrLocked = errors.New("запись заблокирована")
)

// DBTX — общий интерфейс *pgxpool.Pool и pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// beginner — источник транзакций (пул или соединение).
type beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// TxDB — DBTX, умеющий открывать транзакции (*pgxpool.Pool, pgx.Tx).
type TxDB interface {
	DBTX
	beginner
}

func runInTx(ctx context.Context, db beginner, fn func(tx pgx.Tx) error) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // откат после коммита — no-op

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}
	return nil
}

// isUniqueViolation — нарушение уникальности PostgreSQL.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}

// isLockNotAvailable — истёк lock_timeout при ожидании блокировки строки.
func isLockNotAvailable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "55P03" // lock_not_available
	}
	return false
}

// quoteIdent экранирует одиночный идентификатор SQL.
func quoteIdent(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

// normalizePage приводит limit/offset к допустимым значениям.
func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
