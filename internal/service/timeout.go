package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bigkaa/carecenter/governance-core/internal/repository"
)

// DefaultPersistenceTimeout — таймаут обращения к хранилищу по умолчанию.
const DefaultPersistenceTimeout = 5 * time.Second

// withTimeout выполняет fn с ограничением времени. Истечение таймаута и
// ErrLocked отображаются в ErrPersistenceTimeout.
func withTimeout(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		timeout = DefaultPersistenceTimeout
	}
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := fn(tctx)
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, repository.ErrLocked) {
		return fmt.Errorf("%w: %w", ErrPersistenceTimeout, err)
	}
	if tctx.Err() != nil && ctx.Err() == nil {
		// Драйвер мог вернуть собственную ошибку отмены
		return fmt.Errorf("%w: %w", ErrPersistenceTimeout, err)
	}
	return err
}
