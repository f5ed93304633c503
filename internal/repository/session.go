package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/carecenter/governance-core/internal/domain/model"
)

// SessionRepository — хранилище записей сессий.
// Отпечаток записывается только при Create и далее не меняется.
type SessionRepository interface {
	// Create сохраняет новую сессию; ErrConflict, если ID занят.
	Create(ctx context.Context, s *model.Session) error
	// Get возвращает сессию; ErrNotFound, если её нет.
	Get(ctx context.Context, id string) (*model.Session, error)
	// Touch обновляет last_validated_at активной сессии.
	Touch(ctx context.Context, id string, at time.Time) error
	// Invalidate переводит активную сессию в invalidated.
	// Возвращает false, если сессия уже была инвалидирована или не найдена.
	Invalidate(ctx context.Context, id, reason string, at time.Time) (bool, error)
}

type sessionRepo struct {
	db DBTX
}

// NewSessionRepository создаёт PostgreSQL-репозиторий сессий.
func NewSessionRepository(db DBTX) SessionRepository {
	return &sessionRepo{db: db}
}

const sessionColumns = `id, fingerprint, principal_id, asserted_role, state, invalidation_reason,
	created_at, last_validated_at, invalidated_at`

func (r *sessionRepo) Create(ctx context.Context, s *model.Session) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO sessions (id, fingerprint, principal_id, asserted_role, state, created_at, last_validated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		s.ID, s.Fingerprint, s.PrincipalID, s.AssertedRole, s.State, s.CreatedAt, s.LastValidatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("ошибка создания сессии: %w", err)
	}
	return nil
}

func (r *sessionRepo) Get(ctx context.Context, id string) (*model.Session, error) {
	query := fmt.Sprintf(`SELECT %s FROM sessions WHERE id = $1`, sessionColumns)

	s := &model.Session{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&s.ID, &s.Fingerprint, &s.PrincipalID, &s.AssertedRole, &s.State,
		&s.InvalidationReason, &s.CreatedAt, &s.LastValidatedAt, &s.InvalidatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения сессии: %w", err)
	}
	return s, nil
}

func (r *sessionRepo) Touch(ctx context.Context, id string, at time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE sessions SET last_validated_at = $2 WHERE id = $1 AND state = 'active'`, id, at)
	if err != nil {
		return fmt.Errorf("ошибка обновления сессии: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *sessionRepo) Invalidate(ctx context.Context, id, reason string, at time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE sessions
		SET state = 'invalidated', invalidation_reason = $2, invalidated_at = $3
		WHERE id = $1 AND state = 'active'`,
		id, reason, at,
	)
	if err != nil {
		return false, fmt.Errorf("ошибка инвалидации сессии: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
