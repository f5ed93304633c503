package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/carecenter/governance-core/internal/domain/model"
)

// PrincipalRepository — авторитетные роли персонала (таблица principals).
type PrincipalRepository interface {
	// Get возвращает принципала по ID; ErrNotFound, если его нет.
	Get(ctx context.Context, id string) (*model.IdentityPrincipal, error)
	// Upsert создаёт или обновляет принципала.
	Upsert(ctx context.Context, p *model.IdentityPrincipal) error
}

type principalRepo struct {
	db DBTX
}

// NewPrincipalRepository создаёт репозиторий принципалов.
func NewPrincipalRepository(db DBTX) PrincipalRepository {
	return &principalRepo{db: db}
}

func (r *principalRepo) Get(ctx context.Context, id string) (*model.IdentityPrincipal, error) {
	p := &model.IdentityPrincipal{}
	err := r.db.QueryRow(ctx,
		`SELECT id, username, role, active, updated_at FROM principals WHERE id = $1`, id,
	).Scan(&p.ID, &p.Username, &p.Role, &p.Active, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения принципала: %w", err)
	}
	return p, nil
}

func (r *principalRepo) Upsert(ctx context.Context, p *model.IdentityPrincipal) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO principals (id, username, role, active)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			username = EXCLUDED.username,
			role = EXCLUDED.role,
			active = EXCLUDED.active,
			updated_at = now()
		RETURNING updated_at`,
		p.ID, p.Username, p.Role, p.Active,
	).Scan(&p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("ошибка upsert принципала: %w", err)
	}
	return nil
}

// RoleOverrideRepository — локальные повышения ролей (таблица role_overrides).
type RoleOverrideRepository interface {
	// GetByPrincipalID возвращает override; ErrNotFound, если его нет.
	GetByPrincipalID(ctx context.Context, principalID string) (*model.RoleOverride, error)
	// Upsert создаёт или обновляет override.
	Upsert(ctx context.Context, ro *model.RoleOverride) error
	// Delete удаляет override.
	Delete(ctx context.Context, principalID string) error
}

type roleOverrideRepo struct {
	db DBTX
}

// NewRoleOverrideRepository создаёт репозиторий role overrides.
func NewRoleOverrideRepository(db DBTX) RoleOverrideRepository {
	return &roleOverrideRepo{db: db}
}

const roColumns = `id, principal_id, username, additional_role, created_by, created_at, updated_at`

func (r *roleOverrideRepo) GetByPrincipalID(ctx context.Context, principalID string) (*model.RoleOverride, error) {
	query := fmt.Sprintf(`SELECT %s FROM role_overrides WHERE principal_id = $1`, roColumns)

	ro := &model.RoleOverride{}
	err := r.db.QueryRow(ctx, query, principalID).Scan(
		&ro.ID, &ro.PrincipalID, &ro.Username, &ro.AdditionalRole,
		&ro.CreatedBy, &ro.CreatedAt, &ro.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения role override: %w", err)
	}
	return ro, nil
}

func (r *roleOverrideRepo) Upsert(ctx context.Context, ro *model.RoleOverride) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO role_overrides (principal_id, username, additional_role, created_by)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (principal_id) DO UPDATE SET
			username = EXCLUDED.username,
			additional_role = EXCLUDED.additional_role,
			created_by = EXCLUDED.created_by,
			updated_at = now()
		RETURNING id, created_at, updated_at`,
		ro.PrincipalID, ro.Username, ro.AdditionalRole, ro.CreatedBy,
	).Scan(&ro.ID, &ro.CreatedAt, &ro.UpdatedAt)
	if err != nil {
		return fmt.Errorf("ошибка upsert role override: %w", err)
	}
	return nil
}

func (r *roleOverrideRepo) Delete(ctx context.Context, principalID string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM role_overrides WHERE principal_id = $1`, principalID)
	if err != nil {
		return fmt.Errorf("ошибка удаления role override: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
