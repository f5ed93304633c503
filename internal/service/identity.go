package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/bigkaa/carecenter/governance-core/internal/domain/rbac"
	"github.com/bigkaa/carecenter/governance-core/internal/keycloak"
	"github.com/bigkaa/carecenter/governance-core/internal/repository"
)

// IdentityStore — авторитетный источник ролей.
type IdentityStore interface {
	// LookupRole возвращает текущую роль принципала. Неизвестный или
	// отключённый принципал — пустая роль без ошибки.
	LookupRole(ctx context.Context, principalID string) (string, error)
}

// PostgresIdentityStore читает роль из таблицы principals
// с учётом локального повышения из role_overrides.
type PostgresIdentityStore struct {
	principals repository.PrincipalRepository
	overrides  repository.RoleOverrideRepository
}

// NewPostgresIdentityStore создаёт identity store поверх PostgreSQL.
func NewPostgresIdentityStore(principals repository.PrincipalRepository, overrides repository.RoleOverrideRepository) *PostgresIdentityStore {
	return &PostgresIdentityStore{principals: principals, overrides: overrides}
}

func (s *PostgresIdentityStore) LookupRole(ctx context.Context, principalID string) (string, error) {
	p, err := s.principals.Get(ctx, principalID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	if !p.Active {
		return "", nil
	}
	return applyOverride(ctx, s.overrides, principalID, p.Role)
}

// applyOverride повышает роль локальным дополнением, если оно есть.
func applyOverride(ctx context.Context, overrides repository.RoleOverrideRepository, principalID, role string) (string, error) {
	if overrides == nil {
		return role, nil
	}
	ro, err := overrides.GetByPrincipalID(ctx, principalID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return role, nil
		}
		return "", err
	}
	return rbac.EffectiveRole(role, &ro.AdditionalRole), nil
}

// KeycloakDirectory — операции Keycloak, нужные identity store.
type KeycloakDirectory interface {
	GetUser(ctx context.Context, id string) (*keycloak.User, error)
	GetUserGroups(ctx context.Context, userID string) ([]string, error)
	GetUserRealmRoles(ctx context.Context, userID string) ([]string, error)
}

// KeycloakIdentityStore вычисляет роль по группам Keycloak (с откатом на
// realm-роли, как при проверке JWT) и локальному дополнению. Обращения к Keycloak идут через circuit breaker: при серии
// отказов запросы сразу получают ErrIdentityUnavailable.
type KeycloakIdentityStore struct {
	directory KeycloakDirectory
	overrides repository.RoleOverrideRepository
	groupMap  map[string]string
	cb        *gobreaker.CircuitBreaker[string]
	logger    *slog.Logger
}

// NewKeycloakIdentityStore создаёт identity store поверх Keycloak.
// openTimeout — время, на которое breaker размыкается после серии отказов.
func NewKeycloakIdentityStore(
	directory KeycloakDirectory,
	overrides repository.RoleOverrideRepository,
	groupMap map[string]string,
	openTimeout time.Duration,
	logger *slog.Logger,
) *KeycloakIdentityStore {
	l := logger.With(slog.String("component", "keycloak_identity"))
	cb := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        "keycloak-identity",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			l.Warn("Состояние circuit breaker изменилось",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	})
	return &KeycloakIdentityStore{
		directory: directory,
		overrides: overrides,
		groupMap:  groupMap,
		cb:        cb,
		logger:    l,
	}
}

func (s *KeycloakIdentityStore) LookupRole(ctx context.Context, principalID string) (string, error) {
	idpRole, err := s.cb.Execute(func() (string, error) {
		user, err := s.directory.GetUser(ctx, principalID)
		if err != nil {
			if errors.Is(err, keycloak.ErrUserNotFound) {
				return "", nil
			}
			return "", err
		}
		if !user.Enabled {
			return "", nil
		}
		groups, err := s.directory.GetUserGroups(ctx, principalID)
		if err != nil {
			if errors.Is(err, keycloak.ErrUserNotFound) {
				return "", nil
			}
			return "", err
		}
		if role := rbac.MapGroupsToRole(groups, s.groupMap); role != "" {
			return role, nil
		}
		realmRoles, err := s.directory.GetUserRealmRoles(ctx, principalID)
		if err != nil {
			if errors.Is(err, keycloak.ErrUserNotFound) {
				return "", nil
			}
			return "", err
		}
		return rbac.ResolveRole(nil, realmRoles, s.groupMap), nil
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		return "", fmt.Errorf("%w: %w", ErrIdentityUnavailable, err)
	}
	if idpRole == "" {
		return "", nil
	}
	return applyOverride(ctx, s.overrides, principalID, idpRole)
}

// CheckReady сообщает состояние circuit breaker для /health/ready.
func (s *KeycloakIdentityStore) CheckReady() (string, string) {
	if s.cb.State() == gobreaker.StateOpen {
		return "fail", "circuit breaker Keycloak разомкнут"
	}
	return "ok", "circuit breaker " + s.cb.State().String()
}
