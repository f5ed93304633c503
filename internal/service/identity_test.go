package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bigkaa/carecenter/governance-core/internal/domain/model"
	"github.com/bigkaa/carecenter/governance-core/internal/domain/rbac"
	"github.com/bigkaa/carecenter/governance-core/internal/keycloak"
	"github.com/bigkaa/carecenter/governance-core/internal/testutil"
)

// mockDirectory — мок KeycloakDirectory.
type mockDirectory struct {
	getUserFn   func(ctx context.Context, id string) (*keycloak.User, error)
	getGroupsFn func(ctx context.Context, userID string) ([]string, error)
	getRolesFn  func(ctx context.Context, userID string) ([]string, error)
	calls       int
}

func (m *mockDirectory) GetUser(ctx context.Context, id string) (*keycloak.User, error) {
	m.calls++
	if m.getUserFn != nil {
		return m.getUserFn(ctx, id)
	}
	return &keycloak.User{ID: id, Username: id, Enabled: true}, nil
}

func (m *mockDirectory) GetUserGroups(ctx context.Context, userID string) ([]string, error) {
	if m.getGroupsFn != nil {
		return m.getGroupsFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockDirectory) GetUserRealmRoles(ctx context.Context, userID string) ([]string, error) {
	if m.getRolesFn != nil {
		return m.getRolesFn(ctx, userID)
	}
	return nil, nil
}

var testGroupMap = map[string]string{
	"cc-doctors": rbac.RoleDoctor,
	"cc-nurses":  rbac.RoleNurse,
	"cc-admins":  rbac.RoleAdmin,
}

func TestPostgresIdentityStore_Inactive(t *testing.T) {
	principals := testutil.NewPrincipals()
	_ = principals.Upsert(context.Background(), &model.IdentityPrincipal{ID: "u1", Role: rbac.RoleDoctor, Active: false})
	store := NewPostgresIdentityStore(principals, principals.Overrides())

	role, err := store.LookupRole(context.Background(), "u1")
	if err != nil || role != "" {
		t.Errorf("отключённый принципал: хотели пустую роль, получили %q, %v", role, err)
	}
}

func TestKeycloakIdentityStore_Groups(t *testing.T) {
	dir := &mockDirectory{
		getGroupsFn: func(_ context.Context, _ string) ([]string, error) {
			return []string{"cc-nurses", "cc-doctors", "unrelated"}, nil
		},
	}
	store := NewKeycloakIdentityStore(dir, nil, testGroupMap, time.Minute, testLogger())

	role, err := store.LookupRole(context.Background(), "kc-user")
	if err != nil {
		t.Fatalf("LookupRole: %v", err)
	}
	if role != rbac.RoleDoctor {
		t.Errorf("хотели doctor (старшая роль), получили %q", role)
	}
}

func TestKeycloakIdentityStore_Override(t *testing.T) {
	principals := testutil.NewPrincipals()
	ctx := context.Background()
	_ = principals.Overrides().Upsert(ctx, &model.RoleOverride{PrincipalID: "kc-user", AdditionalRole: rbac.RoleChiefStaff})

	dir := &mockDirectory{
		getGroupsFn: func(_ context.Context, _ string) ([]string, error) {
			return []string{"cc-nurses"}, nil
		},
	}
	store := NewKeycloakIdentityStore(dir, principals.Overrides(), testGroupMap, time.Minute, testLogger())

	role, _ := store.LookupRole(ctx, "kc-user")
	if role != rbac.RoleChiefStaff {
		t.Errorf("хотели chief-staff, получили %q", role)
	}

	// Без роли из групп дополнение не применяется
	dir.getGroupsFn = func(_ context.Context, _ string) ([]string, error) { return nil, nil }
	role, _ = store.LookupRole(ctx, "kc-user")
	if role != "" {
		t.Errorf("хотели пустую роль, получили %q", role)
	}
}

func TestKeycloakIdentityStore_RealmRoleFallback(t *testing.T) {
	dir := &mockDirectory{
		getGroupsFn: func(_ context.Context, _ string) ([]string, error) {
			return []string{"unrelated"}, nil
		},
		getRolesFn: func(_ context.Context, _ string) ([]string, error) {
			return []string{"offline_access", rbac.RoleTherapist}, nil
		},
	}
	store := NewKeycloakIdentityStore(dir, nil, testGroupMap, time.Minute, testLogger())

	role, err := store.LookupRole(context.Background(), "kc-user")
	if err != nil {
		t.Fatalf("LookupRole: %v", err)
	}
	if role != rbac.RoleTherapist {
		t.Errorf("хотели therapist из realm-ролей, получили %q", role)
	}

	// Сопоставленная группа важнее realm-ролей
	dir.getGroupsFn = func(_ context.Context, _ string) ([]string, error) { return []string{"cc-nurses"}, nil }
	role, _ = store.LookupRole(context.Background(), "kc-user")
	if role != rbac.RoleNurse {
		t.Errorf("хотели nurse из групп, получили %q", role)
	}
}

func TestKeycloakIdentityStore_UnknownUser(t *testing.T) {
	dir := &mockDirectory{
		getUserFn: func(_ context.Context, _ string) (*keycloak.User, error) {
			return nil, keycloak.ErrUserNotFound
		},
	}
	store := NewKeycloakIdentityStore(dir, nil, testGroupMap, time.Minute, testLogger())

	role, err := store.LookupRole(context.Background(), "ghost")
	if err != nil || role != "" {
		t.Errorf("хотели пустую роль без ошибки, получили %q, %v", role, err)
	}
}

func TestKeycloakIdentityStore_CircuitBreaker(t *testing.T) {
	dir := &mockDirectory{
		getUserFn: func(_ context.Context, _ string) (*keycloak.User, error) {
			return nil, errors.New("502 bad gateway")
		},
	}
	store := NewKeycloakIdentityStore(dir, nil, testGroupMap, time.Minute, testLogger())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := store.LookupRole(ctx, "u"); !errors.Is(err, ErrIdentityUnavailable) {
			t.Fatalf("вызов %d: хотели ErrIdentityUnavailable, получили %v", i, err)
		}
	}
	if status, _ := store.CheckReady(); status != "fail" {
		t.Errorf("после 5 отказов breaker должен быть разомкнут, статус %s", status)
	}

	calls := dir.calls
	if _, err := store.LookupRole(ctx, "u"); !errors.Is(err, ErrIdentityUnavailable) {
		t.Errorf("хотели ErrIdentityUnavailable, получили %v", err)
	}
	if dir.calls != calls {
		t.Error("разомкнутый breaker не должен обращаться к Keycloak")
	}
}
