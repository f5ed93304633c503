package service

import (
	"context"
	"errors"
	"testing"

	"github.com/bigkaa/carecenter/governance-core/internal/domain/model"
	"github.com/bigkaa/carecenter/governance-core/internal/domain/rbac"
)

// TestPrivilegeValidator_ForgedRole — медсестра с сессией, заявляющей роль
// admin, не получает доступ; каждая попытка фиксируется отдельно.
func TestPrivilegeValidator_ForgedRole(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		if env.validator.CheckAccess(ctx, nurseID, rbac.RoleAdmin, []string{rbac.RoleAdmin}) {
			t.Fatalf("попытка %d: доступ не должен быть выдан", i)
		}
		if got := env.incidents.Count(model.IncidentPrivilegeEscalation); got != i {
			t.Fatalf("попытка %d: хотели %d инцидентов, получили %d", i, i, got)
		}
	}

	inc := env.incidents.All()[0]
	if inc.Severity != model.SeverityCritical {
		t.Errorf("severity: хотели critical, получили %s", inc.Severity)
	}
	if inc.Details["claimed_role"] != rbac.RoleAdmin || inc.Details["authoritative_role"] != rbac.RoleNurse {
		t.Errorf("подробности инцидента: %v", inc.Details)
	}

	// Роль в admin-1 совпадает — доступ есть
	if !env.validator.CheckAccess(ctx, adminID, rbac.RoleAdmin, []string{rbac.RoleAdmin}) {
		t.Error("admin-1 должен получить доступ")
	}
	if got := env.incidents.Count(model.IncidentPrivilegeEscalation); got != 3 {
		t.Errorf("легитимный доступ не создаёт инцидент, всего %d", got)
	}
}

func TestPrivilegeValidator_Demotion(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.principals.SetRole(chiefID, rbac.RoleNurse)

	// Роль сессии устарела: даже подходящая авторитетная роль не спасает
	_, err := env.validator.Authorize(ctx, principal(chiefID, rbac.RoleChiefStaff), rbac.StaffRoles...)
	if !errors.Is(err, ErrPrivilegeMismatch) {
		t.Errorf("хотели ErrPrivilegeMismatch, получили %v", err)
	}
}

func TestPrivilegeValidator_RequiredRoles(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	role, err := env.validator.Authorize(ctx, principal(doctorID, rbac.RoleDoctor), rbac.ClinicalRoles...)
	if err != nil || role != rbac.RoleDoctor {
		t.Fatalf("хотели doctor без ошибки, получили %q, %v", role, err)
	}

	_, err = env.validator.Authorize(ctx, principal(receptionID, rbac.RoleReceptionist), rbac.ReviewerRoles...)
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("хотели ErrForbidden, получили %v", err)
	}
	if len(env.incidents.All()) != 0 {
		t.Error("нехватка прав не является инцидентом")
	}
}

func TestPrivilegeValidator_EmptyRequired(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if env.validator.CheckAccess(ctx, nurseID, rbac.RoleNurse, nil) {
		t.Error("пустой набор ролей не должен разрешать доступ")
	}
	if env.validator.CheckAccess(ctx, adminID, rbac.RoleAdmin, []string{}) {
		t.Error("пустой набор ролей не должен разрешать доступ admin")
	}
	if !env.validator.CheckAccess(ctx, nurseID, rbac.RoleNurse, rbac.StaffRoles) {
		t.Error("StaffRoles должен разрешать доступ медсестре")
	}
	if got := len(env.incidents.All()); got != 0 {
		t.Errorf("отказ по пустому набору не является инцидентом, получили %d", got)
	}
}

func TestPrivilegeValidator_UnknownPrincipal(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.validator.Authorize(context.Background(), principal("ghost", rbac.RoleDoctor))
	if !errors.Is(err, ErrPrivilegeMismatch) {
		t.Errorf("хотели ErrPrivilegeMismatch, получили %v", err)
	}
}

func TestPrivilegeValidator_IdentityUnavailable(t *testing.T) {
	env := newTestEnv(t)
	env.principals.Err = errors.New("connection reset")

	_, err := env.validator.Authorize(context.Background(), principal(doctorID, rbac.RoleDoctor))
	if !errors.Is(err, ErrIdentityUnavailable) {
		t.Errorf("хотели ErrIdentityUnavailable, получили %v", err)
	}
}

func TestPrivilegeValidator_Override(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_ = env.principals.Overrides().Upsert(ctx, &model.RoleOverride{
		PrincipalID: doctorID, AdditionalRole: rbac.RoleChiefStaff, CreatedBy: adminID,
	})

	role, err := env.validator.AuthorizedRole(ctx, doctorID)
	if err != nil {
		t.Fatalf("AuthorizedRole: %v", err)
	}
	if role != rbac.RoleChiefStaff {
		t.Errorf("хотели chief-staff, получили %q", role)
	}
}

func TestPrivilegeValidator_IncidentStoreFailure(t *testing.T) {
	env := newTestEnv(t)
	env.incidents.Err = errors.New("disk full")

	_, err := env.validator.Authorize(context.Background(), principal(nurseID, rbac.RoleAdmin))
	if !errors.Is(err, ErrPrivilegeMismatch) {
		t.Errorf("хотели ErrPrivilegeMismatch, получили %v", err)
	}
}

func TestPrivilegeValidator_SessionRole(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_ = env.principals.Overrides().Upsert(ctx, &model.RoleOverride{
		PrincipalID: nurseID, AdditionalRole: rbac.RoleChiefStaff, CreatedBy: adminID,
	})

	// Локальное повышение объясняет расхождение с токеном
	role, err := env.validator.SessionRole(ctx, principal(nurseID, ""), rbac.RoleNurse)
	if err != nil || role != rbac.RoleChiefStaff {
		t.Fatalf("хотели chief-staff без ошибки, получили %q, %v", role, err)
	}
	if _, err := env.validator.Authorize(ctx, principal(nurseID, role), rbac.ReviewerRoles...); err != nil {
		t.Errorf("сессия с ролью из identity store должна проходить проверку: %v", err)
	}

	// Токен старше identity store
	_, err = env.validator.SessionRole(ctx, principal(receptionID, ""), rbac.RoleDoctor)
	if !errors.Is(err, ErrPrivilegeMismatch) {
		t.Errorf("хотели ErrPrivilegeMismatch, получили %v", err)
	}
	if got := env.incidents.Count(model.IncidentPrivilegeEscalation); got != 1 {
		t.Fatalf("хотели 1 инцидент, получили %d", got)
	}
	inc := env.incidents.All()[0]
	if inc.Details["claimed_role"] != rbac.RoleDoctor || inc.Details["authoritative_role"] != rbac.RoleReceptionist {
		t.Errorf("подробности инцидента: %v", inc.Details)
	}
	if ref := inc.Details["session_ref"]; len(ref) != 16 || ref == "sess-"+receptionID {
		t.Errorf("session_ref должен быть хэшем идентификатора, получили %q", ref)
	}

	// Неизвестный принципал
	if _, err := env.validator.SessionRole(ctx, principal("ghost", ""), rbac.RoleNurse); !errors.Is(err, ErrForbidden) {
		t.Errorf("хотели ErrForbidden, получили %v", err)
	}
}
