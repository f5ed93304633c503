package service

import (
	"context"
	"errors"
	"testing"

	"github.com/bigkaa/carecenter/governance-core/internal/domain/model"
	"github.com/bigkaa/carecenter/governance-core/internal/domain/rbac"
)

func TestIncidentLog_Record(t *testing.T) {
	env := newTestEnv(t)
	inc := &model.Incident{
		Type:        model.IncidentPrivilegeEscalation,
		PrincipalID: nurseID,
		Severity:    model.SeverityCritical,
	}
	if err := env.log.Record(context.Background(), inc); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if inc.ID == "" || !inc.DetectedAt.Equal(env.clock.Now()) {
		t.Errorf("ID и DetectedAt должны быть заполнены: %+v", inc)
	}
}

func TestIncidentLog_RecordFailure(t *testing.T) {
	env := newTestEnv(t)
	env.incidents.Err = errors.New("read-only transaction")

	err := env.log.Record(context.Background(), &model.Incident{Type: model.IncidentSessionHijacking, Severity: model.SeverityHigh})
	if err == nil {
		t.Error("ошибка хранилища должна вернуться вызывающему")
	}
}

func TestIncidentLog_List(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.validator.CheckAccess(ctx, nurseID, rbac.RoleAdmin, nil)

	if _, err := env.log.List(ctx, rbac.RoleDoctor, model.IncidentFilter{}); !errors.Is(err, ErrForbidden) {
		t.Errorf("хотели ErrForbidden, получили %v", err)
	}

	list, err := env.log.List(ctx, rbac.RoleAdmin, model.IncidentFilter{Type: model.IncidentPrivilegeEscalation})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 || list[0].Details["claimed_role"] != rbac.RoleAdmin {
		t.Errorf("админ видит полные подробности: %+v", list)
	}
}
