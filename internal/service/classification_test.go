package service

import (
	"context"
	"errors"
	"testing"

	"github.com/bigkaa/carecenter/governance-core/internal/domain/classification"
	"github.com/bigkaa/carecenter/governance-core/internal/domain/model"
	"github.com/bigkaa/carecenter/governance-core/internal/domain/rbac"
)

func TestClassificationRegistry_Classify(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	e, err := env.registry.Classify(ctx, "patients", "diagnosis")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if e.Level != classification.Restricted {
		t.Errorf("patients.diagnosis: хотели restricted, получили %s", e.Level)
	}

	// Неклассифицированный столбец — internal, не public
	e, _ = env.registry.Classify(ctx, "patients", "nickname")
	if e.Level != classification.Internal {
		t.Errorf("неклассифицированный столбец: хотели internal, получили %s", e.Level)
	}
}

func TestClassificationRegistry_ClassifyTable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		table string
		want  classification.Level
	}{
		{"patients", classification.Restricted},
		{"staff", classification.Confidential},
		{"rooms", classification.Public},
		{"unknown_table", classification.Internal},
	}
	for _, tt := range tests {
		t.Run(tt.table, func(t *testing.T) {
			got, err := env.registry.ClassifyTable(ctx, tt.table)
			if err != nil {
				t.Fatalf("ClassifyTable: %v", err)
			}
			if got != tt.want {
				t.Errorf("хотели %s, получили %s", tt.want, got)
			}
		})
	}
}

func TestClassificationRegistry_Downgrade(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := principal(adminID, rbac.RoleAdmin)

	entry := &model.ClassificationEntry{Table: "patients", Column: "diagnosis", Level: classification.Internal, DataCategory: "medical"}
	err := env.registry.Upsert(ctx, admin, entry, false)
	if !errors.Is(err, ErrClassificationDowngrade) {
		t.Fatalf("хотели ErrClassificationDowngrade, получили %v", err)
	}
	e, _ := env.registry.Classify(ctx, "patients", "diagnosis")
	if e.Level != classification.Restricted {
		t.Errorf("уровень не должен измениться, получили %s", e.Level)
	}

	entry = &model.ClassificationEntry{Table: "patients", Column: "diagnosis", Level: classification.Confidential, DataCategory: "medical"}
	if err := env.registry.Upsert(ctx, admin, entry, true); err != nil {
		t.Fatalf("явное понижение: %v", err)
	}
	e, _ = env.registry.Classify(ctx, "patients", "diagnosis")
	if e.Level != classification.Confidential || e.UpdatedBy != adminID {
		t.Errorf("хотели confidential от admin-1, получили %s от %s", e.Level, e.UpdatedBy)
	}
}

func TestClassificationRegistry_UpsertRequiresReviewer(t *testing.T) {
	env := newTestEnv(t)
	entry := &model.ClassificationEntry{Table: "staff", Column: "salary", Level: classification.Restricted}

	err := env.registry.Upsert(context.Background(), principal(doctorID, rbac.RoleDoctor), entry, false)
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("хотели ErrForbidden, получили %v", err)
	}
}

func TestClassificationRegistry_CacheInvalidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, _ = env.registry.ClassifyTable(ctx, "staff")
	_, _ = env.registry.ClassifyTable(ctx, "staff")
	if env.classes.Reads != 1 {
		t.Fatalf("повторное чтение должно идти из кэша, обращений %d", env.classes.Reads)
	}

	entry := &model.ClassificationEntry{Table: "staff", Column: "salary", Level: classification.Restricted}
	if err := env.registry.Upsert(ctx, principal(chiefID, rbac.RoleChiefStaff), entry, false); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	got, _ := env.registry.ClassifyTable(ctx, "staff")
	if got != classification.Restricted {
		t.Errorf("после изменения хотели restricted, получили %s", got)
	}
}

func TestClassificationRegistry_Seed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	n, err := env.registry.Seed(ctx, []*model.ClassificationEntry{
		{Table: "patients", Column: "diagnosis", Level: classification.Public},
		{Table: "meal_plans", Column: "dietary_restrictions", Level: classification.Confidential},
	})
	if err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if n != 1 {
		t.Errorf("хотели 1 новую запись, получили %d", n)
	}
	e, _ := env.registry.Classify(ctx, "patients", "diagnosis")
	if e.Level != classification.Restricted {
		t.Errorf("Seed не должен понижать существующую запись, получили %s", e.Level)
	}
}

func TestClassificationRegistry_Validation(t *testing.T) {
	env := newTestEnv(t)
	admin := principal(adminID, rbac.RoleAdmin)

	bad := []*model.ClassificationEntry{
		{Table: "", Column: "x", Level: classification.Internal},
		{Table: "t", Column: "x", Level: "secret"},
		{Table: "t", Column: "x", Level: classification.Internal, RetentionDays: -1},
	}
	for i, e := range bad {
		if err := env.registry.Upsert(context.Background(), admin, e, false); !errors.Is(err, ErrValidation) {
			t.Errorf("запись %d: хотели ErrValidation, получили %v", i, err)
		}
	}
}
