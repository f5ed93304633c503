package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/bigkaa/carecenter/governance-core/internal/domain/classification"
	"github.com/bigkaa/carecenter/governance-core/internal/testutil"
)

const testSeedYAML = `
classifications:
  - {table: meal_plans, column: dietary_restrictions, level: confidential, category: medical, retention_days: 365}
  - {table: patients, column: diagnosis, level: public, category: medical}
retention_policies:
  - {name: meal-plans-1y, table: meal_plans, timestamp_column: updated_at, retention_days: 365, level: confidential, auto_delete: true}
  - {name: audit-default, table: audit_log, retention_days: 90}
`

func TestLoadAndApplySeed(t *testing.T) {
	env := newTestEnv(t)
	path := filepath.Join(t.TempDir(), "governance.yaml")
	if err := os.WriteFile(path, []byte(testSeedYAML), 0o600); err != nil {
		t.Fatal(err)
	}

	seed, err := LoadSeedFile(path)
	if err != nil {
		t.Fatalf("LoadSeedFile: %v", err)
	}
	if len(seed.Classifications) != 2 || len(seed.RetentionPolicies) != 2 {
		t.Fatalf("разбор: %d классификаций, %d политик", len(seed.Classifications), len(seed.RetentionPolicies))
	}
	if seed.Classifications[0].DataCategory != "medical" {
		t.Errorf("category: %q", seed.Classifications[0].DataCategory)
	}

	policies := testutil.NewRetention()
	res, err := ApplySeed(context.Background(), seed, env.registry, policies, testLogger())
	if err != nil {
		t.Fatalf("ApplySeed: %v", err)
	}
	if res.Classifications != 1 || res.RetentionPolicies != 2 {
		t.Errorf("добавлено: %+v", res)
	}

	p, _ := policies.GetPolicy(context.Background(), "audit-default")
	if p.TimestampColumn != "created_at" || p.Level != classification.Internal {
		t.Errorf("значения по умолчанию: %+v", p)
	}

	// Повторное применение ничего не добавляет
	res, _ = ApplySeed(context.Background(), seed, env.registry, policies, testLogger())
	if res.Classifications != 0 || res.RetentionPolicies != 0 {
		t.Errorf("повторное применение: %+v", res)
	}
}

func TestLoadSeedFile_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	_ = os.WriteFile(path, []byte("classifications: [unclosed"), 0o600)

	if _, err := LoadSeedFile(path); err == nil {
		t.Error("ожидалась ошибка разбора")
	}
}
