package rbac

import "testing"

func strPtr(s string) *string { return &s }

func TestEffectiveRole(t *testing.T) {
	tests := []struct {
		name         string
		idpRole      string
		roleOverride *string
		want         string
	}{
		{
			name:    "nurse из IdP, без override",
			idpRole: RoleNurse,
			want:    RoleNurse,
		},
		{
			name:         "nurse из IdP, override до doctor — повышение",
			idpRole:      RoleNurse,
			roleOverride: strPtr(RoleDoctor),
			want:         RoleDoctor,
		},
		{
			name:         "admin из IdP, override receptionist — игнорируется",
			idpRole:      RoleAdmin,
			roleOverride: strPtr(RoleReceptionist),
			want:         RoleAdmin,
		},
		{
			name:         "пустая роль из IdP, override chief-staff",
			idpRole:      "",
			roleOverride: strPtr(RoleChiefStaff),
			want:         RoleChiefStaff,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EffectiveRole(tt.idpRole, tt.roleOverride); got != tt.want {
				t.Errorf("EffectiveRole(%q): хотели %q, получили %q", tt.idpRole, tt.want, got)
			}
		})
	}
}

func TestHighestRole(t *testing.T) {
	if got := HighestRole(nil); got != "" {
		t.Errorf("HighestRole(nil): хотели пустую строку, получили %q", got)
	}
	got := HighestRole([]string{RoleReceptionist, RoleTherapist, RoleNurse})
	if got != RoleTherapist {
		t.Errorf("HighestRole: хотели %q, получили %q", RoleTherapist, got)
	}
}

func TestMapGroupsToRole(t *testing.T) {
	mapping := map[string]string{
		"rehab-nurses":  RoleNurse,
		"rehab-doctors": RoleDoctor,
		"rehab-bogus":   "superuser",
	}

	tests := []struct {
		name   string
		groups []string
		want   string
	}{
		{"одна группа", []string{"rehab-nurses"}, RoleNurse},
		{"несколько групп — максимальная роль", []string{"rehab-nurses", "rehab-doctors"}, RoleDoctor},
		{"неизвестная группа", []string{"kitchen"}, ""},
		{"недопустимая роль в маппинге", []string{"rehab-bogus"}, ""},
		{"без групп", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MapGroupsToRole(tt.groups, mapping); got != tt.want {
				t.Errorf("MapGroupsToRole(%v): хотели %q, получили %q", tt.groups, tt.want, got)
			}
		})
	}
}

func TestRoleSets(t *testing.T) {
	for _, r := range []string{RoleDoctor, RoleTherapist, RoleNurse, RoleChiefStaff} {
		if !IsClinical(r) {
			t.Errorf("%q должна входить в клинический набор", r)
		}
	}
	for _, r := range []string{RoleAdmin, RoleReceptionist, "", "guest"} {
		if IsClinical(r) {
			t.Errorf("%q не должна входить в клинический набор", r)
		}
	}
	if !IsReviewer(RoleAdmin) || !IsReviewer(RoleChiefStaff) {
		t.Error("admin и chief-staff должны быть рецензентами")
	}
	if IsReviewer(RoleDoctor) {
		t.Error("doctor не должен быть рецензентом")
	}
	if IsValidRole("guest") {
		t.Error("guest не является допустимой ролью")
	}
}

func TestResolveRole(t *testing.T) {
	mapping := map[string]string{"rehab-nurses": RoleNurse}

	tests := []struct {
		name   string
		groups []string
		realm  []string
		want   string
	}{
		{"роль по группе", []string{"rehab-nurses"}, []string{RoleAdmin}, RoleNurse},
		{"откат на realm-роли", []string{"kitchen"}, []string{"offline_access", RoleDoctor, RoleTherapist}, RoleDoctor},
		{"нет ни групп, ни ролей", nil, []string{"offline_access"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveRole(tt.groups, tt.realm, mapping); got != tt.want {
				t.Errorf("ResolveRole: хотели %q, получили %q", tt.want, got)
			}
		})
	}
}

func TestAtLeast(t *testing.T) {
	if !AtLeast(RoleChiefStaff, RoleNurse) {
		t.Error("chief-staff не младше nurse")
	}
	if !AtLeast(RoleNurse, RoleNurse) {
		t.Error("роль не младше самой себя")
	}
	if AtLeast(RoleReceptionist, RoleNurse) {
		t.Error("receptionist младше nurse")
	}
	if AtLeast("", "") || AtLeast("guest", "") {
		t.Error("недопустимая роль не проходит сравнение")
	}
}
