package classification

import "testing"

func TestParse(t *testing.T) {
	for _, s := range []string{"public", "internal", "confidential", "restricted"} {
		l, err := Parse(s)
		if err != nil {
			t.Errorf("Parse(%q) вернул ошибку: %v", s, err)
		}
		if string(l) != s {
			t.Errorf("Parse(%q): получили %q", s, l)
		}
	}
	if _, err := Parse("secret"); err == nil {
		t.Error("Parse(secret): ожидалась ошибка")
	}
	if _, err := Parse(""); err == nil {
		t.Error("Parse(\"\"): ожидалась ошибка")
	}
}

func TestMax(t *testing.T) {
	tests := []struct {
		name   string
		levels []Level
		want   Level
	}{
		{"пустой набор — internal", nil, Internal},
		{"один уровень", []Level{Public}, Public},
		{"confidential выше internal", []Level{Internal, Confidential, Public}, Confidential},
		{"restricted максимален", []Level{Restricted, Confidential}, Restricted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Max(tt.levels...); got != tt.want {
				t.Errorf("Max(%v): хотели %q, получили %q", tt.levels, tt.want, got)
			}
		})
	}
}

func TestAtLeast(t *testing.T) {
	if !Restricted.AtLeast(Confidential) {
		t.Error("restricted должен быть не ниже confidential")
	}
	if Public.AtLeast(Internal) {
		t.Error("public не может быть не ниже internal")
	}
	if Level("bogus").IsValid() {
		t.Error("bogus не является допустимым уровнем")
	}
	if Default != Internal {
		t.Errorf("Default: хотели internal, получили %q", Default)
	}
}
