// Пакет fieldaccess — ролевая политика выдачи чувствительных полей.
//
// Таблица политики статична: поле относится к классу (medical, personal,
// administrative), а пара (класс, роль) определяет видимость:
// открытый текст, маска "[restricted]" или пропуск поля.
// Resolve чиста относительно роли: вызывающий передаёт уже
// проверенную роль и никакое состояние сессии не читается.
package fieldaccess

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/carecenter/governance-core/internal/domain/classification"
	"github.com/bigkaa/carecenter/governance-core/internal/domain/rbac"
)

// MaskedPlaceholder — значение поля для ролей без права чтения.
const MaskedPlaceholder = "[restricted]"

// Visibility — результат применения политики к полю.
type Visibility string

const (
	Plaintext Visibility = "plaintext"
	Masked    Visibility = "masked"
	Omitted   Visibility = "omitted"
)

// FieldClass — класс чувствительности поля.
type FieldClass string

const (
	ClassMedical        FieldClass = "medical"
	ClassPersonal       FieldClass = "personal"
	ClassAdministrative FieldClass = "administrative"
)

// fieldResolutionsTotal — количество разрешений полей по видимости.
var fieldResolutionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "gm_field_resolutions_total",
		Help: "Количество разрешений чувствительных полей по итоговой видимости",
	},
	[]string{"visibility"},
)

// fieldClasses — явный перечень управляемых полей (table.column).
// Поля вне перечня считаются медицинскими.
var fieldClasses = map[string]FieldClass{
	"patients.diagnosis":          ClassMedical,
	"patients.medical_history":    ClassMedical,
	"patients.current_medication": ClassMedical,
	"patients.allergies":          ClassMedical,
	"patients.treatment_plan":     ClassMedical,
	"patients.psych_evaluation":   ClassMedical,
	"appointments.clinical_notes": ClassMedical,
	"therapy_sessions.notes":      ClassMedical,

	"patients.phone":             ClassPersonal,
	"patients.address":           ClassPersonal,
	"patients.emergency_contact": ClassPersonal,
	"patients.national_id":       ClassPersonal,
	"staff.phone":                ClassPersonal,
	"staff.address":              ClassPersonal,
	"users.email":                ClassPersonal,

	"patients.room_number":    ClassAdministrative,
	"patients.admission_date": ClassAdministrative,
	"staff.department":        ClassAdministrative,
}

// classVisibility — (класс, роль) → видимость. Отсутствие пары — пропуск.
// Административные роли видят медицинские поля только замаскированными,
// регистратура видит маску и вместо персональных данных.
var classVisibility = map[FieldClass]map[string]Visibility{
	ClassMedical:        visibilityRow(rbac.ClinicalRoles, rbac.AdministrativeRoles),
	ClassPersonal:       visibilityRow(append([]string{rbac.RoleAdmin}, rbac.ClinicalRoles...), []string{rbac.RoleReceptionist}),
	ClassAdministrative: visibilityRow(rbac.StaffRoles, nil),
}

// visibilityRow строит строку таблицы политики для класса.
func visibilityRow(plaintext, masked []string) map[string]Visibility {
	out := make(map[string]Visibility, len(plaintext)+len(masked))
	for _, r := range masked {
		out[r] = Masked
	}
	for _, r := range plaintext {
		out[r] = Plaintext
	}
	return out
}

// Decrypter — расшифровка значения поля (реализуется fieldcrypto.Engine).
type Decrypter interface {
	Decrypt(ciphertext string) (string, error)
}

// Resolution — результат разрешения одного поля.
type Resolution struct {
	Visibility Visibility
	// Value — открытый текст или маска; пусто при Omitted
	Value string
}

// Record — запись с зашифрованными полями: имя поля → шифротекст.
type Record map[string]string

// ResolvedRecord — запись после применения политики.
// Пропущенные поля отсутствуют в map.
type ResolvedRecord map[string]string

// Policy применяет таблицу политики и расшифровывает разрешённые поля.
type Policy struct {
	decrypter Decrypter
	logger    *slog.Logger
}

// New создаёт Policy поверх Decrypter.
func New(decrypter Decrypter, logger *slog.Logger) *Policy {
	return &Policy{
		decrypter: decrypter,
		logger:    logger.With(slog.String("component", "field_access")),
	}
}

// ClassOf возвращает класс поля; неизвестное поле — медицинское.
func ClassOf(field string) FieldClass {
	if c, ok := fieldClasses[field]; ok {
		return c
	}
	return ClassMedical
}

// VisibilityFor возвращает видимость поля для роли без расшифровки.
func VisibilityFor(role, field string) Visibility {
	return visibility(ClassOf(field), role)
}

// VisibilityForClassification сопоставляет уровень классификации классу
// поля: restricted → medical, confidential → personal, остальные → administrative.
func VisibilityForClassification(role string, level classification.Level) Visibility {
	switch level {
	case classification.Restricted:
		return visibility(ClassMedical, role)
	case classification.Confidential:
		return visibility(ClassPersonal, role)
	default:
		return visibility(ClassAdministrative, role)
	}
}

func visibility(class FieldClass, role string) Visibility {
	if v, ok := classVisibility[class][role]; ok {
		return v
	}
	return Omitted
}

// Resolve разрешает одно поле. При Plaintext расшифровывает значение;
// ошибка расшифровки (fieldcrypto.ErrDecryption) возвращается вызывающему.
func (p *Policy) Resolve(role, field, ciphertext string) (Resolution, error) {
	v := VisibilityFor(role, field)
	switch v {
	case Plaintext:
		plain, err := p.decrypter.Decrypt(ciphertext)
		if err != nil {
			return Resolution{Visibility: Omitted}, err
		}
		fieldResolutionsTotal.WithLabelValues(string(Plaintext)).Inc()
		return Resolution{Visibility: Plaintext, Value: plain}, nil
	case Masked:
		fieldResolutionsTotal.WithLabelValues(string(Masked)).Inc()
		return Resolution{Visibility: Masked, Value: MaskedPlaceholder}, nil
	default:
		fieldResolutionsTotal.WithLabelValues(string(Omitted)).Inc()
		return Resolution{Visibility: Omitted}, nil
	}
}

// ResolveBatch применяет Resolve к каждой записи с сохранением порядка.
// Нечитаемое поле заменяется маской с предупреждением; пакет целиком не падает.
func (p *Policy) ResolveBatch(role string, records []Record) []ResolvedRecord {
	out := make([]ResolvedRecord, len(records))
	for i, rec := range records {
		resolved := make(ResolvedRecord, len(rec))
		for field, ct := range rec {
			res, err := p.Resolve(role, field, ct)
			if err != nil {
				p.logger.Warn("Поле не удалось расшифровать, выдана маска",
					slog.Int("record_index", i),
					slog.String("field", field),
					slog.String("error", err.Error()),
				)
				fieldResolutionsTotal.WithLabelValues(string(Masked)).Inc()
				resolved[field] = MaskedPlaceholder
				continue
			}
			if res.Visibility == Omitted {
				continue
			}
			resolved[field] = res.Value
		}
		out[i] = resolved
	}
	return out
}
