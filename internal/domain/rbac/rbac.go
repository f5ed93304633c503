// Пакет rbac — роли персонала центра и правила их сравнения.
// Итоговая роль = max(роль из IdP, локальное дополнение).
// Роль можно только повысить, не понизить.
package rbac

// Роли персонала.
const (
	RoleReceptionist = "receptionist"
	RoleNurse        = "nurse"
	RoleTherapist    = "therapist"
	RoleDoctor       = "doctor"
	RoleChiefStaff   = "chief-staff"
	RoleAdmin        = "admin"
)

// roleWeight — вес роли для сравнения при выборе максимальной.
var roleWeight = map[string]int{
	RoleReceptionist: 1,
	RoleNurse:        2,
	RoleTherapist:    3,
	RoleDoctor:       4,
	RoleChiefStaff:   5,
	RoleAdmin:        6,
}

// Наборы ролей, на которые опираются политики ядра.
var (
	// ClinicalRoles получают расшифрованные медицинские поля.
	ClinicalRoles = []string{RoleDoctor, RoleTherapist, RoleNurse, RoleChiefStaff}
	// ReviewerRoles одобряют экспорт и видят журналы аудита.
	ReviewerRoles = []string{RoleAdmin, RoleChiefStaff}
	// AdministrativeRoles видят медицинские поля только замаскированными.
	AdministrativeRoles = []string{RoleAdmin, RoleReceptionist}
	// StaffRoles — все роли персонала.
	StaffRoles = []string{RoleReceptionist, RoleNurse, RoleTherapist, RoleDoctor, RoleChiefStaff, RoleAdmin}
)

// EffectiveRole вычисляет итоговую роль = max(idpRole, roleOverride).
// Если roleOverride == nil, возвращает idpRole.
func EffectiveRole(idpRole string, roleOverride *string) string {
	if roleOverride == nil {
		return idpRole
	}
	return maxRole(idpRole, *roleOverride)
}

// maxRole возвращает роль с большим весом; неизвестная роль весит 0.
func maxRole(a, b string) string {
	if roleWeight[a] >= roleWeight[b] {
		return a
	}
	return b
}

// HighestRole возвращает максимальную роль из набора.
// Если набор пуст — возвращает пустую строку.
func HighestRole(roles []string) string {
	if len(roles) == 0 {
		return ""
	}
	highest := roles[0]
	for _, r := range roles[1:] {
		highest = maxRole(highest, r)
	}
	return highest
}

// MapGroupsToRole определяет роль по группам IdP.
// mapping — группа → роль; неизвестные роли в mapping игнорируются.
// Если ни одна группа не совпала — возвращает пустую строку.
func MapGroupsToRole(groups []string, mapping map[string]string) string {
	var roles []string
	for _, g := range groups {
		if role, ok := mapping[g]; ok && IsValidRole(role) {
			roles = append(roles, role)
		}
	}
	return HighestRole(roles)
}

// ResolveRole — единое правило вычисления роли по данным IdP:
// роль по группам, а если группы не сопоставлены — старшая допустимая
// realm-роль. Используется и при проверке JWT, и в identity store.
func ResolveRole(groups, realmRoles []string, mapping map[string]string) string {
	if role := MapGroupsToRole(groups, mapping); role != "" {
		return role
	}
	var valid []string
	for _, r := range realmRoles {
		if IsValidRole(r) {
			valid = append(valid, r)
		}
	}
	return HighestRole(valid)
}

// AtLeast сообщает, что role не младше min. Неизвестная роль младше любой.
func AtLeast(role, min string) bool {
	return IsValidRole(role) && roleWeight[role] >= roleWeight[min]
}

// IsValidRole проверяет, является ли строка допустимой ролью.
func IsValidRole(role string) bool {
	_, ok := roleWeight[role]
	return ok
}

// IsClinical сообщает, входит ли роль в клинический набор.
func IsClinical(role string) bool {
	return Contains(ClinicalRoles, role)
}

// IsReviewer сообщает, может ли роль рассматривать заявки и журналы.
func IsReviewer(role string) bool {
	return Contains(ReviewerRoles, role)
}

// Contains проверяет наличие роли в наборе.
func Contains(roles []string, role string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
