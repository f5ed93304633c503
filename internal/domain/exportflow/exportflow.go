// Пакет exportflow — конечный автомат статусов заявки на экспорт.
//
// Допустимые переходы:
//   - pending → approved  (approve)
//   - pending → rejected  (reject)
//   - pending → expired   (now > expiresAt)
//
// approved, rejected и expired — конечные статусы, переходы из них запрещены.
package exportflow

import (
	"fmt"
	"time"
)

// Status — статус заявки на экспорт.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusExpired  Status = "expired"
)

// Коды ошибок перехода.
const (
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeNotPending        = "NOT_PENDING"
)

// validTransitions — матрица допустимых переходов.
var validTransitions = map[Status]map[Status]bool{
	StatusPending:  {StatusApproved: true, StatusRejected: true, StatusExpired: true},
	StatusApproved: {},
	StatusRejected: {},
	StatusExpired:  {},
}

// TransitionError — ошибка перехода между статусами.
type TransitionError struct {
	Code    string
	From    Status
	To      Status
	Message string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Transition проверяет допустимость перехода from → to.
func Transition(from, to Status) error {
	if !IsValid(to) {
		return &TransitionError{
			Code:    CodeInvalidTransition,
			From:    from,
			To:      to,
			Message: fmt.Sprintf("недопустимый целевой статус: %q", to),
		}
	}
	if from != StatusPending {
		return &TransitionError{
			Code:    CodeNotPending,
			From:    from,
			To:      to,
			Message: fmt.Sprintf("заявка уже в конечном статусе %s", from),
		}
	}
	if !validTransitions[from][to] {
		return &TransitionError{
			Code:    CodeInvalidTransition,
			From:    from,
			To:      to,
			Message: fmt.Sprintf("переход %s → %s недопустим", from, to),
		}
	}
	return nil
}

// Effective возвращает статус с учётом ленивого истечения:
// pending после expiresAt считается expired независимо от фоновой очистки.
func Effective(status Status, expiresAt, now time.Time) Status {
	if status == StatusPending && now.After(expiresAt) {
		return StatusExpired
	}
	return status
}

// IsTerminal сообщает, является ли статус конечным.
func IsTerminal(s Status) bool {
	return s == StatusApproved || s == StatusRejected || s == StatusExpired
}

// IsValid проверяет допустимость статуса.
func IsValid(s Status) bool {
	_, ok := validTransitions[s]
	return ok
}

// ParseStatus преобразует строку в Status.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !IsValid(st) {
		return "", fmt.Errorf("недопустимый статус: %q, допустимые: pending, approved, rejected, expired", s)
	}
	return st, nil
}
