// errors.go — ошибки бизнес-логики сервисного слоя.
package service

import "errors"

var (
	// ErrNotFound — ресурс не найден или недоступен вызывающему.
	ErrNotFound = errors.New("ресурс не найден")
	// ErrValidation — ошибка валидации входных данных.
	ErrValidation = errors.New("ошибка валидации")
	// ErrForbidden — роль не входит в набор, требуемый операцией.
	ErrForbidden = errors.New("недостаточно прав")
	// ErrSessionInvalid — сессия отсутствует, инвалидирована или отпечаток не совпал.
	ErrSessionInvalid = errors.New("сессия недействительна")
	// ErrPrivilegeMismatch — роль сессии расходится с авторитетной ролью.
	ErrPrivilegeMismatch = errors.New("расхождение ролей")
	// ErrNotPending — заявка уже не в статусе pending (в том числе истекла).
	ErrNotPending = errors.New("заявка не ожидает решения")
	// ErrSelfApprovalDenied — автор заявки не может её рассматривать.
	ErrSelfApprovalDenied = errors.New("рассмотрение собственной заявки запрещено")
	// ErrPersistenceTimeout — хранилище не ответило вовремя; операцию можно повторить.
	ErrPersistenceTimeout = errors.New("таймаут обращения к хранилищу")
	// ErrIdentityUnavailable — хранилище ролей недоступно.
	ErrIdentityUnavailable = errors.New("хранилище ролей недоступно")
	// ErrClassificationDowngrade — понижение классификации без явного разрешения.
	ErrClassificationDowngrade = errors.New("понижение классификации требует явного разрешения")
	// ErrNotApproved — заявка не одобрена.
	ErrNotApproved = errors.New("заявка не одобрена")
	// ErrAlreadyExecuted — одобренный экспорт уже выполнен.
	ErrAlreadyExecuted = errors.New("экспорт уже выполнен")
	// ErrExportExpired — срок действия одобренной заявки истёк.
	ErrExportExpired = errors.New("срок действия заявки истёк")
	// ErrRateLimited — превышена частота заявок на экспорт.
	ErrRateLimited = errors.New("превышена частота запросов")
)
