// Пакет errors — ответы с ошибками Governance Core.
// Единый формат: {"error": {"code": "...", "message": "..."}}.
// Сообщения не раскрывают внутренних подробностей: ни состояния сессии,
// ни авторитетной роли, ни данных инцидентов.
package errors

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// Коды ошибок API.
const (
	CodeValidationError    = "VALIDATION_ERROR"
	CodeNotFound           = "NOT_FOUND"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeSessionInvalid     = "SESSION_INVALID"
	CodeForbidden          = "FORBIDDEN"
	CodeConflict           = "CONFLICT"
	CodeRateLimited        = "RATE_LIMITED"
	CodePersistenceTimeout = "PERSISTENCE_TIMEOUT"
	CodeInternalError      = "INTERNAL_ERROR"
)

// RetryAfterSeconds — значение Retry-After для временных отказов хранилища.
const RetryAfterSeconds = 5

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteError записывает ответ ошибки в едином формате.
func WriteError(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(errorBody{
		Error: errorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// ValidationError — 400 некорректные входные данные.
func ValidationError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, CodeValidationError, message)
}

// NotFound — 404 ресурс не найден.
func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, CodeNotFound, message)
}

// Unauthorized — 401 требуется аутентификация.
func Unauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, CodeUnauthorized, message)
}

// SessionInvalid — 401 сессия отсутствует, просрочена или отозвана.
// Причина клиенту не сообщается.
func SessionInvalid(w http.ResponseWriter) {
	WriteError(w, http.StatusUnauthorized, CodeSessionInvalid, "Сессия недействительна")
}

// Forbidden — 403 недостаточно прав.
func Forbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, CodeForbidden, message)
}

// Conflict — 409 конфликт состояния.
func Conflict(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusConflict, CodeConflict, message)
}

// RateLimited — 429 превышена частота запросов.
func RateLimited(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusTooManyRequests, CodeRateLimited, message)
}

// PersistenceTimeout — 503 хранилище не ответило вовремя.
func PersistenceTimeout(w http.ResponseWriter) {
	w.Header().Set("Retry-After", strconv.Itoa(RetryAfterSeconds))
	WriteError(w, http.StatusServiceUnavailable, CodePersistenceTimeout, "Хранилище временно недоступно, повторите запрос позже")
}

// InternalError — 500 внутренняя ошибка.
func InternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, CodeInternalError, message)
}
