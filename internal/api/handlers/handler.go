// handler.go — основной обработчик API, реализующий generated.ServerInterface.
// Объединяет доменные обработчики и делегирует запросы в сервисный слой.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	apierrors "github.com/bigkaa/carecenter/governance-core/internal/api/errors"
	"github.com/bigkaa/carecenter/governance-core/internal/api/generated"
	"github.com/bigkaa/carecenter/governance-core/internal/api/middleware"
	"github.com/bigkaa/carecenter/governance-core/internal/domain/model"
	"github.com/bigkaa/carecenter/governance-core/internal/fieldaccess"
	"github.com/bigkaa/carecenter/governance-core/internal/fieldcrypto"
	"github.com/bigkaa/carecenter/governance-core/internal/service"
)

// maxBodyBytes — предельный размер тела запроса.
const maxBodyBytes = 1 << 20

// Services — сервисы ядра, используемые обработчиками.
type Services struct {
	Guard     *service.SessionGuard
	Validator *service.PrivilegeValidator
	Incidents *service.IncidentLog
	Registry  *service.ClassificationRegistry
	Workflow  *service.ExportWorkflow
	Monitor   *service.ActivityMonitor
	Retention *service.RetentionEnforcer
	Policy    *fieldaccess.Policy
	Engine    *fieldcrypto.Engine
}

// SessionCookieConfig — параметры cookie сессии.
type SessionCookieConfig struct {
	Secure      bool
	IdleTimeout time.Duration
}

// APIHandler — основной обработчик API Governance Core.
// Реализует generated.ServerInterface, делегируя запросы в сервисный слой.
type APIHandler struct {
	health *HealthHandler
	svc    Services
	cookie SessionCookieConfig
	logger *slog.Logger
}

var _ generated.ServerInterface = (*APIHandler)(nil)

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(health *HealthHandler, svc Services, cookie SessionCookieConfig, logger *slog.Logger) *APIHandler {
	return &APIHandler{
		health: health,
		svc:    svc,
		cookie: cookie,
		logger: logger.With(slog.String("component", "api_handler")),
	}
}

// HealthLive — проверка живости (делегируется в HealthHandler).
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — проверка готовности (делегируется в HealthHandler).
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics — Prometheus метрики (делегируется в HealthHandler).
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// decodeJSON читает тело запроса в dst. Неизвестные поля отклоняются.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			apierrors.ValidationError(w, "Пустое тело запроса")
			return false
		}
		apierrors.ValidationError(w, fmt.Sprintf("Некорректное тело запроса: %v", err))
		return false
	}
	return true
}

// principal возвращает принципала текущей сессии.
// Отсутствие принципала означает ошибку конфигурации маршрутов.
func (h *APIHandler) principal(w http.ResponseWriter, r *http.Request) (model.Principal, bool) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		h.logger.Error("Маршрут без проверки сессии", slog.String("path", r.URL.Path))
		apierrors.SessionInvalid(w)
		return model.Principal{}, false
	}
	return p, true
}

// paginationDefaults нормализует параметры пагинации.
func paginationDefaults(limit *generated.Limit, offset *generated.Offset) (int, int) {
	l := 100
	o := 0

	if limit != nil {
		l = min(max(*limit, 1), 1000)
	}
	if offset != nil {
		o = max(*offset, 0)
	}
	return l, o
}

// deref возвращает значение по указателю или нулевое значение типа.
func deref[T any](p *T) T {
	if p == nil {
		var zero T
		return zero
	}
	return *p
}

// handleServiceError преобразует ошибку сервиса в HTTP-ответ.
// Отказы безопасности получают общий текст без подробностей.
func (h *APIHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error, op string) {
	switch {
	case errors.Is(err, service.ErrPersistenceTimeout):
		apierrors.PersistenceTimeout(w)
	case errors.Is(err, service.ErrSessionInvalid):
		apierrors.SessionInvalid(w)
	case errors.Is(err, service.ErrPrivilegeMismatch),
		errors.Is(err, service.ErrForbidden),
		errors.Is(err, service.ErrIdentityUnavailable):
		apierrors.Forbidden(w, "Недостаточно прав")
	case errors.Is(err, service.ErrSelfApprovalDenied):
		apierrors.Forbidden(w, "Рассмотрение собственной заявки запрещено")
	case errors.Is(err, service.ErrValidation):
		apierrors.ValidationError(w, err.Error())
	case errors.Is(err, service.ErrNotFound):
		apierrors.NotFound(w, "Ресурс не найден")
	case errors.Is(err, service.ErrNotPending),
		errors.Is(err, service.ErrNotApproved),
		errors.Is(err, service.ErrAlreadyExecuted),
		errors.Is(err, service.ErrExportExpired),
		errors.Is(err, service.ErrClassificationDowngrade):
		apierrors.Conflict(w, err.Error())
	case errors.Is(err, service.ErrRateLimited):
		apierrors.RateLimited(w, "Превышена частота заявок на экспорт")
	default:
		h.logger.Error("Ошибка обработки запроса",
			slog.String("operation", op),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Внутренняя ошибка сервера")
		return
	}

	h.logger.Debug("Запрос отклонён",
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)
}
