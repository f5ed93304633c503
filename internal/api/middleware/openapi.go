// openapi.go — проверка входящих запросов по документу OpenAPI.
// Параметры и тела запросов сверяются со схемой до вызова обработчика.
package middleware

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/legacy"

	apierrors "github.com/bigkaa/carecenter/governance-core/internal/api/errors"
)

// RequestValidator — middleware проверки запросов по документу OpenAPI.
// Схемы безопасности документа не исполняются: аутентификацию выполняют
// JWTAuth и SessionAuth.
type RequestValidator struct {
	router routers.Router
	logger *slog.Logger
}

// NewRequestValidator создаёт middleware проверки по документу doc.
// Адреса servers из документа не сверяются, маршрут ищется только по пути.
func NewRequestValidator(doc *openapi3.T, logger *slog.Logger) (*RequestValidator, error) {
	doc.Servers = nil
	router, err := legacy.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("маршрутизатор OpenAPI: %w", err)
	}
	return &RequestValidator{
		router: router,
		logger: logger.With(slog.String("component", "request_validator")),
	}, nil
}

// Middleware возвращает http middleware. Запросы к маршрутам, которых нет
// в документе, передаются дальше без проверки (404/405 отдаёт chi).
func (v *RequestValidator) Middleware() func(http.Handler) http.Handler {
	options := &openapi3filter.Options{
		AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route, pathParams, err := v.router.FindRoute(r)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			input := &openapi3filter.RequestValidationInput{
				Request:    r,
				PathParams: pathParams,
				Route:      route,
				Options:    options,
			}
			if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
				v.logger.Debug("Запрос не соответствует схеме API",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				apierrors.ValidationError(w, "Запрос не соответствует схеме API: "+err.Error())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
