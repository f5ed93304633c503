// Пакет server — HTTP-сервер Governance Core с graceful shutdown.
// Без TLS — HTTP внутри кластера, TLS termination на API Gateway.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/carecenter/governance-core/internal/api/errors"
	"github.com/bigkaa/carecenter/governance-core/internal/api/generated"
	"github.com/bigkaa/carecenter/governance-core/internal/config"
)

// Guards — middleware аутентификации и проверки запросов.
type Guards struct {
	// JWT — проверка токена Keycloak (создание сессии)
	JWT func(http.Handler) http.Handler
	// Session — проверка сессии браузера (все остальные маршруты API)
	Session func(http.Handler) http.Handler
	// Validator — проверка запроса по документу OpenAPI (может быть nil)
	Validator func(http.Handler) http.Handler
}

// Пути, доступные без сессии и токена.
// Health и metrics проверяются Kubernetes напрямую, без API Gateway.
var publicPrefixes = []string{"/health/", "/metrics"}

// sessionsPath — создание сессии, единственный маршрут под JWT.
const sessionsPath = "/api/v1/sessions"

// Server — HTTP-сервер Governance Core.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт HTTP-сервер с маршрутами и middleware.
// handler — реализация generated.ServerInterface (APIHandler).
// middlewares применяются ко всем маршрутам в порядке переданного среза.
func New(cfg *config.Config, logger *slog.Logger, handler generated.ServerInterface, guards Guards, middlewares ...func(http.Handler) http.Handler) *Server {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      NewRouter(handler, guards, middlewares...),
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// NewRouter регистрирует маршруты API из документа OpenAPI.
// Порядок: общие middleware, аутентификация по маршруту, проверка схемы.
func NewRouter(handler generated.ServerInterface, guards Guards, middlewares ...func(http.Handler) http.Handler) chi.Router {
	router := chi.NewRouter()
	for _, mw := range middlewares {
		router.Use(mw)
	}
	router.Use(authByRoute(guards))
	if guards.Validator != nil {
		router.Use(guards.Validator)
	}

	// Все маршруты через oapi-codegen chi-server; ошибки разбора
	// параметров отдаются в едином формате ошибок API.
	generated.HandlerWithOptions(handler, generated.ChiServerOptions{
		BaseRouter: router,
		ErrorHandlerFunc: func(w http.ResponseWriter, _ *http.Request, err error) {
			apierrors.ValidationError(w, "Некорректный параметр запроса: "+err.Error())
		},
	})

	return router
}

// authByRoute выбирает проверку для запроса: публичные пути проходят без
// проверки, POST /api/v1/sessions требует JWT, остальные пути — сессию.
func authByRoute(guards Guards) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		withJWT := guards.JWT(next)
		withSession := guards.Session(next)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, prefix := range publicPrefixes {
				if strings.HasPrefix(r.URL.Path, prefix) {
					next.ServeHTTP(w, r)
					return
				}
			}
			if r.Method == http.MethodPost && r.URL.Path == sessionsPath {
				withJWT.ServeHTTP(w, r)
				return
			}
			withSession.ServeHTTP(w, r)
		})
	}
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown.
func (s *Server) Run() error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
