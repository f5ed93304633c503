// dephealth.go — интеграция с topologymetrics SDK для мониторинга зависимостей.
//
// Governance Core мониторит:
//   - PostgreSQL — SQL checker через существующий pgxpool (critical)
//   - Keycloak — HTTP checker к JWKS realm (critical, если включён)
//   - Vault — HTTP checker к /v1/sys/health (не critical: ключи читаются при старте)
//
// Метрики доступны на /metrics вместе с остальными Prometheus-метриками.
package service

import (
	"context"
	"database/sql"
	"log/slog"
	"net/url"
	"time"

	"github.com/BigKAA/topologymetrics/sdk-go/dephealth"
	_ "github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/httpcheck" // регистрация HTTP checker factory
	"github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/pgcheck"
	"github.com/prometheus/client_golang/prometheus"
)

// DephealthConfig — зависимости для мониторинга.
type DephealthConfig struct {
	// ServiceID — имя вершины графа текущего приложения
	ServiceID string
	Group     string
	// DB — *sql.DB, полученный из pgxpool через stdlib.OpenDBFromPool()
	DB *sql.DB
	// PostgresURL — URL PostgreSQL (для лейблов, не для подключения)
	PostgresURL string
	// KeycloakJWKSURL — пусто, если Keycloak не используется
	KeycloakJWKSURL string
	// VaultURL — пусто, если ключи читаются из файлов
	VaultURL      string
	CheckInterval time.Duration
	// IsEntry — добавляет лейбл isentry=yes ко всем зависимостям
	IsEntry bool
}

// DephealthService — сервис мониторинга зависимостей через topologymetrics.
type DephealthService struct {
	dh     *dephealth.DepHealth
	names  []string
	logger *slog.Logger
}

// NewDephealthService создаёт сервис мониторинга зависимостей.
// Метрики регистрируются в глобальном Prometheus registry.
func NewDephealthService(cfg DephealthConfig, logger *slog.Logger) (*DephealthService, error) {
	return newDephealthService(cfg, logger)
}

// NewDephealthServiceWithRegisterer создаёт сервис с указанным Prometheus registerer.
// Используется в тестах для изоляции метрик.
func NewDephealthServiceWithRegisterer(cfg DephealthConfig, logger *slog.Logger, registerer prometheus.Registerer) (*DephealthService, error) {
	return newDephealthService(cfg, logger, dephealth.WithRegisterer(registerer))
}

func newDephealthService(cfg DephealthConfig, logger *slog.Logger, extraOpts ...dephealth.Option) (*DephealthService, error) {
	common := func(critical bool) []dephealth.DependencyOption {
		opts := []dephealth.DependencyOption{
			dephealth.CheckInterval(cfg.CheckInterval),
			dephealth.Critical(critical),
		}
		if cfg.IsEntry {
			opts = append(opts, dephealth.WithLabel("isentry", "yes"))
		}
		return opts
	}

	names := []string{"postgresql"}
	opts := make([]dephealth.Option, 0, 4+len(extraOpts))
	opts = append(opts,
		dephealth.WithLogger(logger),
		dephealth.AddDependency("postgresql", dephealth.TypePostgres,
			pgcheck.New(pgcheck.WithDB(cfg.DB)),
			append(common(true), dephealth.FromURL(cfg.PostgresURL))...),
	)

	if cfg.KeycloakJWKSURL != "" {
		kcOpts, err := httpDependencyOptions(cfg.KeycloakJWKSURL, common(true))
		if err != nil {
			return nil, err
		}
		opts = append(opts, dephealth.HTTP("keycloak", kcOpts...))
		names = append(names, "keycloak")
	}

	if cfg.VaultURL != "" {
		vaultURL, err := url.JoinPath(cfg.VaultURL, "/v1/sys/health")
		if err != nil {
			return nil, err
		}
		vOpts, err := httpDependencyOptions(vaultURL, common(false))
		if err != nil {
			return nil, err
		}
		opts = append(opts, dephealth.HTTP("vault", vOpts...))
		names = append(names, "vault")
	}

	opts = append(opts, extraOpts...)

	dh, err := dephealth.New(cfg.ServiceID, cfg.Group, opts...)
	if err != nil {
		return nil, err
	}

	return &DephealthService{
		dh:     dh,
		names:  names,
		logger: logger.With(slog.String("component", "dephealth")),
	}, nil
}

// httpDependencyOptions разбирает URL проверки на базовый адрес и путь.
func httpDependencyOptions(rawURL string, base []dephealth.DependencyOption) ([]dephealth.DependencyOption, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	healthPath := parsed.Path
	if healthPath == "" {
		healthPath = "/"
	}
	origin := (&url.URL{Scheme: parsed.Scheme, Host: parsed.Host}).String()

	opts := append(base,
		dephealth.FromURL(origin),
		dephealth.WithHTTPHealthPath(healthPath),
	)
	if parsed.Scheme == "https" {
		opts = append(opts, dephealth.WithHTTPTLSSkipVerify(false))
	}
	return opts, nil
}

// Start запускает периодическую проверку зависимостей.
func (ds *DephealthService) Start(ctx context.Context) error {
	ds.logger.Info("Мониторинг зависимостей запущен", slog.Any("dependencies", ds.names))
	return ds.dh.Start(ctx)
}

// Stop останавливает мониторинг зависимостей.
func (ds *DephealthService) Stop() {
	ds.dh.Stop()
	ds.logger.Info("Мониторинг зависимостей остановлен")
}

// Health возвращает текущее состояние зависимостей.
// Ключ — имя зависимости, значение — true если ok.
func (ds *DephealthService) Health() map[string]bool {
	return ds.dh.Health()
}
