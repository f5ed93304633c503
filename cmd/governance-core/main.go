// Точка входа Governance Core — ядра доверия и управления данными реабилитационного центра.
// Загружает конфигурацию, применяет миграции, подключается к PostgreSQL,
// загружает ключи шифрования полей, создаёт хранилище сессий и identity store,
// сервисный слой и API handlers, запускает topologymetrics и HTTP-сервер
// с JWT/session middleware и graceful shutdown.
package main

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"github.com/bigkaa/carecenter/governance-core/internal/api/generated"
	"github.com/bigkaa/carecenter/governance-core/internal/api/handlers"
	"github.com/bigkaa/carecenter/governance-core/internal/api/middleware"
	"github.com/bigkaa/carecenter/governance-core/internal/archive"
	"github.com/bigkaa/carecenter/governance-core/internal/config"
	"github.com/bigkaa/carecenter/governance-core/internal/database"
	"github.com/bigkaa/carecenter/governance-core/internal/fieldaccess"
	"github.com/bigkaa/carecenter/governance-core/internal/fieldcrypto"
	"github.com/bigkaa/carecenter/governance-core/internal/keycloak"
	"github.com/bigkaa/carecenter/governance-core/internal/keysource"
	"github.com/bigkaa/carecenter/governance-core/internal/repository"
	"github.com/bigkaa/carecenter/governance-core/internal/server"
	"github.com/bigkaa/carecenter/governance-core/internal/service"
)

// keyLoader — источник ключевой пары шифрования полей.
type keyLoader interface {
	Load(ctx context.Context) (*fieldcrypto.KeyPair, error)
}

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("Governance Core запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("session_store", cfg.SessionStore),
		slog.String("identity_source", cfg.IdentitySource),
		slog.String("key_source", cfg.KeySource),
	)

	// 3. Применение миграций БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Подключение к PostgreSQL (pgxpool)
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 4.1 Адаптер pgxpool → *sql.DB для topologymetrics
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	// 5. Ключи шифрования полей (файлы или Vault)
	var (
		keys     keyLoader
		vaultURL string
	)
	switch cfg.KeySource {
	case "vault":
		vaultClient, vaultErr := keysource.NewVaultClient()
		if vaultErr != nil {
			logger.Error("Ошибка создания клиента Vault", slog.String("error", vaultErr.Error()))
			os.Exit(1)
		}
		vaultSrc := keysource.NewVaultSource(vaultClient, cfg.VaultMount, cfg.VaultKeyPath)
		vaultURL = vaultSrc.Address()
		keys = vaultSrc
	default:
		keys = keysource.NewFileSource(cfg.PublicKeyPath, cfg.PrivateKeyPath)
	}

	loadCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	keyPair, err := keys.Load(loadCtx)
	cancel()
	if err != nil {
		logger.Error("Ошибка загрузки ключей шифрования полей", slog.String("error", err.Error()))
		os.Exit(1)
	}
	engine, err := fieldcrypto.New(keyPair)
	if err != nil {
		logger.Error("Ошибка инициализации CryptoEngine", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Ключи шифрования полей загружены", slog.String("source", cfg.KeySource))

	// 6. Repositories
	incidentRepo := repository.NewIncidentRepository(pool)
	principalRepo := repository.NewPrincipalRepository(pool)
	overrideRepo := repository.NewRoleOverrideRepository(pool)
	classificationRepo := repository.NewClassificationRepository(pool)
	retentionRepo := repository.NewRetentionRepository(pool)
	exportRepo := repository.NewExportRequestRepository(pool, cfg.PersistenceTimeout)
	exportSource := repository.NewExportSource(pool)
	activityRepo := repository.NewActivityRepository(pool)

	// 6.1 Хранилище сессий (PostgreSQL или Redis)
	var (
		sessionRepo    repository.SessionRepository
		sessionChecker handlers.ReadinessChecker
	)
	switch cfg.SessionStore {
	case "redis":
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()
		sessionRepo = repository.NewRedisSessionRepository(redisClient, cfg.SessionRedisTTL)
		sessionChecker = repository.NewRedisReadinessChecker(redisClient)
		logger.Info("Сессии хранятся в Redis", slog.String("addr", cfg.RedisAddr))
	default:
		sessionRepo = repository.NewSessionRepository(pool)
	}

	// 7. HTTP-клиент с кастомным CA (для Keycloak)
	var httpClientCA *http.Client
	if cfg.JWTCACertPath != "" {
		httpClientCA, err = buildHTTPClientWithCA(cfg.JWTCACertPath)
		if err != nil {
			logger.Error("Ошибка загрузки CA-сертификата", slog.String("path", cfg.JWTCACertPath), slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("CA-сертификат загружен", slog.String("path", cfg.JWTCACertPath))
	}

	// 8. Identity store (PostgreSQL или Keycloak Admin API)
	var (
		identity        service.IdentityStore
		identityChecker handlers.ReadinessChecker
	)
	switch cfg.IdentitySource {
	case "keycloak":
		kcClient := keycloak.New(
			cfg.KeycloakURL,
			cfg.KeycloakRealm,
			cfg.KeycloakClientID,
			cfg.KeycloakClientSecret,
			httpClientCA, // nil — стандартный пул CA
			logger,
		)
		kcStore := service.NewKeycloakIdentityStore(kcClient, overrideRepo, cfg.GroupRoleMap, cfg.IdentityBreakerTimeout, logger)
		identity = kcStore
		identityChecker = kcStore
		logger.Info("Keycloak identity store создан",
			slog.String("url", cfg.KeycloakURL),
			slog.String("realm", cfg.KeycloakRealm),
		)
	default:
		identity = service.NewPostgresIdentityStore(principalRepo, overrideRepo)
	}

	// 9. Services
	incidents := service.NewIncidentLog(incidentRepo, cfg.PersistenceTimeout, logger)
	validator := service.NewPrivilegeValidator(identity, incidents, cfg.PersistenceTimeout, logger)
	guard := service.NewSessionGuard(sessionRepo, incidents, service.SessionGuardConfig{
		Key:                []byte(cfg.FingerprintKey),
		Attributes:         cfg.FingerprintAttributes,
		IdleTimeout:        cfg.SessionIdleTimeout,
		PersistenceTimeout: cfg.PersistenceTimeout,
	}, logger)
	registry := service.NewClassificationRegistry(classificationRepo, validator, service.ClassificationCacheConfig{
		Size: cfg.ClassificationCacheSize,
		TTL:  cfg.ClassificationCacheTTL,
	}, cfg.PersistenceTimeout, logger)
	monitor := service.NewActivityMonitor(activityRepo, service.ActivityMonitorConfig{
		Threshold:          cfg.MonitorThreshold,
		Window:             cfg.MonitorWindow,
		PersistenceTimeout: cfg.PersistenceTimeout,
	}, logger)
	policy := fieldaccess.New(engine, logger)
	workflow := service.NewExportWorkflow(exportRepo, exportSource, registry, validator, policy, monitor,
		service.ExportWorkflowConfig{
			TTL:                cfg.ExportTTL,
			MaxRows:            cfg.ExportMaxRows,
			RequestsPerHour:    cfg.ExportRequestsPerHour,
			PersistenceTimeout: cfg.PersistenceTimeout,
		}, logger)

	// 9.1 Архив удаляемых строк (опционально, если GM_ARCHIVE_ENABLED=true)
	var archiver service.Archiver
	if cfg.ArchiveEnabled {
		a, archiveErr := archive.NewS3Archiver(ctx, archive.S3ConfigFrom(cfg), cfg.ArchivePrefix, logger)
		if archiveErr != nil {
			logger.Error("Ошибка создания архива S3", slog.String("error", archiveErr.Error()))
			os.Exit(1)
		}
		archiver = a
	}
	retention := service.NewRetentionEnforcer(retentionRepo, validator, archiver, service.RetentionConfig{
		PersistenceTimeout: cfg.PersistenceTimeout,
	}, logger)

	// 10. Начальная загрузка классификаций и политик хранения
	if cfg.GovernanceSeedFile != "" {
		seed, seedErr := service.LoadSeedFile(cfg.GovernanceSeedFile)
		if seedErr != nil {
			logger.Error("Ошибка чтения файла начальной загрузки", slog.String("error", seedErr.Error()))
			os.Exit(1)
		}
		res, seedErr := service.ApplySeed(ctx, seed, registry, retentionRepo, logger)
		if seedErr != nil {
			logger.Error("Ошибка начальной загрузки", slog.String("error", seedErr.Error()))
			os.Exit(1)
		}
		logger.Info("Начальная загрузка выполнена",
			slog.String("file", cfg.GovernanceSeedFile),
			slog.Int("classifications", res.Classifications),
			slog.Int("retention_policies", res.RetentionPolicies),
		)
	}

	// 11. Readiness checkers (PostgreSQL + Keycloak JWKS + identity store + Redis)
	kcChecker, err := middleware.NewKeycloakReadinessChecker(cfg.JWTJWKSURL, cfg.JWTCACertPath, cfg.JWKSClientTimeout)
	if err != nil {
		logger.Error("Ошибка создания Keycloak readiness checker", slog.String("error", err.Error()))
		os.Exit(1)
	}
	checkers := []handlers.NamedChecker{
		{Name: "postgresql", Checker: database.NewReadinessChecker(pool)},
		{Name: "keycloak", Checker: kcChecker},
	}
	if identityChecker != nil {
		checkers = append(checkers, handlers.NamedChecker{Name: "identity", Checker: identityChecker})
	}
	if sessionChecker != nil {
		checkers = append(checkers, handlers.NamedChecker{Name: "redis", Checker: sessionChecker})
	}
	healthHandler := handlers.NewHealthHandler(checkers...)

	// 12. API handler
	apiHandler := handlers.NewAPIHandler(healthHandler, handlers.Services{
		Guard:     guard,
		Validator: validator,
		Incidents: incidents,
		Registry:  registry,
		Workflow:  workflow,
		Monitor:   monitor,
		Retention: retention,
		Policy:    policy,
		Engine:    engine,
	}, handlers.SessionCookieConfig{
		Secure:      cfg.SessionCookieSecure,
		IdleTimeout: cfg.SessionIdleTimeout,
	}, logger)

	// 13. JWT middleware (создание сессии) и session middleware (остальные маршруты)
	jwtAuth, err := middleware.NewJWTAuth(middleware.JWTAuthConfig{
		JWKSURL:         cfg.JWTJWKSURL,
		CACertPath:      cfg.JWTCACertPath,
		Issuer:          cfg.JWTIssuer,
		GroupRoleMap:    cfg.GroupRoleMap,
		ClientTimeout:   cfg.JWKSClientTimeout,
		RefreshInterval: cfg.JWKSRefreshInterval,
		Leeway:          cfg.JWTLeeway,
	}, logger)
	if err != nil {
		logger.Error("Ошибка создания JWT middleware", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("JWT middleware инициализирован",
		slog.String("jwks_url", cfg.JWTJWKSURL),
		slog.String("issuer", cfg.JWTIssuer),
	)
	sessionAuth := middleware.NewSessionAuth(guard, logger)

	// 14. topologymetrics — мониторинг зависимостей (PostgreSQL + Keycloak + Vault)
	dephealthSvc, dephealthErr := service.NewDephealthService(service.DephealthConfig{
		ServiceID:       "governance-core",
		Group:           cfg.DephealthGroup,
		DB:              pgDB,
		PostgresURL:     cfg.DatabaseURL(),
		KeycloakJWKSURL: cfg.JWTJWKSURL,
		VaultURL:        vaultURL,
		CheckInterval:   cfg.DephealthCheckInterval,
		IsEntry:         true,
	}, logger)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
		dephealthSvc = nil
	} else if startErr := dephealthSvc.Start(ctx); startErr != nil {
		logger.Warn("Ошибка запуска topologymetrics", slog.String("error", startErr.Error()))
		dephealthSvc = nil
	} else {
		logger.Info("topologymetrics запущен",
			slog.String("group", cfg.DephealthGroup),
			slog.String("check_interval", cfg.DephealthCheckInterval.String()),
		)
	}

	// 15. Проверка запросов по документу OpenAPI
	swagger, err := generated.GetSwagger()
	if err != nil {
		logger.Error("Ошибка загрузки документа OpenAPI", slog.String("error", err.Error()))
		os.Exit(1)
	}
	requestValidator, err := middleware.NewRequestValidator(swagger, logger)
	if err != nil {
		logger.Error("Ошибка инициализации проверки запросов", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 16. Создание и запуск HTTP-сервера
	srv := server.New(cfg, logger, apiHandler, server.Guards{
		JWT:       jwtAuth.Middleware(),
		Session:   sessionAuth.Middleware(),
		Validator: requestValidator.Middleware(),
	}, middleware.MetricsMiddleware(), middleware.RequestLogger(logger))
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 17. Остановка фоновых задач
	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}
	logger.Info("Governance Core остановлен")
}

// buildHTTPClientWithCA создаёт HTTP-клиент с кастомным CA-сертификатом.
func buildHTTPClientWithCA(caCertPath string) (*http.Client, error) {
	caCert, err := os.ReadFile(caCertPath)
	if err != nil {
		return nil, err
	}

	caCertPool, err := x509.SystemCertPool()
	if err != nil {
		caCertPool = x509.NewCertPool()
	}
	if !caCertPool.AppendCertsFromPEM(caCert) {
		return nil, fmt.Errorf("в файле %s нет PEM-сертификатов", caCertPath)
	}

	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				RootCAs:    caCertPool,
				MinVersion: tls.VersionTLS12,
			},
		},
	}, nil
}

