// Пакет config — загрузка и валидация конфигурации Governance Core
// из переменных окружения (caarlos0/env).
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации Governance Core.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера (диапазон 8000-8099)
	Port int `env:"GM_PORT" envDefault:"8010"`
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level `env:"GM_LOG_LEVEL" envDefault:"info"`
	// Формат логов (json, text)
	LogFormat string `env:"GM_LOG_FORMAT" envDefault:"json"`
	// Таймауты HTTP-сервера
	HTTPReadTimeout  time.Duration `env:"GM_HTTP_READ_TIMEOUT" envDefault:"30s"`
	HTTPWriteTimeout time.Duration `env:"GM_HTTP_WRITE_TIMEOUT" envDefault:"60s"`
	HTTPIdleTimeout  time.Duration `env:"GM_HTTP_IDLE_TIMEOUT" envDefault:"120s"`
	// Файл для дублирования логов с ротацией (опционально)
	LogFile string `env:"GM_LOG_FILE"`
	// Максимальный размер файла логов до ротации, МБ
	LogMaxSizeMB int `env:"GM_LOG_MAX_SIZE_MB" envDefault:"100"`
	// Количество хранимых архивов логов
	LogMaxBackups int `env:"GM_LOG_MAX_BACKUPS" envDefault:"5"`

	// --- PostgreSQL ---

	DBHost     string `env:"GM_DB_HOST,required"`
	DBPort     int    `env:"GM_DB_PORT" envDefault:"5432"`
	DBName     string `env:"GM_DB_NAME,required"`
	DBUser     string `env:"GM_DB_USER,required"`
	DBPassword string `env:"GM_DB_PASSWORD,required"`
	// Режим SSL: disable, require, verify-ca, verify-full
	DBSSLMode string `env:"GM_DB_SSL_MODE" envDefault:"disable"`
	// Таймаут одного обращения к хранилищу
	PersistenceTimeout time.Duration `env:"GM_PERSISTENCE_TIMEOUT" envDefault:"5s"`

	// --- Сессии ---

	// Ключ HMAC для отпечатка сессии (минимум 32 байта, обязателен для API)
	FingerprintKey string `env:"GM_FINGERPRINT_KEY"`
	// Атрибуты клиента, входящие в отпечаток
	FingerprintAttributes []string `env:"GM_FINGERPRINT_ATTRIBUTES" envDefault:"user-agent,accept-language,accept-encoding,tls.version,tls.cipher"`
	// Таймаут бездействия сессии
	SessionIdleTimeout time.Duration `env:"GM_SESSION_IDLE_TIMEOUT" envDefault:"30m"`
	// Хранилище сессий: postgres, redis
	SessionStore string `env:"GM_SESSION_STORE" envDefault:"postgres"`
	// Флаг Secure для cookie сессии
	SessionCookieSecure bool `env:"GM_SESSION_COOKIE_SECURE" envDefault:"true"`
	// Время жизни ключа сессии в Redis
	SessionRedisTTL time.Duration `env:"GM_SESSION_REDIS_TTL" envDefault:"24h"`

	// --- Redis ---

	RedisAddr     string `env:"GM_REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"GM_REDIS_PASSWORD"`
	RedisDB       int    `env:"GM_REDIS_DB" envDefault:"0"`

	// --- Identity store ---

	// Источник авторитетной роли: postgres, keycloak
	IdentitySource string `env:"GM_IDENTITY_SOURCE" envDefault:"postgres"`
	// Маппинг групп Keycloak в роли (group=role через запятую)
	GroupRoleMap map[string]string `env:"GM_GROUP_ROLE_MAP" envKeyValSeparator:"=" envDefault:"rehab-admins=admin,rehab-chiefs=chief-staff,rehab-doctors=doctor,rehab-therapists=therapist,rehab-nurses=nurse,rehab-frontdesk=receptionist"`
	// Таймаут размыкания circuit breaker Keycloak
	IdentityBreakerTimeout time.Duration `env:"GM_IDENTITY_BREAKER_TIMEOUT" envDefault:"30s"`

	// --- Keycloak ---

	KeycloakURL          string `env:"GM_KEYCLOAK_URL"`
	KeycloakRealm        string `env:"GM_KEYCLOAK_REALM" envDefault:"carecenter"`
	KeycloakClientID     string `env:"GM_KEYCLOAK_CLIENT_ID"`
	KeycloakClientSecret string `env:"GM_KEYCLOAK_CLIENT_SECRET"`

	// --- JWT ---

	// Issuer JWT (авто-вычисляется из KeycloakURL, если не задан)
	JWTIssuer string `env:"GM_JWT_ISSUER"`
	// URL JWKS endpoint (авто-вычисляется из KeycloakURL, если не задан)
	JWTJWKSURL string `env:"GM_JWT_JWKS_URL"`
	// CA-сертификат для TLS-соединения с Keycloak (опционально)
	JWTCACertPath string `env:"GM_JWT_CA_CERT"`
	// Допустимое отклонение часов при проверке JWT
	JWTLeeway time.Duration `env:"GM_JWT_LEEWAY" envDefault:"5s"`
	// Интервал обновления JWKS
	JWKSRefreshInterval time.Duration `env:"GM_JWKS_REFRESH_INTERVAL" envDefault:"15m"`
	// Таймаут HTTP-клиента JWKS
	JWKSClientTimeout time.Duration `env:"GM_JWKS_CLIENT_TIMEOUT" envDefault:"10s"`

	// --- Ключи шифрования полей ---

	// Источник ключей: file, vault
	KeySource string `env:"GM_KEY_SOURCE" envDefault:"file"`
	// Путь к файлу открытого ключа (base64)
	PublicKeyPath string `env:"GM_PUBLIC_KEY_PATH"`
	// Путь к файлу закрытого ключа (base64)
	PrivateKeyPath string `env:"GM_PRIVATE_KEY_PATH"`
	// Mount KV v2 в Vault
	VaultMount string `env:"GM_VAULT_MOUNT" envDefault:"secret"`
	// Путь секрета с ключевой парой в Vault
	VaultKeyPath string `env:"GM_VAULT_KEY_PATH" envDefault:"governance/field-keys"`

	// --- Экспорт ---

	// Время жизни заявки на экспорт
	ExportTTL time.Duration `env:"GM_EXPORT_TTL" envDefault:"72h"`
	// Максимум строк на таблицу в одном экспорте
	ExportMaxRows int `env:"GM_EXPORT_MAX_ROWS" envDefault:"10000"`
	// Частота заявок на экспорт от одного пользователя (в час)
	ExportRequestsPerHour int `env:"GM_EXPORT_REQUESTS_PER_HOUR" envDefault:"20"`

	// --- Мониторинг выгрузок ---

	// Порог выгрузок confidential/restricted в окне
	MonitorThreshold int `env:"GM_MONITOR_THRESHOLD" envDefault:"5"`
	// Скользящее окно подсчёта выгрузок
	MonitorWindow time.Duration `env:"GM_MONITOR_WINDOW" envDefault:"1h"`

	// --- Классификация ---

	// YAML-файл с начальными классификациями и политиками хранения
	GovernanceSeedFile string `env:"GM_GOVERNANCE_SEED_FILE"`
	// Размер LRU-кэша классификаций
	ClassificationCacheSize int `env:"GM_CLASSIFICATION_CACHE_SIZE" envDefault:"1024"`
	// TTL записи кэша классификаций
	ClassificationCacheTTL time.Duration `env:"GM_CLASSIFICATION_CACHE_TTL" envDefault:"1m"`

	// --- Архив хранения ---

	ArchiveEnabled      bool   `env:"GM_ARCHIVE_ENABLED" envDefault:"false"`
	ArchiveBucket       string `env:"GM_ARCHIVE_BUCKET"`
	ArchivePrefix       string `env:"GM_ARCHIVE_PREFIX" envDefault:"retention"`
	ArchiveRegion       string `env:"GM_ARCHIVE_REGION" envDefault:"us-east-1"`
	ArchiveEndpoint     string `env:"GM_ARCHIVE_ENDPOINT"`
	ArchiveAccessKey    string `env:"GM_ARCHIVE_ACCESS_KEY"`
	ArchiveSecretKey    string `env:"GM_ARCHIVE_SECRET_KEY"`
	ArchiveUsePathStyle bool   `env:"GM_ARCHIVE_USE_PATH_STYLE" envDefault:"false"`

	// --- Планировщик ---

	// Cron-расписание очистки по политикам хранения
	RetentionSchedule string `env:"GM_RETENTION_SCHEDULE" envDefault:"0 3 * * *"`
	// Cron-расписание перевода просроченных заявок в expired
	ExpirySchedule string `env:"GM_EXPIRY_SCHEDULE" envDefault:"*/15 * * * *"`
	// Однократный запуск задач и выход
	SweeperRunOnce bool `env:"GM_SWEEPER_RUN_ONCE" envDefault:"false"`

	// --- topologymetrics ---

	DephealthGroup         string        `env:"GM_DEPHEALTH_GROUP" envDefault:"carecenter"`
	DephealthCheckInterval time.Duration `env:"GM_DEPHEALTH_CHECK_INTERVAL" envDefault:"15s"`

	// --- Graceful shutdown ---

	ShutdownTimeout time.Duration `env:"GM_SHUTDOWN_TIMEOUT" envDefault:"5s"`
}

// Load загружает конфигурацию API из переменных окружения, валидирует
// значения и вычисляет производные поля.
func Load() (*Config, error) {
	cfg, err := parse()
	if err != nil {
		return nil, err
	}
	if err := cfg.validateAPI(); err != nil {
		return nil, err
	}

	cfg.KeycloakURL = strings.TrimRight(cfg.KeycloakURL, "/")
	if cfg.KeycloakURL != "" {
		if cfg.JWTIssuer == "" {
			cfg.JWTIssuer = fmt.Sprintf("%s/realms/%s", cfg.KeycloakURL, cfg.KeycloakRealm)
		}
		if cfg.JWTJWKSURL == "" {
			cfg.JWTJWKSURL = fmt.Sprintf("%s/realms/%s/protocol/openid-connect/certs", cfg.KeycloakURL, cfg.KeycloakRealm)
		}
	}
	if cfg.JWTJWKSURL == "" {
		return nil, fmt.Errorf("GM_JWT_JWKS_URL: не задан и не может быть вычислен без GM_KEYCLOAK_URL")
	}

	return cfg, nil
}

// LoadSweeper загружает конфигурацию планировщика. Проверяются только
// параметры, которые он использует: сессии, ключи и Keycloak не нужны.
func LoadSweeper() (*Config, error) {
	cfg, err := parse()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.RetentionSchedule) == "" {
		return nil, fmt.Errorf("GM_RETENTION_SCHEDULE: расписание не задано")
	}
	if strings.TrimSpace(cfg.ExpirySchedule) == "" {
		return nil, fmt.Errorf("GM_EXPIRY_SCHEDULE: расписание не задано")
	}
	return cfg, nil
}

// parse разбирает переменные окружения и проверяет общие параметры.
func parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("разбор переменных окружения: %w", err)
	}
	if err := cfg.validateCommon(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validateCommon проверяет параметры, общие для API и планировщика.
func (c *Config) validateCommon() error {
	if c.Port < 8000 || c.Port > 8099 {
		return fmt.Errorf("GM_PORT: значение %d вне допустимого диапазона 8000-8099", c.Port)
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return fmt.Errorf("GM_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", c.LogFormat)
	}

	validSSLModes := map[string]bool{
		"disable": true, "require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[c.DBSSLMode] {
		return fmt.Errorf("GM_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", c.DBSSLMode)
	}
	if c.PersistenceTimeout <= 0 {
		return fmt.Errorf("GM_PERSISTENCE_TIMEOUT: таймаут должен быть положительным")
	}
	if c.ExportTTL <= 0 {
		return fmt.Errorf("GM_EXPORT_TTL: TTL должен быть положительным")
	}
	if c.ArchiveEnabled && c.ArchiveBucket == "" {
		return fmt.Errorf("GM_ARCHIVE_BUCKET: обязателен при GM_ARCHIVE_ENABLED=true")
	}
	return nil
}

// validateAPI проверяет параметры HTTP API: сессии, роли, ключи.
func (c *Config) validateAPI() error {
	if len(c.FingerprintKey) < 32 {
		return fmt.Errorf("GM_FINGERPRINT_KEY: ключ не задан или короче 32 байт")
	}
	if len(c.FingerprintAttributes) == 0 {
		return fmt.Errorf("GM_FINGERPRINT_ATTRIBUTES: список атрибутов пуст")
	}
	if c.SessionIdleTimeout <= 0 {
		return fmt.Errorf("GM_SESSION_IDLE_TIMEOUT: таймаут должен быть положительным")
	}
	if c.SessionStore != "postgres" && c.SessionStore != "redis" {
		return fmt.Errorf("GM_SESSION_STORE: недопустимое значение %q, допустимые: postgres, redis", c.SessionStore)
	}

	switch c.IdentitySource {
	case "postgres":
	case "keycloak":
		if c.KeycloakURL == "" || c.KeycloakClientID == "" || c.KeycloakClientSecret == "" {
			return fmt.Errorf("GM_IDENTITY_SOURCE=keycloak: требуются GM_KEYCLOAK_URL, GM_KEYCLOAK_CLIENT_ID, GM_KEYCLOAK_CLIENT_SECRET")
		}
	default:
		return fmt.Errorf("GM_IDENTITY_SOURCE: недопустимое значение %q, допустимые: postgres, keycloak", c.IdentitySource)
	}

	switch c.KeySource {
	case "file":
		if c.PublicKeyPath == "" || c.PrivateKeyPath == "" {
			return fmt.Errorf("GM_KEY_SOURCE=file: требуются GM_PUBLIC_KEY_PATH и GM_PRIVATE_KEY_PATH")
		}
	case "vault":
		if c.VaultKeyPath == "" {
			return fmt.Errorf("GM_VAULT_KEY_PATH: обязательна при GM_KEY_SOURCE=vault")
		}
	default:
		return fmt.Errorf("GM_KEY_SOURCE: недопустимое значение %q, допустимые: file, vault", c.KeySource)
	}

	if c.ExportMaxRows < 1 || c.ExportMaxRows > 1000000 {
		return fmt.Errorf("GM_EXPORT_MAX_ROWS: значение %d вне допустимого диапазона 1-1000000", c.ExportMaxRows)
	}
	if c.MonitorThreshold < 1 {
		return fmt.Errorf("GM_MONITOR_THRESHOLD: порог должен быть не меньше 1")
	}
	return nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает URL PostgreSQL без пароля (для метрик topologymetrics).
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s@%s:%d/%s", c.DBUser, c.DBHost, c.DBPort, c.DBName)
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
// Если задан GM_LOG_FILE, логи дублируются в файл с ротацией.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var out io.Writer = os.Stdout
	if cfg.LogFile != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.LogMaxSizeMB,
			MaxBackups: cfg.LogMaxBackups,
			Compress:   true,
		})
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
