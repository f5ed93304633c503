// Точка входа Governance Sweeper — планировщик периодических задач Governance Core.
// Выполняет очистку данных по политикам хранения и перевод просроченных
// заявок на экспорт в expired по cron-расписанию. При GM_SWEEPER_RUN_ONCE=true
// выполняет задачи один раз и завершается (режим Kubernetes CronJob).
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/bigkaa/carecenter/governance-core/internal/archive"
	"github.com/bigkaa/carecenter/governance-core/internal/config"
	"github.com/bigkaa/carecenter/governance-core/internal/database"
	"github.com/bigkaa/carecenter/governance-core/internal/repository"
	"github.com/bigkaa/carecenter/governance-core/internal/scheduler"
	"github.com/bigkaa/carecenter/governance-core/internal/service"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения (без параметров API)
	cfg, err := config.LoadSweeper()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("Governance Sweeper запускается",
		slog.String("version", config.Version),
		slog.Bool("run_once", cfg.SweeperRunOnce),
	)

	// 3. Подключение к PostgreSQL (миграции применяет governance-core)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 4. Архив удаляемых строк (опционально)
	var archiver service.Archiver
	if cfg.ArchiveEnabled {
		a, archiveErr := archive.NewS3Archiver(ctx, archive.S3ConfigFrom(cfg), cfg.ArchivePrefix, logger)
		if archiveErr != nil {
			logger.Error("Ошибка создания архива S3", slog.String("error", archiveErr.Error()))
			os.Exit(1)
		}
		archiver = a
	}

	// 5. Services. Задачи не проверяют роли: планировщик действует от имени системы,
	// поэтому validator и источники данных экспорта не нужны.
	retention := service.NewRetentionEnforcer(repository.NewRetentionRepository(pool), nil, archiver,
		service.RetentionConfig{PersistenceTimeout: cfg.PersistenceTimeout}, logger)
	workflow := service.NewExportWorkflow(repository.NewExportRequestRepository(pool, cfg.PersistenceTimeout),
		nil, nil, nil, nil, nil,
		service.ExportWorkflowConfig{TTL: cfg.ExportTTL, PersistenceTimeout: cfg.PersistenceTimeout}, logger)

	// 6. Планировщик
	sched, err := scheduler.New(logger,
		scheduler.RetentionTask(cfg.RetentionSchedule, retention),
		scheduler.ExpiryTask(cfg.ExpirySchedule, workflow),
	)
	if err != nil {
		logger.Error("Ошибка создания планировщика", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 6.1 Однократный запуск
	if cfg.SweeperRunOnce {
		if err := sched.RunOnce(ctx); err != nil {
			logger.Error("Задачи выполнены с ошибками", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("Governance Sweeper завершён")
		return
	}

	// 6.2 Работа по расписанию до сигнала завершения
	if err := sched.Start(ctx); err != nil {
		logger.Error("Ошибка запуска планировщика", slog.String("error", err.Error()))
		os.Exit(1)
	}
	<-ctx.Done()
	logger.Info("Получен сигнал завершения")

	stopCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	sched.Stop(stopCtx)

	logger.Info("Governance Sweeper остановлен")
}
