// Пакет scheduler — периодические задачи Governance Core по cron-расписанию.
//
// Задачи:
//  1. Очистка данных по политикам хранения (RetentionEnforcer.Sweep)
//  2. Перевод просроченных заявок на экспорт в expired (ExportWorkflow.ExpireStale)
//
// Запуск задачи пропускается, если предыдущий запуск той же задачи ещё идёт.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/robfig/cron/v3"
)

// Prometheus метрики планировщика
var (
	// taskRunsTotal — количество запусков задач по результату.
	taskRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gm_scheduler_task_runs_total",
		Help: "Общее количество запусков периодических задач",
	}, []string{"task", "result"})

	// taskDurationSeconds — длительность выполнения задачи.
	taskDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gm_scheduler_task_duration_seconds",
		Help:    "Длительность выполнения периодической задачи в секундах",
		Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
	}, []string{"task"})
)

// Task — периодическая задача.
type Task struct {
	// Name — имя задачи для логов и метрик
	Name string
	// Schedule — стандартное cron-выражение из пяти полей
	Schedule string
	// Run выполняет один проход задачи
	Run func(ctx context.Context) error
}

// Scheduler запускает задачи по расписанию.
type Scheduler struct {
	cron   *cron.Cron
	tasks  []Task
	logger *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

// New создаёт планировщик и проверяет расписания всех задач.
func New(logger *slog.Logger, tasks ...Task) (*Scheduler, error) {
	logger = logger.With(slog.String("component", "scheduler"))
	cl := cronLogger{logger: logger}
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	for _, t := range tasks {
		if t.Name == "" || t.Run == nil {
			return nil, errors.New("задача планировщика без имени или функции")
		}
		if _, err := cron.ParseStandard(t.Schedule); err != nil {
			return nil, fmt.Errorf("некорректное расписание задачи %s (%q): %w", t.Name, t.Schedule, err)
		}
	}

	return &Scheduler{
		cron:   c,
		tasks:  tasks,
		logger: logger,
	}, nil
}

// Start регистрирует задачи и запускает планировщик.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	for _, t := range s.tasks {
		if _, err := s.cron.AddFunc(t.Schedule, func() { _ = s.runTask(runCtx, t) }); err != nil {
			cancel()
			return fmt.Errorf("регистрация задачи %s: %w", t.Name, err)
		}
		s.logger.Info("Задача зарегистрирована",
			slog.String("task", t.Name),
			slog.String("schedule", t.Schedule),
		)
	}
	s.cancel = cancel
	s.cron.Start()

	s.logger.Info("Планировщик запущен", slog.Int("tasks", len(s.tasks)))
	return nil
}

// Stop останавливает планировщик и ожидает завершения выполняющихся задач
// не дольше, чем позволяет ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	done := s.cron.Stop()
	if s.cancel != nil {
		s.cancel()
	}
	select {
	case <-done.Done():
		s.logger.Info("Планировщик остановлен")
	case <-ctx.Done():
		s.logger.Warn("Задачи не завершились до таймаута остановки")
	}
}

// RunOnce последовательно выполняет все задачи по одному разу.
// Ошибка одной задачи не прерывает остальные.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	var errs []error
	for _, t := range s.tasks {
		if err := s.runTask(ctx, t); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", t.Name, err))
		}
	}
	return errors.Join(errs...)
}

// runTask выполняет задачу с учётом метрик и логирования.
func (s *Scheduler) runTask(ctx context.Context, t Task) error {
	start := time.Now()
	err := t.Run(ctx)
	elapsed := time.Since(start)
	taskDurationSeconds.WithLabelValues(t.Name).Observe(elapsed.Seconds())

	if err != nil {
		taskRunsTotal.WithLabelValues(t.Name, "error").Inc()
		s.logger.Error("Задача завершилась с ошибкой",
			slog.String("task", t.Name),
			slog.Duration("duration", elapsed),
			slog.String("error", err.Error()),
		)
		return err
	}
	taskRunsTotal.WithLabelValues(t.Name, "ok").Inc()
	s.logger.Info("Задача выполнена",
		slog.String("task", t.Name),
		slog.Duration("duration", elapsed),
	)
	return nil
}

// cronLogger направляет внутренние сообщения cron в slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, slog.String("error", err.Error()))...)
}
