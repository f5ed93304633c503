package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/bigkaa/carecenter/governance-core/internal/domain/classification"
	"github.com/bigkaa/carecenter/governance-core/internal/domain/exportflow"
	"github.com/bigkaa/carecenter/governance-core/internal/domain/model"
	"github.com/bigkaa/carecenter/governance-core/internal/domain/rbac"
	"github.com/bigkaa/carecenter/governance-core/internal/fieldaccess"
	"github.com/bigkaa/carecenter/governance-core/internal/repository"
)

// Значения по умолчанию для заявок на экспорт.
const (
	DefaultExportTTL     = 72 * time.Hour
	DefaultExportMaxRows = 10000
	defaultExportType    = "json"
)

// identPattern — допустимое имя таблицы или столбца в заявке.
var identPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// ExportWorkflowConfig — параметры ExportWorkflow.
type ExportWorkflowConfig struct {
	TTL     time.Duration
	MaxRows int
	// RequestsPerHour — лимит заявок одного автора (0 — без лимита)
	RequestsPerHour    int
	PersistenceTimeout time.Duration
}

// ExportInput — параметры новой заявки.
type ExportInput struct {
	ExportType string            `json:"export_type"`
	Tables     []string          `json:"tables"`
	Filters    map[string]string `json:"filters"`
	// Justification — обоснование выгрузки (обязательно)
	Justification string `json:"justification"`
}

// ExportFile — результат выполнения одобренного экспорта.
type ExportFile struct {
	RequestID      string
	FileName       string
	ContentType    string
	Classification classification.Level
	Watermark      string
	Data           []byte
}

// ExportWorkflow — жизненный цикл заявок на массовую выгрузку
// с разделением автора и рассматривающего (maker/checker).
type ExportWorkflow struct {
	repo       repository.ExportRequestRepository
	source     repository.ExportSource
	registry   *ClassificationRegistry
	validator  *PrivilegeValidator
	policy     *fieldaccess.Policy
	monitor    *ActivityMonitor
	ttl        time.Duration
	maxRows    int
	timeout    time.Duration
	perHour    int
	limitersMu sync.Mutex
	limiters   map[string]*rate.Limiter
	now        func() time.Time
	logger     *slog.Logger
}

// NewExportWorkflow создаёт ExportWorkflow.
func NewExportWorkflow(
	repo repository.ExportRequestRepository,
	source repository.ExportSource,
	registry *ClassificationRegistry,
	validator *PrivilegeValidator,
	policy *fieldaccess.Policy,
	monitor *ActivityMonitor,
	cfg ExportWorkflowConfig,
	logger *slog.Logger,
) *ExportWorkflow {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultExportTTL
	}
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = DefaultExportMaxRows
	}
	return &ExportWorkflow{
		repo:      repo,
		source:    source,
		registry:  registry,
		validator: validator,
		policy:    policy,
		monitor:   monitor,
		ttl:       cfg.TTL,
		maxRows:   cfg.MaxRows,
		timeout:   cfg.PersistenceTimeout,
		perHour:   cfg.RequestsPerHour,
		limiters:  make(map[string]*rate.Limiter),
		now:       time.Now,
		logger:    logger.With(slog.String("component", "export_workflow")),
	}
}

// newRequestID формирует идентификатор вида EXP-YYYYMMDD-HHMMSS-xxxxxxxx.
func newRequestID(now time.Time) string {
	return fmt.Sprintf("EXP-%s-%s", now.UTC().Format("20060102-150405"), uuid.NewString()[:8])
}

// allow проверяет лимит заявок автора.
func (w *ExportWorkflow) allow(requesterID string) bool {
	if w.perHour <= 0 {
		return true
	}
	w.limitersMu.Lock()
	defer w.limitersMu.Unlock()

	l, ok := w.limiters[requesterID]
	if !ok {
		l = rate.NewLimiter(rate.Every(time.Hour/time.Duration(w.perHour)), w.perHour)
		w.limiters[requesterID] = l
	}
	return l.Allow()
}

// RequestExport создаёт заявку в статусе pending.
// Уровень классификации — максимум по запрошенным таблицам. Экспортировать
// можно только классифицированные таблицы, служебные таблицы ядра недоступны.
func (w *ExportWorkflow) RequestExport(ctx context.Context, requester model.Principal, in ExportInput) (*model.ExportRequest, error) {
	tables, err := normalizeExportInput(&in)
	if err != nil {
		return nil, err
	}

	role, err := w.validator.Authorize(ctx, requester, rbac.StaffRoles...)
	if err != nil {
		return nil, err
	}
	if !w.allow(requester.ID) {
		return nil, ErrRateLimited
	}

	var levels []classification.Level
	for _, t := range tables {
		if repository.IsGovernanceTable(t) {
			return nil, fmt.Errorf("%w: таблица %q недоступна для экспорта", ErrValidation, t)
		}
		entries, err := w.registry.Entries(ctx, t)
		if err != nil {
			return nil, err
		}
		if len(entries) == 0 {
			return nil, fmt.Errorf("%w: таблица %q не классифицирована", ErrValidation, t)
		}
		for _, e := range entries {
			levels = append(levels, e.Level)
		}
	}

	now := w.now().UTC()
	req := &model.ExportRequest{
		ID:                  newRequestID(now),
		ExportType:          in.ExportType,
		Tables:              tables,
		Filters:             in.Filters,
		Justification:       in.Justification,
		RequesterID:         requester.ID,
		RequesterRole:       role,
		ClassificationLevel: classification.Max(levels...),
		Status:              exportflow.StatusPending,
		RequestedAt:         now,
		ExpiresAt:           now.Add(w.ttl),
	}

	err = withTimeout(ctx, w.timeout, func(ctx context.Context) error {
		return w.repo.Create(ctx, req)
	})
	if err != nil {
		return nil, fmt.Errorf("создание заявки: %w", err)
	}

	exportTransitionsTotal.WithLabelValues(string(exportflow.StatusPending)).Inc()
	w.logger.Info("Заявка на экспорт создана",
		slog.String("request_id", req.ID),
		slog.String("requester_id", req.RequesterID),
		slog.String("classification", string(req.ClassificationLevel)),
		slog.Int("tables", len(tables)),
	)
	return req, nil
}

// normalizeExportInput проверяет заявку и возвращает отсортированный
// список таблиц без повторов. Ключ фильтра — "столбец" (для всех таблиц)
// или "таблица.столбец".
func normalizeExportInput(in *ExportInput) ([]string, error) {
	in.Justification = strings.TrimSpace(in.Justification)
	if in.Justification == "" {
		return nil, fmt.Errorf("%w: не указано обоснование", ErrValidation)
	}
	if len(in.Tables) == 0 {
		return nil, fmt.Errorf("%w: не указаны таблицы", ErrValidation)
	}
	in.ExportType = strings.TrimSpace(in.ExportType)
	if in.ExportType == "" {
		in.ExportType = defaultExportType
	}

	seen := make(map[string]bool, len(in.Tables))
	tables := make([]string, 0, len(in.Tables))
	for _, t := range in.Tables {
		t = strings.TrimSpace(t)
		if !identPattern.MatchString(t) {
			return nil, fmt.Errorf("%w: недопустимое имя таблицы %q", ErrValidation, t)
		}
		if !seen[t] {
			seen[t] = true
			tables = append(tables, t)
		}
	}
	sort.Strings(tables)

	for key := range in.Filters {
		table, column, qualified := strings.Cut(key, ".")
		if !qualified {
			column = table
		} else if !seen[table] {
			return nil, fmt.Errorf("%w: фильтр %q для незапрошенной таблицы", ErrValidation, key)
		}
		if !identPattern.MatchString(column) {
			return nil, fmt.Errorf("%w: недопустимый фильтр %q", ErrValidation, key)
		}
	}
	if in.Filters == nil {
		in.Filters = map[string]string{}
	}
	return tables, nil
}

// Approve одобряет заявку.
func (w *ExportWorkflow) Approve(ctx context.Context, approver model.Principal, id, notes string) (*model.ExportRequest, error) {
	return w.decide(ctx, approver, id, notes, exportflow.StatusApproved)
}

// Reject отклоняет заявку.
func (w *ExportWorkflow) Reject(ctx context.Context, approver model.Principal, id, notes string) (*model.ExportRequest, error) {
	return w.decide(ctx, approver, id, notes, exportflow.StatusRejected)
}

// decide выполняет решение под блокировкой строки заявки. Просроченная
// заявка сохраняется как expired, вызывающий получает ErrNotPending.
func (w *ExportWorkflow) decide(ctx context.Context, approver model.Principal, id, notes string, to exportflow.Status) (*model.ExportRequest, error) {
	if _, err := w.validator.Authorize(ctx, approver, rbac.ReviewerRoles...); err != nil {
		return nil, err
	}

	var expired bool
	var req *model.ExportRequest
	err := withTimeout(ctx, w.timeout, func(ctx context.Context) error {
		var err error
		expired = false
		req, err = w.repo.UpdateLocked(ctx, id, func(r *model.ExportRequest) error {
			if r.RequesterID == approver.ID {
				return ErrSelfApprovalDenied
			}
			now := w.now().UTC()
			if r.Status == exportflow.StatusPending &&
				exportflow.Effective(r.Status, r.ExpiresAt, now) == exportflow.StatusExpired {
				r.Status = exportflow.StatusExpired
				expired = true
				return nil
			}
			if err := exportflow.Transition(r.Status, to); err != nil {
				return fmt.Errorf("%w: %w", ErrNotPending, err)
			}
			r.Status = to
			r.DecidedAt = &now
			r.DecidedBy = approver.ID
			r.DecisionNotes = strings.TrimSpace(notes)
			return nil
		})
		return err
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if expired {
		exportTransitionsTotal.WithLabelValues(string(exportflow.StatusExpired)).Inc()
		w.logger.Info("Заявка истекла до решения", slog.String("request_id", id))
		return nil, fmt.Errorf("%w: срок заявки истёк", ErrNotPending)
	}

	exportTransitionsTotal.WithLabelValues(string(to)).Inc()
	w.logger.Info("Решение по заявке на экспорт",
		slog.String("request_id", id),
		slog.String("status", string(to)),
		slog.String("decided_by", approver.ID),
	)
	return req, nil
}

// Get возвращает заявку. Не рассматривающие видят только свои заявки.
func (w *ExportWorkflow) Get(ctx context.Context, viewer model.Principal, id string) (*model.ExportRequest, error) {
	role, err := w.validator.Authorize(ctx, viewer, rbac.StaffRoles...)
	if err != nil {
		return nil, err
	}

	var req *model.ExportRequest
	err = withTimeout(ctx, w.timeout, func(ctx context.Context) error {
		var err error
		req, err = w.repo.Get(ctx, id)
		return err
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение заявки: %w", err)
	}
	if !rbac.IsReviewer(role) && req.RequesterID != viewer.ID {
		return nil, ErrNotFound
	}

	return w.expireOnRead(ctx, req), nil
}

// expireOnRead сохраняет истечение pending-заявки, обнаруженное при чтении.
// При ошибке сохранения возвращается эффективный статус без записи.
func (w *ExportWorkflow) expireOnRead(ctx context.Context, req *model.ExportRequest) *model.ExportRequest {
	now := w.now().UTC()
	if req.Status != exportflow.StatusPending ||
		exportflow.Effective(req.Status, req.ExpiresAt, now) != exportflow.StatusExpired {
		return req
	}

	var updated *model.ExportRequest
	err := withTimeout(ctx, w.timeout, func(ctx context.Context) error {
		var err error
		updated, err = w.repo.UpdateLocked(ctx, req.ID, func(r *model.ExportRequest) error {
			if r.Status == exportflow.StatusPending {
				r.Status = exportflow.StatusExpired
			}
			return nil
		})
		return err
	})
	if err != nil {
		w.logger.Warn("Не удалось сохранить истечение заявки",
			slog.String("request_id", req.ID),
			slog.String("error", err.Error()),
		)
		req.Status = exportflow.StatusExpired
		return req
	}
	exportTransitionsTotal.WithLabelValues(string(exportflow.StatusExpired)).Inc()
	return updated
}

// List возвращает заявки; не рассматривающие видят только свои.
func (w *ExportWorkflow) List(ctx context.Context, viewer model.Principal, f model.ExportFilter) ([]*model.ExportRequest, error) {
	role, err := w.validator.Authorize(ctx, viewer, rbac.StaffRoles...)
	if err != nil {
		return nil, err
	}
	if !rbac.IsReviewer(role) {
		f.RequesterID = viewer.ID
	}

	if _, err := w.ExpireStale(ctx); err != nil {
		w.logger.Warn("Истечение заявок перед выборкой не выполнено", slog.String("error", err.Error()))
	}

	var list []*model.ExportRequest
	err = withTimeout(ctx, w.timeout, func(ctx context.Context) error {
		var err error
		list, err = w.repo.List(ctx, f)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("получение заявок: %w", err)
	}

	now := w.now().UTC()
	for _, r := range list {
		r.Status = exportflow.Effective(r.Status, r.ExpiresAt, now)
	}
	return list, nil
}

// ExpireStale переводит все просроченные pending-заявки в expired.
func (w *ExportWorkflow) ExpireStale(ctx context.Context) (int, error) {
	var n int
	err := withTimeout(ctx, w.timeout, func(ctx context.Context) error {
		var err error
		n, err = w.repo.ExpirePending(ctx, w.now().UTC())
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("истечение заявок: %w", err)
	}
	if n > 0 {
		exportTransitionsTotal.WithLabelValues(string(exportflow.StatusExpired)).Add(float64(n))
		w.logger.Info("Просроченные заявки переведены в expired", slog.Int("count", n))
	}
	return n, nil
}
