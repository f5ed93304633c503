package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bigkaa/carecenter/governance-core/internal/domain/classification"
	"github.com/bigkaa/carecenter/governance-core/internal/domain/model"
	"github.com/bigkaa/carecenter/governance-core/internal/domain/rbac"
	"github.com/bigkaa/carecenter/governance-core/internal/fieldaccess"
	"github.com/bigkaa/carecenter/governance-core/internal/repository"
)

// Причины пометки выгрузки как подозрительной.
const (
	ReasonHighFrequency = "high_frequency"
	ReasonMaskBypass    = "mask_bypass"
)

// Значения по умолчанию правил монитора.
const (
	DefaultMonitorThreshold = 5
	DefaultMonitorWindow    = time.Hour
)

// ActivityMonitorConfig — пороги правил подозрительности.
type ActivityMonitorConfig struct {
	// Threshold — допустимое число выгрузок confidential/restricted в окне
	Threshold int
	// Window — скользящее окно подсчёта
	Window             time.Duration
	PersistenceTimeout time.Duration
}

// DownloadInput — данные о завершённой выгрузке. Роль пользователя
// должна быть проверена вызывающим.
type DownloadInput struct {
	UserID          string
	UserRole        string
	FileName        string
	FileType        string
	Classification  classification.Level
	FileSize        int64
	SourceAddress   string
	Watermarked     bool
	ExportRequestID string
}

// ActivityMonitor ведёт журнал выгрузок и помечает аномалии.
type ActivityMonitor struct {
	repo      repository.ActivityRepository
	threshold int
	window    time.Duration
	timeout   time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

// NewActivityMonitor создаёт ActivityMonitor.
func NewActivityMonitor(repo repository.ActivityRepository, cfg ActivityMonitorConfig, logger *slog.Logger) *ActivityMonitor {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultMonitorThreshold
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultMonitorWindow
	}
	return &ActivityMonitor{
		repo:      repo,
		threshold: cfg.Threshold,
		window:    cfg.Window,
		timeout:   cfg.PersistenceTimeout,
		now:       time.Now,
		logger:    logger.With(slog.String("component", "activity_monitor")),
	}
}

// Record добавляет запись о выгрузке, вычисляя флаг подозрительности.
func (m *ActivityMonitor) Record(ctx context.Context, in DownloadInput) (*model.DownloadActivity, error) {
	if err := validateDownload(&in); err != nil {
		return nil, err
	}

	now := m.now().UTC()
	a := &model.DownloadActivity{
		ID:                 uuid.NewString(),
		UserID:             in.UserID,
		UserRole:           in.UserRole,
		FileName:           in.FileName,
		FileType:           in.FileType,
		DataClassification: in.Classification,
		FileSize:           in.FileSize,
		DownloadedAt:       now,
		SourceAddress:      in.SourceAddress,
		Watermarked:        in.Watermarked,
		ExportRequestID:    in.ExportRequestID,
	}

	reasons, err := m.evaluate(ctx, in, now)
	if err != nil {
		return nil, err
	}
	if len(reasons) > 0 {
		a.SuspiciousFlag = true
		a.SuspiciousReasons = reasons
	}

	err = withTimeout(ctx, m.timeout, func(ctx context.Context) error {
		return m.repo.Append(ctx, a)
	})
	if err != nil {
		return nil, fmt.Errorf("запись выгрузки: %w", err)
	}

	downloadsTotal.WithLabelValues(string(a.DataClassification), strconv.FormatBool(a.SuspiciousFlag)).Inc()
	if a.SuspiciousFlag {
		m.logger.Warn("Подозрительная выгрузка",
			slog.String("activity_id", a.ID),
			slog.String("user_id", a.UserID),
			slog.String("role", a.UserRole),
			slog.String("classification", string(a.DataClassification)),
			slog.String("reasons", strings.Join(reasons, ",")),
		)
	}
	return a, nil
}

// evaluate применяет правила подозрительности.
func (m *ActivityMonitor) evaluate(ctx context.Context, in DownloadInput, now time.Time) ([]string, error) {
	var reasons []string

	if in.Classification.AtLeast(classification.Confidential) {
		var prior int
		err := withTimeout(ctx, m.timeout, func(ctx context.Context) error {
			var err error
			prior, err = m.repo.CountSince(ctx, in.UserID, classification.Sensitive(), now.Add(-m.window))
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("подсчёт выгрузок: %w", err)
		}
		if prior+1 > m.threshold {
			reasons = append(reasons, ReasonHighFrequency)
		}
	}

	// Выгрузка restricted ролью, которой поля этого уровня не видны открыто,
	// означает обход маскирования.
	if in.Classification == classification.Restricted &&
		fieldaccess.VisibilityForClassification(in.UserRole, classification.Restricted) != fieldaccess.Plaintext {
		reasons = append(reasons, ReasonMaskBypass)
	}
	return reasons, nil
}

// List возвращает журнал выгрузок. Только для admin/chief-staff.
func (m *ActivityMonitor) List(ctx context.Context, viewerRole string, f model.ActivityFilter) ([]*model.DownloadActivity, error) {
	if !rbac.IsReviewer(viewerRole) {
		return nil, ErrForbidden
	}
	var list []*model.DownloadActivity
	err := withTimeout(ctx, m.timeout, func(ctx context.Context) error {
		var err error
		list, err = m.repo.List(ctx, f)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("получение журнала выгрузок: %w", err)
	}
	return list, nil
}

func validateDownload(in *DownloadInput) error {
	in.FileName = strings.TrimSpace(in.FileName)
	switch {
	case in.UserID == "":
		return fmt.Errorf("%w: не задан пользователь", ErrValidation)
	case in.FileName == "":
		return fmt.Errorf("%w: не задано имя файла", ErrValidation)
	case in.FileSize < 0:
		return fmt.Errorf("%w: отрицательный размер файла", ErrValidation)
	}
	if in.Classification == "" {
		in.Classification = classification.Default
	}
	if !in.Classification.IsValid() {
		return fmt.Errorf("%w: недопустимый уровень %q", ErrValidation, in.Classification)
	}
	return nil
}
