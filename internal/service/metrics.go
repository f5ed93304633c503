package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// incidentsTotal — инциденты по типу и критичности.
	incidentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gm_incidents_total",
			Help: "Количество зарегистрированных инцидентов безопасности",
		},
		[]string{"type", "severity"},
	)

	// sessionValidationsTotal — результаты проверки сессий.
	sessionValidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gm_session_validations_total",
			Help: "Количество проверок сессий по результату",
		},
		[]string{"result"},
	)

	// privilegeChecksTotal — результаты проверок привилегий.
	privilegeChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gm_privilege_checks_total",
			Help: "Количество проверок привилегий по результату",
		},
		[]string{"result"},
	)

	// exportTransitionsTotal — переходы заявок на экспорт.
	exportTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gm_export_transitions_total",
			Help: "Количество переходов заявок на экспорт по целевому статусу",
		},
		[]string{"status"},
	)

	// downloadsTotal — выгрузки по уровню классификации и флагу подозрительности.
	downloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gm_downloads_total",
			Help: "Количество выгрузок данных",
		},
		[]string{"classification", "suspicious"},
	)

	// retentionDeletedTotal — строки, удалённые по политикам хранения.
	retentionDeletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gm_retention_deleted_rows_total",
			Help: "Количество строк, удалённых по политикам хранения",
		},
		[]string{"table"},
	)

	// retentionSweepDuration — длительность прохода очистки.
	retentionSweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gm_retention_sweep_duration_seconds",
			Help:    "Длительность прохода очистки по политикам хранения",
			Buckets: prometheus.DefBuckets,
		},
	)

	// classificationDowngradesTotal — понижения классификации.
	classificationDowngradesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gm_classification_downgrades_total",
			Help: "Количество явных понижений классификации",
		},
	)
)
