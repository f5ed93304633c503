// metrics.go — Prometheus HTTP метрики Governance Core.
// Регистрирует метрики: gm_http_requests_total, gm_http_request_duration_seconds.
// Идентификаторы заявок в путях заменяются на {id}.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// httpRequestsTotal — общее количество HTTP-запросов.
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gm_http_requests_total",
			Help: "Общее количество HTTP-запросов к Governance Core",
		},
		[]string{"method", "path", "status"},
	)

	// httpRequestDuration — гистограмма длительности HTTP-запросов.
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gm_http_request_duration_seconds",
			Help:    "Длительность HTTP-запросов к Governance Core в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// MetricsMiddleware возвращает HTTP middleware для сбора Prometheus метрик.
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			path := normalizePath(r.URL.Path)

			wrapped := newStatusRecorder(w)
			next.ServeHTTP(wrapped, r)

			httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
			httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
		})
	}
}

// normalizePath заменяет идентификатор заявки на {id}:
// /api/v1/exports/EXP-20260310-090000-1a2b3c4d/approve → /api/v1/exports/{id}/approve
func normalizePath(path string) string {
	const exportsPrefix = "/api/v1/exports/"
	if !strings.HasPrefix(path, exportsPrefix) || len(path) == len(exportsPrefix) {
		return path
	}

	rest := path[len(exportsPrefix):]
	_, action, found := strings.Cut(rest, "/")
	if !found {
		return exportsPrefix + "{id}"
	}
	switch action {
	case "approve", "reject", "download":
		return exportsPrefix + "{id}/" + action
	default:
		return exportsPrefix + "{id}/other"
	}
}
