// retention.go — политики хранения и ручной запуск очистки. Только admin.
package handlers

import (
	"net/http"

	"github.com/bigkaa/carecenter/governance-core/internal/domain/model"
	"github.com/bigkaa/carecenter/governance-core/internal/domain/rbac"
)

type retentionPolicyListResponse struct {
	Items []*model.RetentionPolicy `json:"items"`
}

type sweepResponse struct {
	Deleted map[string]int    `json:"deleted"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// ListRetentionPolicies — GET /api/v1/retention/policies.
func (h *APIHandler) ListRetentionPolicies(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	if _, err := h.svc.Validator.Authorize(r.Context(), p, rbac.RoleAdmin); err != nil {
		h.handleServiceError(w, r, err, "list_retention_policies")
		return
	}

	list, err := h.svc.Retention.ListPolicies(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err, "list_retention_policies")
		return
	}
	if list == nil {
		list = []*model.RetentionPolicy{}
	}
	writeJSON(w, http.StatusOK, retentionPolicyListResponse{Items: list})
}

// UpsertRetentionPolicy — PUT /api/v1/retention/policies.
func (h *APIHandler) UpsertRetentionPolicy(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	var policy model.RetentionPolicy
	if !decodeJSON(w, r, &policy) {
		return
	}
	policy.LastExecutedAt = nil

	if err := h.svc.Retention.UpsertPolicy(r.Context(), p, &policy); err != nil {
		h.handleServiceError(w, r, err, "upsert_retention_policy")
		return
	}
	writeJSON(w, http.StatusOK, &policy)
}

// RunRetentionSweep — POST /api/v1/retention/sweep.
// Ошибки отдельных таблиц возвращаются в теле, остальные таблицы обрабатываются.
func (h *APIHandler) RunRetentionSweep(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	if _, err := h.svc.Validator.Authorize(r.Context(), p, rbac.RoleAdmin); err != nil {
		h.handleServiceError(w, r, err, "retention_sweep")
		return
	}

	res, err := h.svc.Retention.Sweep(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err, "retention_sweep")
		return
	}
	writeJSON(w, http.StatusOK, sweepResponse{Deleted: res.Deleted, Errors: res.Errors})
}
