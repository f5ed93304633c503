// classifications.go — реестр классификации данных.
package handlers

import (
	"net/http"

	"github.com/bigkaa/carecenter/governance-core/internal/api/generated"
	"github.com/bigkaa/carecenter/governance-core/internal/domain/classification"
	"github.com/bigkaa/carecenter/governance-core/internal/domain/model"
)

type classificationListResponse struct {
	Items []*model.ClassificationEntry `json:"items"`
	// TableLevel — максимальный уровень таблицы (только при фильтре table)
	TableLevel classification.Level `json:"table_level,omitempty"`
}

// ListClassifications — GET /api/v1/classifications.
// ?table=&column= — классификация одного столбца (по умолчанию internal);
// ?table= — записи таблицы и её итоговый уровень.
func (h *APIHandler) ListClassifications(w http.ResponseWriter, r *http.Request, params generated.ListClassificationsParams) {
	if _, ok := h.principal(w, r); !ok {
		return
	}
	table := deref(params.Table)
	column := deref(params.Column)

	if table != "" && column != "" {
		entry, err := h.svc.Registry.Classify(r.Context(), table, column)
		if err != nil {
			h.handleServiceError(w, r, err, "classify")
			return
		}
		writeJSON(w, http.StatusOK, entry)
		return
	}

	all, err := h.svc.Registry.List(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err, "list_classifications")
		return
	}

	resp := classificationListResponse{Items: make([]*model.ClassificationEntry, 0, len(all))}
	for _, e := range all {
		if table == "" || e.Table == table {
			resp.Items = append(resp.Items, e)
		}
	}
	if table != "" {
		level, err := h.svc.Registry.ClassifyTable(r.Context(), table)
		if err != nil {
			h.handleServiceError(w, r, err, "classify_table")
			return
		}
		resp.TableLevel = level
	}
	writeJSON(w, http.StatusOK, resp)
}

// UpsertClassification — PUT /api/v1/classifications.
// Понижение уровня требует allow_downgrade=true.
func (h *APIHandler) UpsertClassification(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	var req generated.UpsertClassificationJSONRequestBody
	if !decodeJSON(w, r, &req) {
		return
	}

	entry := &model.ClassificationEntry{
		Table:         req.Table,
		Column:        req.Column,
		Level:         classification.Level(req.ClassificationLevel),
		DataCategory:  deref(req.DataCategory),
		RetentionDays: deref(req.RetentionDays),
		Encrypted:     deref(req.Encrypted),
	}
	if err := h.svc.Registry.Upsert(r.Context(), p, entry, deref(req.AllowDowngrade)); err != nil {
		h.handleServiceError(w, r, err, "upsert_classification")
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
