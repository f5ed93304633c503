// audit.go — журнал выгрузок и журнал инцидентов.
package handlers

import (
	"net/http"

	"github.com/bigkaa/carecenter/governance-core/internal/api/generated"
	"github.com/bigkaa/carecenter/governance-core/internal/domain/classification"
	"github.com/bigkaa/carecenter/governance-core/internal/domain/model"
	"github.com/bigkaa/carecenter/governance-core/internal/domain/rbac"
	"github.com/bigkaa/carecenter/governance-core/internal/service"
)

type activityListResponse struct {
	Items  []*model.DownloadActivity `json:"items"`
	Limit  int                       `json:"limit"`
	Offset int                       `json:"offset"`
}

type incidentListResponse struct {
	Items  []*model.Incident `json:"items"`
	Limit  int               `json:"limit"`
	Offset int               `json:"offset"`
}

// RecordDownload — POST /api/v1/downloads.
// Пользователь и роль берутся из сессии и identity store, а не из тела запроса.
func (h *APIHandler) RecordDownload(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	var req generated.RecordDownloadJSONRequestBody
	if !decodeJSON(w, r, &req) {
		return
	}

	role, err := h.svc.Validator.Authorize(r.Context(), p, rbac.StaffRoles...)
	if err != nil {
		h.handleServiceError(w, r, err, "record_download")
		return
	}

	rec, err := h.svc.Monitor.Record(r.Context(), service.DownloadInput{
		UserID:          p.ID,
		UserRole:        role,
		FileName:        deref(req.FileName),
		FileType:        deref(req.FileType),
		Classification:  classification.Level(deref(req.DataClassification)),
		FileSize:        deref(req.FileSize),
		SourceAddress:   p.SourceAddress,
		Watermarked:     deref(req.Watermarked),
		ExportRequestID: deref(req.ExportRequestId),
	})
	if err != nil {
		h.handleServiceError(w, r, err, "record_download")
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// ListDownloads — GET /api/v1/downloads. Только admin/chief-staff.
func (h *APIHandler) ListDownloads(w http.ResponseWriter, r *http.Request, params generated.ListDownloadsParams) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	limit, offset := paginationDefaults(params.Limit, params.Offset)

	role, err := h.svc.Validator.Authorize(r.Context(), p, rbac.ReviewerRoles...)
	if err != nil {
		h.handleServiceError(w, r, err, "list_downloads")
		return
	}

	list, err := h.svc.Monitor.List(r.Context(), role, model.ActivityFilter{
		UserID:         deref(params.UserId),
		SuspiciousOnly: deref(params.Suspicious),
		Since:          params.Since,
		Limit:          limit,
		Offset:         offset,
	})
	if err != nil {
		h.handleServiceError(w, r, err, "list_downloads")
		return
	}
	if list == nil {
		list = []*model.DownloadActivity{}
	}
	writeJSON(w, http.StatusOK, activityListResponse{Items: list, Limit: limit, Offset: offset})
}

// ListIncidents — GET /api/v1/incidents. Только admin/chief-staff.
func (h *APIHandler) ListIncidents(w http.ResponseWriter, r *http.Request, params generated.ListIncidentsParams) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	limit, offset := paginationDefaults(params.Limit, params.Offset)

	role, err := h.svc.Validator.Authorize(r.Context(), p, rbac.ReviewerRoles...)
	if err != nil {
		h.handleServiceError(w, r, err, "list_incidents")
		return
	}

	list, err := h.svc.Incidents.List(r.Context(), role, model.IncidentFilter{
		Type:        model.IncidentType(deref(params.Type)),
		PrincipalID: deref(params.PrincipalId),
		Since:       params.Since,
		Limit:       limit,
		Offset:      offset,
	})
	if err != nil {
		h.handleServiceError(w, r, err, "list_incidents")
		return
	}
	if list == nil {
		list = []*model.Incident{}
	}
	writeJSON(w, http.StatusOK, incidentListResponse{Items: list, Limit: limit, Offset: offset})
}
