// exports.go — заявки на массовую выгрузку данных.
package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	apierrors "github.com/bigkaa/carecenter/governance-core/internal/api/errors"
	"github.com/bigkaa/carecenter/governance-core/internal/api/generated"
	"github.com/bigkaa/carecenter/governance-core/internal/domain/exportflow"
	"github.com/bigkaa/carecenter/governance-core/internal/domain/model"
	"github.com/bigkaa/carecenter/governance-core/internal/service"
)

type exportListResponse struct {
	Items  []*model.ExportRequest `json:"items"`
	Limit  int                    `json:"limit"`
	Offset int                    `json:"offset"`
}

// CreateExport — POST /api/v1/exports.
func (h *APIHandler) CreateExport(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	var in service.ExportInput
	if !decodeJSON(w, r, &in) {
		return
	}

	req, err := h.svc.Workflow.RequestExport(r.Context(), p, in)
	if err != nil {
		h.handleServiceError(w, r, err, "request_export")
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

// ListExports — GET /api/v1/exports.
// Не рассматривающие роли видят только собственные заявки.
func (h *APIHandler) ListExports(w http.ResponseWriter, r *http.Request, params generated.ListExportsParams) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	limit, offset := paginationDefaults(params.Limit, params.Offset)
	f := model.ExportFilter{
		RequesterID: deref(params.RequesterId),
		Limit:       limit,
		Offset:      offset,
	}
	if raw := string(deref(params.Status)); raw != "" {
		st, err := exportflow.ParseStatus(raw)
		if err != nil {
			apierrors.ValidationError(w, fmt.Sprintf("Недопустимый статус %q", raw))
			return
		}
		f.Status = st
	}

	list, err := h.svc.Workflow.List(r.Context(), p, f)
	if err != nil {
		h.handleServiceError(w, r, err, "list_exports")
		return
	}
	if list == nil {
		list = []*model.ExportRequest{}
	}
	writeJSON(w, http.StatusOK, exportListResponse{Items: list, Limit: limit, Offset: offset})
}

// GetExport — GET /api/v1/exports/{id}.
func (h *APIHandler) GetExport(w http.ResponseWriter, r *http.Request, id generated.ExportId) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	req, err := h.svc.Workflow.Get(r.Context(), p, id)
	if err != nil {
		h.handleServiceError(w, r, err, "get_export")
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// ApproveExport — POST /api/v1/exports/{id}/approve.
func (h *APIHandler) ApproveExport(w http.ResponseWriter, r *http.Request, id generated.ExportId) {
	h.decideExport(w, r, id, true)
}

// RejectExport — POST /api/v1/exports/{id}/reject.
func (h *APIHandler) RejectExport(w http.ResponseWriter, r *http.Request, id generated.ExportId) {
	h.decideExport(w, r, id, false)
}

func (h *APIHandler) decideExport(w http.ResponseWriter, r *http.Request, id string, approve bool) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	var body generated.ApproveExportJSONRequestBody
	if r.ContentLength != 0 && !decodeJSON(w, r, &body) {
		return
	}

	notes := deref(body.Notes)
	var (
		req *model.ExportRequest
		err error
		op  = "approve_export"
	)
	if approve {
		req, err = h.svc.Workflow.Approve(r.Context(), p, id, notes)
	} else {
		op = "reject_export"
		req, err = h.svc.Workflow.Reject(r.Context(), p, id, notes)
	}
	if err != nil {
		h.handleServiceError(w, r, err, op)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// DownloadExport — POST /api/v1/exports/{id}/download.
// Выполняет одобренную заявку один раз; файл содержит водяной знак.
func (h *APIHandler) DownloadExport(w http.ResponseWriter, r *http.Request, id generated.ExportId) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	file, err := h.svc.Workflow.Execute(r.Context(), p, id, p.SourceAddress)
	if err != nil {
		h.handleServiceError(w, r, err, "execute_export")
		return
	}

	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.FileName))
	w.Header().Set("Content-Length", strconv.Itoa(len(file.Data)))
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Export-Classification", string(file.Classification))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(file.Data)
}
