// access.go — проверка доступа и выдача чувствительных полей.
package handlers

import (
	"errors"
	"fmt"
	"net/http"

	apierrors "github.com/bigkaa/carecenter/governance-core/internal/api/errors"
	"github.com/bigkaa/carecenter/governance-core/internal/api/generated"
	"github.com/bigkaa/carecenter/governance-core/internal/domain/rbac"
	"github.com/bigkaa/carecenter/governance-core/internal/fieldaccess"
	"github.com/bigkaa/carecenter/governance-core/internal/service"
)

// maxResolveRecords — предельное число записей в одном запросе resolve.
const maxResolveRecords = 1000

// CheckAccess — POST /api/v1/access/check.
// Возвращает только факт разрешения; авторитетная роль не раскрывается.
func (h *APIHandler) CheckAccess(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	var req generated.CheckAccessJSONRequestBody
	if !decodeJSON(w, r, &req) {
		return
	}
	required := deref(req.RequiredRoles)
	for _, role := range required {
		if !rbac.IsValidRole(role) {
			apierrors.ValidationError(w, fmt.Sprintf("Недопустимая роль %q", role))
			return
		}
	}

	_, err := h.svc.Validator.Authorize(r.Context(), p, required...)
	if errors.Is(err, service.ErrPersistenceTimeout) {
		apierrors.PersistenceTimeout(w)
		return
	}
	writeJSON(w, http.StatusOK, generated.AccessCheckResponse{Allowed: err == nil})
}

type resolveRequest struct {
	Records []fieldaccess.Record `json:"records"`
}

type resolveResponse struct {
	Records []fieldaccess.ResolvedRecord `json:"records"`
}

// ResolveFields — POST /api/v1/fields/resolve.
// Видимость определяется авторитетной ролью; нечитаемые поля маскируются.
func (h *APIHandler) ResolveFields(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	var req resolveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Records) > maxResolveRecords {
		apierrors.ValidationError(w, fmt.Sprintf("Не более %d записей за запрос", maxResolveRecords))
		return
	}

	role, err := h.svc.Validator.Authorize(r.Context(), p, rbac.StaffRoles...)
	if err != nil {
		h.handleServiceError(w, r, err, "resolve_fields")
		return
	}

	writeJSON(w, http.StatusOK, resolveResponse{
		Records: h.svc.Policy.ResolveBatch(role, req.Records),
	})
}

type encryptRequest struct {
	// Values — имя поля (table.column) → открытый текст
	Values map[string]string `json:"values"`
}

type encryptResponse struct {
	Values map[string]string `json:"values"`
}

// EncryptFields — POST /api/v1/fields/encrypt. Только клинические роли.
func (h *APIHandler) EncryptFields(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	var req encryptRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Values) == 0 {
		apierrors.ValidationError(w, "Не заданы значения для шифрования")
		return
	}

	if _, err := h.svc.Validator.Authorize(r.Context(), p, rbac.ClinicalRoles...); err != nil {
		h.handleServiceError(w, r, err, "encrypt_fields")
		return
	}

	out := make(map[string]string, len(req.Values))
	for field, plain := range req.Values {
		ct, err := h.svc.Engine.Encrypt(plain)
		if err != nil {
			h.handleServiceError(w, r, fmt.Errorf("шифрование поля %s: %w", field, err), "encrypt_fields")
			return
		}
		out[field] = ct
	}
	writeJSON(w, http.StatusOK, encryptResponse{Values: out})
}
