// sessions.go — создание, просмотр и завершение сессий браузера.
package handlers

import (
	"crypto/rand"
	"log/slog"
	"net/http"

	apierrors "github.com/bigkaa/carecenter/governance-core/internal/api/errors"
	"github.com/bigkaa/carecenter/governance-core/internal/api/middleware"
	"github.com/bigkaa/carecenter/governance-core/internal/domain/model"
	"github.com/bigkaa/carecenter/governance-core/internal/service"
)

type sessionResponse struct {
	SessionID          string `json:"session_id,omitempty"`
	PrincipalID        string `json:"principal_id"`
	Role               string `json:"role"`
	IdleTimeoutSeconds int    `json:"idle_timeout_seconds"`
}

// CreateSession — POST /api/v1/sessions.
// Требует JWT. Роль сессии — авторитетная роль из identity store
// (с учётом локального повышения); роль из токена не может быть старше неё.
func (h *APIHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		apierrors.Unauthorized(w, "Отсутствуют claims в контексте")
		return
	}

	client := middleware.ClientContextFromRequest(r, h.svc.Guard.Attributes())
	sessionID := rand.Text()
	role, err := h.svc.Validator.SessionRole(r.Context(), model.Principal{
		ID:            claims.Subject,
		SessionID:     sessionID,
		SourceAddress: client.SourceAddress,
	}, claims.Role)
	if err != nil {
		h.handleServiceError(w, r, err, "create_session")
		return
	}

	_, err = h.svc.Guard.Initialize(r.Context(), service.SessionInit{
		SessionID:   sessionID,
		PrincipalID: claims.Subject,
		Role:        role,
		Client:      client,
	})
	if err != nil {
		h.handleServiceError(w, r, err, "create_session")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteStrictMode,
	})

	h.logger.Info("Сессия открыта",
		slog.String("principal_id", claims.Subject),
		slog.String("username", claims.PreferredUsername),
	)

	writeJSON(w, http.StatusCreated, sessionResponse{
		SessionID:          sessionID,
		PrincipalID:        claims.Subject,
		Role:               role,
		IdleTimeoutSeconds: int(h.cookie.IdleTimeout.Seconds()),
	})
}

// GetCurrentSession — GET /api/v1/sessions/current.
func (h *APIHandler) GetCurrentSession(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{
		PrincipalID:        p.ID,
		Role:               p.Role,
		IdleTimeoutSeconds: int(h.cookie.IdleTimeout.Seconds()),
	})
}

// DeleteCurrentSession — DELETE /api/v1/sessions/current.
func (h *APIHandler) DeleteCurrentSession(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	if err := h.svc.Guard.Logout(r.Context(), p.SessionID); err != nil {
		h.handleServiceError(w, r, err, "logout")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteStrictMode,
	})
	w.WriteHeader(http.StatusNoContent)
}
