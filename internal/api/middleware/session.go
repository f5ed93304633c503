// session.go — middleware проверки сессии браузера.
// Идентификатор сессии берётся из cookie gm_session или заголовка X-Session-ID,
// отпечаток клиента собирается из заголовков запроса и параметров TLS.
package middleware

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"

	apierrors "github.com/bigkaa/carecenter/governance-core/internal/api/errors"
	"github.com/bigkaa/carecenter/governance-core/internal/domain/model"
	"github.com/bigkaa/carecenter/governance-core/internal/service"
)

const (
	// SessionCookieName — имя cookie сессии.
	SessionCookieName = "gm_session"
	// SessionHeaderName — альтернативный заголовок с идентификатором сессии.
	SessionHeaderName = "X-Session-ID"

	// ContextKeyPrincipal — model.Principal текущего запроса.
	ContextKeyPrincipal contextKey = "principal"
)

// Атрибуты отпечатка, вычисляемые из TLS-соединения и адреса клиента.
const (
	attrTLSVersion = "tls.version"
	attrTLSCipher  = "tls.cipher"
	attrRemoteIP   = "remote.ip"
)

// SessionChecker — проверка сессии (реализуется service.SessionGuard).
type SessionChecker interface {
	Check(ctx context.Context, sessionID string, client model.ClientContext) (*model.Session, error)
	Attributes() []string
}

// SessionAuth — middleware, требующий действующую сессию.
type SessionAuth struct {
	guard  SessionChecker
	logger *slog.Logger
}

// NewSessionAuth создаёт middleware проверки сессии.
func NewSessionAuth(guard SessionChecker, logger *slog.Logger) *SessionAuth {
	return &SessionAuth{
		guard:  guard,
		logger: logger.With(slog.String("component", "session_auth")),
	}
}

// Middleware проверяет сессию и помещает model.Principal в контекст.
// Клиент получает единый ответ SESSION_INVALID без указания причины.
func (s *SessionAuth) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := SessionIDFromRequest(r)
			client := ClientContextFromRequest(r, s.guard.Attributes())

			sess, err := s.guard.Check(r.Context(), sessionID, client)
			if err != nil {
				if errors.Is(err, service.ErrPersistenceTimeout) {
					apierrors.PersistenceTimeout(w)
					return
				}
				s.logger.Debug("Сессия отклонена",
					slog.String("remote_addr", r.RemoteAddr),
					slog.String("error", err.Error()),
				)
				apierrors.SessionInvalid(w)
				return
			}

			p := model.Principal{
				ID:            sess.PrincipalID,
				Role:          sess.AssertedRole,
				SessionID:     sessionID,
				SourceAddress: client.SourceAddress,
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// SessionIDFromRequest возвращает идентификатор сессии: cookie имеет приоритет над заголовком.
func SessionIDFromRequest(r *http.Request) string {
	if c, err := r.Cookie(SessionCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	return strings.TrimSpace(r.Header.Get(SessionHeaderName))
}

// ClientContextFromRequest собирает атрибуты клиента для отпечатка.
// Имена атрибутов — имена заголовков в нижнем регистре, а также
// tls.version, tls.cipher и remote.ip.
func ClientContextFromRequest(r *http.Request, attributes []string) model.ClientContext {
	addr := sourceAddress(r)
	attrs := make(map[string]string, len(attributes))
	for _, name := range attributes {
		switch name {
		case attrTLSVersion:
			if r.TLS != nil {
				attrs[name] = tls.VersionName(r.TLS.Version)
			}
		case attrTLSCipher:
			if r.TLS != nil {
				attrs[name] = tls.CipherSuiteName(r.TLS.CipherSuite)
			}
		case attrRemoteIP:
			attrs[name] = addr
		default:
			attrs[name] = r.Header.Get(name)
		}
	}
	return model.ClientContext{Attributes: attrs, SourceAddress: addr}
}

// sourceAddress возвращает IP из RemoteAddr без порта.
func sourceAddress(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// PrincipalFromContext извлекает model.Principal из контекста запроса.
func PrincipalFromContext(ctx context.Context) (model.Principal, bool) {
	p, ok := ctx.Value(ContextKeyPrincipal).(model.Principal)
	return p, ok
}

// WithPrincipal помещает model.Principal в контекст.
func WithPrincipal(ctx context.Context, p model.Principal) context.Context {
	return context.WithValue(ctx, ContextKeyPrincipal, p)
}
