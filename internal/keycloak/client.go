// Пакет keycloak — клиент Keycloak Admin REST API для чтения
// пользователей и их групп (источник авторитетной роли персонала).
// Токен сервисного аккаунта кэшируется и обновляется за 30s до истечения.
package keycloak

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// ErrUserNotFound — пользователь отсутствует в realm.
var ErrUserNotFound = errors.New("пользователь Keycloak не найден")

// Client — клиент Keycloak Admin REST API.
type Client struct {
	baseURL      string
	realm        string
	clientID     string
	clientSecret string

	httpClient *http.Client
	logger     *slog.Logger

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// New создаёт клиент. httpClient == nil — клиент с таймаутом 10s.
func New(baseURL, realm, clientID, clientSecret string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		realm:        realm,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   httpClient,
		logger:       logger.With(slog.String("component", "keycloak_client")),
	}
}

func (c *Client) tokenEndpoint() string {
	return fmt.Sprintf("%s/realms/%s/protocol/openid-connect/token", c.baseURL, c.realm)
}

func (c *Client) adminBaseURL() string {
	return fmt.Sprintf("%s/admin/realms/%s", c.baseURL, c.realm)
}

// token возвращает действующий access token, при необходимости запрашивая новый.
func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Add(30*time.Second).Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenEndpoint(), strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("создание запроса токена: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("запрос токена Keycloak: %w", err)
	}

	var tr TokenResponse
	if err := decodeResponse(resp, &tr); err != nil {
		return "", fmt.Errorf("токен Keycloak: %w", err)
	}

	c.accessToken = tr.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	c.logger.Debug("Токен Keycloak обновлён", slog.Time("expires_at", c.tokenExpiry))
	return c.accessToken, nil
}

// get выполняет авторизованный GET к Admin REST API.
func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	tok, err := c.token(ctx)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.adminBaseURL()+path, nil)
	if err != nil {
		return nil, fmt.Errorf("создание запроса: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("Accept", "application/json")
	return c.httpClient.Do(req)
}

// decodeResponse проверяет статус и декодирует JSON в target.
func decodeResponse(resp *http.Response, target any) error {
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("Keycloak вернул статус %d: %s", resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("декодирование ответа Keycloak: %w", err)
	}
	return nil
}

// GetUser возвращает пользователя по ID; ErrUserNotFound при 404.
func (c *Client) GetUser(ctx context.Context, id string) (*User, error) {
	resp, err := c.get(ctx, "/users/"+url.PathEscape(id))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, ErrUserNotFound
	}

	var user User
	if err := decodeResponse(resp, &user); err != nil {
		return nil, fmt.Errorf("GetUser: %w", err)
	}
	return &user, nil
}

// GetUserGroups возвращает имена групп пользователя; ErrUserNotFound при 404.
func (c *Client) GetUserGroups(ctx context.Context, userID string) ([]string, error) {
	resp, err := c.get(ctx, "/users/"+url.PathEscape(userID)+"/groups")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, ErrUserNotFound
	}

	var groups []Group
	if err := decodeResponse(resp, &groups); err != nil {
		return nil, fmt.Errorf("GetUserGroups: %w", err)
	}
	names := make([]string, 0, len(groups))
	for _, g := range groups {
		names = append(names, g.Name)
	}
	return names, nil
}

// GetUserRealmRoles возвращает имена realm-ролей пользователя; ErrUserNotFound при 404.
func (c *Client) GetUserRealmRoles(ctx context.Context, userID string) ([]string, error) {
	resp, err := c.get(ctx, "/users/"+url.PathEscape(userID)+"/role-mappings/realm")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, ErrUserNotFound
	}

	var roles []Role
	if err := decodeResponse(resp, &roles); err != nil {
		return nil, fmt.Errorf("GetUserRealmRoles: %w", err)
	}
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, r.Name)
	}
	return names, nil
}

// CheckReady проверяет получение токена для /health/ready.
func (c *Client) CheckReady() (string, string) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if _, err := c.token(ctx); err != nil {
		return "fail", fmt.Sprintf("Keycloak недоступен: %v", err)
	}
	return "ok", "токен сервисного аккаунта получен"
}
