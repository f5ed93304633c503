package keycloak

// TokenResponse — ответ token endpoint (Client Credentials flow).
type TokenResponse struct {
	AccessToken string `json:"access_token"` //nolint:gosec // G117: структура токена OAuth2
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// User — пользователь realm.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Enabled  bool   `json:"enabled"`
}

// Group — группа пользователя.
type Group struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Path string `json:"path"`
}

// Role — realm-роль пользователя.
type Role struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
