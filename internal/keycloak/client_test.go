package keycloak

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// setupMockKeycloak поднимает mock Keycloak с token endpoint и Admin API.
func setupMockKeycloak(t *testing.T, tokenRequests *atomic.Int32, adminHandler http.HandlerFunc) *Client {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/realms/carecenter/protocol/openid-connect/token", func(w http.ResponseWriter, r *http.Request) {
		if tokenRequests != nil {
			tokenRequests.Add(1)
		}
		if err := r.ParseForm(); err != nil || r.PostForm.Get("client_secret") != "test-secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(TokenResponse{AccessToken: "test-access-token", TokenType: "Bearer", ExpiresIn: 300})
	})
	mux.HandleFunc("/admin/realms/carecenter/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-access-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		adminHandler(w, r)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return New(server.URL, "carecenter", "governance-core", "test-secret", server.Client(), testLogger())
}

func TestClient_GetUserGroups(t *testing.T) {
	var tokens atomic.Int32
	client := setupMockKeycloak(t, &tokens, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/admin/realms/carecenter/users/u-1/groups":
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode([]Group{
				{ID: "g1", Name: "rehab-nurses", Path: "/rehab-nurses"},
				{ID: "g2", Name: "all-staff", Path: "/all-staff"},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	ctx := context.Background()
	groups, err := client.GetUserGroups(ctx, "u-1")
	if err != nil {
		t.Fatalf("GetUserGroups: %v", err)
	}
	if len(groups) != 2 || groups[0] != "rehab-nurses" {
		t.Errorf("хотели [rehab-nurses all-staff], получили %v", groups)
	}

	// Второй вызов использует кэшированный токен
	if _, err := client.GetUserGroups(ctx, "u-1"); err != nil {
		t.Fatalf("GetUserGroups: %v", err)
	}
	if n := tokens.Load(); n != 1 {
		t.Errorf("хотели 1 запрос токена, получили %d", n)
	}

	if _, err := client.GetUserGroups(ctx, "ghost"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("хотели ErrUserNotFound, получили %v", err)
	}
}

func TestClient_GetUserRealmRoles(t *testing.T) {
	client := setupMockKeycloak(t, nil, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/admin/realms/carecenter/users/u-1/role-mappings/realm":
			_ = json.NewEncoder(w).Encode([]Role{{ID: "r1", Name: "doctor"}, {ID: "r2", Name: "offline_access"}})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	ctx := context.Background()
	roles, err := client.GetUserRealmRoles(ctx, "u-1")
	if err != nil {
		t.Fatalf("GetUserRealmRoles: %v", err)
	}
	if len(roles) != 2 || roles[0] != "doctor" {
		t.Errorf("хотели [doctor offline_access], получили %v", roles)
	}
	if _, err := client.GetUserRealmRoles(ctx, "ghost"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("хотели ErrUserNotFound, получили %v", err)
	}
}

func TestClient_GetUser(t *testing.T) {
	client := setupMockKeycloak(t, nil, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/admin/realms/carecenter/users/u-1":
			_ = json.NewEncoder(w).Encode(User{ID: "u-1", Username: "nurse-1", Enabled: true})
		case "/admin/realms/carecenter/users/broken":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	ctx := context.Background()
	u, err := client.GetUser(ctx, "u-1")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if u.Username != "nurse-1" || !u.Enabled {
		t.Errorf("неверный пользователь: %+v", u)
	}
	if _, err := client.GetUser(ctx, "ghost"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("хотели ErrUserNotFound, получили %v", err)
	}
	if _, err := client.GetUser(ctx, "broken"); err == nil || errors.Is(err, ErrUserNotFound) {
		t.Errorf("500: хотели ошибку, отличную от ErrUserNotFound, получили %v", err)
	}
}

func TestClient_CheckReady(t *testing.T) {
	client := setupMockKeycloak(t, nil, func(w http.ResponseWriter, r *http.Request) {})
	if status, msg := client.CheckReady(); status != "ok" {
		t.Errorf("хотели ok, получили %s (%s)", status, msg)
	}

	bad := New("http://127.0.0.1:1", "carecenter", "x", "y", nil, testLogger())
	if status, _ := bad.CheckReady(); status != "fail" {
		t.Errorf("хотели fail, получили %s", status)
	}
}
