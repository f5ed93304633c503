package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
)

const testOpenAPIDoc = `
openapi: 3.0.3
info:
  title: test
  version: 1.0.0
servers:
  - url: https://gm.example.org
paths:
  /api/v1/exports:
    get:
      parameters:
        - name: status
          in: query
          schema:
            type: string
            enum: [pending, approved]
      responses:
        "200":
          description: ok
  /api/v1/access/check:
    post:
      requestBody:
        required: true
        content:
          application/json:
            schema:
              type: object
              properties:
                required_roles:
                  type: array
                  items:
                    type: string
      responses:
        "200":
          description: ok
`

func newTestRequestValidator(t *testing.T) *RequestValidator {
	t.Helper()
	doc, err := openapi3.NewLoader().LoadFromData([]byte(testOpenAPIDoc))
	if err != nil {
		t.Fatal(err)
	}
	v, err := NewRequestValidator(doc, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func TestRequestValidator(t *testing.T) {
	v := newTestRequestValidator(t)

	var gotBody string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusOK)
	})
	handler := v.Middleware()(next)

	tests := []struct {
		name     string
		method   string
		target   string
		body     string
		wantCode int
	}{
		{"допустимый статус", http.MethodGet, "/api/v1/exports?status=pending", "", http.StatusOK},
		{"недопустимый статус", http.MethodGet, "/api/v1/exports?status=bogus", "", http.StatusBadRequest},
		{"маршрут вне документа", http.MethodGet, "/api/v1/unknown", "", http.StatusOK},
		{"корректное тело", http.MethodPost, "/api/v1/access/check", `{"required_roles":["nurse"]}`, http.StatusOK},
		{"тело не по схеме", http.MethodPost, "/api/v1/access/check", `{"required_roles":"nurse"}`, http.StatusBadRequest},
		{"нет обязательного тела", http.MethodPost, "/api/v1/access/check", "", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotBody = ""
			var body io.Reader = http.NoBody
			if tt.body != "" {
				body = strings.NewReader(tt.body)
			}
			req := httptest.NewRequest(tt.method, tt.target, body)
			if tt.body != "" {
				req.Header.Set("Content-Type", "application/json")
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("хотели %d, получили %d: %s", tt.wantCode, rec.Code, rec.Body.String())
			}
			if tt.wantCode == http.StatusOK && gotBody != tt.body {
				t.Errorf("тело после проверки: хотели %q, получили %q", tt.body, gotBody)
			}
			if tt.wantCode == http.StatusBadRequest && !strings.Contains(rec.Body.String(), "VALIDATION_ERROR") {
				t.Errorf("хотели код VALIDATION_ERROR, получили %s", rec.Body.String())
			}
		})
	}
}
