package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"event-validation-service/internal/models"
	"event-validation-service/internal/schema"
	"event-validation-service/internal/schema/store"
)

const loginSchema = `
event: {name: login, version: 1}
validation:
  payload:
    user: {of: string, is: required}
    password: {of: string, is: [required, encrypted]}
`

func newTestRouter(t *testing.T, withRegistry bool) (http.Handler, *store.MemorySource) {
	t.Helper()
	mem := store.NewMemorySource()
	if err := mem.Put(context.Background(), schema.Key{Name: "login", Version: 1}, []byte(loginSchema)); err != nil {
		t.Fatalf("failed to register schema: %v", err)
	}
	cache := store.NewCache(mem)
	deps := Deps{
		Validator: schema.New(cache),
		Schemas:   cache,
		Lister:    mem,
	}
	if withRegistry {
		deps.Registry = mem
	}
	return NewRouter(deps), mem
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoints(t *testing.T) {
	h, _ := newTestRouter(t, false)

	for _, path := range []string{"/v1/liveness", "/v1/readiness"} {
		rec := do(t, h, http.MethodGet, path, "")
		if rec.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, rec.Code)
		}
	}
}

func TestReadiness_NotReady(t *testing.T) {
	h := NewRouter(Deps{Ready: func() bool { return false }})

	rec := do(t, h, http.MethodGet, "/v1/readiness", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}

func TestValidateEndpoint(t *testing.T) {
	h, _ := newTestRouter(t, false)

	tests := []struct {
		name    string
		body    string
		status  int
		success bool
		errors  int
	}{
		{"valid", `{"name":"login","version":1,"id":"e1","payload":{"user":"bob","password":"x"}}`, http.StatusOK, true, 0},
		{"invalid", `{"name":"login","version":1,"payload":{"user":1}}`, http.StatusOK, false, 2},
		{"unknown schema", `{"name":"logout","version":1}`, http.StatusNotFound, false, 0},
		{"bad json", `{"name":`, http.StatusBadRequest, false, 0},
		{"no name", `{"version":1}`, http.StatusBadRequest, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/v1/events:validate", tt.body)
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
			if tt.status != http.StatusOK {
				return
			}
			var report models.ValidationReport
			if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
				t.Fatalf("failed to decode report: %v", err)
			}
			if report.Success != tt.success {
				t.Errorf("expected success %v, got %v", tt.success, report.Success)
			}
			if len(report.Errors) != tt.errors {
				t.Errorf("expected %d errors, got %+v", tt.errors, report.Errors)
			}
			if report.EventID == "" {
				t.Error("expected event id in report")
			}
		})
	}
}

func TestGetSchema(t *testing.T) {
	h, _ := newTestRouter(t, false)

	rec := do(t, h, http.MethodGet, "/v1/schemas/login/versions/1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"payload":{"user":{"is":["required"],"of":"string"}`) {
		t.Errorf("expected ordered payload fields, got %s", body)
	}

	if rec := do(t, h, http.MethodGet, "/v1/schemas/login/versions/2", ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/v1/schemas/login/versions/x", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestListSchemas(t *testing.T) {
	h, _ := newTestRouter(t, false)

	rec := do(t, h, http.MethodGet, "/v1/schemas", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	expected := `{"schemas":[{"name":"login","version":1}]}` + "\n"
	if rec.Body.String() != expected {
		t.Errorf("expected %s, got %s", expected, rec.Body.String())
	}
}

func TestPutSchema(t *testing.T) {
	signup := "event: {name: signup, version: 1}\nvalidation:\n  payload:\n    email: string\n"

	tests := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"created", "/v1/schemas/signup/versions/1", signup, http.StatusCreated},
		{"same again", "/v1/schemas/login/versions/1", loginSchema, http.StatusCreated},
		{"conflict", "/v1/schemas/login/versions/1", strings.Replace(loginSchema, "password", "pin", 1), http.StatusConflict},
		{"identity mismatch", "/v1/schemas/signup/versions/2", signup, http.StatusBadRequest},
		{"lint failure", "/v1/schemas/signup/versions/3", "event: {name: signup, version: 3}\n", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newTestRouter(t, true)
			rec := do(t, h, http.MethodPut, tt.path, tt.body)
			if rec.Code != tt.status {
				t.Errorf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestPutSchema_ThenValidate(t *testing.T) {
	h, _ := newTestRouter(t, true)

	signup := "event: {name: signup, version: 1}\nvalidation:\n  payload:\n    email: {of: string, is: required}\n"
	if rec := do(t, h, http.MethodPut, "/v1/schemas/signup/versions/1", signup); rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec := do(t, h, http.MethodPost, "/v1/events:validate", `{"name":"signup","version":1,"payload":{}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Element 'email' is required") {
		t.Errorf("expected required error, got %s", rec.Body.String())
	}
}

func TestPutSchema_ReadOnly(t *testing.T) {
	h, _ := newTestRouter(t, false)

	rec := do(t, h, http.MethodPut, "/v1/schemas/login/versions/1", loginSchema)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
}
