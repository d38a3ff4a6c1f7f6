package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/starford/feattree/internal/catalog"
	"github.com/starford/feattree/internal/models"
	"github.com/starford/feattree/internal/store"
	"github.com/starford/feattree/internal/testutil"
)

// testEnv builds a service and router over a temp project. An empty token
// disables auth.
func testEnv(t *testing.T, authToken string) http.Handler {
	t.Helper()
	p := testutil.TestProject(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := catalog.NewService(catalog.FileOpener(store.DriverModernc, p.DBPath), p.Docs, log)
	return NewRouter(svc, authToken != "", authToken, nil)
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeJSON[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func TestCreateAndGetFeature(t *testing.T) {
	router := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/features", map[string]any{
		"id": "AUTH.login", "name": "Login", "uses": []string{"INFRA.cache"},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	created := decodeJSON[models.Feature](t, w)
	if created.Status != models.StatusPlanned {
		t.Errorf("status = %q", created.Status)
	}

	w = do(t, router, http.MethodGet, "/features/AUTH.login", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	d := decodeJSON[map[string]any](t, w)
	if d["id"] != "AUTH.login" || d["linked_workflows"] == nil {
		t.Errorf("detail = %v", d)
	}
}

func TestPatchFeature(t *testing.T) {
	router := testEnv(t, "")
	do(t, router, http.MethodPost, "/features", map[string]any{"id": "AUTH", "name": "Auth", "description": "Sign in"})

	w := do(t, router, http.MethodPatch, "/features/AUTH", map[string]any{
		"status": "done", "files": []string{"auth.go"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("patch status = %d, body = %s", w.Code, w.Body.String())
	}
	f := decodeJSON[models.Feature](t, w)
	if f.Status != models.StatusDone || f.Description != "Sign in" || len(f.Files) != 1 {
		t.Errorf("after patch = %+v", f)
	}
}

func TestListAndSearchFeatures(t *testing.T) {
	router := testEnv(t, "")
	do(t, router, http.MethodPost, "/features", map[string]any{"id": "A", "name": "Login"})
	do(t, router, http.MethodPost, "/features", map[string]any{"id": "B", "name": "Reports"})

	list := decodeJSON[FeatureListResponse](t, do(t, router, http.MethodGet, "/features", nil))
	if len(list.Features) != 2 {
		t.Errorf("list = %+v", list)
	}
	search := decodeJSON[FeatureSearchResponse](t, do(t, router, http.MethodGet, "/features?q=login", nil))
	if len(search.Results) != 1 || search.Results[0].ID != "A" {
		t.Errorf("search = %+v", search)
	}
	empty := do(t, router, http.MethodGet, "/features?q=nothing", nil)
	if !strings.Contains(empty.Body.String(), `"results":[]`) {
		t.Errorf("empty search body = %s", empty.Body.String())
	}
}

func TestErrorStatusCodes(t *testing.T) {
	router := testEnv(t, "")
	do(t, router, http.MethodPost, "/features", map[string]any{"id": "P", "name": "Parent"})
	do(t, router, http.MethodPost, "/features", map[string]any{"id": "P.c", "name": "Child", "parent_id": "P", "status": "in-progress"})

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"missing feature", http.MethodGet, "/features/NOPE", nil, http.StatusNotFound, "not_found"},
		{"duplicate", http.MethodPost, "/features", map[string]any{"id": "P", "name": "x"}, http.StatusConflict, "duplicate_id"},
		{"protected", http.MethodDelete, "/features/P", nil, http.StatusConflict, "has_protected_children"},
		{"missing name", http.MethodPost, "/features", map[string]any{"id": "X"}, http.StatusBadRequest, "invalid_input"},
		{"unknown field", http.MethodPost, "/features", map[string]any{"id": "X", "name": "x", "color": "red"}, http.StatusBadRequest, "invalid_input"},
		{"bad status", http.MethodPatch, "/features/P", map[string]any{"status": "deleted"}, http.StatusBadRequest, "invalid_input"},
		{"missing workflow", http.MethodDelete, "/workflows/NOPE", nil, http.StatusNotFound, "not_found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, router, tt.method, tt.path, tt.body)
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.status, w.Body.String())
			}
			if body := decodeJSON[errResponse](t, w); body.Code != tt.code || body.OK {
				t.Errorf("body = %+v, want code %s", body, tt.code)
			}
		})
	}
}

func TestDeleteFeature(t *testing.T) {
	router := testEnv(t, "")
	do(t, router, http.MethodPost, "/features", map[string]any{"id": "A", "name": "a"})

	w := do(t, router, http.MethodDelete, "/features/A", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete status = %d", w.Code)
	}
	if res := decodeJSON[DeleteResponse](t, w); res.Type != models.DeleteHard || !res.OK {
		t.Errorf("delete = %+v", res)
	}
	if w := do(t, router, http.MethodGet, "/features/A", nil); w.Code != http.StatusNotFound {
		t.Errorf("get after hard delete = %d", w.Code)
	}
}

func TestWorkflowRoutes(t *testing.T) {
	router := testEnv(t, "")
	do(t, router, http.MethodPost, "/features", map[string]any{"id": "CART", "name": "Cart"})
	w := do(t, router, http.MethodPost, "/workflows", map[string]any{
		"id": "CHECKOUT", "name": "Checkout", "depends_on": []string{"CART"}, "mermaid": "graph TD",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	do(t, router, http.MethodPost, "/workflows", map[string]any{"id": "CHECKOUT.pay", "name": "Pay", "parent_id": "CHECKOUT"})

	d := decodeJSON[WorkflowDetail](t, do(t, router, http.MethodGet, "/workflows/CHECKOUT", nil))
	if len(d.LinkedFeatures) != 1 || d.LinkedFeatures[0].ID != "CART" {
		t.Errorf("linked = %+v", d.LinkedFeatures)
	}

	kids := decodeJSON[WorkflowListResponse](t, do(t, router, http.MethodGet, "/workflows/CHECKOUT/children", nil))
	if len(kids.Workflows) != 1 || kids.Workflows[0].ID != "CHECKOUT.pay" {
		t.Errorf("children = %+v", kids)
	}

	w = do(t, router, http.MethodPatch, "/workflows/CHECKOUT", map[string]any{"purpose": "Pay for the cart"})
	if w.Code != http.StatusOK {
		t.Fatalf("patch status = %d", w.Code)
	}
	search := decodeJSON[WorkflowSearchResponse](t, do(t, router, http.MethodGet, "/workflows?q=cart", nil))
	if len(search.Results) != 1 {
		t.Errorf("search = %+v", search)
	}
}

func TestDocuments(t *testing.T) {
	router := testEnv(t, "")
	do(t, router, http.MethodPost, "/features", map[string]any{"id": "AUTH", "name": "Authentication"})

	w := do(t, router, http.MethodGet, "/docs/features.md", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/markdown") {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.Contains(w.Body.String(), "## AUTH") {
		t.Errorf("body = %s", w.Body.String())
	}
	if w := do(t, router, http.MethodGet, "/docs/workflows.md", nil); !strings.HasPrefix(w.Body.String(), "# Workflows") {
		t.Errorf("workflows doc = %s", w.Body.String())
	}
	if w := do(t, router, http.MethodPost, "/reindex", nil); w.Code != http.StatusOK {
		t.Errorf("reindex status = %d", w.Code)
	}

	list := decodeJSON[DocumentListResponse](t, do(t, router, http.MethodGet, "/docs", nil))
	if len(list.Documents) != 2 || list.Documents[0].Path != "FEATURES.md" || list.Documents[0].Checksum == "" {
		t.Errorf("documents = %+v", list.Documents)
	}
}

func TestAuthMiddleware(t *testing.T) {
	router := testEnv(t, "secret")

	w := do(t, router, http.MethodGet, "/features", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no token: status = %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/features", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong token: status = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/features", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("valid token: status = %d", rec.Code)
	}
}
