package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"slug-portal/backend/internal/audit/domain"
	"slug-portal/backend/internal/membership/service"
	"slug-portal/backend/internal/platform/rbac"
	"slug-portal/backend/internal/server/interceptors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type mockGate struct {
	err      error
	gotSlug  string
	gotActor string
}

func (m *mockGate) AuthorizeAdmin(_ context.Context, slug, actor string) error {
	m.gotSlug, m.gotActor = slug, actor
	return m.err
}

type mockLister struct {
	logs              []*domain.AuditLog
	err               error
	block             bool // wait for ctx to end
	called            bool
	gotSlug           string
	gotLimit, gotOffs int32
}

func (m *mockLister) ListBySlug(ctx context.Context, slug string, limit, offset int32) ([]*domain.AuditLog, error) {
	m.called = true
	m.gotSlug = slug
	m.gotLimit, m.gotOffs = limit, offset
	if m.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return m.logs, m.err
}

func serve(t *testing.T, h *Handler, target, email string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	r := gin.New()
	r.Use(interceptors.Identity(interceptors.IdentityOptions{}))
	h.Register(r)
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if email != "" {
		req.Header.Set(interceptors.DefaultIdentityHeader, email)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return w, body
}

func TestList(t *testing.T) {
	logs := &mockLister{logs: []*domain.AuditLog{{ID: "a1", Slug: "acme", Actor: "a@x.com", Action: "member_invited", Target: "b@x.com", IP: "1.2.3.4"}}}
	gate := &mockGate{}
	w, body := serve(t, NewHandler(gate, logs, 0), "/api/slugs/acme/audit?limit=10&offset=5", "a@x.com")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %v", w.Code, body)
	}
	if gate.gotActor != "a@x.com" {
		t.Errorf("gate actor = %q", gate.gotActor)
	}
	if logs.gotLimit != 10 || logs.gotOffs != 5 {
		t.Errorf("limit/offset = %d/%d", logs.gotLimit, logs.gotOffs)
	}
	items := body["items"].([]any)
	if len(items) != 1 || items[0].(map[string]any)["action"] != "member_invited" {
		t.Errorf("items = %v", items)
	}
}

func TestList_PageBounds(t *testing.T) {
	testCases := []struct {
		query      string
		wantLimit  int32
		wantOffset int32
	}{
		{"", defaultPageSize, 0},
		{"?limit=1000", defaultPageSize, 0},
		{"?limit=-3&offset=-1", defaultPageSize, 0},
		{"?limit=abc", defaultPageSize, 0},
		{"?limit=100&offset=20", 100, 20},
	}
	for _, tc := range testCases {
		logs := &mockLister{}
		serve(t, NewHandler(&mockGate{}, logs, 0), "/api/slugs/acme/audit"+tc.query, "a@x.com")
		if logs.gotLimit != tc.wantLimit || logs.gotOffs != tc.wantOffset {
			t.Errorf("%q: limit/offset = %d/%d, want %d/%d", tc.query, logs.gotLimit, logs.gotOffs, tc.wantLimit, tc.wantOffset)
		}
	}
}

func TestList_Forbidden(t *testing.T) {
	logs := &mockLister{}
	gate := &mockGate{err: &service.ForbiddenError{Reason: rbac.ReasonNotAdmin}}
	w, body := serve(t, NewHandler(gate, logs, 0), "/api/slugs/acme/audit", "b@x.com")
	if w.Code != http.StatusForbidden || body["error"] != "forbidden:not_admin" {
		t.Errorf("status = %d body = %v", w.Code, body)
	}
	if logs.called {
		t.Error("audit store must not be read when the admin check fails")
	}
}

func TestList_StoreError(t *testing.T) {
	logs := &mockLister{err: errors.New("db down")}
	w, body := serve(t, NewHandler(&mockGate{}, logs, 0), "/api/slugs/acme/audit", "a@x.com")
	if w.Code != http.StatusInternalServerError || body["error"] != "exception:store_unavailable" {
		t.Errorf("status = %d body = %v", w.Code, body)
	}
}

func TestList_TrimsSlugForGateAndStore(t *testing.T) {
	logs := &mockLister{}
	gate := &mockGate{}
	w, body := serve(t, NewHandler(gate, logs, 0), "/api/slugs/acme%20/audit", "a@x.com")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %v", w.Code, body)
	}
	if gate.gotSlug != "acme" || logs.gotSlug != "acme" {
		t.Errorf("gate slug = %q, store slug = %q, want both %q", gate.gotSlug, logs.gotSlug, "acme")
	}
}

func TestList_StoreTimeout(t *testing.T) {
	logs := &mockLister{block: true}
	start := time.Now()
	w, body := serve(t, NewHandler(&mockGate{}, logs, 20*time.Millisecond), "/api/slugs/acme/audit", "a@x.com")
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("audit read took %v, want it bounded by the handler timeout", elapsed)
	}
	if w.Code != http.StatusInternalServerError || body["error"] != "exception:store_unavailable" {
		t.Errorf("status = %d body = %v", w.Code, body)
	}
}
