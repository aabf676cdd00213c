package httpapp

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/insightsphere/insightsphere/internal/auth"
	"github.com/insightsphere/insightsphere/internal/blog"
	"github.com/insightsphere/insightsphere/internal/config"
	"github.com/insightsphere/insightsphere/internal/media"
	"github.com/insightsphere/insightsphere/internal/model"
	"github.com/insightsphere/insightsphere/internal/store"
	"github.com/insightsphere/insightsphere/internal/store/sqlite"
)

type allowAllLimiter struct{}

func (a allowAllLimiter) Allow(key string, limit int, window time.Duration) (bool, time.Duration) {
	return true, 0
}

func newUnitServer(t *testing.T, cfg config.Config) *Server {
	t.Helper()
	st, err := sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_")))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	signer, _ := auth.NewTokenSigner("")
	if cfg.UploadDir == "" {
		cfg.UploadDir = t.TempDir()
	}
	server, err := NewServer(Deps{
		Store:   st,
		Auth:    auth.NewService(st, signer, nil, auth.Options{}),
		Limiter: allowAllLimiter{},
		Config:  cfg,
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return server
}

func TestNewServerRequiresDeps(t *testing.T) {
	if _, err := NewServer(Deps{}); err == nil {
		t.Fatalf("expected error without store and auth")
	}
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{store.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("wrapped: %w", store.ErrNotFound), http.StatusNotFound},
		{store.ErrDuplicateSubscriber, http.StatusConflict},
		{auth.ErrEmailTaken, http.StatusConflict},
		{auth.ErrNotVerified, http.StatusForbidden},
		{auth.ErrBlocked, http.StatusForbidden},
		{auth.ErrNotAuthor, http.StatusForbidden},
		{auth.ErrTokenExpired, http.StatusUnauthorized},
		{auth.ErrInvalidCredentials, http.StatusBadRequest},
		{auth.ErrWeakPassword, http.StatusBadRequest},
		{&blog.ValidationError{Field: "title", Reason: "is required"}, http.StatusBadRequest},
		{fmt.Errorf("%w: bad header", media.ErrNotImage), http.StatusBadRequest},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		if got := statusFor(c.err); got != c.want {
			t.Fatalf("statusFor(%v): expected %d, got %d", c.err, c.want, got)
		}
	}
}

func TestPostRole(t *testing.T) {
	cases := []struct {
		user, requested, want model.Role
	}{
		{model.RoleAuthor, model.RoleAdmin, model.RoleAuthor},
		{model.RoleAuthor, "", model.RoleAuthor},
		{model.RoleAdmin, "", model.RoleAdmin},
		{model.RoleAdmin, model.RoleAuthor, model.RoleAuthor},
		{model.RoleAdmin, model.RoleReader, model.RoleAdmin},
	}
	for _, c := range cases {
		if got := postRole(c.user, c.requested); got != c.want {
			t.Fatalf("postRole(%s, %q): expected %s, got %s", c.user, c.requested, c.want, got)
		}
	}
}

func TestRouteBucket(t *testing.T) {
	got := routeBucket(http.MethodGet, "/api/blog/BlogId/{id}")
	if got != "http.get.api.blog.BlogId.id" {
		t.Fatalf("unexpected bucket %q", got)
	}
}

func TestCORSPreflight(t *testing.T) {
	server := newUnitServer(t, config.Config{ClientURL: "http://localhost:5173"})

	req := httptest.NewRequest(http.MethodOptions, "/api/login", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp := httptest.NewRecorder()
	server.ServeHTTP(resp, req)
	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
	if resp.Header().Get("Access-Control-Allow-Origin") != "http://localhost:5173" || resp.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Fatalf("missing cors headers: %v", resp.Header())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/blog/AllBlogs", nil)
	req.Header.Set("Origin", "http://evil.example")
	resp = httptest.NewRecorder()
	server.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if resp.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("foreign origin reflected")
	}
	if resp.Header().Get("X-Request-Id") == "" {
		t.Fatalf("missing request id")
	}
}

func TestUnknownAPIRoute(t *testing.T) {
	server := newUnitServer(t, config.Config{})

	req := httptest.NewRequest(http.MethodGet, "/api/nope", nil)
	resp := httptest.NewRecorder()
	server.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
	var payload map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("json parse: %v", err)
	}
	if payload["success"] != false || payload["message"] != "not found" {
		t.Fatalf("unexpected envelope %v", payload)
	}
}

func TestProtectedRouteWithoutToken(t *testing.T) {
	server := newUnitServer(t, config.Config{})

	req := httptest.NewRequest(http.MethodGet, "/api/admin/dashboard", nil)
	resp := httptest.NewRecorder()
	server.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/admin/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: tokenCookie, Value: "garbage"})
	resp = httptest.NewRecorder()
	server.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad cookie, got %d", resp.Code)
	}
}

func TestOpenAPIDocuments(t *testing.T) {
	server := newUnitServer(t, config.Config{})

	req := httptest.NewRequest(http.MethodGet, "/openapi.json", nil)
	resp := httptest.NewRecorder()
	server.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var doc map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &doc); err != nil {
		t.Fatalf("openapi json: %v", err)
	}
	paths, _ := doc["paths"].(map[string]any)
	if _, ok := paths["/api/blog/BlogId/{id}"]; !ok {
		t.Fatalf("post route missing from document")
	}

	req = httptest.NewRequest(http.MethodGet, "/openapi.yaml", nil)
	resp = httptest.NewRecorder()
	server.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), "swagger: \"2.0\"") {
		t.Fatalf("unexpected yaml response %d: %.200s", resp.Code, resp.Body.String())
	}
}

func TestSPAFallback(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>app</html>"), 0o644); err != nil {
		t.Fatalf("write index: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "app.js"), []byte("console.log(1)"), 0o644); err != nil {
		t.Fatalf("write asset: %v", err)
	}
	server := newUnitServer(t, config.Config{StaticDir: dir})

	for path, want := range map[string]string{"/app.js": "console.log(1)", "/blog/12": "<html>app</html>"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		resp := httptest.NewRecorder()
		server.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK || resp.Body.String() != want {
			t.Fatalf("%s: got %d %q", path, resp.Code, resp.Body.String())
		}
	}
}
