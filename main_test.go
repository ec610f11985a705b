package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"media-share/internal/access"
	"media-share/internal/database"
	"media-share/internal/handlers"
	"media-share/internal/middleware"
	"media-share/internal/transcoder"

	"github.com/gorilla/mux"
)

// setupTestRouter wires the real router over a temp database.
func setupTestRouter(t *testing.T, rps float64, burst int) *mux.Router {
	t.Helper()

	tmpDir := t.TempDir()
	db, err := database.New(context.Background(), filepath.Join(tmpDir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := db.AddUser(context.Background(), "alice", "secret"); err != nil {
		t.Fatalf("AddUser failed: %v", err)
	}

	model := access.New(db, filepath.Join(tmpDir, "private"), nil)
	engine := transcoder.New(transcoder.Config{
		FFmpegPath:  filepath.Join(tmpDir, "missing-ffmpeg"),
		FFprobePath: filepath.Join(tmpDir, "missing-ffprobe"),
	})
	h := handlers.New(db, model, engine, nil, nil)

	limits := routeLimits{
		public: middleware.NewRateLimiter(middleware.RateLimitConfig{RequestsPerSecond: rps, Burst: burst, Scope: "public"}),
		login:  middleware.NewRateLimiter(middleware.RateLimitConfig{RequestsPerSecond: rps, Burst: burst, Scope: "login"}),
	}
	return setupRouter(h, limits, nil)
}

func serve(router http.Handler, method, target, remoteAddr string, header http.Header) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, target, http.NoBody)
	r.RemoteAddr = remoteAddr
	for k, v := range header {
		r.Header[k] = v
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)
	return w
}

func TestRouterAuthBoundaries(t *testing.T) {
	router := setupTestRouter(t, 0, 1)

	tests := []struct {
		name   string
		method string
		target string
		header http.Header
		want   int
	}{
		{"health is public", "GET", "/health", nil, http.StatusOK},
		{"liveness is public", "HEAD", "/livez", nil, http.StatusOK},
		{"version is public", "GET", "/version", nil, http.StatusOK},
		{"files need auth", "GET", "/api/files/", nil, http.StatusUnauthorized},
		{"links need auth", "POST", "/api/links", nil, http.StatusUnauthorized},
		{"check without session", "GET", "/api/auth/check", nil, http.StatusUnauthorized},
		{"files with basic auth", "GET", "/api/files/", basicAuth("alice", "secret"), http.StatusOK},
		{"unknown link", "GET", "/link/abcd1234", nil, http.StatusNotFound},
		{"range rejected before link lookup", "GET", "/stream/abcd1234", http.Header{"Range": {"bytes=5-"}}, http.StatusRequestedRangeNotSatisfiable},
		{"unknown stream link", "GET", "/stream/abcd1234", nil, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(router, tt.method, tt.target, "192.0.2.10:5000", tt.header)
			if w.Code != tt.want {
				t.Errorf("%s %s: status %d, want %d", tt.method, tt.target, w.Code, tt.want)
			}
		})
	}
}

func basicAuth(user, password string) http.Header {
	r := httptest.NewRequest("GET", "/", http.NoBody)
	r.SetBasicAuth(user, password)
	return http.Header{"Authorization": r.Header["Authorization"]}
}

func TestRouterCastIsLocalOnly(t *testing.T) {
	router := setupTestRouter(t, 0, 1)

	w := serve(router, "GET", "/cast?list", "203.0.113.7:4000", nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("remote cast: status %d, want 403", w.Code)
	}

	// A local client reaches the handler, which has no backend.
	w = serve(router, "GET", "/cast?list", "192.168.1.20:4000", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("local cast: status %d, want 503", w.Code)
	}

	// Forwarded headers do not make a remote client local.
	w = serve(router, "GET", "/cast?list", "203.0.113.7:4000", http.Header{"X-Forwarded-For": {"127.0.0.1"}})
	if w.Code != http.StatusForbidden {
		t.Errorf("spoofed cast: status %d, want 403", w.Code)
	}
}

func TestRouterRateLimitsPublicRoutes(t *testing.T) {
	router := setupTestRouter(t, 1, 2)

	var codes []int
	for i := 0; i < 4; i++ {
		codes = append(codes, serve(router, "GET", "/link/abcd1234", "198.51.100.1:1000", nil).Code)
	}
	if codes[0] != http.StatusNotFound || codes[1] != http.StatusNotFound {
		t.Fatalf("first requests = %v, want 404s", codes)
	}
	if codes[3] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want a 429 once the burst is spent", codes)
	}

	// Another client has its own bucket.
	if w := serve(router, "GET", "/link/abcd1234", "198.51.100.2:1000", nil); w.Code != http.StatusNotFound {
		t.Errorf("other client: status %d, want 404", w.Code)
	}

	// Health checks are never limited.
	for i := 0; i < 5; i++ {
		if w := serve(router, "GET", "/livez", "198.51.100.1:1000", nil); w.Code != http.StatusOK {
			t.Fatalf("livez: status %d", w.Code)
		}
	}
}

func TestRouterCompressesAPI(t *testing.T) {
	router := setupTestRouter(t, 0, 1)

	header := basicAuth("alice", "secret")
	header.Set("Accept-Encoding", "gzip")
	w := serve(router, "GET", "/api/files/", "192.0.2.10:5000", header)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	if !strings.Contains(w.Header().Get("Vary"), "Accept-Encoding") {
		t.Errorf("Vary = %q", w.Header().Get("Vary"))
	}
}

func TestLoginRoute(t *testing.T) {
	router := setupTestRouter(t, 0, 1)

	r := httptest.NewRequest("POST", "/api/auth/login", strings.NewReader(`{"username":"alice","password":"secret"}`))
	r.RemoteAddr = "192.0.2.10:5000"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("login status %d", w.Code)
	}

	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == handlers.SessionCookieName {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatal("no session cookie")
	}

	r = httptest.NewRequest("GET", "/api/files/", http.NoBody)
	r.AddCookie(cookie)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Errorf("files with session: status %d", w.Code)
	}
}
