package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"media-share/internal/access"
	"media-share/internal/cast"
	"media-share/internal/database"
	"media-share/internal/transcoder"
)

type testEnv struct {
	h           *Handlers
	db          *database.Database
	model       *access.Model
	privateRoot string
	sharedDir   string
	toolsDir    string
	alice       access.Identity
}

// setupTestHandlers builds handlers over a real SQLite store, real temp
// directories and fake ffmpeg/ffprobe scripts. User alice has the password
// "secret" and read access to the shared directory "movies".
func setupTestHandlers(t *testing.T, ffmpegBody, ffprobeBody string, caster cast.Caster) *testEnv {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake tools are shell scripts")
	}

	tmpDir := t.TempDir()
	env := &testEnv{
		privateRoot: filepath.Join(tmpDir, "private"),
		sharedDir:   filepath.Join(tmpDir, "movies"),
		toolsDir:    filepath.Join(tmpDir, "tools"),
	}
	for _, dir := range []string{env.privateRoot, env.sharedDir, env.toolsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}

	ctx := context.Background()
	db, err := database.New(ctx, filepath.Join(tmpDir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	env.db = db

	user, err := db.AddUser(ctx, "alice", "secret")
	if err != nil {
		t.Fatalf("AddUser failed: %v", err)
	}
	env.alice = access.Identity{UserID: user.ID, Name: user.Name}

	if _, err := db.AddDirectory(ctx, env.sharedDir, "movies"); err != nil {
		t.Fatalf("AddDirectory failed: %v", err)
	}
	env.model = access.New(db, env.privateRoot, nil)
	if err := env.model.Grant(ctx, "alice", "movies", access.LevelRead); err != nil {
		t.Fatalf("Grant failed: %v", err)
	}

	ffmpeg := filepath.Join(env.toolsDir, "ffmpeg")
	ffprobe := filepath.Join(env.toolsDir, "ffprobe")
	writeScript(t, ffmpeg, "printf '%s\\n' \"$@\" > '"+filepath.Join(env.toolsDir, "args.txt")+"'\n"+ffmpegBody)
	writeScript(t, ffprobe, ffprobeBody)

	engine := transcoder.New(transcoder.Config{
		FFmpegPath:   ffmpeg,
		FFprobePath:  ffprobe,
		KillGrace:    200 * time.Millisecond,
		ProbeTimeout: 5 * time.Second,
	})
	t.Cleanup(engine.Cleanup)

	env.h = New(db, env.model, engine, caster, nil)
	return env
}

func writeScript(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// authed attaches alice's identity, as RequireAuth would.
func (env *testEnv) authed(r *http.Request) *http.Request {
	return r.WithContext(access.WithIdentity(r.Context(), env.alice))
}

// createLink mints a link for alice.
func (env *testEnv) createLink(t *testing.T, virtualPath string) string {
	t.Helper()
	token, err := env.model.CreateLink(context.Background(), env.alice, virtualPath)
	if err != nil {
		t.Fatalf("CreateLink(%q) failed: %v", virtualPath, err)
	}
	return token
}

func (env *testEnv) encoderRan() bool {
	_, err := os.Stat(filepath.Join(env.toolsDir, "args.txt"))
	return err == nil
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(bytes.NewReader(w.Body.Bytes())).Decode(v); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
}

func TestHealthCheck(t *testing.T) {
	env := setupTestHandlers(t, "", "", nil)

	w := httptest.NewRecorder()
	env.h.HealthCheck(w, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var resp HealthResponse
	decodeJSON(t, w, &resp)
	if resp.Status != statusHealthy || !resp.Ready {
		t.Errorf("unexpected health response: %+v", resp)
	}
	if resp.ActiveStreams != 0 {
		t.Errorf("ActiveStreams = %d, want 0", resp.ActiveStreams)
	}
}

func TestReadinessAfterDatabaseClosed(t *testing.T) {
	env := setupTestHandlers(t, "", "", nil)
	env.db.Close()

	w := httptest.NewRecorder()
	env.h.ReadinessCheck(w, httptest.NewRequest(http.MethodGet, "/readyz", http.NoBody))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", w.Code)
	}
}

func TestLivenessCheckHead(t *testing.T) {
	env := setupTestHandlers(t, "", "", nil)

	w := httptest.NewRecorder()
	env.h.LivenessCheck(w, httptest.NewRequest(http.MethodHead, "/livez", http.NoBody))
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if w.Body.Len() != 0 {
		t.Errorf("HEAD response has a body: %q", w.Body.String())
	}
}

func TestGetVersion(t *testing.T) {
	env := setupTestHandlers(t, "", "", nil)

	w := httptest.NewRecorder()
	env.h.GetVersion(w, httptest.NewRequest(http.MethodGet, "/version", http.NoBody))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var info map[string]string
	decodeJSON(t, w, &info)
	if info["version"] == "" || info["goVersion"] == "" {
		t.Errorf("missing build info: %v", info)
	}
}

func TestMetricsHandler(t *testing.T) {
	env := setupTestHandlers(t, "", "", nil)

	w := httptest.NewRecorder()
	env.h.MetricsHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "promhttp_metric_handler_requests_total") {
		t.Error("scrape counter missing from output")
	}
}
