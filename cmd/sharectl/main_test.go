package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"media-share/internal/access"
	"media-share/internal/database"
)

// setupTestApp opens a fresh database and returns an app whose password
// prompts are answered from passwords in order.
func setupTestApp(t *testing.T, passwords ...string) (a *app, out, errOut *bytes.Buffer) {
	t.Helper()

	db, err := database.New(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("failed to close database: %v", err)
		}
	})

	out, errOut = &bytes.Buffer{}, &bytes.Buffer{}
	input := strings.Join(passwords, "\n")
	if input != "" {
		input += "\n"
	}
	return newApp(db, out, errOut, linePasswords(strings.NewReader(input))), out, errOut
}

func TestUnknownCommandIsSanitized(t *testing.T) {
	a, _, errOut := setupTestApp(t)

	if code := a.run(context.Background(), []string{"rm -rf\x1b[2J"}); code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if !strings.Contains(errOut.String(), "Unknown command: rm_-rf__2J") {
		t.Errorf("stderr = %q", errOut.String())
	}
	if strings.Contains(errOut.String(), "\x1b") {
		t.Error("escape sequence echoed")
	}
}

func TestSanitizeCommand(t *testing.T) {
	tests := map[string]string{
		"status":   "status",
		"user-add": "user-add",
		"a b":      "a_b",
		"x;y|z":    "x_y_z",
		"héllo":    "h_llo",
		"":         "",
	}
	for in, want := range tests {
		if got := sanitizeCommand(in); got != want {
			t.Errorf("sanitizeCommand(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestUserAdd(t *testing.T) {
	a, out, errOut := setupTestApp(t, "secret1", "secret1")
	ctx := context.Background()

	if code := a.run(ctx, []string{"user", "add", "alice"}); code != 0 {
		t.Fatalf("exit code = %d, stderr %q", code, errOut.String())
	}
	if !strings.Contains(out.String(), "User alice saved.") {
		t.Errorf("stdout = %q", out.String())
	}
	if _, err := a.db.ValidatePassword(ctx, "alice", "secret1"); err != nil {
		t.Errorf("ValidatePassword: %v", err)
	}
}

func TestUserAddPasswordErrors(t *testing.T) {
	tests := []struct {
		name      string
		passwords []string
		want      string
	}{
		{"mismatch", []string{"secret1", "secret2"}, "passwords do not match"},
		{"too short", []string{"abc", "abc"}, "at least 6 characters"},
		{"no input", nil, "reading password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, _, errOut := setupTestApp(t, tt.passwords...)
			if code := a.run(context.Background(), []string{"user", "add", "alice"}); code != 1 {
				t.Fatalf("exit code = %d, want 1", code)
			}
			if !strings.Contains(errOut.String(), tt.want) {
				t.Errorf("stderr = %q, want %q", errOut.String(), tt.want)
			}
			if a.db.HasUsers(context.Background()) {
				t.Error("user created despite error")
			}
		})
	}
}

func TestUserPasswd(t *testing.T) {
	a, out, errOut := setupTestApp(t, "newpass1", "newpass1")
	ctx := context.Background()

	if code := a.run(ctx, []string{"user", "passwd", "bob"}); code != 1 {
		t.Fatalf("passwd for missing user: exit code %d", code)
	}
	if !strings.Contains(errOut.String(), "user bob does not exist") {
		t.Errorf("stderr = %q", errOut.String())
	}

	user, err := a.db.AddUser(ctx, "bob", "oldpass1")
	if err != nil {
		t.Fatalf("AddUser: %v", err)
	}
	session, err := a.db.CreateSession(ctx, user.ID)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	if code := a.run(ctx, []string{"user", "passwd", "bob"}); code != 0 {
		t.Fatalf("exit code = %d, stderr %q", code, errOut.String())
	}
	if !strings.Contains(out.String(), "sessions have been invalidated") {
		t.Errorf("stdout = %q", out.String())
	}
	if _, err := a.db.ValidatePassword(ctx, "bob", "newpass1"); err != nil {
		t.Errorf("new password rejected: %v", err)
	}
	if _, err := a.db.ValidateSession(ctx, session.Token); err == nil {
		t.Error("old session still valid")
	}
}

func TestUserDelAndList(t *testing.T) {
	a, out, errOut := setupTestApp(t)
	ctx := context.Background()

	for _, name := range []string{"carol", "alice"} {
		if _, err := a.db.AddUser(ctx, name, "password"); err != nil {
			t.Fatalf("AddUser: %v", err)
		}
	}

	if code := a.run(ctx, []string{"user", "list"}); code != 0 {
		t.Fatalf("list exit code = %d", code)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "alice\t") || !strings.HasPrefix(lines[1], "carol\t") {
		t.Errorf("list = %q", out.String())
	}

	if code := a.run(ctx, []string{"user", "del", "carol"}); code != 0 {
		t.Fatalf("del exit code = %d, stderr %q", code, errOut.String())
	}
	if _, err := a.db.GetUserByName(ctx, "carol"); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("GetUserByName after delete: %v", err)
	}

	if code := a.run(ctx, []string{"user", "del", "carol"}); code != 1 {
		t.Errorf("second delete exit code = %d, want 1", code)
	}
}

func TestUserArgumentErrors(t *testing.T) {
	tests := [][]string{
		{"user"},
		{"user", "rename", "alice"},
		{"user", "add"},
		{"user", "add", "a", "b"},
		{"user", "add", "../etc"},
		{"user", "del", "."},
	}

	for _, args := range tests {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			a, _, _ := setupTestApp(t, "secret1", "secret1")
			if code := a.run(context.Background(), args); code != 1 {
				t.Errorf("exit code = %d, want 1", code)
			}
		})
	}
}

func TestDirCommands(t *testing.T) {
	a, out, errOut := setupTestApp(t)
	ctx := context.Background()

	root := t.TempDir()
	movies := filepath.Join(root, "movies")
	if err := os.Mkdir(movies, 0o755); err != nil {
		t.Fatal(err)
	}
	series := filepath.Join(root, "series")
	if err := os.Mkdir(series, 0o755); err != nil {
		t.Fatal(err)
	}
	file := filepath.Join(root, "file.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if code := a.run(ctx, []string{"dir", "add", movies}); code != 0 {
		t.Fatalf("add exit code = %d, stderr %q", code, errOut.String())
	}
	if code := a.run(ctx, []string{"dir", "add", root, "films"}); code != 0 {
		t.Fatalf("add with name exit code = %d, stderr %q", code, errOut.String())
	}

	dirs, err := a.db.ListDirectories(ctx)
	if err != nil {
		t.Fatalf("ListDirectories: %v", err)
	}
	if len(dirs) != 2 || dirs[0].Name != "films" || dirs[1].Name != "movies" || dirs[1].Path != movies {
		t.Fatalf("directories = %+v", dirs)
	}

	// Re-registering a known path keeps the existing name.
	out.Reset()
	if code := a.run(ctx, []string{"dir", "add", movies, "other"}); code != 0 {
		t.Fatalf("re-add exit code = %d", code)
	}
	if !strings.Contains(out.String(), "already registered as movies") {
		t.Errorf("stdout = %q", out.String())
	}

	failures := [][]string{
		{"dir", "add", file},
		{"dir", "add", filepath.Join(root, "missing")},
		{"dir", "add", series, "movies"},
		{"dir", "add", series, ".hidden"},
		{"dir", "del", "nope"},
		{"dir"},
		{"dir", "move"},
	}
	for _, args := range failures {
		if code := a.run(ctx, args); code != 1 {
			t.Errorf("%v: exit code = %d, want 1", args, code)
		}
	}

	out.Reset()
	if code := a.run(ctx, []string{"dir", "list"}); code != 0 {
		t.Fatalf("list exit code = %d", code)
	}
	if !strings.Contains(out.String(), "movies\t"+movies) {
		t.Errorf("list = %q", out.String())
	}

	if code := a.run(ctx, []string{"dir", "del", "films"}); code != 0 {
		t.Fatalf("del exit code = %d, stderr %q", code, errOut.String())
	}
	dirs, _ = a.db.ListDirectories(ctx)
	if len(dirs) != 1 {
		t.Errorf("directories after delete = %+v", dirs)
	}
}

func TestGrant(t *testing.T) {
	a, out, errOut := setupTestApp(t)
	ctx := context.Background()

	user, err := a.db.AddUser(ctx, "alice", "password")
	if err != nil {
		t.Fatalf("AddUser: %v", err)
	}
	if _, err := a.db.AddDirectory(ctx, t.TempDir(), "movies"); err != nil {
		t.Fatalf("AddDirectory: %v", err)
	}

	if code := a.run(ctx, []string{"grant", "alice", "movies", "read"}); code != 0 {
		t.Fatalf("exit code = %d, stderr %q", code, errOut.String())
	}
	if !strings.Contains(out.String(), "alice now has read access to movies") {
		t.Errorf("stdout = %q", out.String())
	}
	g, err := a.db.LookupGrant(ctx, user.ID, "movies")
	if err != nil || g.Level != access.LevelRead {
		t.Fatalf("LookupGrant = %+v, %v", g, err)
	}

	if code := a.run(ctx, []string{"grant", "alice", "movies", "none"}); code != 0 {
		t.Fatalf("revoke exit code = %d", code)
	}
	g, err = a.db.LookupGrant(ctx, user.ID, "movies")
	if err != nil || g.Level != access.LevelNone {
		t.Errorf("LookupGrant after revoke = %+v, %v", g, err)
	}

	errOut.Reset()
	if code := a.run(ctx, []string{"grant", "bob", "movies", "read"}); code != 1 {
		t.Errorf("unknown user exit code = %d", code)
	}
	if !strings.Contains(errOut.String(), "unknown user bob or directory movies") {
		t.Errorf("stderr = %q", errOut.String())
	}
	if code := a.run(ctx, []string{"grant", "alice", "movies", "admin"}); code != 1 {
		t.Errorf("bad level exit code = %d", code)
	}
	if code := a.run(ctx, []string{"grant", "alice", "movies"}); code != 1 {
		t.Errorf("missing level exit code = %d", code)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"none", access.LevelNone, false},
		{"read", access.LevelRead, false},
		{"RO", access.LevelRead, false},
		{"write", access.LevelReadWrite, false},
		{"rw", access.LevelReadWrite, false},
		{"0", 0, false},
		{"2", 2, false},
		{"3", 0, true},
		{"-1", 0, true},
		{"admin", 0, true},
	}
	for _, tt := range tests {
		got, err := parseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseLevel(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestStatus(t *testing.T) {
	a, out, _ := setupTestApp(t)
	ctx := context.Background()

	if code := a.run(ctx, []string{"status"}); code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.Contains(out.String(), "Users:           0") || !strings.Contains(out.String(), "No users configured") {
		t.Errorf("stdout = %q", out.String())
	}

	if _, err := a.db.AddUser(ctx, "alice", "password"); err != nil {
		t.Fatal(err)
	}
	out.Reset()
	a.run(ctx, []string{"status"})
	if !strings.Contains(out.String(), "Users:           1") || strings.Contains(out.String(), "No users configured") {
		t.Errorf("stdout = %q", out.String())
	}
}

func TestHelp(t *testing.T) {
	a, out, _ := setupTestApp(t)
	if code := a.run(context.Background(), []string{"help"}); code != 0 {
		t.Errorf("exit code = %d", code)
	}
	if !strings.Contains(out.String(), "Usage: sharectl") {
		t.Errorf("stdout = %q", out.String())
	}
	if code := a.run(context.Background(), nil); code != 1 {
		t.Errorf("no args exit code = %d", code)
	}
}

func TestLinePasswords(t *testing.T) {
	read := linePasswords(strings.NewReader("one\r\ntwo"))
	for _, want := range []string{"one", "two"} {
		got, err := read("prompt")
		if err != nil || string(got) != want {
			t.Errorf("read = %q, %v; want %q", got, err, want)
		}
	}
	if _, err := read("prompt"); err == nil {
		t.Error("expected error at end of input")
	}
}
