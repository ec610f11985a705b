package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"media-share/internal/access"
)

func loginRequest(body string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	return r
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == SessionCookieName {
			return c
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

// whoami echoes the identity RequireAuth stored.
func whoami(w http.ResponseWriter, r *http.Request) {
	id, ok := access.IdentityFrom(r.Context())
	if !ok {
		http.Error(w, "no identity", http.StatusInternalServerError)
		return
	}
	_, _ = w.Write([]byte(id.Name))
}

func TestLoginSessionFlow(t *testing.T) {
	env := setupTestHandlers(t, "", "", nil)

	w := httptest.NewRecorder()
	env.h.Login(w, loginRequest(`{"username":"alice","password":"secret"}`))
	if w.Code != http.StatusOK {
		t.Fatalf("Login status = %d, body %q", w.Code, w.Body.String())
	}
	var resp AuthResponse
	decodeJSON(t, w, &resp)
	if !resp.Success || resp.Username != "alice" {
		t.Errorf("unexpected login response: %+v", resp)
	}
	cookie := sessionCookie(t, w)
	if !cookie.HttpOnly {
		t.Error("session cookie should be HttpOnly")
	}

	protected := env.h.RequireAuth(http.HandlerFunc(whoami))

	r := httptest.NewRequest(http.MethodGet, "/api/files/", http.NoBody)
	r.AddCookie(cookie)
	w = httptest.NewRecorder()
	protected.ServeHTTP(w, r)
	if w.Code != http.StatusOK || w.Body.String() != "alice" {
		t.Fatalf("session request: status %d body %q", w.Code, w.Body.String())
	}

	r = httptest.NewRequest(http.MethodGet, "/api/auth/check", http.NoBody)
	r.AddCookie(cookie)
	w = httptest.NewRecorder()
	env.h.CheckAuth(w, r)
	if w.Code != http.StatusOK {
		t.Errorf("CheckAuth status = %d", w.Code)
	}

	r = httptest.NewRequest(http.MethodPost, "/api/auth/logout", http.NoBody)
	r.AddCookie(cookie)
	w = httptest.NewRecorder()
	env.h.Logout(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("Logout status = %d", w.Code)
	}

	r = httptest.NewRequest(http.MethodGet, "/api/files/", http.NoBody)
	r.AddCookie(cookie)
	w = httptest.NewRecorder()
	protected.ServeHTTP(w, r)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("after logout: status %d, want 401", w.Code)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	env := setupTestHandlers(t, "", "", nil)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"wrong password", `{"username":"alice","password":"nope"}`, http.StatusUnauthorized},
		{"unknown user", `{"username":"bob","password":"secret"}`, http.StatusUnauthorized},
		{"malformed body", `{"username":`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			env.h.Login(w, loginRequest(tt.body))
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
			for _, c := range w.Result().Cookies() {
				if c.Name == SessionCookieName && c.Value != "" {
					t.Error("failed login set a session cookie")
				}
			}
		})
	}
}

func TestRequireAuthBasic(t *testing.T) {
	env := setupTestHandlers(t, "", "", nil)
	protected := env.h.RequireAuth(http.HandlerFunc(whoami))

	r := httptest.NewRequest(http.MethodGet, "/api/files/", http.NoBody)
	r.SetBasicAuth("alice", "secret")
	w := httptest.NewRecorder()
	protected.ServeHTTP(w, r)
	if w.Code != http.StatusOK || w.Body.String() != "alice" {
		t.Fatalf("basic auth: status %d body %q", w.Code, w.Body.String())
	}

	r = httptest.NewRequest(http.MethodGet, "/api/files/", http.NoBody)
	r.SetBasicAuth("alice", "wrong")
	w = httptest.NewRecorder()
	protected.ServeHTTP(w, r)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong basic password: status %d, want 401", w.Code)
	}
}

func TestRequireAuthChallenge(t *testing.T) {
	env := setupTestHandlers(t, "", "", nil)
	protected := env.h.RequireAuth(http.HandlerFunc(whoami))

	w := httptest.NewRecorder()
	protected.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/files/", http.NoBody))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	if !strings.HasPrefix(w.Header().Get("WWW-Authenticate"), "Basic ") {
		t.Errorf("WWW-Authenticate = %q", w.Header().Get("WWW-Authenticate"))
	}

	// JSON clients get no challenge so browsers do not pop a dialog.
	r := httptest.NewRequest(http.MethodGet, "/api/files/", http.NoBody)
	r.Header.Set("Accept", "application/json")
	w = httptest.NewRecorder()
	protected.ServeHTTP(w, r)
	if w.Header().Get("WWW-Authenticate") != "" {
		t.Error("JSON request should not be challenged")
	}
}

func TestRequireAuthBadCookieFallsBackToBasic(t *testing.T) {
	env := setupTestHandlers(t, "", "", nil)
	protected := env.h.RequireAuth(http.HandlerFunc(whoami))

	r := httptest.NewRequest(http.MethodGet, "/api/files/", http.NoBody)
	r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "stale"})
	r.SetBasicAuth("alice", "secret")
	w := httptest.NewRecorder()
	protected.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}
