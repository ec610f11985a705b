package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"media-share/internal/access"
	"media-share/internal/database"
	"media-share/internal/logging"
	"media-share/internal/metrics"
)

// LoginRequest represents a login request
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse represents the response from authentication endpoints
type AuthResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	Username  string `json:"username,omitempty"`
	ExpiresIn int    `json:"expiresIn,omitempty"` // Seconds until session expires
}

const (
	// SessionCookieName is the name of the session cookie
	SessionCookieName = "media_share_session"

	basicRealm = `Basic realm="media-share", charset="UTF-8"`
)

func setSessionCookie(w http.ResponseWriter, value string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	setSessionCookie(w, "", time.Unix(0, 0))
}

// Login authenticates with a user name and password and starts a session.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req LoginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.db.ValidatePassword(ctx, req.Username, req.Password)
	if err != nil {
		logging.Warn("Failed login attempt")
		metrics.AuthAttemptsTotal.WithLabelValues("login", "failure").Inc()
		http.Error(w, "Invalid user name or password", http.StatusUnauthorized)
		return
	}
	metrics.AuthAttemptsTotal.WithLabelValues("login", "success").Inc()

	session, err := h.db.CreateSession(ctx, user.ID)
	if err != nil {
		logging.Error("Failed to create session: %v", err)
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	setSessionCookie(w, session.Token, session.ExpiresAt)
	logging.Info("User %s logged in, session expires in %v", user.Name, database.GetSessionDuration())

	writeJSONStatus(w, http.StatusOK, AuthResponse{
		Success:   true,
		Username:  user.Name,
		ExpiresIn: int(database.GetSessionDuration().Seconds()),
	})
}

// Logout ends the current session
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		if err := h.db.DeleteSession(r.Context(), cookie.Value); err != nil {
			logging.Debug("Failed to delete session during logout: %v", err)
		}
	}

	clearSessionCookie(w)
	writeJSONStatus(w, http.StatusOK, AuthResponse{
		Success: true,
		Message: "Logged out successfully",
	})
}

// CheckAuth reports whether the session cookie is valid.
func (h *Handlers) CheckAuth(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	user, err := h.db.ValidateSession(r.Context(), cookie.Value)
	if err != nil {
		clearSessionCookie(w)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	writeJSONStatus(w, http.StatusOK, AuthResponse{
		Success:   true,
		Username:  user.Name,
		ExpiresIn: int(database.GetSessionDuration().Seconds()),
	})
}

// RequireAuth authenticates the request with the session cookie or, for
// clients without one, HTTP basic auth, and stores the caller's identity in
// the request context.
func (h *Handlers) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
			user, err := h.db.ValidateSession(ctx, cookie.Value)
			if err == nil {
				metrics.AuthAttemptsTotal.WithLabelValues("session", "success").Inc()

				// Sliding expiration
				if err := h.db.ExtendSession(ctx, cookie.Value); err != nil {
					logging.Debug("Failed to extend session: %v", err)
				} else {
					setSessionCookie(w, cookie.Value, time.Now().Add(database.GetSessionDuration()))
				}

				id := access.Identity{UserID: user.ID, Name: user.Name}
				next.ServeHTTP(w, r.WithContext(access.WithIdentity(ctx, id)))
				return
			}
			metrics.AuthAttemptsTotal.WithLabelValues("session", "failure").Inc()
			clearSessionCookie(w)
		}

		if name, password, ok := r.BasicAuth(); ok {
			user, err := h.db.ValidatePassword(ctx, name, password)
			if err == nil {
				metrics.AuthAttemptsTotal.WithLabelValues("basic", "success").Inc()
				id := access.Identity{UserID: user.ID, Name: user.Name}
				next.ServeHTTP(w, r.WithContext(access.WithIdentity(ctx, id)))
				return
			}
			metrics.AuthAttemptsTotal.WithLabelValues("basic", "failure").Inc()
			logging.Warn("Failed basic auth attempt")
		}

		if !strings.HasPrefix(r.Header.Get("Accept"), "application/json") {
			w.Header().Set("WWW-Authenticate", basicRealm)
		}
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	})
}

// identity returns the authenticated caller. RequireAuth guarantees it on
// the routes it wraps.
func identity(r *http.Request) (access.Identity, bool) {
	return access.IdentityFrom(r.Context())
}
