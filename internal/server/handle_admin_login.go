package server

import (
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// AdminLoginRequest is the request body for POST /api/admin/login.
type AdminLoginRequest struct {
	Password string `json:"password"`
}

// AdminMeResponse is the response for GET /api/admin/me and a successful login.
type AdminMeResponse struct {
	Authenticated bool      `json:"authenticated"`
	ExpiresAt     time.Time `json:"expiresAt,omitzero"`
}

// handleAdminLogin checks the operator password against passwordHash. An
// empty hash disables the admin panel.
func handleAdminLogin(logger *slog.Logger, sessions *AdminSessions, passwordHash string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if passwordHash == "" {
			writeError(w, http.StatusServiceUnavailable, "admin login is not configured")
			return
		}

		var req AdminLoginRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Password == "" {
			writeError(w, http.StatusBadRequest, "password is required")
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(req.Password)); err != nil {
			logger.Warn("admin login failed", "remote", r.RemoteAddr)
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}

		id, expires, err := sessions.Create(r.Context())
		if err != nil {
			logger.Error("creating admin session", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     adminCookieName,
			Value:    id,
			Path:     "/",
			Expires:  expires,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})

		writeJSON(w, http.StatusOK, AdminMeResponse{Authenticated: true, ExpiresAt: expires})
	}
}

func handleAdminMe(sessions *AdminSessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(adminCookieName)
		if err != nil || sessions.Valid(r.Context(), cookie.Value) != nil {
			writeError(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		writeJSON(w, http.StatusOK, AdminMeResponse{Authenticated: true})
	}
}
