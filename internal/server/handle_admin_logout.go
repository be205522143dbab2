package server

import (
	"log/slog"
	"net/http"
)

// handleAdminLogout ends the session named by the cookie and clears it. The
// cookie is cleared even if the session row could not be removed.
func handleAdminLogout(logger *slog.Logger, sessions *AdminSessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cookie, err := r.Cookie(adminCookieName); err == nil && cookie.Value != "" {
			if err := sessions.Delete(r.Context(), cookie.Value); err != nil {
				logger.Error("deleting admin session", "error", err)
			}
		}

		http.SetCookie(w, &http.Cookie{
			Name:     adminCookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})

		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
