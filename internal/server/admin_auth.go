package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

var errNoAdminSession = errors.New("no valid admin session")

const (
	adminCookieName = "admin_session"
	adminSessionTTL = 12 * time.Hour
)

// AdminSessions stores logged-in operator sessions in the admin_sessions table.
type AdminSessions struct {
	db  *sql.DB
	now func() time.Time
}

func NewAdminSessions(db *sql.DB) *AdminSessions {
	return &AdminSessions{db: db, now: time.Now}
}

func (s *AdminSessions) Create(ctx context.Context) (string, time.Time, error) {
	id := uuid.NewString()
	expires := s.now().UTC().Add(adminSessionTTL)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO admin_sessions (id, expires_at) VALUES (?, ?)`,
		id, expires.Format(time.RFC3339),
	)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("creating admin session: %w", err)
	}
	return id, expires, nil
}

// Valid returns errNoAdminSession for unknown or expired ids.
func (s *AdminSessions) Valid(ctx context.Context, id string) error {
	var expires string
	err := s.db.QueryRowContext(ctx,
		`SELECT expires_at FROM admin_sessions WHERE id = ?`, id,
	).Scan(&expires)
	if errors.Is(err, sql.ErrNoRows) {
		return errNoAdminSession
	}
	if err != nil {
		return fmt.Errorf("reading admin session: %w", err)
	}
	t, err := time.Parse(time.RFC3339, expires)
	if err != nil || !s.now().Before(t) {
		return errNoAdminSession
	}
	return nil
}

func (s *AdminSessions) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM admin_sessions WHERE id = ?`, id)
	return err
}

func adminAuthMiddleware(sessions *AdminSessions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(adminCookieName)
			if err != nil || cookie.Value == "" {
				writeError(w, http.StatusUnauthorized, "not authenticated")
				return
			}
			if err := sessions.Valid(r.Context(), cookie.Value); err != nil {
				writeError(w, http.StatusUnauthorized, "not authenticated")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
