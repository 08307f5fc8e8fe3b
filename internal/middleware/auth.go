package middleware

import (
	"net/http"

	"github.com/LukasGX/Untis-App-API/internal/auth"
)

const (
	APIKeyHeader   = "X-API-Key"
	AdminKeyHeader = "X-Admin-Key"
)

// RequireAPIKey rejects requests without the shared API token.
func RequireAPIKey(tokens auth.Tokens) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !tokens.CheckAPIKey(r.Header.Get(APIKeyHeader)) {
				ErrorResponse(w, http.StatusUnauthorized, "Invalid API Token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdminKey rejects requests without the admin token header.
func RequireAdminKey(tokens auth.Tokens) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !tokens.CheckAdminKey(r.Header.Get(AdminKeyHeader)) {
				ErrorResponse(w, http.StatusUnauthorized, "Invalid Admin Token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdminSession sends visitors without a valid admin session back to
// the login page.
func RequireAdminSession(sessions *auth.AdminSessions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := sessions.Verify(r); err != nil {
				if r.Method == http.MethodGet {
					http.Redirect(w, r, "/admin", http.StatusSeeOther)
					return
				}
				http.Error(w, "Not authenticated as admin", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
