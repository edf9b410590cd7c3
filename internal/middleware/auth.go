package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
)

// Authenticator decides whether a request may pass a protected route group.
// The engine ships with shared-secret header checks; stronger schemes
// (per-key tokens, signed webhooks) can be substituted without touching the
// handlers.
type Authenticator interface {
	Authenticate(r *http.Request) bool
}

// SecretHeader authenticates by comparing a request header against a shared
// secret. An empty configured secret locks the surface entirely.
type SecretHeader struct {
	Header string
	Secret string
}

// Authenticate implements Authenticator.
func (s SecretHeader) Authenticate(r *http.Request) bool {
	if s.Secret == "" {
		return false
	}
	got := r.Header.Get(s.Header)
	return subtle.ConstantTimeCompare([]byte(got), []byte(s.Secret)) == 1
}

// RequireAuth rejects requests the authenticator does not accept, before
// any store access happens.
func RequireAuth(auth Authenticator, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !auth.Authenticate(r) {
				logger.WarnContext(r.Context(), "unauthorized request",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("remote_addr", r.RemoteAddr),
				)
				writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// writeJSONError emits the same error shape the errors package renders, for
// middleware that runs before chi/render is in play.
func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status_code": status,
		"error_code":  code,
		"message":     message,
	})
}
