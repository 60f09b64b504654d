package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/JonMunkholm/datatable/internal/config"
	"github.com/JonMunkholm/datatable/internal/logging"
)

// APIKeyHeader carries the API key. "Authorization: Bearer <key>" is
// accepted as well.
const APIKeyHeader = "X-API-Key"

// APIKeyAuth rejects requests without a configured API key when
// cfg.RequireAPIKey is set. With no keys configured every request is
// rejected.
func APIKeyAuth(cfg *config.SecurityConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.RequireAPIKey {
				next.ServeHTTP(w, r)
				return
			}

			logger := logging.FromContext(r.Context())
			key := requestAPIKey(r)
			if key == "" {
				logger.Warn("auth: missing API key", "path", r.URL.Path, "method", r.Method, "remote_addr", r.RemoteAddr)
				denied(w, http.StatusUnauthorized, "missing API key", "AUTH001")
				return
			}
			if !isValidAPIKey(key, cfg.APIKeys) {
				logger.Warn("auth: invalid API key", "path", r.URL.Path, "method", r.Method, "remote_addr", r.RemoteAddr)
				denied(w, http.StatusForbidden, "invalid API key", "AUTH002")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func requestAPIKey(r *http.Request) string {
	if key := strings.TrimSpace(r.Header.Get(APIKeyHeader)); key != "" {
		return key
	}
	if auth := r.Header.Get("Authorization"); len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

func denied(w http.ResponseWriter, status int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   message,
		"message": message,
		"code":    code,
	})
}

// isValidAPIKey compares against every configured key in constant time,
// so timing does not reveal which key (if any) matched.
func isValidAPIKey(key string, validKeys []string) bool {
	valid := 0
	for _, validKey := range validKeys {
		valid |= subtle.ConstantTimeCompare([]byte(key), []byte(validKey))
	}
	return valid == 1
}
