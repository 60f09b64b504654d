package web

import (
	"net"
	"net/http"

	"github.com/JonMunkholm/datatable/internal/core"
)

// clientMetadata records the client IP and User-Agent in the request
// context for the row-save log.
func clientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := core.ContextWithClient(r.Context(), clientIP(r), r.UserAgent())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// clientIP strips the port from RemoteAddr, which TrustedRealIP has
// already replaced with the forwarded address for trusted proxies.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
