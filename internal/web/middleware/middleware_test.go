package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/datatable/internal/config"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestAPIKeyAuth(t *testing.T) {
	cfg := &config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"k1", "k2"}}
	h := APIKeyAuth(cfg)(okHandler)

	tests := map[string]struct {
		header, value string
		status        int
		code          string
	}{
		"missing":        {"", "", http.StatusUnauthorized, "AUTH001"},
		"wrong key":      {APIKeyHeader, "nope", http.StatusForbidden, "AUTH002"},
		"header key":     {APIKeyHeader, "k2", http.StatusOK, ""},
		"bearer token":   {"Authorization", "Bearer k1", http.StatusOK, ""},
		"bearer lower":   {"Authorization", "bearer k1", http.StatusOK, ""},
		"basic rejected": {"Authorization", "Basic k1", http.StatusUnauthorized, "AUTH001"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/tables", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.code != "" {
				var body map[string]string
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				assert.Equal(t, tt.code, body["code"])
			}
		})
	}
}

func TestAPIKeyAuth_Disabled(t *testing.T) {
	h := APIKeyAuth(&config.SecurityConfig{})(okHandler)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tables", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPIKeyAuth_NoKeysConfigured(t *testing.T) {
	h := APIKeyAuth(&config.SecurityConfig{RequireAPIKey: true})(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/api/tables", nil)
	req.Header.Set(APIKeyHeader, "anything")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestTrustedRealIP(t *testing.T) {
	mw := TrustedRealIP([]string{"10.0.0.0/8", "192.168.1.5", "bogus"})

	tests := map[string]struct {
		remote  string
		headers map[string]string
		want    string
	}{
		"trusted real ip":     {"10.1.2.3:5000", map[string]string{"X-Real-IP": "203.0.113.7"}, "203.0.113.7"},
		"trusted forwarded":   {"10.1.2.3:5000", map[string]string{"X-Forwarded-For": "203.0.113.8, 10.1.2.3"}, "203.0.113.8"},
		"single host proxy":   {"192.168.1.5:80", map[string]string{"X-Real-IP": "203.0.113.9"}, "203.0.113.9"},
		"untrusted ignored":   {"198.51.100.1:80", map[string]string{"X-Real-IP": "203.0.113.7"}, "198.51.100.1:80"},
		"invalid header":      {"10.1.2.3:5000", map[string]string{"X-Real-IP": "not-an-ip"}, "10.1.2.3:5000"},
		"trusted, no headers": {"10.1.2.3:5000", nil, "10.1.2.3:5000"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			var got string
			h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = r.RemoteAddr
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)

			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTrustedRealIP_NoProxies(t *testing.T) {
	var got string
	h := TrustedRealIP(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.RemoteAddr
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1"
	req.Header.Set("X-Real-IP", "1.2.3.4")
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "10.0.0.1:1", got)
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })

	h := Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("missing"))
	}))
	req := httptest.NewRequest(http.MethodGet, "/table/x", nil)
	req.Header.Set("HX-Request", "true")
	middleware.RequestID(h).ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "/table/x", entry["path"])
	assert.EqualValues(t, http.StatusNotFound, entry["status"])
	assert.EqualValues(t, len("missing"), entry["bytes"])
	assert.Equal(t, true, entry["htmx"])
	assert.Equal(t, "192.0.2.1", entry["ip"])
	assert.NotEmpty(t, entry["request_id"])
}

func TestResponseWriter_FirstStatusWins(t *testing.T) {
	rec := httptest.NewRecorder()
	w := &responseWriter{ResponseWriter: rec, status: http.StatusOK}

	w.WriteHeader(http.StatusCreated)
	w.WriteHeader(http.StatusInternalServerError)

	assert.Equal(t, http.StatusCreated, w.status)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Same(t, rec, w.Unwrap())
}
