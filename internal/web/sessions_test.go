package web

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionStore_PutGetSweep(t *testing.T) {
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	st := newSessionStore(10*time.Minute, slog.Default())
	st.now = func() time.Time { return now }

	a, b := &tableSession{}, &tableSession{}
	assert.Same(t, a, st.put("s1", "people", a))
	assert.Same(t, a, st.put("s1", "people", b), "first stored session wins")
	st.put("s2", "people", b)

	got, ok := st.get("s1", "people")
	require.True(t, ok)
	assert.Same(t, a, got)
	_, ok = st.get("s1", "audit")
	assert.False(t, ok)

	now = now.Add(6 * time.Minute)
	st.get("s1", "people")

	now = now.Add(6 * time.Minute)
	assert.Equal(t, 1, st.sweep(), "only the idle session expires")
	assert.Equal(t, 1, st.len())

	_, ok = st.get("s2", "people")
	assert.False(t, ok)
}

func TestSessionStore_RunStopsOnCancel(t *testing.T) {
	st := newSessionStore(time.Minute, slog.Default())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		st.run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}

func TestSessionID(t *testing.T) {
	t.Run("issues cookie", func(t *testing.T) {
		rec := httptest.NewRecorder()
		id := sessionID(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		_, err := uuid.Parse(id)
		require.NoError(t, err)
		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, sessionCookie, cookies[0].Name)
		assert.Equal(t, id, cookies[0].Value)
		assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)
	})

	t.Run("reuses valid cookie", func(t *testing.T) {
		want := uuid.NewString()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: sessionCookie, Value: want})
		rec := httptest.NewRecorder()

		assert.Equal(t, want, sessionID(rec, req))
		assert.Empty(t, rec.Result().Cookies())
	})

	t.Run("replaces invalid cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: sessionCookie, Value: "not-a-uuid"})
		rec := httptest.NewRecorder()

		id := sessionID(rec, req)
		assert.NotEqual(t, "not-a-uuid", id)
		assert.Len(t, rec.Result().Cookies(), 1)
	})
}
