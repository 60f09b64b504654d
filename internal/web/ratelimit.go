package web

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/JonMunkholm/datatable/internal/core"
)

var errRateLimited = errors.New("rate limit exceeded")

// rateLimiter allows rate requests per client IP in each fixed window.
type rateLimiter struct {
	mu      sync.Mutex
	windows map[string]*ipWindow
	rate    int
	window  time.Duration
	now     func() time.Time
}

type ipWindow struct {
	start time.Time
	used  int
}

func newRateLimiter(rate int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		windows: make(map[string]*ipWindow),
		rate:    rate,
		window:  window,
		now:     time.Now,
	}
}

// allow counts a request from ip. When the window is used up it reports
// how long until the next one opens.
func (rl *rateLimiter) allow(ip string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, ok := rl.windows[ip]
	if !ok || now.Sub(w.start) >= rl.window {
		w = &ipWindow{start: now}
		rl.windows[ip] = w
	}
	if w.used >= rl.rate {
		return false, w.start.Add(rl.window).Sub(now)
	}
	w.used++
	return true, 0
}

// cleanup forgets clients whose window closed more than a window ago.
func (rl *rateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := rl.now().Add(-2 * rl.window)
	for ip, w := range rl.windows {
		if w.start.Before(cutoff) {
			delete(rl.windows, ip)
		}
	}
}

func (rl *rateLimiter) run(ctx context.Context) {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.cleanup()
		}
	}
}

// middleware keys on RemoteAddr, which TrustedRealIP has already resolved.
func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, wait := rl.allow(clientIP(r))
		if !ok {
			secs := int(math.Ceil(wait.Seconds()))
			w.Header().Set("Retry-After", strconv.Itoa(max(secs, 1)))
			respondErrorJSON(w, core.MapError(errRateLimited), http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
