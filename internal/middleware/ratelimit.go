// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"devnote/internal/metrics"
)

// sweepInterval is how often idle clients are forgotten.
const sweepInterval = 5 * time.Minute

// window is the sliding log of one client's recent requests, oldest first.
type window struct {
	mu   sync.Mutex
	hits []time.Time
}

// trim drops hits at or before cutoff.
func (w *window) trim(cutoff time.Time) {
	i := 0
	for i < len(w.hits) && !w.hits[i].After(cutoff) {
		i++
	}
	w.hits = w.hits[i:]
}

// RateLimiter limits requests per client over a sliding window. Signed-in
// callers are limited per account, anonymous ones per IP, so authors
// behind a shared address do not exhaust each other's quota.
type RateLimiter struct {
	limit  int
	period time.Duration
	now    func() time.Time

	mu      sync.Mutex
	clients map[string]*window

	stop     chan struct{}
	stopOnce sync.Once
}

// NewRateLimiter allows limit requests per period and starts a goroutine
// that forgets idle clients. Call Stop to end it.
func NewRateLimiter(limit int, period time.Duration) *RateLimiter {
	rl := &RateLimiter{
		limit:   limit,
		period:  period,
		now:     time.Now,
		clients: make(map[string]*window),
		stop:    make(chan struct{}),
	}
	go rl.sweepLoop()
	return rl
}

// Stop ends the sweep goroutine. It is safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) sweepLoop() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.sweep()
		case <-rl.stop:
			return
		}
	}
}

// take records a request for key. When the quota is used up it returns
// false and how long until the oldest hit leaves the window.
func (rl *RateLimiter) take(key string) (ok bool, remaining int, retryAfter time.Duration) {
	rl.mu.Lock()
	w, found := rl.clients[key]
	if !found {
		w = &window{}
		rl.clients[key] = w
	}
	rl.mu.Unlock()

	now := rl.now()
	w.mu.Lock()
	defer w.mu.Unlock()

	w.trim(now.Add(-rl.period))
	if len(w.hits) >= rl.limit {
		return false, 0, w.hits[0].Add(rl.period).Sub(now)
	}
	w.hits = append(w.hits, now)
	return true, rl.limit - len(w.hits), 0
}

// sweep forgets clients whose window is empty.
func (rl *RateLimiter) sweep() {
	cutoff := rl.now().Add(-rl.period)

	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, w := range rl.clients {
		w.mu.Lock()
		w.trim(cutoff)
		idle := len(w.hits) == 0
		w.mu.Unlock()
		if idle {
			delete(rl.clients, key)
		}
	}
}

// Middleware refuses requests over the quota with a JSON 429 and a
// Retry-After in whole seconds. Allowed responses carry the remaining quota.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key, kind := rateKey(r)
		ok, remaining, retryAfter := rl.take(key)

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		if !ok {
			slog.Warn("rate limit exceeded", "client", key, "route", routePattern(r))
			metrics.RateLimited.WithLabelValues(routePattern(r), kind).Inc()
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
			writeError(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// rateKey picks the quota a request counts against: the signed-in user
// or, failing that, the client IP. kind is "user" or "ip".
func rateKey(r *http.Request) (key, kind string) {
	if sess := SessionFromCtx(r.Context()); sess != nil {
		return "user:" + sess.UserID.String(), "user"
	}
	return "ip:" + clientIP(r), "ip"
}

// clientIP prefers the leftmost X-Forwarded-For entry, then X-Real-IP,
// then the connection address without its port.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
