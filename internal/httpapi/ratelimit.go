package httpapi

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ipLimiter hands out one token bucket per client IP. Buckets idle for longer
// than a full refill are swept, since a fresh bucket behaves the same.
type ipLimiter struct {
	every time.Duration
	burst int
	idle  time.Duration
	now   func() time.Time

	mu        sync.Mutex
	visitors  map[string]*visitor
	lastSweep time.Time
}

type visitor struct {
	lim  *rate.Limiter
	seen time.Time
}

func newIPLimiter(every time.Duration, burst int) *ipLimiter {
	idle := every * time.Duration(burst)
	if idle < time.Minute {
		idle = time.Minute
	}
	return &ipLimiter{
		every:     every,
		burst:     burst,
		idle:      idle,
		now:       time.Now,
		visitors:  make(map[string]*visitor),
		lastSweep: time.Now(),
	}
}

func (l *ipLimiter) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if now.Sub(l.lastSweep) >= l.idle {
		l.sweep(now)
	}
	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{lim: rate.NewLimiter(rate.Every(l.every), l.burst)}
		l.visitors[ip] = v
	}
	v.seen = now
	return v.lim
}

// sweep drops visitors not seen within the idle window. Callers hold mu.
func (l *ipLimiter) sweep(now time.Time) {
	for ip, v := range l.visitors {
		if now.Sub(v.seen) >= l.idle {
			delete(l.visitors, ip)
		}
	}
	l.lastSweep = now
}

// size reports the number of tracked clients.
func (l *ipLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}

// clientIP strips the port from RemoteAddr (already rewritten by RealIP).
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// middleware rejects requests over the limit with 429.
func (l *ipLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.get(clientIP(r)).Allow() {
			IncrementBackpressure("rate_limit")
			reqLog(r, LevelInfo).Int("status", http.StatusTooManyRequests).Msg("rate limited")
			w.Header().Set("Retry-After", "60")
			writeJSONError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}
