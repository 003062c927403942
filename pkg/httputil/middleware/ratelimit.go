package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitOptions configures per-client request limiting.
type RateLimitOptions struct {
	// RPS is the sustained requests per second per client. Zero disables limiting.
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
	// TTL is how long an idle client is remembered.
	TTL time.Duration `mapstructure:"ttl"`
	// TrustProxy keys clients on X-Forwarded-For and X-Real-IP. Enable it only
	// behind a proxy that overwrites those headers.
	TrustProxy bool `mapstructure:"trustProxy"`
	// OnLimit writes the response for a rejected request. Defaults to a 429.
	OnLimit http.HandlerFunc `mapstructure:"-"`
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type clientLimiter struct {
	opts     RateLimitOptions
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	lastGC   time.Time
}

func (l *clientLimiter) get(ip string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastGC) > l.opts.TTL {
		for k, e := range l.limiters {
			if now.Sub(e.lastSeen) > l.opts.TTL {
				delete(l.limiters, k)
			}
		}
		l.lastGC = now
	}

	e, ok := l.limiters[ip]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(rate.Limit(l.opts.RPS), l.opts.Burst)}
		l.limiters[ip] = e
	}
	e.lastSeen = now
	return e.limiter
}

// RateLimit limits each client IP to opts.RPS with bursts of opts.Burst.
func RateLimit(opts RateLimitOptions) func(http.Handler) http.Handler {
	if opts.RPS <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if opts.Burst <= 0 {
		opts.Burst = int(opts.RPS) + 1
	}
	if opts.TTL <= 0 {
		opts.TTL = 15 * time.Minute
	}
	if opts.OnLimit == nil {
		opts.OnLimit = func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}
	}

	l := &clientLimiter{opts: opts, limiters: make(map[string]*limiterEntry), lastGC: time.Now()}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.get(clientIP(r, opts.TrustProxy), time.Now()).Allow() {
				opts.OnLimit(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP returns the peer address. With trustProxy it prefers the first
// X-Forwarded-For hop, then X-Real-IP.
func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			if ip := strings.TrimSpace(strings.Split(xff, ",")[0]); ip != "" {
				return ip
			}
		}
		if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
