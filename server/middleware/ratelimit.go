package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/nanocode-local/nanocode/errors"
	"github.com/nanocode-local/nanocode/server/metrics"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client IP. A client idle long
// enough for its bucket to refill completely is forgotten, since a fresh
// bucket behaves the same.
type RateLimiter struct {
	visitors  map[string]*visitor
	mu        sync.Mutex
	lastSweep time.Time
	idleTTL   time.Duration
	now       func() time.Time

	limit   rate.Limit
	burst   int
	perMin  int
	metrics *metrics.Metrics
}

// NewRateLimiter allows requestsPerMinute per client with the given burst.
// A burst below 1 defaults to requestsPerMinute. m may be nil.
func NewRateLimiter(requestsPerMinute, burst int, m *metrics.Metrics) *RateLimiter {
	if requestsPerMinute < 1 {
		requestsPerMinute = 1
	}
	if burst < 1 {
		burst = requestsPerMinute
	}
	interval := time.Minute / time.Duration(requestsPerMinute)
	idleTTL := time.Duration(burst) * interval
	if idleTTL < time.Minute {
		idleTTL = time.Minute
	}
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		idleTTL:  idleTTL,
		now:      time.Now,
		limit:    rate.Every(interval),
		burst:    burst,
		perMin:   requestsPerMinute,
		metrics:  m,
	}
}

func (l *RateLimiter) getOrCreate(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= l.idleTTL {
		l.sweep(now)
	}

	v, exists := l.visitors[ip]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter
}

// sweep drops idle visitors. Callers hold l.mu.
func (l *RateLimiter) sweep(now time.Time) {
	for ip, v := range l.visitors {
		if now.Sub(v.lastSeen) >= l.idleTTL {
			delete(l.visitors, ip)
		}
	}
	l.lastSweep = now
}

// Len reports the number of tracked clients.
func (l *RateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}

// Reset forgets every client.
func (l *RateLimiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.visitors = make(map[string]*visitor)
}

// Handler rejects requests over budget with 429.
func (l *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		limiter := l.getOrCreate(ip)

		if !limiter.Allow() {
			if l.metrics != nil {
				l.metrics.RateLimitHits.Inc()
			}

			// One token is refilled every minute/perMin.
			retryAfter := int(math.Ceil(60 / float64(l.perMin)))
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))

			errResp := errors.NewRateLimitError(GetRequestID(r.Context()), retryAfter)
			errResp.Details["limit"] = l.perMin
			errResp.Details["window"] = time.Minute.String()
			errors.WriteError(w, errResp)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
