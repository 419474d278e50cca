package server

import (
	"errors"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/jrsteele09/go-dashboard-auth/internal/config"
	"golang.org/x/time/rate"
)

// idleVisitorTTL is how long an idle client keeps its limiter.
const idleVisitorTTL = 10 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipRateLimiter keeps one token bucket per client address.
type ipRateLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	limit     rate.Limit
	burst     int
	lastPrune time.Time
	nowTime   func() time.Time
}

func newIPRateLimiter(cfg config.RateLimit) (*ipRateLimiter, error) {
	if cfg.RequestsPerMinute <= 0 || cfg.Burst <= 0 {
		return nil, errors.New("rate limit requests per minute and burst must be positive")
	}
	return &ipRateLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Every(time.Minute / time.Duration(cfg.RequestsPerMinute)),
		burst:    cfg.Burst,
		nowTime:  time.Now,
	}, nil
}

func (l *ipRateLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowTime()
	if now.Sub(l.lastPrune) > idleVisitorTTL {
		for k, v := range l.visitors {
			if now.Sub(v.lastSeen) > idleVisitorTTL {
				delete(l.visitors, k)
			}
		}
		l.lastPrune = now
	}

	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// retryAfter is the Retry-After value in whole seconds, at least one.
func (l *ipRateLimiter) retryAfter() string {
	seconds := int(time.Duration(float64(time.Second) / float64(l.limit)).Seconds())
	if seconds < 1 {
		seconds = 1
	}
	return strconv.Itoa(seconds)
}

// clientIP is the peer address of the connection. Forwarding headers are
// ignored because any client can set them.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
