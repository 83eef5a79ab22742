// internal/app/system/ratelimit/ratelimit.go
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter hands out a token bucket per key. Safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   rate.Limit
	burst   int
	idle    time.Duration
	stop    chan struct{}
	once    sync.Once
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// New allows burst requests per key, refilled evenly over per.
func New(burst int, per time.Duration) *Limiter {
	if burst < 1 {
		burst = 1
	}
	l := &Limiter{
		buckets: make(map[string]*bucket),
		limit:   rate.Every(per / time.Duration(burst)),
		burst:   burst,
		idle:    per * 2,
		stop:    make(chan struct{}),
	}
	go l.cleanupLoop()
	return l
}

// Allow reports whether one more request for key may proceed now.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.seen = time.Now()
	l.mu.Unlock()

	return b.lim.Allow()
}

// Reset forgets key, restoring its full burst.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, key)
}

// Stop ends the background cleanup.
func (l *Limiter) Stop() {
	l.once.Do(func() { close(l.stop) })
}

func (l *Limiter) cleanupLoop() {
	ticker := time.NewTicker(l.idle)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case now := <-ticker.C:
			l.mu.Lock()
			for key, b := range l.buckets {
				if now.Sub(b.seen) > l.idle {
					delete(l.buckets, key)
				}
			}
			l.mu.Unlock()
		}
	}
}

// ClientIP extracts the client IP from an HTTP request.
// X-Forwarded-For and X-Real-IP win over RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ip := strings.TrimSpace(strings.Split(xff, ",")[0]); ip != "" {
			return ip
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// SignInLimiter throttles sign-in attempts per client IP and per email.
type SignInLimiter struct {
	ip    *Limiter
	email *Limiter
}

// NewSignInLimiter allows perMinute attempts per IP each minute and half
// that (at least 3) per email every five minutes.
func NewSignInLimiter(perMinute int) *SignInLimiter {
	if perMinute < 1 {
		perMinute = 10
	}
	perEmail := perMinute / 2
	if perEmail < 3 {
		perEmail = 3
	}
	return &SignInLimiter{
		ip:    New(perMinute, time.Minute),
		email: New(perEmail, 5*time.Minute),
	}
}

// Allow reports whether a sign-in attempt for email from r may proceed.
func (s *SignInLimiter) Allow(r *http.Request, email string) bool {
	if !s.ip.Allow(ClientIP(r)) {
		return false
	}
	if key := strings.ToLower(strings.TrimSpace(email)); key != "" {
		return s.email.Allow(key)
	}
	return true
}

// Succeeded clears the per-email budget after a good sign-in.
func (s *SignInLimiter) Succeeded(email string) {
	s.email.Reset(strings.ToLower(strings.TrimSpace(email)))
}

// Stop ends both limiters' background cleanup.
func (s *SignInLimiter) Stop() {
	s.ip.Stop()
	s.email.Stop()
}
