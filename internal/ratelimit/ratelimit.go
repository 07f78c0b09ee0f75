package ratelimit

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	IdleTTL         = 10 * time.Minute // Forget clients idle this long
	CleanupInterval = 2 * time.Minute  // Cleanup every 2 minutes
)

// Config controls the per-client token bucket. A non-positive RequestsPerSecond disables limiting.
type Config struct {
	RequestsPerSecond float64
	Burst             int
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter rate limits mutating requests per client address.
type Limiter struct {
	mu          sync.Mutex
	cfg         Config
	clients     map[string]*client
	stopCleanup chan struct{}
	stopOnce    sync.Once
}

// NewLimiter creates a limiter and starts its cleanup loop. Call Stop when done.
func NewLimiter(cfg Config) *Limiter {
	l := &Limiter{
		cfg:         cfg,
		clients:     make(map[string]*client),
		stopCleanup: make(chan struct{}),
	}
	go l.cleanupLoop()
	return l
}

// Enabled reports whether requests can be rejected at all.
func (l *Limiter) Enabled() bool {
	return l.cfg.RequestsPerSecond > 0
}

// Allow consumes one token for key.
func (l *Limiter) Allow(key string) bool {
	if !l.Enabled() {
		return true
	}

	l.mu.Lock()
	c, ok := l.clients[key]
	if !ok {
		burst := l.cfg.Burst
		if burst < 1 {
			burst = 1
		}
		c = &client{limiter: rate.NewLimiter(rate.Limit(l.cfg.RequestsPerSecond), burst)}
		l.clients[key] = c
	}
	c.lastSeen = time.Now()
	l.mu.Unlock()

	return c.limiter.Allow()
}

// Middleware rejects mutating requests over the limit by calling onLimited.
// Safe methods always pass.
func (l *Limiter) Middleware(onLimited http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}
			if !l.Allow(clientKey(r)) {
				onLimited(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Stop ends the cleanup loop.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stopCleanup) })
}

func (l *Limiter) cleanupLoop() {
	ticker := time.NewTicker(CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.cleanup(time.Now())
		case <-l.stopCleanup:
			return
		}
	}
}

func (l *Limiter) cleanup(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for key, c := range l.clients {
		if now.Sub(c.lastSeen) > IdleTTL {
			delete(l.clients, key)
		}
	}
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
