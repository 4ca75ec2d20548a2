package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/darkodi/shorturl/internal/errors"
	"github.com/darkodi/shorturl/internal/logger"
)

// RateLimiter implements a token bucket rate limiter keyed by client IP
type RateLimiter struct {
	mu       sync.Mutex
	clients  map[string]*client
	rate     int           // tokens added per interval
	burst    int           // max tokens (bucket size)
	interval time.Duration // how often to add tokens
	cleanup  time.Duration // idle entries older than this are dropped
	now      func() time.Time
	log      *logger.Logger
	stop     chan struct{}
	stopOnce sync.Once
}

type client struct {
	tokens    int
	lastCheck time.Time
}

// RateLimiterConfig holds rate limiter settings
type RateLimiterConfig struct {
	Rate     int           // Requests per interval
	Burst    int           // Max burst size
	Interval time.Duration // Token refill interval
	Cleanup  time.Duration // Cleanup interval for old clients
}

// NewRateLimiter creates a new rate limiter and starts its cleanup loop.
// Call Stop to end the loop.
func NewRateLimiter(cfg RateLimiterConfig, log *logger.Logger) *RateLimiter {
	rl := &RateLimiter{
		clients:  make(map[string]*client),
		rate:     cfg.Rate,
		burst:    cfg.Burst,
		interval: cfg.Interval,
		cleanup:  cfg.Cleanup,
		now:      time.Now,
		log:      log,
		stop:     make(chan struct{}),
	}

	if rl.cleanup > 0 {
		go rl.cleanupLoop()
	}

	return rl
}

// Allow checks if a request from the given IP is allowed
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()

	c, exists := rl.clients[ip]
	if !exists {
		// New client gets full bucket, minus the current request
		rl.clients[ip] = &client{
			tokens:    rl.burst - 1,
			lastCheck: now,
		}
		return true
	}

	intervals := int(now.Sub(c.lastCheck) / rl.interval)
	if intervals > 0 {
		c.tokens = min(c.tokens+intervals*rl.rate, rl.burst)
		c.lastCheck = c.lastCheck.Add(time.Duration(intervals) * rl.interval)
	}

	if c.tokens > 0 {
		c.tokens--
		return true
	}

	return false
}

// Stop ends the cleanup loop
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.cleanup)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.evictIdle()
		}
	}
}

func (rl *RateLimiter) evictIdle() {
	rl.mu.Lock()
	cutoff := rl.now().Add(-rl.cleanup)
	for ip, c := range rl.clients {
		if c.lastCheck.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
	count := len(rl.clients)
	rl.mu.Unlock()

	rl.log.Debug("rate limiter cleanup", "active_clients", count)
}

// Middleware returns the rate limiting middleware
func (rl *RateLimiter) Middleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := getClientIP(r)

			if !rl.Allow(ip) {
				rl.log.WithRequestID(GetRequestID(r.Context())).Warn("rate limit exceeded",
					"ip", ip,
					"path", r.URL.Path,
				)

				w.Header().Set("Retry-After", "1")
				errors.RateLimitExceeded().WriteJSON(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// getClientIP extracts the client IP from the request
func getClientIP(r *http.Request) string {
	// Behind a proxy the first X-Forwarded-For entry is the client
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
