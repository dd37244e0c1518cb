package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimitConfig defines rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int
	Burst             int
	IdleTTL           time.Duration // Per-client limiters unused this long are evicted
	SkipPaths         []string      // Route templates exempt from limiting
}

// DefaultRateLimitConfig returns the default per-client limits.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 100,
		Burst:             200,
		IdleTTL:           10 * time.Minute,
	}
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// clientLimiters hands out one token bucket per client IP.
type clientLimiters struct {
	mu        sync.Mutex
	clients   map[string]*client
	limit     rate.Limit
	burst     int
	ttl       time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func newClientLimiters(cfg RateLimitConfig) *clientLimiters {
	return &clientLimiters{
		clients: make(map[string]*client),
		limit:   rate.Limit(cfg.RequestsPerSecond),
		burst:   cfg.Burst,
		ttl:     cfg.IdleTTL,
		now:     time.Now,
	}
}

func (l *clientLimiters) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if l.ttl > 0 && now.Sub(l.lastSweep) > l.ttl {
		for key, c := range l.clients {
			if now.Sub(c.lastSeen) > l.ttl {
				delete(l.clients, key)
			}
		}
		l.lastSweep = now
	}

	c, ok := l.clients[ip]
	if !ok {
		c = &client{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[ip] = c
	}
	c.lastSeen = now
	return c.limiter
}

func (l *clientLimiters) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// RateLimit creates a per-IP rate limiting middleware.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	limiters := newClientLimiters(cfg)
	skip := make(map[string]bool, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = true
	}

	return func(c *gin.Context) {
		if skip[c.FullPath()] {
			c.Next()
			return
		}
		if !limiters.get(c.ClientIP()).Allow() {
			abortLimited(c)
			return
		}
		c.Next()
	}
}

// GlobalRateLimit creates a global rate limiting middleware.
func GlobalRateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	limiter := rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)

	return func(c *gin.Context) {
		if !limiter.Allow() {
			abortLimited(c)
			return
		}
		c.Next()
	}
}

func abortLimited(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
		"error": "rate limit exceeded",
	})
}
