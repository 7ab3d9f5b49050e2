package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/famvault/auth-service/internal/constants"
	"github.com/famvault/auth-service/pkg/logger"
	"github.com/gin-gonic/gin"
)

// RateLimiter is a per-IP sliding window. In-memory on purpose: the
// auth endpoints it guards are cheap to over-admit briefly after a
// restart, and a shared store would put Redis on the hot path of every
// login.
type RateLimiter struct {
	hits       map[string][]time.Time
	maxRequest int
	window     time.Duration
	mu         sync.Mutex
}

func NewRateLimiter(maxRequest int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		hits:       make(map[string][]time.Time),
		maxRequest: maxRequest,
		window:     window,
	}
}

func (rl *RateLimiter) cleanup(now time.Time) {
	for ip, stamps := range rl.hits {
		var valid []time.Time
		for _, t := range stamps {
			if now.Sub(t) <= rl.window {
				valid = append(valid, t)
			}
		}
		if len(valid) > 0 {
			rl.hits[ip] = valid
		} else {
			delete(rl.hits, ip)
		}
	}
}

// Allow records one hit for the key and reports whether it fits in the
// window.
func (rl *RateLimiter) Allow(key string, now time.Time) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.cleanup(now)

	stamps := rl.hits[key]
	if len(stamps) >= rl.maxRequest {
		return false
	}
	rl.hits[key] = append(stamps, now)
	return true
}

func RateLimit(maxRequest int, window time.Duration) gin.HandlerFunc {
	limiter := NewRateLimiter(maxRequest, window)

	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !limiter.Allow(ip, time.Now()) {
			logger.WarnWithContext(c.Request.Context(), "Rate limit exceeded").
				String("client_ip", ip).
				String("path", c.Request.URL.Path).
				Log()
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				constants.BuildErrorResponse("RATE_LIMITED", "too many requests, slow down", nil))
			return
		}

		c.Next()
	}
}
