package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiterConfig configures per-IP rate limiting.
type RateLimiterConfig struct {
	RequestsPerSecond float64
	Burst             int
}

type limiterMap struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	lastSeen map[string]time.Time
	config   RateLimiterConfig
}

func newLimiterMap(config RateLimiterConfig) *limiterMap {
	lm := &limiterMap{
		limiters: make(map[string]*rate.Limiter),
		lastSeen: make(map[string]time.Time),
		config:   config,
	}
	go lm.cleanup()
	return lm
}

func (lm *limiterMap) get(ip string) *rate.Limiter {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	limiter, exists := lm.limiters[ip]
	if !exists {
		limiter = rate.NewLimiter(rate.Limit(lm.config.RequestsPerSecond), lm.config.Burst)
		lm.limiters[ip] = limiter
	}
	lm.lastSeen[ip] = time.Now()
	return limiter
}

// cleanup drops limiters for IPs idle longer than an hour.
func (lm *limiterMap) cleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		cutoff := time.Now().Add(-time.Hour)
		lm.mu.Lock()
		for ip, seen := range lm.lastSeen {
			if seen.Before(cutoff) {
				delete(lm.limiters, ip)
				delete(lm.lastSeen, ip)
			}
		}
		lm.mu.Unlock()
	}
}

// RateLimiter creates a per-IP rate limiting middleware
func RateLimiter(config RateLimiterConfig) gin.HandlerFunc {
	limiters := newLimiterMap(config)

	return func(c *gin.Context) {
		if !limiters.get(c.ClientIP()).Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "Rate limit exceeded. Please try again later.",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
