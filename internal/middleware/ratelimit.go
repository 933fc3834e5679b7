package middleware

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimit returns per-caller rate limiting middleware using token buckets.
// Each caller gets a bucket that fills at rps tokens/sec up to burst tokens;
// an empty bucket means 429. Callers are identified by the API key set by
// the auth middleware, or by client IP when there is none.
//
// Every assessment request can fan out into many model calls, so this guards
// the model budget as much as the server.
func RateLimit(rps float64, burst int) gin.HandlerFunc {
	var mu sync.Mutex
	limiters := make(map[string]*rate.Limiter)

	return func(c *gin.Context) {
		caller := "ip:" + c.ClientIP()
		if key := c.GetString(ContextKeyAPIKey); key != "" {
			caller = "key:" + key
		}

		mu.Lock()
		limiter, exists := limiters[caller]
		if !exists {
			limiter = rate.NewLimiter(rate.Limit(rps), burst)
			limiters[caller] = limiter
		}
		mu.Unlock()

		if !limiter.Allow() {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}

		c.Next()
	}
}
