package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimit provides per-IP token-bucket rate limiting.
// r = requests per second, b = burst size.
//
// The returned prune function drops limiters idle for more than ten
// minutes; register it with the scheduler instead of spawning a
// goroutine here.
func RateLimit(r rate.Limit, b int) (gin.HandlerFunc, func()) {
	limiters := &sync.Map{}

	prune := func() {
		cutoff := time.Now().Add(-10 * time.Minute)
		limiters.Range(func(k, v interface{}) bool {
			if v.(*ipLimiter).lastSeen.Before(cutoff) {
				limiters.Delete(k)
			}
			return true
		})
	}

	getLimiter := func(ip string) *rate.Limiter {
		v, _ := limiters.LoadOrStore(ip, &ipLimiter{limiter: rate.NewLimiter(r, b)})
		il := v.(*ipLimiter)
		il.lastSeen = time.Now()
		return il.limiter
	}

	handler := func(c *gin.Context) {
		ip := c.ClientIP()
		if !getLimiter(ip).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
	return handler, prune
}
