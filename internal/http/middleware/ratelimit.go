package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

type clientWindow struct {
	start time.Time
	count int
}

var (
	rlMu    sync.Mutex
	clients = make(map[string]*clientWindow)
)

// SimpleRateLimit is an in-process fixed-window limiter keyed by client
// IP. It backs RedisRateLimit when no Redis is configured.
func SimpleRateLimit(maxRequests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		RLRequests.WithLabelValues(c.FullPath()).Inc()

		now := time.Now()

		rlMu.Lock()
		cw, ok := clients[ip]
		if !ok || now.Sub(cw.start) > window {
			clients[ip] = &clientWindow{start: now, count: 1}
			if len(clients) > 10000 {
				pruneLocked(now, window)
			}
			rlMu.Unlock()
			c.Next()
			return
		}
		cw.count++
		blocked := cw.count > maxRequests
		rlMu.Unlock()

		if blocked {
			RLBlocked.WithLabelValues(c.FullPath()).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

func pruneLocked(now time.Time, window time.Duration) {
	for ip, cw := range clients {
		if now.Sub(cw.start) > window {
			delete(clients, ip)
		}
	}
}
