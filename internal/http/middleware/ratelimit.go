package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

type clientInfo struct {
	start time.Time
	count int
}

// memoryLimiter is a per-process fixed window keyed by client IP.
type memoryLimiter struct {
	mu          sync.Mutex
	clients     map[string]*clientInfo
	maxRequests int
	window      time.Duration
	lastSweep   time.Time
	now         func() time.Time
}

func newMemoryLimiter(maxRequests int, window time.Duration) *memoryLimiter {
	return &memoryLimiter{
		clients:     make(map[string]*clientInfo),
		maxRequests: maxRequests,
		window:      window,
		now:         time.Now,
	}
}

// allow records a hit for ip and reports whether it is within the limit.
func (l *memoryLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) > l.window {
		for k, ci := range l.clients {
			if now.Sub(ci.start) > l.window {
				delete(l.clients, k)
			}
		}
		l.lastSweep = now
	}

	ci, ok := l.clients[ip]
	if !ok || now.Sub(ci.start) > l.window {
		l.clients[ip] = &clientInfo{start: now, count: 1}
		return true
	}
	ci.count++
	return ci.count <= l.maxRequests
}

// SimpleRateLimit blocks clients that send more than maxRequests per window.
// State is local to the process.
func SimpleRateLimit(maxRequests int, window time.Duration) gin.HandlerFunc {
	l := newMemoryLimiter(maxRequests, window)
	return func(c *gin.Context) {
		if !l.allow(c.ClientIP()) {
			RLBlocked.WithLabelValues(c.FullPath()).Inc()
			tooManyRequests(c, window)
			return
		}
		RLRequests.WithLabelValues(c.FullPath()).Inc()
		c.Next()
	}
}

func tooManyRequests(c *gin.Context, window time.Duration) {
	c.Header("Retry-After", strconv.Itoa(int(window.Seconds())))
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"ok": false, "error": "rate limit exceeded"})
}
