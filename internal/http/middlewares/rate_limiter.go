package middlewares

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiter is a token bucket per derived key (client IP by default).
type RateLimiter struct {
	mu       sync.Mutex
	every    rate.Limit
	burst    int
	idleTTL  time.Duration
	lastGC   time.Time
	visitors map[string]*visitor
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows perMinute requests per key, refilled evenly, with
// bursts up to perMinute.
func NewRateLimiter(perMinute int) *RateLimiter {
	if perMinute <= 0 {
		perMinute = 1
	}

	return &RateLimiter{
		every:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    perMinute,
		idleTTL:  10 * time.Minute,
		lastGC:   time.Now(),
		visitors: make(map[string]*visitor),
	}
}

func (rl *RateLimiter) limiterFor(key string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if now.Sub(rl.lastGC) > rl.idleTTL {
		for k, v := range rl.visitors {
			if now.Sub(v.lastSeen) > rl.idleTTL {
				delete(rl.visitors, k)
			}
		}
		rl.lastGC = now
	}

	v, ok := rl.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.every, rl.burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = now

	return v.limiter
}

func (rl *RateLimiter) RateLimiterMiddleware(keyFn func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := keyFn(c)
		if key == "" {
			// fallback to IP if key cannot be derived
			key = clientIP(c)
		}

		now := time.Now()
		lim := rl.limiterFor(key, now)

		r := lim.ReserveN(now, 1)
		if !r.OK() {
			rl.reject(c, time.Minute)
			return
		}

		if delay := r.DelayFrom(now); delay > 0 {
			r.CancelAt(now)
			rl.reject(c, delay)
			return
		}

		c.Next()
	}
}

func (rl *RateLimiter) reject(c *gin.Context, retryAfter time.Duration) {
	secs := int(math.Ceil(retryAfter.Seconds()))
	if secs < 1 {
		secs = 1
	}

	c.Header("Retry-After", strconv.Itoa(secs))

	reqID, _ := c.Get(CtxRequestID)
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
		"error": gin.H{
			"code":      "rate_limited",
			"message":   "Too many requests. Please try again shortly.",
			"requestId": reqID,
		},
	})
}

// for unauthenticated endpoints: rate limit by IP
func KeyByIP(c *gin.Context) string {
	return clientIP(c)
}

// For authenticated endpoints: rate limit by userID if available
func KeyByUserOrIP(c *gin.Context) string {
	id, ok := UserIDFromContext(c)
	if ok {
		return "user:" + id
	}

	return clientIP(c)
}

func clientIP(c *gin.Context) string {
	// Gin’s ClientIP respects X-Forwarded-For / X-Real-IP if configured.
	ip := c.ClientIP()

	host, _, err := net.SplitHostPort(ip)
	if err == nil && host != "" {
		return host
	}

	return ip
}
