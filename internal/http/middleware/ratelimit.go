package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/http/response"
	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/observability"
	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/platform/ctxutil"
)

type RateLimitConfig struct {
	Enabled bool
	// PerMinute is the sustained request rate per caller.
	PerMinute int
	Burst     int
}

// RateLimiter hands out one token bucket per caller: the user id when signed
// in, else the client IP.
type RateLimiter struct {
	cfg     RateLimitConfig
	metrics *observability.Metrics

	mu          sync.Mutex
	limiters    map[string]*rate.Limiter
	lastCleanup time.Time
	now         func() time.Time
}

func NewRateLimiter(cfg RateLimitConfig, metrics *observability.Metrics) *RateLimiter {
	if cfg.PerMinute <= 0 {
		cfg.PerMinute = 30
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 10
	}
	return &RateLimiter{
		cfg:      cfg,
		metrics:  metrics,
		limiters: make(map[string]*rate.Limiter),
		now:      time.Now,
	}
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if rl.lastCleanup.IsZero() {
		rl.lastCleanup = now
	}
	// Drop idle buckets hourly; a fresh bucket starts full anyway.
	if now.Sub(rl.lastCleanup) > time.Hour {
		rl.limiters = make(map[string]*rate.Limiter)
		rl.lastCleanup = now
	}

	l, ok := rl.limiters[key]
	if !ok {
		l = rate.NewLimiter(rate.Limit(float64(rl.cfg.PerMinute)/60.0), rl.cfg.Burst)
		rl.limiters[key] = l
	}
	return l
}

// Middleware must run after OptionalAuth so signed-in callers are keyed by id.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	if rl == nil || !rl.cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()
		if userID, ok := ctxutil.UserID(c.Request.Context()); ok {
			key = "user:" + userID.String()
		}
		if !rl.limiter(key).AllowN(rl.now(), 1) {
			route := c.FullPath()
			if route == "" {
				route = c.Request.URL.Path
			}
			rl.metrics.RateLimited(route)
			c.Header("Retry-After", "60")
			response.RespondError(c, http.StatusTooManyRequests, "rate_limited", nil)
			return
		}
		c.Next()
	}
}
