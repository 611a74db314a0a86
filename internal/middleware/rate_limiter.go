package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

type RateLimiterConfig struct {
	Rate  rate.Limit
	Burst int
	// IdleTTL is how long an idle client's limiter is kept.
	IdleTTL time.Duration
	// CleanupInterval is how often expired limiters are purged.
	CleanupInterval time.Duration
}

// RateLimiter applies a token bucket per client IP
type RateLimiter struct {
	config  RateLimiterConfig
	clients *cache.Cache
	now     func() time.Time
}

func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.IdleTTL <= 0 {
		config.IdleTTL = 10 * time.Minute
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = config.IdleTTL
	}
	return &RateLimiter{
		config:  config,
		clients: cache.New(config.IdleTTL, config.CleanupInterval),
		now:     time.Now,
	}
}

// limiter returns the client's bucket and pushes back its idle expiry.
func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	if v, found := rl.clients.Get(key); found {
		l := v.(*rate.Limiter)
		rl.clients.SetDefault(key, l)
		return l
	}

	l := rate.NewLimiter(rl.config.Rate, rl.config.Burst)
	if err := rl.clients.Add(key, l, cache.DefaultExpiration); err != nil {
		// lost a race with a concurrent first request
		if v, found := rl.clients.Get(key); found {
			return v.(*rate.Limiter)
		}
	}
	return l
}

func (rl *RateLimiter) allow(key string) bool {
	return rl.limiter(key).AllowN(rl.now(), 1)
}

func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"detail": "Request was throttled.",
			})
			return
		}
		c.Next()
	}
}
