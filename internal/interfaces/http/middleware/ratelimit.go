// Package middleware 提供 HTTP 中间件
package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"novel-journey-api/internal/config"
	"novel-journey-api/internal/infrastructure/persistence/redis"
)

// RateLimit 限流中间件，按用户和路径滑动窗口计数
func RateLimit(cfg config.RateLimitConfig, limiter *redis.RateLimiter) gin.HandlerFunc {
	if !cfg.Enabled || limiter == nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	limit := cfg.RequestsPerSecond
	if limit <= 0 {
		limit = 100
	}
	if cfg.Burst > limit {
		limit = cfg.Burst
	}

	return func(c *gin.Context) {
		userID := c.GetString("user_id")
		if userID == "" {
			userID = "anonymous"
		}

		key := redis.BuildUserRateLimitKey(userID, c.Request.URL.Path)

		allowed, err := limiter.Allow(c.Request.Context(), key, limit, time.Second)
		if err != nil {
			// 限流器故障时放行，不阻塞业务
			c.Next()
			return
		}

		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code":     429,
				"message":  "rate limit exceeded",
				"trace_id": c.GetString("trace_id"),
			})
			return
		}

		c.Next()
	}
}
