package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Matwowqwqjwd/Sistema-de-votaci-n-USTA/pkg/response"
)

// RateLimiter 固定窗口计数器
type RateLimiter interface {
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// RateLimit 按客户端 IP 与路由限流
// limiter 为 nil 时降级放行（与 JWTAuth 策略一致）
func RateLimit(limiter RateLimiter, limit int, window time.Duration) gin.HandlerFunc {
	return rateLimit(limiter, limit, window, func(c *gin.Context) string {
		return fmt.Sprintf("rate_limit:ip:%s:%s", c.ClientIP(), c.FullPath())
	})
}

// RateLimitByUser 按已认证用户与路由限流，须挂在 JWTAuth 之后
func RateLimitByUser(limiter RateLimiter, limit int, window time.Duration) gin.HandlerFunc {
	return rateLimit(limiter, limit, window, func(c *gin.Context) string {
		userID := c.GetString(CtxUserID)
		if userID == "" {
			userID = "ip:" + c.ClientIP()
		}
		return fmt.Sprintf("rate_limit:user:%s:%s", userID, c.FullPath())
	})
}

func rateLimit(limiter RateLimiter, limit int, window time.Duration, keyFn func(c *gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil || limit <= 0 {
			c.Next()
			return
		}

		allowed, err := limiter.CheckRateLimit(c.Request.Context(), keyFn(c), limit, window)
		if err != nil {
			// Redis 出错时降级放行
			c.Next()
			return
		}

		if !allowed {
			response.TooManyRequests(c, 10004, "请求过于频繁，请稍后再试")
			c.Abort()
			return
		}

		c.Next()
	}
}
