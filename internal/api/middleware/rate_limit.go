package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jazz-17/reservation-system/pkg/redis"
	"github.com/jazz-17/reservation-system/pkg/response"
)

// RateLimit 基于 Redis 滑动窗口限制单个调用方的请求频率。
// 已认证请求按 user_id 计数，未认证请求（登录、注册）按客户端 IP 计数。
// Redis 不可用或出错时降级放行，与 JWTAuth 的黑名单策略一致。
func RateLimit(rdb *redis.Client, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rdb == nil {
			c.Next()
			return
		}

		caller := c.GetString("user_id")
		if caller == "" {
			caller = c.ClientIP()
		}
		key := fmt.Sprintf("rate_limit:%s:%s", caller, c.FullPath())

		allowed, err := rdb.CheckRateLimit(c.Request.Context(), key, limit, window)
		if err == nil && !allowed {
			response.Error(c, http.StatusTooManyRequests, 10004, "请求过于频繁，请稍后再试")
			c.Abort()
			return
		}

		c.Next()
	}
}
