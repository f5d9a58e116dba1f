package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	requestIDKey    = "request_id"
	requestIDHeader = "X-Request-ID"
	// 超长的外部 ID 直接丢弃重新生成，避免日志被塞入垃圾内容
	requestIDMaxLen = 64
)

// RequestID 为每个请求分配追踪 ID。
// 优先沿用调用方携带的 X-Request-ID，否则生成新 UUID；
// ID 同时写入 gin.Context 与响应头，供日志中间件与客户端关联。
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(requestIDHeader)
		if rid == "" || len(rid) > requestIDMaxLen {
			rid = uuid.New().String()
		}

		c.Set(requestIDKey, rid)
		c.Header(requestIDHeader, rid)

		c.Next()
	}
}

// RequestIDFrom 读取当前请求的追踪 ID，未设置时返回空串
func RequestIDFrom(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
