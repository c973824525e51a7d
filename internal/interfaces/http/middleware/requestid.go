package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"gutenberg-analysis-api/pkg/logger"
)

// RequestIDHeader 请求 ID 头
const RequestIDHeader = "X-Request-ID"

// maxRequestIDLen 客户端传入的请求 ID 超过该长度时重新生成
const maxRequestIDLen = 128

// RequestID 为每个请求注入请求 ID，沿用客户端传入值
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > maxRequestIDLen {
			id = uuid.NewString()
		}

		c.Set("request_id", id)
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context(), logger.RequestIDKey, id))
		c.Header(RequestIDHeader, id)

		c.Next()
	}
}
