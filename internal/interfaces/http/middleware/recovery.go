// Package middleware 提供 HTTP 中间件
package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"gutenberg-analysis-api/internal/interfaces/http/dto"
	"gutenberg-analysis-api/pkg/errors"
	"gutenberg-analysis-api/pkg/logger"
)

// Recovery 捕获 handler 中的 panic 并返回统一的 500 响应
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			logger.Error(c.Request.Context(), "panic recovered",
				fmt.Errorf("%v", r),
				"stack", string(debug.Stack()),
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
			)

			dto.AppError(c, errors.New(errors.CodeInternalError, "internal server error"))
			c.Abort()
		}()

		c.Next()
	}
}
