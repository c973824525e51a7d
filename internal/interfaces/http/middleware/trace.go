package middleware

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"gutenberg-analysis-api/pkg/logger"
	"gutenberg-analysis-api/pkg/tracer"
)

// TraceIDHeader 响应中回写的 trace id 头
const TraceIDHeader = "X-Trace-ID"

// Trace OpenTelemetry 追踪中间件
func Trace(serviceName string) gin.HandlerFunc {
	return otelgin.Middleware(serviceName)
}

// TraceContext 把当前 span 的 trace_id/span_id 写入 gin 与日志上下文
func TraceContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := tracer.TraceID(c.Request.Context())
		if traceID == "" {
			c.Next()
			return
		}

		spanID := tracer.SpanID(c.Request.Context())
		c.Set("trace_id", traceID)
		c.Set("span_id", spanID)

		ctx := logger.WithContext(c.Request.Context(), logger.TraceIDKey, traceID)
		ctx = logger.WithContext(ctx, logger.SpanIDKey, spanID)
		c.Request = c.Request.WithContext(ctx)
		c.Header(TraceIDHeader, traceID)

		c.Next()
	}
}
