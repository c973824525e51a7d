package middleware

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"gutenberg-analysis-api/internal/config"
	"gutenberg-analysis-api/internal/infrastructure/persistence/redis"
	"gutenberg-analysis-api/internal/interfaces/http/dto"
	"gutenberg-analysis-api/pkg/errors"
	"gutenberg-analysis-api/pkg/logger"
)

// 限流响应头
const (
	RateLimitLimitHeader     = "X-RateLimit-Limit"
	RateLimitRemainingHeader = "X-RateLimit-Remaining"
)

// RateLimiter 滑动窗口限流器，返回是否放行与窗口内剩余配额
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, int, error)
}

// RateLimit 按客户端 IP 与路由模板限流
// 限流器故障时放行请求
func RateLimit(cfg config.RateLimitConfig, limiter RateLimiter) gin.HandlerFunc {
	if !cfg.Enabled || limiter == nil || cfg.Requests <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	window := cfg.Window
	if window <= 0 {
		window = time.Minute
	}
	retryAfter := strconv.Itoa(int((window + time.Second - 1) / time.Second))
	limit := strconv.Itoa(cfg.Requests)

	return func(c *gin.Context) {
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = c.Request.URL.Path
		}
		key := redis.BuildRateLimitKey(c.ClientIP(), endpoint)

		ctx := c.Request.Context()
		allowed, remaining, err := limiter.Allow(ctx, key, cfg.Requests, window)
		if err != nil {
			logger.Warn(ctx, "rate limiter unavailable, allowing request", "error", err.Error())
			c.Next()
			return
		}
		c.Header(RateLimitLimitHeader, limit)
		c.Header(RateLimitRemainingHeader, strconv.Itoa(remaining))
		if !allowed {
			c.Header("Retry-After", retryAfter)
			dto.AppError(c, errors.New(errors.CodeTooManyRequests, "rate limit exceeded"))
			c.Abort()
			return
		}

		c.Next()
	}
}
