package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
)

// slidingWindowScript 清理窗口外成员、计数并在未超限时记入本次请求，整体原子执行
// KEYS[1] 限流键; ARGV: 当前毫秒, 窗口起点(开区间), limit, 成员, 过期毫秒
// 返回 {是否允许, 剩余配额}
var slidingWindowScript = redis.NewScript(`
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', ARGV[2])
local count = redis.call('ZCARD', KEYS[1])
local limit = tonumber(ARGV[3])
if count >= limit then
	return {0, 0}
end
redis.call('ZADD', KEYS[1], ARGV[1], ARGV[4])
redis.call('PEXPIRE', KEYS[1], ARGV[5])
return {1, limit - count - 1}
`)

// RateLimiter 滑动窗口限流器，窗口内每个请求对应有序集合中的一个成员
type RateLimiter struct {
	client *Client
	now    func() time.Time
}

// NewRateLimiter 创建限流器
func NewRateLimiter(client *Client) *RateLimiter {
	return &RateLimiter{client: client, now: time.Now}
}

// Allow 检查是否允许请求，允许时记入窗口并返回剩余配额
func (l *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, int, error) {
	ctx, span := tracer.Start(ctx, "ratelimit.Allow")
	span.SetAttributes(
		attribute.String("ratelimit.key", key),
		attribute.Int("ratelimit.limit", limit),
		attribute.Int64("ratelimit.window_ms", window.Milliseconds()),
	)
	defer span.End()

	now := l.now()
	nowMs := strconv.FormatInt(now.UnixMilli(), 10)
	res, err := slidingWindowScript.Run(ctx, l.client.rdb, []string{key},
		nowMs,
		"("+strconv.FormatInt(now.Add(-window).UnixMilli(), 10),
		limit,
		nowMs+"-"+uuid.NewString(),
		(window * 2).Milliseconds(),
	).Int64Slice()
	if err != nil {
		span.RecordError(err)
		return false, 0, err
	}
	if len(res) != 2 {
		err := fmt.Errorf("unexpected rate limit reply %v", res)
		span.RecordError(err)
		return false, 0, err
	}

	allowed, remaining := res[0] == 1, int(res[1])
	span.SetAttributes(
		attribute.Bool("ratelimit.allowed", allowed),
		attribute.Int("ratelimit.remaining", remaining),
	)
	return allowed, remaining, nil
}

// BuildRateLimitKey 构建限流键
func BuildRateLimitKey(client, endpoint string) string {
	return fmt.Sprintf("ratelimit:%s:%s", client, endpoint)
}
