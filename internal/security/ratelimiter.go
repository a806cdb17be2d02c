// 文件路径: internal/security/ratelimiter.go
// 模块说明: 基于缓存计数的固定窗口限流，用于登录与构建器接口。
package security

import (
	"context"
	"fmt"
	"time"

	"github.com/amiwrpremium/xtls-crud/internal/cache"
)

// RateLimiter 控制重复行为（如登录尝试、预览构建）。
type RateLimiter struct {
	store cache.Store
	now   func() time.Time
}

// RateResult 描述 Allow 调用的结果。
type RateResult struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// RetryAfter returns how long the caller should wait before the window resets.
func (r RateResult) RetryAfter(now time.Time) time.Duration {
	if d := r.ResetAt.Sub(now); d > 0 {
		return d
	}
	return 0
}

// NewRateLimiter 使用缓存存储构建限流器。
func NewRateLimiter(store cache.Store) (*RateLimiter, error) {
	if store == nil {
		return nil, fmt.Errorf("rate limiter requires cache store / 限流器需要缓存存储")
	}
	return &RateLimiter{store: store.Namespace("rate"), now: time.Now}, nil
}

// Allow 判断指定 key 是否可以在当前限额内继续执行。
func (l *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (RateResult, error) {
	if l == nil {
		return RateResult{}, fmt.Errorf("rate limiter not initialized / 限流器未初始化")
	}
	if limit <= 0 {
		return RateResult{}, fmt.Errorf("limit must be positive / limit 必须为正数")
	}
	if window <= 0 {
		window = time.Minute
	}

	current, err := l.store.Increment(ctx, key, 1, window)
	if err != nil {
		return RateResult{}, fmt.Errorf("increment rate limit counter / 限流计数自增失败: %w", err)
	}
	ttl, ok := l.store.TTL(ctx, key)
	if !ok {
		ttl = window
	}

	return RateResult{
		Allowed:   current <= int64(limit),
		Remaining: max(limit-int(current), 0),
		ResetAt:   l.now().UTC().Add(ttl),
	}, nil
}

// Reset 清除指定 key 的计数。
func (l *RateLimiter) Reset(ctx context.Context, key string) {
	if l == nil {
		return
	}
	l.store.Delete(ctx, key)
}
