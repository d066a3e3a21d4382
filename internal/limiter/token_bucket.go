package limiter

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// idleTTL 超过该时间未访问的客户端桶会被回收
const idleTTL = 10 * time.Minute

// TokenBucketLimiter 进程内令牌桶限流器，每个 key 一个桶
type TokenBucketLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   rate.Limit
	burst   int
	now     func() time.Time
	lastGC  time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewTokenBucketLimiter 创建令牌桶限流器：每 Window 补充 Rate 个令牌，容量为 Burst
func NewTokenBucketLimiter(config *Config) (*TokenBucketLimiter, error) {
	if config.Rate <= 0 || config.Window <= 0 {
		return nil, fmt.Errorf("rate and window must be positive")
	}
	burst := config.Burst
	if burst <= 0 {
		burst = config.Rate
	}

	return &TokenBucketLimiter{
		buckets: make(map[string]*bucket),
		limit:   rate.Limit(float64(config.Rate) / config.Window.Seconds()),
		burst:   int(burst),
		now:     time.Now,
	}, nil
}

// Allow 检查是否允许请求通过
func (tb *TokenBucketLimiter) Allow(_ context.Context, key string) (*LimitResult, error) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := tb.now()
	tb.evictIdle(now)

	b, ok := tb.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(tb.limit, tb.burst)}
		tb.buckets[key] = b
	}
	b.lastSeen = now

	if b.limiter.AllowN(now, 1) {
		return &LimitResult{
			Allowed:   true,
			Remaining: int64(math.Floor(b.limiter.TokensAt(now))),
		}, nil
	}

	// 取得下一个令牌的等待时间后立即归还预留
	reservation := b.limiter.ReserveN(now, 1)
	retryAfter := reservation.DelayFrom(now)
	reservation.CancelAt(now)

	return &LimitResult{
		Allowed:    false,
		Remaining:  0,
		RetryAfter: retryAfter,
	}, nil
}

// evictIdle 每个 idleTTL 周期最多扫描一次
func (tb *TokenBucketLimiter) evictIdle(now time.Time) {
	if now.Sub(tb.lastGC) < idleTTL {
		return
	}
	tb.lastGC = now
	for key, b := range tb.buckets {
		if now.Sub(b.lastSeen) >= idleTTL {
			delete(tb.buckets, key)
		}
	}
}

// size 返回当前桶数量
func (tb *TokenBucketLimiter) size() int {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return len(tb.buckets)
}
