// Package limiter 提供按客户端限流的实现：进程内令牌桶与基于 Redis 的固定窗口。
package limiter

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LimitResult 限流结果
type LimitResult struct {
	Allowed    bool          `json:"allowed"`     // 是否允许通过
	Remaining  int64         `json:"remaining"`   // 剩余配额
	RetryAfter time.Duration `json:"retry_after"` // 建议重试时间
}

// Limiter 限流器接口
type Limiter interface {
	// Allow 检查 key 对应的客户端是否允许再发起一个请求
	Allow(ctx context.Context, key string) (*LimitResult, error)
}

// Config 限流配置
type Config struct {
	Rate      int64         // 每个时间窗口允许的请求数
	Window    time.Duration // 时间窗口
	Burst     int64         // 突发容量（仅令牌桶）
	KeyPrefix string        // Redis key 前缀
}

// Backend 限流后端类型
type Backend string

const (
	BackendMemory Backend = "memory" // 进程内令牌桶
	BackendRedis  Backend = "redis"  // Redis 固定窗口
)

// New 按后端类型创建限流器，redis 后端需要传入客户端
func New(backend Backend, config *Config, client redis.Scripter) (Limiter, error) {
	switch backend {
	case BackendMemory:
		return NewTokenBucketLimiter(config)
	case BackendRedis:
		if client == nil {
			return nil, fmt.Errorf("redis backend requires a client")
		}
		return NewFixedWindowLimiter(client, config)
	default:
		return nil, fmt.Errorf("unknown limiter backend %q", backend)
	}
}
