package limiter

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// FixedWindowLimiter 基于 Redis 的固定窗口限流器，多实例共享计数
type FixedWindowLimiter struct {
	script    *redis.Script
	client    redis.Scripter
	config    *Config
	keyPrefix string
}

// Redis Lua脚本：固定窗口算法
const fixedWindowScript = `
-- KEYS[1]: 计数器key
-- ARGV[1]: 限制数量(rate)
-- ARGV[2]: 时间窗口(window秒)
-- ARGV[3]: 当前时间戳

local key = KEYS[1]
local limit = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

local window_start = math.floor(now / window) * window
local window_key = key .. ":" .. window_start

local current = tonumber(redis.call('GET', window_key) or 0)

if current + 1 > limit then
    return {0, 0, window_start + window - now}
end

local count = redis.call('INCR', window_key)
if count == 1 then
    redis.call('EXPIRE', window_key, window)
end
return {1, limit - count, 0}
`

// NewFixedWindowLimiter 创建固定窗口限流器，窗口以整秒计
func NewFixedWindowLimiter(client redis.Scripter, config *Config) (*FixedWindowLimiter, error) {
	if config.Rate <= 0 {
		return nil, fmt.Errorf("rate must be positive")
	}
	if config.Window < time.Second {
		return nil, fmt.Errorf("window must be at least 1s, got %s", config.Window)
	}

	prefix := config.KeyPrefix
	if prefix == "" {
		prefix = "stock_bff:limiter:fw"
	}

	return &FixedWindowLimiter{
		script:    redis.NewScript(fixedWindowScript),
		client:    client,
		config:    config,
		keyPrefix: prefix,
	}, nil
}

// getKey 生成Redis key
func (fw *FixedWindowLimiter) getKey(key string) string {
	return fmt.Sprintf("%s:%s", fw.keyPrefix, key)
}

// Allow 检查是否允许请求通过
func (fw *FixedWindowLimiter) Allow(ctx context.Context, key string) (*LimitResult, error) {
	values, err := fw.script.Run(ctx, fw.client,
		[]string{fw.getKey(key)},
		fw.config.Rate,
		int64(fw.config.Window/time.Second),
		time.Now().Unix(),
	).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("failed to execute fixed window script: %w", err)
	}
	if len(values) != 3 {
		return nil, fmt.Errorf("unexpected script result length %d", len(values))
	}

	return &LimitResult{
		Allowed:    values[0] == 1,
		Remaining:  values[1],
		RetryAfter: time.Duration(values[2]) * time.Second,
	}, nil
}
