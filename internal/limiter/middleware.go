package limiter

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MorseWayne/stock_bff/internal/resp"
)

// limiterTimeout 单次限流检查的超时时间
const limiterTimeout = 200 * time.Millisecond

// MiddlewareConfig 中间件配置
type MiddlewareConfig struct {
	// 限流器
	Limiter Limiter

	// Key生成函数，默认按客户端 IP
	KeyGenerator func(*gin.Context) string

	// 日志
	Logger *zap.Logger
}

// DefaultKeyGenerator 默认Key生成器（基于IP）
func DefaultKeyGenerator(c *gin.Context) string {
	return fmt.Sprintf("ip:%s", c.ClientIP())
}

// RateLimitMiddleware 创建限流中间件
// 超出配额返回 429 与 Retry-After；限流器自身出错时放行请求并记录告警。
func RateLimitMiddleware(config MiddlewareConfig) gin.HandlerFunc {
	keyGen := config.KeyGenerator
	if keyGen == nil {
		keyGen = DefaultKeyGenerator
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		key := keyGen(c)

		ctx, cancel := context.WithTimeout(c.Request.Context(), limiterTimeout)
		result, err := config.Limiter.Allow(ctx, key)
		cancel()
		if err != nil {
			logger.Warn("rate limiter unavailable, request allowed",
				zap.String("key", key),
				zap.Error(err),
			)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
		if !result.Allowed {
			c.Header("Retry-After", strconv.FormatInt(retryAfterSeconds(result.RetryAfter), 10))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": resp.MsgTooManyRequests})
			return
		}

		c.Next()
	}
}

// retryAfterSeconds 向上取整到秒，至少为 1
func retryAfterSeconds(d time.Duration) int64 {
	secs := int64(math.Ceil(d.Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}
