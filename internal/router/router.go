// Package router 提供 HTTP 路由设置和中间件配置功能
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/MorseWayne/stock_bff/internal/api"
	"github.com/MorseWayne/stock_bff/internal/config"
	"github.com/MorseWayne/stock_bff/internal/health"
	"github.com/MorseWayne/stock_bff/internal/limiter"
	"github.com/MorseWayne/stock_bff/internal/metrics"
	mw "github.com/MorseWayne/stock_bff/internal/middleware"
	"github.com/MorseWayne/stock_bff/internal/resp"
	"github.com/MorseWayne/stock_bff/internal/version"
)

// Dependencies 包含路由设置所需的所有依赖
type Dependencies struct {
	AvailabilityHandler *api.AvailabilityHandler
	RecipeHandler       *api.RecipeHandler
	Health              *health.Handler
	Metrics             *metrics.Metrics
	Gatherer            prometheus.Gatherer // nil 时使用默认 Gatherer
	Limiter             limiter.Limiter     // nil 时不限流
}

// Router 路由器接口
type Router interface {
	Setup(cfg *config.Config, deps *Dependencies, lg *zap.Logger) http.Handler
}

// GinRouter Gin路由器实现
type GinRouter struct {
	engine *gin.Engine
	deps   *Dependencies
	logger *zap.Logger
}

// New 创建新的路由器实例
func New() Router {
	return &GinRouter{}
}

// Setup 设置路由和中间件，返回包裹了 net/http 中间件链的处理器
func (r *GinRouter) Setup(cfg *config.Config, deps *Dependencies, lg *zap.Logger) http.Handler {
	// 根据环境设置 Gin 模式
	if cfg.App.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	r.engine = gin.New()
	r.engine.HandleMethodNotAllowed = true
	r.deps = deps
	r.logger = lg

	r.engine.Use(mw.AccessLog(lg, deps.Metrics))
	r.setupRoutes()

	// 构建中间件链：请求进入时执行顺序为 CORS → request ID → recovery → gin
	var handler http.Handler = r.engine
	handler = mw.Recovery(lg)(handler)
	handler = mw.RequestID(handler)
	handler = mw.CORS(mw.CORSConfig{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		AllowedMethods: cfg.CORS.AllowedMethods,
		AllowedHeaders: cfg.CORS.AllowedHeaders,
	})(handler)

	return handler
}

// setupRoutes 设置所有路由
func (r *GinRouter) setupRoutes() {
	// 探针与运维端点
	if r.deps.Health != nil {
		r.engine.GET("/healthz", gin.WrapH(r.deps.Health))
		r.engine.GET("/readyz", gin.WrapF(r.deps.Health.ReadinessHandler))
	}
	r.engine.GET("/livez", gin.WrapF(health.LivenessHandler))
	r.engine.GET("/version", r.versionInfo)
	r.engine.GET("/metrics", gin.WrapH(r.metricsHandler()))

	r.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": resp.MsgNotFound})
	})

	// API v1 路由组
	v1 := r.engine.Group("/api/v1")
	if r.deps.Limiter != nil {
		v1.Use(limiter.RateLimitMiddleware(limiter.MiddlewareConfig{
			Limiter: r.deps.Limiter,
			Logger:  r.logger,
		}))
	}
	{
		v1.GET("/productos/:id/disponibilidad", r.deps.AvailabilityHandler.GetAvailability)
		v1.GET("/recetas/:id/validacion", r.deps.RecipeHandler.ValidateRecipe)
	}
}

// metricsHandler 暴露 Prometheus 指标
func (r *GinRouter) metricsHandler() http.Handler {
	if r.deps.Gatherer != nil {
		return promhttp.HandlerFor(r.deps.Gatherer, promhttp.HandlerOpts{})
	}
	return promhttp.Handler()
}

// versionInfo 返回构建版本信息
func (r *GinRouter) versionInfo(c *gin.Context) {
	v, commit, date := version.Info()
	c.JSON(http.StatusOK, gin.H{
		"version": v,
		"commit":  commit,
		"date":    date,
	})
}
