package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/MorseWayne/stock_bff/internal/api"
	"github.com/MorseWayne/stock_bff/internal/config"
	"github.com/MorseWayne/stock_bff/internal/health"
	"github.com/MorseWayne/stock_bff/internal/limiter"
	"github.com/MorseWayne/stock_bff/internal/logger"
	"github.com/MorseWayne/stock_bff/internal/metrics"
	"github.com/MorseWayne/stock_bff/internal/router"
	"github.com/MorseWayne/stock_bff/internal/service"
	"github.com/MorseWayne/stock_bff/internal/upstream"
	"github.com/MorseWayne/stock_bff/internal/version"
)

// initConfigAndLogger 初始化配置和日志器
func initConfigAndLogger() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	lg, err := logger.New(cfg.App.Env, cfg.Log.Level, cfg.Log.Encoding, cfg.App.Name, cfg.App.Version)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}

	return cfg, lg, nil
}

// initRedis 仅在限流后端为 redis 时建立连接
func initRedis(cfg *config.Config, lg *zap.Logger) (*redis.Client, error) {
	if !cfg.RateLimit.Enabled || cfg.RateLimit.Backend != config.RateLimitBackendRedis {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", cfg.Redis.Addr(), err)
	}
	lg.Sugar().Infow("redis connected", "addr", cfg.Redis.Addr(), "db", cfg.Redis.DB)
	return client, nil
}

// initLimiter 根据配置创建限流器，未启用时返回 nil
func initLimiter(cfg *config.Config, redisClient *redis.Client, lg *zap.Logger) (limiter.Limiter, error) {
	if !cfg.RateLimit.Enabled {
		lg.Sugar().Infow("rate limiting disabled")
		return nil, nil
	}

	lcfg := &limiter.Config{
		Rate:   cfg.RateLimit.Rate,
		Window: cfg.RateLimit.Window,
		Burst:  cfg.RateLimit.Burst,
	}
	var lim limiter.Limiter
	var err error
	if redisClient != nil {
		lim, err = limiter.New(limiter.BackendRedis, lcfg, redisClient)
	} else {
		lim, err = limiter.New(limiter.Backend(cfg.RateLimit.Backend), lcfg, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("init rate limiter: %w", err)
	}

	lg.Sugar().Infow("rate limiting enabled",
		"backend", cfg.RateLimit.Backend,
		"rate", cfg.RateLimit.Rate,
		"window", cfg.RateLimit.Window,
	)
	return lim, nil
}

// initDependencies 初始化依赖注入链：上游客户端 -> 服务 -> API处理器
func initDependencies(cfg *config.Config, m *metrics.Metrics, redisClient *redis.Client, lim limiter.Limiter, lg *zap.Logger) *router.Dependencies {
	client := upstream.NewClient(upstream.Config{
		Timeout:      cfg.Upstream.Timeout,
		MaxRedirects: cfg.Upstream.MaxRedirects,
	}, lg, m)

	upstreams := service.Upstreams{
		Catalog:   upstream.Service{Name: "catalog", BaseURL: cfg.Upstream.CatalogURL},
		Inventory: upstream.Service{Name: "inventory", BaseURL: cfg.Upstream.InventoryURL},
		Recipes:   upstream.Service{Name: "recipes", BaseURL: cfg.Upstream.RecipesURL},
	}

	availabilityService := service.NewAvailabilityService(client, upstreams, lg)
	recipeService := service.NewRecipeService(client, upstreams, m, lg)

	healthHandler := health.NewHandler(cfg.App.Version)
	if redisClient != nil {
		healthHandler.RegisterChecker("redis", health.NewSimpleChecker("redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}))
	}

	return &router.Dependencies{
		AvailabilityHandler: api.NewAvailabilityHandler(availabilityService, lg),
		RecipeHandler:       api.NewRecipeHandler(recipeService, lg),
		Health:              healthHandler,
		Metrics:             m,
		Limiter:             lim,
	}
}

// startServer 启动服务器并处理优雅关闭
func startServer(cfg *config.Config, handler http.Handler, lg *zap.Logger) {
	addr := fmt.Sprintf(":%d", cfg.App.Port)
	lg.Sugar().Infow("server starting", "addr", addr, "build", version.String())
	srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 5 * time.Second}

	// 启动服务器（异步）
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Sugar().Fatalw("server error", "err", err)
		}
	case <-quit:
		lg.Sugar().Infow("shutdown signal received")
	}

	// 优雅关闭
	ctx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		lg.Sugar().Errorw("server shutdown error", "err", err)
	}
	lg.Sugar().Infow("server exited")
}

// main 为应用入口，协调各个组件的初始化和启动
func main() {
	// 1) 加载配置和初始化日志
	cfg, lg, err := initConfigAndLogger()
	if err != nil {
		log.Fatalf("failed to initialize config and logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	// 2) 按需连接 Redis（分布式限流）
	redisClient, err := initRedis(cfg, lg)
	if err != nil {
		lg.Sugar().Fatalw("failed to initialize redis", "err", err)
	}
	if redisClient != nil {
		defer func() {
			if err := redisClient.Close(); err != nil {
				lg.Sugar().Errorw("failed to close redis connection", "err", err)
			}
		}()
	}

	// 3) 初始化限流器
	lim, err := initLimiter(cfg, redisClient, lg)
	if err != nil {
		lg.Sugar().Fatalw("failed to initialize rate limiter", "err", err)
	}

	// 4) 初始化应用依赖（上游客户端、服务、处理器）
	deps := initDependencies(cfg, metrics.New(), redisClient, lim, lg)

	// 5) 设置路由和中间件
	handler := router.New().Setup(cfg, deps, lg)

	// 6) 启动 HTTP 服务器
	startServer(cfg, handler, lg)
}
