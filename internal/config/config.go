// Package config 负责从环境变量（可选 .env 文件）加载服务配置。
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/MorseWayne/stock_bff/internal/version"
)

// Config 服务的全部配置，加载后只读
type Config struct {
	App       AppConfig
	Log       LogConfig
	Upstream  UpstreamConfig
	CORS      CORSConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
}

// AppConfig 进程级配置
type AppConfig struct {
	Name            string
	Env             string // dev | prod
	Version         string
	Port            int
	ShutdownTimeout time.Duration
}

// LogConfig 日志配置
type LogConfig struct {
	Level    string // debug | info | warn | error
	Encoding string // json | console
}

// UpstreamConfig 上游服务地址与调用参数
type UpstreamConfig struct {
	CatalogURL   string
	InventoryURL string
	RecipesURL   string
	Timeout      time.Duration
	MaxRedirects int
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// RedisConfig Redis 连接配置，仅在限流后端为 redis 时使用
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr 返回 host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	Enabled bool
	Backend string // memory | redis
	Rate    int64
	Window  time.Duration
	Burst   int64
}

// 限流后端
const (
	RateLimitBackendMemory = "memory"
	RateLimitBackendRedis  = "redis"
)

// Default 返回默认配置
func Default() *Config {
	return &Config{
		App: AppConfig{
			Name:            "stock-bff",
			Env:             "dev",
			Version:         version.GetVersion(),
			Port:            8080,
			ShutdownTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level:    "info",
			Encoding: "json",
		},
		Upstream: UpstreamConfig{
			CatalogURL:   "http://localhost:8001",
			InventoryURL: "http://localhost:8002",
			RecipesURL:   "http://localhost:8003",
			Timeout:      5000 * time.Millisecond,
			MaxRedirects: 3,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
		},
		Redis: RedisConfig{
			Host: "localhost",
			Port: 6379,
		},
		RateLimit: RateLimitConfig{
			Enabled: false,
			Backend: RateLimitBackendMemory,
			Rate:    100,
			Window:  time.Second,
			Burst:   100,
		},
	}
}

// Load 读取 .env（如存在）与环境变量，返回校验后的配置
func Load() (*Config, error) {
	// .env 不存在时忽略，已有环境变量优先
	_ = godotenv.Load()
	return FromEnv(os.LookupEnv)
}

// FromEnv 基于默认值，用 lookup 返回的变量覆盖配置
func FromEnv(lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()
	p := &parser{lookup: lookup}

	p.str("APP_NAME", &cfg.App.Name)
	p.str("APP_ENV", &cfg.App.Env)
	p.str("APP_VERSION", &cfg.App.Version)
	p.integer("APP_PORT", &cfg.App.Port)
	p.duration("APP_SHUTDOWN_TIMEOUT", &cfg.App.ShutdownTimeout)

	p.str("LOG_LEVEL", &cfg.Log.Level)
	p.str("LOG_ENCODING", &cfg.Log.Encoding)

	p.str("CATALOG_SERVICE_URL", &cfg.Upstream.CatalogURL)
	p.str("INVENTORY_SERVICE_URL", &cfg.Upstream.InventoryURL)
	p.str("RECIPES_SERVICE_URL", &cfg.Upstream.RecipesURL)
	p.millis("UPSTREAM_TIMEOUT_MS", &cfg.Upstream.Timeout)
	p.integer("UPSTREAM_MAX_REDIRECTS", &cfg.Upstream.MaxRedirects)

	p.list("CORS_ALLOWED_ORIGINS", &cfg.CORS.AllowedOrigins)
	p.list("CORS_ALLOWED_METHODS", &cfg.CORS.AllowedMethods)
	p.list("CORS_ALLOWED_HEADERS", &cfg.CORS.AllowedHeaders)

	p.str("REDIS_HOST", &cfg.Redis.Host)
	p.integer("REDIS_PORT", &cfg.Redis.Port)
	p.str("REDIS_PASSWORD", &cfg.Redis.Password)
	p.integer("REDIS_DB", &cfg.Redis.DB)

	p.boolean("RATE_LIMIT_ENABLED", &cfg.RateLimit.Enabled)
	p.str("RATE_LIMIT_BACKEND", &cfg.RateLimit.Backend)
	p.int64("RATE_LIMIT_RATE", &cfg.RateLimit.Rate)
	p.duration("RATE_LIMIT_WINDOW", &cfg.RateLimit.Window)
	p.int64("RATE_LIMIT_BURST", &cfg.RateLimit.Burst)

	if err := errors.Join(p.errs...); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 检查配置取值是否合法
func (c *Config) Validate() error {
	var errs []error

	switch c.App.Env {
	case "dev", "prod":
	default:
		errs = append(errs, fmt.Errorf("APP_ENV must be dev or prod, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT out of range: %d", c.App.Port))
	}
	if c.App.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("APP_SHUTDOWN_TIMEOUT must be positive"))
	}

	switch c.Log.Encoding {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("LOG_ENCODING must be json or console, got %q", c.Log.Encoding))
	}

	for name, raw := range map[string]string{
		"CATALOG_SERVICE_URL":   c.Upstream.CatalogURL,
		"INVENTORY_SERVICE_URL": c.Upstream.InventoryURL,
		"RECIPES_SERVICE_URL":   c.Upstream.RecipesURL,
	} {
		if err := validateBaseURL(raw); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	if c.Upstream.Timeout <= 0 {
		errs = append(errs, errors.New("UPSTREAM_TIMEOUT_MS must be positive"))
	}
	if c.Upstream.MaxRedirects < 0 {
		errs = append(errs, errors.New("UPSTREAM_MAX_REDIRECTS must not be negative"))
	}

	if c.RateLimit.Enabled {
		switch c.RateLimit.Backend {
		case RateLimitBackendMemory, RateLimitBackendRedis:
		default:
			errs = append(errs, fmt.Errorf("RATE_LIMIT_BACKEND must be memory or redis, got %q", c.RateLimit.Backend))
		}
		if c.RateLimit.Rate <= 0 || c.RateLimit.Window <= 0 {
			errs = append(errs, errors.New("RATE_LIMIT_RATE and RATE_LIMIT_WINDOW must be positive"))
		}
		if c.RateLimit.Backend == RateLimitBackendRedis && c.RateLimit.Window < time.Second {
			errs = append(errs, errors.New("RATE_LIMIT_WINDOW must be at least 1s for the redis backend"))
		}
	}

	return errors.Join(errs...)
}

func validateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme in %q", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host in %q", raw)
	}
	return nil
}

// parser 收集所有解析错误，便于一次性报告
type parser struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (p *parser) get(key string) (string, bool) {
	v, ok := p.lookup(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (p *parser) str(key string, dst *string) {
	if v, ok := p.get(key); ok {
		*dst = v
	}
}

func (p *parser) integer(key string, dst *int) {
	if v, ok := p.get(key); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = n
	}
}

func (p *parser) int64(key string, dst *int64) {
	if v, ok := p.get(key); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = n
	}
}

func (p *parser) boolean(key string, dst *bool) {
	if v, ok := p.get(key); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = b
	}
}

func (p *parser) duration(key string, dst *time.Duration) {
	if v, ok := p.get(key); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = d
	}
}

// millis 解析以毫秒为单位的整数
func (p *parser) millis(key string, dst *time.Duration) {
	if v, ok := p.get(key); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = time.Duration(n) * time.Millisecond
	}
}

func (p *parser) list(key string, dst *[]string) {
	if v, ok := p.get(key); ok {
		var out []string
		for _, item := range strings.Split(v, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
		*dst = out
	}
}
