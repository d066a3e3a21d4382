// Package upstream wraps the HTTP calls made to the catalog, inventory and
// recipes services. Every call is a single GET attempt bounded by the
// configured timeout; failures are classified into HTTPError,
// UnreachableError and LocalError.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/MorseWayne/stock_bff/internal/metrics"
)

const (
	DefaultTimeout      = 5000 * time.Millisecond
	DefaultMaxRedirects = 3
)

// Service identifies one upstream by name and base URL.
type Service struct {
	Name    string
	BaseURL string
}

// Config holds the process-wide client settings. It is read once at startup.
type Config struct {
	Timeout      time.Duration
	MaxRedirects int
}

// Getter is the read operation consumed by the aggregation services.
type Getter interface {
	Get(ctx context.Context, svc Service, path string, query url.Values) (any, error)
}

// Client is a timeout-bounded JSON GET client shared by all requests.
type Client struct {
	httpClient *http.Client
	timeout    time.Duration
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

var _ Getter = (*Client)(nil)

var errTooManyRedirects = errors.New("too many redirects")

// NewClient 创建上游客户端，连接池与超时配置在进程内共享
func NewClient(cfg Config, logger *zap.Logger, m *metrics.Metrics) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRedirects < 0 {
		cfg.MaxRedirects = DefaultMaxRedirects
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	maxRedirects := cfg.MaxRedirects
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		// 连接池配置
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   20,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   cfg.Timeout,
		ExpectContinueTimeout: time.Second,
	}

	return &Client{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
			CheckRedirect: func(_ *http.Request, via []*http.Request) error {
				if len(via) > maxRedirects {
					return fmt.Errorf("%w: stopped after %d", errTooManyRedirects, maxRedirects)
				}
				return nil
			},
		},
		timeout: cfg.Timeout,
		logger:  logger,
		metrics: m,
	}
}

// Get issues GET {svc.BaseURL}{path}?{query} and returns the decoded JSON body.
func (c *Client) Get(ctx context.Context, svc Service, path string, query url.Values) (any, error) {
	start := time.Now()
	payload, err := c.get(ctx, svc, path, query)
	duration := time.Since(start)

	outcome := Outcome(err)
	c.metrics.ObserveUpstream(svc.Name, outcome, duration)
	if err != nil {
		c.logger.Warn("upstream call failed",
			zap.String("service", svc.Name),
			zap.String("path", path),
			zap.String("outcome", outcome),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return nil, err
	}

	c.logger.Debug("upstream call",
		zap.String("service", svc.Name),
		zap.String("path", path),
		zap.Duration("duration", duration),
	)
	return payload, nil
}

func (c *Client) get(ctx context.Context, svc Service, path string, query url.Values) (any, error) {
	target, err := buildURL(svc.BaseURL, path, query)
	if err != nil {
		return nil, &LocalError{Service: svc.Name, URL: svc.BaseURL + path, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &LocalError{Service: svc.Name, URL: target, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &UnreachableError{Service: svc.Name, URL: target, Err: err}
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, &UnreachableError{Service: svc.Name, URL: target, Err: fmt.Errorf("read body: %w", err)}
	}

	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		return nil, &HTTPError{Service: svc.Name, URL: target, Status: res.StatusCode, Body: decodeErrorBody(body)}
	}

	payload, err := decodeJSON(body)
	if err != nil {
		return nil, &LocalError{Service: svc.Name, URL: target, Err: fmt.Errorf("decode response: %w", err)}
	}
	return payload, nil
}

// buildURL joins base and path and merges query into any query already on base.
func buildURL(base, path string, query url.Values) (string, error) {
	u, err := url.Parse(strings.TrimRight(base, "/") + path)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", errors.New("missing host")
	}
	if len(query) > 0 {
		merged := u.Query()
		for k, vs := range query {
			for _, v := range vs {
				merged.Add(k, v)
			}
		}
		u.RawQuery = merged.Encode()
	}
	return u.String(), nil
}

// decodeJSON keeps numbers as json.Number so pass-through payloads are
// re-encoded verbatim.
func decodeJSON(body []byte) (any, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func decodeErrorBody(body []byte) any {
	payload, err := decodeJSON(body)
	if err != nil {
		return string(body)
	}
	return payload
}
