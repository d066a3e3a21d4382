// Package metrics 提供 Prometheus 指标采集
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics 聚合服务对外暴露的全部指标
type Metrics struct {
	upstreamRequests *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	validations      *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
}

// New 使用默认 Registerer 创建指标集合
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer 使用指定 Registerer 创建指标集合，测试中可传入独立的 Registry
func NewWithRegisterer(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &Metrics{
		upstreamRequests: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "stock_bff_upstream_requests_total",
			Help: "Total number of upstream calls by service and outcome",
		}, []string{"service", "outcome"}),
		upstreamDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "stock_bff_upstream_request_duration_seconds",
			Help:    "Duration of upstream calls in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		}, []string{"service"}),
		validations: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "stock_bff_recipe_validations_total",
			Help: "Total number of recipe validations by suggested status",
		}, []string{"estado"}),
		httpRequests: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "stock_bff_http_requests_total",
			Help: "Total number of HTTP requests served",
		}, []string{"method", "route", "status"}),
	}
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}

// ObserveUpstream 记录一次上游调用的结果与耗时
func (m *Metrics) ObserveUpstream(service, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.upstreamRequests.WithLabelValues(service, outcome).Inc()
	m.upstreamDuration.WithLabelValues(service).Observe(duration.Seconds())
}

// RecordValidation 按建议状态累计配方校验次数
func (m *Metrics) RecordValidation(estado string) {
	if m == nil {
		return
	}
	m.validations.WithLabelValues(estado).Inc()
}

// RecordHTTPRequest 累计 HTTP 请求次数
func (m *Metrics) RecordHTTPRequest(method, route string, status int) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, fmt.Sprintf("%d", status)).Inc()
}
