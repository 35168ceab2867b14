// Package metrics 提供 Prometheus helper，包含 HTTP/gRPC 与注册审核业务指标
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics 指标集合
type Metrics struct {
	// HTTP 请求计数
	HTTPRequestsTotal *prometheus.CounterVec
	// HTTP 请求耗时
	HTTPRequestDuration *prometheus.HistogramVec

	// gRPC 请求计数
	GRPCRequestsTotal *prometheus.CounterVec
	// gRPC 请求耗时
	GRPCRequestDuration *prometheus.HistogramVec

	// 业务指标
	SignupsCreatedTotal    prometheus.Counter
	DecisionsTotal         *prometheus.CounterVec
	ProvisionAttemptsTotal *prometheus.CounterVec
	ProviderCallDuration   *prometheus.HistogramVec
}

// New 创建指标实例
func New(serviceName string) *Metrics {
	return &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "affiliateops",
			Subsystem: serviceName,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "affiliateops",
			Subsystem: serviceName,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),

		GRPCRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "affiliateops",
			Subsystem: serviceName,
			Name:      "grpc_requests_total",
			Help:      "Total gRPC requests",
		}, []string{"method", "code"}),
		GRPCRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "affiliateops",
			Subsystem: serviceName,
			Name:      "grpc_request_duration_seconds",
			Help:      "gRPC request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),

		SignupsCreatedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "affiliateops",
			Subsystem: serviceName,
			Name:      "signups_created_total",
			Help:      "Total affiliate signups registered",
		}),
		DecisionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "affiliateops",
			Subsystem: serviceName,
			Name:      "decisions_total",
			Help:      "Total approval decisions by action and result",
		}, []string{"action", "result"}),
		ProvisionAttemptsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "affiliateops",
			Subsystem: serviceName,
			Name:      "provision_attempts_total",
			Help:      "Provider outcomes recorded by provider and status",
		}, []string{"provider", "status"}),
		ProviderCallDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "affiliateops",
			Subsystem: serviceName,
			Name:      "provider_call_duration_seconds",
			Help:      "Latency of provisioning calls to external providers",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"provider"}),
	}
}

// Register 注册所有指标
func (m *Metrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.GRPCRequestsTotal,
		m.GRPCRequestDuration,
		m.SignupsCreatedTotal,
		m.DecisionsTotal,
		m.ProvisionAttemptsTotal,
		m.ProviderCallDuration,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// MetricsCollector 指标收集器接口
type MetricsCollector interface {
	// 记录 HTTP 请求
	RecordHTTPRequest(method, path string, statusCode int, duration float64)
	// 记录 gRPC 请求
	RecordGRPCRequest(method, code string, duration float64)
	// 记录注册申请创建
	RecordSignupCreated()
	// 记录审批决策
	RecordDecision(action, result string)
	// 记录渠道结果
	RecordProvisionOutcome(provider, status string)
	// 记录渠道调用耗时
	RecordProviderCall(provider string, duration float64)
}

// DefaultMetricsCollector 默认指标收集器实现
type DefaultMetricsCollector struct {
	metrics *Metrics
}

// NewDefaultMetricsCollector 创建默认指标收集器
func NewDefaultMetricsCollector(metrics *Metrics) *DefaultMetricsCollector {
	return &DefaultMetricsCollector{metrics: metrics}
}

func (dmc *DefaultMetricsCollector) RecordHTTPRequest(method, path string, statusCode int, duration float64) {
	dmc.metrics.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	dmc.metrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func (dmc *DefaultMetricsCollector) RecordGRPCRequest(method, code string, duration float64) {
	dmc.metrics.GRPCRequestsTotal.WithLabelValues(method, code).Inc()
	dmc.metrics.GRPCRequestDuration.WithLabelValues(method).Observe(duration)
}

func (dmc *DefaultMetricsCollector) RecordSignupCreated() {
	dmc.metrics.SignupsCreatedTotal.Inc()
}

func (dmc *DefaultMetricsCollector) RecordDecision(action, result string) {
	dmc.metrics.DecisionsTotal.WithLabelValues(action, result).Inc()
}

func (dmc *DefaultMetricsCollector) RecordProvisionOutcome(provider, status string) {
	dmc.metrics.ProvisionAttemptsTotal.WithLabelValues(provider, status).Inc()
}

func (dmc *DefaultMetricsCollector) RecordProviderCall(provider string, duration float64) {
	dmc.metrics.ProviderCallDuration.WithLabelValues(provider).Observe(duration)
}
