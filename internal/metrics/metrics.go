package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics 应用指标
type Metrics struct {
	// HTTP请求指标
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// 验证指标
	VerificationsTotal  *prometheus.CounterVec
	RateLimitRejections prometheus.Counter

	// 数据保留指标
	RetentionPrunedTotal *prometheus.CounterVec
}

// New 创建指标收集器
func New() *Metrics {
	return &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keyward_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "keyward_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		VerificationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keyward_verifications_total",
				Help: "Total number of license verifications by outcome",
			},
			[]string{"outcome"},
		),

		RateLimitRejections: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "keyward_rate_limit_rejections_total",
				Help: "Total number of requests rejected by the per-IP rate limiter",
			},
		),

		RetentionPrunedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keyward_retention_pruned_rows_total",
				Help: "Total number of rows pruned by the retention worker",
			},
			[]string{"table"},
		),
	}
}

// RecordHTTPRequest 记录HTTP请求
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration float64) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// RecordVerification 按结果码记录一次验证
func (m *Metrics) RecordVerification(outcome string) {
	m.VerificationsTotal.WithLabelValues(outcome).Inc()
}

// RecordRateLimitRejection 记录一次限流拒绝
func (m *Metrics) RecordRateLimitRejection() {
	m.RateLimitRejections.Inc()
}

// RecordRetentionPrune 记录保留任务删除的行数
func (m *Metrics) RecordRetentionPrune(table string, rows int64) {
	m.RetentionPrunedTotal.WithLabelValues(table).Add(float64(rows))
}
