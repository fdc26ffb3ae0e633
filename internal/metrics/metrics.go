// Package metrics Prometheus 指标，未注册时所有方法为空操作
package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics 业务指标集合
type Metrics struct {
	submissionSteps *prometheus.CounterVec
	stepDuration    *prometheus.HistogramVec
	notifications   *prometheus.CounterVec
	sseClients      prometheus.Gauge
	sseDropped      prometheus.Counter
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

// New 在 reg 上注册指标；reg 为 nil 时返回空实现
func New(reg prometheus.Registerer, namespace string) *Metrics {
	if reg == nil {
		return &Metrics{}
	}
	namespace = strings.TrimSpace(namespace)
	m := &Metrics{
		submissionSteps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_submission_steps_total",
			Help:      "Order submission step outcomes.",
		}, []string{"step", "status"}),
		stepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "order_submission_step_duration_seconds",
			Help:      "Duration of order submission steps in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"step"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notification deliveries by channel and result.",
		}, []string{"channel", "result"}),
		sseClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "product_stream_clients",
			Help:      "Connected product update stream clients.",
		}),
		sseDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "product_stream_dropped_total",
			Help:      "Product update events dropped because a client buffer was full.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	reg.MustRegister(
		m.submissionSteps,
		m.stepDuration,
		m.notifications,
		m.sseClients,
		m.sseDropped,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

// ObserveStep 记录下单步骤结果与耗时
func (m *Metrics) ObserveStep(step, status string, duration time.Duration) {
	if m == nil || m.submissionSteps == nil {
		return
	}
	step = normalizeLabel(step)
	m.submissionSteps.WithLabelValues(step, normalizeLabel(status)).Inc()
	m.stepDuration.WithLabelValues(step).Observe(duration.Seconds())
}

// IncNotification 记录通知发送结果（channel: email/whatsapp）
func (m *Metrics) IncNotification(channel string, err error) {
	if m == nil || m.notifications == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.notifications.WithLabelValues(normalizeLabel(channel), result).Inc()
}

// SSEClientConnected 推送连接数 +1
func (m *Metrics) SSEClientConnected() {
	if m == nil || m.sseClients == nil {
		return
	}
	m.sseClients.Inc()
}

// SSEClientDisconnected 推送连接数 -1
func (m *Metrics) SSEClientDisconnected() {
	if m == nil || m.sseClients == nil {
		return
	}
	m.sseClients.Dec()
}

// SSEDropped 记录丢弃的推送
func (m *Metrics) SSEDropped() {
	if m == nil || m.sseDropped == nil {
		return
	}
	m.sseDropped.Inc()
}

// ObserveHTTP 记录 HTTP 请求
func (m *Metrics) ObserveHTTP(method, route string, status int, duration time.Duration) {
	if m == nil || m.httpRequests == nil {
		return
	}
	route = normalizeLabel(route)
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if strings.TrimSpace(value) == "" {
		return "unknown"
	}
	return value
}
