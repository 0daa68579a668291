package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	CallsStartedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "calls_started_total",
			Help: "Total number of calls initiated.",
		},
		[]string{"type"},
	)

	CallsEndedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "calls_ended_total",
			Help: "Total number of calls ended, by final log status.",
		},
		[]string{"status"},
	)

	MessagesSentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_sent_total",
			Help: "Total number of chat messages persisted.",
		},
		[]string{"transport"},
	)

	PushNotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_notifications_total",
			Help: "Total number of incoming-call push attempts.",
		},
		[]string{"result"},
	)

	RTCTokensIssuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rtc_tokens_issued_total",
			Help: "Total number of media tokens issued.",
		},
		[]string{"result"},
	)

	WSConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ws_connections",
			Help: "Currently open websocket connections.",
		},
	)
)

var registerOnce sync.Once

// MustRegister exposes all collectors on the default registry with a constant
// service label. Collectors work unregistered too, which keeps tests simple.
func MustRegister(serviceName string) {
	registerOnce.Do(func() {
		reg := prometheus.WrapRegistererWith(prometheus.Labels{"service": serviceName}, prometheus.DefaultRegisterer)
		reg.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDurationSeconds,
			CallsStartedTotal,
			CallsEndedTotal,
			MessagesSentTotal,
			PushNotificationsTotal,
			RTCTokensIssuedTotal,
			WSConnections,
		)
	})
}
