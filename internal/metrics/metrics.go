// Package metrics keeps Prometheus metrics of the server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "sockbridge"

var (
	// TransportRequestsTotal counts HTTP requests dispatched to transport
	// endpoints by transport name and response status.
	TransportRequestsTotal *prometheus.CounterVec

	// SessionsActive is a number of sessions currently registered.
	SessionsActive prometheus.Gauge

	// SessionsClosedTotal counts session terminations by reason.
	SessionsClosedTotal *prometheus.CounterVec

	// FramesSentTotal counts protocol frames sent to clients by frame type.
	FramesSentTotal *prometheus.CounterVec

	// MessagesReceivedTotal counts messages received from clients.
	MessagesReceivedTotal prometheus.Counter

	// HTTPRequestsTotal counts all incoming HTTP requests.
	HTTPRequestsTotal *prometheus.CounterVec
)

func init() {
	TransportRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "transport_requests_total",
			Help:      "Number of HTTP requests dispatched to transport endpoints.",
		},
		[]string{"transport", "status"},
	)
	SessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "sessions_active",
			Help:      "Number of currently registered sessions.",
		},
	)
	SessionsClosedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "sessions_closed_total",
			Help:      "Number of closed sessions by close reason.",
		},
		[]string{"reason"},
	)
	FramesSentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "frames_sent_total",
			Help:      "Number of protocol frames sent to clients by frame type.",
		},
		[]string{"type"},
	)
	MessagesReceivedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "messages_received_total",
			Help:      "Number of messages received from clients.",
		},
	)
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "incoming_http_requests_total",
			Help:      "Number of incoming HTTP requests.",
		},
		[]string{"path", "method", "status"},
	)

	for _, collector := range []prometheus.Collector{
		TransportRequestsTotal,
		SessionsActive,
		SessionsClosedTotal,
		FramesSentTotal,
		MessagesReceivedTotal,
		HTTPRequestsTotal,
	} {
		_ = prometheus.DefaultRegisterer.Register(collector)
	}
}
