package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roomsync_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "roomsync_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Realtime metrics
	ConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "roomsync_connections_active",
			Help: "Open websocket connections",
		},
	)

	RoomsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "roomsync_rooms_active",
			Help: "Rooms with at least one member",
		},
	)

	JoinsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roomsync_joins_total",
			Help: "Join requests by result",
		},
		[]string{"result"}, // "ok" or "rejected"
	)

	DeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roomsync_deliveries_total",
			Help: "Per-recipient live deliveries",
		},
		[]string{"result"}, // "delivered" or "dropped"
	)

	SendRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roomsync_send_rejected_total",
			Help: "Send requests dropped by the server",
		},
		[]string{"reason"},
	)

	InboundRateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "roomsync_inbound_rate_limited_total",
			Help: "Websocket frames dropped by the per-connection limiter",
		},
	)

	// Infrastructure metrics
	StoreLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "roomsync_store_latency_seconds",
			Help:    "Message store operation latency",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5},
		},
		[]string{"driver", "op"},
	)

	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roomsync_store_errors_total",
			Help: "Message store operation failures",
		},
		[]string{"driver", "op"},
	)
)
