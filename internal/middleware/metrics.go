package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	chatRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_http_requests_total",
			Help: "Chat API requests by route template and channel kind",
		},
		[]string{"method", "route", "status", "channel_kind"},
	)

	chatRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_http_request_duration_seconds",
			Help:    "Chat API latency, including history pages and sends",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method", "route", "channel_kind"},
	)

	chatResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_http_response_size_bytes",
			Help:    "Chat API response size; history pages dominate",
			Buckets: prometheus.ExponentialBuckets(64, 4, 8), // 64B to 1MB
		},
		[]string{"route"},
	)

	chatInflightRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_http_inflight_requests",
			Help: "Chat API requests currently being served (streams excluded)",
		},
	)

	chatStreamsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_ws_streams_total",
			Help: "Realtime stream requests by channel kind and outcome",
		},
		[]string{"channel_kind", "outcome"}, // closed, rejected
	)

	chatStreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_ws_stream_duration_seconds",
			Help:    "How long realtime streams stayed open",
			Buckets: []float64{1, 10, 60, 300, 900, 1800, 3600, 7200},
		},
		[]string{"channel_kind"},
	)

	dbConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_db_connections_active",
			Help: "Open connections in the chat store pool",
		},
	)
)

// Metrics records chat API request metrics labelled by route template and
// channel kind. Realtime streams are counted separately since they last for
// the whole session.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" || c.Request.URL.Path == "/health" {
			c.Next()
			return
		}

		start := time.Now()
		if c.IsWebsocket() {
			c.Next()
			observeStream(c, time.Since(start))
			return
		}

		chatInflightRequests.Inc()
		c.Next()
		chatInflightRequests.Dec()

		route := routeLabel(c)
		kind := channelKindLabel(c)
		status := strconv.Itoa(c.Writer.Status())

		chatRequestsTotal.WithLabelValues(c.Request.Method, route, status, kind).Inc()
		chatRequestDuration.WithLabelValues(c.Request.Method, route, kind).Observe(time.Since(start).Seconds())
		chatResponseSize.WithLabelValues(route).Observe(float64(c.Writer.Size()))
	}
}

func observeStream(c *gin.Context, open time.Duration) {
	kind := channelKindLabel(c)
	// a rejected upgrade is answered with a plain JSON error
	if c.Writer.Status() >= 400 {
		chatStreamsTotal.WithLabelValues(kind, "rejected").Inc()
		return
	}
	chatStreamsTotal.WithLabelValues(kind, "closed").Inc()
	chatStreamDuration.WithLabelValues(kind).Observe(open.Seconds())
}

// SetDBConnectionsActive updates the pool gauge (called from main)
func SetDBConnectionsActive(count float64) {
	dbConnectionsActive.Set(count)
}
