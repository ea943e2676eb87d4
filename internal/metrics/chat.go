package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_messages_sent_total",
			Help: "Total number of persisted chat messages",
		},
		[]string{"channel_type"},
	)

	RealtimeSubscriptions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_realtime_subscriptions",
			Help: "Number of open channel subscriptions on this instance",
		},
	)

	RealtimeDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_realtime_deliveries_total",
			Help: "Events handed to subscribers",
		},
		[]string{"event"},
	)

	RealtimeOverflow = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_realtime_overflow_total",
			Help: "Events dropped because a subscriber queue was full",
		},
	)

	RealtimeResubscribe = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_realtime_resubscribe_total",
			Help: "Redis pub/sub resubscription attempts",
		},
		[]string{"result"}, // ok, error
	)

	RealtimePublishFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_realtime_publish_failures_total",
			Help: "Events that could not be forwarded to other instances after retries",
		},
	)
)
