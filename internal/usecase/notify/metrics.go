package notify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"feedwatch/internal/observability/metrics"
)

// Reasons a notification never reached its channel.
const (
	dropQueueFull   = "queue_full"
	dropShutdown    = "shutdown"
	dropCircuitOpen = "circuit_open"
	dropPanic       = "panic"
)

var (
	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "feedwatch",
		Name:      "notification_queue_depth",
		Help:      "Notifications waiting in channel queues",
	})

	enabledChannels = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "feedwatch",
		Name:      "notification_channels_enabled",
		Help:      "Number of enabled notification channels",
	})

	dropsByReason = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "feedwatch",
		Name:      "notification_drops_total",
		Help:      "Notifications dropped before delivery, by reason",
	}, []string{"channel", "reason"})
)

// recordDrop counts a dropped notification both by reason and under the
// shared "dropped" notification result.
func recordDrop(channel, reason string) {
	dropsByReason.WithLabelValues(channel, reason).Inc()
	metrics.RecordNotification(channel, ResultDropped, 0)
}
