package websocket

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ConnectedWorkers tracks the number of connected relay workers.
	ConnectedWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "predictpool_relay_feed_workers",
		Help: "Number of relay workers connected to the feed",
	})

	// MessagesSent counts relay feed messages delivered to workers.
	MessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "predictpool_relay_feed_messages_sent_total",
		Help: "Total relay feed messages sent to workers",
	})

	// MessagesDropped counts messages dropped for slow workers.
	MessagesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "predictpool_relay_feed_messages_dropped_total",
		Help: "Total relay feed messages dropped because a worker's buffer was full",
	})
)
