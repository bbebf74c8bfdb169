// Package metrics declares the Prometheus collectors exported by the server and
// the conversation core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RPC metrics
	RPCDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "marketchat_rpc_duration_seconds",
			Help:    "gRPC request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "code"},
	)

	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketchat_rate_limit_hits_total",
			Help: "Total requests rejected by the rate limiter",
		},
		[]string{"method"},
	)

	// Business metrics
	MessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "marketchat_messages_sent_total",
			Help: "Total messages stored",
		},
	)

	NotificationsSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "marketchat_notifications_sent_total",
			Help: "Total notifications stored",
		},
	)

	ActiveSubscriptions = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "marketchat_active_subscriptions",
			Help: "Push subscriptions currently attached",
		},
		[]string{"kind"}, // "messages" or "notifications"
	)

	FeedDeliveryFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "marketchat_feed_delivery_failures_total",
			Help: "Push deliveries that failed and dropped the connection",
		},
	)

	// Client-side core metrics
	EchoesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "marketchat_echoes_dropped_total",
			Help: "Live events discarded because the message was already in the log",
		},
	)

	StaleEventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "marketchat_stale_events_dropped_total",
			Help: "Live events discarded because their subscription or thread was no longer open",
		},
	)

	DirectoryEnrichmentFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketchat_directory_enrichment_failures_total",
			Help: "Per-thread directory lookups that failed",
		},
		[]string{"lookup"}, // "latest_message" or "unread_count"
	)
)
