// Package metrics exposes Prometheus collectors for the chat service.
// Collectors are registered on the default registry and served by promhttp at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mapchat_http_requests_total",
			Help: "HTTP requests by path",
		},
		[]string{"path"},
	)

	WebsocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mapchat_websocket_connections",
			Help: "Open map view connections",
		},
	)

	ActiveSubscriptions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mapchat_active_subscriptions",
			Help: "Live group subscriptions held by chat sessions",
		},
	)

	MessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mapchat_messages_sent_total",
			Help: "Messages appended to groups",
		},
	)

	TranscriptRenders = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mapchat_transcript_renders_total",
			Help: "Full transcript renders delivered to views",
		},
	)

	DirectoryLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mapchat_directory_lookups_total",
			Help: "Profile image lookups sent to the directory by outcome",
		},
		[]string{"outcome"},
	)

	StoreNotifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mapchat_store_notifications_total",
			Help: "Group change notifications received by origin",
		},
		[]string{"origin"},
	)
)

// Directory lookup outcomes
const (
	LookupFound  = "found"
	LookupAbsent = "absent"
	LookupError  = "error"
)

// Notification origins
const (
	OriginLocal  = "local"
	OriginRemote = "remote"
)
