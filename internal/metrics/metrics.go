package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesPosted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_messages_posted_total",
			Help: "Total messages stored and broadcast",
		},
		[]string{"room_kind", "message_type"},
	)

	PostsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_posts_rejected_total",
			Help: "Posts refused before being stored",
		},
		[]string{"reason"},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_room_sessions",
			Help: "Sessions attached to room actors",
		},
	)

	LiveRooms = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_live_rooms",
			Help: "Room actors currently running",
		},
	)

	SessionsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_sessions_dropped_total",
			Help: "Sessions dropped because a send could not be queued",
		},
	)

	OnlineUsers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_online_users",
			Help: "Distinct identities with a registry connection",
		},
	)

	NotificationsRouted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_notifications_routed_total",
			Help: "Notification events handed to another actor",
		},
		[]string{"type"},
	)

	NotificationsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_notifications_dropped_total",
			Help: "Notification events that could not be routed",
		},
		[]string{"type", "reason"},
	)

	StoreLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_store_latency_seconds",
			Help:    "Message store operation latency",
			Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .5},
		},
		[]string{"op"},
	)
)
