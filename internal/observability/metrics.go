package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EngagementEvents counts like/comment mutations by type.
	EngagementEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ripple_engagement_events_total",
		Help: "Total number of engagement mutations by event type",
	}, []string{"type"})

	// NotificationsDispatched counts push sends that reached the notifier.
	NotificationsDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ripple_notifications_dispatched_total",
		Help: "Total number of push notifications handed to the notifier",
	}, []string{"type"})

	// NotificationsFailed counts push sends the notifier rejected. Failures
	// never propagate to the triggering mutation; this counter is the only
	// place they surface besides the log.
	NotificationsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ripple_notifications_failed_total",
		Help: "Total number of push notification sends that failed",
	}, []string{"type"})

	// NotificationsSkipped counts dispatches dropped before the send because
	// the author had no registered device token or was the acting user.
	NotificationsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ripple_notifications_skipped_total",
		Help: "Total number of push notifications skipped by dispatch rules",
	}, []string{"type", "reason"})

	// RedisErrors counts Redis failures by operation type.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ripple_redis_errors_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})
)
