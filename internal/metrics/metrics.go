// Package metrics holds the Prometheus instrumentation for the tracker.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	ApplicationsCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tracker_applications_created_total",
			Help: "Total number of applications created",
		},
	)

	StatusDerivationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tracker_status_derivations_total",
			Help: "Total number of current-status recalculations",
		},
	)

	StatusChangesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tracker_status_changes_total",
			Help: "Total number of updates where the derived status actually changed",
		},
	)

	EventsAppendedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tracker_events_appended_total",
			Help: "Total number of timeline events appended",
		},
	)

	FollowUpsPublishedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tracker_follow_ups_published_total",
			Help: "Total number of follow-up reminders published by the sweeper",
		},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tracker_http_request_duration_seconds",
			Help:    "Duration of HTTP requests by route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
)

// Register registers all tracker metrics with the default registry.
// Call once at startup.
func Register() {
	prometheus.MustRegister(
		ApplicationsCreatedTotal,
		StatusDerivationsTotal,
		StatusChangesTotal,
		EventsAppendedTotal,
		FollowUpsPublishedTotal,
		RequestDuration,
	)
}
