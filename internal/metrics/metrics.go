package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskboard_http_requests_total",
			Help: "Total number of HTTP requests by route and status code",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "taskboard_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	TaskOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskboard_task_operations_total",
			Help: "Total number of task operations by outcome",
		},
		[]string{"operation", "result"},
	)

	AuthEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskboard_auth_events_total",
			Help: "Registrations, logins and token checks by outcome",
		},
		[]string{"event", "result"},
	)
)

// Result labels.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// ObserveTask records the outcome of a task operation.
func ObserveTask(operation string, err error) {
	TaskOperations.WithLabelValues(operation, result(err)).Inc()
}

// ObserveAuth records the outcome of an authentication event.
func ObserveAuth(event string, err error) {
	AuthEvents.WithLabelValues(event, result(err)).Inc()
}

func result(err error) string {
	if err != nil {
		return ResultFailure
	}
	return ResultSuccess
}
