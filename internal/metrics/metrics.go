package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const unmatchedRoute = "unmatched"

var (
	// RequestDuration tracks HTTP request duration in seconds by method, route, status.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	RequestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// AuthRejectionsTotal counts rejected credentials by failure kind
	// (missing_credential, invalid_token, token_expired, unknown_subject, bad_credentials).
	AuthRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_rejections_total",
			Help: "Total number of rejected credentials by kind",
		},
		[]string{"kind"},
	)

	PostsCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "posts_created_total",
			Help: "Total number of posts created",
		},
	)
)

var initOnce sync.Once

func init() {
	initOnce.Do(func() {
		prometheus.MustRegister(RequestDuration, RequestTotal, AuthRejectionsTotal, PostsCreatedTotal)
	})
}

// RecordRequest records duration and count for an HTTP request. route is
// the matched route template; an empty route means no route matched.
func RecordRequest(method, route string, statusCode int, durationSeconds float64) {
	if route == "" {
		route = unmatchedRoute
	}
	status := strconv.Itoa(statusCode)
	RequestDuration.WithLabelValues(method, route, status).Observe(durationSeconds)
	RequestTotal.WithLabelValues(method, route, status).Inc()
}

func IncAuthRejection(kind string) {
	AuthRejectionsTotal.WithLabelValues(kind).Inc()
}

func IncPostsCreated() {
	PostsCreatedTotal.Inc()
}
