// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pulsefit"

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	emailsDispatched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "email",
			Name:      "dispatched_total",
			Help:      "Outbound emails by provider and result.",
		},
		[]string{"provider", "success"},
	)

	churnTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "churn",
			Name:      "email_transitions_total",
			Help:      "Churn email status changes by target status.",
		},
		[]string{"status"},
	)

	redemptions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "loyalty",
			Name:      "redemptions_total",
			Help:      "Offer redemption attempts by outcome.",
		},
		[]string{"outcome"},
	)
)

func init() {
	Registry.MustRegister(
		httpRequests,
		httpDuration,
		emailsDispatched,
		churnTransitions,
		redemptions,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// ObserveHTTPRequest records one finished request. path should be the route template.
func ObserveHTTPRequest(method, path string, status int, elapsed time.Duration) {
	if path == "" {
		path = "unmatched"
	}
	httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

// RecordEmailDispatch counts a provider send attempt
func RecordEmailDispatch(provider string, success bool) {
	emailsDispatched.WithLabelValues(provider, strconv.FormatBool(success)).Inc()
}

// RecordChurnTransition counts a churn email entering status
func RecordChurnTransition(status string) {
	churnTransitions.WithLabelValues(status).Inc()
}

// RecordRedemption counts a redemption attempt; outcome is "success" or a short failure reason
func RecordRedemption(outcome string) {
	redemptions.WithLabelValues(outcome).Inc()
}
