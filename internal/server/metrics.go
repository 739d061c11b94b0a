package server

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the server.
type Metrics struct {
	deploysTotal   *prometheus.CounterVec
	deployDuration prometheus.Histogram
	requestsTotal  *prometheus.CounterVec
	rejectedTotal  *prometheus.CounterVec
}

// NewMetrics registers the collectors on the given registerer. Each server
// gets its own registry so repeated construction (as in tests) doesn't
// trip duplicate registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		deploysTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "composehook_deploys_total",
				Help: "Total number of deployments by service and outcome",
			},
			[]string{"service", "status"},
		),
		deployDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "composehook_deploy_duration_seconds",
				Help:    "Deployment duration in seconds (pull plus restart)",
				Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
			},
		),
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "composehook_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		rejectedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "composehook_rejected_total",
				Help: "Requests rejected before execution, by reason",
			},
			[]string{"reason"},
		),
	}
}

// ObserveDeploy records a completed deployment attempt.
func (m *Metrics) ObserveDeploy(service, status string, seconds float64) {
	m.deploysTotal.WithLabelValues(service, status).Inc()
	m.deployDuration.Observe(seconds)
}

// ObserveRequest records a finished HTTP request.
func (m *Metrics) ObserveRequest(method, path string, status int) {
	m.requestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
}

// Reject records a request rejected during validation.
func (m *Metrics) Reject(reason string) {
	m.rejectedTotal.WithLabelValues(reason).Inc()
}
