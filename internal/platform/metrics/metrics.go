package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the console.
type Metrics struct {
	GuardOutcomes *prometheus.CounterVec
	Logins        *prometheus.CounterVec
	ForcedReauth  prometheus.Counter
	AuthLatency   *prometheus.HistogramVec
	SessionLoad   prometheus.Histogram

	gatherer prometheus.Gatherer
}

// New creates the metrics and registers them with reg. Passing nil uses the default
// registry.
func New(reg *prometheus.Registry) *Metrics {
	var (
		registerer prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer   prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if reg != nil {
		registerer, gatherer = reg, reg
	}
	factory := promauto.With(registerer)

	return &Metrics{
		GuardOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "steward_guard_outcomes_total",
			Help: "Route guard outcomes by screen",
		}, []string{"screen", "outcome"}),
		Logins: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "steward_logins_total",
			Help: "Login attempts by result",
		}, []string{"result"}),
		ForcedReauth: factory.NewCounter(prometheus.CounterOpts{
			Name: "steward_forced_reauth_total",
			Help: "Sessions cleared because the acting account was modified",
		}),
		AuthLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "steward_auth_service_request_duration_seconds",
			Help:    "Latency of auth service calls",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		SessionLoad: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "steward_session_redis_load_duration_seconds",
			Help:    "Latency of session record loads from Redis",
			Buckets: []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025},
		}),
		gatherer: gatherer,
	}
}

// ObserveGuard counts a route guard outcome for screen.
func (m *Metrics) ObserveGuard(screen, outcome string) {
	if m == nil {
		return
	}
	m.GuardOutcomes.WithLabelValues(screen, outcome).Inc()
}

// IncrementLogins counts a login attempt with result "success" or "failure".
func (m *Metrics) IncrementLogins(result string) {
	if m == nil {
		return
	}
	m.Logins.WithLabelValues(result).Inc()
}

// IncrementForcedReauth counts a session cleared after self-modification.
func (m *Metrics) IncrementForcedReauth() {
	if m == nil {
		return
	}
	m.ForcedReauth.Inc()
}

// ObserveAuthLatency records the duration in seconds of an auth service call.
func (m *Metrics) ObserveAuthLatency(operation string, seconds float64) {
	if m == nil {
		return
	}
	m.AuthLatency.WithLabelValues(operation).Observe(seconds)
}

// ObserveSessionLoad records the duration in seconds of a session record load.
func (m *Metrics) ObserveSessionLoad(seconds float64) {
	if m == nil {
		return
	}
	m.SessionLoad.Observe(seconds)
}

// Handler serves the registered metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
