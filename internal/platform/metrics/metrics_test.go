package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveGuard("Dental", "forbidden")
	m.ObserveGuard("Dental", "forbidden")
	m.IncrementLogins("success")
	m.IncrementForcedReauth()
	m.ObserveSessionLoad(0.0004)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.GuardOutcomes.WithLabelValues("Dental", "forbidden")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Logins.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ForcedReauth))

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "steward_guard_outcomes_total")
	assert.Contains(t, rr.Body.String(), "steward_session_redis_load_duration_seconds_count 1")
}

func TestMetrics_SeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New(prometheus.NewRegistry())
		New(prometheus.NewRegistry())
	})
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveGuard("Dental", "authorized")
	m.IncrementLogins("failure")
	m.IncrementForcedReauth()
	m.ObserveAuthLatency("login", 0.1)
	m.ObserveSessionLoad(0.001)
}
