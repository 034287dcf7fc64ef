package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorRecords(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)

	c.ObserveStep(3*time.Millisecond, 4)
	c.ObserveStep(2*time.Millisecond, 5)
	c.ObserveCondition("end", false)
	c.ObserveCondition("end", true)
	c.ObserveCondition("end", true)
	c.ObserveCollision("ego_collision")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.Steps))
	assert.Equal(t, 5.0, testutil.ToFloat64(c.Entities))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.ConditionOutcomes.WithLabelValues("end", "satisfied")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.ConditionOutcomes.WithLabelValues("end", "unsatisfied")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Collisions.WithLabelValues("ego_collision")))
}

func TestCollectorReusesRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	a, err := NewCollector(reg)
	require.NoError(t, err)
	b, err := NewCollector(reg)
	require.NoError(t, err)
	a.ObserveCollision("m")
	assert.Equal(t, 1.0, testutil.ToFloat64(b.Collisions.WithLabelValues("m")))
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.ObserveStep(time.Millisecond, 1)
		c.ObserveCondition("x", true)
		c.ObserveCollision("x")
	})
}

func TestHandlerExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)
	c.ObserveStep(time.Millisecond, 7)

	rr := httptest.NewRecorder()
	c.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.True(t, strings.Contains(body, "scenario_sim_entities 7"))
	assert.True(t, strings.Contains(body, "scenario_sim_step_duration_seconds_count 1"))
}
