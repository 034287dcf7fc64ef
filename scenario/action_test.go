package scenario_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/scenario-sim/entity/hdmap/hdmaptest"
	"github.com/tsinghua-fib-lab/scenario-sim/scenario"
	"github.com/tsinghua-fib-lab/scenario-sim/utils/config"
	"github.com/tsinghua-fib-lab/scenario-sim/utils/metrics"
	"github.com/tsinghua-fib-lab/scenario-sim/utils/randengine"
	"github.com/tsinghua-fib-lab/scenario-sim/utils/simerror"
)

func TestSpeedActionStep(t *testing.T) {
	env, m := newEnv(t)
	spawn(t, m, "ego", hdmaptest.LaneMain, 10, 0)
	a := scenario.NewSpeedAction(env, []string{"ego"}, scenario.ShapeStep, 8)
	require.NoError(t, a.Start())
	assert.True(t, a.Accomplished())

	require.NoError(t, m.Update(m.GetCurrentTime(), 0.1))
	s, err := m.GetEntityStatus("ego")
	require.NoError(t, err)
	assert.InDelta(t, 8, s.Twist.Linear.X, 1e-9)
}

func TestSpeedActionLinear(t *testing.T) {
	env, m := newEnv(t)
	spawn(t, m, "ego", hdmaptest.LaneMain, 10, 0)
	a := scenario.NewSpeedAction(env, []string{"ego"}, scenario.ShapeLinear, 3)
	require.NoError(t, a.Start())
	assert.False(t, a.Accomplished())
	for i := 0; i < 20 && !a.Accomplished(); i++ {
		require.NoError(t, m.Update(m.GetCurrentTime(), 0.1))
	}
	assert.True(t, a.Accomplished())
}

func TestSpeedActionErrors(t *testing.T) {
	env, m := newEnv(t)
	spawn(t, m, "ego", hdmaptest.LaneMain, 10, 0)

	err := scenario.NewSpeedAction(env, []string{"ghost"}, scenario.ShapeLinear, 3).Start()
	assert.True(t, simerror.IsSemantic(err))
	assert.False(t, scenario.NewSpeedAction(env, []string{"ghost"}, scenario.ShapeLinear, 3).Accomplished())

	assertFault(t, func() {
		_ = scenario.NewSpeedAction(env, []string{"ego"}, scenario.ShapeCubic, 3).Start()
	})
	_, err = scenario.ParseDynamicsShape("bounce")
	assert.True(t, simerror.IsSemantic(err))
}

func TestCollisionMetric(t *testing.T) {
	env, m := newEnv(t)
	reg := prometheus.NewRegistry()
	collector, err := metrics.NewCollector(reg)
	require.NoError(t, err)

	targeted := scenario.NewCollisionMetric(env, collector, "ego_collision0", "ego", []string{"npc1"})
	all := scenario.NewCollisionMetric(env, collector, "ego_collision1", "ego", nil)
	hit, err := targeted.Update()
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, scenario.MetricInactive, targeted.Lifecycle())

	spawn(t, m, "ego", hdmaptest.LaneMain, 0, 0)
	spawn(t, m, "npc1", hdmaptest.LaneMain, 0, 0)
	for _, metric := range []*scenario.CollisionMetric{targeted, all} {
		hit, err := metric.Update()
		require.NoError(t, err)
		assert.True(t, hit)
		assert.True(t, metric.Failed())
		assert.Contains(t, metric.Description(), "npc1")
	}
	hit, err = targeted.Update()
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.Collisions.WithLabelValues("ego_collision0")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.Collisions.WithLabelValues("ego_collision1")))

	cond := scenario.NewCollisionCondition(env, nil, anyOf("npc1"))
	ok, err := cond.Evaluate()
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDistributions(t *testing.T) {
	_, err := scenario.NewUniformDistribution(2, 1)
	assert.True(t, simerror.IsSemantic(err))
	u, err := scenario.NewUniformDistribution(1, 2)
	require.NoError(t, err)

	a, b := randengine.New(7), randengine.New(7)
	for i := 0; i < 100; i++ {
		x := u.Evaluate(a)
		assert.GreaterOrEqual(t, x, 1.0)
		assert.Less(t, x, 2.0)
		assert.Equal(t, x, u.Evaluate(b))
	}

	_, err = scenario.NewProbabilityDistributionSet(nil)
	assert.Error(t, err)
	set, err := scenario.NewProbabilityDistributionSet([]scenario.ProbabilityDistributionSetElement{
		{Value: 5, Weight: 1}, {Value: 10, Weight: 0}, {Value: 15, Weight: 3},
	})
	require.NoError(t, err)
	seen := map[float64]int{}
	for i := 0; i < 200; i++ {
		seen[set.Evaluate(a)]++
	}
	assert.Zero(t, seen[10])
	assert.Greater(t, seen[15], seen[5])
}

func TestRunnerFromConfig(t *testing.T) {
	env, m := newEnv(t)
	reg := prometheus.NewRegistry()
	collector, err := metrics.NewCollector(reg)
	require.NoError(t, err)

	c := config.Scenario{
		Conditions: []config.ConditionConfig{{
			Name:               "arrive",
			Type:               "reach_position",
			TriggeringEntities: []string{"ego"},
			Tolerance:          1,
			Position:           &config.PositionConfig{Lane: &config.LaneletPose{LaneletID: hdmaptest.LaneMain, S: 12}},
			Success:            true,
		}},
		Metrics: []config.CollisionMetricConfig{{Name: "ego_collision", Ego: "ego"}},
	}
	r, err := scenario.NewRunner(env, collector, c)
	require.NoError(t, err)

	spawn(t, m, "ego", hdmaptest.LaneMain, 0, 0)
	require.NoError(t, r.StartAction(scenario.NewSpeedAction(env, []string{"ego"}, scenario.ShapeStep, 4)))
	outcome := scenario.Running
	for i := 0; i < 50 && outcome == scenario.Running; i++ {
		require.NoError(t, m.Update(m.GetCurrentTime(), 0.1))
		outcome, err = r.Step()
		require.NoError(t, err)
	}
	assert.Equal(t, scenario.Succeeded, outcome)
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.ConditionOutcomes.WithLabelValues("arrive", "satisfied")))

	_, err = scenario.NewRunner(env, collector, config.Scenario{Conditions: []config.ConditionConfig{{Type: "teleport"}}})
	assert.True(t, simerror.IsSemantic(err))
	_, err = scenario.NewRunner(env, collector, config.Scenario{Conditions: []config.ConditionConfig{{
		Type: "distance", CoordinateSystem: "road", RelativeDistanceType: "longitudinal",
		Position: &config.PositionConfig{Lane: &config.LaneletPose{LaneletID: hdmaptest.LaneMain}},
	}}})
	assert.True(t, simerror.IsSemantic(err))
}

func TestRunnerFailsOnCollision(t *testing.T) {
	env, m := newEnv(t)
	r, err := scenario.NewRunner(env, nil, config.Scenario{
		Metrics: []config.CollisionMetricConfig{{Name: "ego_collision", Ego: "ego", Targets: []string{"npc1"}}},
	})
	require.NoError(t, err)
	spawn(t, m, "ego", hdmaptest.LaneMain, 0, 0)
	spawn(t, m, "npc1", hdmaptest.LaneMain, 0, 0)
	outcome, err := r.Step()
	require.NoError(t, err)
	assert.Equal(t, scenario.Failed, outcome)
}
