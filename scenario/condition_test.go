package scenario_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/scenario-sim/entity"
	"github.com/tsinghua-fib-lab/scenario-sim/entity/agent"
	"github.com/tsinghua-fib-lab/scenario-sim/entity/hdmap/hdmaptest"
	"github.com/tsinghua-fib-lab/scenario-sim/scenario"
)

func TestEntityDistances(t *testing.T) {
	env, m := newEnv(t)
	spawn(t, m, "ego", hdmaptest.LaneMain, 10, 0)
	target := world(13, 4)

	cases := []struct {
		rdt       scenario.RelativeDistanceType
		freespace bool
		want      float64
	}{
		{scenario.EuclideanDistance, false, 5},
		{scenario.Longitudinal, false, 3},
		{scenario.Lateral, false, 4},
		// 车头在原点前3.75米
		{scenario.Longitudinal, true, 0},
		{scenario.Lateral, true, 4 - 0.9},
		{scenario.EuclideanDistance, true, 4 - 0.9},
	}
	for _, c := range cases {
		cond := scenario.NewDistanceCondition(env, target, 5, c.freespace,
			scenario.CoordinateEntity, c.rdt, scenario.LessOrEqual, anyOf("ego"))
		d, err := cond.Distance("ego")
		require.NoError(t, err)
		assert.InDelta(t, c.want, d, 1e-6, "%v freespace=%v", c.rdt, c.freespace)
	}

	cond := scenario.NewDistanceCondition(env, target, 5, false,
		scenario.CoordinateEntity, scenario.EuclideanDistance, scenario.LessOrEqual, anyOf("ego"))
	ok, err := cond.Evaluate()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Any of [ego]'s distance to given position = [5] lessOrEqual 5?", cond.Description())
}

func TestDistanceOfUnspawnedEntityIsNaN(t *testing.T) {
	env, m := newEnv(t)
	spawn(t, m, "ego", hdmaptest.LaneMain, 10, 0)
	cond := scenario.NewDistanceCondition(env, world(0, 0), 100, false,
		scenario.CoordinateEntity, scenario.EuclideanDistance, scenario.LessThan,
		scenario.TriggeringEntities{Rule: scenario.All, Refs: []string{"ego", "ghost"}})
	ok, err := cond.Evaluate()
	require.NoError(t, err)
	assert.False(t, ok)
	require.Len(t, cond.Results(), 2)
	assert.InDelta(t, 10, cond.Results()[0], 1e-9)
	assert.True(t, math.IsNaN(cond.Results()[1]))
	assert.Contains(t, cond.Description(), "NaN")

	// 相对位置引用的实体尚未生成
	rel := scenario.NewDistanceCondition(env, scenario.RelativeWorldPosition{EntityRef: "ghost", DX: 1}, 100, false,
		scenario.CoordinateEntity, scenario.EuclideanDistance, scenario.LessThan, anyOf("ego"))
	ok, err = rel.Evaluate()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUnsupportedDistanceCombinationFaults(t *testing.T) {
	env, m := newEnv(t)
	spawn(t, m, "ego", hdmaptest.LaneMain, 10, 0)
	cond := scenario.NewDistanceCondition(env, world(0, 0), 1, false,
		scenario.CoordinateRoad, scenario.Longitudinal, scenario.LessThan, anyOf("ego"))
	assertFault(t, func() { _, _ = cond.Evaluate() })
}

func TestLaneDistances(t *testing.T) {
	env, m := newEnv(t)
	spawn(t, m, "ego", hdmaptest.LaneMain, 80, 0)
	target := scenario.LanePosition{LaneletPose: entity.LaneletPose{LaneletID: hdmaptest.LaneNext, S: 10}}

	cond := scenario.NewDistanceCondition(env, target, 30, false,
		scenario.CoordinateLane, scenario.Longitudinal, scenario.EqualTo, anyOf("ego"))
	ok, err := cond.Evaluate()
	require.NoError(t, err)
	assert.True(t, ok)

	side := scenario.LanePosition{LaneletPose: entity.LaneletPose{LaneletID: hdmaptest.LaneMainLeft, S: 80}}
	lat := scenario.NewDistanceCondition(env, side, 0, false,
		scenario.CoordinateLane, scenario.Lateral, scenario.GreaterThan, anyOf("ego"))
	d, err := lat.Distance("ego")
	require.NoError(t, err)
	assert.InDelta(t, 3.5, d, 1e-6)
}

func TestReachPositionRecordsDistance(t *testing.T) {
	env, m := newEnv(t)
	spawn(t, m, "ego", hdmaptest.LaneMain, 10, 0)

	far := scenario.NewReachPositionCondition(env, world(20, 0), 1, anyOf("ego"))
	ok, err := far.Evaluate()
	require.NoError(t, err)
	assert.False(t, ok)
	require.Len(t, far.Results(), 1)
	assert.InDelta(t, 10, far.Results()[0], 1e-9)

	near := scenario.NewReachPositionCondition(env,
		scenario.LanePosition{LaneletPose: entity.LaneletPose{LaneletID: hdmaptest.LaneMain, S: 10.5}}, 1, anyOf("ego"))
	ok, err = near.Evaluate()
	require.NoError(t, err)
	assert.True(t, ok)

	ghost := scenario.NewReachPositionCondition(env, world(10, 0), 1, anyOf("ghost"))
	ok, err = ghost.Evaluate()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTimeHeadway(t *testing.T) {
	env, m := newEnv(t)
	spawn(t, m, "ego", hdmaptest.LaneMain, 10, 10)
	spawn(t, m, "npc", hdmaptest.LaneMain, 40, 0)
	spawn(t, m, "behind", hdmaptest.LaneMain, 5, 0)

	cond := scenario.NewTimeHeadwayCondition(env, "npc", 3, false, false, scenario.EqualTo, anyOf("ego"))
	ok, err := cond.Evaluate()
	require.NoError(t, err)
	assert.True(t, ok)
	require.Len(t, cond.Results(), 1)
	assert.InDelta(t, 3, cond.Results()[0][0], 1e-9)

	freespace := scenario.NewTimeHeadwayCondition(env, "npc", 0, true, true, scenario.GreaterThan, anyOf("ego"))
	h, err := freespace.Headway("ego")
	require.NoError(t, err)
	assert.InDelta(t, (30-4.5)/10, h, 1e-9)

	// 速度为0
	h, err = scenario.NewTimeHeadwayCondition(env, "ego", 1, false, false, scenario.LessThan, anyOf("npc")).Headway("npc")
	require.NoError(t, err)
	assert.True(t, math.IsNaN(h))

	// 参考实体在后方，距离为负
	h, err = scenario.NewTimeHeadwayCondition(env, "behind", 1, false, true, scenario.LessThan, anyOf("ego")).Headway("ego")
	require.NoError(t, err)
	assert.True(t, math.IsNaN(h))
}

func TestTimeHeadwayFreespaceUsesBoxOffsets(t *testing.T) {
	env, m := newEnv(t)
	spawn(t, m, "ego", hdmaptest.LaneMain, 10, 10)
	at := agent.AtLanelet(entity.LaneletPose{LaneletID: hdmaptest.LaneMain, S: 40}, 0)
	require.NoError(t, m.SpawnPedestrian("walker", at, agent.DefaultPedestrianParameters()))

	// 车头在原点前3.75米，行人车尾在原点后0.25米
	h, err := scenario.NewTimeHeadwayCondition(env, "walker", 0, true, true, scenario.GreaterThan, anyOf("ego")).Headway("ego")
	require.NoError(t, err)
	assert.InDelta(t, 2.6, h, 1e-9)

	h, err = scenario.NewTimeHeadwayCondition(env, "walker", 0, true, false, scenario.GreaterThan, anyOf("ego")).Headway("ego")
	require.NoError(t, err)
	assert.InDelta(t, 2.6, h, 1e-9)
}

func TestSpeedAndStandStill(t *testing.T) {
	env, m := newEnv(t)
	spawn(t, m, "ego", hdmaptest.LaneMain, 0, 0)
	require.NoError(t, m.RequestSpeedChange("ego", 0, true))

	speed := scenario.NewSpeedCondition(env, 0, scenario.EqualTo, anyOf("ego"))
	ok, err := speed.Evaluate()
	require.NoError(t, err)
	assert.True(t, ok)

	still := scenario.NewStandStillCondition(env, 0.5, scenario.GreaterOrEqual, anyOf("ego"))
	ok, err = still.Evaluate()
	require.NoError(t, err)
	assert.False(t, ok)
	for i := 0; i < 6; i++ {
		require.NoError(t, m.Update(m.GetCurrentTime(), 0.1))
	}
	ok, err = still.Evaluate()
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStandStillDuringPendingDespawn(t *testing.T) {
	env, m := newEnv(t)
	spawn(t, m, "ego", hdmaptest.LaneMain, 10, 0)
	require.NoError(t, m.RequestSpeedChange("ego", 0, true))
	require.NoError(t, m.Update(m.GetCurrentTime(), 0.1))

	m.BeginTick()
	require.NoError(t, m.DespawnEntity("ego"))
	still := scenario.NewStandStillCondition(env, 0.05, scenario.GreaterOrEqual, anyOf("ego"))
	ok, err := still.Evaluate()
	require.NoError(t, err)
	assert.True(t, ok)
	m.EndTick()
}

func TestPositionResolution(t *testing.T) {
	env, m := newEnv(t)
	spawn(t, m, "ego", hdmaptest.LaneMain, 10, 0)

	pose, ok, err := env.ResolvePose(scenario.RelativeWorldPosition{EntityRef: "ego", DX: 5, DY: 3.5})
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 15, pose.Position.X, 1e-9)
	assert.InDelta(t, 3.5, pose.Position.Y, 1e-9)

	lp, ok, err := env.ResolveLaneletPose(scenario.RelativeWorldPosition{EntityRef: "ego", DX: 5, DY: 3.5})
	require.NoError(t, err)
	require.True(t, ok)
	assert.EqualValues(t, hdmaptest.LaneMainLeft, lp.LaneletID)
	assert.InDelta(t, 15, lp.S, 1e-6)

	_, _, err = env.ResolvePose(scenario.LanePosition{LaneletPose: entity.LaneletPose{LaneletID: 1}})
	assert.Error(t, err)
}
