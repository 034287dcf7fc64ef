package agent

import (
	"math"
	"testing"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/scenario-sim/entity"
	"github.com/tsinghua-fib-lab/scenario-sim/entity/hdmap"
	"github.com/tsinghua-fib-lab/scenario-sim/entity/hdmap/hdmaptest"
	"github.com/tsinghua-fib-lab/scenario-sim/entity/trafficlight"
	"github.com/tsinghua-fib-lab/scenario-sim/utils/simerror"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := hdmap.New(hdmaptest.Map())
	require.NoError(t, err)
	return NewManager(m, trafficlight.NewManager(m))
}

func at(lane int64, s, speed float64) Placement {
	return AtLanelet(entity.LaneletPose{LaneletID: lane, S: s}, speed)
}

func run(t *testing.T, m *Manager, steps int, dt float64, each func()) {
	t.Helper()
	for i := 0; i < steps; i++ {
		require.NoError(t, m.Update(m.GetCurrentTime(), dt))
		if each != nil {
			each()
		}
	}
}

func TestSpawnDespawn(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.SpawnVehicle("npc1", at(hdmaptest.LaneMain, 10, 0), DefaultVehicleParameters()))
	assert.True(t, m.EntityExists("npc1"))
	assert.True(t, m.EntityStatusSet("npc1"))
	require.NoError(t, m.DespawnEntity("npc1"))
	assert.False(t, m.EntityExists("npc1"))

	err := m.DespawnEntity("npc1")
	assert.True(t, simerror.IsSemantic(err))
}

func TestDuplicateSpawnKeepsOriginal(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.SpawnVehicle("npc1", at(hdmaptest.LaneMain, 10, 0), DefaultVehicleParameters()))
	err := m.SpawnVehicle("npc1", at(hdmaptest.LaneNext, 20, 0), DefaultVehicleParameters())
	require.Error(t, err)
	assert.True(t, simerror.IsSemantic(err))

	lp, ok, err := m.GetLaneletPose("npc1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.EqualValues(t, hdmaptest.LaneMain, lp.LaneletID)
	assert.InDelta(t, 10, lp.S, 1e-9)
}

func TestSpawnDuringTickIsDeferred(t *testing.T) {
	m := newTestManager(t)
	m.BeginTick()
	require.NoError(t, m.SpawnPedestrian("bob", at(hdmaptest.LaneCrosswalk, 1, 0), DefaultPedestrianParameters()))
	assert.True(t, m.EntityExists("bob"))
	assert.False(t, m.EntityStatusSet("bob"))
	require.NoError(t, m.DespawnEntity("bob"))
	m.EndTick()
	run(t, m, 1, 0.1, nil)
	assert.False(t, m.EntityExists("bob"))
}

func TestEgoQueries(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.SpawnEgo("ego", at(hdmaptest.LaneMain, 0, 0), DefaultVehicleParameters()))
	require.NoError(t, m.SpawnVehicle("npc1", at(hdmaptest.LaneMain, 0, 0), DefaultVehicleParameters()))
	assert.True(t, m.IsEgo("ego"))
	assert.False(t, m.IsEgo("npc1"))
	assert.Equal(t, 1, m.GetNumberOfEgo())
	name, err := m.GetEgoName()
	require.NoError(t, err)
	assert.Equal(t, "ego", name)
	assert.Equal(t, []string{"ego", "npc1"}, m.GetEntityNames())
	assert.Equal(t, entity.EntityTypeVehicle, m.GetEntityTypeList()["npc1"])

	statuses, err := m.GetEntityStatuses(nil)
	require.NoError(t, err)
	assert.Len(t, statuses, 2)
	_, err = m.GetEntityStatuses([]string{"ego", "ghost"})
	assert.Error(t, err)
}

func TestRelativePoseToSelf(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.SpawnVehicle("a", at(hdmaptest.LaneNext, 120, 3), DefaultVehicleParameters()))
	p, err := m.RelativePoseBetween("a", "a")
	require.NoError(t, err)
	assert.True(t, p.IsIdentity(1e-9))

	_, err = m.RelativePoseBetween("a", "ghost")
	assert.True(t, simerror.IsSemantic(err))
}

func TestCollisionAndBoundingBoxDistance(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.SpawnEgo("ego", at(hdmaptest.LaneMain, 0, 0), DefaultVehicleParameters()))
	require.NoError(t, m.SpawnVehicle("npc1", at(hdmaptest.LaneMain, 0, 0), DefaultVehicleParameters()))
	require.NoError(t, m.SpawnVehicle("npc2", at(hdmaptest.LaneMain, 20, 0), DefaultVehicleParameters()))

	hit, err := m.CheckCollision("ego", "npc1")
	require.NoError(t, err)
	assert.True(t, hit)
	hit, err = m.CheckCollision("ego", "ego")
	require.NoError(t, err)
	assert.False(t, hit)
	hit, err = m.CheckCollision("ego", "npc2")
	require.NoError(t, err)
	assert.False(t, hit)

	// 车长4.5，两车原点相距20
	d, ok, err := m.GetBoundingBoxDistance("ego", "npc2")
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 15.5, d, 1e-6)

	d2, err := m.GetDistanceToBoundingBox("npc2", geometry.Point{X: 20 + 1.5, Y: 10})
	require.NoError(t, err)
	assert.InDelta(t, 10-0.9, d2, 1e-6)
}

func TestLongitudinalDistanceBetweenEntities(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.SpawnVehicle("a", at(hdmaptest.LaneMain, 80, 0), DefaultVehicleParameters()))
	require.NoError(t, m.SpawnVehicle("b", at(hdmaptest.LaneNext, 10, 0), DefaultVehicleParameters()))

	d, ok, err := m.GetLongitudinalDistance("a", "b", 100)
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 30, d, 1e-6)

	d, ok, err = m.GetLongitudinalDistance("b", "a", 100)
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, -30, d, 1e-6)

	_, ok, err = m.GetLongitudinalDistance("a", "b", 10)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSpeedChangeConverges(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.SpawnEgo("ego", at(hdmaptest.LaneMain, 0, 0), DefaultVehicleParameters()))
	require.NoError(t, m.RequestSpeedChange("ego", 10, true))

	lastS, lastV := 0.0, 0.0
	run(t, m, 80, 0.05, func() {
		s, err := m.GetEntityStatus("ego")
		require.NoError(t, err)
		require.True(t, s.LaneletPoseValid)
		require.EqualValues(t, hdmaptest.LaneMain, s.LaneletPose.LaneletID)
		assert.GreaterOrEqual(t, s.LaneletPose.S, lastS)
		assert.GreaterOrEqual(t, s.Twist.Linear.X, lastV)
		assert.LessOrEqual(t, s.Twist.Linear.X, 10.0)
		lastS, lastV = s.LaneletPose.S, s.Twist.Linear.X
	})
	assert.InDelta(t, 10, lastV, 1e-9)
	assert.InDelta(t, 4.0, m.GetCurrentTime(), 1e-9)
	action, err := m.GetCurrentAction("ego")
	require.NoError(t, err)
	assert.Equal(t, ActionFollowLane, action)
}

func TestStandStillDuration(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.SpawnEgo("ego", at(hdmaptest.LaneMain, 0, 0), DefaultVehicleParameters()))
	run(t, m, 10, 0.1, nil)
	d, err := m.GetStandStillDuration("ego")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, d, 1e-9)
	stopping, err := m.IsStopping("ego")
	require.NoError(t, err)
	assert.True(t, stopping)
}

func TestQueriesDuringPendingDespawn(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.SpawnEgo("ego", at(hdmaptest.LaneMain, 10, 0), DefaultVehicleParameters()))
	run(t, m, 5, 0.1, nil)

	m.BeginTick()
	require.NoError(t, m.DespawnEntity("ego"))
	d, err := m.GetStandStillDuration("ego")
	require.NoError(t, err)
	assert.InDelta(t, 0.5, d, 1e-9)
	_, err = m.GetCurrentAction("ego")
	require.NoError(t, err)
	_, err = m.GetEntityStatus("ego")
	require.NoError(t, err)
	assert.Error(t, m.RequestSpeedChange("ego", 5, true))
	m.EndTick()

	require.NoError(t, m.Update(m.GetCurrentTime(), 0.1))
	_, err = m.GetStandStillDuration("ego")
	assert.True(t, simerror.IsSemantic(err))
}

func TestAbortedTickKeepsRequestsQueued(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.SpawnEgo("ego", at(hdmaptest.LaneMain, 5, 0), DefaultVehicleParameters()))
	require.NoError(t, m.RequestSpeedChange("ego", 5, true))
	require.NoError(t, m.RequestLaneChange("ego", entity.LEFT))

	require.Error(t, m.Update(m.GetCurrentTime(), 0))
	e, err := m.Get("ego")
	require.NoError(t, err)
	// 更新成功但未提交，等同于其他实体出错导致本tick中止
	require.NoError(t, e.UpdateStatus(m.GetCurrentTime(), 0.1))
	assert.True(t, e.runtime.Intent.HasTargetSpeed)
	assert.False(t, e.snapshot.Intent.HasTargetSpeed)
	assert.False(t, e.snapshot.Intent.HasPendingLC)
	assert.Len(t, e.requests, 2)

	run(t, m, 1, 0.1, nil)
	assert.True(t, e.snapshot.Intent.HasTargetSpeed)
	assert.InDelta(t, 5, e.snapshot.Intent.TargetSpeed, 1e-9)
	assert.True(t, e.snapshot.LC.IsLC)
	assert.Empty(t, e.requests)
}

func TestSecondQueuedLaneChangeRejected(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.SpawnEgo("ego", at(hdmaptest.LaneMain, 5, 5), DefaultVehicleParameters()))
	require.NoError(t, m.RequestLaneChange("ego", entity.LEFT))
	err := m.RequestLaneChange("ego", entity.LEFT)
	assert.True(t, simerror.IsSemantic(err))
}

func TestLaneChange(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.SpawnEgo("ego", at(hdmaptest.LaneMain, 5, 5), DefaultVehicleParameters()))
	require.NoError(t, m.RequestSpeedChange("ego", 5, true))
	require.NoError(t, m.RequestLaneChange("ego", entity.LEFT))

	run(t, m, 1, 0.1, nil)
	action, err := m.GetCurrentAction("ego")
	require.NoError(t, err)
	assert.Equal(t, ActionLaneChange, action)
	assert.Error(t, m.RequestLaneChange("ego", entity.LEFT))

	// 变道距离为 max(5*5, 2*4.5) = 25 米
	run(t, m, 60, 0.1, nil)
	s, err := m.GetEntityStatus("ego")
	require.NoError(t, err)
	assert.EqualValues(t, hdmaptest.LaneMainLeft, s.LaneletPose.LaneletID)
	assert.InDelta(t, 3.5, s.Pose.Position.Y, 1e-6)
	assert.InDelta(t, 0, s.LaneletPose.RPY.Z, 1e-9)
}

func TestLaneChangeRejected(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.SpawnPedestrian("bob", at(hdmaptest.LaneCrosswalk, 1, 1), DefaultPedestrianParameters()))
	require.NoError(t, m.SpawnVehicle("npc", at(hdmaptest.LaneJunction, 1, 1), DefaultVehicleParameters()))

	err := m.RequestLaneChange("bob", entity.LEFT)
	assert.True(t, simerror.IsSemantic(err))
	err = m.RequestLaneChange("npc", entity.LEFT)
	assert.True(t, simerror.IsSemantic(err))
	err = m.RequestLaneChange("ghost", entity.LEFT)
	assert.True(t, simerror.IsSemantic(err))
}

func TestStopAtRedLight(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.SetTrafficLightColor(hdmaptest.JunctionID, trafficlight.ColorRed))
	require.NoError(t, m.SpawnVehicle("npc", at(hdmaptest.LaneNext, 30, 10), DefaultVehicleParameters()))

	run(t, m, 300, 0.1, nil)
	s, err := m.GetEntityStatus("npc")
	require.NoError(t, err)
	assert.EqualValues(t, hdmaptest.LaneNext, s.LaneletPose.LaneletID)
	front := DefaultVehicleParameters().BoundingBox.Dimensions.X/2 + DefaultVehicleParameters().BoundingBox.Center.X
	assert.Less(t, s.LaneletPose.S+front, 100.0)
	assert.Less(t, s.Twist.Linear.X, 0.5)

	require.NoError(t, m.SetTrafficLightColor(hdmaptest.JunctionID, trafficlight.ColorGreen))
	run(t, m, 100, 0.1, nil)
	s, err = m.GetEntityStatus("npc")
	require.NoError(t, err)
	assert.NotEqualValues(t, hdmaptest.LaneNext, s.LaneletPose.LaneletID)
}

func TestReachAndInLanelet(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.SpawnVehicle("a", at(hdmaptest.LaneMain, 99.5, 0), DefaultVehicleParameters()))
	ok, err := m.IsInLanelet("a", hdmaptest.LaneMain, 0)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = m.IsInLanelet("a", hdmaptest.LaneNext, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = m.IsInLanelet("a", hdmaptest.LaneExit, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = m.ReachLaneletPosition("a", entity.LaneletPose{LaneletID: hdmaptest.LaneNext, S: 0.5}, 1.1)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = m.ReachLaneletPosition("a", entity.LaneletPose{LaneletID: hdmaptest.LaneNext, S: 5}, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAcquirePosition(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.SpawnVehicle("npc", at(hdmaptest.LaneMain, 0, 5), DefaultVehicleParameters()))
	target := entity.LaneletPose{LaneletID: hdmaptest.LaneNext, S: 40}
	require.NoError(t, m.RequestAcquirePosition("npc", target))
	run(t, m, 400, 0.1, nil)
	ok, err := m.ReachLaneletPosition("npc", target, 2)
	require.NoError(t, err)
	assert.True(t, ok)
	stopping, err := m.IsStopping("npc")
	require.NoError(t, err)
	assert.True(t, stopping)
	assert.False(t, math.IsNaN(m.GetCurrentTime()))
}
