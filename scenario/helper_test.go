package scenario_test

import (
	"testing"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/scenario-sim/entity"
	"github.com/tsinghua-fib-lab/scenario-sim/entity/agent"
	"github.com/tsinghua-fib-lab/scenario-sim/entity/hdmap"
	"github.com/tsinghua-fib-lab/scenario-sim/entity/hdmap/hdmaptest"
	"github.com/tsinghua-fib-lab/scenario-sim/entity/trafficlight"
	"github.com/tsinghua-fib-lab/scenario-sim/scenario"
	"github.com/tsinghua-fib-lab/scenario-sim/utils/linalg"
	"github.com/tsinghua-fib-lab/scenario-sim/utils/simerror"
)

func newEnv(t *testing.T) (*scenario.Env, *agent.Manager) {
	t.Helper()
	network, err := hdmap.New(hdmaptest.Map())
	require.NoError(t, err)
	m := agent.NewManager(network, trafficlight.NewManager(network))
	return &scenario.Env{Entities: m, Network: network}, m
}

func spawn(t *testing.T, m *agent.Manager, name string, lane int64, s, speed float64) {
	t.Helper()
	at := agent.AtLanelet(entity.LaneletPose{LaneletID: lane, S: s}, speed)
	require.NoError(t, m.SpawnVehicle(name, at, agent.DefaultVehicleParameters()))
}

func world(x, y float64) scenario.WorldPosition {
	return scenario.WorldPosition{Pose: linalg.Pose{
		Position:    geometry.Point{X: x, Y: y},
		Orientation: linalg.Identity(),
	}}
}

func anyOf(refs ...string) scenario.TriggeringEntities {
	return scenario.TriggeringEntities{Rule: scenario.Any, Refs: refs}
}

// assertFault 断言f以实现缺陷panic
func assertFault(t *testing.T, f func()) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r)
		_, ok := r.(*simerror.ImplementationFault)
		require.True(t, ok, "panic value %v is not an implementation fault", r)
	}()
	f()
}
