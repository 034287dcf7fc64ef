package trafficlight

import (
	"context"
	"testing"

	"connectrpc.com/connect"
	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/scenario-sim/entity/hdmap/hdmaptest"
)

func TestRPCGetTrafficLight(t *testing.T) {
	m := newManager(t)
	h := NewRPCHandler(m)
	ctx := context.Background()

	resp, err := h.GetTrafficLight(ctx, connect.NewRequest(&mapv2.GetTrafficLightRequest{JunctionId: hdmaptest.JunctionID}))
	require.NoError(t, err)
	assert.Nil(t, resp.Msg.TrafficLight, "no program yet")

	require.NoError(t, m.SetColorPhase(hdmaptest.JunctionID, []Phase[LightColor]{
		{Duration: 2, State: ColorGreen},
		{Duration: 1, State: ColorRed},
	}))
	m.Update(0.5)
	resp, err = h.GetTrafficLight(ctx, connect.NewRequest(&mapv2.GetTrafficLightRequest{JunctionId: hdmaptest.JunctionID}))
	require.NoError(t, err)
	require.NotNil(t, resp.Msg.TrafficLight)
	assert.Len(t, resp.Msg.TrafficLight.Phases, 2)
	assert.Equal(t, mapv2.LightState_LIGHT_STATE_RED, resp.Msg.TrafficLight.Phases[1].States[0])
	assert.Equal(t, int32(0), resp.Msg.PhaseIndex)
	assert.InDelta(t, 1.5, resp.Msg.TimeRemaining, 1e-9)

	_, err = h.GetTrafficLight(ctx, connect.NewRequest(&mapv2.GetTrafficLightRequest{JunctionId: hdmaptest.LaneMain}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
}

func TestRPCSetTrafficLightIsDeferred(t *testing.T) {
	m := newManager(t)
	h := NewRPCHandler(m)
	ctx := context.Background()

	program := &mapv2.TrafficLight{
		JunctionId: hdmaptest.JunctionID,
		Phases: []*mapv2.Phase{
			{Duration: 5, States: []mapv2.LightState{mapv2.LightState_LIGHT_STATE_GREEN}},
			{Duration: 5, States: []mapv2.LightState{mapv2.LightState_LIGHT_STATE_RED}},
		},
	}
	_, err := h.SetTrafficLight(ctx, connect.NewRequest(&mapv2.SetTrafficLightRequest{
		TrafficLight: program, PhaseIndex: 1, TimeRemaining: 2,
	}))
	require.NoError(t, err)
	state, err := m.LightState(hdmaptest.JunctionID)
	require.NoError(t, err)
	assert.Equal(t, mapv2.LightState_LIGHT_STATE_GREEN, state, "applied on next update")

	m.Update(0.5)
	state, _ = m.LightState(hdmaptest.JunctionID)
	assert.Equal(t, mapv2.LightState_LIGHT_STATE_RED, state)

	_, err = h.SetTrafficLightPhase(ctx, connect.NewRequest(&mapv2.SetTrafficLightPhaseRequest{
		JunctionId: hdmaptest.JunctionID, PhaseIndex: 0, TimeRemaining: 3,
	}))
	require.NoError(t, err)
	m.Update(0.5)
	c, _ := m.GetColor(hdmaptest.JunctionID)
	assert.Equal(t, ColorGreen, c)

	_, err = h.SetTrafficLightStatus(ctx, connect.NewRequest(&mapv2.SetTrafficLightStatusRequest{
		JunctionId: hdmaptest.JunctionID, Ok: false,
	}))
	require.NoError(t, err)
	m.Update(0.5)
	l, _ := m.Get(hdmaptest.JunctionID)
	_, _, _, ok := l.ColorPhase()
	assert.False(t, ok)
	assert.Equal(t, ColorGreen, l.Color())
}

func TestRPCSetTrafficLightRejects(t *testing.T) {
	h := NewRPCHandler(newManager(t))
	ctx := context.Background()

	_, err := h.SetTrafficLight(ctx, connect.NewRequest(&mapv2.SetTrafficLightRequest{}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	_, err = h.SetTrafficLight(ctx, connect.NewRequest(&mapv2.SetTrafficLightRequest{
		TrafficLight: &mapv2.TrafficLight{
			JunctionId: hdmaptest.JunctionID,
			Phases:     []*mapv2.Phase{{Duration: 5}},
		},
		PhaseIndex: 3,
	}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	_, err = h.SetTrafficLightPhase(ctx, connect.NewRequest(&mapv2.SetTrafficLightPhaseRequest{
		JunctionId: hdmaptest.JunctionID, TimeRemaining: -1,
	}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
}
