// Package hdmaptest 提供测试用的小型路网
package hdmaptest

import (
	geov2 "git.fiblab.net/sim/protos/v2/go/city/geo/v2"
	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
	"google.golang.org/protobuf/proto"
)

// 车道ID
const (
	LaneMain      = 34741 // (0,0) -> (100,0)
	LaneMainLeft  = 34742 // (0,3.5) -> (100,3.5)，位于LaneMain左侧
	LaneNext      = 34750 // (100,0) -> (200,0)
	LaneNextLeft  = 34751 // (100,3.5) -> (200,3.5)
	LaneJunction  = 34760 // (200,0) -> (230,0)，受信号灯控制
	LaneExit      = 34770 // (230,0) -> (330,0)
	LaneCrosswalk = 40000 // (150,-5) -> (150,10) 人行横道
	LaneWidth     = 3.5
	MaxSpeed      = 16.67
	JunctionID    = 900
)

func line(points ...[2]float64) *mapv2.Polyline {
	nodes := make([]*geov2.XYPosition, len(points))
	for i, p := range points {
		nodes[i] = &geov2.XYPosition{X: p[0], Y: p[1]}
	}
	return &mapv2.Polyline{Nodes: nodes}
}

func conns(ids ...int32) []*mapv2.LaneConnection {
	out := make([]*mapv2.LaneConnection, len(ids))
	for i, id := range ids {
		out[i] = &mapv2.LaneConnection{Id: id}
	}
	return out
}

func driving(id int32, l *mapv2.Polyline, pre, suc []*mapv2.LaneConnection) *mapv2.Lane {
	return &mapv2.Lane{
		Id:           id,
		Type:         mapv2.LaneType_LANE_TYPE_DRIVING,
		MaxSpeed:     MaxSpeed,
		Width:        LaneWidth,
		CenterLine:   l,
		Predecessors: pre,
		Successors:   suc,
	}
}

// Map 创建测试路网
// 说明：两条并行的直行车道接一个信号灯控制的路口车道，另有一条横穿的人行横道
func Map() *mapv2.Map {
	main := driving(LaneMain, line([2]float64{0, 0}, [2]float64{100, 0}), nil, conns(LaneNext))
	main.LeftLaneIds = []int32{LaneMainLeft}
	mainLeft := driving(LaneMainLeft, line([2]float64{0, 3.5}, [2]float64{100, 3.5}), nil, conns(LaneNextLeft))
	mainLeft.RightLaneIds = []int32{LaneMain}
	next := driving(LaneNext, line([2]float64{100, 0}, [2]float64{150, 0}, [2]float64{200, 0}), conns(LaneMain), conns(LaneJunction))
	next.LeftLaneIds = []int32{LaneNextLeft}
	nextLeft := driving(LaneNextLeft, line([2]float64{100, 3.5}, [2]float64{200, 3.5}), conns(LaneMainLeft), nil)
	nextLeft.RightLaneIds = []int32{LaneNext}
	junction := driving(LaneJunction, line([2]float64{200, 0}, [2]float64{230, 0}), conns(LaneNext), conns(LaneExit))
	exit := driving(LaneExit, line([2]float64{230, 0}, [2]float64{330, 0}), conns(LaneJunction), nil)
	crosswalk := &mapv2.Lane{
		Id:         LaneCrosswalk,
		Type:       mapv2.LaneType_LANE_TYPE_WALKING,
		MaxSpeed:   2,
		Width:      4,
		CenterLine: line([2]float64{150, -5}, [2]float64{150, 10}),
	}
	return &mapv2.Map{
		Lanes: []*mapv2.Lane{main, mainLeft, next, nextLeft, junction, exit, crosswalk},
		Junctions: []*mapv2.Junction{{
			Id:      JunctionID,
			LaneIds: []int32{LaneJunction},
			FixedProgram: &mapv2.TrafficLight{
				JunctionId: JunctionID,
				Phases: []*mapv2.Phase{
					{Duration: 30, States: []mapv2.LightState{mapv2.LightState_LIGHT_STATE_GREEN}},
					{Duration: 3, States: []mapv2.LightState{mapv2.LightState_LIGHT_STATE_YELLOW}},
					{Duration: 30, States: []mapv2.LightState{mapv2.LightState_LIGHT_STATE_RED}},
				},
			},
		}},
	}
}

// Clone 返回测试路网的深拷贝
func Clone() *mapv2.Map {
	return proto.Clone(Map()).(*mapv2.Map)
}
