package hdmap

import (
	"fmt"
	"math"
	"sort"

	"git.fiblab.net/general/common/v2/geometry"
	"git.fiblab.net/general/common/v2/parallel"
	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/scenario-sim/entity"
	"github.com/tsinghua-fib-lab/scenario-sim/utils/linalg"
	"github.com/tsinghua-fib-lab/scenario-sim/utils/simerror"
)

const (
	// 自由位姿匹配车道时，超出半车道宽的容许距离
	matchMargin = 1.0
	// 车辆与车道方向夹角超过该值时不认为在该车道上
	maxHeadingDiff = math.Pi / 2
)

// Map 车道级路网
// 功能：由地图protobuf构建，实现entity.IRoadNetwork，构造完成后只读
type Map struct {
	lanes map[int64]*lane
	ids   []int64 // 车道ID（升序），保证遍历顺序确定

	trafficLights map[int64]*mapv2.TrafficLight // 带固定相位的路口ID即信号灯ID
	laneLight     map[int64]int64    // 车道ID -> 信号灯ID
}

// New 根据地图数据创建路网
func New(m *mapv2.Map) (*Map, error) {
	return NewFromLanes(m.Lanes, m.Junctions)
}

// NewFromLanes 根据车道与路口数据创建路网
// 功能：并行构建车道几何，检查拓扑引用，并记录受信号灯控制的车道
// 返回：存在退化车道或引用了不存在的车道时返回错误
func NewFromLanes(pbs []*mapv2.Lane, junctions []*mapv2.Junction) (*Map, error) {
	type result struct {
		l   *lane
		err error
	}
	results := parallel.GoMap(pbs, func(pb *mapv2.Lane) result {
		l, err := newLane(pb)
		return result{l, err}
	})
	m := &Map{
		lanes:         make(map[int64]*lane, len(pbs)),
		trafficLights: make(map[int64]*mapv2.TrafficLight),
		laneLight:     make(map[int64]int64),
	}
	for _, r := range results {
		if r.err != nil {
			return nil, r.err
		}
		if _, ok := m.lanes[r.l.id]; ok {
			return nil, fmt.Errorf("duplicate lane id %d", r.l.id)
		}
		m.lanes[r.l.id] = r.l
	}
	m.ids = lo.Keys(m.lanes)
	sort.Slice(m.ids, func(i, j int) bool { return m.ids[i] < m.ids[j] })
	for _, id := range m.ids {
		l := m.lanes[id]
		for _, ref := range lo.Flatten([][]int64{l.predecessors, l.successors, l.sideLanes[entity.LEFT], l.sideLanes[entity.RIGHT]}) {
			if _, ok := m.lanes[ref]; !ok {
				return nil, fmt.Errorf("lane %d references unknown lane %d", id, ref)
			}
		}
	}
	for _, j := range junctions {
		if j.FixedProgram == nil || len(j.FixedProgram.Phases) == 0 {
			continue
		}
		jid := int64(j.Id)
		m.trafficLights[jid] = j.FixedProgram
		for _, laneID := range j.LaneIds {
			m.laneLight[int64(laneID)] = jid
		}
	}
	log.Infof("road network built with %d lanes and %d traffic lights", len(m.ids), len(m.trafficLights))
	return m, nil
}

func (m *Map) get(id int64) (*lane, error) {
	if l, ok := m.lanes[id]; ok {
		return l, nil
	}
	return nil, simerror.Semantic(fmt.Sprint(id), "lanelet %d does not exist", id)
}

// LaneIDs 全部车道ID（升序）
func (m *Map) LaneIDs() []int64 {
	return m.ids
}

// TrafficLightIDs 全部信号灯ID（升序）
func (m *Map) TrafficLightIDs() []int64 {
	ids := lo.Keys(m.trafficLights)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// TrafficLightProgram 信号灯的固定相位程序
func (m *Map) TrafficLightProgram(id int64) (*mapv2.TrafficLight, bool) {
	tl, ok := m.trafficLights[id]
	return tl, ok
}

func (m *Map) IsTrafficLight(id int64) bool {
	_, ok := m.trafficLights[id]
	return ok
}

func (m *Map) TrafficLightOf(laneID int64) (int64, bool) {
	id, ok := m.laneLight[laneID]
	return id, ok
}

func (m *Map) LaneLength(id int64) (float64, error) {
	l, err := m.get(id)
	if err != nil {
		return 0, err
	}
	return l.length, nil
}

func (m *Map) LaneWidth(id int64) (float64, error) {
	l, err := m.get(id)
	if err != nil {
		return 0, err
	}
	return l.width, nil
}

// LaneMaxSpeed 车道限速
func (m *Map) LaneMaxSpeed(id int64) (float64, error) {
	l, err := m.get(id)
	if err != nil {
		return 0, err
	}
	return l.maxV, nil
}

func (m *Map) Successors(id int64) []int64 {
	if l, ok := m.lanes[id]; ok {
		return l.successors
	}
	return nil
}

func (m *Map) Predecessors(id int64) []int64 {
	if l, ok := m.lanes[id]; ok {
		return l.predecessors
	}
	return nil
}

func (m *Map) Neighbor(id int64, direction entity.Direction) (int64, bool) {
	l, ok := m.lanes[id]
	if !ok || len(l.sideLanes[direction]) == 0 {
		return 0, false
	}
	return l.sideLanes[direction][0], true
}

func (m *Map) ProjectOnLane(id int64, p geometry.Point) (s, offset float64, err error) {
	l, err := m.get(id)
	if err != nil {
		return 0, 0, err
	}
	s, offset, _ = l.project(p)
	return
}

// ToMapPose 车道坐标转自由位姿
// 算法说明：沿左法向偏移offset，朝向为车道切向叠加RPY中的yaw偏差
func (m *Map) ToMapPose(pose entity.LaneletPose) (linalg.Pose, error) {
	l, err := m.get(pose.LaneletID)
	if err != nil {
		return linalg.Pose{}, err
	}
	p := l.offsetPositionByS(pose.S, pose.Offset)
	yaw := l.directionByS(pose.S) + pose.RPY.Z
	return linalg.Pose{
		Position:    p,
		Orientation: linalg.FromRPY(pose.RPY.X, pose.RPY.Y, yaw),
	}, nil
}

// ToLaneletPose 自由位姿匹配车道
// 算法说明：
// 1. 遍历所有候选车道（按ID升序），将位置投影到中心线
// 2. 投影距离超过 width/2+matchMargin 的车道被排除；非人行车道还要求朝向夹角不超过90°
// 3. 取投影距离最小者，距离相同取ID较小者
func (m *Map) ToLaneletPose(pose linalg.Pose, includeCrosswalk bool) (entity.LaneletPose, bool) {
	var (
		best     *lane
		bestS    float64
		bestOff  float64
		bestDist = math.Inf(1)
		yaw      = pose.Yaw()
	)
	for _, id := range m.ids {
		l := m.lanes[id]
		switch l.typ {
		case mapv2.LaneType_LANE_TYPE_WALKING:
			if !includeCrosswalk {
				continue
			}
		case mapv2.LaneType_LANE_TYPE_DRIVING:
		default:
			continue
		}
		s, offset, dist := l.project(pose.Position)
		if dist > l.width/2+matchMargin {
			continue
		}
		if l.typ != mapv2.LaneType_LANE_TYPE_WALKING &&
			math.Abs(normalizeAngle(yaw-l.directionByS(s))) > maxHeadingDiff {
			continue
		}
		if dist < bestDist {
			best, bestS, bestOff, bestDist = l, s, offset, dist
		}
	}
	if best == nil {
		return entity.LaneletPose{}, false
	}
	rpy := pose.Orientation.RPY()
	return entity.LaneletPose{
		LaneletID: best.id,
		S:         bestS,
		Offset:    bestOff,
		RPY:       linalg.Vector3{X: rpy.X, Y: rpy.Y, Z: normalizeAngle(yaw - best.directionByS(bestS))},
	}, true
}

// Canonicalize 将超出车道范围的s换算到后继（或前驱）车道
// 说明：存在多个后继/前驱时选择ID最小者
func (m *Map) Canonicalize(pose entity.LaneletPose) (entity.LaneletPose, error) {
	l, err := m.get(pose.LaneletID)
	if err != nil {
		return pose, err
	}
	for pose.S > l.length {
		if len(l.successors) == 0 {
			return pose, simerror.Semantic(fmt.Sprint(l.id), "s %.3f exceeds lanelet %d without successor", pose.S, l.id)
		}
		pose.S -= l.length
		l = m.lanes[l.successors[0]]
		pose.LaneletID = l.id
	}
	for pose.S < 0 {
		if len(l.predecessors) == 0 {
			return pose, simerror.Semantic(fmt.Sprint(l.id), "negative s %.3f on lanelet %d without predecessor", pose.S, l.id)
		}
		l = m.lanes[l.predecessors[0]]
		pose.S += l.length
		pose.LaneletID = l.id
	}
	return pose, nil
}

// GetLongitudinalDistance 纵向距离
// 算法说明：
// 1. 同一车道且目标在前方：直接作差
// 2. 相邻车道（左右）：按比例投影后作差，目标须在前方
// 3. 否则沿后继车道搜索最短路，距离 = 本车道剩余长度 + 中间车道长度 + 目标s
func (m *Map) GetLongitudinalDistance(from, to entity.LaneletPose) (float64, bool) {
	fl, ok1 := m.lanes[from.LaneletID]
	tl, ok2 := m.lanes[to.LaneletID]
	if !ok1 || !ok2 {
		return math.NaN(), false
	}
	if fl == tl && to.S >= from.S {
		return to.S - from.S, true
	}
	if fl != tl && (lo.Contains(fl.sideLanes[entity.LEFT], tl.id) || lo.Contains(fl.sideLanes[entity.RIGHT], tl.id)) {
		if d := to.S - tl.projectFromLane(fl, from.S); d >= 0 {
			return d, true
		}
	}
	_, cost, ok := m.shortestPath(fl.successors, tl.id)
	if !ok {
		return math.NaN(), false
	}
	return fl.length - from.S + cost + to.S, true
}

// GetLateralDistance 横向距离
// 算法说明：同一车道为offset之差；否则将目标换算到自由坐标后投影到起点车道
func (m *Map) GetLateralDistance(from, to entity.LaneletPose) (float64, bool) {
	fl, ok := m.lanes[from.LaneletID]
	if !ok {
		return math.NaN(), false
	}
	if from.LaneletID == to.LaneletID {
		return to.Offset - from.Offset, true
	}
	target, err := m.ToMapPose(to)
	if err != nil {
		return math.NaN(), false
	}
	s, offset, _ := fl.project(target.Position)
	if s <= 0 || s >= fl.length {
		// 投影落在车道端点之外，横向距离无意义
		return math.NaN(), false
	}
	return offset - from.Offset, true
}

// GenerateMarker 按车道ID顺序输出中心线与信号灯位置
func (m *Map) GenerateMarker() []entity.Marker {
	markers := lo.Map(m.ids, func(id int64, _ int) entity.Marker {
		l := m.lanes[id]
		return entity.Marker{ID: id, NS: "lanelet", Points: l.line}
	})
	for _, id := range m.ids {
		if light, ok := m.laneLight[id]; ok {
			l := m.lanes[id]
			markers = append(markers, entity.Marker{
				ID: light, NS: "traffic_light", Points: l.line[:1],
			})
		}
	}
	return markers
}

// 将角度规范到[-π, π)
func normalizeAngle(a float64) float64 {
	a = math.Mod(a+math.Pi, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a - math.Pi
}
