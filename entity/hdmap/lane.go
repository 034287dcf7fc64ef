package hdmap

import (
	"fmt"
	"math"
	"sort"

	"git.fiblab.net/general/common/v2/geometry"
	geov2 "git.fiblab.net/sim/protos/v2/go/city/geo/v2"
	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
	"github.com/samber/lo"
)

// lane 车道（lanelet）
// 功能：保存车道的拓扑与中心线几何，提供s坐标与xy坐标的换算
type lane struct {
	id    int64
	typ   mapv2.LaneType // 车道类型
	maxV  float64        // 限速
	width float64        // 车道宽度

	predecessors []int64 // 前驱车道（按ID升序）
	successors   []int64 // 后继车道（按ID升序）
	sideLanes    [2][]int64

	line           []geometry.Point             // 中心线折线
	lineLengths    []float64                    // 中心线折线点对应的累计长度
	lineDirections []geometry.PolylineDirection // 中心线折线段每一段的方向（atan2）
	length         float64                      // 以中心线的长度为车道长度
}

// newLane 根据地图数据创建车道
// 功能：转换中心线并计算累计长度与分段方向
// 返回：中心线少于两个点时返回错误
func newLane(base *mapv2.Lane) (*lane, error) {
	if base.CenterLine == nil || len(base.CenterLine.Nodes) < 2 {
		return nil, fmt.Errorf("lane %d has a degenerate center line", base.Id)
	}
	l := &lane{
		id:    int64(base.Id),
		typ:   base.Type,
		maxV:  base.MaxSpeed,
		width: base.Width,
		predecessors: lo.Uniq(lo.Map(base.Predecessors, func(c *mapv2.LaneConnection, _ int) int64 {
			return int64(c.Id)
		})),
		successors: lo.Uniq(lo.Map(base.Successors, func(c *mapv2.LaneConnection, _ int) int64 {
			return int64(c.Id)
		})),
		sideLanes: [2][]int64{
			lo.Map(base.LeftLaneIds, func(id int32, _ int) int64 { return int64(id) }),
			lo.Map(base.RightLaneIds, func(id int32, _ int) int64 { return int64(id) }),
		},
	}
	sort.Slice(l.predecessors, func(i, j int) bool { return l.predecessors[i] < l.predecessors[j] })
	sort.Slice(l.successors, func(i, j int) bool { return l.successors[i] < l.successors[j] })
	l.line = lo.Map(base.CenterLine.Nodes, func(node *geov2.XYPosition, _ int) geometry.Point {
		return geometry.NewPointFromPb(node)
	})
	l.lineLengths = geometry.GetPolylineLengths2D(l.line)
	l.length = l.lineLengths[len(l.lineLengths)-1]
	l.lineDirections = geometry.GetPolylineDirections(l.line)
	if l.length <= 0 {
		return nil, fmt.Errorf("lane %d has zero length", base.Id)
	}
	return l, nil
}

// 根据本车道s坐标计算切向角度
func (l *lane) directionByS(s float64) float64 {
	s = lo.Clamp(s, l.lineLengths[0], l.length)
	if i := sort.SearchFloat64s(l.lineLengths, s); i == 0 {
		return l.lineDirections[0].Direction
	} else {
		return l.lineDirections[i-1].Direction
	}
}

// 将当前车道s坐标转换为xy(z)坐标
func (l *lane) positionByS(s float64) geometry.Point {
	if s < l.lineLengths[0] || s > l.length {
		log.Debugf("get position with s %v out of range{%v,%v} on lane %d", s, l.lineLengths[0], l.length, l.id)
		s = lo.Clamp(s, l.lineLengths[0], l.length)
	}
	i := sort.SearchFloat64s(l.lineLengths, s)
	if i == 0 {
		return l.line[0]
	}
	sHigh, sLow := l.lineLengths[i], l.lineLengths[i-1]
	k := (s - sLow) / (sHigh - sLow)
	if k < 0 || k > 1 {
		log.Panicf("lane %d: positionByS(), bad k %v. sHigh=%f, sLow=%f, s=%f", l.id, k, sHigh, sLow, s)
	}
	return geometry.Blend(l.line[i-1], l.line[i], k)
}

// 沿左法向偏移offset后的坐标（offset向左为正）
func (l *lane) offsetPositionByS(s, offset float64) geometry.Point {
	p := l.positionByS(s)
	direction := l.directionByS(s)
	return geometry.Point{
		X: p.X + math.Cos(direction+math.Pi/2)*offset,
		Y: p.Y + math.Sin(direction+math.Pi/2)*offset,
		Z: p.Z,
	}
}

// 将xy坐标投影到车道中心线上
// 返回：s坐标、横向偏移（向左为正）、点到投影点的平面距离
func (l *lane) project(p geometry.Point) (s, offset, distance float64) {
	s = lo.Clamp(geometry.GetClosestPolylineSToPoint2D(l.line, l.lineLengths, p), 0, l.length)
	foot := l.positionByS(s)
	direction := l.directionByS(s)
	dx, dy := p.X-foot.X, p.Y-foot.Y
	offset = math.Cos(direction)*dy - math.Sin(direction)*dx
	distance = math.Hypot(dx, dy)
	return
}

// 将同一道路内其他车道的s按比例"投影"到本车道
func (l *lane) projectFromLane(other *lane, otherS float64) float64 {
	return lo.Clamp(otherS/other.length*l.length, 0, l.length)
}
