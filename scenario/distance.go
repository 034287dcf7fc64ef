package scenario

import (
	"fmt"
	"math"

	"git.fiblab.net/general/common/v2/mathutil"
	"github.com/tsinghua-fib-lab/scenario-sim/utils/simerror"
)

// CoordinateSystem 距离的参考坐标系
type CoordinateSystem int

const (
	CoordinateEntity CoordinateSystem = iota
	CoordinateLane
	CoordinateRoad
	CoordinateTrajectory
)

var coordinateSystemNames = []string{"entity", "lane", "road", "trajectory"}

func (c CoordinateSystem) String() string {
	if int(c) < 0 || int(c) >= len(coordinateSystemNames) {
		simerror.Fault("unexpected coordinate system %d", int(c))
	}
	return coordinateSystemNames[c]
}

// ParseCoordinateSystem 解析坐标系，空字符串视为entity
func ParseCoordinateSystem(name string) (CoordinateSystem, error) {
	if name == "" {
		return CoordinateEntity, nil
	}
	for i, n := range coordinateSystemNames {
		if n == name {
			return CoordinateSystem(i), nil
		}
	}
	return 0, simerror.Semantic(name, "unexpected value %q specified as type CoordinateSystem", name)
}

// RelativeDistanceType 距离的度量方式
type RelativeDistanceType int

const (
	Longitudinal RelativeDistanceType = iota
	Lateral
	EuclideanDistance
)

func (r RelativeDistanceType) String() string {
	switch r {
	case Longitudinal:
		return "longitudinal"
	case Lateral:
		return "lateral"
	case EuclideanDistance:
		return "euclidianDistance"
	default:
		simerror.Fault("unexpected relative distance type %d", int(r))
		return ""
	}
}

// ParseRelativeDistanceType 解析度量方式，空字符串视为欧氏距离
func ParseRelativeDistanceType(name string) (RelativeDistanceType, error) {
	switch name {
	case "longitudinal":
		return Longitudinal, nil
	case "lateral":
		return Lateral, nil
	case "", "euclidianDistance", "euclideanDistance":
		return EuclideanDistance, nil
	default:
		return 0, simerror.Semantic(name, "unexpected value %q specified as type RelativeDistanceType", name)
	}
}

type distanceKey struct {
	cs        CoordinateSystem
	rdt       RelativeDistanceType
	freespace bool
}

type distanceFunc func(c *DistanceCondition, name string) (float64, error)

// 已实现的(坐标系, 度量方式, 是否自由空间)组合
var distanceTable = map[distanceKey]distanceFunc{
	{CoordinateEntity, EuclideanDistance, false}: entityEuclidean,
	{CoordinateEntity, EuclideanDistance, true}:  entityEuclideanFreespace,
	{CoordinateEntity, Longitudinal, false}:      entityLongitudinal,
	{CoordinateEntity, Longitudinal, true}:       entityLongitudinal,
	{CoordinateEntity, Lateral, false}:           entityLateral,
	{CoordinateEntity, Lateral, true}:            entityLateral,
	{CoordinateLane, Longitudinal, false}:        laneLongitudinal,
	{CoordinateLane, Lateral, false}:             laneLateral,
}

// DistanceCondition 触发实体到目标位置的距离条件
type DistanceCondition struct {
	env *Env

	Position             Position
	Value                float64
	Freespace            bool
	CoordinateSystem     CoordinateSystem
	RelativeDistanceType RelativeDistanceType
	Rule                 Rule
	TriggeringEntities   TriggeringEntities

	results []float64
}

func NewDistanceCondition(
	env *Env, position Position, value float64, freespace bool,
	cs CoordinateSystem, rdt RelativeDistanceType, rule Rule, triggering TriggeringEntities,
) *DistanceCondition {
	return &DistanceCondition{
		env:                  env,
		Position:             position,
		Value:                value,
		Freespace:            freespace,
		CoordinateSystem:     cs,
		RelativeDistanceType: rdt,
		Rule:                 rule,
		TriggeringEntities:   triggering,
		results:              make([]float64, 0, len(triggering.Refs)),
	}
}

// Distance 单个触发实体到目标位置的距离
// 说明：未实现的组合是实现缺陷，直接panic；实体未生成或几何查询无解时为NaN
func (c *DistanceCondition) Distance(name string) (float64, error) {
	f, ok := distanceTable[distanceKey{c.CoordinateSystem, c.RelativeDistanceType, c.Freespace}]
	if !ok {
		simerror.Fault("distance condition (coordinateSystem=%v, relativeDistanceType=%v, freespace=%v) is not implemented",
			c.CoordinateSystem, c.RelativeDistanceType, c.Freespace)
	}
	if !c.env.spawned(name) {
		return math.NaN(), nil
	}
	return f(c, name)
}

func (c *DistanceCondition) Evaluate() (bool, error) {
	c.results = c.results[:0]
	return c.TriggeringEntities.Apply(func(name string) (bool, error) {
		d, err := c.Distance(name)
		if err != nil {
			return false, err
		}
		c.results = append(c.results, d)
		return c.Rule.Apply(d, c.Value), nil
	})
}

func (c *DistanceCondition) Description() string {
	return fmt.Sprintf("%s's distance to given position = %s %v %s?",
		c.TriggeringEntities.Description(), formatResults(c.results), c.Rule, formatValue(c.Value))
}

// Results 最近一次求值的结果
func (c *DistanceCondition) Results() []float64 {
	return c.results
}

// relative 目标位置在实体坐标系下的坐标
func (c *DistanceCondition) relative(name string) (x, y float64, ok bool, err error) {
	target, ok, err := c.env.ResolvePose(c.Position)
	if err != nil || !ok {
		return 0, 0, false, err
	}
	p, err := c.env.Entities.RelativePoseFromEntity(name, target)
	if err != nil {
		return 0, 0, false, err
	}
	return p.Position.X, p.Position.Y, true, nil
}

func entityEuclidean(c *DistanceCondition, name string) (float64, error) {
	x, y, ok, err := c.relative(name)
	if err != nil || !ok {
		return math.NaN(), err
	}
	return math.Hypot(x, y), nil
}

func entityEuclideanFreespace(c *DistanceCondition, name string) (float64, error) {
	target, ok, err := c.env.ResolvePose(c.Position)
	if err != nil || !ok {
		return math.NaN(), err
	}
	return c.env.Entities.GetDistanceToBoundingBox(name, target.Position)
}

func entityLongitudinal(c *DistanceCondition, name string) (float64, error) {
	x, _, ok, err := c.relative(name)
	if err != nil || !ok {
		return math.NaN(), err
	}
	if !c.Freespace {
		return math.Abs(x), nil
	}
	s, err := c.env.Entities.GetEntityStatus(name)
	if err != nil {
		return math.NaN(), err
	}
	bb := s.BoundingBox
	// 目标在前方时减去车头到原点的距离，在后方时减去车尾到原点的距离
	extent := bb.Dimensions.X/2 + bb.Center.X
	if x < 0 {
		extent = bb.Dimensions.X/2 - bb.Center.X
	}
	return math.Max(0, math.Abs(x)-extent), nil
}

func entityLateral(c *DistanceCondition, name string) (float64, error) {
	_, y, ok, err := c.relative(name)
	if err != nil || !ok {
		return math.NaN(), err
	}
	if !c.Freespace {
		return math.Abs(y), nil
	}
	s, err := c.env.Entities.GetEntityStatus(name)
	if err != nil {
		return math.NaN(), err
	}
	bb := s.BoundingBox
	extent := bb.Dimensions.Y/2 + bb.Center.Y
	if y < 0 {
		extent = bb.Dimensions.Y/2 - bb.Center.Y
	}
	return math.Max(0, math.Abs(y)-extent), nil
}

func laneLongitudinal(c *DistanceCondition, name string) (float64, error) {
	lp, ok, err := c.env.ResolveLaneletPose(c.Position)
	if err != nil || !ok {
		return math.NaN(), err
	}
	d, ok, err := c.env.Entities.GetLongitudinalDistanceToPose(name, lp, mathutil.INF)
	if err != nil || !ok {
		return math.NaN(), err
	}
	return d, nil
}

func laneLateral(c *DistanceCondition, name string) (float64, error) {
	lp, ok, err := c.env.ResolveLaneletPose(c.Position)
	if err != nil || !ok {
		return math.NaN(), err
	}
	d, ok, err := c.env.Entities.GetLateralDistanceToPose(name, lp)
	if err != nil || !ok {
		return math.NaN(), err
	}
	return math.Abs(d), nil
}
