package scenario

import (
	"fmt"
	"math"
)

// ReachPositionCondition 触发实体是否到达目标位置的tolerance范围内
// 说明：每次都会记录距离，即使条件不满足
type ReachPositionCondition struct {
	env *Env

	Position           Position
	Tolerance          float64
	TriggeringEntities TriggeringEntities

	results []float64
}

func NewReachPositionCondition(env *Env, position Position, tolerance float64, triggering TriggeringEntities) *ReachPositionCondition {
	return &ReachPositionCondition{
		env:                env,
		Position:           position,
		Tolerance:          tolerance,
		TriggeringEntities: triggering,
		results:            make([]float64, 0, len(triggering.Refs)),
	}
}

// Distance 实体坐标系下到目标位置的平面距离
func (c *ReachPositionCondition) Distance(name string) (float64, error) {
	if !c.env.spawned(name) {
		return math.NaN(), nil
	}
	target, ok, err := c.env.ResolvePose(c.Position)
	if err != nil || !ok {
		return math.NaN(), err
	}
	p, err := c.env.Entities.RelativePoseFromEntity(name, target)
	if err != nil {
		return math.NaN(), err
	}
	return math.Hypot(p.Position.X, p.Position.Y), nil
}

func (c *ReachPositionCondition) Evaluate() (bool, error) {
	c.results = c.results[:0]
	return c.TriggeringEntities.Apply(func(name string) (bool, error) {
		d, err := c.Distance(name)
		if err != nil {
			return false, err
		}
		c.results = append(c.results, d)
		return LessOrEqual.Apply(d, c.Tolerance), nil
	})
}

func (c *ReachPositionCondition) Description() string {
	return fmt.Sprintf("%s's distance to given position = %s %v %s?",
		c.TriggeringEntities.Description(), formatResults(c.results), LessOrEqual, formatValue(c.Tolerance))
}

func (c *ReachPositionCondition) Results() []float64 {
	return c.results
}
