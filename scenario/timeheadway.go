package scenario

import (
	"fmt"
	"math"

	"git.fiblab.net/general/common/v2/mathutil"
)

// TimeHeadwayCondition 触发实体到参考实体的车头时距条件
// 说明：每个触发实体对应一组对象（目前即实体自身），该组内的时距全部满足规则才算满足
type TimeHeadwayCondition struct {
	env *Env

	EntityRef          string
	Value              float64
	Freespace          bool
	AlongRoute         bool
	Rule               Rule
	TriggeringEntities TriggeringEntities

	results [][]float64
}

func NewTimeHeadwayCondition(
	env *Env, entityRef string, value float64, freespace, alongRoute bool, rule Rule, triggering TriggeringEntities,
) *TimeHeadwayCondition {
	return &TimeHeadwayCondition{
		env:                env,
		EntityRef:          entityRef,
		Value:              value,
		Freespace:          freespace,
		AlongRoute:         alongRoute,
		Rule:               rule,
		TriggeringEntities: triggering,
		results:            make([][]float64, 0, len(triggering.Refs)),
	}
}

// objects 触发实体所代表的对象
func (c *TimeHeadwayCondition) objects(name string) []string {
	return []string{name}
}

// Headway 车头时距 = 到参考实体的距离 / 自身速度
// 算法说明：
// 1. AlongRoute时距离为沿车道的纵向距离，否则为参考实体在自身坐标系下的纵向坐标
// 2. Freespace时减去自身车头到原点、参考实体车尾到原点的距离
// 3. 速度非正、距离为负或无法计算时为NaN
func (c *TimeHeadwayCondition) Headway(from string) (float64, error) {
	if !c.env.spawned(from) || !c.env.spawned(c.EntityRef) {
		return math.NaN(), nil
	}
	self, err := c.env.Entities.GetEntityStatus(from)
	if err != nil {
		return math.NaN(), err
	}
	v := self.Twist.Linear.X
	if v <= 0 {
		return math.NaN(), nil
	}
	var distance float64
	if c.AlongRoute {
		d, ok, err := c.env.Entities.GetLongitudinalDistance(from, c.EntityRef, mathutil.INF)
		if err != nil || !ok {
			return math.NaN(), err
		}
		distance = d
	} else {
		p, err := c.env.Entities.RelativePoseBetween(from, c.EntityRef)
		if err != nil {
			return math.NaN(), err
		}
		distance = p.Position.X
	}
	if c.Freespace {
		other, err := c.env.Entities.GetEntityStatus(c.EntityRef)
		if err != nil {
			return math.NaN(), err
		}
		front := self.BoundingBox.Dimensions.X/2 + self.BoundingBox.Center.X
		rear := other.BoundingBox.Dimensions.X/2 - other.BoundingBox.Center.X
		distance -= front + rear
	}
	if distance < 0 {
		return math.NaN(), nil
	}
	return distance / v, nil
}

func (c *TimeHeadwayCondition) Evaluate() (bool, error) {
	c.results = c.results[:0]
	return c.TriggeringEntities.Apply(func(name string) (bool, error) {
		objects := c.objects(name)
		headways := make([]float64, len(objects))
		for i, o := range objects {
			h, err := c.Headway(o)
			if err != nil {
				return false, err
			}
			headways[i] = h
		}
		c.results = append(c.results, headways)
		for _, h := range headways {
			if !c.Rule.Apply(h, c.Value) {
				return false, nil
			}
		}
		return true, nil
	})
}

func (c *TimeHeadwayCondition) Description() string {
	return fmt.Sprintf("%s's headway time between each and the referenced entity %s = %s %v %s?",
		c.TriggeringEntities.Description(), c.EntityRef, formatNestedResults(c.results), c.Rule, formatValue(c.Value))
}

func (c *TimeHeadwayCondition) Results() [][]float64 {
	return c.results
}
