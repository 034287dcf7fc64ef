package scenario

import (
	"fmt"
	"math"
)

// SpeedCondition 触发实体的速度条件
type SpeedCondition struct {
	env *Env

	Value              float64
	Rule               Rule
	TriggeringEntities TriggeringEntities

	results []float64
}

func NewSpeedCondition(env *Env, value float64, rule Rule, triggering TriggeringEntities) *SpeedCondition {
	return &SpeedCondition{env: env, Value: value, Rule: rule, TriggeringEntities: triggering}
}

func (c *SpeedCondition) speed(name string) (float64, error) {
	if !c.env.spawned(name) {
		return math.NaN(), nil
	}
	s, err := c.env.Entities.GetEntityStatus(name)
	if err != nil {
		return math.NaN(), err
	}
	return s.Twist.Linear.X, nil
}

func (c *SpeedCondition) Evaluate() (bool, error) {
	c.results = c.results[:0]
	return c.TriggeringEntities.Apply(func(name string) (bool, error) {
		v, err := c.speed(name)
		if err != nil {
			return false, err
		}
		c.results = append(c.results, v)
		return c.Rule.Apply(v, c.Value), nil
	})
}

func (c *SpeedCondition) Description() string {
	return fmt.Sprintf("%s's speed = %s %v %s?",
		c.TriggeringEntities.Description(), formatResults(c.results), c.Rule, formatValue(c.Value))
}

// StandStillCondition 触发实体的连续静止时长条件
type StandStillCondition struct {
	env *Env

	Duration           float64
	Rule               Rule
	TriggeringEntities TriggeringEntities

	results []float64
}

func NewStandStillCondition(env *Env, duration float64, rule Rule, triggering TriggeringEntities) *StandStillCondition {
	return &StandStillCondition{env: env, Duration: duration, Rule: rule, TriggeringEntities: triggering}
}

func (c *StandStillCondition) standStill(name string) (float64, error) {
	if !c.env.spawned(name) {
		return math.NaN(), nil
	}
	return c.env.Entities.GetStandStillDuration(name)
}

func (c *StandStillCondition) Evaluate() (bool, error) {
	c.results = c.results[:0]
	return c.TriggeringEntities.Apply(func(name string) (bool, error) {
		d, err := c.standStill(name)
		if err != nil {
			return false, err
		}
		c.results = append(c.results, d)
		return c.Rule.Apply(d, c.Duration), nil
	})
}

func (c *StandStillCondition) Description() string {
	return fmt.Sprintf("%s's standstill time = %s %v %s?",
		c.TriggeringEntities.Description(), formatResults(c.results), c.Rule, formatValue(c.Duration))
}
