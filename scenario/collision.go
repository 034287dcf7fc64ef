package scenario

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/scenario-sim/utils/metrics"
	"github.com/tsinghua-fib-lab/scenario-sim/utils/simerror"
)

// collidesWithAny 实体是否与任一目标碰撞；目标为空时与所有其他实体比较
// 说明：尚未生成的实体不参与碰撞
func (env *Env) collidesWithAny(name string, targets []string) (bool, error) {
	if !env.spawned(name) {
		return false, nil
	}
	if len(targets) == 0 {
		targets = env.Entities.GetEntityNames()
	}
	for _, target := range targets {
		if target == name || !env.spawned(target) {
			continue
		}
		hit, err := env.Entities.CheckCollision(name, target)
		if err != nil {
			return false, err
		}
		if hit {
			return true, nil
		}
	}
	return false, nil
}

// CollisionCondition 触发实体是否与目标实体碰撞
type CollisionCondition struct {
	env *Env

	Targets            []string
	TriggeringEntities TriggeringEntities

	results []bool
}

func NewCollisionCondition(env *Env, targets []string, triggering TriggeringEntities) *CollisionCondition {
	return &CollisionCondition{env: env, Targets: targets, TriggeringEntities: triggering}
}

func (c *CollisionCondition) Evaluate() (bool, error) {
	c.results = c.results[:0]
	return c.TriggeringEntities.Apply(func(name string) (bool, error) {
		hit, err := c.env.collidesWithAny(name, c.Targets)
		if err != nil {
			return false, err
		}
		c.results = append(c.results, hit)
		return hit, nil
	})
}

func (c *CollisionCondition) Description() string {
	targets := "any entity"
	if len(c.Targets) > 0 {
		targets = "[" + strings.Join(c.Targets, ", ") + "]"
	}
	return fmt.Sprintf("%s collide with %s = %v?", c.TriggeringEntities.Description(), targets, c.results)
}

// MetricLifecycle 指标的生命周期
type MetricLifecycle int

const (
	MetricInactive MetricLifecycle = iota // 被监视的实体尚未生成
	MetricActive
	MetricFailure
)

func (l MetricLifecycle) String() string {
	switch l {
	case MetricInactive:
		return "inactive"
	case MetricActive:
		return "active"
	case MetricFailure:
		return "failure"
	default:
		simerror.Fault("unexpected metric lifecycle %d", int(l))
		return ""
	}
}

// CollisionMetric 碰撞指标
// 功能：被监视实体生成后激活；检测到与任一目标碰撞时进入失败状态并计数，此后不再更新
type CollisionMetric struct {
	env       *Env
	collector *metrics.Collector

	Name    string
	Ego     string
	Targets []string

	lifecycle MetricLifecycle
	collided  []string
}

func NewCollisionMetric(env *Env, collector *metrics.Collector, name, ego string, targets []string) *CollisionMetric {
	return &CollisionMetric{
		env:       env,
		collector: collector,
		Name:      name,
		Ego:       ego,
		Targets:   targets,
	}
}

func (m *CollisionMetric) Lifecycle() MetricLifecycle {
	return m.lifecycle
}

func (m *CollisionMetric) Failed() bool {
	return m.lifecycle == MetricFailure
}

// Update 更新指标
// 返回：本次是否刚检测到碰撞
func (m *CollisionMetric) Update() (bool, error) {
	switch m.lifecycle {
	case MetricInactive:
		if !m.env.spawned(m.Ego) {
			return false, nil
		}
		m.lifecycle = MetricActive
		log.Debugf("metric %s activated", m.Name)
		fallthrough
	case MetricActive:
		targets := m.Targets
		if len(targets) == 0 {
			targets = m.env.Entities.GetEntityNames()
		}
		for _, target := range targets {
			if target == m.Ego || !m.env.spawned(target) {
				continue
			}
			hit, err := m.env.Entities.CheckCollision(m.Ego, target)
			if err != nil {
				return false, err
			}
			if hit {
				m.collided = append(m.collided, target)
			}
		}
		if len(m.collided) == 0 {
			return false, nil
		}
		m.lifecycle = MetricFailure
		m.collector.ObserveCollision(m.Name)
		log.Warnf("metric %s: %s collided with %v", m.Name, m.Ego, m.collided)
		return true, nil
	default:
		return false, nil
	}
}

// Description 指标状态描述
func (m *CollisionMetric) Description() string {
	if m.lifecycle != MetricFailure {
		return fmt.Sprintf("%s: %s (%s)", m.Name, m.lifecycle, m.Ego)
	}
	return fmt.Sprintf("%s: %s (%s collided with %s)", m.Name, m.lifecycle, m.Ego, strings.Join(lo.Uniq(m.collided), ", "))
}
