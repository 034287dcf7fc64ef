package scenario

import (
	"fmt"

	"github.com/tsinghua-fib-lab/scenario-sim/utils/config"
	"github.com/tsinghua-fib-lab/scenario-sim/utils/metrics"
)

// Outcome 场景运行结果
type Outcome int

const (
	Running Outcome = iota
	Succeeded
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Running:
		return "running"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// EndCondition 场景结束条件
type EndCondition struct {
	Name      string
	Condition Condition
	Success   bool // true：与其他成功条件全部满足时场景成功；false：满足即场景失败
}

// Runner 场景求值器
// 功能：每个tick在实体更新之后运行，更新指标、求值结束条件并跟踪动作的完成情况
type Runner struct {
	env       *Env
	collector *metrics.Collector

	conditions []EndCondition
	metrics    []*CollisionMetric
	actions    []*SpeedAction
	done       []bool
}

// NewRunner 由场景配置创建求值器
func NewRunner(env *Env, collector *metrics.Collector, c config.Scenario) (*Runner, error) {
	r := &Runner{env: env, collector: collector}
	for i, cc := range c.Conditions {
		cond, err := NewCondition(env, cc)
		if err != nil {
			return nil, err
		}
		name := cc.Name
		if name == "" {
			name = fmt.Sprintf("condition%d", i)
		}
		r.conditions = append(r.conditions, EndCondition{Name: name, Condition: cond, Success: cc.Success})
	}
	for _, mc := range c.Metrics {
		r.metrics = append(r.metrics, NewCollisionMetric(env, collector, mc.Name, mc.Ego, mc.Targets))
	}
	return r, nil
}

// AddCondition 增加结束条件
func (r *Runner) AddCondition(c EndCondition) {
	r.conditions = append(r.conditions, c)
}

// AddMetric 增加碰撞指标
func (r *Runner) AddMetric(m *CollisionMetric) {
	r.metrics = append(r.metrics, m)
}

// StartAction 立即执行动作并跟踪其完成情况
func (r *Runner) StartAction(a *SpeedAction) error {
	if err := a.Start(); err != nil {
		return err
	}
	r.actions = append(r.actions, a)
	r.done = append(r.done, false)
	return nil
}

// Metrics 所有碰撞指标
func (r *Runner) Metrics() []*CollisionMetric {
	return r.metrics
}

// Step 求值一次
// 算法说明：
// 1. 更新碰撞指标，任一指标失败则场景失败
// 2. 求值所有结束条件（不短路），失败条件满足则场景失败，成功条件全部满足则场景成功
// 3. 记录动作的完成
func (r *Runner) Step() (Outcome, error) {
	outcome := Running
	for _, m := range r.metrics {
		if _, err := m.Update(); err != nil {
			return Failed, err
		}
		if m.Failed() {
			outcome = Failed
		}
	}
	successes, satisfied := 0, 0
	for _, c := range r.conditions {
		ok, err := c.Condition.Evaluate()
		if err != nil {
			return Failed, fmt.Errorf("evaluate condition %s: %w", c.Name, err)
		}
		r.collector.ObserveCondition(c.Name, ok)
		if c.Success {
			successes++
			if ok {
				satisfied++
			}
		} else if ok {
			log.Warnf("failure condition %s satisfied: %s", c.Name, c.Condition.Description())
			outcome = Failed
		}
		log.Tracef("%s: %s", c.Name, c.Condition.Description())
	}
	for i, a := range r.actions {
		if !r.done[i] && a.Accomplished() {
			r.done[i] = true
			log.Debugf("speed action of %v to %.2f accomplished", a.Actors, a.Target)
		}
	}
	if outcome == Running && successes > 0 && satisfied == successes {
		for _, c := range r.conditions {
			if c.Success {
				log.Infof("condition %s satisfied: %s", c.Name, c.Condition.Description())
			}
		}
		outcome = Succeeded
	}
	return outcome, nil
}
