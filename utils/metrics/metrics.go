package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector 仿真运行指标
// 功能：记录每步耗时、实体数量、条件求值结果与碰撞次数，并通过/metrics暴露
// 说明：所有方法对nil接收者安全，未开启指标时直接传nil
type Collector struct {
	gatherer prometheus.Gatherer

	Steps             prometheus.Counter
	StepDuration      prometheus.Histogram
	Entities          prometheus.Gauge
	ConditionOutcomes *prometheus.CounterVec
	Collisions        *prometheus.CounterVec
}

// NewCollector 在reg上注册指标，reg为nil时使用全局注册表
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	steps, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scenario_sim_steps_total",
		Help: "Number of simulation steps executed.",
	}), "scenario_sim_steps_total")
	if err != nil {
		return nil, err
	}
	duration, err := register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "scenario_sim_step_duration_seconds",
		Help:    "Wall-clock time spent in one simulation step.",
		Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}), "scenario_sim_step_duration_seconds")
	if err != nil {
		return nil, err
	}
	entities, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "scenario_sim_entities",
		Help: "Current number of spawned entities.",
	}), "scenario_sim_entities")
	if err != nil {
		return nil, err
	}
	outcomes, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scenario_sim_condition_evaluations_total",
		Help: "Condition evaluations, labeled by condition name and outcome.",
	}, []string{"condition", "outcome"}), "scenario_sim_condition_evaluations_total")
	if err != nil {
		return nil, err
	}
	collisions, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scenario_sim_collisions_total",
		Help: "Collisions detected by collision metrics, labeled by metric name.",
	}, []string{"metric"}), "scenario_sim_collisions_total")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:          gatherer,
		Steps:             steps,
		StepDuration:      duration,
		Entities:          entities,
		ConditionOutcomes: outcomes,
		Collisions:        collisions,
	}, nil
}

// ObserveStep 记录一步的耗时与实体数量
func (c *Collector) ObserveStep(elapsed time.Duration, entities int) {
	if c == nil {
		return
	}
	c.Steps.Inc()
	c.StepDuration.Observe(elapsed.Seconds())
	c.Entities.Set(float64(entities))
}

// ObserveCondition 记录一次条件求值
func (c *Collector) ObserveCondition(name string, satisfied bool) {
	if c == nil {
		return
	}
	outcome := "unsatisfied"
	if satisfied {
		outcome = "satisfied"
	}
	c.ConditionOutcomes.WithLabelValues(name, outcome).Inc()
}

// ObserveCollision 记录一次碰撞
func (c *Collector) ObserveCollision(metric string) {
	if c == nil {
		return
	}
	c.Collisions.WithLabelValues(metric).Inc()
}

// Handler /metrics处理器
func (c *Collector) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if c != nil && c.gatherer != nil {
		gatherer = c.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// register 注册指标，已注册同名同类型指标时复用已有的
func register[T prometheus.Collector](reg prometheus.Registerer, c T, name string) (T, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
			var zero T
			return zero, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		var zero T
		return zero, err
	}
	return c, nil
}
