package trafficlight

import (
	"fmt"

	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
	"github.com/samber/lo"
)

// Phase 相位：持续时间与该相位的状态
type Phase[T any] struct {
	Duration float64
	State    T
}

// cycle 循环相位运行时
type cycle[T any] struct {
	phases    []Phase[T]
	step      int
	remaining float64
}

func newCycle[T any](phases []Phase[T]) (*cycle[T], error) {
	if len(phases) == 0 {
		return nil, fmt.Errorf("set with empty phases")
	}
	if lo.SomeBy(phases, func(p Phase[T]) bool { return p.Duration < 0 }) {
		return nil, fmt.Errorf("negative phase duration")
	}
	if lo.SumBy(phases, func(p Phase[T]) float64 { return p.Duration }) <= 0 {
		return nil, fmt.Errorf("total phase duration must be positive")
	}
	return &cycle[T]{phases: phases, remaining: phases[0].Duration}, nil
}

func (c *cycle[T]) current() T {
	return c.phases[c.step].State
}

// advance 推进dt时间
// 算法说明：剩余时间耗尽后依次切换相位并累加其持续时间，跳过零时长相位
// 返回：是否发生了相位切换
func (c *cycle[T]) advance(dt float64) bool {
	c.remaining -= dt
	if c.remaining > 0 {
		return false
	}
	for {
		c.step = (c.step + 1) % len(c.phases)
		c.remaining += c.phases[c.step].Duration
		if c.remaining > 0 {
			return true
		}
	}
}

// jump 跳转到指定相位并设置剩余时间
func (c *cycle[T]) jump(step int32, remaining float64) error {
	if step < 0 || int(step) >= len(c.phases) {
		return fmt.Errorf("phase index %d out of range [0, %d)", step, len(c.phases))
	}
	if remaining < 0 {
		return fmt.Errorf("negative remaining time %v", remaining)
	}
	c.step = int(step)
	c.remaining = remaining
	return nil
}

// PhasesFromProgram 将地图中的固定相位程序转换为颜色相位
// 说明：一个路口视为一个信号灯，取第一条受控车道的灯色作为该相位的颜色
func PhasesFromProgram(tl *mapv2.TrafficLight) []Phase[LightColor] {
	phases := make([]Phase[LightColor], 0, len(tl.Phases))
	for _, p := range tl.Phases {
		color := ColorGreen
		if len(p.States) > 0 {
			switch p.States[0] {
			case mapv2.LightState_LIGHT_STATE_RED:
				color = ColorRed
			case mapv2.LightState_LIGHT_STATE_YELLOW:
				color = ColorYellow
			}
		}
		phases = append(phases, Phase[LightColor]{Duration: p.Duration, State: color})
	}
	return phases
}

// ProgramFromPhases 将颜色相位转换为地图中的固定相位程序，每个相位只有一个灯色
func ProgramFromPhases(id int64, phases []Phase[LightColor]) *mapv2.TrafficLight {
	tl := &mapv2.TrafficLight{JunctionId: int32(id), Phases: make([]*mapv2.Phase, 0, len(phases))}
	for _, p := range phases {
		tl.Phases = append(tl.Phases, &mapv2.Phase{
			Duration: p.Duration,
			States:   []mapv2.LightState{colorToLightState(p.State)},
		})
	}
	return tl
}
