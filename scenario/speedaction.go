package scenario

import (
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/scenario-sim/entity"
	"github.com/tsinghua-fib-lab/scenario-sim/utils/linalg"
	"github.com/tsinghua-fib-lab/scenario-sim/utils/simerror"
)

// DynamicsShape 变速的过渡形状
type DynamicsShape int

const (
	ShapeLinear DynamicsShape = iota
	ShapeCubic
	ShapeSinusoidal
	ShapeStep
)

var dynamicsShapeNames = []string{"linear", "cubic", "sinusoidal", "step"}

func (s DynamicsShape) String() string {
	if int(s) < 0 || int(s) >= len(dynamicsShapeNames) {
		simerror.Fault("unexpected dynamics shape %d", int(s))
	}
	return dynamicsShapeNames[s]
}

// ParseDynamicsShape 解析过渡形状，空字符串视为linear
func ParseDynamicsShape(name string) (DynamicsShape, error) {
	if name == "" {
		return ShapeLinear, nil
	}
	if i := lo.IndexOf(dynamicsShapeNames, name); i >= 0 {
		return DynamicsShape(i), nil
	}
	return 0, simerror.Semantic(name, "unexpected value %q specified as type DynamicsShape", name)
}

// SpeedAction 变速动作
type SpeedAction struct {
	env *Env

	Actors []string
	Shape  DynamicsShape
	Target float64
}

func NewSpeedAction(env *Env, actors []string, shape DynamicsShape, target float64) *SpeedAction {
	return &SpeedAction{env: env, Actors: actors, Shape: shape, Target: target}
}

// Start 对每个执行者下达变速请求
// 说明：linear按加速度限制逐步变速；step立即设置速度；其余形状尚未实现
func (a *SpeedAction) Start() error {
	for _, actor := range a.Actors {
		switch a.Shape {
		case ShapeLinear:
		case ShapeStep:
			status, err := a.env.Entities.GetEntityStatus(actor)
			if err != nil {
				return err
			}
			status.Twist = entity.Twist{Linear: linalg.Vector3{X: a.Target}}
			status.Accel = entity.Accel{}
			if err := a.env.Entities.SetEntityStatus(actor, status); err != nil {
				return err
			}
		default:
			simerror.Fault("speed action with dynamics shape %v is not implemented", a.Shape)
		}
		if err := a.env.Entities.RequestSpeedChange(actor, a.Target, true); err != nil {
			return err
		}
	}
	return nil
}

// Accomplished 所有执行者的速度都已达到目标
// 说明：读取状态出错的执行者视为未完成
func (a *SpeedAction) Accomplished() bool {
	return lo.EveryBy(a.Actors, func(actor string) bool {
		status, err := a.env.Entities.GetEntityStatus(actor)
		if err != nil {
			return false
		}
		return EqualTo.Apply(status.Twist.Linear.X, a.Target)
	})
}
