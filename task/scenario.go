package task

import (
	"fmt"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/scenario-sim/entity"
	"github.com/tsinghua-fib-lab/scenario-sim/entity/agent"
	"github.com/tsinghua-fib-lab/scenario-sim/entity/trafficlight"
	"github.com/tsinghua-fib-lab/scenario-sim/scenario"
	"github.com/tsinghua-fib-lab/scenario-sim/utils/config"
	"github.com/tsinghua-fib-lab/scenario-sim/utils/linalg"
	"github.com/tsinghua-fib-lab/scenario-sim/utils/simerror"
)

// initTrafficLights 初始化信号灯
// 说明：配置中的相位覆盖地图中的固定相位程序；只给出颜色时取消相位程序并固定为该颜色
func (ctx *Context) initTrafficLights() error {
	if err := ctx.lights.LoadPrograms(ctx.network.TrafficLightIDs(), ctx.network.TrafficLightProgram); err != nil {
		return err
	}
	for _, tc := range ctx.runtimeConfig.All.Scenario.TrafficLights {
		if len(tc.Phases) > 0 {
			phases := make([]trafficlight.Phase[trafficlight.LightColor], 0, len(tc.Phases))
			for _, p := range tc.Phases {
				c, err := trafficlight.ParseLightColor(p.Color)
				if err != nil {
					return err
				}
				phases = append(phases, trafficlight.Phase[trafficlight.LightColor]{Duration: p.Duration, State: c})
			}
			if err := ctx.lights.SetColorPhase(tc.ID, phases); err != nil {
				return err
			}
		} else if tc.Color != "" {
			c, err := trafficlight.ParseLightColor(tc.Color)
			if err != nil {
				return err
			}
			if err := ctx.lights.UnsetColorPhase(tc.ID); err != nil {
				return err
			}
			if err := ctx.lights.SetColor(tc.ID, c); err != nil {
				return err
			}
		}
		if len(tc.Bulbs) > 0 {
			if err := ctx.lights.SetBulbs(tc.ID, tc.Bulbs); err != nil {
				return err
			}
		}
		log.Debugf("traffic light %d configured", tc.ID)
	}
	return nil
}

// placement 计算出生位置与初速度，必要时从分布中采样
func (ctx *Context) placement(es config.EntitySpawn) (agent.Placement, error) {
	pose := scenario.LaneletPoseFromConfig(es.Pose)
	if es.RandomS != nil {
		d, err := scenario.NewUniformDistribution(es.RandomS.Lower, es.RandomS.Upper)
		if err != nil {
			return agent.Placement{}, simerror.Semantic(es.Name, "random_s: %v", err)
		}
		pose.S = d.Evaluate(ctx.engine)
	}
	speed := es.Speed
	if len(es.RandomSpeed) > 0 {
		d, err := scenario.NewProbabilityDistributionSet(lo.Map(es.RandomSpeed, func(v config.WeightedValue, _ int) scenario.ProbabilityDistributionSetElement {
			return scenario.ProbabilityDistributionSetElement{Value: v.Value, Weight: v.Weight}
		}))
		if err != nil {
			return agent.Placement{}, simerror.Semantic(es.Name, "random_speed: %v", err)
		}
		speed = d.Evaluate(ctx.engine)
	}
	return agent.AtLanelet(pose, speed), nil
}

// boundingBox 配置的包围盒，参考点位于包围盒底面中心
func boundingBox(d *config.Dimensions, def entity.BoundingBox) entity.BoundingBox {
	if d == nil {
		return def
	}
	return entity.BoundingBox{
		Center:     linalg.Vector3{Z: d.Height / 2},
		Dimensions: linalg.Vector3{X: d.Length, Y: d.Width, Z: d.Height},
	}
}

// spawn 生成一个实体
func (ctx *Context) spawn(es config.EntitySpawn) error {
	at, err := ctx.placement(es)
	if err != nil {
		return err
	}
	switch es.Kind {
	case "ego", "vehicle", "":
		params := agent.DefaultVehicleParameters()
		if es.MaxSpeed > 0 {
			params.MaxSpeed = es.MaxSpeed
		}
		params.BoundingBox = boundingBox(es.BoundingBox, params.BoundingBox)
		if es.Kind == "ego" {
			return ctx.entities.SpawnEgo(es.Name, at, params)
		}
		return ctx.entities.SpawnVehicle(es.Name, at, params)
	case "pedestrian":
		params := agent.DefaultPedestrianParameters()
		if es.MaxSpeed > 0 {
			params.MaxSpeed = es.MaxSpeed
		}
		params.BoundingBox = boundingBox(es.BoundingBox, params.BoundingBox)
		return ctx.entities.SpawnPedestrian(es.Name, at, params)
	default:
		return simerror.Semantic(es.Name, "unexpected entity kind %q", es.Kind)
	}
}

// instruct 下达配置中的初始动作：目标速度、变道与目的地
func (ctx *Context) instruct(es config.EntitySpawn) error {
	if es.TargetSpeed != nil {
		shape, err := scenario.ParseDynamicsShape(es.SpeedShape)
		if err != nil {
			return err
		}
		if err := ctx.runner.StartAction(scenario.NewSpeedAction(ctx.env, []string{es.Name}, shape, *es.TargetSpeed)); err != nil {
			return err
		}
	}
	switch es.LaneChange {
	case "":
	case "left":
		if err := ctx.entities.RequestLaneChange(es.Name, entity.LEFT); err != nil {
			return err
		}
	case "right":
		if err := ctx.entities.RequestLaneChange(es.Name, entity.RIGHT); err != nil {
			return err
		}
	default:
		return simerror.Semantic(es.Name, "unexpected lane change direction %q", es.LaneChange)
	}
	if es.Destination != nil {
		if err := ctx.entities.RequestAcquirePosition(es.Name, scenario.LaneletPoseFromConfig(*es.Destination)); err != nil {
			return err
		}
	}
	return nil
}

// spawnEntities 按配置顺序生成实体，全部生成后再下达动作
func (ctx *Context) spawnEntities() error {
	spawns := ctx.runtimeConfig.All.Scenario.Entities
	for _, es := range spawns {
		if err := ctx.spawn(es); err != nil {
			return fmt.Errorf("spawn %s: %w", es.Name, err)
		}
	}
	for _, es := range spawns {
		if err := ctx.instruct(es); err != nil {
			return fmt.Errorf("instruct %s: %w", es.Name, err)
		}
	}
	return nil
}
