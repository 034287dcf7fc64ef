package scenario

import (
	"git.fiblab.net/general/common/v2/geometry"
	"github.com/tsinghua-fib-lab/scenario-sim/entity"
	"github.com/tsinghua-fib-lab/scenario-sim/utils/config"
	"github.com/tsinghua-fib-lab/scenario-sim/utils/linalg"
	"github.com/tsinghua-fib-lab/scenario-sim/utils/simerror"
)

// LaneletPoseFromConfig 配置中的车道坐标
func LaneletPoseFromConfig(c config.LaneletPose) entity.LaneletPose {
	return entity.LaneletPose{
		LaneletID: c.LaneletID,
		S:         c.S,
		Offset:    c.Offset,
		RPY:       linalg.Vector3{Z: c.Yaw},
	}
}

// NewPosition 由配置创建目标位置，三种位置必须恰好给出一种
func NewPosition(c *config.PositionConfig) (Position, error) {
	if c == nil {
		return nil, simerror.Semantic("position", "position is required")
	}
	n := 0
	var p Position
	if c.World != nil {
		n++
		pose := linalg.Pose{
			Position:    geometry.Point{X: c.World.X, Y: c.World.Y, Z: c.World.Z},
			Orientation: linalg.FromYaw(c.World.Yaw),
		}
		p = WorldPosition{Pose: pose}
	}
	if c.RelativeWorld != nil {
		n++
		p = RelativeWorldPosition{
			EntityRef: c.RelativeWorld.EntityRef,
			DX:        c.RelativeWorld.DX,
			DY:        c.RelativeWorld.DY,
			DZ:        c.RelativeWorld.DZ,
		}
	}
	if c.Lane != nil {
		n++
		p = LanePosition{LaneletPose: LaneletPoseFromConfig(*c.Lane)}
	}
	if n != 1 {
		return nil, simerror.Semantic("position", "exactly one of world, relative_world and lane must be given, got %d", n)
	}
	return p, nil
}

// NewCondition 由配置创建条件
func NewCondition(env *Env, c config.ConditionConfig) (Condition, error) {
	triggeringRule, err := ParseTriggeringEntitiesRule(c.TriggeringRule)
	if err != nil {
		return nil, err
	}
	triggering := TriggeringEntities{Rule: triggeringRule, Refs: c.TriggeringEntities}
	parseRule := func(def Rule) (Rule, error) {
		if c.Rule == "" {
			return def, nil
		}
		return ParseRule(c.Rule)
	}
	switch c.Type {
	case "distance":
		rule, err := parseRule(LessThan)
		if err != nil {
			return nil, err
		}
		position, err := NewPosition(c.Position)
		if err != nil {
			return nil, err
		}
		cs, err := ParseCoordinateSystem(c.CoordinateSystem)
		if err != nil {
			return nil, err
		}
		rdt, err := ParseRelativeDistanceType(c.RelativeDistanceType)
		if err != nil {
			return nil, err
		}
		if _, ok := distanceTable[distanceKey{cs, rdt, c.Freespace}]; !ok {
			return nil, simerror.Semantic(c.Name, "distance condition (%v, %v, freespace=%v) is not supported", cs, rdt, c.Freespace)
		}
		return NewDistanceCondition(env, position, c.Value, c.Freespace, cs, rdt, rule, triggering), nil
	case "reach_position":
		position, err := NewPosition(c.Position)
		if err != nil {
			return nil, err
		}
		return NewReachPositionCondition(env, position, c.Tolerance, triggering), nil
	case "time_headway":
		rule, err := parseRule(LessThan)
		if err != nil {
			return nil, err
		}
		if c.EntityRef == "" {
			return nil, simerror.Semantic(c.Name, "time headway condition requires entity_ref")
		}
		return NewTimeHeadwayCondition(env, c.EntityRef, c.Value, c.Freespace, c.AlongRoute, rule, triggering), nil
	case "speed":
		rule, err := parseRule(GreaterOrEqual)
		if err != nil {
			return nil, err
		}
		return NewSpeedCondition(env, c.Value, rule, triggering), nil
	case "stand_still":
		rule, err := parseRule(GreaterOrEqual)
		if err != nil {
			return nil, err
		}
		return NewStandStillCondition(env, c.Value, rule, triggering), nil
	case "collision":
		return NewCollisionCondition(env, c.Targets, triggering), nil
	default:
		return nil, simerror.Semantic(c.Name, "unexpected condition type %q", c.Type)
	}
}
