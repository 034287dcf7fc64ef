package scenario

import (
	"fmt"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/tsinghua-fib-lab/scenario-sim/entity"
	"github.com/tsinghua-fib-lab/scenario-sim/utils/linalg"
	"github.com/tsinghua-fib-lab/scenario-sim/utils/simerror"
)

// Position 目标位置，只有以下三种
//   - WorldPosition 地图坐标系下的位姿
//   - RelativeWorldPosition 以某实体为原点的相对位置
//   - LanePosition 车道坐标
type Position interface {
	fmt.Stringer
	position()
}

type WorldPosition struct {
	Pose linalg.Pose
}

type RelativeWorldPosition struct {
	EntityRef  string
	DX, DY, DZ float64
}

type LanePosition struct {
	LaneletPose entity.LaneletPose
}

func (WorldPosition) position()         {}
func (RelativeWorldPosition) position() {}
func (LanePosition) position()          {}

func (p WorldPosition) String() string {
	return fmt.Sprintf("WorldPosition(%.3f, %.3f, %.3f)", p.Pose.Position.X, p.Pose.Position.Y, p.Pose.Position.Z)
}

func (p RelativeWorldPosition) String() string {
	return fmt.Sprintf("RelativeWorldPosition(%s + (%.3f, %.3f, %.3f))", p.EntityRef, p.DX, p.DY, p.DZ)
}

func (p LanePosition) String() string {
	return fmt.Sprintf("LanePosition(%d, s=%.3f, offset=%.3f)", p.LaneletPose.LaneletID, p.LaneletPose.S, p.LaneletPose.Offset)
}

// ResolvePose 将目标位置转换为地图位姿
// 返回：位姿、当前是否可解析（引用的实体尚未生成时不可解析）、错误
func (env *Env) ResolvePose(p Position) (linalg.Pose, bool, error) {
	switch p := p.(type) {
	case WorldPosition:
		return p.Pose, true, nil
	case RelativeWorldPosition:
		if !env.spawned(p.EntityRef) {
			return linalg.Pose{}, false, nil
		}
		relative := linalg.Pose{
			Position:    geometry.Point{X: p.DX, Y: p.DY, Z: p.DZ},
			Orientation: linalg.Identity(),
		}
		pose, err := env.Entities.GetMapPoseFrom(p.EntityRef, relative)
		return pose, err == nil, err
	case LanePosition:
		pose, err := env.Network.ToMapPose(p.LaneletPose)
		return pose, err == nil, err
	default:
		simerror.Fault("unexpected position type %T", p)
		return linalg.Pose{}, false, nil
	}
}

// ResolveLaneletPose 将目标位置转换为车道坐标
// 返回：车道坐标、当前是否可解析（不在任何车道上时不可解析）、错误
func (env *Env) ResolveLaneletPose(p Position) (entity.LaneletPose, bool, error) {
	switch p := p.(type) {
	case LanePosition:
		return p.LaneletPose, true, nil
	case WorldPosition, RelativeWorldPosition:
		pose, ok, err := env.ResolvePose(p)
		if err != nil || !ok {
			return entity.LaneletPose{}, false, err
		}
		lp, ok := env.Network.ToLaneletPose(pose, false)
		return lp, ok, nil
	default:
		simerror.Fault("unexpected position type %T", p)
		return entity.LaneletPose{}, false, nil
	}
}
