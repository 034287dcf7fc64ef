package scenario

import (
	"git.fiblab.net/general/common/v2/geometry"
	"github.com/tsinghua-fib-lab/scenario-sim/entity"
	"github.com/tsinghua-fib-lab/scenario-sim/utils/linalg"
)

// IEntityManager 条件与动作所需的实体管理器接口
type IEntityManager interface {
	EntityExists(name string) bool
	EntityStatusSet(name string) bool
	GetEntityNames() []string
	GetEntityStatus(name string) (entity.EntityStatus, error)
	SetEntityStatus(name string, status entity.EntityStatus) error
	GetMapPoseFrom(reference string, relative linalg.Pose) (linalg.Pose, error)
	GetStandStillDuration(name string) (float64, error)

	RelativePoseFromEntity(from string, to linalg.Pose) (linalg.Pose, error)
	RelativePoseBetween(from, to string) (linalg.Pose, error)
	GetLongitudinalDistance(from, to string, maxDistance float64) (float64, bool, error)
	GetLongitudinalDistanceToPose(from string, to entity.LaneletPose, maxDistance float64) (float64, bool, error)
	GetLateralDistanceToPose(from string, to entity.LaneletPose) (float64, bool, error)
	GetDistanceToBoundingBox(name string, p geometry.Point) (float64, error)
	CheckCollision(a, b string) (bool, error)

	RequestSpeedChange(name string, target float64, continuous bool) error
}

// Env 条件、动作与指标求值时的环境
type Env struct {
	Entities IEntityManager
	Network  entity.IRoadNetwork
}

// spawned 实体是否已生成并有有效状态
func (env *Env) spawned(name string) bool {
	return env.Entities.EntityStatusSet(name)
}
