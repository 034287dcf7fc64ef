package entity

import (
	"fmt"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/tsinghua-fib-lab/scenario-sim/utils/linalg"
)

// Direction 变道方向
type Direction int

const (
	LEFT  Direction = 0 // 左侧
	RIGHT Direction = 1 // 右侧
)

func (d Direction) String() string {
	switch d {
	case LEFT:
		return "left"
	case RIGHT:
		return "right"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// EntityType 实体类型
type EntityType int32

const (
	EntityTypeEgo EntityType = iota
	EntityTypeVehicle
	EntityTypePedestrian
)

func (t EntityType) String() string {
	switch t {
	case EntityTypeEgo:
		return "EGO"
	case EntityTypeVehicle:
		return "VEHICLE"
	case EntityTypePedestrian:
		return "PEDESTRIAN"
	default:
		return fmt.Sprintf("EntityType(%d)", int32(t))
	}
}

// LaneletPose 车道坐标
// 功能：以（车道ID，纵向位置s，横向偏移offset）描述实体在车道网络中的位置
// 说明：offset以车道中心线为0，向左为正；RPY为相对车道切向的姿态偏差
type LaneletPose struct {
	LaneletID int64
	S         float64
	Offset    float64
	RPY       linalg.Vector3
}

func (p LaneletPose) String() string {
	return fmt.Sprintf("LaneletPose{lanelet:%d, s:%.3f, offset:%.3f}", p.LaneletID, p.S, p.Offset)
}

// BoundingBox 包围盒
// 说明：Center为包围盒中心相对实体原点的偏移，Dimensions为长（X）宽（Y）高（Z）
type BoundingBox struct {
	Center     linalg.Vector3
	Dimensions linalg.Vector3
}

// Twist 速度（线速度+角速度），表示在实体局部坐标系下
type Twist struct {
	Linear  linalg.Vector3
	Angular linalg.Vector3
}

// Accel 加速度（线加速度+角加速度），表示在实体局部坐标系下
type Accel struct {
	Linear  linalg.Vector3
	Angular linalg.Vector3
}

// EntityStatus 实体在某一时刻的物理状态快照
// 功能：同时保存自由位姿与车道坐标，两者可经路网服务相互换算
// 说明：该结构需要可以被直接复制，不应产生浅拷贝带来的副作用
type EntityStatus struct {
	Time             float64
	Name             string
	Type             EntityType
	BoundingBox      BoundingBox
	Pose             linalg.Pose
	Twist            Twist
	Accel            Accel
	LaneletPose      LaneletPose
	LaneletPoseValid bool // 是否位于车道网络上
}

// Marker 路网可视化图元（仅转发，核心逻辑不使用）
type Marker struct {
	ID     int64
	NS     string // 命名空间，如 "lanelet"、"traffic_light"
	Points []geometry.Point
}
