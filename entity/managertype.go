package entity

import (
	"git.fiblab.net/general/common/v2/geometry"
	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
	"github.com/tsinghua-fib-lab/scenario-sim/utils/linalg"
)

// 依赖倒置

// IRoadNetwork 路网查询服务
// 功能：回答车道归属、纵向/横向距离以及位姿换算等查询
// 说明：构造后只读，被所有实体共享
type IRoadNetwork interface {
	// 是否为信号灯ID
	IsTrafficLight(id int64) bool
	// 将自由位姿匹配到最近车道，匹配失败返回false
	ToLaneletPose(pose linalg.Pose, includeCrosswalk bool) (LaneletPose, bool)
	// 车道坐标转自由位姿
	ToMapPose(pose LaneletPose) (linalg.Pose, error)
	// 沿车道前进方向的最短纵向距离，不可达返回false
	GetLongitudinalDistance(from, to LaneletPose) (float64, bool)
	// 横向距离（to相对from的左偏为正），无法换算返回false
	GetLateralDistance(from, to LaneletPose) (float64, bool)
	// 可视化图元
	GenerateMarker() []Marker

	LaneLength(id int64) (float64, error)
	LaneWidth(id int64) (float64, error)
	LaneMaxSpeed(id int64) (float64, error)
	Successors(id int64) []int64
	Predecessors(id int64) []int64
	// 相邻车道（最近的一条）
	Neighbor(id int64, direction Direction) (int64, bool)
	// 将点投影到指定车道，返回s与横向偏移（向左为正）
	ProjectOnLane(id int64, p geometry.Point) (s, offset float64, err error)
	// 车道级最短路，包含起终点
	Route(from, to int64) ([]int64, bool)
	// 将超出车道范围的s换算到前驱/后继车道
	Canonicalize(pose LaneletPose) (LaneletPose, error)
	// 车道所受控的信号灯，没有则返回false
	TrafficLightOf(laneID int64) (int64, bool)
}

// ITrafficLightManager 信号灯管理器
type ITrafficLightManager interface {
	// 信号灯当前的（车道级）灯色
	LightState(id int64) (mapv2.LightState, error)
	Update(dt float64)
}

// IEntityView 实体在更新阶段可见的其他实体快照
// 说明：只暴露上一tick提交的快照，保证更新顺序无关
type IEntityView interface {
	Snapshots() []EntityStatus
}
