package agent

import (
	"git.fiblab.net/general/common/v2/geometry"
	"github.com/tsinghua-fib-lab/scenario-sim/entity"
	"github.com/tsinghua-fib-lab/scenario-sim/utils/linalg"
)

const (
	lcLengthFactor   = 5   // 变道长度与当前车速的关系（即几秒完成变道）
	lcInOldLaneRatio = 0.5 // 变道完成度小于该值时，认为还在原车道
)

// 当前动作名
const (
	ActionWaiting         = "waiting"
	ActionFollowLane      = "follow_lane"
	ActionLaneChange      = "lane_change"
	ActionAcquirePosition = "acquire_position"
	ActionWalkStraight    = "walk_straight"
	ActionFreeDrive       = "free_drive"
	ActionStopAtEnd       = "stop_at_end"
)

// lcRuntime 变道运行时数据结构
// 功能：记录变道过程中的原车道、映射位置与完成度
type lcRuntime struct {
	IsLC bool
	// shadow为变道前的车道
	ShadowLane     int64
	ShadowS        float64
	Length         float64 // 本次变道的纵向长度
	Yaw            float64 // 车头相对车道方向的偏转角，向左为正
	CompletedRatio float64
}

// InShadowLane 变道完成度小于阈值时认为仍占据原车道
func (lc *lcRuntime) InShadowLane() bool {
	return lc.IsLC && lc.CompletedRatio < lcInOldLaneRatio
}

// intent 实体的行为意图
// 说明：Route只会被整体替换，不会原地修改，因此可以随runtime直接复制
type intent struct {
	HasTargetSpeed bool
	TargetSpeed    float64

	Route []int64

	HasDestination bool
	Destination    entity.LaneletPose

	HasPendingLC bool
	PendingLC    int64 // 已请求但尚未开始的变道目标车道

	WalkStraight bool
}

// runtime 实体运行时数据结构
// 说明：该数据结构需要可以被直接复制，不应产生浅拷贝带来的副作用
type runtime struct {
	OnLane bool    // 是否位于车道上
	Lane   int64   // 所在车道
	S      float64 // 车道上的位置
	Offset float64 // 横向偏移，向左为正

	Pose linalg.Pose    // 自由位姿（不在车道上时为运动的依据）
	XYZ  geometry.Point // 位置缓存

	V     float64 // 速度
	A     float64 // 本步的实际加速度
	Jerk  float64
	Omega float64 // 偏航角速度

	LC lcRuntime

	Action     string
	StandStill float64 // 连续静止时间

	Intent intent // 随提交一起生效，tick中止时不会部分写入
}

func (rt *runtime) clearLaneChange() {
	rt.LC = lcRuntime{}
}
