package agent

import (
	"math"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/scenario-sim/entity"
)

// startLaneChange 发起变道，先将当前的车辆位置映射到目标车道上
//
//	--------------------------------------------
//	 [2] → → (lane_change_length / ds) → → [3]
//	--↑-----------------------------------------
//	 [1]
//	--------------------------------------------
//
// 1: 原车道（shadow）+ s
// 2: 目标车道 + 投影得到的s
// 3: 变道完成的位置
func (e *Entity) startLaneChange(rt *runtime, target int64) error {
	s, _, err := e.network.ProjectOnLane(target, rt.XYZ)
	if err != nil {
		return err
	}
	fromWidth, err := e.network.LaneWidth(rt.Lane)
	if err != nil {
		return err
	}
	toWidth, err := e.network.LaneWidth(target)
	if err != nil {
		return err
	}
	side := -1.0
	if left, ok := e.network.Neighbor(rt.Lane, entity.LEFT); ok && left == target {
		side = 1
	}
	// 变道距离至少保留2个车长
	length := math.Max(rt.V*lcLengthFactor, 2*e.bbox.Dimensions.X)
	rt.LC = lcRuntime{
		IsLC:       true,
		ShadowLane: rt.Lane,
		ShadowS:    rt.S,
		Length:     length,
		Yaw:        side * math.Atan2((fromWidth+toWidth)/2, length),
	}
	log.Debugf("%s starts lane change %d -> %d", e.name, rt.Lane, target)
	rt.Lane = target
	rt.S = s
	return nil
}

// progressLaneChange 按纵向前进距离推进变道完成度，完成后清除变道状态
func (e *Entity) progressLaneChange(rt *runtime, ds float64) {
	ratio := rt.LC.CompletedRatio + ds/rt.LC.Length
	if ratio >= 1 {
		rt.clearLaneChange()
		return
	}
	rt.LC.CompletedRatio = lo.Clamp(ratio, 0, 1)
}

// InShadowLane 是否仍占据变道前的车道
func (e *Entity) InShadowLane() bool {
	return e.snapshot.LC.InShadowLane()
}
