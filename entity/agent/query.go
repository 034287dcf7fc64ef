package agent

import (
	"math"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/tsinghua-fib-lab/scenario-sim/entity"
	"github.com/tsinghua-fib-lab/scenario-sim/utils/linalg"
)

// RelativePose to在from坐标系下的位姿
func (m *Manager) RelativePose(from, to linalg.Pose) linalg.Pose {
	return linalg.RelativePose(from, to)
}

// RelativePoseToEntity 实体to在位姿from坐标系下的位姿
func (m *Manager) RelativePoseToEntity(from linalg.Pose, to string) (linalg.Pose, error) {
	toPose, err := m.GetMapPose(to)
	if err != nil {
		return linalg.Pose{}, err
	}
	return linalg.RelativePose(from, toPose), nil
}

// RelativePoseFromEntity 位姿to在实体from坐标系下的位姿
func (m *Manager) RelativePoseFromEntity(from string, to linalg.Pose) (linalg.Pose, error) {
	fromPose, err := m.GetMapPose(from)
	if err != nil {
		return linalg.Pose{}, err
	}
	return linalg.RelativePose(fromPose, to), nil
}

// RelativePoseBetween 实体to在实体from坐标系下的位姿
func (m *Manager) RelativePoseBetween(from, to string) (linalg.Pose, error) {
	fromPose, err := m.GetMapPose(from)
	if err != nil {
		return linalg.Pose{}, err
	}
	return m.RelativePoseToEntity(fromPose, to)
}

// GetLongitudinalDistanceToPose 实体到车道坐标的纵向距离
// 算法说明：先沿前进方向搜索，找不到时反向搜索并取负值；超过maxDistance视为不可达
// 返回：距离、是否可达；实体不存在时返回错误，不在车道上时不可达
func (m *Manager) GetLongitudinalDistanceToPose(from string, to entity.LaneletPose, maxDistance float64) (float64, bool, error) {
	fromPose, onLane, err := m.GetLaneletPose(from)
	if err != nil {
		return math.NaN(), false, err
	}
	if !onLane {
		return math.NaN(), false, nil
	}
	return m.longitudinal(fromPose, to, maxDistance)
}

// GetLongitudinalDistance 两个实体之间的纵向距离
func (m *Manager) GetLongitudinalDistance(from, to string, maxDistance float64) (float64, bool, error) {
	toPose, onLane, err := m.GetLaneletPose(to)
	if err != nil {
		return math.NaN(), false, err
	}
	if !onLane {
		if _, err := m.GetEntityStatus(from); err != nil {
			return math.NaN(), false, err
		}
		return math.NaN(), false, nil
	}
	return m.GetLongitudinalDistanceToPose(from, toPose, maxDistance)
}

func (m *Manager) longitudinal(from, to entity.LaneletPose, maxDistance float64) (float64, bool, error) {
	if d, ok := m.network.GetLongitudinalDistance(from, to); ok && d <= maxDistance {
		return d, true, nil
	}
	if d, ok := m.network.GetLongitudinalDistance(to, from); ok && d <= maxDistance {
		return -d, true, nil
	}
	return math.NaN(), false, nil
}

// GetLateralDistanceToPose 实体到车道坐标的横向距离（目标在左侧为正）
func (m *Manager) GetLateralDistanceToPose(from string, to entity.LaneletPose) (float64, bool, error) {
	fromPose, onLane, err := m.GetLaneletPose(from)
	if err != nil {
		return math.NaN(), false, err
	}
	if !onLane {
		return math.NaN(), false, nil
	}
	d, ok := m.network.GetLateralDistance(fromPose, to)
	return d, ok, nil
}

func (m *Manager) corners(name string) ([4]geometry.Point, error) {
	s, err := m.GetEntityStatus(name)
	if err != nil {
		return [4]geometry.Point{}, err
	}
	return boxCorners(s.Pose, s.BoundingBox), nil
}

// GetBoundingBoxDistance 两个实体包围盒之间的平面距离，相交时为0
func (m *Manager) GetBoundingBoxDistance(from, to string) (float64, bool, error) {
	a, err := m.corners(from)
	if err != nil {
		return math.NaN(), false, err
	}
	b, err := m.corners(to)
	if err != nil {
		return math.NaN(), false, err
	}
	return boxesDistance(a, b), true, nil
}

// GetDistanceToBoundingBox 点到实体包围盒的平面距离，点在包围盒内时为0
func (m *Manager) GetDistanceToBoundingBox(name string, p geometry.Point) (float64, error) {
	box, err := m.corners(name)
	if err != nil {
		return math.NaN(), err
	}
	return pointBoxDistance(p, box), nil
}

// CheckCollision 两个实体的包围盒是否相交，同一实体不与自身碰撞
func (m *Manager) CheckCollision(a, b string) (bool, error) {
	boxA, err := m.corners(a)
	if err != nil {
		return false, err
	}
	boxB, err := m.corners(b)
	if err != nil {
		return false, err
	}
	if a == b {
		return false, nil
	}
	return boxesOverlap(boxA, boxB), nil
}

// IsInLanelet 实体是否在指定车道上，或在车道两端tolerance范围内
func (m *Manager) IsInLanelet(name string, lanelet int64, tolerance float64) (bool, error) {
	pose, onLane, err := m.GetLaneletPose(name)
	if err != nil || !onLane {
		return false, err
	}
	if pose.LaneletID == lanelet {
		return true, nil
	}
	length, err := m.network.LaneLength(lanelet)
	if err != nil {
		return false, err
	}
	if d, ok := m.network.GetLongitudinalDistance(pose, entity.LaneletPose{LaneletID: lanelet}); ok && d <= tolerance {
		return true, nil
	}
	if d, ok := m.network.GetLongitudinalDistance(entity.LaneletPose{LaneletID: lanelet, S: length}, pose); ok && d <= tolerance {
		return true, nil
	}
	return false, nil
}

// ReachPosition 实体是否到达目标位姿tolerance范围内
func (m *Manager) ReachPosition(name string, target linalg.Pose, tolerance float64) (bool, error) {
	pose, err := m.GetMapPose(name)
	if err != nil {
		return false, err
	}
	return linalg.Distance3D(pose.Position, target.Position) <= tolerance, nil
}

// ReachLaneletPosition 实体是否到达目标车道坐标tolerance范围内
func (m *Manager) ReachLaneletPosition(name string, target entity.LaneletPose, tolerance float64) (bool, error) {
	pose, err := m.network.ToMapPose(target)
	if err != nil {
		return false, err
	}
	return m.ReachPosition(name, pose, tolerance)
}

// ReachEntity 实体是否到达另一实体tolerance范围内
func (m *Manager) ReachEntity(name, target string, tolerance float64) (bool, error) {
	pose, err := m.GetMapPose(target)
	if err != nil {
		return false, err
	}
	return m.ReachPosition(name, pose, tolerance)
}
