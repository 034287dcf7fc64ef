package linalg

import (
	"math"

	"git.fiblab.net/general/common/v2/geometry"
)

// Pose 位姿：位置+朝向
type Pose struct {
	Position    geometry.Point
	Orientation Quaternion
}

// NewPose 由平面坐标和航向角构造位姿
func NewPose(x, y, yaw float64) Pose {
	return Pose{Position: geometry.Point{X: x, Y: y}, Orientation: FromYaw(yaw)}
}

// IdentityPose 零平移、单位旋转
func IdentityPose() Pose {
	return Pose{Orientation: Identity()}
}

// RelativePose 计算to在from局部坐标系下的位姿
// 算法说明：
// 1. 位置：conj(qf)·(pt − pf)
// 2. 朝向：conj(qf)·qt
func RelativePose(from, to Pose) Pose {
	inv := from.Orientation.Conjugate()
	d := inv.Rotate(SubPoints(to.Position, from.Position))
	return Pose{
		Position:    d.ToPoint(),
		Orientation: inv.Mul(to.Orientation),
	}
}

// TransformPose 将ref局部坐标系下的relative位姿转换到全局坐标系，是RelativePose的逆运算
func TransformPose(ref, relative Pose) Pose {
	d := ref.Orientation.Rotate(FromPoint(relative.Position))
	return Pose{
		Position:    AddToPoint(ref.Position, d),
		Orientation: ref.Orientation.Mul(relative.Orientation),
	}
}

// IsIdentity 判断位姿是否为零平移、单位旋转
func (p Pose) IsIdentity(tolerance float64) bool {
	return math.Abs(p.Position.X) <= tolerance &&
		math.Abs(p.Position.Y) <= tolerance &&
		math.Abs(p.Position.Z) <= tolerance &&
		p.Orientation.IsIdentity(tolerance)
}

// Yaw 航向角
func (p Pose) Yaw() float64 {
	return p.Orientation.Yaw()
}
