// 三维向量、四元数与位姿运算
package linalg

import (
	"fmt"
	"math"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/tsinghua-fib-lab/scenario-sim/utils/simerror"
)

// Vector3 三维向量（速度、加速度、尺寸等）
type Vector3 struct {
	X, Y, Z float64
}

func (v Vector3) Add(o Vector3) Vector3 {
	return Vector3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

func (v Vector3) Sub(o Vector3) Vector3 {
	return Vector3{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z}
}

func (v Vector3) Scale(k float64) Vector3 {
	return Vector3{X: v.X * k, Y: v.Y * k, Z: v.Z * k}
}

func (v Vector3) Dot(o Vector3) float64 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

func (v Vector3) Cross(o Vector3) Vector3 {
	return Vector3{
		X: v.Y*o.Z - v.Z*o.Y,
		Y: v.Z*o.X - v.X*o.Z,
		Z: v.X*o.Y - v.Y*o.X,
	}
}

// Norm 向量长度
func (v Vector3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Normalize 单位化
// 功能：返回同方向的单位向量
// 返回：长度不超过机器精度的向量无法单位化，返回语义错误
func (v Vector3) Normalize() (Vector3, error) {
	size := v.Norm()
	if math.Abs(size) <= epsilon {
		return Vector3{}, simerror.Semantic(
			v.String(), "size of vector is %v, size of the vector you want to normalize should be over %v", size, epsilon,
		)
	}
	return v.Scale(1 / size), nil
}

func (v Vector3) String() string {
	return fmt.Sprintf("(%v,%v,%v)", v.X, v.Y, v.Z)
}

// epsilon float64的机器精度
const epsilon = 2.220446049250313e-16

// FromPoint 位置点转向量
func FromPoint(p geometry.Point) Vector3 {
	return Vector3{X: p.X, Y: p.Y, Z: p.Z}
}

// ToPoint 向量转位置点
func (v Vector3) ToPoint() geometry.Point {
	return geometry.Point{X: v.X, Y: v.Y, Z: v.Z}
}

// AddToPoint 位置点平移
func AddToPoint(p geometry.Point, v Vector3) geometry.Point {
	return geometry.Point{X: p.X + v.X, Y: p.Y + v.Y, Z: p.Z + v.Z}
}

// SubPoints 两点之差 a-b
func SubPoints(a, b geometry.Point) Vector3 {
	return Vector3{X: a.X - b.X, Y: a.Y - b.Y, Z: a.Z - b.Z}
}

// Distance2D 两点平面距离
func Distance2D(a, b geometry.Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// Distance3D 两点空间距离
func Distance3D(a, b geometry.Point) float64 {
	return SubPoints(a, b).Norm()
}
