package linalg

import "math"

// Quaternion 单位四元数表示的朝向
type Quaternion struct {
	X, Y, Z, W float64
}

// Identity 单位旋转
func Identity() Quaternion {
	return Quaternion{W: 1}
}

// FromRPY 由欧拉角（roll, pitch, yaw）构造四元数
func FromRPY(roll, pitch, yaw float64) Quaternion {
	cr, sr := math.Cos(roll/2), math.Sin(roll/2)
	cp, sp := math.Cos(pitch/2), math.Sin(pitch/2)
	cy, sy := math.Cos(yaw/2), math.Sin(yaw/2)
	return Quaternion{
		X: sr*cp*cy - cr*sp*sy,
		Y: cr*sp*cy + sr*cp*sy,
		Z: cr*cp*sy - sr*sp*cy,
		W: cr*cp*cy + sr*sp*sy,
	}
}

// FromYaw 仅包含航向角的朝向
func FromYaw(yaw float64) Quaternion {
	return FromRPY(0, 0, yaw)
}

// RPY 转换为欧拉角
func (q Quaternion) RPY() Vector3 {
	sinrCosp := 2 * (q.W*q.X + q.Y*q.Z)
	cosrCosp := 1 - 2*(q.X*q.X+q.Y*q.Y)
	roll := math.Atan2(sinrCosp, cosrCosp)

	sinp := 2 * (q.W*q.Y - q.Z*q.X)
	var pitch float64
	if math.Abs(sinp) >= 1 {
		pitch = math.Copysign(math.Pi/2, sinp)
	} else {
		pitch = math.Asin(sinp)
	}

	sinyCosp := 2 * (q.W*q.Z + q.X*q.Y)
	cosyCosp := 1 - 2*(q.Y*q.Y+q.Z*q.Z)
	yaw := math.Atan2(sinyCosp, cosyCosp)
	return Vector3{X: roll, Y: pitch, Z: yaw}
}

// Yaw 航向角
func (q Quaternion) Yaw() float64 {
	return q.RPY().Z
}

// Mul 四元数乘法 q*o
func (q Quaternion) Mul(o Quaternion) Quaternion {
	return Quaternion{
		X: q.W*o.X + q.X*o.W + q.Y*o.Z - q.Z*o.Y,
		Y: q.W*o.Y - q.X*o.Z + q.Y*o.W + q.Z*o.X,
		Z: q.W*o.Z + q.X*o.Y - q.Y*o.X + q.Z*o.W,
		W: q.W*o.W - q.X*o.X - q.Y*o.Y - q.Z*o.Z,
	}
}

// Conjugate 共轭（单位四元数的逆）
func (q Quaternion) Conjugate() Quaternion {
	return Quaternion{X: -q.X, Y: -q.Y, Z: -q.Z, W: q.W}
}

// Rotate 用四元数旋转向量
func (q Quaternion) Rotate(v Vector3) Vector3 {
	p := Quaternion{X: v.X, Y: v.Y, Z: v.Z}
	r := q.Mul(p).Mul(q.Conjugate())
	return Vector3{X: r.X, Y: r.Y, Z: r.Z}
}

// IsIdentity 判断是否为单位旋转（允许数值误差）
func (q Quaternion) IsIdentity(tolerance float64) bool {
	// q与-q表示同一旋转
	return math.Abs(math.Abs(q.W)-1) <= tolerance &&
		math.Abs(q.X) <= tolerance && math.Abs(q.Y) <= tolerance && math.Abs(q.Z) <= tolerance
}
