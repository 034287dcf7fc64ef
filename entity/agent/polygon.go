package agent

import (
	"math"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/tsinghua-fib-lab/scenario-sim/entity"
	"github.com/tsinghua-fib-lab/scenario-sim/utils/linalg"
)

// boxCorners 包围盒在地图平面上的四个角点（逆时针）
func boxCorners(pose linalg.Pose, bbox entity.BoundingBox) [4]geometry.Point {
	hl, hw := bbox.Dimensions.X/2, bbox.Dimensions.Y/2
	local := [4]linalg.Vector3{
		{X: bbox.Center.X + hl, Y: bbox.Center.Y + hw},
		{X: bbox.Center.X - hl, Y: bbox.Center.Y + hw},
		{X: bbox.Center.X - hl, Y: bbox.Center.Y - hw},
		{X: bbox.Center.X + hl, Y: bbox.Center.Y - hw},
	}
	yaw := pose.Yaw()
	c, s := math.Cos(yaw), math.Sin(yaw)
	var out [4]geometry.Point
	for i, p := range local {
		out[i] = geometry.Point{
			X: pose.Position.X + c*p.X - s*p.Y,
			Y: pose.Position.Y + s*p.X + c*p.Y,
		}
	}
	return out
}

// 多边形在轴上的投影区间
func project(poly [4]geometry.Point, ax, ay float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, p := range poly {
		d := p.X*ax + p.Y*ay
		lo = math.Min(lo, d)
		hi = math.Max(hi, d)
	}
	return
}

// boxesOverlap 分离轴定理判断两个有向矩形是否相交，接触也视为相交
func boxesOverlap(a, b [4]geometry.Point) bool {
	for _, poly := range [2][4]geometry.Point{a, b} {
		for i := 0; i < 2; i++ {
			p, q := poly[i], poly[i+1]
			// 边的法向
			ax, ay := -(q.Y - p.Y), q.X-p.X
			aLo, aHi := project(a, ax, ay)
			bLo, bHi := project(b, ax, ay)
			if aHi < bLo || bHi < aLo {
				return false
			}
		}
	}
	return true
}

// pointInBox 点是否在矩形内（含边界）
func pointInBox(p geometry.Point, box [4]geometry.Point) bool {
	for i := 0; i < 4; i++ {
		a, b := box[i], box[(i+1)%4]
		if (b.X-a.X)*(p.Y-a.Y)-(b.Y-a.Y)*(p.X-a.X) < 0 {
			return false
		}
	}
	return true
}

// 点到线段的平面距离
func pointSegmentDistance(p, a, b geometry.Point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	l2 := dx*dx + dy*dy
	t := 0.0
	if l2 > 0 {
		t = math.Max(0, math.Min(1, ((p.X-a.X)*dx+(p.Y-a.Y)*dy)/l2))
	}
	return math.Hypot(p.X-(a.X+t*dx), p.Y-(a.Y+t*dy))
}

// pointBoxDistance 点到矩形的距离，点在矩形内时为0
func pointBoxDistance(p geometry.Point, box [4]geometry.Point) float64 {
	if pointInBox(p, box) {
		return 0
	}
	d := math.Inf(1)
	for i := 0; i < 4; i++ {
		d = math.Min(d, pointSegmentDistance(p, box[i], box[(i+1)%4]))
	}
	return d
}

// boxesDistance 两个矩形之间的最短距离，相交时为0
func boxesDistance(a, b [4]geometry.Point) float64 {
	if boxesOverlap(a, b) {
		return 0
	}
	d := math.Inf(1)
	for i := 0; i < 4; i++ {
		d = math.Min(d, pointBoxDistance(a[i], b))
		d = math.Min(d, pointBoxDistance(b[i], a))
	}
	return d
}
