package agent

import (
	"math"

	"git.fiblab.net/general/common/v2/mathutil"
	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/scenario-sim/utils/linalg"
)

const (
	idmTheta        = 4    // IDM自由加速指数
	minGap          = 2    // 跟车最小间距（米）
	headway         = 1.5  // 安全车头时距（秒）
	stopGap         = 1    // 停车线前预留距离（米）
	arriveTolerance = 1    // 到达目的地的判定范围（米）
	minTargetV      = 0.1  // IDM计算时目标速度的下限，避免除零
	speedEpsilon    = 1e-9 // 速度与目标速度之差小于该值时视为到达
	minLookahead    = 50   // 最小前视距离（米）
)

// 计算本时刻的速度与移动距离
// v(t)=v(t-1)+acc*dt, ds=v(t-1)*dt+acc*dt*dt/2
func computeVAndDistance(v, a, dt float64) (float64, float64) {
	dv := a * dt
	if v+dv < 0 {
		// 刹车到停止
		return 0, v * v / 2 / -a
	}
	return v + dv, (v + dv/2) * dt
}

// speedControl 恒定加速度的速度控制，本步恰好到达目标速度
func (e *Entity) speedControl(v, targetV, dt float64) float64 {
	return lo.Clamp((targetV-v)/dt, e.maxBrakingA, e.maxA)
}

// followImpl 跟车模型核心实现（IDM）
// 参数：selfV-本车速度，targetV-目标速度，aheadV-前车速度，distance-车距，gap-最小车距，hw-安全车头时距
// 算法说明：
// 1. 距离小于等于0视为已碰撞，紧急制动
// 2. s_star = gap + max(0, v*hw + v*(v-v_ahead)/(2*sqrt(a*b)))
// 3. a = maxA * (1 - (v/targetV)^4 - (s_star/distance)^2)，并限制在制动与加速范围内
func (e *Entity) followImpl(selfV, targetV, aheadV, distance, gap, hw float64) float64 {
	var acc float64
	if distance <= 0 {
		acc = -mathutil.INF
	} else {
		targetV = math.Max(targetV, minTargetV)
		usualBrakingA := e.maxBrakingA / 2
		sStar := gap + math.Max(
			0,
			selfV*hw+selfV*(selfV-aheadV)/2/math.Sqrt(-usualBrakingA*e.maxA),
		)
		acc = e.maxA * (1 - math.Pow(selfV/targetV, idmTheta) - math.Pow(sStar/distance, 2))
	}
	return lo.Clamp(acc, e.maxBrakingA, e.maxA)
}

func (e *Entity) follow(selfV, targetV, aheadV, distance float64) float64 {
	return e.followImpl(selfV, targetV, aheadV, distance, minGap, headway)
}

// stop 在指定距离内刹停，预判一个时间步而不按跟车时距计算
func (e *Entity) stop(selfV, targetV, distance, dt float64) float64 {
	return e.followImpl(selfV, targetV, 0, distance, 0, dt)
}

// 前方（含本车道）的车道及其起点相对本车的距离
type aheadLane struct {
	lane  int64
	start float64 // 车道起点到本车的纵向距离，本车道为 -s
}

// nextLane 选择下一条车道：在路线上时沿路线，否则取第一个后继车道
func (e *Entity) nextLane(rt *runtime, lane int64) (int64, bool) {
	if i := lo.IndexOf(rt.Intent.Route, lane); i >= 0 && i+1 < len(rt.Intent.Route) {
		return rt.Intent.Route[i+1], true
	}
	successors := e.network.Successors(lane)
	if len(successors) == 0 {
		return 0, false
	}
	return successors[0], true
}

// aheadLanes 从当前车道开始向前展开车道，直到超过horizon
func (e *Entity) aheadLanes(rt *runtime, horizon float64) []aheadLane {
	lanes := []aheadLane{{lane: rt.Lane, start: -rt.S}}
	seen := map[int64]bool{rt.Lane: true}
	for {
		last := lanes[len(lanes)-1]
		length, err := e.network.LaneLength(last.lane)
		if err != nil || last.start+length >= horizon {
			break
		}
		next, ok := e.nextLane(rt, last.lane)
		if !ok || seen[next] {
			break
		}
		seen[next] = true
		lanes = append(lanes, aheadLane{lane: next, start: last.start + length})
	}
	return lanes
}

func (e *Entity) lookahead(v float64) float64 {
	return math.Max(minLookahead, v*v/2/-e.maxBrakingA+2*v*headway)
}

// front/rear 包围盒前后沿到实体原点的距离
func (e *Entity) front() float64 {
	return e.bbox.Dimensions.X/2 + e.bbox.Center.X
}

// findLeader 在前方车道上寻找最近的前车
// 返回：前车速度、车间净距
func (e *Entity) findLeader(rt *runtime, lanes []aheadLane) (v float64, gap float64, ok bool) {
	best := math.Inf(1)
	for _, other := range e.view.Snapshots() {
		if other.Name == e.name || !other.LaneletPoseValid {
			continue
		}
		for _, ahead := range lanes {
			if other.LaneletPose.LaneletID != ahead.lane {
				continue
			}
			d := ahead.start + other.LaneletPose.S
			if d <= 0 {
				continue
			}
			rear := other.BoundingBox.Dimensions.X/2 - other.BoundingBox.Center.X
			if g := d - e.front() - rear; g < best {
				best, v, ok = g, other.Twist.Linear.X, true
			}
		}
	}
	return v, best, ok
}

// stopLine 前方需要停车的位置：红灯（或来得及停下的黄灯）控制的车道入口、没有后继的车道末端
// 说明：行人不受信号灯约束
func (e *Entity) stopLine(rt *runtime, lanes []aheadLane) (float64, bool) {
	for i, ahead := range lanes {
		if i > 0 && e.kind != KindPedestrian {
			if d, ok := e.blockedByLight(rt, ahead); ok {
				return d, true
			}
		}
		if i == len(lanes)-1 {
			if _, ok := e.nextLane(rt, ahead.lane); !ok {
				length, _ := e.network.LaneLength(ahead.lane)
				return ahead.start + length - e.front(), true
			}
		}
	}
	return 0, false
}

// blockedByLight 车道入口的信号灯是否要求停车，车头已越过停车线时不再停车
func (e *Entity) blockedByLight(rt *runtime, ahead aheadLane) (float64, bool) {
	light, ok := e.network.TrafficLightOf(ahead.lane)
	if !ok {
		return 0, false
	}
	state, err := e.lights.LightState(light)
	if err != nil {
		log.Warnf("%s: %v", e.name, err)
		return 0, false
	}
	d := ahead.start - e.front()
	if d <= 0 {
		return 0, false
	}
	switch state {
	case mapv2.LightState_LIGHT_STATE_RED:
		return d, true
	case mapv2.LightState_LIGHT_STATE_YELLOW:
		return d, d > rt.V*rt.V/2/-e.maxBrakingA
	default:
		return 0, false
	}
}

// remainingToDestination 沿前方车道到目的地的距离
func (e *Entity) remainingToDestination(rt *runtime, lanes []aheadLane) (float64, bool) {
	for _, ahead := range lanes {
		if ahead.lane == rt.Intent.Destination.LaneletID {
			return ahead.start + rt.Intent.Destination.S, true
		}
	}
	return 0, false
}

// desiredSpeed 目标速度：请求的速度；车辆未请求时为车道限速；其他情况保持当前速度
func (e *Entity) desiredSpeed(rt *runtime) float64 {
	if rt.Intent.HasTargetSpeed {
		return math.Min(rt.Intent.TargetSpeed, e.maxV)
	}
	if e.kind == KindVehicle && rt.OnLane {
		if limit, err := e.network.LaneMaxSpeed(rt.Lane); err == nil && limit > 0 {
			return math.Min(limit, e.maxV)
		}
	}
	return math.Min(rt.V, e.maxV)
}

// plan 车道上的纵向决策
// 算法说明：
// 1. 速度控制给出趋向目标速度的加速度
// 2. 跟车（IDM）、停车线、目的地分别给出加速度，取最小者
// 3. 消费排队的变道请求
func (e *Entity) plan(rt *runtime, dt float64) (Action, float64) {
	targetV := e.desiredSpeed(rt)
	ac := Action{A: e.speedControl(rt.V, targetV, dt), Name: ActionFollowLane}
	lanes := e.aheadLanes(rt, e.lookahead(rt.V))
	if e.kind != KindPedestrian {
		if aheadV, gap, ok := e.findLeader(rt, lanes); ok {
			ac.Update(Action{A: e.follow(rt.V, targetV, aheadV, gap)})
		}
	}
	if d, ok := e.stopLine(rt, lanes); ok {
		ac.Update(Action{A: e.stop(rt.V, targetV, d-stopGap, dt), Name: ActionStopAtEnd})
	}
	if rt.Intent.HasDestination {
		if remaining, ok := e.remainingToDestination(rt, lanes); ok {
			if remaining <= arriveTolerance {
				log.Debugf("%s acquired position %v", e.name, rt.Intent.Destination)
				rt.Intent.HasTargetSpeed, rt.Intent.TargetSpeed = true, 0
				rt.Intent.HasDestination = false
				rt.Intent.Route = nil
				ac.Update(Action{A: e.speedControl(rt.V, 0, dt)})
			} else {
				ac.Update(Action{A: e.stop(rt.V, targetV, remaining, dt)})
				ac.Name = ActionAcquirePosition
			}
		} else {
			ac.Name = ActionAcquirePosition
		}
	}
	if rt.Intent.HasPendingLC {
		ac.Update(Action{A: mathutil.INF, LCTarget: rt.Intent.PendingLC, HasLC: true})
		rt.Intent.HasPendingLC = false
	}
	if ac.HasLC || rt.LC.IsLC {
		ac.Name = ActionLaneChange
	}
	return ac, targetV
}

// updateVehicle 车辆（含主车）的运动更新
func (e *Entity) updateVehicle(rt *runtime, dt float64) error {
	if !rt.OnLane {
		e.driveFree(rt, dt, ActionFreeDrive)
		return nil
	}
	oldYaw := rt.Pose.Yaw()
	ac, targetV := e.plan(rt, dt)
	v, d := computeVAndDistance(rt.V, ac.A, dt)
	if math.Abs(v-targetV) < speedEpsilon {
		v = targetV
	}
	if ac.HasLC {
		if err := e.startLaneChange(rt, ac.LCTarget); err != nil {
			return err
		}
	}
	if reachedEnd := e.driveAlongLane(rt, d); reachedEnd {
		v = 0
		ac.Name = ActionStopAtEnd
	}
	if rt.LC.IsLC {
		e.progressLaneChange(rt, d)
	}
	if err := e.refreshPoseOnLane(rt); err != nil {
		return err
	}
	rt.A = (v - rt.V) / dt
	rt.V = v
	rt.Omega = normalizeAngle(rt.Pose.Yaw()-oldYaw) / dt
	rt.Action = ac.Name
	return nil
}

// updatePedestrian 行人的运动更新：沿车道行走或沿朝向直行
func (e *Entity) updatePedestrian(rt *runtime, dt float64) error {
	if rt.Intent.WalkStraight || !rt.OnLane {
		e.driveFree(rt, dt, ActionWalkStraight)
		return nil
	}
	ac, targetV := e.plan(rt, dt)
	v, d := computeVAndDistance(rt.V, ac.A, dt)
	if math.Abs(v-targetV) < speedEpsilon {
		v = targetV
	}
	if reachedEnd := e.driveAlongLane(rt, d); reachedEnd {
		v = 0
		ac.Name = ActionStopAtEnd
	}
	if err := e.refreshPoseOnLane(rt); err != nil {
		return err
	}
	rt.A = (v - rt.V) / dt
	rt.V = v
	rt.Omega = 0
	rt.Action = ac.Name
	return nil
}

// driveFree 不在车道上时沿当前朝向直线运动，并重新匹配车道
func (e *Entity) driveFree(rt *runtime, dt float64, action string) {
	targetV := e.desiredSpeed(rt)
	v, d := computeVAndDistance(rt.V, e.speedControl(rt.V, targetV, dt), dt)
	if math.Abs(v-targetV) < speedEpsilon {
		v = targetV
	}
	heading := rt.Pose.Orientation.Rotate(linalg.Vector3{X: 1})
	rt.Pose.Position = linalg.AddToPoint(rt.Pose.Position, heading.Scale(d))
	rt.XYZ = rt.Pose.Position
	e.refreshLaneFromPose(rt)
	if e.kind != KindPedestrian && rt.OnLane {
		// 重新回到车道后下一步起按车道行驶
		rt.clearLaneChange()
	}
	rt.A = (v - rt.V) / dt
	rt.V = v
	rt.Omega = 0
	rt.Action = action
}

// driveAlongLane 沿车道前进ds，超出车道长度时进入下一条车道
// 返回：是否到达了没有后继的车道末端
func (e *Entity) driveAlongLane(rt *runtime, ds float64) (reachedEnd bool) {
	rt.S += ds
	if rt.LC.IsLC {
		rt.LC.ShadowS += ds
		if shadowLength, err := e.network.LaneLength(rt.LC.ShadowLane); err != nil || rt.LC.ShadowS > shadowLength {
			log.Debugf("%s skipped the change to lane (LC=%+v)", e.name, rt.LC)
			rt.clearLaneChange()
		}
	}
	for {
		length, err := e.network.LaneLength(rt.Lane)
		if err != nil {
			log.Panicf("%s: %v", e.name, err)
		}
		if rt.S <= length {
			return false
		}
		if rt.LC.IsLC {
			log.Debugf("%s skipped the change to lane (LC=%+v)", e.name, rt.LC)
			rt.clearLaneChange()
		}
		next, ok := e.nextLane(rt, rt.Lane)
		if !ok {
			rt.S = length
			return true
		}
		rt.S -= length
		rt.Lane = next
	}
}

// 将角度规范到[-π, π)
func normalizeAngle(a float64) float64 {
	a = math.Mod(a+math.Pi, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a - math.Pi
}
