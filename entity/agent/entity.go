package agent

import (
	"fmt"
	"math"
	"sync"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/scenario-sim/entity"
	"github.com/tsinghua-fib-lab/scenario-sim/utils/linalg"
	"github.com/tsinghua-fib-lab/scenario-sim/utils/simerror"
)

// Kind 实体种类
type Kind int

const (
	KindVehicle Kind = iota
	KindPedestrian
	KindEgo
)

func (k Kind) String() string {
	switch k {
	case KindVehicle:
		return "vehicle"
	case KindPedestrian:
		return "pedestrian"
	case KindEgo:
		return "ego"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// EntityType 对应的实体类型
func (k Kind) EntityType() entity.EntityType {
	switch k {
	case KindPedestrian:
		return entity.EntityTypePedestrian
	case KindEgo:
		return entity.EntityTypeEgo
	default:
		return entity.EntityTypeVehicle
	}
}

// VehicleParameters 车辆参数
type VehicleParameters struct {
	MaxSpeed        float64
	MaxAcceleration float64
	MaxDeceleration float64 // 正数
	BoundingBox     entity.BoundingBox
}

// DefaultVehicleParameters 默认的小汽车参数
func DefaultVehicleParameters() VehicleParameters {
	return VehicleParameters{
		MaxSpeed:        50,
		MaxAcceleration: 3,
		MaxDeceleration: 5,
		BoundingBox: entity.BoundingBox{
			Center:     linalg.Vector3{X: 1.5, Z: 0.75},
			Dimensions: linalg.Vector3{X: 4.5, Y: 1.8, Z: 1.5},
		},
	}
}

// PedestrianParameters 行人参数
type PedestrianParameters struct {
	MaxSpeed        float64
	MaxAcceleration float64
	BoundingBox     entity.BoundingBox
}

// DefaultPedestrianParameters 默认的行人参数
func DefaultPedestrianParameters() PedestrianParameters {
	return PedestrianParameters{
		MaxSpeed:        2.5,
		MaxAcceleration: 1.5,
		BoundingBox: entity.BoundingBox{
			Center:     linalg.Vector3{Z: 0.9},
			Dimensions: linalg.Vector3{X: 0.5, Y: 0.5, Z: 1.8},
		},
	}
}

// Placement 出生位置，车道坐标与自由位姿二选一
type Placement struct {
	Lanelet *entity.LaneletPose
	Pose    *linalg.Pose
	Speed   float64
}

// AtLanelet 在车道坐标处出生
func AtLanelet(pose entity.LaneletPose, speed float64) Placement {
	return Placement{Lanelet: &pose, Speed: speed}
}

// AtPose 在自由位姿处出生
func AtPose(pose linalg.Pose, speed float64) Placement {
	return Placement{Pose: &pose, Speed: speed}
}

// IEntity 实体能力接口
type IEntity interface {
	Name() string
	Kind() Kind
	EntityType() entity.EntityType
	Status() entity.EntityStatus
	BoundingBox() entity.BoundingBox
	UpdateStatus(currentTime, stepTime float64) error

	RequestSpeedChange(target float64, continuous bool)
	RequestLaneChange(direction entity.Direction) error
	RequestAcquirePosition(pose entity.LaneletPose) error
	RequestAssignRoute(waypoints []entity.LaneletPose) error
	RequestWalkStraight() error
	SetLinearVelocity(v float64)

	GetStandStillDuration() float64
	GetLinearJerk() float64
	GetCurrentAction() string
	GetRouteLanelets() []int64
}

// Entity 仿真实体（车辆、行人、主车）
// 功能：以Kind区分行为，维护快照与运行时两份状态
// 说明：UpdateStatus只读取其他实体的快照、只写入自身的runtime，
// 因此同一tick内的多个实体可以并行更新
type Entity struct {
	name string
	kind Kind

	maxV        float64
	maxA        float64
	maxBrakingA float64 // 负数
	bbox        entity.BoundingBox

	network entity.IRoadNetwork
	lights  entity.ITrafficLightManager
	view    entity.IEntityView

	requestMutex sync.Mutex
	requests     []request // 在下一次UpdateStatus开始时依次生效，提交后出队
	consumed     int       // 本tick已应用的请求数

	snapshot      runtime             // 上一tick提交的状态
	runtime       runtime             // 本tick计算中的状态
	status        entity.EntityStatus // 与snapshot对应的对外状态
	pendingStatus entity.EntityStatus
	updateErr     error
}

func newEntity(
	name string, kind Kind,
	maxV, maxA, maxDecel float64, bbox entity.BoundingBox,
	network entity.IRoadNetwork, lights entity.ITrafficLightManager, view entity.IEntityView,
	at Placement, currentTime float64,
) (*Entity, error) {
	if maxV <= 0 || maxA <= 0 || maxDecel <= 0 {
		return nil, simerror.Semantic(name, "entity parameters must be positive (max speed %v, max acceleration %v, max deceleration %v)", maxV, maxA, maxDecel)
	}
	if bbox.Dimensions.X <= 0 || bbox.Dimensions.Y <= 0 {
		return nil, simerror.Semantic(name, "bounding box of %s must have positive length and width", name)
	}
	e := &Entity{
		name:        name,
		kind:        kind,
		maxV:        maxV,
		maxA:        maxA,
		maxBrakingA: -maxDecel,
		bbox:        bbox,
		network:     network,
		lights:      lights,
		view:        view,
		requests:    make([]request, 0),
	}
	rt := runtime{V: at.Speed, Action: ActionWaiting}
	switch {
	case at.Lanelet != nil:
		lp, err := network.Canonicalize(*at.Lanelet)
		if err != nil {
			return nil, err
		}
		rt.OnLane, rt.Lane, rt.S, rt.Offset = true, lp.LaneletID, lp.S, lp.Offset
		rt.LC.Yaw = lp.RPY.Z
		if err := e.refreshPoseOnLane(&rt); err != nil {
			return nil, err
		}
	case at.Pose != nil:
		rt.Pose = *at.Pose
		rt.XYZ = at.Pose.Position
		e.refreshLaneFromPose(&rt)
	default:
		return nil, simerror.Semantic(name, "no spawn position given for %s", name)
	}
	e.snapshot = rt
	e.runtime = rt
	e.status = e.buildStatus(&rt, currentTime)
	e.pendingStatus = e.status
	return e, nil
}

func (e *Entity) Name() string {
	return e.name
}

func (e *Entity) Kind() Kind {
	return e.kind
}

func (e *Entity) EntityType() entity.EntityType {
	return e.kind.EntityType()
}

// Status 上一tick提交的状态
func (e *Entity) Status() entity.EntityStatus {
	return e.status
}

func (e *Entity) BoundingBox() entity.BoundingBox {
	return e.bbox
}

func (e *Entity) GetStandStillDuration() float64 {
	return e.snapshot.StandStill
}

func (e *Entity) GetLinearJerk() float64 {
	return e.snapshot.Jerk
}

func (e *Entity) GetCurrentAction() string {
	return e.snapshot.Action
}

// GetRouteLanelets 从当前车道开始的路线
// 说明：没有指定路线时沿第一个后继车道向前展开，最多100米
func (e *Entity) GetRouteLanelets() []int64 {
	if !e.snapshot.OnLane {
		return nil
	}
	lanes := make([]int64, 0)
	for _, ahead := range e.aheadLanes(&e.snapshot, 100) {
		lanes = append(lanes, ahead.lane)
	}
	return lanes
}

// request 排队的请求，laneChange标记会发起变道的请求
type request struct {
	apply      func(rt *runtime)
	laneChange bool
}

func (e *Entity) enqueue(f func(rt *runtime)) {
	e.requestMutex.Lock()
	defer e.requestMutex.Unlock()
	e.requests = append(e.requests, request{apply: f})
}

// laneChangeQueued 是否有尚未开始的变道请求
func (e *Entity) laneChangeQueued() bool {
	e.requestMutex.Lock()
	defer e.requestMutex.Unlock()
	return e.snapshot.Intent.HasPendingLC || lo.ContainsBy(e.requests, func(r request) bool { return r.laneChange })
}

// RequestSpeedChange 请求变速
// 说明：实体没有其他改写目标速度的来源，continuous与否目标速度都一直保持生效
func (e *Entity) RequestSpeedChange(target float64, continuous bool) {
	target = math.Max(target, 0)
	e.enqueue(func(rt *runtime) {
		log.Debugf("%s speed request %.2f (continuous=%v)", e.name, target, continuous)
		rt.Intent.HasTargetSpeed, rt.Intent.TargetSpeed = true, target
	})
}

// SetTargetSpeed RequestSpeedChange的别名
func (e *Entity) SetTargetSpeed(target float64, continuous bool) {
	e.RequestSpeedChange(target, continuous)
}

// SetLinearVelocity 在下一次更新开始时直接设置速度
func (e *Entity) SetLinearVelocity(v float64) {
	e.enqueue(func(rt *runtime) {
		rt.V = v
	})
}

// RequestLaneChange 请求向左/右侧相邻车道变道
// 返回：行人、不在车道上或没有相邻车道时返回SemanticError，行为不变
func (e *Entity) RequestLaneChange(direction entity.Direction) error {
	if e.kind == KindPedestrian {
		return simerror.Semantic(e.name, "pedestrian %s cannot change lanes", e.name)
	}
	if !e.snapshot.OnLane {
		return simerror.Semantic(e.name, "%s is not on a lanelet", e.name)
	}
	if e.snapshot.LC.IsLC || e.laneChangeQueued() {
		return simerror.Semantic(e.name, "%s is already changing lanes", e.name)
	}
	target, ok := e.network.Neighbor(e.snapshot.Lane, direction)
	if !ok {
		return simerror.Semantic(e.name, "lanelet %d has no %v neighbor", e.snapshot.Lane, direction)
	}
	e.requestMutex.Lock()
	defer e.requestMutex.Unlock()
	e.requests = append(e.requests, request{
		apply: func(rt *runtime) {
			rt.Intent.HasPendingLC, rt.Intent.PendingLC = true, target
		},
		laneChange: true,
	})
	return nil
}

// RequestAcquirePosition 请求行驶到指定车道位置并停下
// 算法说明：优先从当前车道直接规划；不可达时尝试先变道到相邻车道再规划
func (e *Entity) RequestAcquirePosition(pose entity.LaneletPose) error {
	if _, err := e.network.ToMapPose(pose); err != nil {
		return err
	}
	if !e.snapshot.OnLane {
		return simerror.Semantic(e.name, "%s is not on a lanelet", e.name)
	}
	route, ok := e.network.Route(e.snapshot.Lane, pose.LaneletID)
	if ok && route[len(route)-1] == e.snapshot.Lane && pose.S < e.snapshot.S {
		ok = false
	}
	var lc *int64
	if !ok && e.kind != KindPedestrian {
		for _, dir := range []entity.Direction{entity.LEFT, entity.RIGHT} {
			if n, has := e.network.Neighbor(e.snapshot.Lane, dir); has {
				if r, reach := e.network.Route(n, pose.LaneletID); reach {
					route, ok, lc = r, true, &n
					break
				}
			}
		}
	}
	if !ok {
		return simerror.Semantic(e.name, "lanelet %d is unreachable from lanelet %d", pose.LaneletID, e.snapshot.Lane)
	}
	e.requestMutex.Lock()
	defer e.requestMutex.Unlock()
	e.requests = append(e.requests, request{
		apply: func(rt *runtime) {
			rt.Intent.Route = route
			rt.Intent.HasDestination, rt.Intent.Destination = true, pose
			rt.Intent.HasPendingLC = lc != nil
			if lc != nil {
				rt.Intent.PendingLC = *lc
			}
		},
		laneChange: lc != nil,
	})
	return nil
}

// RequestAssignRoute 请求沿途经点行驶
func (e *Entity) RequestAssignRoute(waypoints []entity.LaneletPose) error {
	if len(waypoints) == 0 {
		return simerror.Semantic(e.name, "empty route assigned to %s", e.name)
	}
	if !e.snapshot.OnLane {
		return simerror.Semantic(e.name, "%s is not on a lanelet", e.name)
	}
	route := []int64{e.snapshot.Lane}
	for _, wp := range waypoints {
		if _, err := e.network.ToMapPose(wp); err != nil {
			return err
		}
		last := route[len(route)-1]
		if last == wp.LaneletID {
			continue
		}
		part, ok := e.network.Route(last, wp.LaneletID)
		if !ok {
			return simerror.Semantic(e.name, "lanelet %d is unreachable from lanelet %d", wp.LaneletID, last)
		}
		route = append(route, part[1:]...)
	}
	e.enqueue(func(rt *runtime) {
		rt.Intent.Route = route
	})
	return nil
}

// RequestWalkStraight 请求行人沿当前朝向直行
func (e *Entity) RequestWalkStraight() error {
	if e.kind != KindPedestrian {
		return simerror.Semantic(e.name, "%s is not a pedestrian", e.name)
	}
	e.enqueue(func(rt *runtime) {
		rt.Intent.WalkStraight = true
		rt.OnLane = false
		rt.clearLaneChange()
	})
	return nil
}

// applyRequests 将排队的请求应用到运行时，请求在commit时才出队
func (e *Entity) applyRequests(rt *runtime) {
	e.requestMutex.Lock()
	requests := e.requests[:len(e.requests):len(e.requests)]
	e.consumed = len(requests)
	e.requestMutex.Unlock()
	for _, r := range requests {
		r.apply(rt)
	}
}

// UpdateStatus 推进一个仿真步
// 算法说明：
// 1. 从上一tick快照复制出运行时，应用排队的请求
// 2. 按实体种类执行运动更新
// 3. 计算加加速度与静止时长，生成待提交的状态
func (e *Entity) UpdateStatus(currentTime, stepTime float64) error {
	if stepTime <= 0 {
		return simerror.Semantic(e.name, "step time must be positive, got %v", stepTime)
	}
	rt := e.snapshot
	e.applyRequests(&rt)
	var err error
	if e.kind == KindPedestrian {
		err = e.updatePedestrian(&rt, stepTime)
	} else {
		err = e.updateVehicle(&rt, stepTime)
	}
	if err != nil {
		return err
	}
	rt.Jerk = (rt.A - e.snapshot.A) / stepTime
	if rt.V == 0 {
		rt.StandStill += stepTime
	} else {
		rt.StandStill = 0
	}
	e.runtime = rt
	e.pendingStatus = e.buildStatus(&rt, currentTime+stepTime)
	return nil
}

// commit 将本tick的运行时写入快照，并移除已应用的请求
func (e *Entity) commit() {
	e.requestMutex.Lock()
	e.requests = append(make([]request, 0, len(e.requests)-e.consumed), e.requests[e.consumed:]...)
	e.consumed = 0
	e.requestMutex.Unlock()
	e.snapshot = e.runtime
	e.status = e.pendingStatus
}

// overwrite 直接以外部给定的状态覆盖快照与运行时
func (e *Entity) overwrite(status entity.EntityStatus) error {
	rt := e.snapshot
	rt.clearLaneChange()
	rt.V = status.Twist.Linear.X
	rt.A = status.Accel.Linear.X
	if status.LaneletPoseValid {
		lp, err := e.network.Canonicalize(status.LaneletPose)
		if err != nil {
			return err
		}
		rt.OnLane, rt.Lane, rt.S, rt.Offset = true, lp.LaneletID, lp.S, lp.Offset
		rt.LC.Yaw = lp.RPY.Z
		if err := e.refreshPoseOnLane(&rt); err != nil {
			return err
		}
	} else {
		rt.Pose = status.Pose
		rt.XYZ = status.Pose.Position
		e.refreshLaneFromPose(&rt)
	}
	e.snapshot = rt
	e.runtime = rt
	e.status = e.buildStatus(&rt, status.Time)
	e.pendingStatus = e.status
	return nil
}

func (e *Entity) buildStatus(rt *runtime, t float64) entity.EntityStatus {
	s := entity.EntityStatus{
		Time:        t,
		Name:        e.name,
		Type:        e.kind.EntityType(),
		BoundingBox: e.bbox,
		Pose:        rt.Pose,
		Twist: entity.Twist{
			Linear:  linalg.Vector3{X: rt.V},
			Angular: linalg.Vector3{Z: rt.Omega},
		},
		Accel: entity.Accel{
			Linear: linalg.Vector3{X: rt.A},
		},
		LaneletPoseValid: rt.OnLane,
	}
	if rt.OnLane {
		s.LaneletPose = entity.LaneletPose{
			LaneletID: rt.Lane,
			S:         rt.S,
			Offset:    rt.Offset,
			RPY:       linalg.Vector3{Z: rt.LC.Yaw},
		}
	}
	return s
}

// 由车道坐标（含变道中的原车道映射）计算自由位姿
func (e *Entity) refreshPoseOnLane(rt *runtime) error {
	pose, err := e.network.ToMapPose(entity.LaneletPose{
		LaneletID: rt.Lane, S: rt.S, Offset: rt.Offset,
		RPY: linalg.Vector3{Z: rt.LC.Yaw},
	})
	if err != nil {
		return err
	}
	if rt.LC.IsLC {
		shadow, err := e.network.ToMapPose(entity.LaneletPose{
			LaneletID: rt.LC.ShadowLane, S: rt.LC.ShadowS, Offset: rt.Offset,
		})
		if err != nil {
			return err
		}
		pose.Position = geometry.Blend(shadow.Position, pose.Position, rt.LC.CompletedRatio)
	}
	rt.Pose = pose
	rt.XYZ = pose.Position
	return nil
}

// 由自由位姿匹配车道
func (e *Entity) refreshLaneFromPose(rt *runtime) {
	lp, ok := e.network.ToLaneletPose(rt.Pose, e.kind == KindPedestrian)
	rt.OnLane = ok
	if ok {
		rt.Lane, rt.S, rt.Offset = lp.LaneletID, lp.S, lp.Offset
	}
}
