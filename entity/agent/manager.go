package agent

import (
	"fmt"
	"math"
	"strings"

	"git.fiblab.net/general/common/v2/parallel"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/scenario-sim/entity"
	"github.com/tsinghua-fib-lab/scenario-sim/entity/trafficlight"
	"github.com/tsinghua-fib-lab/scenario-sim/utils"
	"github.com/tsinghua-fib-lab/scenario-sim/utils/container"
	"github.com/tsinghua-fib-lab/scenario-sim/utils/linalg"
	"github.com/tsinghua-fib-lab/scenario-sim/utils/simerror"
)

// 判定静止的速度阈值
const stoppingEpsilon = 1e-6

// DerivedState 每个tick结束后重新发布的派生状态
type DerivedState struct {
	Time     float64
	Statuses []entity.EntityStatus
	Signals  []trafficlight.Signal
}

// Manager 实体管理器
// 功能：按插入顺序管理所有实体，负责生成、删除、逐步更新与空间查询
// 说明：tick内部的生成/删除请求进入缓冲区，在下一个tick边界统一生效
type Manager struct {
	network entity.IRoadNetwork
	lights  *trafficlight.Manager

	entities *container.OrderedRegistry[*Entity]

	// 上一tick提交的快照（按插入顺序）
	snapshots     []entity.EntityStatus
	snapshotIndex map[string]entity.EntityStatus

	updating    bool
	currentTime float64
	stepTime    float64
	derived     DerivedState
}

// NewManager 创建实体管理器
func NewManager(network entity.IRoadNetwork, lights *trafficlight.Manager) *Manager {
	return &Manager{
		network:       network,
		lights:        lights,
		entities:      container.NewOrderedRegistry[*Entity](),
		snapshots:     make([]entity.EntityStatus, 0),
		snapshotIndex: make(map[string]entity.EntityStatus),
	}
}

// Snapshots 上一tick提交的所有实体状态（按插入顺序，只读）
func (m *Manager) Snapshots() []entity.EntityStatus {
	return m.snapshots
}

// Derived 最近一次发布的派生状态
func (m *Manager) Derived() DerivedState {
	return m.derived
}

// republish 按插入顺序重建快照与派生状态
func (m *Manager) republish() {
	data := m.entities.Data()
	m.snapshots = make([]entity.EntityStatus, len(data))
	m.snapshotIndex = make(map[string]entity.EntityStatus, len(data))
	for i, e := range data {
		m.snapshots[i] = e.Status()
		m.snapshotIndex[e.Name()] = m.snapshots[i]
	}
	m.derived = DerivedState{
		Time:     m.currentTime,
		Statuses: m.snapshots,
		Signals:  m.lights.Signals(),
	}
}

// applyPending 执行缓冲的生成与删除
func (m *Manager) applyPending() {
	adds, removes := m.entities.Pending()
	if adds == 0 && removes == 0 {
		return
	}
	for _, dropped := range m.entities.Prepare() {
		log.Errorf("entity %s dropped because of a duplicate name", dropped.Name())
	}
	m.republish()
}

func (m *Manager) spawn(
	name string, kind Kind, maxV, maxA, maxDecel float64, bbox entity.BoundingBox, at Placement,
) error {
	if strings.TrimSpace(name) == "" {
		return simerror.Semantic(name, "entity name must not be empty")
	}
	if m.entities.Has(name) {
		return simerror.AlreadyExists(name)
	}
	e, err := newEntity(name, kind, maxV, maxA, maxDecel, bbox, m.network, m.lights, m, at, m.currentTime)
	if err != nil {
		return err
	}
	m.entities.Add(e)
	if !m.updating {
		m.applyPending()
	}
	log.Debugf("%s %s spawned at %v", kind, name, e.status.Pose.Position)
	return nil
}

// SpawnVehicle 生成NPC车辆
func (m *Manager) SpawnVehicle(name string, at Placement, params VehicleParameters) error {
	return m.spawn(name, KindVehicle, params.MaxSpeed, params.MaxAcceleration, params.MaxDeceleration, params.BoundingBox, at)
}

// SpawnEgo 生成主车
func (m *Manager) SpawnEgo(name string, at Placement, params VehicleParameters) error {
	return m.spawn(name, KindEgo, params.MaxSpeed, params.MaxAcceleration, params.MaxDeceleration, params.BoundingBox, at)
}

// SpawnPedestrian 生成行人
// 说明：行人以最大加速度作为减速度
func (m *Manager) SpawnPedestrian(name string, at Placement, params PedestrianParameters) error {
	return m.spawn(name, KindPedestrian, params.MaxSpeed, params.MaxAcceleration, params.MaxAcceleration, params.BoundingBox, at)
}

// DespawnEntity 删除实体
func (m *Manager) DespawnEntity(name string) error {
	if !m.entities.Has(name) {
		return simerror.NotExist(name)
	}
	m.entities.Remove(name)
	if !m.updating {
		m.applyPending()
	}
	log.Debugf("%s despawned", name)
	return nil
}

// EntityExists 实体是否存在（含本tick内已请求生成的实体）
func (m *Manager) EntityExists(name string) bool {
	return m.entities.Has(name)
}

// Get 获取已生效的实体
func (m *Manager) Get(name string) (*Entity, error) {
	if e, ok := m.entities.Get(name); ok && !m.entities.IsRemovalPending(name) {
		return e, nil
	}
	return nil, simerror.NotExist(name)
}

// committed 获取已生效的实体，供只读查询使用
// 说明：tick内请求删除的实体在下一个tick边界前仍可读，与快照保持一致
func (m *Manager) committed(name string) (*Entity, error) {
	if e, ok := m.entities.Get(name); ok {
		return e, nil
	}
	return nil, simerror.NotExist(name)
}

// Update 推进一个仿真步
// 算法说明：
// 1. 执行缓冲的生成/删除
// 2. 所有实体基于上一tick的快照并行更新（每个实体只写自己的runtime）
// 3. 任一实体出错则中止本tick，按插入顺序返回第一个错误
// 4. 按插入顺序提交快照并重新发布派生状态，最后推进信号灯
func (m *Manager) Update(currentTime, stepTime float64) error {
	m.applyPending()
	m.stepTime = stepTime
	m.updating = true
	entities := m.entities.Data()
	parallel.GoFor(entities, func(e *Entity) {
		e.updateErr = e.UpdateStatus(currentTime, stepTime)
	})
	m.updating = false
	for _, e := range entities {
		if e.updateErr != nil {
			return fmt.Errorf("update entity %s: %w", e.Name(), e.updateErr)
		}
	}
	for _, e := range entities {
		e.commit()
	}
	m.currentTime = currentTime + stepTime
	m.republish()
	m.lights.Update(stepTime)
	return nil
}

// BeginTick 标记tick开始，此后的生成/删除请求延迟到下一个tick边界
func (m *Manager) BeginTick() {
	m.updating = true
}

// EndTick 标记tick结束，但不执行缓冲的请求
func (m *Manager) EndTick() {
	m.updating = false
}

func (m *Manager) GetCurrentTime() float64 {
	return m.currentTime
}

func (m *Manager) GetStepTime() float64 {
	return m.stepTime
}

// GetEntityStatus 上一tick提交的实体状态
func (m *Manager) GetEntityStatus(name string) (entity.EntityStatus, error) {
	if s, ok := m.snapshotIndex[name]; ok {
		return s, nil
	}
	return entity.EntityStatus{}, simerror.NotExist(name)
}

// GetEntityStatuses 批量获取实体状态，names为空时返回全部
func (m *Manager) GetEntityStatuses(names []string) ([]entity.EntityStatus, error) {
	statuses, failed := utils.Find(m.snapshotIndex, m.snapshots, names)
	if len(failed) > 0 {
		return nil, simerror.NotExist(strings.Join(failed, ","))
	}
	return statuses, nil
}

// SetEntityStatus 直接设置实体状态（位姿、速度、加速度）
// 说明：LaneletPoseValid为true时以车道坐标为准，否则以自由位姿为准
func (m *Manager) SetEntityStatus(name string, status entity.EntityStatus) error {
	e, err := m.Get(name)
	if err != nil {
		return err
	}
	if err := e.overwrite(status); err != nil {
		return err
	}
	m.republish()
	return nil
}

// EntityStatusSet 实体是否已有有效状态
func (m *Manager) EntityStatusSet(name string) bool {
	_, ok := m.snapshotIndex[name]
	return ok
}

// GetEntityNames 按插入顺序的实体名
func (m *Manager) GetEntityNames() []string {
	return m.entities.Names()
}

// GetEntityTypeList 实体名到实体类型的映射
func (m *Manager) GetEntityTypeList() map[string]entity.EntityType {
	return lo.SliceToMap(m.entities.Data(), func(e *Entity) (string, entity.EntityType) {
		return e.Name(), e.EntityType()
	})
}

func (m *Manager) IsEgo(name string) bool {
	e, err := m.committed(name)
	return err == nil && e.Kind() == KindEgo
}

func (m *Manager) GetNumberOfEgo() int {
	return lo.CountBy(m.entities.Data(), func(e *Entity) bool { return e.Kind() == KindEgo })
}

// GetEgoName 唯一主车的名称
func (m *Manager) GetEgoName() (string, error) {
	egos := lo.Filter(m.entities.Data(), func(e *Entity, _ int) bool { return e.Kind() == KindEgo })
	if len(egos) != 1 {
		return "", simerror.Semantic("ego", "expected exactly one ego, found %d", len(egos))
	}
	return egos[0].Name(), nil
}

// IsStopping 速度是否为0
func (m *Manager) IsStopping(name string) (bool, error) {
	s, err := m.GetEntityStatus(name)
	if err != nil {
		return false, err
	}
	return math.Abs(s.Twist.Linear.X) < stoppingEpsilon, nil
}

// GetLaneletPose 实体的车道坐标，不在车道上时返回false
func (m *Manager) GetLaneletPose(name string) (entity.LaneletPose, bool, error) {
	s, err := m.GetEntityStatus(name)
	if err != nil {
		return entity.LaneletPose{}, false, err
	}
	return s.LaneletPose, s.LaneletPoseValid, nil
}

// GetMapPose 实体的自由位姿
func (m *Manager) GetMapPose(name string) (linalg.Pose, error) {
	s, err := m.GetEntityStatus(name)
	if err != nil {
		return linalg.Pose{}, err
	}
	return s.Pose, nil
}

// GetMapPoseFrom 以参考实体为原点的相对位姿转换为自由位姿
func (m *Manager) GetMapPoseFrom(reference string, relative linalg.Pose) (linalg.Pose, error) {
	ref, err := m.GetMapPose(reference)
	if err != nil {
		return linalg.Pose{}, err
	}
	return linalg.TransformPose(ref, relative), nil
}

// GetStandStillDuration 连续静止时长
func (m *Manager) GetStandStillDuration(name string) (float64, error) {
	e, err := m.committed(name)
	if err != nil {
		return 0, err
	}
	return e.GetStandStillDuration(), nil
}

// GetLinearJerk 纵向加加速度
func (m *Manager) GetLinearJerk(name string) (float64, error) {
	e, err := m.committed(name)
	if err != nil {
		return 0, err
	}
	return e.GetLinearJerk(), nil
}

// GetCurrentAction 当前动作名
func (m *Manager) GetCurrentAction(name string) (string, error) {
	e, err := m.committed(name)
	if err != nil {
		return "", err
	}
	return e.GetCurrentAction(), nil
}

// GetRouteLanelets 实体前方的路线
func (m *Manager) GetRouteLanelets(name string) ([]int64, error) {
	e, err := m.committed(name)
	if err != nil {
		return nil, err
	}
	return e.GetRouteLanelets(), nil
}

// RequestSpeedChange 请求变速
func (m *Manager) RequestSpeedChange(name string, target float64, continuous bool) error {
	e, err := m.Get(name)
	if err != nil {
		return err
	}
	e.RequestSpeedChange(target, continuous)
	return nil
}

// SetLinearVelocity 直接设置速度
func (m *Manager) SetLinearVelocity(name string, v float64) error {
	e, err := m.Get(name)
	if err != nil {
		return err
	}
	e.SetLinearVelocity(v)
	return nil
}

// RequestLaneChange 请求变道
func (m *Manager) RequestLaneChange(name string, direction entity.Direction) error {
	e, err := m.Get(name)
	if err != nil {
		return err
	}
	return e.RequestLaneChange(direction)
}

// RequestAcquirePosition 请求行驶到指定位置
func (m *Manager) RequestAcquirePosition(name string, pose entity.LaneletPose) error {
	e, err := m.Get(name)
	if err != nil {
		return err
	}
	return e.RequestAcquirePosition(pose)
}

// RequestAssignRoute 请求沿途经点行驶
func (m *Manager) RequestAssignRoute(name string, waypoints []entity.LaneletPose) error {
	e, err := m.Get(name)
	if err != nil {
		return err
	}
	return e.RequestAssignRoute(waypoints)
}

// RequestWalkStraight 请求行人直行
func (m *Manager) RequestWalkStraight(name string) error {
	e, err := m.Get(name)
	if err != nil {
		return err
	}
	return e.RequestWalkStraight()
}

// ToLaneletPose 转发路网的位姿匹配
func (m *Manager) ToLaneletPose(pose linalg.Pose, includeCrosswalk bool) (entity.LaneletPose, bool) {
	return m.network.ToLaneletPose(pose, includeCrosswalk)
}

// GenerateMarker 转发路网的可视化图元
func (m *Manager) GenerateMarker() []entity.Marker {
	return m.network.GenerateMarker()
}
