package trafficlight

import (
	"fmt"
	"sort"
	"sync"

	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/scenario-sim/entity"
	"github.com/tsinghua-fib-lab/scenario-sim/utils/simerror"
)

// Manager 信号灯管理器
// 功能：按需创建信号灯，转发设置与查询，按ID顺序推进所有信号灯
// 说明：Set*与Update只在tick之间调用；LightState在实体并行更新中只读调用，不会创建信号灯；
// RPC的修改请求缓冲到下一次Update开始时执行
type Manager struct {
	network entity.IRoadNetwork

	mtx    sync.RWMutex            // 保护信号灯状态，供RPC并发读取
	lights map[int64]*TrafficLight // 已创建的信号灯
	ids    []int64                 // 已创建信号灯ID（升序）

	requestMtx sync.Mutex
	requests   []func() error // 待执行的RPC修改请求
}

// NewManager 创建信号灯管理器
func NewManager(network entity.IRoadNetwork) *Manager {
	return &Manager{
		network:  network,
		lights:   make(map[int64]*TrafficLight),
		ids:      make([]int64, 0),
		requests: make([]func() error, 0),
	}
}

// Get 获取信号灯，首次访问时创建
// 返回：id不是信号灯时返回SemanticError
func (m *Manager) Get(id int64) (*TrafficLight, error) {
	m.mtx.RLock()
	l, ok := m.lights[id]
	m.mtx.RUnlock()
	if ok {
		return l, nil
	}
	if !m.network.IsTrafficLight(id) {
		return nil, simerror.Semantic(fmt.Sprint(id), "invalid traffic light ID %d given", id)
	}
	m.mtx.Lock()
	defer m.mtx.Unlock()
	if l, ok := m.lights[id]; ok {
		return l, nil
	}
	l = newTrafficLight(id)
	m.lights[id] = l
	i := sort.Search(len(m.ids), func(i int) bool { return m.ids[i] >= id })
	m.ids = append(m.ids, 0)
	copy(m.ids[i+1:], m.ids[i:])
	m.ids[i] = id
	log.Debugf("traffic light %d created", id)
	return l, nil
}

// with 获取（必要时创建）信号灯并在写锁内修改
func (m *Manager) with(id int64, f func(l *TrafficLight) error) error {
	l, err := m.Get(id)
	if err != nil {
		return err
	}
	m.mtx.Lock()
	defer m.mtx.Unlock()
	return f(l)
}

// LoadPrograms 用地图中的固定相位程序初始化信号灯
func (m *Manager) LoadPrograms(ids []int64, program func(id int64) (*mapv2.TrafficLight, bool)) error {
	for _, id := range ids {
		tl, ok := program(id)
		if !ok {
			continue
		}
		if err := m.SetColorPhase(id, PhasesFromProgram(tl)); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) SetColor(id int64, c LightColor) error {
	return m.with(id, func(l *TrafficLight) error {
		l.SetColor(c)
		return nil
	})
}

func (m *Manager) GetColor(id int64) (LightColor, error) {
	l, err := m.Get(id)
	if err != nil {
		return ColorNone, err
	}
	return l.Color(), nil
}

func (m *Manager) SetArrow(id int64, a LightArrow) error {
	return m.with(id, func(l *TrafficLight) error {
		l.SetArrow(a)
		return nil
	})
}

func (m *Manager) GetArrow(id int64) (LightArrow, error) {
	l, err := m.Get(id)
	if err != nil {
		return ArrowNone, err
	}
	return l.Arrow(), nil
}

func (m *Manager) SetColorPhase(id int64, phases []Phase[LightColor]) error {
	return m.with(id, func(l *TrafficLight) error {
		return l.SetColorPhase(phases)
	})
}

func (m *Manager) SetArrowPhase(id int64, phases []Phase[LightArrow]) error {
	return m.with(id, func(l *TrafficLight) error {
		return l.SetArrowPhase(phases)
	})
}

// UnsetColorPhase 取消颜色相位，信号灯保持绿灯
func (m *Manager) UnsetColorPhase(id int64) error {
	return m.with(id, func(l *TrafficLight) error {
		l.UnsetColorPhase()
		return nil
	})
}

// SetBulbs 用灯泡描述替换信号灯的灯泡集合
func (m *Manager) SetBulbs(id int64, descriptions []string) error {
	bulbs := make([]Bulb, 0, len(descriptions))
	for _, d := range descriptions {
		b, err := ParseBulb(d)
		if err != nil {
			return err
		}
		bulbs = append(bulbs, b)
	}
	return m.with(id, func(l *TrafficLight) error {
		l.Clear()
		for _, b := range bulbs {
			l.Emplace(b)
		}
		return nil
	})
}

// enqueue 缓冲一个修改请求
func (m *Manager) enqueue(f func() error) {
	m.requestMtx.Lock()
	defer m.requestMtx.Unlock()
	m.requests = append(m.requests, f)
}

// applyRequests 按到达顺序执行缓冲的修改请求，失败的请求只记录日志
func (m *Manager) applyRequests() {
	m.requestMtx.Lock()
	requests := m.requests
	m.requests = make([]func() error, 0)
	m.requestMtx.Unlock()
	for _, f := range requests {
		if err := f(); err != nil {
			log.Warnf("traffic light request rejected: %v", err)
		}
	}
}

// LightState 信号灯当前的车道级灯色，尚未创建的信号灯视为绿灯
func (m *Manager) LightState(id int64) (mapv2.LightState, error) {
	m.mtx.RLock()
	l, ok := m.lights[id]
	m.mtx.RUnlock()
	if ok {
		return l.LightState(), nil
	}
	if !m.network.IsTrafficLight(id) {
		return mapv2.LightState_LIGHT_STATE_UNSPECIFIED, simerror.Semantic(fmt.Sprint(id), "invalid traffic light ID %d given", id)
	}
	return mapv2.LightState_LIGHT_STATE_GREEN, nil
}

// Update 执行缓冲的修改请求后按ID顺序推进所有信号灯
func (m *Manager) Update(dt float64) {
	m.applyRequests()
	m.mtx.Lock()
	defer m.mtx.Unlock()
	for _, id := range m.ids {
		m.lights[id].Update(dt)
	}
}

// HasAnyLightChanged 是否有信号灯的颜色或箭头自上次Update以来发生变化
func (m *Manager) HasAnyLightChanged() bool {
	return lo.SomeBy(m.ids, func(id int64) bool {
		l := m.lights[id]
		return l.ColorChanged() || l.ArrowChanged()
	})
}

// Signals 按ID顺序输出所有信号灯
func (m *Manager) Signals() []Signal {
	return lo.Map(m.ids, func(id int64, _ int) Signal { return m.lights[id].ToSignal() })
}
