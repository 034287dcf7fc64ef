package agent

import (
	"github.com/tsinghua-fib-lab/scenario-sim/entity/trafficlight"
)

// 信号灯接口转发

func (m *Manager) SetTrafficLightColor(id int64, c trafficlight.LightColor) error {
	return m.lights.SetColor(id, c)
}

func (m *Manager) GetTrafficLightColor(id int64) (trafficlight.LightColor, error) {
	return m.lights.GetColor(id)
}

func (m *Manager) SetTrafficLightArrow(id int64, a trafficlight.LightArrow) error {
	return m.lights.SetArrow(id, a)
}

func (m *Manager) GetTrafficLightArrow(id int64) (trafficlight.LightArrow, error) {
	return m.lights.GetArrow(id)
}

func (m *Manager) SetTrafficLightColorPhase(id int64, phases []trafficlight.Phase[trafficlight.LightColor]) error {
	return m.lights.SetColorPhase(id, phases)
}

func (m *Manager) SetTrafficLightArrowPhase(id int64, phases []trafficlight.Phase[trafficlight.LightArrow]) error {
	return m.lights.SetArrowPhase(id, phases)
}

// TrafficLights 信号灯管理器
func (m *Manager) TrafficLights() *trafficlight.Manager {
	return m.lights
}
