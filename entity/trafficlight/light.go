package trafficlight

import (
	"fmt"
	"sort"

	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
)

// LightColor 传统接口的信号灯颜色
type LightColor int

const (
	ColorNone LightColor = iota
	ColorRed
	ColorGreen
	ColorYellow
)

func (c LightColor) String() string {
	switch c {
	case ColorNone:
		return "none"
	case ColorRed:
		return "red"
	case ColorGreen:
		return "green"
	case ColorYellow:
		return "yellow"
	default:
		return fmt.Sprintf("LightColor(%d)", int(c))
	}
}

// ParseLightColor 解析传统颜色名
func ParseLightColor(name string) (LightColor, error) {
	switch name {
	case "none", "":
		return ColorNone, nil
	case "red":
		return ColorRed, nil
	case "green":
		return ColorGreen, nil
	case "yellow", "amber":
		return ColorYellow, nil
	default:
		return ColorNone, fmt.Errorf("invalid traffic light color %q", name)
	}
}

// LightArrow 传统接口的箭头灯
type LightArrow int

const (
	ArrowNone LightArrow = iota
	ArrowStraight
	ArrowLeft
	ArrowRight
)

func (a LightArrow) String() string {
	switch a {
	case ArrowNone:
		return "none"
	case ArrowStraight:
		return "straight"
	case ArrowLeft:
		return "left"
	case ArrowRight:
		return "right"
	default:
		return fmt.Sprintf("LightArrow(%d)", int(a))
	}
}

// TrafficLight 信号灯
// 功能：同时维护传统的颜色/箭头状态与灯泡集合，可选地按相位循环切换颜色
type TrafficLight struct {
	id int64

	color        LightColor
	arrow        LightArrow
	colorChanged bool
	arrowChanged bool

	bulbs []Bulb // 按Value升序且去重

	colorPhase *cycle[LightColor]
	arrowPhase *cycle[LightArrow]
}

func newTrafficLight(id int64) *TrafficLight {
	return &TrafficLight{id: id, color: ColorGreen, arrow: ArrowNone}
}

func (l *TrafficLight) ID() int64 {
	return l.id
}

func (l *TrafficLight) SetColor(c LightColor) {
	l.color = c
	l.colorChanged = true
}

func (l *TrafficLight) SetArrow(a LightArrow) {
	l.arrow = a
	l.arrowChanged = true
}

func (l *TrafficLight) Color() LightColor {
	return l.color
}

func (l *TrafficLight) Arrow() LightArrow {
	return l.arrow
}

// ColorChanged 自上次Update以来颜色是否被设置过
func (l *TrafficLight) ColorChanged() bool {
	return l.colorChanged
}

// ArrowChanged 自上次Update以来箭头是否被设置过
func (l *TrafficLight) ArrowChanged() bool {
	return l.arrowChanged
}

// SetColorPhase 设置颜色相位并立即切到第一个相位
func (l *TrafficLight) SetColorPhase(phases []Phase[LightColor]) error {
	c, err := newCycle(phases)
	if err != nil {
		return fmt.Errorf("traffic light %d: %w", l.id, err)
	}
	l.colorPhase = c
	l.SetColor(c.current())
	return nil
}

// SetArrowPhase 设置箭头相位并立即切到第一个相位
func (l *TrafficLight) SetArrowPhase(phases []Phase[LightArrow]) error {
	c, err := newCycle(phases)
	if err != nil {
		return fmt.Errorf("traffic light %d: %w", l.id, err)
	}
	l.arrowPhase = c
	l.SetArrow(c.current())
	return nil
}

// ColorPhase 当前的颜色相位、相位下标与剩余时间；未设置相位时ok为false
func (l *TrafficLight) ColorPhase() (phases []Phase[LightColor], step int32, remaining float64, ok bool) {
	if l.colorPhase == nil {
		return nil, 0, 0, false
	}
	return l.colorPhase.phases, int32(l.colorPhase.step), l.colorPhase.remaining, true
}

// JumpColorPhase 跳转到指定颜色相位
func (l *TrafficLight) JumpColorPhase(step int32, remaining float64) error {
	if l.colorPhase == nil {
		return fmt.Errorf("traffic light %d has no color phase", l.id)
	}
	if err := l.colorPhase.jump(step, remaining); err != nil {
		return fmt.Errorf("traffic light %d: %w", l.id, err)
	}
	l.SetColor(l.colorPhase.current())
	return nil
}

// UnsetColorPhase 取消颜色相位，信号灯保持绿灯
func (l *TrafficLight) UnsetColorPhase() {
	l.colorPhase = nil
	l.SetColor(ColorGreen)
}

// Emplace 加入灯泡，重复的灯泡只保留一个
func (l *TrafficLight) Emplace(b Bulb) {
	i := sort.Search(len(l.bulbs), func(i int) bool { return l.bulbs[i].Value() >= b.Value() })
	if i < len(l.bulbs) && l.bulbs[i] == b {
		return
	}
	l.bulbs = append(l.bulbs, Bulb{})
	copy(l.bulbs[i+1:], l.bulbs[i:])
	l.bulbs[i] = b
}

// Clear 清空灯泡
func (l *TrafficLight) Clear() {
	l.bulbs = l.bulbs[:0]
}

// Contains 是否包含指定灯泡
func (l *TrafficLight) Contains(b Bulb) bool {
	i := sort.Search(len(l.bulbs), func(i int) bool { return l.bulbs[i].Value() >= b.Value() })
	return i < len(l.bulbs) && l.bulbs[i] == b
}

// Bulbs 按Value升序的灯泡列表（只读）
func (l *TrafficLight) Bulbs() []Bulb {
	return l.bulbs
}

// Update 推进相位计时；只清除变化标记，不改变当前状态
func (l *TrafficLight) Update(dt float64) {
	l.colorChanged = false
	l.arrowChanged = false
	if l.colorPhase != nil && l.colorPhase.advance(dt) {
		l.SetColor(l.colorPhase.current())
	}
	if l.arrowPhase != nil && l.arrowPhase.advance(dt) {
		l.SetArrow(l.arrowPhase.current())
	}
}

// Signal 对外输出的信号灯
type Signal struct {
	ID     int64
	Lights []SignalLight
}

// ToSignal 按灯泡Value顺序转换为对外输出格式
func (l *TrafficLight) ToSignal() Signal {
	s := Signal{ID: l.id, Lights: make([]SignalLight, 0, len(l.bulbs))}
	for _, b := range l.bulbs {
		s.Lights = append(s.Lights, b.ToSignalLight())
	}
	return s
}

// LightState 车道级灯色
// 说明：存在点亮的圆形灯泡时以灯泡颜色为准，否则使用传统颜色
func (l *TrafficLight) LightState() mapv2.LightState {
	for _, b := range l.bulbs {
		if b.Shape.Category() == CategoryCircle && b.Status.IsLit() {
			switch b.Color {
			case Green:
				return mapv2.LightState_LIGHT_STATE_GREEN
			case Amber:
				return mapv2.LightState_LIGHT_STATE_YELLOW
			case Red:
				return mapv2.LightState_LIGHT_STATE_RED
			default:
				return mapv2.LightState_LIGHT_STATE_UNSPECIFIED
			}
		}
	}
	return colorToLightState(l.color)
}

func colorToLightState(c LightColor) mapv2.LightState {
	switch c {
	case ColorGreen:
		return mapv2.LightState_LIGHT_STATE_GREEN
	case ColorYellow:
		return mapv2.LightState_LIGHT_STATE_YELLOW
	case ColorRed:
		return mapv2.LightState_LIGHT_STATE_RED
	default:
		return mapv2.LightState_LIGHT_STATE_UNSPECIFIED
	}
}
