package trafficlight

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/scenario-sim/utils/simerror"
)

// Color 灯泡颜色
type Color uint8

const (
	Amber Color = iota
	Green
	Red
	White
)

var colorNames = map[string]Color{
	"amber":  Amber,
	"green":  Green,
	"red":    Red,
	"white":  White,
	"yellow": Amber, // 已废弃的别名
}

func (c Color) String() string {
	switch c {
	case Amber:
		return "amber"
	case Green:
		return "green"
	case Red:
		return "red"
	case White:
		return "white"
	default:
		return fmt.Sprintf("Color(%d)", uint8(c))
	}
}

// ParseColor 解析颜色名
func ParseColor(name string) (Color, error) {
	if c, ok := colorNames[name]; ok {
		return c, nil
	}
	return Green, simerror.Semantic(name, "invalid traffic light color name %q given", name)
}

// Status 灯泡状态
type Status uint8

const (
	SolidOn Status = iota
	SolidOff
	Flashing
	Unknown
)

var statusNames = map[string]Status{
	"solidOn":  SolidOn,
	"solidOff": SolidOff,
	"flashing": Flashing,
	"unknown":  Unknown,
}

func (s Status) String() string {
	switch s {
	case SolidOn:
		return "solidOn"
	case SolidOff:
		return "solidOff"
	case Flashing:
		return "flashing"
	default:
		return "unknown"
	}
}

// IsLit 灯泡是否点亮（常亮或闪烁）
func (s Status) IsLit() bool {
	return s == SolidOn || s == Flashing
}

// ParseStatus 解析状态名
func ParseStatus(name string) (Status, error) {
	if s, ok := statusNames[name]; ok {
		return s, nil
	}
	return SolidOn, simerror.Semantic(name, "invalid traffic light status name %q given", name)
}

// ShapeCategory 形状大类
type ShapeCategory uint8

const (
	CategoryCircle ShapeCategory = iota
	CategoryCross
	CategoryArrow
)

// Shape 灯泡形状
// 说明：低4位为大类，箭头的高4位依次表示 左/下/上/右 分量
type Shape uint16

const (
	Circle     Shape = Shape(CategoryCircle)
	Cross      Shape = Shape(CategoryCross)
	Left       Shape = 0b1000<<4 | Shape(CategoryArrow)
	Down       Shape = 0b0100<<4 | Shape(CategoryArrow)
	Up         Shape = 0b0010<<4 | Shape(CategoryArrow)
	Right      Shape = 0b0001<<4 | Shape(CategoryArrow)
	LowerLeft  Shape = 0b1100<<4 | Shape(CategoryArrow)
	UpperLeft  Shape = 0b1010<<4 | Shape(CategoryArrow)
	LowerRight Shape = 0b0101<<4 | Shape(CategoryArrow)
	UpperRight Shape = 0b0011<<4 | Shape(CategoryArrow)
)

var shapeNames = map[string]Shape{
	"circle":     Circle,
	"cross":      Cross,
	"left":       Left,
	"down":       Down,
	"up":         Up,
	"right":      Right,
	"lowerLeft":  LowerLeft,
	"upperLeft":  UpperLeft,
	"lowerRight": LowerRight,
	"upperRight": UpperRight,
}

func (s Shape) String() string {
	for name, v := range shapeNames {
		if v == s {
			return name
		}
	}
	return fmt.Sprintf("Shape(%d)", uint16(s))
}

// Category 形状大类
func (s Shape) Category() ShapeCategory {
	return ShapeCategory(s & 0b1111)
}

// ParseShape 解析形状名
func ParseShape(name string) (Shape, error) {
	if s, ok := shapeNames[name]; ok {
		return s, nil
	}
	return Circle, simerror.Semantic(name, "invalid traffic light shape name %q given", name)
}

// Bulb 灯泡（颜色、状态、形状）
type Bulb struct {
	Color  Color
	Status Status
	Shape  Shape
}

// Value 排序键：color<<12 | status<<8 | shape
func (b Bulb) Value() uint32 {
	return uint32(b.Color)<<12 | uint32(b.Status)<<8 | uint32(b.Shape)
}

func (b Bulb) String() string {
	return fmt.Sprintf("%v %v %v", b.Color, b.Status, b.Shape)
}

// 由名称表拼出 (a|b|c) 形式的正则分组，长名在前避免前缀抢先匹配
func alternation[T any](table map[string]T) string {
	names := lo.Keys(table)
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})
	return "(" + strings.Join(names, "|") + ")"
}

var bulbPattern = regexp.MustCompile(
	`^` + alternation(colorNames) + `?\s*` + alternation(statusNames) + `?\s*` + alternation(shapeNames) + `?$`,
)

// ParseBulb 解析形如 "red flashing left" 的灯泡描述
// 说明：三个字段均可省略，缺省为 green / solidOn / circle
func ParseBulb(s string) (Bulb, error) {
	match := bulbPattern.FindStringSubmatch(s)
	if match == nil {
		return Bulb{}, simerror.Semantic(s, "invalid traffic light bulb %q given", s)
	}
	b := Bulb{Color: Green, Status: SolidOn, Shape: Circle}
	if match[1] != "" {
		b.Color = colorNames[match[1]]
	}
	if match[2] != "" {
		b.Status = statusNames[match[2]]
	}
	if match[3] != "" {
		b.Shape = shapeNames[match[3]]
	}
	return b, nil
}

// 对外输出的信号灯编码
const (
	SignalUnknown        uint8 = 0
	SignalRed            uint8 = 1
	SignalAmber          uint8 = 2
	SignalGreen          uint8 = 3
	SignalWhite          uint8 = 4
	SignalCircle         uint8 = 5
	SignalLeftArrow      uint8 = 6
	SignalRightArrow     uint8 = 7
	SignalUpArrow        uint8 = 8
	SignalDownArrow      uint8 = 9
	SignalDownLeftArrow  uint8 = 10
	SignalDownRightArrow uint8 = 11
	SignalCross          uint8 = 12
	SignalSolidOff       uint8 = 13
	SignalSolidOn        uint8 = 14
	SignalFlashing       uint8 = 15
)

// SignalLight 对外输出的单个灯泡
type SignalLight struct {
	Color      uint8
	Status     uint8
	Shape      uint8
	Confidence float32
}

// ToSignalLight 转换为对外输出格式
// 说明：upperLeft/upperRight 没有对应编码，属于实现缺陷，直接panic
func (b Bulb) ToSignalLight() SignalLight {
	out := SignalLight{Confidence: 1.0}
	switch b.Color {
	case Amber:
		out.Color = SignalAmber
	case Green:
		out.Color = SignalGreen
	case Red:
		out.Color = SignalRed
	case White:
		out.Color = SignalWhite
	}
	switch b.Status {
	case SolidOn:
		out.Status = SignalSolidOn
	case SolidOff:
		out.Status = SignalSolidOff
	case Flashing:
		out.Status = SignalFlashing
	default:
		out.Status = SignalUnknown
	}
	switch b.Shape {
	case Circle:
		out.Shape = SignalCircle
	case Cross:
		out.Shape = SignalCross
	case Left:
		out.Shape = SignalLeftArrow
	case Down:
		out.Shape = SignalDownArrow
	case Up:
		out.Shape = SignalUpArrow
	case Right:
		out.Shape = SignalRightArrow
	case LowerLeft:
		out.Shape = SignalDownLeftArrow
	case LowerRight:
		out.Shape = SignalDownRightArrow
	default:
		simerror.Fault("%v is not supported as a shape for signal output", b.Shape)
	}
	return out
}
