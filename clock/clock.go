package clock

import (
	"fmt"

	"git.fiblab.net/sim/protos/v2/go/city/clock/v1/clockv1connect"
	"github.com/tsinghua-fib-lab/scenario-sim/utils/config"
)

// Clock 仿真时钟
// 功能：管理仿真步数与时间的推进，模拟区间为[START_STEP, END_STEP)
// 说明：T总是等于Step*DT，只由tick循环修改，RPC只读取
type Clock struct {
	clockv1connect.UnimplementedClockServiceHandler

	DT         float64 // 每步时间间隔（秒）
	START_STEP int32   // 起始步
	END_STEP   int32   // 结束步

	T    float64 // 当前时间（秒）
	Step int32   // 当前步数
}

// New 根据配置创建时钟并初始化到起始步
func New(stepConfig config.ControlStep) *Clock {
	c := &Clock{
		DT:         stepConfig.Interval,
		START_STEP: stepConfig.Start,
		END_STEP:   stepConfig.Start + stepConfig.Total,
	}
	c.Init()
	return c
}

// Init 重置到起始步
func (c *Clock) Init() {
	c.Step = c.START_STEP
	c.T = float64(c.Step) * c.DT
}

// Advance 推进一步并返回推进前的时间
// 说明：实体管理器以推进前的时间作为本tick的currentTime
func (c *Clock) Advance() (before float64) {
	before = c.T
	c.Step++
	c.T = float64(c.Step) * c.DT
	return
}

// Finished 是否已到达结束步
func (c *Clock) Finished() bool {
	return c.Step >= c.END_STEP
}

// Elapsed 从起始步开始已经过去的步数
func (c *Clock) Elapsed() int32 {
	return c.Step - c.START_STEP
}

// String 将当前时间格式化为HH:MM:SS
func (c *Clock) String() string {
	h, m, s := c.GetHourMinuteSecond()
	return fmt.Sprintf("%02d:%02d:%02d", h, m, int(s))
}

// GetHourMinuteSecond 获取当前时间的小时、分钟、秒
// 返回：小时、分钟、秒（秒为浮点数，支持亚秒级精度）
func (c *Clock) GetHourMinuteSecond() (int, int, float64) {
	hour := int(c.T) / 3600
	minute := int(c.T) % 3600 / 60
	second := c.T - float64(hour*3600+minute*60)
	return hour, minute, second
}
