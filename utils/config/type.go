package config

// InputPath 指定输入数据来源的配置（MongoDB、文件系统）
// 功能：定义数据输入路径的配置结构，支持多种数据源
// 说明：支持MongoDB数据库和文件系统两种数据源，支持缓存机制
type InputPath struct {
	DB        string `yaml:"db"`                   // 数据库名
	Col       string `yaml:"col"`                  // 集合名
	Cache     string `yaml:"cache,omitempty"`      // 缓存文件名，为空则采用默认路径{db}.{col}.pb
	OnlyCache bool   `yaml:"only_cache,omitempty"` // 只从缓存中获取
	File      string `yaml:"file,omitempty"`       // 文件路径（优先级高于MongoDB）
}

// GetDb 获取数据库名
func (p InputPath) GetDb() string {
	return p.DB
}

// GetColl 获取集合名
func (p InputPath) GetColl() string {
	return p.Col
}

// GetCachePath 获取缓存文件路径
// 说明：未指定时使用默认命名规则：{数据库名}.{集合名}.pb
func (p InputPath) GetCachePath() string {
	if p.Cache != "" {
		return p.Cache
	}
	return p.DB + "." + p.Col + ".pb"
}

// Input 指定模拟器所有输入数据的配置项
type Input struct {
	URI string    `yaml:"uri"` // MongoDB连接字符串
	Map InputPath `yaml:"map"` // 地图
}

// ControlStep 指定模拟器模拟时间范围和间隔的配置项
type ControlStep struct {
	Start    int32   `yaml:"start"`    // 开始步数
	Total    int32   `yaml:"total"`    // 总步数
	Interval float64 `yaml:"interval"` // 每步的时间间隔（秒）
}

// Control 模拟器控制配置
type Control struct {
	Step ControlStep `yaml:"step"`
	Seed uint64      `yaml:"seed,omitempty"` // 随机场景的种子
}

// LaneletPose 车道坐标
type LaneletPose struct {
	LaneletID int64   `yaml:"lanelet_id"`
	S         float64 `yaml:"s"`
	Offset    float64 `yaml:"offset,omitempty"`
	Yaw       float64 `yaml:"yaw,omitempty"` // 相对车道切向的航向角偏差
}

// Range 取值区间，用于均匀分布
type Range struct {
	Lower float64 `yaml:"lower"`
	Upper float64 `yaml:"upper"`
}

// WeightedValue 离散分布中的一个取值
type WeightedValue struct {
	Value  float64 `yaml:"value"`
	Weight float64 `yaml:"weight"`
}

// Dimensions 包围盒尺寸
type Dimensions struct {
	Length float64 `yaml:"length"`
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// EntitySpawn 场景中生成一个实体
type EntitySpawn struct {
	Name        string          `yaml:"name"`
	Kind        string          `yaml:"kind"` // ego / vehicle / pedestrian
	Pose        LaneletPose     `yaml:"pose"`
	RandomS     *Range          `yaml:"random_s,omitempty"` // 若设置，则s在区间内均匀采样
	Speed       float64         `yaml:"speed,omitempty"`
	RandomSpeed []WeightedValue `yaml:"random_speed,omitempty"` // 若设置，则初速度按权重采样
	TargetSpeed *float64        `yaml:"target_speed,omitempty"`
	SpeedShape  string          `yaml:"speed_shape,omitempty"` // linear（默认）/ step
	MaxSpeed    float64         `yaml:"max_speed,omitempty"`
	BoundingBox *Dimensions     `yaml:"bounding_box,omitempty"`
	LaneChange  string          `yaml:"lane_change,omitempty"` // left / right
	Destination *LaneletPose    `yaml:"destination,omitempty"`
}

// PositionConfig 条件使用的目标位置，三者取一
type PositionConfig struct {
	World *struct {
		X   float64 `yaml:"x"`
		Y   float64 `yaml:"y"`
		Z   float64 `yaml:"z,omitempty"`
		Yaw float64 `yaml:"yaw,omitempty"`
	} `yaml:"world,omitempty"`
	RelativeWorld *struct {
		EntityRef string  `yaml:"entity_ref"`
		DX        float64 `yaml:"dx"`
		DY        float64 `yaml:"dy"`
		DZ        float64 `yaml:"dz,omitempty"`
	} `yaml:"relative_world,omitempty"`
	Lane *LaneletPose `yaml:"lane,omitempty"`
}

// ConditionConfig 场景结束条件
type ConditionConfig struct {
	Name                 string          `yaml:"name"`
	Type                 string          `yaml:"type"` // distance / reach_position / time_headway / speed / stand_still / collision
	TriggeringEntities   []string        `yaml:"triggering_entities"`
	TriggeringRule       string          `yaml:"triggering_rule,omitempty"` // any / all
	Rule                 string          `yaml:"rule,omitempty"`
	Value                float64         `yaml:"value,omitempty"`
	Tolerance            float64         `yaml:"tolerance,omitempty"`
	Freespace            bool            `yaml:"freespace,omitempty"`
	AlongRoute           bool            `yaml:"along_route,omitempty"`
	CoordinateSystem     string          `yaml:"coordinate_system,omitempty"`
	RelativeDistanceType string          `yaml:"relative_distance_type,omitempty"`
	EntityRef            string          `yaml:"entity_ref,omitempty"`
	Targets              []string        `yaml:"targets,omitempty"`
	Position             *PositionConfig `yaml:"position,omitempty"`
	Success              bool            `yaml:"success"` // true：满足即场景成功；false：满足即场景失败
}

// TrafficLightPhase 信号灯相位
type TrafficLightPhase struct {
	Duration float64 `yaml:"duration"`
	Color    string  `yaml:"color"` // red / green / yellow
}

// TrafficLightConfig 信号灯初始化
type TrafficLightConfig struct {
	ID     int64               `yaml:"id"`
	Color  string              `yaml:"color,omitempty"`
	Bulbs  []string            `yaml:"bulbs,omitempty"` // 例如 "red solidOn circle"
	Phases []TrafficLightPhase `yaml:"phases,omitempty"`
}

// CollisionMetricConfig 碰撞指标
type CollisionMetricConfig struct {
	Name    string   `yaml:"name"`
	Ego     string   `yaml:"ego"`
	Targets []string `yaml:"targets,omitempty"`
}

// Scenario 场景描述
type Scenario struct {
	Entities      []EntitySpawn           `yaml:"entities"`
	Conditions    []ConditionConfig       `yaml:"conditions,omitempty"`
	TrafficLights []TrafficLightConfig    `yaml:"traffic_lights,omitempty"`
	Metrics       []CollisionMetricConfig `yaml:"metrics,omitempty"`
}

// Monitor 状态监视器配置
type Monitor struct {
	Interval float64 `yaml:"interval,omitempty"` // 监视间隔（秒）
	File     string  `yaml:"file,omitempty"`     // 报告输出文件，为空则只写日志
}

// Metrics Prometheus指标配置
type Metrics struct {
	Listen string `yaml:"listen,omitempty"` // 为空则不提供/metrics
}

// Config YAML配置文件的根结构
type Config struct {
	Input    Input    `yaml:"input"`              // 输入
	Control  Control  `yaml:"control"`            // 模拟过程控制
	Scenario Scenario `yaml:"scenario"`           // 场景
	Monitor  Monitor  `yaml:"monitor,omitempty"`  // 看门狗
	Metrics  Metrics  `yaml:"metrics,omitempty"`  // 指标
}
