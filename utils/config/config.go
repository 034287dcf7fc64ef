package config

import (
	"fmt"
	"time"
)

const (
	defaultMonitorInterval = 1.0 // 默认看门狗间隔（秒）
	defaultSeed            = 1   // 默认随机种子
)

// RuntimeConfig 运行时配置
// 功能：存储补全默认值并校验过的配置
type RuntimeConfig struct {
	All             Config        // 全部配置
	C               Control       // 全局控制配置
	MonitorInterval time.Duration // 看门狗间隔
}

// NewRuntimeConfig 根据配置初始化运行时配置
// 功能：校验时间步长，补全随机种子与看门狗间隔的默认值
func NewRuntimeConfig(config Config) (*RuntimeConfig, error) {
	if config.Control.Step.Interval <= 0 {
		return nil, fmt.Errorf("control.step.interval must be positive, got %v", config.Control.Step.Interval)
	}
	if config.Control.Step.Total <= 0 {
		return nil, fmt.Errorf("control.step.total must be positive, got %v", config.Control.Step.Total)
	}
	if config.Control.Seed == 0 {
		config.Control.Seed = defaultSeed
	}
	interval := config.Monitor.Interval
	if interval <= 0 {
		interval = defaultMonitorInterval
	}
	rc := &RuntimeConfig{
		All:             config,
		C:               config.Control,
		MonitorInterval: time.Duration(interval * float64(time.Second)),
	}
	return rc, nil
}
