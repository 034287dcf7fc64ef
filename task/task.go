package task

import (
	"io"
	"net/http"
	"sync/atomic"

	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
	"git.fiblab.net/sim/syncer/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/tsinghua-fib-lab/scenario-sim/clock"
	"github.com/tsinghua-fib-lab/scenario-sim/entity/agent"
	"github.com/tsinghua-fib-lab/scenario-sim/entity/hdmap"
	"github.com/tsinghua-fib-lab/scenario-sim/entity/trafficlight"
	"github.com/tsinghua-fib-lab/scenario-sim/scenario"
	"github.com/tsinghua-fib-lab/scenario-sim/utils/config"
	"github.com/tsinghua-fib-lab/scenario-sim/utils/input"
	"github.com/tsinghua-fib-lab/scenario-sim/utils/metrics"
	"github.com/tsinghua-fib-lab/scenario-sim/utils/monitor"
	"github.com/tsinghua-fib-lab/scenario-sim/utils/randengine"
)

// Context 仿真任务上下文
// 功能：包含一次场景仿真的所有变量和状态
// 说明：管理时钟、路网、信号灯、实体、场景求值、看门狗、指标与sidecar
type Context struct {
	// 任务名
	job string
	// 停止指令
	stopped atomic.Bool
	// 已关闭
	closed atomic.Bool

	// 时钟
	clock *clock.Clock

	// 辅助程序，处理与syncer、其他服务的交互；为nil时单机运行
	sidecar *syncer.Sidecar
	// sidecar close channel
	sidecarCloseCh chan struct{}
	// sidecar服务是否已启动
	serving bool

	// 运行时配置
	runtimeConfig *config.RuntimeConfig
	// 随机数引擎（随机出生位置与速度）
	engine *randengine.Engine

	// 路网
	network *hdmap.Map
	// 信号灯管理器
	lights *trafficlight.Manager
	// 实体管理器
	entities *agent.Manager
	// 场景求值
	env    *scenario.Env
	runner *scenario.Runner

	// 指标
	collector *metrics.Collector
	// 看门狗
	watchdog       *monitor.Watchdog
	entitiesStatus *monitor.Status
	scenarioStatus *monitor.Status

	// 最终结果
	outcome scenario.Outcome
}

// NewContext 创建新的仿真任务上下文
// 参数：
//   - job: 任务名称
//   - cacheDir: 输入缓存目录
//   - c: 配置对象
//   - sidecar: 外部sidecar实例，可为nil
//   - startSidecarServe: 是否启动sidecar服务
//   - reg: 指标注册器
//   - monitorOut: 看门狗报告输出，可为nil
//
// 算法说明：
// 1. 下载地图
// 2. 创建路网、信号灯、实体管理器与场景求值器
// 3. 注册RPC服务到sidecar并启动服务
func NewContext(
	job string,
	cacheDir string,
	c config.Config,
	sidecar *syncer.Sidecar,
	startSidecarServe bool,
	reg prometheus.Registerer,
	monitorOut io.Writer,
) (*Context, error) {
	initRes, err := input.Init(c.Input, cacheDir)
	if err != nil {
		return nil, err
	}
	ctx, err := newContext(job, c, initRes.Map, sidecar, reg, monitorOut)
	if err != nil {
		return nil, err
	}
	// sidecar协程，用于提供gRPC服务
	if sidecar != nil && startSidecarServe {
		ctx.serving = true
		go func() {
			err := ctx.sidecar.Serve()
			if err != nil {
				log.Panicf("failed to serve: %v", err)
			}
			ctx.sidecarCloseCh <- struct{}{}
		}()
	}
	return ctx, nil
}

// newContext 在已加载的地图上创建上下文
func newContext(
	job string,
	c config.Config,
	m *mapv2.Map,
	sidecar *syncer.Sidecar,
	reg prometheus.Registerer,
	monitorOut io.Writer,
) (*Context, error) {
	rc, err := config.NewRuntimeConfig(c)
	if err != nil {
		return nil, err
	}
	network, err := hdmap.New(m)
	if err != nil {
		return nil, err
	}
	collector, err := metrics.NewCollector(reg)
	if err != nil {
		return nil, err
	}
	ctx := &Context{
		job:            job,
		clock:          clock.New(rc.C.Step),
		sidecar:        sidecar,
		sidecarCloseCh: make(chan struct{}, 1),
		runtimeConfig:  rc,
		engine:         randengine.New(rc.C.Seed),
		network:        network,
		collector:      collector,
		outcome:        scenario.Running,
	}
	ctx.lights = trafficlight.NewManager(network)
	ctx.entities = agent.NewManager(network, ctx.lights)
	ctx.env = &scenario.Env{Entities: ctx.entities, Network: network}
	ctx.runner, err = scenario.NewRunner(ctx.env, collector, rc.All.Scenario)
	if err != nil {
		return nil, err
	}
	ctx.watchdog = monitor.New(rc.MonitorInterval, monitorOut)
	ctx.entitiesStatus = ctx.watchdog.Register("entity_manager")
	ctx.scenarioStatus = ctx.watchdog.Register("scenario")

	if sidecar != nil {
		ctx.clock.Register(sidecar)
		trafficlight.NewRPCHandler(ctx.lights).Register(sidecar)
	}
	log.Infof("task %s created", job)
	return ctx, nil
}

func (ctx *Context) Clock() *clock.Clock {
	return ctx.clock
}

func (ctx *Context) Network() *hdmap.Map {
	return ctx.network
}

func (ctx *Context) TrafficLights() *trafficlight.Manager {
	return ctx.lights
}

func (ctx *Context) Entities() *agent.Manager {
	return ctx.entities
}

func (ctx *Context) Runner() *scenario.Runner {
	return ctx.runner
}

func (ctx *Context) RuntimeConfig() *config.RuntimeConfig {
	return ctx.runtimeConfig
}

// Outcome 场景结果
func (ctx *Context) Outcome() scenario.Outcome {
	return ctx.outcome
}

// Init 初始化场景
// 算法说明：
// 1. 时钟回到起始步
// 2. 加载地图中的固定相位程序，再应用配置中的信号灯设置
// 3. 按配置顺序生成实体并下达初始动作
func (ctx *Context) Init() error {
	ctx.clock.Init()
	if err := ctx.initTrafficLights(); err != nil {
		return err
	}
	if err := ctx.spawnEntities(); err != nil {
		return err
	}
	log.Infof("Entity: %v", len(ctx.entities.GetEntityNames()))
	return nil
}

// Stop 请求在当前步结束后停止运行，可在其他协程调用
func (ctx *Context) Stop() {
	ctx.stopped.Store(true)
}

// Close 关闭看门狗与sidecar，可重复调用
func (ctx *Context) Close() {
	if ctx.closed.Swap(true) {
		return
	}
	ctx.watchdog.Close()
	if ctx.sidecar != nil {
		ctx.sidecar.Close()
	}
	if ctx.serving {
		// wait for graceful stop
		<-ctx.sidecarCloseCh
	}
}

// MetricsHandler /metrics处理器
func (ctx *Context) MetricsHandler() http.Handler {
	return ctx.collector.Handler()
}
