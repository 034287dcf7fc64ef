package task

import (
	"flag"
	"fmt"
	"time"

	"github.com/tsinghua-fib-lab/scenario-sim/scenario"
)

const (
	SelfName = "scenario" // 本程序在模拟任务集群中的名字
)

var (
	heartBeatInterval = flag.Int("log.heartbeat_interval", 100, "心跳日志间隔步数")
)

// prepare 准备阶段，每步执行一次
// 功能：推进时钟并输出心跳日志
// 返回：本步开始时的仿真时间
func (ctx *Context) prepare() float64 {
	t := ctx.clock.Advance()
	log.Debugf("step %d prepare", ctx.clock.Step)
	if interval := int32(*heartBeatInterval); interval > 0 && ctx.clock.Step%interval == 0 {
		hour, minute, second := ctx.clock.GetHourMinuteSecond()
		log.Infof(
			"STEP: %d(%d:%d:%.2f)",
			ctx.clock.Step,
			hour, minute, second,
		)
	}
	return t
}

// update 更新阶段，每步执行一次
// 算法说明：
// 1. 实体管理器执行缓冲的生成/删除，并行更新所有实体后推进信号灯
// 2. 在tick内部求值场景（期间的生成/删除延迟到下一步）
// 3. 记录看门狗访问时间
func (ctx *Context) update(t float64) (scenario.Outcome, error) {
	if err := ctx.entities.Update(t, ctx.clock.DT); err != nil {
		ctx.entitiesStatus.SetOK(false)
		return scenario.Failed, err
	}
	ctx.entitiesStatus.Touch()
	ctx.entitiesStatus.SetOK(true)

	ctx.entities.BeginTick()
	outcome, err := ctx.runner.Step()
	ctx.entities.EndTick()
	ctx.scenarioStatus.Touch()
	ctx.scenarioStatus.SetOK(err == nil)
	return outcome, err
}

// Step 执行一个完整的仿真步
// 返回：场景结果，语义错误时结果为Failed
func (ctx *Context) Step() (scenario.Outcome, error) {
	start := time.Now()
	t := ctx.prepare()
	if ctx.sidecar != nil {
		// 通知准备阶段完成
		ctx.sidecar.NotifyStepReady()
	}
	outcome, err := ctx.update(t)
	ctx.collector.ObserveStep(time.Since(start), len(ctx.entities.GetEntityNames()))
	log.Debugf("step %d: update complete", ctx.clock.Step)
	return outcome, err
}

// Run 运行
// 功能：初始化后逐步推进，直到到达结束步、场景有结果、出现语义错误或收到关闭指令
// 返回：场景结果与导致失败的错误
func (ctx *Context) Run() (scenario.Outcome, error) {
	defer ctx.Close()
	if err := ctx.Init(); err != nil {
		ctx.outcome = scenario.Failed
		return ctx.outcome, fmt.Errorf("init: %w", err)
	}
	if ctx.sidecar != nil {
		// init syncer
		ctx.sidecar.Step(false)
	}
	var runErr error
	for !ctx.clock.Finished() && !ctx.stopped.Load() {
		ctx.outcome, runErr = ctx.Step()
		if runErr != nil {
			ctx.outcome = scenario.Failed
			log.Errorf("step %d: %v", ctx.clock.Step, runErr)
		}
		finished := ctx.outcome != scenario.Running || runErr != nil || ctx.clock.Finished()
		close := false
		if ctx.sidecar != nil {
			close = ctx.sidecar.Step(finished)
		}
		if finished || close {
			break
		}
	}
	log.Infof("engine complete at step %d (%v): %v", ctx.clock.Step, ctx.clock, ctx.outcome)
	return ctx.outcome, runErr
}
