package trafficlight

import (
	"context"
	"errors"
	"net/http"

	"connectrpc.com/connect"
	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
	"git.fiblab.net/sim/protos/v2/go/city/map/v2/mapv2connect"
	"git.fiblab.net/sim/syncer/v3"
)

// RPCHandler 信号灯的TrafficLightService实现
// 说明：查询读取当前状态，修改请求校验后缓冲到下一次Update执行
type RPCHandler struct {
	mapv2connect.UnimplementedTrafficLightServiceHandler

	m *Manager
}

// NewRPCHandler 创建信号灯RPC处理器
func NewRPCHandler(m *Manager) *RPCHandler {
	return &RPCHandler{m: m}
}

// Register 将TrafficLightService注册到sidecar
func (h *RPCHandler) Register(sidecar *syncer.Sidecar) {
	sidecar.Register(
		mapv2connect.TrafficLightServiceName,
		func(opts ...connect.HandlerOption) (pattern string, handler http.Handler) {
			return mapv2connect.NewTrafficLightServiceHandler(h, opts...)
		},
	)
}

func (h *RPCHandler) check(id int32) error {
	if !h.m.network.IsTrafficLight(int64(id)) {
		return connect.NewError(connect.CodeInvalidArgument, errors.New("junction id does not exist"))
	}
	return nil
}

// GetTrafficLight RPC接口：获取信号灯的相位程序、当前相位与剩余时间
// 说明：没有颜色相位的信号灯返回空响应
func (h *RPCHandler) GetTrafficLight(
	ctx context.Context, in *connect.Request[mapv2.GetTrafficLightRequest],
) (*connect.Response[mapv2.GetTrafficLightResponse], error) {
	req := in.Msg
	if err := h.check(req.JunctionId); err != nil {
		return nil, err
	}
	h.m.mtx.RLock()
	defer h.m.mtx.RUnlock()
	l, ok := h.m.lights[int64(req.JunctionId)]
	if !ok {
		return connect.NewResponse(&mapv2.GetTrafficLightResponse{}), nil
	}
	phases, step, remaining, ok := l.ColorPhase()
	if !ok {
		return connect.NewResponse(&mapv2.GetTrafficLightResponse{}), nil
	}
	return connect.NewResponse(&mapv2.GetTrafficLightResponse{
		TrafficLight:  ProgramFromPhases(l.ID(), phases),
		PhaseIndex:    step,
		TimeRemaining: remaining,
	}), nil
}

// SetTrafficLight RPC接口：设置信号灯的相位程序
// 说明：相位为空时取消相位程序（保持绿灯）
func (h *RPCHandler) SetTrafficLight(
	ctx context.Context, in *connect.Request[mapv2.SetTrafficLightRequest],
) (*connect.Response[mapv2.SetTrafficLightResponse], error) {
	req := in.Msg
	if req.TrafficLight == nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("traffic light is required"))
	}
	if err := h.check(req.TrafficLight.JunctionId); err != nil {
		return nil, err
	}
	id := int64(req.TrafficLight.JunctionId)
	if len(req.TrafficLight.Phases) == 0 {
		h.m.enqueue(func() error {
			return h.m.UnsetColorPhase(id)
		})
		return connect.NewResponse(&mapv2.SetTrafficLightResponse{}), nil
	}
	if req.TimeRemaining < 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("invalid remaining time"))
	}
	if req.PhaseIndex < 0 || int(req.PhaseIndex) >= len(req.TrafficLight.Phases) {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("invalid phase index"))
	}
	phases := PhasesFromProgram(req.TrafficLight)
	h.m.enqueue(func() error {
		return h.m.with(id, func(l *TrafficLight) error {
			if err := l.SetColorPhase(phases); err != nil {
				return err
			}
			return l.JumpColorPhase(req.PhaseIndex, req.TimeRemaining)
		})
	})
	return connect.NewResponse(&mapv2.SetTrafficLightResponse{}), nil
}

// SetTrafficLightPhase RPC接口：只修改当前相位与剩余时间
func (h *RPCHandler) SetTrafficLightPhase(
	ctx context.Context, in *connect.Request[mapv2.SetTrafficLightPhaseRequest],
) (*connect.Response[mapv2.SetTrafficLightPhaseResponse], error) {
	req := in.Msg
	if err := h.check(req.JunctionId); err != nil {
		return nil, err
	}
	if req.TimeRemaining < 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("invalid remaining time"))
	}
	h.m.enqueue(func() error {
		return h.m.with(int64(req.JunctionId), func(l *TrafficLight) error {
			return l.JumpColorPhase(req.PhaseIndex, req.TimeRemaining)
		})
	})
	return connect.NewResponse(&mapv2.SetTrafficLightPhaseResponse{}), nil
}

// SetTrafficLightStatus RPC接口：false表示信号灯失效，取消相位程序并保持绿灯
func (h *RPCHandler) SetTrafficLightStatus(
	ctx context.Context, in *connect.Request[mapv2.SetTrafficLightStatusRequest],
) (*connect.Response[mapv2.SetTrafficLightStatusResponse], error) {
	req := in.Msg
	if err := h.check(req.JunctionId); err != nil {
		return nil, err
	}
	if !req.Ok {
		h.m.enqueue(func() error {
			return h.m.UnsetColorPhase(int64(req.JunctionId))
		})
	}
	return connect.NewResponse(&mapv2.SetTrafficLightStatusResponse{}), nil
}
