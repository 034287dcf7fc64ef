package agent

// Action 单步的控制动作
// 功能：多个策略各自给出加速度，取最小者（最保守）
type Action struct {
	A        float64 // 加速度
	Name     string  // 当前动作名
	LCTarget int64   // 变道目标车道
	HasLC    bool
}

// Update 采用取最小的方式合并加速度，动作名随加速度更小者
func (a *Action) Update(others ...Action) {
	for _, o := range others {
		if o.A < a.A {
			a.A = o.A
			if o.Name != "" {
				a.Name = o.Name
			}
		}
		if o.HasLC {
			if a.HasLC {
				log.Error("start lane change conflict")
			}
			a.LCTarget = o.LCTarget
			a.HasLC = true
		}
	}
}
