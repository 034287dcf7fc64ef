package monitor

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Status 被监视组件的状态
// 说明：只包含原子变量，监视协程读取时不需要加锁
type Status struct {
	name       string
	lastAccess atomic.Int64 // UnixNano
	ok         atomic.Bool
}

// Touch 记录一次访问
func (s *Status) Touch() {
	s.lastAccess.Store(time.Now().UnixNano())
}

// SetOK 设置组件是否正常
func (s *Status) SetOK(ok bool) {
	s.ok.Store(ok)
}

func (s *Status) OK() bool {
	return s.ok.Load()
}

// Elapsed 距上次访问的时间
func (s *Status) Elapsed(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, s.lastAccess.Load()))
}

// Watchdog 状态监视器
// 功能：后台协程每隔interval输出各组件距上次访问的时间与是否正常，不修改被监视的状态
type Watchdog struct {
	interval time.Duration
	out      io.Writer

	mtx      sync.Mutex
	statuses map[string]*Status

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// New 创建并启动监视器，out为nil时只写日志
func New(interval time.Duration, out io.Writer) *Watchdog {
	if interval <= 0 {
		interval = time.Second
	}
	w := &Watchdog{
		interval: interval,
		out:      out,
		statuses: make(map[string]*Status),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go w.run()
	return w
}

// Register 注册被监视的组件，同名组件返回已有的状态
func (w *Watchdog) Register(name string) *Status {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	if s, ok := w.statuses[name]; ok {
		return s
	}
	s := &Status{name: name}
	s.Touch()
	s.SetOK(true)
	w.statuses[name] = s
	return s
}

// Unregister 取消监视
func (w *Watchdog) Unregister(name string) {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	delete(w.statuses, name)
}

// Report 生成当前所有组件的状态报告（按名称排序）
func (w *Watchdog) Report(now time.Time) string {
	w.mtx.Lock()
	statuses := make([]*Status, 0, len(w.statuses))
	for _, s := range w.statuses {
		statuses = append(statuses, s)
	}
	w.mtx.Unlock()
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].name < statuses[j].name })

	var sb strings.Builder
	sb.WriteString("WATCHDOG\n")
	for _, s := range statuses {
		fmt.Fprintf(&sb, "  component[%s]\n    elapsed: %d [ms]\n    ok: %v\n",
			s.name, s.Elapsed(now).Milliseconds(), s.OK())
	}
	return sb.String()
}

func (w *Watchdog) run() {
	defer close(w.done)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-w.stop:
			log.Debug("watchdog terminated")
			return
		case now := <-ticker.C:
			report := w.Report(now)
			if w.out != nil {
				if _, err := io.WriteString(w.out, report); err != nil {
					log.Warnf("write watchdog report: %v", err)
				}
			}
			log.Trace(report)
		}
	}
}

// Close 停止监视协程并等待其退出，可重复调用
func (w *Watchdog) Close() {
	w.once.Do(func() {
		close(w.stop)
	})
	<-w.done
}
