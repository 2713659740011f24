// Package poll 周期任务调度：每个任务单独的 goroutine，相邻两次执行不会重叠，
// 启动时立即执行一次，随 context 取消而结束。
package poll

import (
	"context"
	"sync"
	"time"

	"github.com/cxbdasheng/cfddns/helper"
	"github.com/cxbdasheng/cfddns/metrics"
)

// DefaultInterval 默认轮询间隔
const DefaultInterval = 5 * time.Second

// Func 一次轮询，返回的错误只记录，不会终止任务
type Func func(ctx context.Context) error

type task struct {
	name   string
	fn     Func
	period time.Duration
}

// Scheduler 周期任务调度器
type Scheduler struct {
	life sync.Mutex // 串行化 Start/Stop

	mu     sync.Mutex
	tasks  []*task
	parent context.Context
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New 创建调度器
func New() *Scheduler {
	return &Scheduler{}
}

// Add 注册任务，period <= 0 时使用 DefaultInterval；调度器运行中时立即启动
func (s *Scheduler) Add(name string, fn Func, period time.Duration) {
	if period <= 0 {
		period = DefaultInterval
	}
	t := &task{name: name, fn: fn, period: period}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, t)
	if s.runningLocked() {
		s.spawn(s.ctx, t)
	}
}

func (s *Scheduler) runningLocked() bool {
	return s.cancel != nil && s.ctx.Err() == nil
}

// Active 调度器是否在运行
func (s *Scheduler) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runningLocked()
}

// Start 启动所有任务，已在运行或 ctx 已取消时返回 false
func (s *Scheduler) Start(ctx context.Context) bool {
	s.life.Lock()
	defer s.life.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if ctx.Err() != nil || s.runningLocked() {
		return false
	}
	if s.cancel != nil {
		// 上一轮因父 context 取消而结束
		s.cancel()
		s.wg.Wait()
	}

	s.parent = ctx
	s.ctx, s.cancel = context.WithCancel(ctx)
	for _, t := range s.tasks {
		s.spawn(s.ctx, t)
	}
	return true
}

// Stop 停止所有任务并等待正在执行的轮询结束。不能在任务内部调用
func (s *Scheduler) Stop() bool {
	s.life.Lock()
	defer s.life.Unlock()

	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		return false
	}
	cancel()
	s.wg.Wait()
	return true
}

// Restart 先停止再启动，所有任务立即执行一次
func (s *Scheduler) Restart() bool {
	s.mu.Lock()
	parent := s.parent
	s.mu.Unlock()

	if parent == nil {
		return false
	}
	s.Stop()
	return s.Start(parent)
}

func (s *Scheduler) spawn(ctx context.Context, t *task) {
	s.wg.Add(1)
	go s.loop(ctx, t)
}

func (s *Scheduler) loop(ctx context.Context, t *task) {
	defer s.wg.Done()

	s.tick(ctx, t)

	ticker := time.NewTicker(t.period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			s.tick(ctx, t)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context, t *task) {
	defer func() {
		if r := recover(); r != nil {
			metrics.PollErrors.WithLabelValues(t.name).Inc()
			helper.Error(helper.LogTypePoll, "轮询任务 %s 异常: %v", t.name, r)
		}
	}()

	metrics.PollTicks.WithLabelValues(t.name).Inc()
	if err := t.fn(ctx); err != nil {
		metrics.PollErrors.WithLabelValues(t.name).Inc()
		helper.Debug(helper.LogTypePoll, "轮询任务 %s 失败: %v", t.name, err)
	}
}
