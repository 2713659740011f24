package logview

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cxbdasheng/cfddns/config"
	"github.com/cxbdasheng/cfddns/helper"
	"github.com/cxbdasheng/cfddns/metrics"
	"github.com/cxbdasheng/cfddns/poll"
)

// TaskName 日志轮询任务名
const TaskName = "log"

var ErrClearInProgress = errors.New("clear already in progress")

// ConfigGetter 读取配置选项
type ConfigGetter interface {
	Get(pkg, section, key string) (string, error)
}

type configLoader interface {
	Load(pkg string) error
}

// ResolveLogPath 读取 cfddns.config.log_file，未配置或读取失败时使用默认路径
func ResolveLogPath(g ConfigGetter) string {
	if g == nil {
		return config.DefaultLogFile
	}
	if l, ok := g.(configLoader); ok {
		if err := l.Load(config.PackageName); err != nil {
			helper.Warn(helper.LogTypeLog, "读取日志路径失败: %v", err)
			return config.DefaultLogFile
		}
	}
	path, err := g.Get(config.PackageName, config.SectionName, config.KeyLogFile)
	if err != nil {
		if !errors.Is(err, config.ErrNoSection) {
			helper.Warn(helper.LogTypeLog, "读取日志路径失败: %v", err)
		}
		return config.DefaultLogFile
	}
	if strings.TrimSpace(path) == "" {
		return config.DefaultLogFile
	}
	return path
}

// Viewer 日志查看器：周期读取日志文件末尾并保存最近一次的快照
type Viewer struct {
	accessor Accessor
	config   ConfigGetter
	now      func() time.Time

	clearing atomic.Bool

	mu       sync.RWMutex
	snapshot Snapshot
	changed  chan struct{}
	sched    *poll.Scheduler
	mountCtx context.Context
}

// NewViewer 创建日志查看器，cfg 可以为 nil
func NewViewer(a Accessor, cfg ConfigGetter) *Viewer {
	if a == nil {
		a = OSAccessor{}
	}
	v := &Viewer{
		accessor: a,
		config:   cfg,
		now:      utcNow,
		changed:  make(chan struct{}),
	}
	v.snapshot = Loading(v.Path())
	return v
}

// 补全的时间戳使用 UTC
func utcNow() time.Time {
	return time.Now().UTC()
}

// SetClock 替换时钟
func (v *Viewer) SetClock(now func() time.Time) {
	v.now = now
}

// Path 当前日志路径
func (v *Viewer) Path() string {
	return ResolveLogPath(v.config)
}

// Mount 把轮询任务注册到调度器，ctx 取消时随调度器一起结束
func (v *Viewer) Mount(ctx context.Context, sched *poll.Scheduler, interval time.Duration) {
	v.mu.Lock()
	v.sched = sched
	v.mountCtx = ctx
	v.mu.Unlock()
	sched.Add(TaskName, v.Poll, interval)
}

// Poll 读取一次日志，用作 poll.Func。失败只反映在快照中
func (v *Viewer) Poll(ctx context.Context) error {
	path := v.Path()
	data, err := v.accessor.Read(ctx, path)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			metrics.LogReads.WithLabelValues("not_found").Inc()
		} else {
			metrics.LogReads.WithLabelValues("error").Inc()
		}
		v.set(Failure(path, err))
		return err
	}

	snap := Build(path, data, v.now())
	metrics.LogReads.WithLabelValues("ok").Inc()
	metrics.LogLines.Set(float64(snap.Total))
	v.set(snap)
	return nil
}

func (v *Viewer) set(s Snapshot) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.snapshot = s
	close(v.changed)
	v.changed = make(chan struct{})
}

// Snapshot 最近一次的快照
func (v *Viewer) Snapshot() Snapshot {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.snapshot
}

// Clear 清空日志文件。同一时间只允许一次写入，重复调用返回 ErrClearInProgress。
// 成功后停止并重新启动轮询，等待新的快照生成后返回
func (v *Viewer) Clear(ctx context.Context) error {
	if !v.clearing.CompareAndSwap(false, true) {
		metrics.LogClears.WithLabelValues("busy").Inc()
		return ErrClearInProgress
	}
	defer v.clearing.Store(false)

	path := v.Path()
	if err := v.accessor.Write(ctx, path, []byte{}); err != nil {
		metrics.LogClears.WithLabelValues("error").Inc()
		helper.Error(helper.LogTypeLog, "清空日志 %s 失败: %v", path, err)

		prev := v.Snapshot()
		v.set(Snapshot{
			State:   StateClearError,
			Path:    path,
			Lines:   []Line{},
			Shown:   prev.Shown,
			Total:   prev.Total,
			Count:   prev.Count,
			Message: "Error clearing log: " + err.Error(),
		})
		return err
	}
	metrics.LogClears.WithLabelValues("ok").Inc()
	helper.Info(helper.LogTypeLog, "日志已清空: %s", path)

	v.refresh(ctx)
	return nil
}

// refresh 立即执行一次额外的轮询
func (v *Viewer) refresh(ctx context.Context) {
	v.mu.RLock()
	sched, mountCtx := v.sched, v.mountCtx
	v.mu.RUnlock()

	if sched != nil && mountCtx != nil && mountCtx.Err() == nil {
		sched.Stop()
		v.mu.RLock()
		changed := v.changed
		v.mu.RUnlock()
		if sched.Start(mountCtx) {
			select {
			case <-changed:
			case <-ctx.Done():
			}
			return
		}
	}
	_ = v.Poll(ctx)
}
