// Package bootstrap 组装面板的各个组件并驱动轮询任务
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/cxbdasheng/cfddns/config"
	"github.com/cxbdasheng/cfddns/helper"
	"github.com/cxbdasheng/cfddns/logview"
	"github.com/cxbdasheng/cfddns/poll"
	"github.com/cxbdasheng/cfddns/status"
	"github.com/cxbdasheng/cfddns/web"
)

// 服务状态查询方式
const (
	StatusUbus   = "ubus"
	StatusSystem = "system"
)

// Options 启动参数
type Options struct {
	ConfigDir string
	Service   string
	Status    string
	Interval  time.Duration
	AllowWAN  bool
}

// App 运行中的面板
type App struct {
	Store   *config.Store
	Monitor *status.Monitor
	Viewer  *logview.Viewer
	Sched   *poll.Scheduler
	Panel   *web.Panel

	interval time.Duration
}

// NewLister 按名称选择服务状态查询方式
func NewLister(name string) (status.Lister, error) {
	switch name {
	case StatusUbus, "":
		return status.NewUbus(), nil
	case StatusSystem:
		return status.System{}, nil
	default:
		return nil, fmt.Errorf("unknown status backend %q", name)
	}
}

// New 创建配置存储、状态监视器、日志查看器和面板
func New(opts Options) (*App, error) {
	lister, err := NewLister(opts.Status)
	if err != nil {
		return nil, err
	}
	if opts.Service == "" {
		opts.Service = config.ServiceName
	}
	if opts.Interval <= 0 {
		opts.Interval = poll.DefaultInterval
	}

	store := config.NewStore(opts.ConfigDir)
	monitor := status.NewMonitor(lister, opts.Service, "CFDDNS")
	viewer := logview.NewViewer(logview.OSAccessor{}, store)
	sched := poll.New()

	panel := web.NewPanel(store, monitor, viewer, sched)
	panel.AllowWAN = opts.AllowWAN

	return &App{
		Store:    store,
		Monitor:  monitor,
		Viewer:   viewer,
		Sched:    sched,
		Panel:    panel,
		interval: opts.Interval,
	}, nil
}

// Run 注册并启动轮询任务，ctx 取消后停止所有任务
func (a *App) Run(ctx context.Context) {
	a.Sched.Add("status", a.Monitor.Poll, a.interval)
	a.Viewer.Mount(ctx, a.Sched, a.interval)

	if !a.Sched.Start(ctx) {
		return
	}
	helper.Info(helper.LogTypePoll, "轮询已启动, 间隔 %s, 服务 %s, 日志 %s", a.interval, a.Monitor.Name(), a.Viewer.Path())

	<-ctx.Done()
	a.Sched.Stop()
	helper.Info(helper.LogTypePoll, "轮询已停止")
}
