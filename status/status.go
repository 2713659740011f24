// Package status 查询被管理服务的运行状态
package status

import (
	"bytes"
	"context"
	"html/template"
	"sync"
	"time"

	"github.com/cxbdasheng/cfddns/helper"
	"github.com/cxbdasheng/cfddns/metrics"
)

// Instance procd 中服务的默认实例名
const Instance = "instance1"

// 状态文本
const (
	LabelCollecting = "Collecting data…"
	LabelRunning    = "RUNNING"
	LabelNotRunning = "NOT RUNNING"
)

// Lister 返回 procd `service list` 形状的结果：
// {name: {instances: {instance1: {running: bool}}}}
type Lister interface {
	List(ctx context.Context, name string) (map[string]any, error)
}

// IsRunning 查询失败、实例不存在与未运行都返回 false
func IsRunning(ctx context.Context, l Lister, name string) bool {
	if l == nil {
		return false
	}
	res, err := l.List(ctx, name)
	if err != nil {
		helper.Debug(helper.LogTypeService, "查询服务 %s 状态失败: %v", name, err)
		return false
	}
	svc, ok := res[name].(map[string]any)
	if !ok {
		return false
	}
	instances, ok := svc["instances"].(map[string]any)
	if !ok {
		return false
	}
	instance, ok := instances[Instance].(map[string]any)
	if !ok {
		return false
	}
	running, ok := instance["running"].(bool)
	return ok && running
}

var statusTemplate = template.Must(template.New("status").Parse(
	`<span style="color:{{.Color}}"><strong>{{.Title}} {{.Label}}</strong></span>`))

// Render 渲染状态行
func Render(title string, running bool) template.HTML {
	data := struct {
		Color string
		Title string
		Label string
	}{"red", title, LabelNotRunning}
	if running {
		data.Color = "green"
		data.Label = LabelRunning
	}

	var buf bytes.Buffer
	if err := statusTemplate.Execute(&buf, data); err != nil {
		return template.HTML(template.HTMLEscapeString(title + " " + data.Label))
	}
	return template.HTML(buf.String())
}

// Snapshot 最近一次查询的结果
type Snapshot struct {
	Polled    bool          `json:"polled"`
	Running   bool          `json:"running"`
	HTML      template.HTML `json:"html"`
	UpdatedAt string        `json:"updated_at,omitempty"`
}

// Monitor 周期查询服务状态并保存最近一次的结果
type Monitor struct {
	lister Lister
	name   string
	title  string

	mu       sync.RWMutex
	snapshot Snapshot
}

// NewMonitor 创建状态监视器
func NewMonitor(l Lister, name, title string) *Monitor {
	return &Monitor{
		lister: l,
		name:   name,
		title:  title,
		snapshot: Snapshot{
			HTML: template.HTML(template.HTMLEscapeString(LabelCollecting)),
		},
	}
}

// Name 服务名
func (m *Monitor) Name() string {
	return m.name
}

// Poll 执行一次查询，用作 poll.Func，从不返回错误
func (m *Monitor) Poll(ctx context.Context) error {
	running := IsRunning(ctx, m.lister, m.name)

	gauge := 0.0
	if running {
		gauge = 1
	}
	metrics.ServiceRunning.WithLabelValues(m.name).Set(gauge)

	m.mu.Lock()
	m.snapshot = Snapshot{
		Polled:    true,
		Running:   running,
		HTML:      Render(m.title, running),
		UpdatedAt: time.Now().Format("2006-01-02 15:04:05"),
	}
	m.mu.Unlock()
	return nil
}

// Snapshot 最近一次查询的结果
func (m *Monitor) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}
