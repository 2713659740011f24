// Package web CFDDNS 面板的页面与 JSON 接口
package web

import (
	"embed"
	"io/fs"
	"net/http"
	"os"
	"time"

	"github.com/klauspost/compress/gzhttp"

	"github.com/cxbdasheng/cfddns/config"
	"github.com/cxbdasheng/cfddns/form"
	"github.com/cxbdasheng/cfddns/logview"
	"github.com/cxbdasheng/cfddns/metrics"
	"github.com/cxbdasheng/cfddns/poll"
	"github.com/cxbdasheng/cfddns/status"
)

const VersionEnv = "CFDDNS_PANEL_VERSION"

type ViewFunc func(http.ResponseWriter, *http.Request)

//go:embed config.html logs.html
var templateFiles embed.FS

//go:embed static
var staticFiles embed.FS

// Panel 页面依赖的组件
type Panel struct {
	Store   *config.Store
	Form    *form.Map
	Monitor *status.Monitor
	Viewer  *logview.Viewer
	Sched   *poll.Scheduler
	// AllowWAN 允许非内网地址访问
	AllowWAN bool

	startTime time.Time
}

// NewPanel 创建面板，表单绑定到 store 中的 cfddns.config
func NewPanel(store *config.Store, monitor *status.Monitor, viewer *logview.Viewer, sched *poll.Scheduler) *Panel {
	return &Panel{
		Store:     store,
		Form:      NewConfigForm(store),
		Monitor:   monitor,
		Viewer:    viewer,
		Sched:     sched,
		startTime: time.Now(),
	}
}

// Handler 注册所有路由，响应经过 gzip 压缩
func (p *Panel) Handler() http.Handler {
	static, _ := fs.Sub(staticFiles, "static")
	staticServer := http.StripPrefix("/static/", http.FileServer(http.FS(static)))

	mux := http.NewServeMux()
	mux.HandleFunc("/static/", p.AuthAssert(staticServer.ServeHTTP))
	mux.HandleFunc("/metrics", p.AuthAssert(metrics.Handler().ServeHTTP))

	mux.HandleFunc("/", p.AuthAssert(p.Home))
	mux.HandleFunc("/cfddns/config", p.AuthAssert(p.Config))
	mux.HandleFunc("/cfddns/status", p.AuthAssert(p.Status))
	mux.HandleFunc("/cfddns/panel/logs", p.AuthAssert(p.PanelLogs))
	mux.HandleFunc("/cfddns/log", p.AuthAssert(p.Logs))
	mux.HandleFunc("/cfddns/log/data", p.AuthAssert(p.LogData))
	mux.HandleFunc("/cfddns/log/clear", p.AuthAssert(p.LogClear))

	return gzhttp.GzipHandler(mux)
}

// Home 跳转到配置页
func (p *Panel) Home(writer http.ResponseWriter, request *http.Request) {
	if request.URL.Path != "/" {
		http.NotFound(writer, request)
		return
	}
	http.Redirect(writer, request, "/cfddns/config", http.StatusFound)
}

func version() string {
	if v := os.Getenv(VersionEnv); v != "" {
		return v
	}
	return "DEV"
}
