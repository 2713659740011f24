package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cxbdasheng/cfddns/config"
	"github.com/cxbdasheng/cfddns/helper"
	"github.com/cxbdasheng/cfddns/logview"
	"github.com/cxbdasheng/cfddns/status"
)

type fakeLister struct {
	running bool
}

func (f fakeLister) List(ctx context.Context, name string) (map[string]any, error) {
	return status.Result(name, f.running), nil
}

type testPanel struct {
	*Panel
	dir     string
	logPath string
}

func newTestPanel(t *testing.T) *testPanel {
	t.Helper()
	dir := t.TempDir()
	store := config.NewStore(dir)
	logPath := filepath.Join(dir, "cfddns.log")

	// 日志路径指向临时目录
	_ = store.Load(config.PackageName)
	if err := store.Apply(config.PackageName, config.SectionName, config.SectionType,
		map[string]string{config.KeyLogFile: logPath}, nil); err != nil {
		t.Fatal(err)
	}

	monitor := status.NewMonitor(fakeLister{running: true}, config.ServiceName, "CFDDNS")
	viewer := logview.NewViewer(logview.OSAccessor{}, store)
	return &testPanel{
		Panel:   NewPanel(store, monitor, viewer, nil),
		dir:     dir,
		logPath: logPath,
	}
}

func doRequest(h http.Handler, method, target string, body []byte) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	req.RemoteAddr = "192.168.1.10:51234"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeResult(t *testing.T, rec *httptest.ResponseRecorder) helper.Result {
	t.Helper()
	var result helper.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("响应不是 JSON: %v, body = %s", err, rec.Body.String())
	}
	return result
}

// TestHomeRedirect 测试首页跳转
func TestHomeRedirect(t *testing.T) {
	p := newTestPanel(t)
	rec := doRequest(p.Handler(), "GET", "/", nil)
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/cfddns/config" {
		t.Errorf("GET / = %d %q", rec.Code, rec.Header().Get("Location"))
	}

	rec = doRequest(p.Handler(), "GET", "/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET /nope = %d, want 404", rec.Code)
	}
}

// TestConfigPage 测试配置页渲染
func TestConfigPage(t *testing.T) {
	p := newTestPanel(t)
	rec := doRequest(p.Handler(), "GET", "/cfddns/config", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /cfddns/config = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		"Collecting data…",
		"Enable Automatic Updates",
		"IP Detection Service URL",
		"Can be found in your Cloudflare profile settings",
		`id="cbi-ip_interface" style="display:none"`,
		"https://api.ipify.org",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("页面缺少 %q", want)
		}
	}
	if strings.Contains(body, `id="cbi-ip_service" style="display:none"`) {
		t.Error("ip_service 在默认配置下应显示")
	}
}

// TestConfigPageLoadFailure 测试配置加载失败
func TestConfigPageLoadFailure(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, config.PackageName+".yaml"), []byte("sections: ["), 0600); err != nil {
		t.Fatal(err)
	}
	store := config.NewStore(dir)
	p := NewPanel(store, status.NewMonitor(fakeLister{}, config.ServiceName, "CFDDNS"), logview.NewViewer(nil, nil), nil)

	rec := doRequest(p.Handler(), "GET", "/cfddns/config", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("GET /cfddns/config = %d, want 500", rec.Code)
	}
}

// TestConfigSave 测试保存配置
func TestConfigSave(t *testing.T) {
	p := newTestPanel(t)
	h := p.Handler()

	body := []byte(`{"enabled": true, "email": "me@example.com", "api_key": "secret",
		"zone_name": "example.com", "record_name": "home.example.com",
		"record_type": "AAAA", "ip_source": "network", "ip_service": "https://ifconfig.co",
		"ttl": 120, "update_interval": "5"}`)
	result := decodeResult(t, doRequest(h, "POST", "/cfddns/config", body))
	if !result.Status {
		t.Fatalf("保存失败: %+v", result)
	}

	r, err := config.LoadRecord(p.Store)
	if err != nil {
		t.Fatal(err)
	}
	if !r.Enabled || r.RecordType != "AAAA" || r.TTL != 120 || r.UpdateInterval != 5 || r.IPService != "https://ifconfig.co" {
		t.Errorf("LoadRecord() = %+v", r)
	}

	// 切换到网卡来源，ip_service 保留原值
	body = []byte(`{"ip_source": "interface", "ip_interface": "wan", "api_key": "********"}`)
	result = decodeResult(t, doRequest(h, "POST", "/cfddns/config", body))
	if !result.Status {
		t.Fatalf("保存失败: %+v", result)
	}
	r, _ = config.LoadRecord(p.Store)
	if r.IPSource != "interface" || r.IPInterface != "wan" {
		t.Errorf("LoadRecord() = %+v", r)
	}
	if r.IPService != "https://ifconfig.co" {
		t.Errorf("ip_service = %q, 隐藏字段应保留", r.IPService)
	}
	if r.APIKey != "secret" {
		t.Errorf("api_key = %q, 提交占位值应保留原密码", r.APIKey)
	}
}

// TestConfigSaveInvalid 测试校验失败
func TestConfigSaveInvalid(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"非法域名", `{"zone_name": "exa mple.com"}`, config.KeyZoneName},
		{"非法 TTL", `{"ttl": "-1"}`, config.KeyTTL},
		{"非法记录类型", `{"record_type": "MX"}`, config.KeyRecordType},
		{"TTL 超出范围", `{"ttl": "99999999999999999999999"}`, config.KeyTTL},
		{"更新间隔超出范围", `{"update_interval": 18446744073709551616}`, config.KeyUpdateInterval},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPanel(t)
			before, _ := os.ReadFile(filepath.Join(p.dir, config.PackageName+".yaml"))
			result := decodeResult(t, doRequest(p.Handler(), "POST", "/cfddns/config", []byte(tt.body)))
			if result.Status {
				t.Fatal("应校验失败")
			}
			data, ok := result.Data.(map[string]any)
			if !ok {
				t.Fatalf("Data = %#v", result.Data)
			}
			if _, ok := data[tt.field]; !ok {
				t.Errorf("缺少字段 %s 的错误: %v", tt.field, data)
			}
			after, _ := os.ReadFile(filepath.Join(p.dir, config.PackageName+".yaml"))
			if !bytes.Equal(before, after) {
				t.Error("校验失败不应修改配置文件")
			}
		})
	}
}

// TestConfigSaveZone 测试记录名与区域名的关系只提示不阻止保存
func TestConfigSaveZone(t *testing.T) {
	tests := []struct {
		name        string
		zone        string
		record      string
		wantWarning bool
	}{
		{"相对记录名", "example.com", "www", false},
		{"区域内", "example.com", "home.example.com", false},
		{"区域外", "example.com", "home.example.org", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPanel(t)
			h := p.Handler()

			body, _ := json.Marshal(map[string]string{"zone_name": tt.zone, "record_name": tt.record})
			result := decodeResult(t, doRequest(h, "POST", "/cfddns/config", body))
			if !result.Status {
				t.Fatalf("保存失败: %+v", result)
			}
			if got := strings.Contains(result.Msg, "warning"); got != tt.wantWarning {
				t.Errorf("Msg = %q, wantWarning %v", result.Msg, tt.wantWarning)
			}

			// 之后只切换开关也能保存
			result = decodeResult(t, doRequest(h, "POST", "/cfddns/config", []byte(`{"enabled": true}`)))
			if !result.Status {
				t.Fatalf("切换开关保存失败: %+v", result)
			}
			r, _ := config.LoadRecord(p.Store)
			if !r.Enabled || r.RecordName != tt.record || r.ZoneName != tt.zone {
				t.Errorf("LoadRecord() = %+v", r)
			}
		})
	}
}

// TestConfigSaveBadJSON 测试请求格式错误
func TestConfigSaveBadJSON(t *testing.T) {
	p := newTestPanel(t)
	result := decodeResult(t, doRequest(p.Handler(), "POST", "/cfddns/config", []byte("{")))
	if result.Status || result.Msg != "请求格式错误" {
		t.Errorf("result = %+v", result)
	}
}

// TestStatus 测试状态接口
func TestStatus(t *testing.T) {
	p := newTestPanel(t)
	h := p.Handler()

	result := decodeResult(t, doRequest(h, "GET", "/cfddns/status", nil))
	data := result.Data.(map[string]any)
	if data["polled"] != false || data["html"] != "Collecting data…" {
		t.Errorf("首次轮询前 data = %v", data)
	}

	_ = p.Monitor.Poll(context.Background())
	result = decodeResult(t, doRequest(h, "GET", "/cfddns/status", nil))
	data = result.Data.(map[string]any)
	if data["running"] != true || !strings.Contains(data["html"].(string), "CFDDNS RUNNING") {
		t.Errorf("data = %v", data)
	}
}

// TestLogData 测试日志接口
func TestLogData(t *testing.T) {
	p := newTestPanel(t)
	if err := os.WriteFile(p.logPath, []byte("2026-10-19 08:00:00 ok\nupdate failed\n"), 0644); err != nil {
		t.Fatal(err)
	}
	_ = p.Viewer.Poll(context.Background())

	result := decodeResult(t, doRequest(p.Handler(), "GET", "/cfddns/log/data", nil))
	data := result.Data.(map[string]any)
	if data["count"] != "Showing last 2 of 2 lines" {
		t.Errorf("count = %v", data["count"])
	}
	lines := data["lines"].([]any)
	if len(lines) != 2 || lines[1].(map[string]any)["error"] != true {
		t.Errorf("lines = %v", lines)
	}

	rec := doRequest(p.Handler(), "GET", "/cfddns/log", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Cloudflare DDNS Update Log") {
		t.Errorf("GET /cfddns/log = %d", rec.Code)
	}
}

// TestLogClear 测试清空日志
func TestLogClear(t *testing.T) {
	p := newTestPanel(t)
	h := p.Handler()
	if err := os.WriteFile(p.logPath, []byte("a\nb\n"), 0644); err != nil {
		t.Fatal(err)
	}
	_ = p.Viewer.Poll(context.Background())

	// 未确认
	result := decodeResult(t, doRequest(h, "POST", "/cfddns/log/clear", nil))
	if result.Status || result.Msg != ClearQuestion {
		t.Errorf("未确认 result = %+v", result)
	}
	if data, _ := os.ReadFile(p.logPath); len(data) == 0 {
		t.Fatal("未确认时不应清空")
	}

	result = decodeResult(t, doRequest(h, "POST", "/cfddns/log/clear", []byte(`{"confirm": true}`)))
	if !result.Status {
		t.Fatalf("清空失败: %+v", result)
	}
	if data := result.Data.(map[string]any); data["total"] != float64(0) {
		t.Errorf("data = %v", data)
	}
	if data, _ := os.ReadFile(p.logPath); len(data) != 0 {
		t.Errorf("日志文件内容 = %q", data)
	}

	rec := doRequest(h, "GET", "/cfddns/log/clear", nil)
	if decodeResult(t, rec).Status {
		t.Error("GET 不应清空日志")
	}
}

// TestLogClearFailure 测试清空失败
func TestLogClearFailure(t *testing.T) {
	p := newTestPanel(t)
	// 路径指向目录，写入失败
	dirPath := filepath.Join(p.dir, "logdir")
	if err := os.Mkdir(dirPath, 0755); err != nil {
		t.Fatal(err)
	}
	if err := p.Store.Apply(config.PackageName, config.SectionName, config.SectionType,
		map[string]string{config.KeyLogFile: dirPath}, nil); err != nil {
		t.Fatal(err)
	}

	result := decodeResult(t, doRequest(p.Handler(), "POST", "/cfddns/log/clear?confirm=true", nil))
	if result.Status || !strings.HasPrefix(result.Msg, "Error clearing log: ") {
		t.Errorf("result = %+v", result)
	}
}

// TestWANAccess 测试公网访问限制
func TestWANAccess(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		header     map[string]string
		allowWAN   bool
		wantCode   int
	}{
		{"内网直连", "192.168.1.10:40000", nil, false, http.StatusOK},
		{"公网直连", "8.8.8.8:40000", nil, false, http.StatusForbidden},
		{"公网伪造 X-Forwarded-For", "8.8.8.8:4444", map[string]string{"X-Forwarded-For": "10.0.0.1"}, false, http.StatusForbidden},
		{"公网伪造 X-Real-IP", "8.8.8.8:4444", map[string]string{"X-Real-IP": "127.0.0.1"}, false, http.StatusForbidden},
		{"本机代理转发公网客户端", "127.0.0.1:8080", map[string]string{"X-Forwarded-For": "8.8.8.8"}, false, http.StatusForbidden},
		{"本机代理转发内网客户端", "127.0.0.1:8080", map[string]string{"X-Forwarded-For": "192.168.1.20"}, false, http.StatusOK},
		{"允许公网", "8.8.8.8:40000", nil, true, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPanel(t)
			p.AllowWAN = tt.allowWAN

			req := httptest.NewRequest("GET", "/cfddns/status", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			p.Handler().ServeHTTP(rec, req)
			if rec.Code != tt.wantCode {
				t.Errorf("GET /cfddns/status = %d, want %d", rec.Code, tt.wantCode)
			}
		})
	}
}

// TestMetricsAndGzip 测试指标接口与压缩
func TestMetricsAndGzip(t *testing.T) {
	p := newTestPanel(t)
	_ = p.Monitor.Poll(context.Background())

	rec := doRequest(p.Handler(), "GET", "/metrics", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "cfddns_panel_service_running") {
		t.Errorf("GET /metrics = %d", rec.Code)
	}

	req := httptest.NewRequest("GET", "/cfddns/config", nil)
	req.RemoteAddr = "127.0.0.1:1234"
	req.Header.Set("Accept-Encoding", "gzip")
	rec = httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, req)
	if rec.Header().Get("Content-Encoding") != "gzip" {
		t.Errorf("Content-Encoding = %q, want gzip", rec.Header().Get("Content-Encoding"))
	}
}

// TestFormValue 测试 JSON 值转换
func TestFormValue(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"wan", "wan"},
		{true, "1"},
		{false, "0"},
		{float64(300), "300"},
	}
	for _, tt := range tests {
		if got := formValue(tt.in); got != tt.want {
			t.Errorf("formValue(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// TestPanelLogs 测试面板运行日志
func TestPanelLogs(t *testing.T) {
	p := newTestPanel(t)
	helper.Info(helper.LogTypeWeb, "面板日志测试")

	result := decodeResult(t, doRequest(p.Handler(), "GET", "/cfddns/panel/logs", nil))
	entries, ok := result.Data.([]any)
	if !result.Status || !ok || len(entries) == 0 {
		t.Fatalf("result = %+v", result)
	}
	last := entries[len(entries)-1].(map[string]any)
	if last["message"] != "面板日志测试" {
		t.Errorf("最后一条日志 = %v", last)
	}
}
