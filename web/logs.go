package web

import (
	"encoding/json"
	"errors"
	"html/template"
	"net/http"

	"github.com/cxbdasheng/cfddns/helper"
	"github.com/cxbdasheng/cfddns/logview"
	"github.com/cxbdasheng/cfddns/poll"
)

// ClearQuestion 清空日志前的确认提示
const ClearQuestion = "Are you sure you want to clear the log file?"

// Logs 日志页，只读，没有保存与重置
func (p *Panel) Logs(writer http.ResponseWriter, request *http.Request) {
	switch request.Method {
	case "GET":
		p.handleLogsGet(writer, request)
	default:
		helper.ReturnError(writer, "不支持的请求方法")
		return
	}
}

func (p *Panel) handleLogsGet(writer http.ResponseWriter, request *http.Request) {
	tmpl, err := template.ParseFS(templateFiles, "logs.html")
	if err != nil {
		helper.Error(helper.LogTypeWeb, "解析模板失败: %v", err)
		http.Error(writer, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	err = tmpl.Execute(writer, struct {
		Version       string
		Log           logview.Snapshot
		Interval      int
		ClearQuestion string
	}{
		Version:       version(),
		Log:           p.Viewer.Snapshot(),
		Interval:      int(poll.DefaultInterval.Seconds()),
		ClearQuestion: ClearQuestion,
	})
	if err != nil {
		helper.Error(helper.LogTypeWeb, "渲染模板失败: %v", err)
	}
}

// LogData 最近一次日志快照
func (p *Panel) LogData(writer http.ResponseWriter, request *http.Request) {
	if request.Method != "GET" {
		helper.ReturnError(writer, "不支持的请求方法")
		return
	}
	helper.ReturnSuccess(writer, "", p.Viewer.Snapshot())
}

// ClearRequest 清空日志请求
type ClearRequest struct {
	Confirm bool `json:"confirm"`
}

// LogClear 清空日志文件，需要 confirm=true
func (p *Panel) LogClear(writer http.ResponseWriter, request *http.Request) {
	if request.Method != "POST" {
		helper.ReturnError(writer, "不支持的请求方法")
		return
	}
	if !confirmed(request) {
		helper.ReturnError(writer, ClearQuestion)
		return
	}

	err := p.Viewer.Clear(request.Context())
	switch {
	case errors.Is(err, logview.ErrClearInProgress):
		helper.ReturnError(writer, err.Error())
	case err != nil:
		snap := p.Viewer.Snapshot()
		helper.ReturnErrorData(writer, snap.Message, snap)
	default:
		helper.ReturnSuccess(writer, "日志已清空", p.Viewer.Snapshot())
	}
}

// confirmed 读取 query 或 JSON 中的 confirm
func confirmed(request *http.Request) bool {
	if request.URL.Query().Get("confirm") == "true" {
		return true
	}
	if request.Body == nil {
		return false
	}
	var req ClearRequest
	if err := json.NewDecoder(request.Body).Decode(&req); err != nil {
		return false
	}
	return req.Confirm
}
