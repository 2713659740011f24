package web

import (
	"net/http"

	"github.com/cxbdasheng/cfddns/helper"
)

// Status 最近一次服务状态查询结果
func (p *Panel) Status(writer http.ResponseWriter, request *http.Request) {
	if request.Method != "GET" {
		helper.ReturnError(writer, "不支持的请求方法")
		return
	}
	helper.ReturnSuccess(writer, "", p.Monitor.Snapshot())
}

// PanelLogs 面板自身最近的运行日志
func (p *Panel) PanelLogs(writer http.ResponseWriter, request *http.Request) {
	if request.Method != "GET" {
		helper.ReturnError(writer, "不支持的请求方法")
		return
	}
	helper.ReturnSuccess(writer, "", helper.GetAllLogs())
}
