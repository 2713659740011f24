package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"

	"github.com/cxbdasheng/cfddns/config"
	"github.com/cxbdasheng/cfddns/form"
	"github.com/cxbdasheng/cfddns/helper"
	"github.com/cxbdasheng/cfddns/metrics"
	"github.com/cxbdasheng/cfddns/status"
)

// NewConfigForm cfddns.config 的表单定义
func NewConfigForm(store form.Store) *form.Map {
	m := form.NewMap(store, config.PackageName, "CFDDNS", "Automatically update your Cloudflare DNS records")
	s := m.Section(config.SectionType, config.SectionName)

	o := s.Option(form.KindFlag, config.KeyEnabled, "Enable Automatic Updates")
	o.RmEmpty = false
	o.Default = "0"

	// Cloudflare 账户
	o = s.Option(form.KindValue, config.KeyEmail, "Cloudflare Email")
	o.Placeholder = "user@example.com"

	o = s.Option(form.KindValue, config.KeyAPIKey, "API Key")
	o.Password = true
	o.Description = "Can be found in your Cloudflare profile settings"

	// DNS 记录
	o = s.Option(form.KindValue, config.KeyZoneName, "Zone Name (Root Domain)")
	o.Datatype = form.DatatypeHostname
	o.Placeholder = "example.com"

	o = s.Option(form.KindValue, config.KeyRecordName, "Record Name (Subdomain)")
	o.Datatype = form.DatatypeHostname
	o.Placeholder = "sub.example.com"

	o = s.Option(form.KindListValue, config.KeyRecordType, "Record Type").
		Value(config.RecordTypeA, "A (IPv4)").
		Value(config.RecordTypeAAAA, "AAAA (IPv6)")
	o.Default = config.DefaultRecordType

	o = s.Option(form.KindListValue, config.KeyIPSource, "IP Source Method").
		Value(config.IPSourceNetwork, "Get from network (external service)").
		Value(config.IPSourceInterface, "Get from local interface")
	o.Default = config.DefaultIPSource
	o.Description = "Choose how to obtain the IP address"

	o = s.Option(form.KindValue, config.KeyIPService, "IP Detection Service URL").
		Depends(config.KeyIPSource, config.IPSourceNetwork)
	o.Default = config.DefaultIPService
	o.Placeholder = config.DefaultIPService

	o = s.Option(form.KindValue, config.KeyIPInterface, "Network Interface").
		Depends(config.KeyIPSource, config.IPSourceInterface)
	o.Placeholder = "wan"

	o = s.Option(form.KindValue, config.KeyTTL, "TTL (Time-To-Live)(second)")
	o.Datatype = form.DatatypeUInteger
	o.Default = strconv.Itoa(config.DefaultTTL)
	o.Placeholder = o.Default

	o = s.Option(form.KindValue, config.KeyUpdateInterval, "Update Interval (minutes)")
	o.Datatype = form.DatatypeUInteger
	o.Default = strconv.Itoa(config.DefaultUpdateInterval)
	o.Placeholder = o.Default

	o = s.Option(form.KindValue, config.KeyLogFile, "Log File Path")
	o.Default = config.DefaultLogFile

	return m
}

// Config 配置页
func (p *Panel) Config(writer http.ResponseWriter, request *http.Request) {
	switch request.Method {
	case "GET":
		p.handleConfigGet(writer, request)
	case "POST":
		p.handleConfigPost(writer, request)
	default:
		helper.ReturnError(writer, "不支持的请求方法")
		return
	}
}

func (p *Panel) handleConfigGet(writer http.ResponseWriter, request *http.Request) {
	if err := p.Form.Load(); err != nil {
		helper.Error(helper.LogTypeConfig, "加载配置 %s 失败: %v", config.PackageName, err)
		http.Error(writer, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	view, err := p.Form.Render()
	if err != nil {
		helper.Error(helper.LogTypeConfig, "生成表单失败: %v", err)
		http.Error(writer, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	tmpl, err := template.ParseFS(templateFiles, "config.html")
	if err != nil {
		helper.Error(helper.LogTypeWeb, "解析模板失败: %v", err)
		http.Error(writer, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	// 网卡列表只用于输入提示
	ifaces, err := helper.GetNetInterface()
	if err != nil {
		helper.Debug(helper.LogTypeWeb, "获取网卡列表失败: %v", err)
	}

	err = tmpl.Execute(writer, struct {
		Version    string
		Form       form.View
		Status     status.Snapshot
		Interfaces []helper.NetInterface
	}{
		Version:    version(),
		Form:       view,
		Status:     p.Monitor.Snapshot(),
		Interfaces: ifaces,
	})
	if err != nil {
		helper.Error(helper.LogTypeWeb, "渲染模板失败: %v", err)
	}
}

func (p *Panel) handleConfigPost(writer http.ResponseWriter, request *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(request.Body).Decode(&body); err != nil {
		helper.Warn(helper.LogTypeWeb, "请求解析失败: %v", err)
		metrics.ConfigSaves.WithLabelValues("invalid").Inc()
		helper.ReturnError(writer, "请求格式错误")
		return
	}
	input := make(map[string]string, len(body))
	for k, v := range body {
		input[k] = formValue(v)
	}

	err := p.Form.Save(config.SectionName, input)
	var fieldErrs form.FieldErrors
	switch {
	case errors.As(err, &fieldErrs):
		metrics.ConfigSaves.WithLabelValues("invalid").Inc()
		helper.ReturnErrorData(writer, "配置校验失败", fieldErrs)
		return
	case err != nil:
		metrics.ConfigSaves.WithLabelValues("error").Inc()
		helper.Error(helper.LogTypeConfig, "保存配置失败: %v", err)
		helper.ReturnError(writer, "保存配置失败: "+err.Error())
		return
	}
	metrics.ConfigSaves.WithLabelValues("ok").Inc()
	msg := "保存成功"
	if warning := p.savedRecordWarning(); warning != "" {
		msg += ", " + warning
	}

	// 日志路径可能已修改，立即重新轮询
	if p.Sched != nil {
		p.Sched.Restart()
	}

	view, err := p.Form.Render()
	if err != nil {
		helper.ReturnSuccess(writer, msg, nil)
		return
	}
	helper.ReturnSuccess(writer, msg, view)
}

// savedRecordWarning 记录已保存的配置；记录名不在区域内时只提示，不阻止保存
func (p *Panel) savedRecordWarning() string {
	r, err := config.LoadRecord(p.Store)
	if err != nil {
		helper.Warn(helper.LogTypeConfig, "读取已保存的配置失败: %v", err)
		return ""
	}
	ipKey := r.ActiveIPKey()
	ipValue := r.IPService
	if ipKey == config.KeyIPInterface {
		ipValue = r.IPInterface
	}
	helper.Info(helper.LogTypeConfig, "配置已保存: 记录 %s (%s), 区域 %s, %s=%s",
		r.RecordName, r.RecordType, r.ZoneName, ipKey, ipValue)

	if err = r.CheckZone(); err != nil {
		helper.Warn(helper.LogTypeConfig, "%v", err)
		return "warning: " + err.Error()
	}
	return ""
}

// formValue 把 JSON 值转换为配置字符串
func formValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		if val {
			return "1"
		}
		return "0"
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}
