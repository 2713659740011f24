package web

import (
	"fmt"
	"net/http"
	"time"

	"github.com/cxbdasheng/cfddns/config"
	"github.com/cxbdasheng/cfddns/helper"
)

// AccessCheckResult 访问检查结果
type AccessCheckResult struct {
	Allowed bool
	Reason  string
}

// checkWANAccess 检查WAN访问权限
func (p *Panel) checkWANAccess(r *http.Request) AccessCheckResult {
	clientIP := helper.GetClientIP(r)
	if helper.IsLocalAddress(clientIP) {
		return AccessCheckResult{Allowed: true}
	}

	if !p.AllowWAN {
		return AccessCheckResult{
			Allowed: false,
			Reason:  fmt.Sprintf("客户端 %s 被拒绝访问：禁止从公网访问", clientIP),
		}
	}

	// 从未保存过配置且启动时间超过3小时，禁止从公网访问
	if !p.configured() && time.Since(p.startTime) > 3*time.Hour {
		return AccessCheckResult{
			Allowed: false,
			Reason:  fmt.Sprintf("客户端 %s 被拒绝访问：配置为空，超过3小时禁止从公网访问", clientIP),
		}
	}

	return AccessCheckResult{Allowed: true}
}

// configured cfddns.config 是否已经存在
func (p *Panel) configured() bool {
	if err := p.Store.Load(config.PackageName); err != nil {
		return false
	}
	_, err := p.Store.SectionType(config.PackageName, config.SectionName)
	return err == nil
}

// AuthAssert 拒绝不允许的公网访问
func (p *Panel) AuthAssert(f ViewFunc) ViewFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accessResult := p.checkWANAccess(r)
		if !accessResult.Allowed {
			w.WriteHeader(http.StatusForbidden)
			helper.Warn(helper.LogTypeAuth, "%s", accessResult.Reason)
			return
		}

		f(w, r) // 执行被装饰的函数
	}
}
