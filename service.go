package main

import (
	"context"
	"os/exec"

	"github.com/kardianos/service"

	"github.com/cxbdasheng/cfddns/helper"
)

// panelServiceName 面板自身的系统服务名
const panelServiceName = "cfddns-panel"

// program 实现 service.Interface 接口
type program struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func (p *program) Start(s service.Service) error {
	// Start 不应该阻塞，异步执行实际工作
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.run(ctx)
	return nil
}

func (p *program) run(ctx context.Context) {
	defer close(p.done)
	if err := run(ctx); err != nil {
		helper.Error(helper.LogTypeSystem, "面板运行失败: %v", err)
	}
}

func (p *program) Stop(s service.Service) error {
	if p.cancel == nil {
		return nil
	}
	p.cancel()
	<-p.done
	return nil
}

// getService 获取服务配置
func getService() service.Service {
	options := make(service.KeyValue)
	var depends []string

	// 确保服务等待网络就绪后再启动
	switch service.ChosenSystem().String() {
	case "unix-systemv":
		// System V init 脚本配置
		options["SysvScript"] = sysvScript
		options["UserService"] = false
	case "unix-upstart":
		options["UserService"] = false
	case "linux-systemd":
		depends = append(depends,
			"Requires=network.target",
			"After=network-online.target syslog.target")
		// 失败时自动重启
		options["Restart"] = "on-failure"
		options["RestartSec"] = 10
	case "darwin-launchd":
		options["KeepAlive"] = true
		options["RunAtLoad"] = true
		options["UserService"] = false
	case "windows-service":
		options["DelayedAutoStart"] = true
		options["OnFailure"] = "restart"
		options["OnFailureDelayDuration"] = "10s"
		options["OnFailureResetPeriod"] = 60
	default:
		depends = append(depends,
			"Requires=network.target",
			"After=network-online.target")
	}

	svcConfig := &service.Config{
		Name:        panelServiceName,
		DisplayName: "CFDDNS Panel",
		Description: "Web panel for the cfddns Cloudflare DDNS updater",
		Arguments: []string{
			"-l", *listen,
			"-c", *configDir,
			"-service", *serviceName,
			"-status", *statusBackend,
		},
		Dependencies: depends,
		Option:       options,
	}
	if *allowWAN {
		svcConfig.Arguments = append(svcConfig.Arguments, "-wan")
	}

	prg := &program{}
	s, err := service.New(prg, svcConfig)
	if err != nil {
		helper.Fatalf(helper.LogTypeSystem, "创建系统服务失败: %v", err)
	}
	return s
}

// runService 交互模式下前台运行，否则交给系统服务管理器
func runService() error {
	if service.Interactive() {
		return runForeground()
	}
	return getService().Run()
}

// installService 使用service库安装系统服务
func installService() {
	helper.Info(helper.LogTypeSystem, "正在安装 CFDDNS 面板系统服务...")

	s := getService()
	status, err := s.Status()
	if err != nil && status == service.StatusUnknown {
		// 服务未知，创建服务
		if err = s.Install(); err == nil {
			if startErr := s.Start(); startErr != nil {
				helper.Error(helper.LogTypeSystem, "服务安装成功但启动失败: %v", startErr)
			}
			helper.Info(helper.LogTypeSystem, "安装 CFDDNS 面板服务成功! 请打开浏览器并进行配置")

			// System V init 系统需要额外配置开机自启
			if service.ChosenSystem().String() == "unix-systemv" {
				enableSysv()
			}
			return
		}
		helper.Error(helper.LogTypeSystem, "安装 CFDDNS 面板服务失败, 异常信息: %v", err)
	}

	if status != service.StatusUnknown {
		helper.Info(helper.LogTypeSystem, "CFDDNS 面板服务已安装, 无需再次安装")
	}
}

// enableSysv 配置 System V 开机自启
func enableSysv() {
	// 尝试使用 update-rc.d (Debian/Ubuntu)
	if _, err := exec.LookPath("update-rc.d"); err == nil {
		if out, err := exec.Command("update-rc.d", panelServiceName, "defaults").CombinedOutput(); err != nil {
			helper.Error(helper.LogTypeSystem, "update-rc.d 配置失败: %v, 输出: %s", err, out)
		} else {
			helper.Info(helper.LogTypeSystem, "已配置开机自启 (update-rc.d)")
		}
		return
	}
	// 尝试使用 chkconfig (RedHat/CentOS)
	if _, err := exec.LookPath("chkconfig"); err == nil {
		if out, err := exec.Command("chkconfig", "--add", panelServiceName).CombinedOutput(); err != nil {
			helper.Error(helper.LogTypeSystem, "chkconfig --add 失败: %v, 输出: %s", err, out)
			return
		}
		if out, err := exec.Command("chkconfig", panelServiceName, "on").CombinedOutput(); err != nil {
			helper.Error(helper.LogTypeSystem, "chkconfig on 失败: %v, 输出: %s", err, out)
			return
		}
		helper.Info(helper.LogTypeSystem, "已配置开机自启 (chkconfig)")
	}
}

// disableSysv 移除 System V 开机自启
func disableSysv() {
	if _, err := exec.LookPath("update-rc.d"); err == nil {
		if out, err := exec.Command("update-rc.d", "-f", panelServiceName, "remove").CombinedOutput(); err != nil {
			helper.Error(helper.LogTypeSystem, "update-rc.d remove 失败: %v, 输出: %s", err, out)
		}
	} else if _, err := exec.LookPath("chkconfig"); err == nil {
		if out, err := exec.Command("chkconfig", "--del", panelServiceName).CombinedOutput(); err != nil {
			helper.Error(helper.LogTypeSystem, "chkconfig --del 失败: %v, 输出: %s", err, out)
		}
	}
}

// uninstallService 使用 service 库卸载系统服务
func uninstallService() {
	helper.Info(helper.LogTypeSystem, "正在卸载 CFDDNS 面板系统服务...")

	s := getService()
	if stopErr := s.Stop(); stopErr != nil {
		helper.Warn(helper.LogTypeSystem, "停止服务时出现警告: %v", stopErr)
	}
	if service.ChosenSystem().String() == "unix-systemv" {
		disableSysv()
	}

	if err := s.Uninstall(); err != nil {
		helper.Fatal(helper.LogTypeSystem, "CFDDNS 面板服务卸载失败: %v", err)
	}
	helper.Info(helper.LogTypeSystem, "CFDDNS 面板服务卸载成功")
}

// restartService 使用service库重启系统服务
func restartService() {
	helper.Info(helper.LogTypeSystem, "正在重启 CFDDNS 面板系统服务...")

	s := getService()
	status, err := s.Status()
	if err != nil {
		helper.Fatal(helper.LogTypeSystem, "CFDDNS 面板服务未安装, 请先安装服务")
	}

	switch status {
	case service.StatusRunning:
		if err = s.Restart(); err != nil {
			helper.Fatal(helper.LogTypeSystem, "CFDDNS 面板服务重启失败: %v", err)
		}
		helper.Info(helper.LogTypeSystem, "CFDDNS 面板服务重启成功")
	case service.StatusStopped:
		if err = s.Start(); err != nil {
			helper.Fatal(helper.LogTypeSystem, "CFDDNS 面板服务启动失败: %v", err)
		}
		helper.Info(helper.LogTypeSystem, "CFDDNS 面板服务启动成功")
	default:
		helper.Fatal(helper.LogTypeSystem, "CFDDNS 面板服务状态未知: %v", status)
	}
}

// sysvScript 定义 System V init 脚本模板
const sysvScript = `#!/bin/sh
### BEGIN INIT INFO
# Provides:          {{.Name}}
# Required-Start:    $network $remote_fs $syslog
# Required-Stop:     $network $remote_fs $syslog
# Default-Start:     2 3 4 5
# Default-Stop:      0 1 6
# Short-Description: {{.DisplayName}}
# Description:       {{.Description}}
### END INIT INFO

cmd="{{.Path}}{{range .Arguments}} {{.}}{{end}}"

name=$(basename $(readlink -f $0))
pid_file="/var/run/$name.pid"
stdout_log="/var/log/$name.log"
stderr_log="/var/log/$name.err"

get_pid() {
    cat "$pid_file"
}

is_running() {
    [ -f "$pid_file" ] && ps -p $(get_pid) > /dev/null 2>&1
}

case "$1" in
    start)
        if is_running; then
            echo "Already started"
        else
            echo "Starting $name"
            $cmd >> "$stdout_log" 2>> "$stderr_log" &
            echo $! > "$pid_file"
        fi
        ;;
    stop)
        if is_running; then
            echo "Stopping $name"
            kill $(get_pid)
            rm -f "$pid_file"
        else
            echo "Not running"
        fi
        ;;
    restart)
        $0 stop
        $0 start
        ;;
    status)
        if is_running; then
            echo "Running"
        else
            echo "Stopped"
            exit 1
        fi
        ;;
    *)
        echo "Usage: $0 {start|stop|restart|status}"
        exit 1
        ;;
esac

exit 0
`
