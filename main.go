package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/cxbdasheng/cfddns/bootstrap"
	"github.com/cxbdasheng/cfddns/config"
	"github.com/cxbdasheng/cfddns/helper"
	"github.com/cxbdasheng/cfddns/web"
)

// 配置目录
var configDir = flag.String("c", config.GetConfigDirDefault(), "Configuration directory")

// 监听地址
var listen = flag.String("l", ":9877", "Listen address")

// 被管理的服务名
var serviceName = flag.String("service", config.ServiceName, "Name of the managed DDNS service")

// 服务状态查询方式
var statusBackend = flag.String("status", bootstrap.StatusUbus, "Service status backend (ubus|system)")

// 服务管理
var serviceType = flag.String("s", "", "Service management (install|uninstall|restart)")

// 允许公网访问
var allowWAN = flag.Bool("wan", false, "Allow access from non-private addresses")

// 打印版本
var showVersion = flag.Bool("v", false, "Print version and exit")

// version
var version = "DEV"

func main() {
	flag.Parse()
	if *showVersion {
		fmt.Println(version)
		return
	}

	helper.InitLogger(helper.MaxSize)
	defer helper.GetLogger().Sync()

	// 设置配置目录
	if *configDir != "" {
		absPath, err := filepath.Abs(*configDir)
		if err != nil {
			helper.Fatalf(helper.LogTypeSystem, "Failed to get absolute path: %v", err)
		}
		*configDir = absPath
		os.Setenv(config.PathENV, absPath)
	}
	// 检查监听地址
	if _, err := net.ResolveTCPAddr("tcp", *listen); err != nil {
		helper.Fatalf(helper.LogTypeSystem, "Parse listen address failed! Exception: %s", err)
	}
	// 设置版本号
	os.Setenv(web.VersionEnv, version)

	switch *serviceType {
	case "install":
		installService()
	case "uninstall":
		uninstallService()
	case "restart":
		restartService()
	case "":
		if err := runService(); err != nil {
			helper.Fatalf(helper.LogTypeSystem, "%v", err)
		}
	default:
		helper.Fatalf(helper.LogTypeSystem, "未知的服务操作: %s", *serviceType)
	}
}

// run 运行面板直到 ctx 取消
func run(ctx context.Context) error {
	app, err := bootstrap.New(bootstrap.Options{
		ConfigDir: config.GetConfigDir(),
		Service:   *serviceName,
		Status:    *statusBackend,
		AllowWAN:  *allowWAN,
	})
	if err != nil {
		return err
	}

	l, err := net.Listen("tcp", *listen)
	if err != nil {
		return errors.New("监听端口发生异常, 请检查端口是否被占用! " + err.Error())
	}
	server := &http.Server{
		Handler:           app.Panel.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	helper.Info(helper.LogTypeSystem, "CFDDNS 面板 %s 启动中...", version)
	helper.Info(helper.LogTypeSystem, "Web界面: http://localhost%s", *listen)

	pollDone := make(chan struct{})
	go func() {
		app.Run(ctx)
		close(pollDone)
	}()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(l)
	}()

	select {
	case err = <-serveErr:
		cancel()
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err = server.Shutdown(shutdownCtx)
	}
	<-pollDone
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// runForeground 前台运行，收到退出信号后关闭
func runForeground() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return run(ctx)
}
