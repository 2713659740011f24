package status

import (
	"context"
	"errors"

	"github.com/kardianos/service"
)

// System 通过系统服务管理器（systemd、launchd、Windows 服务等）查询服务状态
type System struct{}

type noop struct{}

func (noop) Start(service.Service) error { return nil }
func (noop) Stop(service.Service) error  { return nil }

func (System) List(ctx context.Context, name string) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	svc, err := service.New(noop{}, &service.Config{Name: name})
	if err != nil {
		return nil, err
	}
	st, err := svc.Status()
	if errors.Is(err, service.ErrNotInstalled) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, err
	}
	return Result(name, st == service.StatusRunning), nil
}

// Result 构造 procd 形状的查询结果
func Result(name string, running bool) map[string]any {
	return map[string]any{
		name: map[string]any{
			"instances": map[string]any{
				Instance: map[string]any{"running": running},
			},
		},
	}
}
