package status

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"time"
)

// Ubus 通过 `ubus call service list` 查询 procd
type Ubus struct {
	Path    string
	Timeout time.Duration
}

// NewUbus 使用 PATH 中的 ubus
func NewUbus() *Ubus {
	return &Ubus{Path: "ubus", Timeout: 3 * time.Second}
}

func (u *Ubus) List(ctx context.Context, name string) (map[string]any, error) {
	if u.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.Timeout)
		defer cancel()
	}

	params, err := json.Marshal(map[string]string{"name": name})
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, u.Path, "call", "service", "list", string(params))
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ubus call service list: %w: %s", err, bytes.TrimSpace(stderr.Bytes()))
	}

	res := map[string]any{}
	if len(bytes.TrimSpace(out)) == 0 {
		return res, nil
	}
	if err = json.Unmarshal(out, &res); err != nil {
		return nil, fmt.Errorf("ubus call service list: %w", err)
	}
	return res, nil
}
