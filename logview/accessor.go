package logview

import (
	"context"
	"io/fs"
	"os"
)

// ErrNotFound 文件不存在，os 返回的错误可以直接用 errors.Is 判断
var ErrNotFound = fs.ErrNotExist

// Accessor 日志文件读写
type Accessor interface {
	Read(ctx context.Context, path string) ([]byte, error)
	Write(ctx context.Context, path string, content []byte) error
}

// OSAccessor 本地文件系统
type OSAccessor struct{}

func (OSAccessor) Read(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

// Write 覆盖写入，文件不存在时创建
func (OSAccessor) Write(ctx context.Context, path string, content []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return os.WriteFile(path, content, 0644)
}
