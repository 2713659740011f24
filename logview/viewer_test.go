package logview

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/cxbdasheng/cfddns/config"
	"github.com/cxbdasheng/cfddns/poll"
)

type mapGetter map[string]string

func (m mapGetter) Get(pkg, section, key string) (string, error) {
	if v, ok := m[key]; ok {
		return v, nil
	}
	return "", nil
}

type failingGetter struct{}

func (failingGetter) Get(pkg, section, key string) (string, error) {
	return "", errors.New("uci: entry not found")
}

// TestResolveLogPath 测试日志路径解析
func TestResolveLogPath(t *testing.T) {
	tests := []struct {
		name   string
		getter ConfigGetter
		want   string
	}{
		{"nil", nil, config.DefaultLogFile},
		{"已配置", mapGetter{"log_file": "/tmp/a.log"}, "/tmp/a.log"},
		{"空值", mapGetter{"log_file": "  "}, config.DefaultLogFile},
		{"未配置", mapGetter{}, config.DefaultLogFile},
		{"读取失败", failingGetter{}, config.DefaultLogFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveLogPath(tt.getter); got != tt.want {
				t.Errorf("ResolveLogPath() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestResolveLogPathFromStore 测试从配置存储读取
func TestResolveLogPathFromStore(t *testing.T) {
	store := config.NewStore(t.TempDir())
	if got := ResolveLogPath(store); got != config.DefaultLogFile {
		t.Errorf("空存储 ResolveLogPath() = %q", got)
	}

	_ = store.Load(config.PackageName)
	err := store.Apply(config.PackageName, config.SectionName, config.SectionType,
		map[string]string{config.KeyLogFile: "/tmp/cfddns-test.log"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := ResolveLogPath(store); got != "/tmp/cfddns-test.log" {
		t.Errorf("ResolveLogPath() = %q", got)
	}
}

func newFileViewer(t *testing.T, content string) (*Viewer, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfddns.log")
	if content != "" {
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	v := NewViewer(OSAccessor{}, mapGetter{"log_file": path})
	v.SetClock(func() time.Time { return fixedNow })
	return v, path
}

// TestViewerPoll 测试轮询读取文件
func TestViewerPoll(t *testing.T) {
	v, _ := newFileViewer(t, "2026-10-19 08:00:00 start\nupdate failed\n")

	if s := v.Snapshot(); s.State != StateLoading {
		t.Errorf("初始状态 = %s, want loading", s.State)
	}
	if err := v.Poll(context.Background()); err != nil {
		t.Fatalf("Poll() error = %v", err)
	}
	s := v.Snapshot()
	if s.Shown != 2 || s.Total != 2 {
		t.Errorf("Snapshot() = %+v", s)
	}
	if s.Lines[0].Error || !s.Lines[1].Error {
		t.Errorf("错误行标记不正确: %+v", s.Lines)
	}
	if s.Lines[1].Text != "2026-10-19 08:30:05 update failed" {
		t.Errorf("Lines[1] = %q", s.Lines[1].Text)
	}
}

// TestViewerNotFound 测试日志文件不存在
func TestViewerNotFound(t *testing.T) {
	v, path := newFileViewer(t, "")

	if err := v.Poll(context.Background()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Poll() error = %v, want ErrNotFound", err)
	}
	s := v.Snapshot()
	if s.State != StateNotFound || s.Message != "Log file not found at: "+path || s.Count != "" {
		t.Errorf("Snapshot() = %+v", s)
	}
}

// TestViewerReadErrorReplacesContent 测试读取失败不保留旧内容
func TestViewerReadErrorReplacesContent(t *testing.T) {
	fa := &fakeAccessor{content: []byte("a\nb\n")}
	v := NewViewer(fa, nil)
	_ = v.Poll(context.Background())
	if v.Snapshot().Shown != 2 {
		t.Fatalf("Snapshot() = %+v", v.Snapshot())
	}

	fa.setReadErr(errors.New("io failure"))
	_ = v.Poll(context.Background())
	s := v.Snapshot()
	if s.State != StateError || len(s.Lines) != 0 || s.Count != "" {
		t.Errorf("Snapshot() = %+v", s)
	}
	if s.Message != "Error reading log: io failure" {
		t.Errorf("Message = %q", s.Message)
	}
}

// TestViewerClear 测试清空日志后立即刷新
func TestViewerClear(t *testing.T) {
	v, path := newFileViewer(t, "one\ntwo\nthree\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sched := poll.New()
	v.Mount(ctx, sched, time.Hour)
	sched.Start(ctx)
	defer sched.Stop()

	waitSnapshot(t, v, func(s Snapshot) bool { return s.Total == 3 })

	if err := v.Clear(context.Background()); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	s := v.Snapshot()
	if s.Shown != 0 || s.Total != 0 || s.State != StateOK {
		t.Errorf("清空后 Snapshot() = %+v", s)
	}
	data, err := os.ReadFile(path)
	if err != nil || len(data) != 0 {
		t.Errorf("日志文件未清空: %q, %v", data, err)
	}
}

// TestViewerClearWithoutScheduler 测试未挂载时清空后直接读取
func TestViewerClearWithoutScheduler(t *testing.T) {
	v, _ := newFileViewer(t, "one\n")
	_ = v.Poll(context.Background())

	if err := v.Clear(context.Background()); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if s := v.Snapshot(); s.Total != 0 {
		t.Errorf("Snapshot() = %+v", s)
	}
}

// TestViewerClearFailure 测试清空失败
func TestViewerClearFailure(t *testing.T) {
	fa := &fakeAccessor{content: []byte("a\nb\nc\n"), writeErr: errors.New("read-only file system")}
	v := NewViewer(fa, nil)
	_ = v.Poll(context.Background())

	err := v.Clear(context.Background())
	if err == nil {
		t.Fatal("Clear() 应返回错误")
	}
	s := v.Snapshot()
	if s.State != StateClearError || s.Message != "Error clearing log: read-only file system" {
		t.Errorf("Snapshot() = %+v", s)
	}

	// 文件未被修改，下一次轮询行数不变
	_ = v.Poll(context.Background())
	if s := v.Snapshot(); s.Total != 3 {
		t.Errorf("Total = %d, want 3", s.Total)
	}
}

// TestViewerClearInFlight 测试重复清空被丢弃
func TestViewerClearInFlight(t *testing.T) {
	release := make(chan struct{})
	fa := &fakeAccessor{content: []byte("a\n"), block: release}
	v := NewViewer(fa, nil)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = v.Clear(context.Background())
	}()
	fa.waitWriting(t)

	if err := v.Clear(context.Background()); !errors.Is(err, ErrClearInProgress) {
		t.Errorf("Clear() error = %v, want ErrClearInProgress", err)
	}
	close(release)
	wg.Wait()

	if fa.writeCount() != 1 {
		t.Errorf("写入次数 = %d, want 1", fa.writeCount())
	}
	if err := v.Clear(context.Background()); err != nil {
		t.Errorf("写入完成后 Clear() error = %v", err)
	}
}

func waitSnapshot(t *testing.T, v *Viewer, cond func(Snapshot) bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond(v.Snapshot()) {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("等待快照超时: %+v", v.Snapshot())
}

type fakeAccessor struct {
	mu       sync.Mutex
	content  []byte
	readErr  error
	writeErr error
	writes   int
	writing  chan struct{}
	block    chan struct{}
}

func (f *fakeAccessor) Read(ctx context.Context, path string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return nil, f.readErr
	}
	return f.content, nil
}

func (f *fakeAccessor) Write(ctx context.Context, path string, content []byte) error {
	f.mu.Lock()
	if f.writing == nil {
		f.writing = make(chan struct{})
	}
	select {
	case <-f.writing:
	default:
		close(f.writing)
	}
	block := f.block
	f.mu.Unlock()

	if block != nil {
		<-block
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	if f.writeErr != nil {
		return f.writeErr
	}
	f.content = content
	return nil
}

func (f *fakeAccessor) setReadErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readErr = err
}

func (f *fakeAccessor) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes
}

func (f *fakeAccessor) waitWriting(t *testing.T) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		f.mu.Lock()
		ch := f.writing
		f.mu.Unlock()
		if ch != nil {
			select {
			case <-ch:
				return
			default:
			}
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("等待写入超时")
}
