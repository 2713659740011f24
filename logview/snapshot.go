package logview

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cxbdasheng/cfddns/helper"
)

// MaxLines 最多显示的行数
const MaxLines = 100

// TimeLayout 日志时间戳格式
const TimeLayout = "2006-01-02 15:04:05"

var timestampPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}`)

// 快照状态
const (
	StateLoading    = "loading"
	StateOK         = "ok"
	StateNotFound   = "not_found"
	StateError      = "error"
	StateClearError = "clear_error"
)

// Line 一行日志
type Line struct {
	Text  string `json:"text"`
	Error bool   `json:"error"`
}

// Snapshot 一次轮询得到的日志视图，每次整体替换
type Snapshot struct {
	State   string `json:"state"`
	Path    string `json:"path"`
	Lines   []Line `json:"lines"`
	Shown   int    `json:"shown"`
	Total   int    `json:"total"`
	Count   string `json:"count"`
	Message string `json:"message,omitempty"`
}

// Loading 首次轮询之前的快照
func Loading(path string) Snapshot {
	return Snapshot{
		State:   StateLoading,
		Path:    path,
		Lines:   []Line{},
		Count:   "Loading...",
		Message: "Loading log data...",
	}
}

// Decode 按 UTF-8 解码，去掉开头的 BOM，非法字节替换为 U+FFFD
func Decode(b []byte) string {
	s := string(b)
	if !utf8.Valid(b) {
		s = strings.ToValidUTF8(s, "\uFFFD")
	}
	return strings.TrimPrefix(s, "\uFEFF")
}

// SplitContent 去掉首尾空白后按行分割，空内容返回 0 行
func SplitContent(content string) []string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil
	}
	return helper.SplitLines(trimmed)
}

// HasTimestamp 行首是否已有 YYYY-MM-DD HH:MM:SS
func HasTimestamp(line string) bool {
	return timestampPattern.MatchString(line)
}

// IsErrorLine 小写后包含 error 或 failed 的行
func IsErrorLine(line string) bool {
	lower := strings.ToLower(line)
	return strings.Contains(lower, "error") || strings.Contains(lower, "failed")
}

// FormatLine 标记错误行，没有时间戳的行补上 now
func FormatLine(line string, now time.Time) Line {
	l := Line{Text: line, Error: IsErrorLine(line)}
	if !HasTimestamp(line) {
		l.Text = now.Format(TimeLayout) + " " + line
	}
	return l
}

// CountText 行数提示
func CountText(shown, total int) string {
	return fmt.Sprintf("Showing last %d of %d lines", shown, total)
}

// Build 由文件内容生成快照
func Build(path string, content []byte, now time.Time) Snapshot {
	all := SplitContent(Decode(content))
	last := helper.LastLines(all, MaxLines)

	lines := make([]Line, 0, len(last))
	for _, line := range last {
		lines = append(lines, FormatLine(line, now))
	}
	return Snapshot{
		State: StateOK,
		Path:  path,
		Lines: lines,
		Shown: len(lines),
		Total: len(all),
		Count: CountText(len(lines), len(all)),
	}
}

// Failure 读取失败时的快照，行数提示清空
func Failure(path string, err error) Snapshot {
	if errors.Is(err, ErrNotFound) {
		return Snapshot{
			State:   StateNotFound,
			Path:    path,
			Lines:   []Line{},
			Message: "Log file not found at: " + path,
		}
	}
	return Snapshot{
		State:   StateError,
		Path:    path,
		Lines:   []Line{},
		Message: "Error reading log: " + err.Error(),
	}
}
