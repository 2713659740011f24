package helper

import (
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel 日志级别
type LogLevel string

const (
	LogLevelDEBUG LogLevel = "DEBUG"
	LogLevelINFO  LogLevel = "INFO"
	LogLevelWARN  LogLevel = "WARN"
	LogLevelERROR LogLevel = "ERROR"
)

var MaxSize = 100

// LogType 日志类型
type LogType string

const (
	LogTypeSystem  LogType = "系统"
	LogTypeConfig  LogType = "配置"
	LogTypeService LogType = "服务"
	LogTypeLog     LogType = "日志"
	LogTypePoll    LogType = "轮询"
	LogTypeWeb     LogType = "Web"
	LogTypeAuth    LogType = "认证"
)

// LogEntry 日志条目
type LogEntry struct {
	Timestamp string   `json:"timestamp"` // 时间戳
	Level     LogLevel `json:"level"`     // 日志级别
	Type      LogType  `json:"type"`      // 日志类型
	Message   string   `json:"message"`   // 日志消息
}

// Logger 日志管理器，保留最近 maxSize 条日志，并同步输出到 zap
type Logger struct {
	mu      sync.RWMutex
	logs    []LogEntry
	maxSize int  // 最大日志条数
	enabled bool // 是否启用日志记录
	sink    *zap.SugaredLogger
}

var (
	// DefaultLogger 全局默认日志实例
	DefaultLogger *Logger
	once          sync.Once
)

// NewZapSink 创建控制台输出，级别由 LOG_LEVEL 环境变量控制
func NewZapSink() *zap.SugaredLogger {
	level := zapcore.InfoLevel
	if v, exists := os.LookupEnv("LOG_LEVEL"); exists {
		_ = level.Set(v)
	}
	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.Lock(os.Stderr),
		level,
	)
	return zap.New(core).Sugar()
}

// InitLogger 初始化日志系统
func InitLogger(maxSize int) {
	once.Do(func() {
		if maxSize <= 0 {
			maxSize = MaxSize
		}
		DefaultLogger = &Logger{
			logs:    make([]LogEntry, 0, maxSize),
			maxSize: maxSize,
			enabled: true,
			sink:    NewZapSink(),
		}
	})
}

// GetLogger 获取全局日志实例
func GetLogger() *Logger {
	InitLogger(MaxSize)
	return DefaultLogger
}

// NewLogger 创建独立的日志实例，sink 为 nil 时不输出到控制台
func NewLogger(maxSize int, sink *zap.SugaredLogger) *Logger {
	if maxSize <= 0 {
		maxSize = MaxSize
	}
	return &Logger{
		logs:    make([]LogEntry, 0, maxSize),
		maxSize: maxSize,
		enabled: true,
		sink:    sink,
	}
}

// addLog 添加日志（内部方法）
func (l *Logger) addLog(level LogLevel, logType LogType, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.enabled {
		return
	}

	message := fmt.Sprintf(format, args...)

	if l.sink != nil {
		switch level {
		case LogLevelDEBUG:
			l.sink.Debugw(message, "type", logType)
		case LogLevelWARN:
			l.sink.Warnw(message, "type", logType)
		case LogLevelERROR:
			l.sink.Errorw(message, "type", logType)
		default:
			l.sink.Infow(message, "type", logType)
		}
	}

	// 调试日志只输出到控制台
	if level == LogLevelDEBUG {
		return
	}

	entry := LogEntry{
		Timestamp: time.Now().Format("2006-01-02 15:04:05"),
		Type:      logType,
		Level:     level,
		Message:   message,
	}

	// 如果超过最大条数，删除最旧的日志
	if len(l.logs) >= l.maxSize {
		l.logs = l.logs[1:]
	}
	l.logs = append(l.logs, entry)
}

// Debug 记录调试日志
func (l *Logger) Debug(logType LogType, format string, args ...interface{}) {
	l.addLog(LogLevelDEBUG, logType, format, args...)
}

// Info 记录信息日志
func (l *Logger) Info(logType LogType, format string, args ...interface{}) {
	l.addLog(LogLevelINFO, logType, format, args...)
}

// Warn 记录警告日志
func (l *Logger) Warn(logType LogType, format string, args ...interface{}) {
	l.addLog(LogLevelWARN, logType, format, args...)
}

// Error 记录错误日志
func (l *Logger) Error(logType LogType, format string, args ...interface{}) {
	l.addLog(LogLevelERROR, logType, format, args...)
}

// GetLogs 获取所有日志（返回副本）
func (l *Logger) GetLogs() []LogEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	logsCopy := make([]LogEntry, len(l.logs))
	copy(logsCopy, l.logs)
	return logsCopy
}

// GetRecentLogs 获取最近的N条日志
func (l *Logger) GetRecentLogs(n int) []LogEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if n <= 0 || n > len(l.logs) {
		n = len(l.logs)
	}

	start := len(l.logs) - n
	logsCopy := make([]LogEntry, n)
	copy(logsCopy, l.logs[start:])
	return logsCopy
}

// GetLogsByLevel 根据日志级别获取日志
func (l *Logger) GetLogsByLevel(level LogLevel) []LogEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	filtered := make([]LogEntry, 0)
	for _, log := range l.logs {
		if log.Level == level {
			filtered = append(filtered, log)
		}
	}
	return filtered
}

// Clear 清空所有日志
func (l *Logger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logs = make([]LogEntry, 0, l.maxSize)
}

// GetCount 获取当前日志条数
func (l *Logger) GetCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.logs)
}

// SetEnabled 设置是否启用日志记录
func (l *Logger) SetEnabled(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enabled = enabled
}

// Sync 刷新 zap 缓冲
func (l *Logger) Sync() error {
	if l.sink == nil {
		return nil
	}
	return l.sink.Sync()
}

// 全局便捷方法

// Debug 全局调试日志
func Debug(logType LogType, format string, args ...interface{}) {
	GetLogger().Debug(logType, format, args...)
}

// Info 全局信息日志
func Info(logType LogType, format string, args ...interface{}) {
	GetLogger().Info(logType, format, args...)
}

// Warn 全局警告日志
func Warn(logType LogType, format string, args ...interface{}) {
	GetLogger().Warn(logType, format, args...)
}

// Error 全局错误日志
func Error(logType LogType, format string, args ...interface{}) {
	GetLogger().Error(logType, format, args...)
}

// Fatal 记录错误日志后退出
func Fatal(logType LogType, format string, args ...interface{}) {
	GetLogger().Error(logType, format, args...)
	_ = GetLogger().Sync()
	os.Exit(1)
}

// Fatalf 同 Fatal
func Fatalf(logType LogType, format string, args ...interface{}) {
	Fatal(logType, format, args...)
}

// GetAllLogs 获取所有日志
func GetAllLogs() []LogEntry {
	return GetLogger().GetLogs()
}
