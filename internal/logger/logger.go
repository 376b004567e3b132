// 包 logger：进程级日志器的初始化与获取；级别与格式由配置层传入
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// 默认日志器：进程内复用，保证各模块输出格式一致
var defaultLogger *slog.Logger

// Setup：按级别与格式初始化默认日志器
// 背景：配置集中在 internal/config，日志层只负责把字符串映射为 slog 选项
// 约束：输出固定为标准错误；未知级别回退 info，未知格式回退 text
func Setup(level, format string) *slog.Logger {
	defaultLogger = slog.New(newHandler(os.Stderr, level, format))
	return defaultLogger
}

func newHandler(w io.Writer, level, format string) slog.Handler {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	if strings.EqualFold(format, "json") {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// ParseLevel：LOG_LEVEL 文本到 slog 级别
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// L：获取默认日志器；未初始化时按环境变量兜底初始化
func L() *slog.Logger {
	if defaultLogger == nil {
		return Setup(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
	}
	return defaultLogger
}

// Discard：丢弃全部输出的日志器，供测试与探针工具使用
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
