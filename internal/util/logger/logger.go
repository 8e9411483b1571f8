// Package logger 提供 kadugu 的统一日志系统
//
// 基于标准库 log/slog，支持：
//   - 按子系统配置日志级别
//   - 环境变量配置（KADUGU_LOG_LEVEL, KADUGU_LOG_FORMAT）
//   - 运行期切换级别、格式与输出目标（命令行 -log-level / -log-file）
//
// 使用示例:
//
//	package server
//
//	import "github.com/dep2p/go-kadugu/internal/util/logger"
//
//	var log = logger.Logger("tunnel/server")
//
//	func foo() {
//	    log.Info("连接已接受", "peer", peerID.ShortString())
//	    log.Debug("流已打开", "stream", id, "target", target)
//	}
//
// 环境变量配置:
//
//	# 默认 info，tunnel/server 子系统 debug
//	KADUGU_LOG_LEVEL=tunnel/server=debug,info
//
//	# 使用 JSON 格式输出
//	KADUGU_LOG_FORMAT=json
package logger

import (
	"io"
	"log/slog"
	"sync"
)

var (
	// loggers 缓存各子系统的 Logger
	loggers sync.Map // map[string]*slog.Logger

	// handlers 缓存各子系统的 Handler（用于动态调整级别）
	handlers sync.Map // map[string]*subsystemHandler
)

// Logger 获取指定子系统的 Logger
//
// 同一子系统多次调用会返回相同的 Logger 实例。
func Logger(subsystem string) *slog.Logger {
	if l, ok := loggers.Load(subsystem); ok {
		return l.(*slog.Logger)
	}

	cfg := ConfigFromEnv()
	handler := newHandler(subsystem, cfg.LevelForSubsystem(subsystem), cfg.AddSource)
	logger := slog.New(handler)

	actual, loaded := loggers.LoadOrStore(subsystem, logger)
	if !loaded {
		handlers.Store(subsystem, handler)
	}
	return actual.(*slog.Logger)
}

// SetLevel 动态设置子系统的日志级别
func SetLevel(subsystem string, level slog.Level) {
	if h, ok := handlers.Load(subsystem); ok {
		h.(*subsystemHandler).SetLevel(level)
	}
}

// Apply 应用日志级别描述与输出格式
//
// levelSpec 与 KADUGU_LOG_LEVEL 语法一致，例如 "tunnel/server=debug,info"。
// 已创建的 Logger 会立即按新配置调整级别；format 为空时保持原格式。
func Apply(levelSpec, format string) {
	cfg := ConfigFromEnv()

	configMu.Lock()
	if levelSpec != "" {
		parseLevelConfig(cfg, levelSpec)
	}
	if format != "" {
		cfg.Format = parseFormat(format)
	}
	configMu.Unlock()

	globalFormat.Store(int32(cfg.Format))

	handlers.Range(func(key, value any) bool {
		value.(*subsystemHandler).SetLevel(cfg.LevelForSubsystem(key.(string)))
		return true
	})
}

// Discard 返回一个丢弃所有日志的 Logger
//
// 主要用于测试，避免日志输出干扰测试结果。
func Discard() *slog.Logger {
	return slog.New(DiscardHandler())
}

// SetOutput 设置全局日志输出目标
//
// 已创建的 Logger 通过 dynamicWriter 自动重定向到新的 writer。
func SetOutput(w io.Writer) {
	globalOutputMu.Lock()
	globalOutput = w
	globalOutputMu.Unlock()
}

// TruncateID 安全截取 ID 用于日志显示
func TruncateID(id string, maxLen int) string {
	if len(id) <= maxLen {
		return id
	}
	return id[:maxLen]
}
