package logger

import (
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

// LogFormat 日志输出格式
type LogFormat int

const (
	// FormatText 文本格式（默认）
	FormatText LogFormat = iota
	// FormatJSON JSON 格式
	FormatJSON
)

// Config 日志配置
type Config struct {
	// DefaultLevel 默认日志级别
	DefaultLevel slog.Level

	// SubsystemLevels 各子系统的日志级别
	SubsystemLevels map[string]slog.Level

	// Format 输出格式
	Format LogFormat

	// AddSource 是否添加源码位置
	AddSource bool
}

// LevelForSubsystem 获取指定子系统的日志级别
//
// 先精确匹配子系统名，再按 "/" 逐级回退到父级，例如
// "tunnel/server" 未配置时使用 "tunnel" 的级别。
func (c *Config) LevelForSubsystem(subsystem string) slog.Level {
	configMu.RLock()
	defer configMu.RUnlock()

	for name := subsystem; name != ""; {
		if level, ok := c.SubsystemLevels[name]; ok {
			return level
		}
		i := strings.LastIndex(name, "/")
		if i < 0 {
			break
		}
		name = name[:i]
	}
	return c.DefaultLevel
}

var (
	configCache *Config
	configOnce  sync.Once
	configMu    sync.RWMutex

	// globalFormat 当前输出格式，Handler 在每次输出时读取
	globalFormat atomic.Int32
)

// ConfigFromEnv 从环境变量解析配置
//
// 环境变量:
//   - KADUGU_LOG_LEVEL: 日志级别配置
//     格式: 子系统=级别,子系统=级别,默认级别
//     示例: tunnel/server=debug,core/relay=warn,info
//   - KADUGU_LOG_FORMAT: text 或 json
//   - KADUGU_LOG_ADD_SOURCE: true 或 false
func ConfigFromEnv() *Config {
	configOnce.Do(func() {
		configCache = parseConfig()
		globalFormat.Store(int32(configCache.Format))
	})
	return configCache
}

// parseConfig 解析环境变量配置
func parseConfig() *Config {
	cfg := &Config{
		DefaultLevel:    slog.LevelInfo,
		SubsystemLevels: make(map[string]slog.Level),
		Format:          FormatText,
	}

	if levelStr := os.Getenv("KADUGU_LOG_LEVEL"); levelStr != "" {
		parseLevelConfig(cfg, levelStr)
	}

	if formatStr := os.Getenv("KADUGU_LOG_FORMAT"); formatStr != "" {
		cfg.Format = parseFormat(formatStr)
	}

	if addSourceStr := os.Getenv("KADUGU_LOG_ADD_SOURCE"); addSourceStr != "" {
		cfg.AddSource = addSourceStr == "true" || addSourceStr == "1"
	}

	return cfg
}

// parseLevelConfig 解析日志级别配置字符串
// 格式: subsystem=level,subsystem=level,defaultLevel
func parseLevelConfig(cfg *Config, levelStr string) {
	for _, part := range strings.Split(levelStr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		if subsystem, levelName, ok := strings.Cut(part, "="); ok {
			if level, ok := ParseLevel(strings.TrimSpace(levelName)); ok {
				cfg.SubsystemLevels[strings.TrimSpace(subsystem)] = level
			}
			continue
		}

		if level, ok := ParseLevel(part); ok {
			cfg.DefaultLevel = level
		}
	}
}

// ParseLevel 解析日志级别名称
func ParseLevel(name string) (slog.Level, bool) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

// ValidLevelSpec 检查级别描述中的每个级别名称是否合法
func ValidLevelSpec(spec string) bool {
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if _, levelName, ok := strings.Cut(part, "="); ok {
			part = strings.TrimSpace(levelName)
		}
		if _, ok := ParseLevel(part); !ok {
			return false
		}
	}
	return true
}

func parseFormat(s string) LogFormat {
	if strings.EqualFold(s, "json") {
		return FormatJSON
	}
	return FormatText
}

// ResetConfig 重置配置缓存（仅用于测试）
func ResetConfig() {
	configOnce = sync.Once{}
	configCache = nil
}
