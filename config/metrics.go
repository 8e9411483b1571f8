package config

import (
	"errors"
	"fmt"

	"github.com/dep2p/go-kadugu/internal/util/logger"
)

// MetricsConfig 指标导出配置
type MetricsConfig struct {
	// ListenAddr Prometheus /metrics 监听地址，为空表示不导出
	ListenAddr string `json:"listen_addr"`
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{}
}

// Enabled 是否导出指标
func (c MetricsConfig) Enabled() bool {
	return c.ListenAddr != ""
}

// Validate 验证指标配置
func (c MetricsConfig) Validate() error {
	if !c.Enabled() {
		return nil
	}
	if err := validateHostPort(c.ListenAddr); err != nil {
		return fmt.Errorf("metrics: listen_addr: %w", err)
	}
	return nil
}

// LogConfig 日志配置
type LogConfig struct {
	// Level 级别描述，语法同 KADUGU_LOG_LEVEL，例如 "tunnel=debug,info"
	Level string `json:"level"`

	// Format 输出格式："text" 或 "json"
	Format string `json:"format"`

	// File 日志文件路径，为空时输出到 stderr
	File string `json:"file"`
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{}
}

// Validate 验证日志配置
func (c LogConfig) Validate() error {
	if !logger.ValidLevelSpec(c.Level) {
		return fmt.Errorf("log: invalid level %q", c.Level)
	}
	switch c.Format {
	case "", "text", "json":
	default:
		return errors.New("log: format must be text or json")
	}
	return nil
}
