package config

import (
	"errors"
	"time"
)

// RelayConfig 中继转发配置
type RelayConfig struct {
	// BufferSize 每个方向的复制缓冲区大小（字节）
	BufferSize int `json:"buffer_size"`

	// HalfCloseTimeout 一个方向结束后，另一方向允许的最长空闲时间
	HalfCloseTimeout Duration `json:"half_close_timeout"`
}

// DefaultRelayConfig 返回默认中继配置
func DefaultRelayConfig() RelayConfig {
	return RelayConfig{
		BufferSize:       32 * 1024,
		HalfCloseTimeout: Duration(60 * time.Second),
	}
}

// Validate 验证中继配置
func (c RelayConfig) Validate() error {
	if c.BufferSize < 512 || c.BufferSize > 1<<20 {
		return errors.New("relay: buffer_size must be between 512 and 1MiB")
	}
	if c.HalfCloseTimeout <= 0 {
		return errors.New("relay: half_close_timeout must be positive")
	}
	return nil
}
