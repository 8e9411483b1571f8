package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/dep2p/go-kadugu/pkg/types"
)

// SharerConfig 共享端配置
type SharerConfig struct {
	// AllowedPeers 授权使用出口的 PeerID 列表
	// 为空表示允许所有已通过身份校验的节点
	AllowedPeers []string `json:"allowed_peers"`

	// TargetDialTimeout 连接目标地址的超时
	TargetDialTimeout Duration `json:"target_dial_timeout"`

	// StreamReadTimeout 读取目标描述符的超时
	StreamReadTimeout Duration `json:"stream_read_timeout"`

	// StreamsPerSecond 单连接每秒允许新建的流数，0 表示不限制
	StreamsPerSecond float64 `json:"streams_per_second"`

	// StreamBurst 流速率限制的突发容量
	StreamBurst int `json:"stream_burst"`
}

// DefaultSharerConfig 返回默认共享端配置
func DefaultSharerConfig() SharerConfig {
	return SharerConfig{
		TargetDialTimeout: Duration(10 * time.Second),
		StreamReadTimeout: Duration(10 * time.Second),
		StreamBurst:       64,
	}
}

// Validate 验证共享端配置
func (c SharerConfig) Validate() error {
	for _, id := range c.AllowedPeers {
		if _, err := types.ParsePeerID(id); err != nil {
			return fmt.Errorf("sharer: allowed peer %q: %w", id, err)
		}
	}
	if c.TargetDialTimeout <= 0 {
		return errors.New("sharer: target_dial_timeout must be positive")
	}
	if c.StreamReadTimeout <= 0 {
		return errors.New("sharer: stream_read_timeout must be positive")
	}
	if c.StreamsPerSecond < 0 {
		return errors.New("sharer: streams_per_second must not be negative")
	}
	if c.StreamsPerSecond > 0 && c.StreamBurst <= 0 {
		return errors.New("sharer: stream_burst must be positive when rate limiting")
	}
	return nil
}
