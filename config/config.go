// Package config 提供 kadugu 的统一配置管理
//
// 本包采用混合配置模式：
//   - 主 Config 结构体嵌入所有子配置
//   - 每个子配置在独立文件中定义，带 Default*() 与 Validate()
//   - 支持从 JSON 文件加载，并以 KADUGU_* 环境变量覆盖
//
// 优先级（高到低）：命令行参数 > 环境变量 > 配置文件 > 默认值。
//
// 使用示例：
//
//	cfg := config.NewConfig()
//	if path != "" {
//	    if err := cfg.LoadFile(path); err != nil {
//	        return err
//	    }
//	}
//	cfg.ApplyEnv()
//	cfg.User.SharerPeer = "..."
//	if err := cfg.ValidateUser(); err != nil {
//	    return err
//	}
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dep2p/go-kadugu/pkg/types"
)

// Config 是 kadugu 的完整配置结构
type Config struct {
	// Identity 身份配置
	Identity IdentityConfig `json:"identity"`

	// Transport 安全通道配置
	Transport TransportConfig `json:"transport"`

	// Sharer 共享端配置
	Sharer SharerConfig `json:"sharer"`

	// User 使用端配置
	User UserConfig `json:"user"`

	// Relay 中继转发配置
	Relay RelayConfig `json:"relay"`

	// Metrics 指标导出配置
	Metrics MetricsConfig `json:"metrics"`

	// Log 日志配置
	Log LogConfig `json:"log"`

	// Peers 静态地址簿：PeerID -> host:port
	Peers map[string]string `json:"peers,omitempty"`
}

// NewConfig 创建默认配置
func NewConfig() *Config {
	return &Config{
		Identity:  DefaultIdentityConfig(),
		Transport: DefaultTransportConfig(),
		Sharer:    DefaultSharerConfig(),
		User:      DefaultUserConfig(),
		Relay:     DefaultRelayConfig(),
		Metrics:   DefaultMetricsConfig(),
		Log:       DefaultLogConfig(),
		Peers:     make(map[string]string),
	}
}

// LoadFile 从 JSON 文件加载配置
//
// 文件中未出现的字段保留当前值（通常是默认值）。
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: 用户指定的配置文件路径是预期行为
	if err != nil {
		return fmt.Errorf("读取配置文件失败: %w", err)
	}
	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("解析配置文件失败: %w", err)
	}
	return nil
}

// Validate 验证与运行模式无关的配置
func (c *Config) Validate() error {
	if err := c.Identity.Validate(); err != nil {
		return err
	}
	if err := c.Transport.Validate(); err != nil {
		return err
	}
	if err := c.Relay.Validate(); err != nil {
		return err
	}
	if err := c.Metrics.Validate(); err != nil {
		return err
	}
	if err := c.Log.Validate(); err != nil {
		return err
	}
	for id, addr := range c.Peers {
		if _, err := types.ParsePeerID(id); err != nil {
			return fmt.Errorf("peers: %q: %w", id, err)
		}
		if err := validateHostPort(addr); err != nil {
			return fmt.Errorf("peers: %s: %w", id, err)
		}
	}
	return nil
}

// ValidateSharer 验证共享端模式配置
func (c *Config) ValidateSharer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	return c.Sharer.Validate()
}

// ValidateUser 验证使用端模式配置
func (c *Config) ValidateUser() error {
	if err := c.Validate(); err != nil {
		return err
	}
	return c.User.Validate()
}
