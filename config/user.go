package config

import (
	"fmt"
	"net"

	"github.com/dep2p/go-kadugu/pkg/types"
)

// DefaultProxyPort 本地代理默认端口
const DefaultProxyPort = "8080"

// UserConfig 使用端配置
type UserConfig struct {
	// SharerPeer 共享端 PeerID
	SharerPeer string `json:"sharer_peer"`

	// SharerAddr 共享端地址（host:port），写入静态地址簿
	SharerAddr string `json:"sharer_addr"`

	// ProxyAddr 本地 HTTP 代理监听地址
	ProxyAddr string `json:"proxy_addr"`

	// ExposeLAN 将代理暴露给局域网（监听 0.0.0.0）
	ExposeLAN bool `json:"expose_lan"`
}

// DefaultUserConfig 返回默认使用端配置
func DefaultUserConfig() UserConfig {
	return UserConfig{
		ProxyAddr: net.JoinHostPort("127.0.0.1", DefaultProxyPort),
	}
}

// EffectiveProxyAddr 返回实际监听的代理地址
//
// ExposeLAN 为 true 时，主机部分替换为 0.0.0.0，端口保持不变。
func (c UserConfig) EffectiveProxyAddr() string {
	if !c.ExposeLAN {
		return c.ProxyAddr
	}
	_, port, err := net.SplitHostPort(c.ProxyAddr)
	if err != nil || port == "" {
		port = DefaultProxyPort
	}
	return net.JoinHostPort("0.0.0.0", port)
}

// Validate 验证使用端配置
func (c UserConfig) Validate() error {
	if _, err := types.ParsePeerID(c.SharerPeer); err != nil {
		return fmt.Errorf("user: sharer_peer: %w", err)
	}
	if c.SharerAddr != "" {
		if err := validateHostPort(c.SharerAddr); err != nil {
			return fmt.Errorf("user: sharer_addr: %w", err)
		}
	}
	if err := validateHostPort(c.ProxyAddr); err != nil {
		return fmt.Errorf("user: proxy_addr: %w", err)
	}
	return nil
}
