package config

import (
	"errors"
	"fmt"
	"time"
)

const (
	// ProtocolQUIC QUIC 安全通道（默认）
	ProtocolQUIC = "quic"
	// ProtocolTCP TCP + Noise + Yamux 安全通道
	ProtocolTCP = "tcp"

	// DefaultListenAddr 共享端默认监听地址（双栈）
	DefaultListenAddr = ":12007"
)

// TransportConfig 安全通道配置
type TransportConfig struct {
	// Protocol 传输协议："quic" 或 "tcp"
	// 双方必须一致
	Protocol string `json:"protocol"`

	// ListenAddr 共享端监听地址
	ListenAddr string `json:"listen_addr"`

	// DialTimeout 拨号超时（含握手）
	DialTimeout Duration `json:"dial_timeout"`

	// HandshakeTimeout 入站握手超时
	HandshakeTimeout Duration `json:"handshake_timeout"`

	// KeepAlive 保活间隔
	KeepAlive Duration `json:"keep_alive"`

	// IdleTimeout 空闲超时
	IdleTimeout Duration `json:"idle_timeout"`

	// MaxStreams 单连接最大并发入站流
	MaxStreams int `json:"max_streams"`
}

// DefaultTransportConfig 返回默认传输配置
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		Protocol:         ProtocolQUIC,
		ListenAddr:       DefaultListenAddr,
		DialTimeout:      Duration(10 * time.Second),
		HandshakeTimeout: Duration(10 * time.Second),
		KeepAlive:        Duration(10 * time.Second),
		IdleTimeout:      Duration(30 * time.Second),
		MaxStreams:       1024,
	}
}

// Validate 验证传输配置
func (c TransportConfig) Validate() error {
	switch c.Protocol {
	case ProtocolQUIC, ProtocolTCP:
	default:
		return fmt.Errorf("transport: unknown protocol %q (want quic or tcp)", c.Protocol)
	}
	if err := validateHostPort(c.ListenAddr); err != nil {
		return fmt.Errorf("transport: listen_addr: %w", err)
	}
	if c.DialTimeout <= 0 {
		return errors.New("transport: dial_timeout must be positive")
	}
	if c.HandshakeTimeout <= 0 {
		return errors.New("transport: handshake_timeout must be positive")
	}
	if c.KeepAlive <= 0 || c.IdleTimeout <= 0 {
		return errors.New("transport: keep_alive and idle_timeout must be positive")
	}
	if c.KeepAlive >= c.IdleTimeout {
		return errors.New("transport: keep_alive must be shorter than idle_timeout")
	}
	if c.MaxStreams <= 0 {
		return errors.New("transport: max_streams must be positive")
	}
	return nil
}
