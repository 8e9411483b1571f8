package upgrader

import (
	"time"

	"github.com/dep2p/go-kadugu/internal/core/muxer"
	"github.com/dep2p/go-kadugu/internal/core/security/noise"
)

// Config 升级器配置
type Config struct {
	// Security Noise 安全传输
	Security *noise.Transport

	// Muxer yamux 多路复用器
	Muxer *muxer.Transport

	// Protocol 每条流协商的应用协议
	Protocol string

	// NegotiateTimeout 协议协商超时（默认 10s）
	NegotiateTimeout time.Duration
}

// NewConfig 创建默认配置
func NewConfig() Config {
	return Config{
		NegotiateTimeout: 10 * time.Second,
	}
}
