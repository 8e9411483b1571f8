package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// 环境变量名（均使用 KADUGU_ 前缀）
const (
	EnvPrefix = "KADUGU_"

	EnvKeyFile       = "KEY_FILE"
	EnvTransport     = "TRANSPORT"
	EnvListenAddr    = "LISTEN_ADDR"
	EnvDialTimeout   = "DIAL_TIMEOUT"
	EnvAllowedPeers  = "ALLOWED_PEERS"
	EnvSharerPeer    = "SHARER_PEER"
	EnvSharerAddr    = "SHARER_ADDR"
	EnvProxyAddr     = "PROXY_ADDR"
	EnvExposeLAN     = "EXPOSE_LAN"
	EnvMetricsAddr   = "METRICS_ADDR"
	EnvLogFile       = "LOG_FILE"
	EnvRelayBuffer   = "RELAY_BUFFER_SIZE"
	EnvStreamsPerSec = "STREAMS_PER_SECOND"
)

// ApplyEnv 应用环境变量覆盖
//
// 环境变量优先级高于配置文件，但低于命令行参数。
// 无法解析的值被忽略，保留原配置。
func (c *Config) ApplyEnv() {
	c.applyEnv(os.Getenv)
}

func (c *Config) applyEnv(getenv func(string) string) {
	get := func(name string) string {
		return strings.TrimSpace(getenv(EnvPrefix + name))
	}

	if v := get(EnvKeyFile); v != "" {
		c.Identity.KeyFile = v
	}
	if v := get(EnvTransport); v != "" {
		c.Transport.Protocol = strings.ToLower(v)
	}
	if v := get(EnvListenAddr); v != "" {
		c.Transport.ListenAddr = v
	}
	if v := get(EnvDialTimeout); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Transport.DialTimeout = Duration(d)
		}
	}
	if v := get(EnvAllowedPeers); v != "" {
		c.Sharer.AllowedPeers = SplitAndTrim(v, ",")
	}
	if v := get(EnvStreamsPerSec); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Sharer.StreamsPerSecond = f
		}
	}
	if v := get(EnvSharerPeer); v != "" {
		c.User.SharerPeer = v
	}
	if v := get(EnvSharerAddr); v != "" {
		c.User.SharerAddr = v
	}
	if v := get(EnvProxyAddr); v != "" {
		c.User.ProxyAddr = v
	}
	if v := get(EnvExposeLAN); v != "" {
		c.User.ExposeLAN = ParseBool(v)
	}
	if v := get(EnvRelayBuffer); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Relay.BufferSize = n
		}
	}
	if v := get(EnvMetricsAddr); v != "" {
		c.Metrics.ListenAddr = v
	}
	if v := get(EnvLogFile); v != "" {
		c.Log.File = v
	}
}

// ParseBool 解析布尔值字符串
func ParseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// SplitAndTrim 分割字符串并去除空白，丢弃空元素
func SplitAndTrim(s, sep string) []string {
	parts := strings.Split(s, sep)
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			result = append(result, p)
		}
	}
	return result
}
