package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testPeerID 返回一个格式合法的 PeerID
func testPeerID(b byte) string {
	digest := make([]byte, 32)
	for i := range digest {
		digest[i] = b
	}
	return base58.Encode(digest)
}

// TestNewConfig 测试默认配置
func TestNewConfig(t *testing.T) {
	cfg := NewConfig()
	require.NotNil(t, cfg)

	assert.NoError(t, cfg.Validate())
	assert.NoError(t, cfg.ValidateSharer(), "默认共享端配置（允许所有节点）应有效")
	assert.Error(t, cfg.ValidateUser(), "使用端必须指定共享端 PeerID")

	assert.Equal(t, ProtocolQUIC, cfg.Transport.Protocol)
	assert.Equal(t, ":12007", cfg.Transport.ListenAddr)
	assert.Equal(t, "127.0.0.1:8080", cfg.User.ProxyAddr)
	assert.Equal(t, "identity.keypair", cfg.Identity.KeyFile)
	assert.Equal(t, 32*1024, cfg.Relay.BufferSize)

	t.Log("✅ NewConfig 测试通过")
}

// TestUserConfig_EffectiveProxyAddr 测试局域网暴露
func TestUserConfig_EffectiveProxyAddr(t *testing.T) {
	cfg := DefaultUserConfig()
	assert.Equal(t, "127.0.0.1:8080", cfg.EffectiveProxyAddr())

	cfg.ExposeLAN = true
	assert.Equal(t, "0.0.0.0:8080", cfg.EffectiveProxyAddr())

	cfg.ProxyAddr = "127.0.0.1:9090"
	assert.Equal(t, "0.0.0.0:9090", cfg.EffectiveProxyAddr())
}

// TestValidate_Errors 测试常见非法配置
func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		check  func(c *Config) error
	}{
		{"unknown protocol", func(c *Config) { c.Transport.Protocol = "udp" }, (*Config).Validate},
		{"bad listen addr", func(c *Config) { c.Transport.ListenAddr = "12007" }, (*Config).Validate},
		{"keepalive >= idle", func(c *Config) { c.Transport.KeepAlive = c.Transport.IdleTimeout }, (*Config).Validate},
		{"tiny buffer", func(c *Config) { c.Relay.BufferSize = 16 }, (*Config).Validate},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, (*Config).Validate},
		{"bad peers key", func(c *Config) { c.Peers["nope"] = "1.2.3.4:12007" }, (*Config).Validate},
		{"bad acl entry", func(c *Config) { c.Sharer.AllowedPeers = []string{"not-a-peer"} }, (*Config).ValidateSharer},
		{"negative rate", func(c *Config) { c.Sharer.StreamsPerSecond = -1 }, (*Config).ValidateSharer},
		{"bad sharer addr", func(c *Config) {
			c.User.SharerPeer = testPeerID(1)
			c.User.SharerAddr = "host-without-port"
		}, (*Config).ValidateUser},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)
			assert.Error(t, tt.check(cfg))
		})
	}
}

// TestLoadFile 测试从 JSON 文件加载
func TestLoadFile(t *testing.T) {
	sharer := testPeerID(7)
	data := map[string]any{
		"transport": map[string]any{
			"protocol":     "tcp",
			"dial_timeout": "3s",
			"idle_timeout": 45,
		},
		"user": map[string]any{
			"sharer_peer": sharer,
			"sharer_addr": "203.0.113.5:12007",
		},
		"peers": map[string]string{
			sharer: "203.0.113.5:12007",
		},
	}
	raw, err := json.Marshal(data)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "kadugu.json")
	require.NoError(t, os.WriteFile(path, raw, 0600))

	cfg := NewConfig()
	require.NoError(t, cfg.LoadFile(path))

	assert.Equal(t, ProtocolTCP, cfg.Transport.Protocol)
	assert.Equal(t, 3*time.Second, cfg.Transport.DialTimeout.Duration())
	assert.Equal(t, 45*time.Second, cfg.Transport.IdleTimeout.Duration(), "数字按秒解析")
	assert.Equal(t, 10*time.Second, cfg.Transport.HandshakeTimeout.Duration(), "未出现的字段保留默认值")
	assert.Equal(t, sharer, cfg.User.SharerPeer)
	assert.NoError(t, cfg.ValidateUser())

	t.Run("missing file", func(t *testing.T) {
		assert.Error(t, NewConfig().LoadFile(filepath.Join(t.TempDir(), "absent.json")))
	})

	t.Run("invalid duration", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{"transport":{"dial_timeout":"soon"}}`), 0600))
		assert.Error(t, NewConfig().LoadFile(bad))
	})
}

// TestApplyEnv 测试环境变量覆盖
func TestApplyEnv(t *testing.T) {
	peerA, peerB := testPeerID(1), testPeerID(2)
	env := map[string]string{
		"KADUGU_TRANSPORT":         "TCP",
		"KADUGU_DIAL_TIMEOUT":      "2s",
		"KADUGU_ALLOWED_PEERS":     peerA + " , " + peerB + ",",
		"KADUGU_EXPOSE_LAN":        "yes",
		"KADUGU_RELAY_BUFFER_SIZE": "notanumber",
		"KADUGU_METRICS_ADDR":      "127.0.0.1:9100",
	}

	cfg := NewConfig()
	cfg.applyEnv(func(k string) string { return env[k] })

	assert.Equal(t, ProtocolTCP, cfg.Transport.Protocol)
	assert.Equal(t, 2*time.Second, cfg.Transport.DialTimeout.Duration())
	assert.Equal(t, []string{peerA, peerB}, cfg.Sharer.AllowedPeers)
	assert.True(t, cfg.User.ExposeLAN)
	assert.Equal(t, 32*1024, cfg.Relay.BufferSize, "无法解析的值应被忽略")
	assert.True(t, cfg.Metrics.Enabled())
	assert.NoError(t, cfg.ValidateSharer())
}

// TestDuration_JSON 测试 Duration 编码
func TestDuration_JSON(t *testing.T) {
	d := Duration(1500 * time.Millisecond)
	raw, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"1.5s"`, string(raw))

	var back Duration
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, d, back)

	assert.Error(t, json.Unmarshal([]byte(`true`), &back))
	assert.True(t, strings.Contains(back.String(), "1.5s"))
}
