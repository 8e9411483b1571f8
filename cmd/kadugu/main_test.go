package main

import (
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-kadugu/config"
	"github.com/dep2p/go-kadugu/internal/core/identity"
	"github.com/dep2p/go-kadugu/pkg/protocolids"
)

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func validPeerID(t *testing.T) string {
	t.Helper()
	id, err := identity.Generate()
	require.NoError(t, err)
	return id.PeerID().String()
}

// TestRun_Version 打印版本
func TestRun_Version(t *testing.T) {
	code, out, _ := runCLI(t, "-version")
	assert.Equal(t, exitOK, code)
	assert.Equal(t, protocolids.Agent()+"\n", out)
}

// TestRun_NoMode 未指定模式时打印用法并返回 2
func TestRun_NoMode(t *testing.T) {
	code, _, errOut := runCLI(t)
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, errOut, "用法")
}

// TestRun_BadFlag 未知参数返回 2
func TestRun_BadFlag(t *testing.T) {
	code, _, _ := runCLI(t, "-nope")
	assert.Equal(t, exitUsage, code)
}

// TestRun_BothModes -s 与 -u 互斥
func TestRun_BothModes(t *testing.T) {
	code, _, errOut := runCLI(t, "-s", "-u", validPeerID(t))
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, errOut, "-s")
}

// TestRun_PrintPeerID 首次运行生成密钥，之后输出同一 PeerID
func TestRun_PrintPeerID(t *testing.T) {
	key := filepath.Join(t.TempDir(), "identity.keypair")

	code, first, _ := runCLI(t, "-p", "-key", key)
	require.Equal(t, exitOK, code)
	code, second, _ := runCLI(t, "-print-peer-id", "-key", key)
	require.Equal(t, exitOK, code)

	assert.Equal(t, first, second)
	assert.NotEmpty(t, strings.TrimSpace(first))

	info, err := os.Stat(key)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	t.Log("✅ PeerID 打印测试通过")
}

// TestRun_CorruptKey 损坏的密钥文件导致启动失败而不是覆盖
func TestRun_CorruptKey(t *testing.T) {
	key := filepath.Join(t.TempDir(), "identity.keypair")
	require.NoError(t, os.WriteFile(key, []byte("garbage"), 0600))

	code, _, _ := runCLI(t, "-p", "-key", key)
	assert.Equal(t, exitFailure, code)

	data, err := os.ReadFile(key)
	require.NoError(t, err)
	assert.Equal(t, "garbage", string(data))
}

// TestRun_InvalidUserPeer 非法的共享端 PeerID 返回 1
func TestRun_InvalidUserPeer(t *testing.T) {
	code, _, errOut := runCLI(t, "-u", "not-a-peer-id", "-key", filepath.Join(t.TempDir(), "k"))
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, errOut, "配置错误")
}

// TestRun_InvalidACL 非法的授权条目返回 1
func TestRun_InvalidACL(t *testing.T) {
	code, _, _ := runCLI(t, "-s", "bogus", "-key", filepath.Join(t.TempDir(), "k"))
	assert.Equal(t, exitFailure, code)
}

// TestRun_UserUnreachable 共享端不可达时返回 1
func TestRun_UserUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	code, _, errOut := runCLI(t,
		"-u", validPeerID(t),
		"-addr", addr,
		"-transport", "tcp",
		"-proxy", "127.0.0.1:0",
		"-key", filepath.Join(t.TempDir(), "k"))
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, errOut, "peer unreachable")
}

// TestRun_MissingConfigFile 配置文件不存在返回 1
func TestRun_MissingConfigFile(t *testing.T) {
	code, _, _ := runCLI(t, "-s", "-config", filepath.Join(t.TempDir(), "missing.json"))
	assert.Equal(t, exitFailure, code)
}

// ============================================================================
//                              参数解析
// ============================================================================

// TestParseArgs_SharerACL 授权列表的三种写法
func TestParseArgs_SharerACL(t *testing.T) {
	a, b, c := validPeerID(t), validPeerID(t), validPeerID(t)

	o, err := parseArgs([]string{"-s=" + a + "," + b}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.True(t, o.sharer.set)
	assert.Equal(t, []string{a, b}, o.sharer.ids)

	o, err = parseArgs([]string{"-s", a, b + "," + c, "-transport", "tcp"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, []string{a, b, c}, o.sharer.ids)
	assert.Equal(t, "tcp", o.tr)
	assert.True(t, o.set["transport"])

	o, err = parseArgs([]string{"-sharer"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.True(t, o.sharer.set)
	assert.Empty(t, o.sharer.ids)
}

// TestParseArgs_Positional 非共享端模式不接受位置参数
func TestParseArgs_Positional(t *testing.T) {
	_, err := parseArgs([]string{"-u", validPeerID(t), "extra"}, &bytes.Buffer{})
	assert.Error(t, err)
}

// TestOptions_Apply 只有显式参数覆盖配置
func TestOptions_Apply(t *testing.T) {
	peer := validPeerID(t)
	o, err := parseArgs([]string{"-u", peer, "-e", "-addr", "10.0.0.1:12007", "-metrics", "127.0.0.1:9090"}, &bytes.Buffer{})
	require.NoError(t, err)

	cfg := config.NewConfig()
	cfg.Transport.Protocol = config.ProtocolTCP
	o.apply(cfg)

	assert.Equal(t, peer, cfg.User.SharerPeer)
	assert.True(t, cfg.User.ExposeLAN)
	assert.Equal(t, "10.0.0.1:12007", cfg.User.SharerAddr)
	assert.Equal(t, "127.0.0.1:9090", cfg.Metrics.ListenAddr)
	assert.Equal(t, config.ProtocolTCP, cfg.Transport.Protocol)
	assert.Equal(t, "0.0.0.0:"+config.DefaultProxyPort, cfg.User.EffectiveProxyAddr())
}
