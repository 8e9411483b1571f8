package app

import (
	"context"
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/dep2p/go-kadugu/config"
	"github.com/dep2p/go-kadugu/internal/core/identity"
	"github.com/dep2p/go-kadugu/internal/tunnel/server"
	"github.com/dep2p/go-kadugu/pkg/types"
)

func sharerConfig() *config.Config {
	cfg := config.NewConfig()
	cfg.Transport.Protocol = config.ProtocolTCP
	cfg.Transport.ListenAddr = "127.0.0.1:0"
	return cfg
}

func userConfig(sharer types.PeerID, addr string) *config.Config {
	cfg := config.NewConfig()
	cfg.Transport.Protocol = config.ProtocolTCP
	cfg.Transport.DialTimeout = config.Duration(3 * time.Second)
	cfg.User.SharerPeer = sharer.String()
	cfg.User.SharerAddr = addr
	cfg.User.ProxyAddr = "127.0.0.1:0"
	return cfg
}

func echoTarget(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer c.Close()
				_, _ = io.Copy(c, c)
			}()
		}
	}()
	return ln.Addr().String()
}

// TestMode_String 模式名
func TestMode_String(t *testing.T) {
	assert.Equal(t, "sharer", ModeSharer.String())
	assert.Equal(t, "user", ModeUser.String())
	assert.Equal(t, "Mode(7)", Mode(7).String())
}

// TestBootstrap_SharerAndUser 两个引导程序组成完整隧道
func TestBootstrap_SharerAndUser(t *testing.T) {
	ctx := context.Background()

	sb := NewBootstrap(sharerConfig(), ModeSharer, WithKeyStore(identity.NewMemoryKeyStore()))
	require.NoError(t, sb.Start(ctx))
	defer sb.Stop(ctx)

	require.NotNil(t, sb.Server())
	require.NotNil(t, sb.Identity())
	assert.Nil(t, sb.Client())

	ub := NewBootstrap(userConfig(sb.Identity().PeerID(), sb.Server().Addr().String()), ModeUser,
		WithKeyStore(identity.NewMemoryKeyStore()))
	require.NoError(t, ub.Start(ctx))
	defer ub.Stop(ctx)

	require.NotNil(t, ub.Client())
	require.NotNil(t, ub.Client().Addr())

	s, err := ub.Client().Open(ctx, echoTarget(t))
	require.NoError(t, err)
	_, err = s.Write([]byte("through the tunnel"))
	require.NoError(t, err)
	require.NoError(t, s.CloseWrite())

	got, err := io.ReadAll(s)
	require.NoError(t, err)
	assert.Equal(t, "through the tunnel", string(got))
	_ = s.Close()

	require.Eventually(t, func() bool {
		return sb.Server().ActiveConns() == 1
	}, 5*time.Second, 10*time.Millisecond)

	t.Log("✅ 引导程序端到端测试通过")
}

// TestBootstrap_UserUnreachable 共享端不可达时启动失败
func TestBootstrap_UserUnreachable(t *testing.T) {
	other, err := identity.Generate()
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	ub := NewBootstrap(userConfig(other.PeerID(), addr), ModeUser, WithKeyStore(identity.NewMemoryKeyStore()))
	err = ub.Start(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrPeerUnreachable)
}

// TestBootstrap_LogFile 日志输出到文件，停止时关闭
func TestBootstrap_LogFile(t *testing.T) {
	cfg := sharerConfig()
	cfg.Log.File = filepath.Join(t.TempDir(), "kadugu.log")
	cfg.Log.Level = "info"

	sb := NewBootstrap(cfg, ModeSharer, WithKeyStore(identity.NewMemoryKeyStore()))
	require.NoError(t, sb.Start(context.Background()))
	require.NoError(t, sb.Stop(context.Background()))

	data, err := os.ReadFile(cfg.Log.File)
	require.NoError(t, err)
	assert.Contains(t, string(data), "shared with anonymous users")
}

// TestBootstrap_StopBeforeStart 未启动时 Stop 返回 ErrNotStarted
func TestBootstrap_StopBeforeStart(t *testing.T) {
	b := NewBootstrap(sharerConfig(), ModeSharer)
	assert.ErrorIs(t, b.Stop(context.Background()), ErrNotStarted)
}

// TestRun_ContextCancel ctx 取消后 Run 正常返回
func TestRun_ContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	b := NewBootstrap(sharerConfig(), ModeSharer,
		WithKeyStore(identity.NewMemoryKeyStore()),
		WithOnStarted(func(*Bootstrap) { close(started) }))

	done := make(chan error, 1)
	go func() { done <- Run(ctx, b) }()

	select {
	case <-started:
	case <-time.After(10 * time.Second):
		t.Fatal("app did not start")
	}
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return")
	}
	require.NotNil(t, b.Server())
	assert.Equal(t, 0, b.Server().ActiveConns())
}

// TestSharerModules_Lifecycle fxtest 直接装配共享端模块
func TestSharerModules_Lifecycle(t *testing.T) {
	var srv *server.Server
	app := fxtest.New(t,
		fx.NopLogger,
		fx.Supply(sharerConfig()),
		fx.Provide(func() identity.KeyStore { return identity.NewMemoryKeyStore() }),
		ModulesFor(ModeSharer),
		fx.Populate(&srv),
	)
	app.RequireStart()

	require.NotNil(t, srv)
	assert.NotNil(t, srv.Addr())

	app.RequireStop()
	assert.Equal(t, 0, srv.ActiveConns())
}
