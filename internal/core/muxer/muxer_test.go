package muxer

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-kadugu/config"
	"github.com/dep2p/go-kadugu/pkg/types"
)

// tcpPair 返回一对已连接的回环 TCP 连接
func tcpPair(t *testing.T) (net.Conn, net.Conn) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		c, err := ln.Accept()
		if err != nil {
			close(accepted)
			return
		}
		accepted <- c
	}()

	client, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	server, ok := <-accepted
	require.True(t, ok)

	t.Cleanup(func() {
		client.Close()
		server.Close()
	})
	return client, server
}

func muxedPair(t *testing.T) (*MuxedConn, *MuxedConn) {
	t.Helper()
	tr := NewTransport(config.DefaultTransportConfig())
	c, s := tcpPair(t)

	client, err := tr.NewConn(c, false)
	require.NoError(t, err)
	server, err := tr.NewConn(s, true)
	require.NoError(t, err)

	t.Cleanup(func() {
		client.Close()
		server.Close()
	})
	return client, server
}

// ============================================================================
//                              Transport 测试
// ============================================================================

func TestTransport_Config(t *testing.T) {
	cfg := config.DefaultTransportConfig()
	cfg.MaxStreams = 16

	tr := NewTransport(cfg)
	assert.Equal(t, ProtocolID, tr.ID())
	assert.Equal(t, io.Discard, tr.Config().LogOutput)
	assert.Equal(t, uint32(16), tr.Config().MaxIncomingStreams)
	assert.Equal(t, 16, tr.Config().AcceptBacklog)
	assert.Equal(t, cfg.KeepAlive.Duration(), tr.Config().KeepAliveInterval)
}

// ============================================================================
//                              流测试
// ============================================================================

// TestMuxedConn_HalfClose 半关闭后对端读到 EOF，反方向仍可写
func TestMuxedConn_HalfClose(t *testing.T) {
	client, server := muxedPair(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cs, err := client.OpenStream(ctx)
	require.NoError(t, err)
	_, err = cs.Write([]byte("ping"))
	require.NoError(t, err)
	require.NoError(t, cs.CloseWrite())

	ss, err := server.AcceptStream()
	require.NoError(t, err)

	got, err := io.ReadAll(ss)
	require.NoError(t, err)
	assert.Equal(t, "ping", string(got))

	_, err = ss.Write([]byte("pong"))
	require.NoError(t, err)
	require.NoError(t, ss.Close())

	got, err = io.ReadAll(cs)
	require.NoError(t, err)
	assert.Equal(t, "pong", string(got))

	t.Log("✅ yamux 半关闭测试通过")
}

// TestMuxedConn_Reset 重置后对端读返回错误
func TestMuxedConn_Reset(t *testing.T) {
	client, server := muxedPair(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cs, err := client.OpenStream(ctx)
	require.NoError(t, err)
	_, err = cs.Write([]byte("x"))
	require.NoError(t, err)

	ss, err := server.AcceptStream()
	require.NoError(t, err)
	buf := make([]byte, 1)
	_, err = io.ReadFull(ss, buf)
	require.NoError(t, err)

	require.NoError(t, cs.Reset())

	_ = ss.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, err = ss.Read(buf)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStreamReset)
}

// TestMuxedConn_ClosedSession 会话关闭后返回 ErrTransportClosed
func TestMuxedConn_ClosedSession(t *testing.T) {
	client, server := muxedPair(t)
	require.NoError(t, server.Close())

	select {
	case <-client.CloseChan():
	case <-time.After(5 * time.Second):
		t.Fatal("对端会话未感知关闭")
	}

	_, err := client.AcceptStream()
	assert.True(t, errors.Is(err, types.ErrTransportClosed), "err=%v", err)
	assert.True(t, client.IsClosed())
}

// ============================================================================
//                              StreamRegistry 测试
// ============================================================================

// TestStreamRegistry 登记、移除与 CloseAll
func TestStreamRegistry(t *testing.T) {
	client, _ := muxedPair(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	reg := NewStreamRegistry()

	open := func() *MuxedStream {
		s, err := client.OpenStream(ctx)
		require.NoError(t, err)
		return s
	}

	a, err := reg.Track(open())
	require.NoError(t, err)
	b, err := reg.Track(open())
	require.NoError(t, err)
	c, err := reg.Track(open())
	require.NoError(t, err)
	assert.Equal(t, 3, reg.Len())

	require.NoError(t, a.Close())
	assert.Equal(t, 2, reg.Len())
	require.NoError(t, b.Reset())
	assert.Equal(t, 1, reg.Len())

	// 重复关闭不影响计数
	_ = b.Reset()
	assert.Equal(t, 1, reg.Len())

	assert.NoError(t, reg.CloseAll())
	assert.Equal(t, 0, reg.Len())

	// c 已被重置，写入失败
	_, err = c.Write([]byte("late"))
	assert.Error(t, err)

	_, err = reg.Track(open())
	assert.ErrorIs(t, err, types.ErrTransportClosed)

	t.Log("✅ StreamRegistry 测试通过")
}
