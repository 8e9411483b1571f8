package client

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-kadugu/config"
	"github.com/dep2p/go-kadugu/internal/core/identity"
	"github.com/dep2p/go-kadugu/internal/core/peerstore"
	"github.com/dep2p/go-kadugu/internal/core/relay"
	"github.com/dep2p/go-kadugu/pkg/interfaces"
	"github.com/dep2p/go-kadugu/pkg/types"
)

// ============================================================================
//                              测试辅助
// ============================================================================

// fakeConn OpenStream 按 openErr 返回错误的连接
type fakeConn struct {
	pub     ed25519.PublicKey
	openErr func() error

	opens     atomic.Int32
	closes    atomic.Int32
	closeOnce sync.Once
	done      chan struct{}
}

func (c *fakeConn) ID() string                         { return "fake" }
func (c *fakeConn) LocalPeer() types.PeerID            { return "" }
func (c *fakeConn) RemotePublicKey() ed25519.PublicKey { return c.pub }
func (c *fakeConn) ClaimedPeer() types.PeerID          { return "" }
func (c *fakeConn) RemoteAddr() net.Addr               { return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 1} }
func (c *fakeConn) Direction() types.Direction         { return types.DirOutbound }
func (c *fakeConn) NumStreams() int                    { return 0 }
func (c *fakeConn) Done() <-chan struct{}              { return c.done }

func (c *fakeConn) OpenStream(context.Context) (interfaces.Stream, error) {
	c.opens.Add(1)
	return nil, c.openErr()
}

func (c *fakeConn) AcceptStream(ctx context.Context) (interfaces.Stream, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (c *fakeConn) Close() error {
	c.closes.Add(1)
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}

// fakeTransport 每次 Dial 返回一个新的 fakeConn
type fakeTransport struct {
	pub     ed25519.PublicKey
	openErr func(c *fakeConn) error

	mu    sync.Mutex
	conns []*fakeConn
}

func (t *fakeTransport) Protocol() string { return "fake" }

func (t *fakeTransport) Dial(context.Context, string, types.PeerID) (interfaces.Conn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c := &fakeConn{pub: t.pub, done: make(chan struct{})}
	c.openErr = func() error { return t.openErr(c) }
	t.conns = append(t.conns, c)
	return c, nil
}

func (t *fakeTransport) Listen(string) (interfaces.Listener, error) {
	return nil, fmt.Errorf("fake transport: listen not supported")
}

func (t *fakeTransport) Close() error { return nil }

func (t *fakeTransport) dials() []*fakeConn {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*fakeConn(nil), t.conns...)
}

func newTestClient(t *testing.T, openErr func(c *fakeConn) error) (*Client, *fakeTransport) {
	t.Helper()

	sharer, err := identity.Generate()
	require.NoError(t, err)
	self, err := identity.Generate()
	require.NoError(t, err)

	cfg := config.NewConfig()
	cfg.User.SharerPeer = sharer.PeerID().String()

	book, err := peerstore.New(nil)
	require.NoError(t, err)
	require.NoError(t, book.AddAddrs(sharer.PeerID(), "127.0.0.1:1"))

	tr := &fakeTransport{pub: sharer.PublicKey(), openErr: openErr}
	c, err := New(cfg, self, tr, book, relay.NewEngine(cfg.Relay, nil), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Stop() })

	require.NoError(t, c.Connect(context.Background()))
	return c, tr
}

// ============================================================================
//                              流错误范围
// ============================================================================

// TestOpen_StreamErrorKeepsConn 流级失败只影响本条流，共享连接保持可用
func TestOpen_StreamErrorKeepsConn(t *testing.T) {
	c, tr := newTestClient(t, func(*fakeConn) error {
		return fmt.Errorf("client negotiation: %w", types.ErrStreamReset)
	})

	_, err := c.Open(context.Background(), "example.com:80")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrStreamReset)
	assert.NotErrorIs(t, err, types.ErrTransportClosed)
	assert.Equal(t, 502, statusCode(err))

	_, err = c.Open(context.Background(), "example.com:443")
	require.Error(t, err)

	conns := tr.dials()
	require.Len(t, conns, 1)
	assert.Equal(t, int32(2), conns[0].opens.Load())
	assert.Equal(t, int32(0), conns[0].closes.Load())

	t.Log("✅ 流级错误未拆除共享连接")
}

// TestOpen_ClosedConnRedials 连接已断开时重拨一次
func TestOpen_ClosedConnRedials(t *testing.T) {
	c, tr := newTestClient(t, func(fc *fakeConn) error {
		select {
		case <-fc.done:
			return types.ErrTransportClosed
		default:
			return fmt.Errorf("target refused: %w", types.ErrRefused)
		}
	})

	first := tr.dials()[0]
	require.NoError(t, first.Close())

	// 首条连接已结束，peerConn 直接重拨
	_, err := c.Open(context.Background(), "example.com:80")
	assert.ErrorIs(t, err, types.ErrRefused)

	conns := tr.dials()
	require.Len(t, conns, 2)
	assert.Equal(t, int32(0), conns[1].closes.Load())
}

// TestOpen_ConnDiesDuringOpen 打开流时连接断开，重拨后在新连接上重试
func TestOpen_ConnDiesDuringOpen(t *testing.T) {
	var calls atomic.Int32
	c, tr := newTestClient(t, func(fc *fakeConn) error {
		if calls.Add(1) == 1 {
			_ = fc.Close()
			return fmt.Errorf("open stream: %w", types.ErrTransportClosed)
		}
		return fmt.Errorf("target refused: %w", types.ErrRefused)
	})

	_, err := c.Open(context.Background(), "example.com:80")
	assert.ErrorIs(t, err, types.ErrRefused)

	conns := tr.dials()
	require.Len(t, conns, 2)
	assert.Equal(t, int32(1), conns[0].opens.Load())
	assert.Equal(t, int32(1), conns[1].opens.Load())
}
