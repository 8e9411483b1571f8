package upgrader

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"net"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/dep2p/go-kadugu/internal/core/muxer"
	"github.com/dep2p/go-kadugu/internal/core/security/noise"
	"github.com/dep2p/go-kadugu/pkg/interfaces"
	"github.com/dep2p/go-kadugu/pkg/types"
)

var _ interfaces.Conn = (*Conn)(nil)

// acceptBacklog 已协商完成、等待 AcceptStream 取走的流数量上限
const acceptBacklog = 64

// Conn 升级后的 TCP 连接
type Conn struct {
	id       string
	upgrader *Upgrader
	muxed    *muxer.MuxedConn
	secConn  *noise.SecureConn
	dir      types.Direction
	streams  *muxer.StreamRegistry

	acceptOnce sync.Once
	incoming   chan interfaces.Stream

	// ctx 在 Close 时取消，约束入站流的协商
	ctx    context.Context
	cancel context.CancelFunc

	closeOnce sync.Once
	closeErr  error
	done      chan struct{}
}

func newConn(u *Upgrader, mc *muxer.MuxedConn, sc *noise.SecureConn, dir types.Direction) *Conn {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Conn{
		id:       uuid.NewString(),
		upgrader: u,
		muxed:    mc,
		secConn:  sc,
		dir:      dir,
		streams:  muxer.NewStreamRegistry(),
		incoming: make(chan interfaces.Stream, acceptBacklog),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go func() {
		select {
		case <-mc.CloseChan():
			_ = c.Close()
		case <-c.done:
		}
	}()
	return c
}

// ID 返回连接 ID
func (c *Conn) ID() string { return c.id }

// LocalPeer 返回本地节点 ID
func (c *Conn) LocalPeer() types.PeerID { return c.secConn.LocalPeer() }

// RemotePublicKey 返回 Noise 握手得到的对端身份公钥
func (c *Conn) RemotePublicKey() ed25519.PublicKey { return c.secConn.RemotePublicKey() }

// ClaimedPeer 返回对端 payload 中声明的 PeerID
func (c *Conn) ClaimedPeer() types.PeerID { return c.secConn.ClaimedPeer() }

// RemoteAgent 返回对端代理字符串
func (c *Conn) RemoteAgent() string { return c.secConn.RemoteAgent() }

// RemoteAddr 返回对端地址
func (c *Conn) RemoteAddr() net.Addr { return c.secConn.RemoteAddr() }

// Direction 返回连接方向
func (c *Conn) Direction() types.Direction { return c.dir }

// NumStreams 返回存活流数量
func (c *Conn) NumStreams() int { return c.streams.Len() }

// Done 连接关闭后关闭
func (c *Conn) Done() <-chan struct{} { return c.done }

// OpenStream 打开新流并协商应用协议
func (c *Conn) OpenStream(ctx context.Context) (interfaces.Stream, error) {
	select {
	case <-c.done:
		return nil, types.ErrTransportClosed
	default:
	}

	s, err := c.muxed.OpenStream(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.upgrader.negotiate(ctx, s, c.upgrader.cfg.Protocol, false); err != nil {
		_ = s.Reset()
		return nil, err
	}
	return c.streams.Track(s)
}

// AcceptStream 等待下一个完成协议协商的入站流
//
// 首次调用时启动后台接收循环。
func (c *Conn) AcceptStream(ctx context.Context) (interfaces.Stream, error) {
	c.acceptOnce.Do(func() { go c.acceptLoop() })

	select {
	case s := <-c.incoming:
		return s, nil
	case <-c.done:
		return nil, types.ErrTransportClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// acceptLoop 接收 yamux 流，每条流单独协商应用协议
func (c *Conn) acceptLoop() {
	for {
		s, err := c.muxed.AcceptStream()
		if err != nil {
			return
		}
		go c.negotiateInbound(s)
	}
}

func (c *Conn) negotiateInbound(s *muxer.MuxedStream) {
	if err := c.upgrader.negotiate(c.ctx, s, c.upgrader.cfg.Protocol, true); err != nil {
		log.Debug("流协议协商失败", "conn", c.id, "error", err)
		_ = s.Reset()
		return
	}

	ts, err := c.streams.Track(s)
	if err != nil {
		return
	}

	// 连接关闭时 CloseAll 会重置尚未取走的流
	select {
	case c.incoming <- ts:
	case <-c.done:
	}
}

// Close 重置所有流并关闭会话
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		c.cancel()
		err := c.streams.CloseAll()
		if cerr := c.muxed.Close(); cerr != nil {
			err = multierr.Append(err, fmt.Errorf("close session: %w", cerr))
		}
		c.closeErr = err
	})
	return c.closeErr
}
