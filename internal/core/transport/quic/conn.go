package quic

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"net"
	"sync"

	"github.com/google/uuid"
	"github.com/quic-go/quic-go"
	"go.uber.org/multierr"

	"github.com/dep2p/go-kadugu/internal/core/muxer"
	"github.com/dep2p/go-kadugu/pkg/interfaces"
	"github.com/dep2p/go-kadugu/pkg/types"
)

// 确保实现了接口
var _ interfaces.Conn = (*Conn)(nil)

// Conn QUIC 连接
type Conn struct {
	id        string
	qc        *quic.Conn
	localPeer types.PeerID
	peer      peerInfo
	dir       types.Direction
	streams   *muxer.StreamRegistry

	closeOnce sync.Once
	closeErr  error
	done      chan struct{}
}

func newConn(qc *quic.Conn, local types.PeerID, peer peerInfo, dir types.Direction) *Conn {
	c := &Conn{
		id:        uuid.NewString(),
		qc:        qc,
		localPeer: local,
		peer:      peer,
		dir:       dir,
		streams:   muxer.NewStreamRegistry(),
		done:      make(chan struct{}),
	}
	// 对端关闭或空闲超时后清理本地状态
	go func() {
		select {
		case <-qc.Context().Done():
			_ = c.Close()
		case <-c.done:
		}
	}()
	return c
}

// ID 返回连接 ID
func (c *Conn) ID() string { return c.id }

// LocalPeer 返回本地节点 ID
func (c *Conn) LocalPeer() types.PeerID { return c.localPeer }

// RemotePublicKey 返回对端证书公钥
func (c *Conn) RemotePublicKey() ed25519.PublicKey { return c.peer.publicKey }

// ClaimedPeer 返回对端证书扩展中声明的 PeerID
func (c *Conn) ClaimedPeer() types.PeerID { return c.peer.claimed }

// RemoteAgent 返回对端证书主题中的代理字符串
func (c *Conn) RemoteAgent() string { return c.peer.agent }

// RemoteAddr 返回对端地址
func (c *Conn) RemoteAddr() net.Addr { return c.qc.RemoteAddr() }

// Direction 返回连接方向
func (c *Conn) Direction() types.Direction { return c.dir }

// NumStreams 返回存活流数量
func (c *Conn) NumStreams() int { return c.streams.Len() }

// Done 连接关闭后关闭
func (c *Conn) Done() <-chan struct{} { return c.done }

// OpenStream 创建新流
//
// QUIC 流在写入首个字节前对端不可见。
func (c *Conn) OpenStream(ctx context.Context) (interfaces.Stream, error) {
	select {
	case <-c.done:
		return nil, types.ErrTransportClosed
	default:
	}

	qs, err := c.qc.OpenStreamSync(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: open stream: %v", types.ErrTransportClosed, err)
	}
	return c.streams.Track(newStream(qs))
}

// AcceptStream 接受对方创建的流
func (c *Conn) AcceptStream(ctx context.Context) (interfaces.Stream, error) {
	select {
	case <-c.done:
		return nil, types.ErrTransportClosed
	default:
	}

	qs, err := c.qc.AcceptStream(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: accept stream: %v", types.ErrTransportClosed, err)
	}
	return c.streams.Track(newStream(qs))
}

// Close 重置所有流并关闭连接
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		err := c.streams.CloseAll()
		if cerr := c.qc.CloseWithError(closeCodeNormal, "closing"); cerr != nil {
			err = multierr.Append(err, fmt.Errorf("close connection: %w", cerr))
		}
		c.closeErr = err
	})
	return c.closeErr
}
