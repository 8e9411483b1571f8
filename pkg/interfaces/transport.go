// Package interfaces 定义 kadugu 的公共接口
//
// 本文件定义安全通道边界：Transport、Listener、Conn、Stream。
// 隧道引擎只依赖这些接口，QUIC 与 TCP(Noise+Yamux) 两种实现可互换。
package interfaces

import (
	"context"
	"crypto/ed25519"
	"io"
	"net"
	"time"

	"github.com/dep2p/go-kadugu/pkg/types"
)

// Transport 定义安全通道传输接口
//
// Dial 与 Listen 返回的连接都已完成加密握手与流多路复用设置，
// 但尚未做 PeerID 绑定校验：调用方必须显式调用 identity.VerifyHandshake。
type Transport interface {
	// Protocol 返回传输协议名（"quic" 或 "tcp"）
	Protocol() string

	// Dial 拨号到 addr 上的 peer
	//
	// peer 仅用于日志与握手声明，不代表身份已被校验。
	Dial(ctx context.Context, addr string, peer types.PeerID) (Conn, error)

	// Listen 在 addr 上监听
	Listen(addr string) (Listener, error)

	// Close 关闭传输
	Close() error
}

// Listener 定义监听器接口
type Listener interface {
	// Accept 返回下一个完成握手的入站连接
	//
	// 监听器关闭后返回 types.ErrTransportClosed。
	Accept(ctx context.Context) (Conn, error)

	// Addr 返回实际监听地址
	Addr() net.Addr

	// Close 关闭监听器
	Close() error
}

// Conn 定义已认证的多路复用连接
type Conn interface {
	// ID 返回连接唯一标识（用于日志）
	ID() string

	// LocalPeer 返回本地节点 ID
	LocalPeer() types.PeerID

	// RemotePublicKey 返回握手协商出的对端身份公钥
	RemotePublicKey() ed25519.PublicKey

	// ClaimedPeer 返回对端在握手中声明的 PeerID（未经校验）
	ClaimedPeer() types.PeerID

	// RemoteAddr 返回对端网络地址
	RemoteAddr() net.Addr

	// Direction 返回连接方向
	Direction() types.Direction

	// OpenStream 打开新流，连接不可用时返回 types.ErrTransportClosed
	OpenStream(ctx context.Context) (Stream, error)

	// AcceptStream 阻塞等待下一个入站流，连接关闭时返回 types.ErrTransportClosed
	AcceptStream(ctx context.Context) (Stream, error)

	// NumStreams 返回当前存活的流数量
	NumStreams() int

	// Done 在连接关闭后关闭
	Done() <-chan struct{}

	// Close 重置所有子流并关闭连接
	Close() error
}

// Stream 定义多路复用流
type Stream interface {
	io.Reader
	io.Writer

	// ID 返回流 ID
	ID() uint64

	// CloseWrite 半关闭：通知对端本方向数据结束
	CloseWrite() error

	// Close 正常关闭流（双向）
	Close() error

	// Reset 异常终止流，双方的阻塞读写立即返回错误
	Reset() error

	// SetDeadline 设置读写超时
	SetDeadline(t time.Time) error

	// SetReadDeadline 设置读超时
	SetReadDeadline(t time.Time) error

	// SetWriteDeadline 设置写超时
	SetWriteDeadline(t time.Time) error
}
