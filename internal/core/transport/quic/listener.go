package quic

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/quic-go/quic-go"

	"github.com/dep2p/go-kadugu/pkg/interfaces"
	"github.com/dep2p/go-kadugu/pkg/types"
)

// Listener QUIC 监听器
type Listener struct {
	ql *quic.Listener
	tr *Transport

	closeOnce sync.Once
	closeErr  error
	closed    chan struct{}
}

// 确保实现 interfaces.Listener 接口
var _ interfaces.Listener = (*Listener)(nil)

func newListener(ql *quic.Listener, tr *Transport) *Listener {
	return &Listener{ql: ql, tr: tr, closed: make(chan struct{})}
}

// Accept 返回下一条完成 TLS 握手的连接
//
// 证书信息无法提取的连接直接关闭，不返回给调用方。
func (l *Listener) Accept(ctx context.Context) (interfaces.Conn, error) {
	for {
		qc, err := l.ql.Accept(ctx)
		if err != nil {
			select {
			case <-l.closed:
				return nil, types.ErrTransportClosed
			default:
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("%w: accept: %v", types.ErrTransportClosed, err)
		}

		info, err := peerFromState(qc.ConnectionState().TLS)
		if err != nil {
			log.Debug("入站连接证书无效", "remoteAddr", qc.RemoteAddr(), "error", err)
			_ = qc.CloseWithError(closeCodeNormal, "bad certificate")
			continue
		}
		return newConn(qc, l.tr.identity.PeerID(), info, types.DirInbound), nil
	}
}

// Addr 返回监听地址
func (l *Listener) Addr() net.Addr {
	return l.ql.Addr()
}

// Close 停止接受新连接，已建立的连接不受影响
func (l *Listener) Close() error {
	l.closeOnce.Do(func() {
		close(l.closed)
		l.closeErr = l.ql.Close()
		l.tr.removeListener(l)
	})
	return l.closeErr
}
