package quic

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/quic-go/quic-go"
	"go.uber.org/multierr"

	"github.com/dep2p/go-kadugu/config"
	"github.com/dep2p/go-kadugu/internal/core/identity"
	"github.com/dep2p/go-kadugu/internal/util/logger"
	"github.com/dep2p/go-kadugu/pkg/interfaces"
	"github.com/dep2p/go-kadugu/pkg/protocolids"
	"github.com/dep2p/go-kadugu/pkg/types"
)

var log = logger.Logger("core/transport/quic")

// 确保实现了接口
var _ interfaces.Transport = (*Transport)(nil)

// Transport QUIC 传输
//
// 监听与拨号共用一个 UDP socket 与 quic.Transport。
type Transport struct {
	mu sync.Mutex

	identity *identity.Identity
	cfg      config.TransportConfig
	tlsConf  *tls.Config
	quicConf *quic.Config

	quicTransport *quic.Transport
	udpConn       *net.UDPConn

	listener *Listener
	closed   bool
}

// New 创建 QUIC 传输
func New(id *identity.Identity, cfg config.TransportConfig) (*Transport, error) {
	tlsConf, err := newTLSConfig(id, protocolids.Agent())
	if err != nil {
		return nil, fmt.Errorf("tls config: %w", err)
	}

	qc := &quic.Config{
		HandshakeIdleTimeout: cfg.HandshakeTimeout.Duration(),
		MaxIdleTimeout:       cfg.IdleTimeout.Duration(),
		KeepAlivePeriod:      cfg.KeepAlive.Duration(),
		MaxIncomingStreams:   int64(cfg.MaxStreams),
		// 代理流都是双向流
		MaxIncomingUniStreams: -1,
	}

	return &Transport{
		identity: id,
		cfg:      cfg,
		tlsConf:  tlsConf,
		quicConf: qc,
	}, nil
}

// Protocol 返回传输协议名
func (t *Transport) Protocol() string {
	return config.ProtocolQUIC
}

// ensureTransport 首次使用时绑定 UDP socket
//
// 调用方必须持有 t.mu。
func (t *Transport) ensureTransport(laddr *net.UDPAddr) (*quic.Transport, error) {
	if t.quicTransport != nil {
		return t.quicTransport, nil
	}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, fmt.Errorf("listen udp %v: %w", laddr, err)
	}
	t.udpConn = conn
	t.quicTransport = &quic.Transport{Conn: conn}
	return t.quicTransport, nil
}

// Dial 拨号并完成 TLS 握手
//
// 若尚未监听，则绑定随机端口。
func (t *Transport) Dial(ctx context.Context, addr string, peer types.PeerID) (interfaces.Conn, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, types.ErrTransportClosed
	}
	qt, err := t.ensureTransport(&net.UDPAddr{})
	t.mu.Unlock()
	if err != nil {
		return nil, err
	}

	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", addr, err)
	}

	if t.cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.cfg.DialTimeout.Duration())
		defer cancel()
	}

	qc, err := qt.Dial(ctx, raddr, t.tlsConf, t.quicConf)
	if err != nil {
		return nil, fmt.Errorf("%w: quic dial %s: %w", types.ErrHandshake, addr, err)
	}

	info, err := peerFromState(qc.ConnectionState().TLS)
	if err != nil {
		_ = qc.CloseWithError(closeCodeNormal, "bad certificate")
		return nil, fmt.Errorf("%w: %w", types.ErrHandshake, err)
	}

	c := newConn(qc, t.identity.PeerID(), info, types.DirOutbound)
	log.Debug("出站连接已建立",
		"conn", c.ID(),
		"addr", addr,
		"peer", logger.TruncateID(string(peer), 8))
	return c, nil
}

// Listen 在 addr 上监听
//
// 每个 Transport 只能有一个监听器。
func (t *Transport) Listen(addr string) (interfaces.Listener, error) {
	laddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", addr, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, types.ErrTransportClosed
	}
	if t.listener != nil {
		return nil, errors.New("quic: already listening")
	}
	if t.quicTransport != nil {
		// 拨号时绑定的随机端口不能用于监听
		return nil, errors.New("quic: listen must precede dial")
	}

	qt, err := t.ensureTransport(laddr)
	if err != nil {
		return nil, err
	}
	ql, err := qt.Listen(t.tlsConf, t.quicConf)
	if err != nil {
		return nil, fmt.Errorf("quic listen: %w", err)
	}

	t.listener = newListener(ql, t)
	log.Info("QUIC 监听已启动", "addr", ql.Addr())
	return t.listener, nil
}

func (t *Transport) removeListener(l *Listener) {
	t.mu.Lock()
	if t.listener == l {
		t.listener = nil
	}
	t.mu.Unlock()
}

// Close 关闭传输，所有连接随 quic.Transport 一并关闭
func (t *Transport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	l := t.listener
	qt, udp := t.quicTransport, t.udpConn
	t.quicTransport, t.udpConn = nil, nil
	t.mu.Unlock()

	var err error
	if l != nil {
		err = multierr.Append(err, l.Close())
	}
	if qt != nil {
		err = multierr.Append(err, qt.Close())
	}
	if udp != nil {
		if cerr := udp.Close(); cerr != nil && !errors.Is(cerr, net.ErrClosed) {
			err = multierr.Append(err, cerr)
		}
	}
	return err
}
