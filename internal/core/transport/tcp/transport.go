package tcp

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"go.uber.org/multierr"

	"github.com/dep2p/go-kadugu/config"
	"github.com/dep2p/go-kadugu/internal/core/identity"
	"github.com/dep2p/go-kadugu/internal/core/muxer"
	"github.com/dep2p/go-kadugu/internal/core/security/noise"
	"github.com/dep2p/go-kadugu/internal/core/upgrader"
	"github.com/dep2p/go-kadugu/internal/util/logger"
	"github.com/dep2p/go-kadugu/pkg/interfaces"
	"github.com/dep2p/go-kadugu/pkg/protocolids"
	"github.com/dep2p/go-kadugu/pkg/types"
)

var log = logger.Logger("core/transport/tcp")

// ============================================================================
//                              Transport 实现
// ============================================================================

// Transport TCP 安全通道
type Transport struct {
	cfg      config.TransportConfig
	upgrader *upgrader.Upgrader

	listenersMu sync.Mutex
	listeners   map[*Listener]struct{}

	closed atomic.Bool
}

// 确保实现 interfaces.Transport 接口
var _ interfaces.Transport = (*Transport)(nil)

// New 创建 TCP 安全通道
func New(id *identity.Identity, cfg config.TransportConfig) (*Transport, error) {
	sec, err := noise.New(id, protocolids.Agent())
	if err != nil {
		return nil, err
	}

	ucfg := upgrader.NewConfig()
	ucfg.Security = sec
	ucfg.Muxer = muxer.NewTransport(cfg)
	ucfg.Protocol = protocolids.Proxy
	if cfg.HandshakeTimeout > 0 {
		ucfg.NegotiateTimeout = cfg.HandshakeTimeout.Duration()
	}

	u, err := upgrader.New(ucfg)
	if err != nil {
		return nil, fmt.Errorf("create upgrader: %w", err)
	}

	return &Transport{
		cfg:       cfg,
		upgrader:  u,
		listeners: make(map[*Listener]struct{}),
	}, nil
}

// Protocol 返回传输协议名
func (t *Transport) Protocol() string {
	return config.ProtocolTCP
}

// Dial 拨号并完成升级
//
// peer 为期望的对端 ID，仅用于日志。
func (t *Transport) Dial(ctx context.Context, addr string, peer types.PeerID) (interfaces.Conn, error) {
	if t.closed.Load() {
		return nil, types.ErrTransportClosed
	}

	if t.cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.cfg.DialTimeout.Duration())
		defer cancel()
	}

	dialer := &net.Dialer{KeepAlive: t.cfg.KeepAlive.Duration()}
	raw, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("tcp dial %s: %w", addr, err)
	}
	setSocketOptions(raw)

	c, err := t.upgrader.Upgrade(ctx, raw, types.DirOutbound, peer)
	if err != nil {
		return nil, err
	}

	log.Debug("出站连接已建立",
		"conn", c.ID(),
		"addr", addr,
		"peer", logger.TruncateID(string(peer), 8))
	return c, nil
}

// Listen 监听入站连接
func (t *Transport) Listen(addr string) (interfaces.Listener, error) {
	if t.closed.Load() {
		return nil, types.ErrTransportClosed
	}

	lc := net.ListenConfig{KeepAlive: t.cfg.KeepAlive.Duration()}
	ln, err := lc.Listen(context.Background(), "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("tcp listen %s: %w", addr, err)
	}

	l := newListener(t, ln)

	t.listenersMu.Lock()
	t.listeners[l] = struct{}{}
	t.listenersMu.Unlock()

	log.Info("TCP 监听已启动", "addr", ln.Addr())
	return l, nil
}

func (t *Transport) removeListener(l *Listener) {
	t.listenersMu.Lock()
	delete(t.listeners, l)
	t.listenersMu.Unlock()
}

// Close 关闭传输层及其所有监听器
func (t *Transport) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}

	t.listenersMu.Lock()
	ls := make([]*Listener, 0, len(t.listeners))
	for l := range t.listeners {
		ls = append(ls, l)
	}
	t.listenersMu.Unlock()

	var err error
	for _, l := range ls {
		err = multierr.Append(err, l.Close())
	}
	return err
}

// setSocketOptions 关闭 Nagle 算法
func setSocketOptions(c net.Conn) {
	if tc, ok := c.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
	}
}
