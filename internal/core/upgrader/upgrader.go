package upgrader

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/dep2p/go-kadugu/internal/core/security/noise"
	"github.com/dep2p/go-kadugu/internal/util/logger"
	"github.com/dep2p/go-kadugu/pkg/types"
)

var log = logger.Logger("core/upgrader")

// Upgrader 连接升级器
type Upgrader struct {
	cfg              Config
	negotiateTimeout time.Duration
}

// New 创建连接升级器
func New(cfg Config) (*Upgrader, error) {
	if cfg.Security == nil {
		return nil, ErrNoSecurityTransport
	}
	if cfg.Muxer == nil {
		return nil, ErrNoStreamMuxer
	}
	if cfg.Protocol == "" {
		return nil, ErrNoProtocol
	}
	if cfg.NegotiateTimeout <= 0 {
		cfg.NegotiateTimeout = NewConfig().NegotiateTimeout
	}
	return &Upgrader{cfg: cfg, negotiateTimeout: cfg.NegotiateTimeout}, nil
}

// Upgrade 升级连接
//
// 升级流程：
//  1. 协商安全协议（multistream-select）
//  2. Noise 握手
//  3. 协商多路复用器（multistream-select）
//  4. 多路复用设置（yamux）
//
// 任一步骤失败都会关闭 conn，返回的错误包装 types.ErrHandshake。
func (u *Upgrader) Upgrade(ctx context.Context, conn net.Conn, dir types.Direction, remotePeer types.PeerID) (*Conn, error) {
	isServer := dir == types.DirInbound
	label := logger.TruncateID(string(remotePeer), 8)

	// 1. 协商安全协议
	log.Debug("协商安全协议", "direction", dir, "remotePeer", label)
	if err := u.negotiate(ctx, conn, u.cfg.Security.ID(), isServer); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: security negotiation: %w", types.ErrHandshake, err)
	}

	// 2. 安全握手
	var (
		sc  *noise.SecureConn
		err error
	)
	if isServer {
		sc, err = u.cfg.Security.SecureInbound(ctx, conn)
	} else {
		sc, err = u.cfg.Security.SecureOutbound(ctx, conn, remotePeer)
	}
	if err != nil {
		conn.Close()
		return nil, err
	}

	// 3. 协商多路复用器
	if err := u.negotiate(ctx, sc, u.cfg.Muxer.ID(), isServer); err != nil {
		sc.Close()
		return nil, fmt.Errorf("%w: muxer negotiation: %w", types.ErrHandshake, err)
	}

	// 4. 创建多路复用连接
	mc, err := u.cfg.Muxer.NewConn(sc, isServer)
	if err != nil {
		sc.Close()
		return nil, fmt.Errorf("%w: muxer setup: %w", types.ErrHandshake, err)
	}

	c := newConn(u, mc, sc, dir)
	log.Debug("连接升级成功",
		"conn", c.ID(),
		"claimedPeer", logger.TruncateID(string(sc.ClaimedPeer()), 8),
		"security", u.cfg.Security.ID(),
		"muxer", u.cfg.Muxer.ID())
	return c, nil
}
