package noise

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/dep2p/go-kadugu/internal/core/identity"
	"github.com/dep2p/go-kadugu/internal/util/logger"
	"github.com/dep2p/go-kadugu/pkg/types"
)

var log = logger.Logger("core/security/noise")

// ProtocolID Noise 协议标识（multistream 协商用）
const ProtocolID = "/noise"

// Transport Noise 安全传输
type Transport struct {
	identity *identity.Identity
	agent    string
}

// New 创建 Noise 传输
func New(id *identity.Identity, agent string) (*Transport, error) {
	if id == nil {
		return nil, errors.New("noise: identity is nil")
	}
	return &Transport{identity: id, agent: agent}, nil
}

// ID 返回协议标识
func (t *Transport) ID() string {
	return ProtocolID
}

// SecureInbound 保护入站连接
func (t *Transport) SecureInbound(ctx context.Context, conn net.Conn) (*SecureConn, error) {
	return t.secure(ctx, conn, "", false)
}

// SecureOutbound 保护出站连接
//
// remotePeer 仅用于日志，身份一致性由调用方校验。
func (t *Transport) SecureOutbound(ctx context.Context, conn net.Conn, remotePeer types.PeerID) (*SecureConn, error) {
	return t.secure(ctx, conn, remotePeer, true)
}

func (t *Transport) secure(ctx context.Context, conn net.Conn, remotePeer types.PeerID, initiator bool) (*SecureConn, error) {
	if conn == nil {
		return nil, errors.New("noise: conn is nil")
	}

	if d, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(d); err != nil {
			return nil, fmt.Errorf("set deadline: %w", err)
		}
	}
	defer conn.SetDeadline(time.Time{})

	// ctx 取消时打断阻塞的握手读写
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Unix(1, 0))
	})

	label := logger.TruncateID(string(remotePeer), 8)
	log.Debug("Noise 握手", "initiator", initiator, "remotePeer", label)

	sc, err := performHandshake(conn, t.identity, t.agent, initiator)
	if !stop() {
		// 取消回调已触发，连接截止时间已被破坏
		if err == nil {
			err = ctx.Err()
		} else {
			err = fmt.Errorf("%w (%v)", ctx.Err(), err)
		}
	}
	if err != nil {
		log.Debug("Noise 握手失败", "remoteAddr", conn.RemoteAddr(), "error", err)
		return nil, fmt.Errorf("%w: noise: %w", types.ErrHandshake, err)
	}

	log.Debug("Noise 握手成功",
		"claimedPeer", logger.TruncateID(string(sc.ClaimedPeer()), 8),
		"agent", sc.RemoteAgent())
	return sc, nil
}
