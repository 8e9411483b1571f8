package types

import "errors"

// ============================================================================
//                              ID 相关错误
// ============================================================================

var (
	// ErrEmptyPeerID 空节点 ID
	ErrEmptyPeerID = errors.New("empty peer ID")

	// ErrInvalidPeerID 无效的节点 ID
	ErrInvalidPeerID = errors.New("invalid peer ID")
)

// ============================================================================
//                              身份相关错误
// ============================================================================

var (
	// ErrIdentity 密钥加载或派生失败（启动期致命）
	ErrIdentity = errors.New("identity error")

	// ErrIdentityMismatch 握手协商出的身份与期望的 PeerID 不一致
	ErrIdentityMismatch = errors.New("identity mismatch")
)

// ============================================================================
//                              连接相关错误
// ============================================================================

var (
	// ErrHandshake 安全通道握手失败
	ErrHandshake = errors.New("handshake failed")

	// ErrACLRejected 对端不在授权列表中
	ErrACLRejected = errors.New("peer rejected by access control list")

	// ErrPeerUnreachable 在限定时间内无法拨通或完成握手
	ErrPeerUnreachable = errors.New("peer unreachable")

	// ErrNoAddress 地址簿中没有该节点的地址
	ErrNoAddress = errors.New("no address for peer")
)

// ============================================================================
//                              流相关错误
// ============================================================================

var (
	// ErrTransportClosed 底层连接不可用
	ErrTransportClosed = errors.New("transport closed")

	// ErrStreamReset 流被本端或对端重置
	ErrStreamReset = errors.New("stream reset")

	// ErrDialFailure 共享侧无法连接目标地址
	ErrDialFailure = errors.New("target dial failed")

	// ErrRefused 共享侧拒绝了该流（描述符非法或超出限额）
	ErrRefused = errors.New("stream refused")

	// ErrInvalidDescriptor 目标描述符格式错误
	ErrInvalidDescriptor = errors.New("invalid target descriptor")
)
