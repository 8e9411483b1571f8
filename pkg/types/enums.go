package types

// ============================================================================
//                              Direction - 连接方向
// ============================================================================

// Direction 连接方向
type Direction int

const (
	// DirUnknown 未知方向
	DirUnknown Direction = iota
	// DirInbound 入站连接（由对端发起）
	DirInbound
	// DirOutbound 出站连接（由本地发起）
	DirOutbound
)

// String 返回方向的字符串表示
func (d Direction) String() string {
	switch d {
	case DirInbound:
		return "inbound"
	case DirOutbound:
		return "outbound"
	default:
		return "unknown"
	}
}

// ============================================================================
//                              Role - 流角色
// ============================================================================

// Role 流角色
//
// Initiator 写入目标描述符，Responder 读取描述符并拨号目标。
type Role int

const (
	// RoleInitiator 流发起方（用户侧）
	RoleInitiator Role = iota
	// RoleResponder 流响应方（共享侧）
	RoleResponder
)

// String 返回角色的字符串表示
func (r Role) String() string {
	if r == RoleResponder {
		return "responder"
	}
	return "initiator"
}
