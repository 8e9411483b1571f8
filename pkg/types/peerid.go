package types

import (
	"github.com/mr-tron/base58"
)

// ============================================================================
//                              PeerID - 节点标识
// ============================================================================

// PeerIDDigestLen PeerID 解码后的摘要长度（SHA256）
const PeerIDDigestLen = 32

// PeerID 节点唯一标识符
//
// 由公钥派生：Base58(SHA256(protobuf 编码的公钥))。
// PeerID 以 Base58 文本形式存储，可直接用于配置、命令行与日志。
type PeerID string

// EmptyPeerID 空节点 ID
var EmptyPeerID PeerID

// String 返回 PeerID 的字符串表示
func (id PeerID) String() string {
	return string(id)
}

// ShortString 返回 PeerID 的短字符串表示
//
// 格式：前 8 个字符...后 3 个字符，用于日志中的简短标识。
func (id PeerID) ShortString() string {
	s := string(id)
	if len(s) <= 12 {
		return s
	}
	return s[:8] + "..." + s[len(s)-3:]
}

// IsEmpty 检查 PeerID 是否为空
func (id PeerID) IsEmpty() bool {
	return id == EmptyPeerID
}

// Bytes 返回 PeerID 解码后的摘要字节
func (id PeerID) Bytes() ([]byte, error) {
	return base58.Decode(string(id))
}

// Validate 校验 PeerID 格式
//
// 合法的 PeerID 必须是 Base58 编码，且解码后长度为 32 字节。
func (id PeerID) Validate() error {
	if id.IsEmpty() {
		return ErrEmptyPeerID
	}
	b, err := base58.Decode(string(id))
	if err != nil || len(b) != PeerIDDigestLen {
		return ErrInvalidPeerID
	}
	return nil
}

// PeerIDFromDigest 从 32 字节摘要构造 PeerID
func PeerIDFromDigest(digest []byte) (PeerID, error) {
	if len(digest) != PeerIDDigestLen {
		return EmptyPeerID, ErrInvalidPeerID
	}
	return PeerID(base58.Encode(digest)), nil
}

// ParsePeerID 从字符串解析 PeerID
//
// 仅支持 Base58 编码（用于用户输入和配置）。
func ParsePeerID(s string) (PeerID, error) {
	id := PeerID(s)
	if err := id.Validate(); err != nil {
		return EmptyPeerID, err
	}
	return id, nil
}
