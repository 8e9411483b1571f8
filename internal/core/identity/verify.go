package identity

import (
	"crypto/ed25519"
	"fmt"

	"github.com/dep2p/go-kadugu/pkg/types"
)

// MismatchError 握手身份与期望身份不一致
type MismatchError struct {
	Expected types.PeerID
	Actual   types.PeerID
}

// Error 实现 error 接口
func (e *MismatchError) Error() string {
	return fmt.Sprintf("identity mismatch: expected %s, handshake key derives %s", e.Expected, e.Actual)
}

// Unwrap 返回 types.ErrIdentityMismatch
func (e *MismatchError) Unwrap() error {
	return types.ErrIdentityMismatch
}

// VerifyHandshake 校验握手协商出的公钥与期望 PeerID 的绑定
//
// 安全通道握手完成后、任何应用数据流动之前调用：
//   - 客户端传入其拨号的 PeerID
//   - 服务端传入对端在握手中声明的 PeerID
//
// 重新派生 PeerIDFromPublicKey(negotiated)，不一致时返回 *MismatchError。
func VerifyHandshake(expected types.PeerID, negotiated ed25519.PublicKey) error {
	if expected.IsEmpty() {
		return &MismatchError{Expected: expected}
	}

	actual, err := PeerIDFromPublicKey(negotiated)
	if err != nil {
		return &MismatchError{Expected: expected}
	}
	if actual != expected {
		return &MismatchError{Expected: expected, Actual: actual}
	}
	return nil
}
