package noise

import "errors"

var (
	// ErrInvalidPayload 握手 payload 无法解析
	ErrInvalidPayload = errors.New("noise: invalid handshake payload")

	// ErrInvalidSignature 静态公钥未被身份密钥签名
	ErrInvalidSignature = errors.New("noise: remote static key not bound to identity key")
)
