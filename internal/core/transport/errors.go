package transport

import "errors"

// ErrUnknownProtocol 未知的传输协议
var ErrUnknownProtocol = errors.New("unknown transport protocol")
