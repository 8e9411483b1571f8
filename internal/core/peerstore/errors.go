package peerstore

import "errors"

// ErrInvalidAddr 地址不是 host:port 形式
var ErrInvalidAddr = errors.New("invalid address")
