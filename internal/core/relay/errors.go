package relay

import "errors"

// ErrHalfCloseTimeout 一个方向结束后另一方向超时未结束
var ErrHalfCloseTimeout = errors.New("relay: half-close timeout")
