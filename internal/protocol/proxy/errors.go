package proxy

import (
	"fmt"

	"github.com/dep2p/go-kadugu/pkg/types"
)

// StatusError 响应方返回的非 OK 状态
type StatusError struct {
	Code   Status
	Reason string
}

// Error 实现 error 接口
func (e *StatusError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("proxy: %s", e.Code)
	}
	return fmt.Sprintf("proxy: %s: %s", e.Code, e.Reason)
}

// Unwrap 返回对应的哨兵错误
func (e *StatusError) Unwrap() error {
	if e.Code == StatusDialFailed {
		return types.ErrDialFailure
	}
	return types.ErrRefused
}
