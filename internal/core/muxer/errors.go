package muxer

import (
	"errors"
	"fmt"

	"github.com/libp2p/go-yamux/v5"

	"github.com/dep2p/go-kadugu/pkg/types"
)

// ErrStreamReset 流被重置
var ErrStreamReset = types.ErrStreamReset

// parseError 转换 yamux 错误
//
// 会话关闭映射为 types.ErrTransportClosed，流重置映射为 ErrStreamReset。
func parseError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, yamux.ErrSessionShutdown) || errors.Is(err, yamux.ErrRemoteGoAway) {
		return fmt.Errorf("%w: %v", types.ErrTransportClosed, err)
	}

	if errors.Is(err, yamux.ErrStreamReset) {
		return ErrStreamReset
	}

	return err
}
