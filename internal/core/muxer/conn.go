package muxer

import (
	"context"
	"fmt"

	"github.com/libp2p/go-yamux/v5"

	"github.com/dep2p/go-kadugu/internal/util/logger"
	"github.com/dep2p/go-kadugu/pkg/types"
)

var log = logger.Logger("core/muxer")

// MuxedConn 包装 yamux.Session
type MuxedConn struct {
	session *yamux.Session
}

// OpenStream 打开新流
func (c *MuxedConn) OpenStream(ctx context.Context) (*MuxedStream, error) {
	s, err := c.session.OpenStream(ctx)
	if err != nil {
		log.Debug("打开流失败", "error", err)
		if c.session.IsClosed() {
			return nil, fmt.Errorf("%w: %v", types.ErrTransportClosed, err)
		}
		return nil, parseError(err)
	}
	return &MuxedStream{stream: s}, nil
}

// AcceptStream 接受新流
func (c *MuxedConn) AcceptStream() (*MuxedStream, error) {
	s, err := c.session.AcceptStream()
	if err != nil {
		// AcceptStream 只在会话关闭时失败
		return nil, fmt.Errorf("%w: %v", types.ErrTransportClosed, err)
	}
	return &MuxedStream{stream: s}, nil
}

// NumStreams 返回会话中的流数量
func (c *MuxedConn) NumStreams() int {
	return c.session.NumStreams()
}

// CloseChan 会话关闭时关闭
func (c *MuxedConn) CloseChan() <-chan struct{} {
	return c.session.CloseChan()
}

// IsClosed 检查会话是否已关闭
func (c *MuxedConn) IsClosed() bool {
	return c.session.IsClosed()
}

// Close 关闭会话及其所有流
func (c *MuxedConn) Close() error {
	return c.session.Close()
}
