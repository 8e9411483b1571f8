package muxer

import (
	"time"

	"github.com/libp2p/go-yamux/v5"

	"github.com/dep2p/go-kadugu/pkg/interfaces"
)

var _ interfaces.Stream = (*MuxedStream)(nil)

// MuxedStream 包装 yamux.Stream
type MuxedStream struct {
	stream *yamux.Stream
}

// ID 返回流 ID
func (s *MuxedStream) ID() uint64 {
	return uint64(s.stream.StreamID())
}

// Read 从流中读取数据
func (s *MuxedStream) Read(p []byte) (n int, err error) {
	n, err = s.stream.Read(p)
	return n, parseError(err)
}

// Write 向流中写入数据
func (s *MuxedStream) Write(p []byte) (n int, err error) {
	n, err = s.stream.Write(p)
	return n, parseError(err)
}

// Close 关闭流（正常关闭）
func (s *MuxedStream) Close() error {
	return s.stream.Close()
}

// CloseWrite 关闭写端
func (s *MuxedStream) CloseWrite() error {
	return s.stream.CloseWrite()
}

// CloseRead 关闭读端
func (s *MuxedStream) CloseRead() error {
	return s.stream.CloseRead()
}

// Reset 重置流（异常关闭）
func (s *MuxedStream) Reset() error {
	return s.stream.Reset()
}

// SetDeadline 设置读写截止时间
func (s *MuxedStream) SetDeadline(t time.Time) error {
	return s.stream.SetDeadline(t)
}

// SetReadDeadline 设置读截止时间
func (s *MuxedStream) SetReadDeadline(t time.Time) error {
	return s.stream.SetReadDeadline(t)
}

// SetWriteDeadline 设置写截止时间
func (s *MuxedStream) SetWriteDeadline(t time.Time) error {
	return s.stream.SetWriteDeadline(t)
}
