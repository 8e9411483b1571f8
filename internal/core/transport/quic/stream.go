package quic

import (
	"errors"
	"fmt"
	"time"

	"github.com/quic-go/quic-go"

	"github.com/dep2p/go-kadugu/pkg/interfaces"
	"github.com/dep2p/go-kadugu/pkg/types"
)

// Stream QUIC 流封装
type Stream struct {
	qs *quic.Stream
}

// 确保实现 interfaces.Stream 接口
var _ interfaces.Stream = (*Stream)(nil)

func newStream(qs *quic.Stream) *Stream {
	return &Stream{qs: qs}
}

// Read 从流中读取数据
func (s *Stream) Read(p []byte) (int, error) {
	n, err := s.qs.Read(p)
	return n, parseError(err)
}

// Write 向流写入数据
func (s *Stream) Write(p []byte) (int, error) {
	n, err := s.qs.Write(p)
	return n, parseError(err)
}

// ID 返回流 ID
func (s *Stream) ID() uint64 {
	return uint64(s.qs.StreamID())
}

// CloseWrite 发送 FIN，读方向不受影响
func (s *Stream) CloseWrite() error {
	return s.qs.Close()
}

// Close 关闭写端并停止读取
func (s *Stream) Close() error {
	err := s.qs.Close()
	s.qs.CancelRead(closeCodeNormal)
	return err
}

// Reset 双向中止流
func (s *Stream) Reset() error {
	s.qs.CancelWrite(resetCode)
	s.qs.CancelRead(resetCode)
	return nil
}

// SetDeadline 设置读写超时
func (s *Stream) SetDeadline(t time.Time) error {
	return s.qs.SetDeadline(t)
}

// SetReadDeadline 设置读超时
func (s *Stream) SetReadDeadline(t time.Time) error {
	return s.qs.SetReadDeadline(t)
}

// SetWriteDeadline 设置写超时
func (s *Stream) SetWriteDeadline(t time.Time) error {
	return s.qs.SetWriteDeadline(t)
}

// parseError 转换 quic-go 错误
//
// 流级错误映射为 types.ErrStreamReset，连接级错误映射为 types.ErrTransportClosed。
func parseError(err error) error {
	if err == nil {
		return nil
	}

	var streamErr *quic.StreamError
	if errors.As(err, &streamErr) {
		return fmt.Errorf("%w: %v", types.ErrStreamReset, err)
	}

	var (
		appErr       *quic.ApplicationError
		idleErr      *quic.IdleTimeoutError
		transportErr *quic.TransportError
		resetErr     *quic.StatelessResetError
	)
	if errors.As(err, &appErr) || errors.As(err, &idleErr) ||
		errors.As(err, &transportErr) || errors.As(err, &resetErr) ||
		errors.Is(err, quic.ErrServerClosed) || errors.Is(err, quic.ErrTransportClosed) {
		return fmt.Errorf("%w: %v", types.ErrTransportClosed, err)
	}
	return err
}
