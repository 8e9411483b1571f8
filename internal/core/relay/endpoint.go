package relay

import (
	"io"
	"net"

	"github.com/dep2p/go-kadugu/pkg/interfaces"
)

// Endpoint 中继的一端
//
// 只有本包提供的两种实现：NewConnEndpoint 与 NewStreamEndpoint。
type Endpoint interface {
	io.Reader
	io.Writer

	// CloseWrite 半关闭写方向
	CloseWrite() error

	// Close 正常关闭
	Close() error

	// Reset 异常终止
	Reset() error

	endpoint()
}

// ============================================================================
//                              socket 端点
// ============================================================================

type connEndpoint struct {
	conn net.Conn
	r    io.Reader
}

// NewConnEndpoint 包装 TCP 或本地 socket
//
// buffered 不为空时先读出其中的数据（如 HTTP 解析时多读的字节）。
func NewConnEndpoint(conn net.Conn, buffered io.Reader) Endpoint {
	e := &connEndpoint{conn: conn, r: conn}
	if buffered != nil {
		e.r = io.MultiReader(buffered, conn)
	}
	return e
}

func (e *connEndpoint) endpoint() {}

func (e *connEndpoint) Read(p []byte) (int, error)  { return e.r.Read(p) }
func (e *connEndpoint) Write(p []byte) (int, error) { return e.conn.Write(p) }

func (e *connEndpoint) CloseWrite() error {
	if cw, ok := e.conn.(interface{ CloseWrite() error }); ok {
		return cw.CloseWrite()
	}
	return e.conn.Close()
}

func (e *connEndpoint) Close() error {
	return e.conn.Close()
}

// Reset 以 RST 关闭 TCP 连接
func (e *connEndpoint) Reset() error {
	if tc, ok := e.conn.(*net.TCPConn); ok {
		_ = tc.SetLinger(0)
	}
	return e.conn.Close()
}

// ============================================================================
//                              流端点
// ============================================================================

type streamEndpoint struct {
	s interfaces.Stream
}

// NewStreamEndpoint 包装多路复用流
func NewStreamEndpoint(s interfaces.Stream) Endpoint {
	return &streamEndpoint{s: s}
}

func (e *streamEndpoint) endpoint() {}

func (e *streamEndpoint) Read(p []byte) (int, error)  { return e.s.Read(p) }
func (e *streamEndpoint) Write(p []byte) (int, error) { return e.s.Write(p) }
func (e *streamEndpoint) CloseWrite() error           { return e.s.CloseWrite() }
func (e *streamEndpoint) Close() error                { return e.s.Close() }
func (e *streamEndpoint) Reset() error                { return e.s.Reset() }
