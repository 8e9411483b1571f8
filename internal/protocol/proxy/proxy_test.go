package proxy

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/multiformats/go-varint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-kadugu/config"
	"github.com/dep2p/go-kadugu/internal/core/identity"
	"github.com/dep2p/go-kadugu/internal/core/transport/tcp"
	"github.com/dep2p/go-kadugu/pkg/interfaces"
	"github.com/dep2p/go-kadugu/pkg/types"
)

// ============================================================================
//                              测试辅助
// ============================================================================

func connPair(t *testing.T) (client, server interfaces.Conn) {
	t.Helper()

	newTransport := func() (*tcp.Transport, *identity.Identity) {
		id, err := identity.Generate()
		require.NoError(t, err)
		tr, err := tcp.New(id, config.DefaultTransportConfig())
		require.NoError(t, err)
		t.Cleanup(func() { _ = tr.Close() })
		return tr, id
	}
	st, sid := newTransport()
	ct, _ := newTransport()

	ln, err := st.Listen("127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err = ct.Dial(ctx, ln.Addr().String(), sid.PeerID())
	require.NoError(t, err)
	server, err = ln.Accept(ctx)
	require.NoError(t, err)
	return client, server
}

// ============================================================================
//                              描述符与状态
// ============================================================================

// TestDescriptor_RoundTrip 描述符编解码且不越界读取负载
func TestDescriptor_RoundTrip(t *testing.T) {
	for _, target := range []string{"example.com:443", "[::1]:8080", "127.0.0.1:1"} {
		var buf bytes.Buffer
		require.NoError(t, WriteDescriptor(&buf, target))
		buf.WriteString("PAYLOAD")

		got, err := ReadDescriptor(&buf)
		require.NoError(t, err)
		assert.Equal(t, target, got)
		assert.Equal(t, "PAYLOAD", buf.String())
	}
	t.Log("✅ 描述符编解码测试通过")
}

// TestValidateTarget 非法目标
func TestValidateTarget(t *testing.T) {
	long := make([]byte, MaxDescriptorLen)
	for i := range long {
		long[i] = 'a'
	}

	for _, bad := range []string{
		"", "example.com", ":80", "host:0", "host:65536", "host:http",
		"::1:80", string(long) + ":80", "\xff\xfe:80",
	} {
		assert.ErrorIs(t, ValidateTarget(bad), types.ErrInvalidDescriptor, bad)
	}
	assert.NoError(t, ValidateTarget("a:65535"))
}

// TestReadDescriptor_Malformed 长度前缀非法
func TestReadDescriptor_Malformed(t *testing.T) {
	cases := map[string][]byte{
		"zero length": {0x00},
		"too long":    varint.ToUvarint(MaxDescriptorLen + 1),
		"not minimal": {0x81, 0x00},
		"bad target":  append(varint.ToUvarint(4), "host"...),
	}
	for name, in := range cases {
		_, err := ReadDescriptor(bytes.NewReader(in))
		assert.ErrorIs(t, err, types.ErrInvalidDescriptor, name)
	}

	_, err := ReadDescriptor(bytes.NewReader(nil))
	assert.ErrorIs(t, err, io.EOF)
	_, err = ReadDescriptor(bytes.NewReader(append(varint.ToUvarint(10), "abc"...)))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

// TestStatus_RoundTrip 状态应答编解码
func TestStatus_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteStatus(&buf, StatusDialFailed, "connection refused"))
	buf.WriteString("rest")

	code, reason, err := ReadStatus(&buf)
	require.NoError(t, err)
	assert.Equal(t, StatusDialFailed, code)
	assert.Equal(t, "connection refused", reason)
	assert.Equal(t, "rest", buf.String())

	assert.Equal(t, "ResourceLimit", StatusResourceLimit.String())
	assert.Equal(t, "Status(9)", Status(9).String())
}

// TestStatusError 状态错误映射到哨兵
func TestStatusError(t *testing.T) {
	var err error = &StatusError{Code: StatusDialFailed, Reason: "timeout"}
	assert.ErrorIs(t, err, types.ErrDialFailure)
	assert.Contains(t, err.Error(), "DialFailed")

	err = &StatusError{Code: StatusResourceLimit}
	assert.ErrorIs(t, err, types.ErrRefused)
	assert.False(t, errors.Is(err, types.ErrDialFailure))
}

// ============================================================================
//                              流协议
// ============================================================================

// TestOpenAccept 发起方写描述符，响应方应答后双向传输
func TestOpenAccept(t *testing.T) {
	client, server := connPair(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		s, err := Accept(ctx, server)
		if err != nil {
			done <- err
			return
		}
		if s.Target() != "example.com:80" || s.Role() != types.RoleResponder {
			done <- errors.New("unexpected stream")
			return
		}
		if err := s.Reply(StatusOK, ""); err != nil {
			done <- err
			return
		}
		if err := s.Reply(StatusOK, ""); err == nil {
			done <- errors.New("second reply accepted")
			return
		}
		_, err = io.Copy(s, s)
		_ = s.CloseWrite()
		done <- err
	}()

	s, err := Open(ctx, client, "example.com:80")
	require.NoError(t, err)
	assert.Equal(t, types.RoleInitiator, s.Role())
	assert.Error(t, s.Reply(StatusOK, ""))

	_, err = s.Write([]byte("echo"))
	require.NoError(t, err)
	require.NoError(t, s.CloseWrite())
	got, err := io.ReadAll(s)
	require.NoError(t, err)
	assert.Equal(t, "echo", string(got))
	require.NoError(t, <-done)

	t.Log("✅ 代理流打开/接受测试通过")
}

// TestOpen_Rejected 非 OK 应答返回 StatusError
func TestOpen_Rejected(t *testing.T) {
	client, server := connPair(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	go func() {
		s, err := Accept(ctx, server)
		if err != nil {
			return
		}
		_ = Reject(s, StatusDialFailed, "connection refused")
	}()

	_, err := Open(ctx, client, "example.com:81")
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StatusDialFailed, se.Code)
	assert.Equal(t, "connection refused", se.Reason)
	assert.ErrorIs(t, err, types.ErrDialFailure)
}

// TestReadRequest_BadDescriptor 非法描述符收到 BadDescriptor 应答
func TestReadRequest_BadDescriptor(t *testing.T) {
	client, server := connPair(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		s, err := server.AcceptStream(ctx)
		if err != nil {
			errCh <- err
			return
		}
		_, err = ReadRequest(s, time.Second)
		errCh <- err
	}()

	s, err := client.OpenStream(ctx)
	require.NoError(t, err)
	_, err = s.Write(append(varint.ToUvarint(4), "host"...))
	require.NoError(t, err)

	code, _, err := ReadStatus(s)
	require.NoError(t, err)
	assert.Equal(t, StatusBadDescriptor, code)
	assert.ErrorIs(t, <-errCh, types.ErrInvalidDescriptor)
}

// TestReadRequest_Timeout 发起方不发送描述符时超时
func TestReadRequest_Timeout(t *testing.T) {
	client, server := connPair(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s, err := client.OpenStream(ctx)
	require.NoError(t, err)
	defer s.Close()

	ss, err := server.AcceptStream(ctx)
	require.NoError(t, err)

	start := time.Now()
	_, err = ReadRequest(ss, 200*time.Millisecond)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

// TestAccept_ClosedConn 连接关闭后 Accept 返回 ErrTransportClosed
func TestAccept_ClosedConn(t *testing.T) {
	client, server := connPair(t)
	require.NoError(t, client.Close())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := Accept(ctx, server)
	assert.ErrorIs(t, err, types.ErrTransportClosed)

	_, err = Open(ctx, client, "example.com:80")
	assert.ErrorIs(t, err, types.ErrTransportClosed)
}
