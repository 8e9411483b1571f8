package proxy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dep2p/go-kadugu/internal/util/logger"
	"github.com/dep2p/go-kadugu/pkg/interfaces"
	"github.com/dep2p/go-kadugu/pkg/types"
)

var log = logger.Logger("protocol/proxy")

// Stream 携带目标描述符的代理流
type Stream struct {
	interfaces.Stream

	target string
	role   types.Role
	// 响应方是否已应答
	replied bool
}

// Target 返回目标 host:port
func (s *Stream) Target() string { return s.target }

// Role 返回本端角色
func (s *Stream) Role() types.Role { return s.role }

// ============================================================================
//                              发起方
// ============================================================================

// Open 打开代理流并等待响应方应答
//
// OpenStream 的错误原样包装返回，只有连接已断开时才包含 types.ErrTransportClosed；
// 响应方拒绝时返回 *StatusError，流已关闭。
func Open(ctx context.Context, conn interfaces.Conn, target string) (*Stream, error) {
	if err := ValidateTarget(target); err != nil {
		return nil, err
	}

	s, err := conn.OpenStream(ctx)
	if err != nil {
		return nil, fmt.Errorf("proxy open %s: %w", target, err)
	}

	// ctx 取消时打断阻塞的读写
	if d, ok := ctx.Deadline(); ok {
		_ = s.SetDeadline(d)
	}
	stop := context.AfterFunc(ctx, func() {
		_ = s.SetDeadline(time.Unix(1, 0))
	})

	status, reason, err := handshakeInitiator(s, target)
	if !stop() && err == nil {
		err = ctx.Err()
	}
	if err != nil {
		_ = s.Reset()
		if ctx.Err() != nil {
			return nil, fmt.Errorf("proxy open %s: %w", target, ctx.Err())
		}
		return nil, fmt.Errorf("proxy open %s: %w", target, err)
	}
	_ = s.SetDeadline(time.Time{})

	if status != StatusOK {
		_ = s.Close()
		return nil, &StatusError{Code: status, Reason: reason}
	}

	log.Debug("代理流已建立", "stream", s.ID(), "target", target)
	return &Stream{Stream: s, target: target, role: types.RoleInitiator}, nil
}

func handshakeInitiator(s interfaces.Stream, target string) (Status, string, error) {
	if err := WriteDescriptor(s, target); err != nil {
		return 0, "", fmt.Errorf("write descriptor: %w", err)
	}
	status, reason, err := ReadStatus(s)
	if err != nil {
		return 0, "", fmt.Errorf("read status: %w", err)
	}
	return status, reason, nil
}

// ============================================================================
//                              响应方
// ============================================================================

// Accept 接受下一条入站流并读取其描述符
//
// 连接结束后返回 types.ErrTransportClosed，之后不可再调用。
// 描述符非法的流会收到 BadDescriptor 应答并被关闭，Accept 继续等待下一条。
func Accept(ctx context.Context, conn interfaces.Conn) (*Stream, error) {
	for {
		s, err := conn.AcceptStream(ctx)
		if err != nil {
			return nil, err
		}

		var timeout time.Duration
		if d, ok := ctx.Deadline(); ok {
			timeout = time.Until(d)
		}
		ps, err := ReadRequest(s, timeout)
		if err == nil {
			return ps, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
}

// ReadRequest 在入站流上读取描述符
//
// timeout 大于 0 时限制读取时间。描述符非法时已应答 BadDescriptor
// 并关闭流；其他错误时流已重置。
func ReadRequest(s interfaces.Stream, timeout time.Duration) (*Stream, error) {
	if timeout > 0 {
		_ = s.SetReadDeadline(time.Now().Add(timeout))
	}

	target, err := ReadDescriptor(s)
	if err != nil {
		if errors.Is(err, types.ErrInvalidDescriptor) {
			log.Debug("描述符非法", "stream", s.ID(), "error", err)
			_ = Reject(s, StatusBadDescriptor, err.Error())
		} else {
			_ = s.Reset()
		}
		return nil, err
	}

	if timeout > 0 {
		_ = s.SetReadDeadline(time.Time{})
	}
	return &Stream{Stream: s, target: target, role: types.RoleResponder}, nil
}

// Reply 应答发起方，每条流只能应答一次
func (s *Stream) Reply(code Status, reason string) error {
	if s.role != types.RoleResponder {
		return errors.New("proxy: reply on initiator stream")
	}
	if s.replied {
		return errors.New("proxy: already replied")
	}
	s.replied = true
	return WriteStatus(s.Stream, code, reason)
}

// Reject 应答非 OK 状态并关闭流
func Reject(s interfaces.Stream, code Status, reason string) error {
	err := WriteStatus(s, code, reason)
	if err != nil {
		_ = s.Reset()
		return err
	}
	return s.Close()
}
