package upgrader

import (
	"context"
	"fmt"
	"io"
	"time"

	mss "github.com/multiformats/go-multistream"
)

// negotiable 可以进行 multistream 协商的连接或流
type negotiable interface {
	io.ReadWriteCloser
	SetDeadline(t time.Time) error
}

// negotiate 使用 multistream-select 协商单一协议
//
// 服务器端使用 MultistreamMuxer.Negotiate()，客户端使用 SelectProtoOrFail()。
// 协商期间的截止时间取 ctx 截止时间与 NegotiateTimeout 中较早者，
// ctx 被取消时协商立即失败。
func (u *Upgrader) negotiate(ctx context.Context, rwc negotiable, proto string, isServer bool) error {
	deadline := time.Now().Add(u.negotiateTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := rwc.SetDeadline(deadline); err != nil {
		return fmt.Errorf("set deadline: %w", err)
	}
	defer rwc.SetDeadline(time.Time{}) // 清除超时

	// ctx 取消时立即打断阻塞的读写
	stop := context.AfterFunc(ctx, func() { _ = rwc.SetDeadline(time.Now()) })
	defer stop()

	if err := selectProto(rwc, proto, isServer); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("negotiation %s: %w", proto, ctx.Err())
		}
		return err
	}
	return nil
}

func selectProto(rwc negotiable, proto string, isServer bool) error {
	if isServer {
		muxer := mss.NewMultistreamMuxer[string]()
		muxer.AddHandler(proto, nil)
		if _, _, err := muxer.Negotiate(rwc); err != nil {
			return fmt.Errorf("server negotiation %s: %w", proto, err)
		}
		return nil
	}

	if err := mss.SelectProtoOrFail(proto, rwc); err != nil {
		return fmt.Errorf("client negotiation %s: %w", proto, err)
	}
	return nil
}
