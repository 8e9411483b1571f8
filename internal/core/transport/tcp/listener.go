package tcp

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/jpillora/backoff"

	"github.com/dep2p/go-kadugu/internal/core/upgrader"
	"github.com/dep2p/go-kadugu/pkg/interfaces"
	"github.com/dep2p/go-kadugu/pkg/types"
)

// acceptQueueLen 已完成握手、等待 Accept 取走的连接数量
const acceptQueueLen = 16

// 临时 accept 错误（如 fd 耗尽）的退避区间
const (
	acceptRetryMin = 5 * time.Millisecond
	acceptRetryMax = time.Second
)

// ============================================================================
//                              Listener 实现
// ============================================================================

// Listener TCP 监听器
//
// 握手在后台进行，慢速或恶意的对端不会阻塞其他连接。
type Listener struct {
	tr *Transport
	ln net.Listener

	conns chan *upgrader.Conn

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	closeOnce sync.Once
	closeErr  error
}

// 确保实现接口
var _ interfaces.Listener = (*Listener)(nil)

func newListener(tr *Transport, ln net.Listener) *Listener {
	ctx, cancel := context.WithCancel(context.Background())
	l := &Listener{
		tr:     tr,
		ln:     ln,
		conns:  make(chan *upgrader.Conn, acceptQueueLen),
		ctx:    ctx,
		cancel: cancel,
	}
	l.wg.Add(1)
	go l.acceptLoop()
	return l
}

func (l *Listener) acceptLoop() {
	defer l.wg.Done()

	b := &backoff.Backoff{Min: acceptRetryMin, Max: acceptRetryMax}
	for {
		raw, err := l.ln.Accept()
		if err != nil {
			if l.ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			d := b.Duration()
			log.Warn("接受连接失败", "error", err, "retryIn", d)
			select {
			case <-time.After(d):
				continue
			case <-l.ctx.Done():
				return
			}
		}
		b.Reset()

		setSocketOptions(raw)
		l.wg.Add(1)
		go l.handshake(raw)
	}
}

func (l *Listener) handshake(raw net.Conn) {
	defer l.wg.Done()

	ctx := l.ctx
	if d := l.tr.cfg.HandshakeTimeout; d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.Duration())
		defer cancel()
	}

	c, err := l.tr.upgrader.Upgrade(ctx, raw, types.DirInbound, "")
	if err != nil {
		log.Debug("入站握手失败", "remoteAddr", raw.RemoteAddr(), "error", err)
		return
	}

	select {
	case l.conns <- c:
	case <-l.ctx.Done():
		_ = c.Close()
	}
}

// Accept 返回下一条完成握手的入站连接
func (l *Listener) Accept(ctx context.Context) (interfaces.Conn, error) {
	select {
	case c := <-l.conns:
		return c, nil
	case <-l.ctx.Done():
		return nil, types.ErrTransportClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Addr 返回实际监听地址
func (l *Listener) Addr() net.Addr {
	return l.ln.Addr()
}

// Close 停止监听，等待握手协程退出并关闭未取走的连接
func (l *Listener) Close() error {
	l.closeOnce.Do(func() {
		l.cancel()
		l.closeErr = l.ln.Close()
		l.wg.Wait()

		for {
			select {
			case c := <-l.conns:
				_ = c.Close()
				continue
			default:
			}
			break
		}
		l.tr.removeListener(l)
	})
	return l.closeErr
}
