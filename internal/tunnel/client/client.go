package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/jpillora/backoff"
	"go.uber.org/multierr"

	"github.com/dep2p/go-kadugu/config"
	"github.com/dep2p/go-kadugu/internal/core/identity"
	"github.com/dep2p/go-kadugu/internal/core/metrics"
	"github.com/dep2p/go-kadugu/internal/core/peerstore"
	"github.com/dep2p/go-kadugu/internal/core/relay"
	"github.com/dep2p/go-kadugu/internal/protocol/proxy"
	"github.com/dep2p/go-kadugu/internal/util/logger"
	"github.com/dep2p/go-kadugu/pkg/interfaces"
	"github.com/dep2p/go-kadugu/pkg/types"
)

var log = logger.Logger("tunnel/client")

// 本地 Accept 出错时的退避范围
const (
	acceptRetryMin = 50 * time.Millisecond
	acceptRetryMax = time.Second
)

// ErrClientStopped 使用端已停止
var ErrClientStopped = errors.New("client: stopped")

// Client 使用端
type Client struct {
	cfg         config.UserConfig
	dialTimeout config.Duration
	sharer      types.PeerID

	id      *identity.Identity
	tr      interfaces.Transport
	book    *peerstore.AddrBook
	relay   *relay.Engine
	metrics *metrics.Metrics

	// connMu 串行化拨号，保护 conn
	connMu sync.Mutex
	conn   interfaces.Conn

	mu      sync.Mutex
	ln      net.Listener
	locals  map[net.Conn]struct{}
	stopped bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New 创建使用端，m 可以为 nil
func New(cfg *config.Config, id *identity.Identity, tr interfaces.Transport, book *peerstore.AddrBook, engine *relay.Engine, m *metrics.Metrics) (*Client, error) {
	sharer, err := types.ParsePeerID(cfg.User.SharerPeer)
	if err != nil {
		return nil, fmt.Errorf("client: sharer peer: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		cfg:         cfg.User,
		dialTimeout: cfg.Transport.DialTimeout,
		sharer:      sharer,
		id:          id,
		tr:          tr,
		book:        book,
		relay:       engine,
		metrics:     m,
		locals:      make(map[net.Conn]struct{}),
		ctx:         ctx,
		cancel:      cancel,
	}, nil
}

// Sharer 返回共享端 PeerID
func (c *Client) Sharer() types.PeerID { return c.sharer }

// ============================================================================
//                              PeerConnection
// ============================================================================

// Connect 拨号共享端并校验身份
//
// 拨号或握手失败返回包装 types.ErrPeerUnreachable 的错误；
// 身份不符返回 *identity.MismatchError，连接已关闭，不会打开任何流。
func (c *Client) Connect(ctx context.Context) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	_, err := c.connectLocked(ctx)
	return err
}

func (c *Client) connectLocked(ctx context.Context) (interfaces.Conn, error) {
	if c.ctx.Err() != nil {
		return nil, ErrClientStopped
	}

	addr, err := c.book.Resolve(c.sharer)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrPeerUnreachable, err)
	}

	dctx, cancel := context.WithTimeout(ctx, c.dialTimeout.Duration())
	defer cancel()

	conn, err := c.tr.Dial(dctx, addr, c.sharer)
	if err != nil {
		c.metrics.ConnRefused(metrics.ConnFailed)
		return nil, fmt.Errorf("%w: %s: %w", types.ErrPeerUnreachable, addr, err)
	}

	if err := identity.VerifyHandshake(c.sharer, conn.RemotePublicKey()); err != nil {
		log.Warn("共享端身份与期望不符",
			"event", "identity_mismatch",
			"addr", addr,
			"error", err)
		c.metrics.ConnRefused(metrics.ConnMismatch)
		_ = conn.Close()
		return nil, err
	}

	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.conn = conn
	c.metrics.ConnOpened()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		<-conn.Done()
		c.metrics.ConnClosed()
		log.Info("与共享端的连接已断开", "conn", conn.ID())
	}()

	log.Info("已连接共享端",
		"peer", logger.TruncateID(c.sharer.String(), 8),
		"addr", addr,
		"transport", c.tr.Protocol(),
		"conn", conn.ID())
	return conn, nil
}

// peerConn 返回存活连接，已断开时重新拨号
func (c *Client) peerConn(ctx context.Context) (interfaces.Conn, error) {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn != nil && !connClosed(c.conn) {
		return c.conn, nil
	}
	return c.connectLocked(ctx)
}

// Open 经共享端打开一条到 target 的代理流
//
// 流级错误只影响本条流；连接已断开时重拨一次。
func (c *Client) Open(ctx context.Context, target string) (*proxy.Stream, error) {
	conn, err := c.peerConn(ctx)
	if err != nil {
		return nil, err
	}

	s, err := proxy.Open(ctx, conn, target)
	if err == nil || ctx.Err() != nil || !connClosed(conn) {
		return s, err
	}

	log.Debug("连接已断开，重新拨号", "conn", conn.ID(), "error", err)
	if conn, err = c.peerConn(ctx); err != nil {
		return nil, err
	}
	return proxy.Open(ctx, conn, target)
}

// connClosed 连接是否已结束
func connClosed(conn interfaces.Conn) bool {
	select {
	case <-conn.Done():
		return true
	default:
		return false
	}
}

// ============================================================================
//                              生命周期
// ============================================================================

// Start 连接共享端并绑定本地代理监听
func (c *Client) Start(ctx context.Context) error {
	if err := c.Connect(ctx); err != nil {
		return err
	}

	addr := c.cfg.EffectiveProxyAddr()
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("proxy listen %s: %w", addr, err)
	}

	c.mu.Lock()
	if c.stopped || c.ln != nil {
		c.mu.Unlock()
		_ = ln.Close()
		return ErrClientStopped
	}
	c.ln = ln
	c.mu.Unlock()

	log.Info("本地代理已启动", "addr", ln.Addr().String(), "peerID", c.id.PeerID())

	c.wg.Add(1)
	go c.acceptLoop(ln)
	return nil
}

// Addr 返回代理监听地址，未启动时为 nil
func (c *Client) Addr() net.Addr {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ln == nil {
		return nil
	}
	return c.ln.Addr()
}

// Stop 关闭监听、本地连接与 PeerConnection，并等待 goroutine 退出
func (c *Client) Stop() error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return nil
	}
	c.stopped = true
	ln := c.ln
	locals := make([]net.Conn, 0, len(c.locals))
	for lc := range c.locals {
		locals = append(locals, lc)
	}
	c.mu.Unlock()

	c.cancel()

	var err error
	if ln != nil {
		err = ln.Close()
	}
	for _, lc := range locals {
		_ = lc.Close()
	}

	c.connMu.Lock()
	if c.conn != nil {
		err = multierr.Append(err, c.conn.Close())
	}
	c.connMu.Unlock()

	c.wg.Wait()
	return err
}

func (c *Client) acceptLoop(ln net.Listener) {
	defer c.wg.Done()

	b := &backoff.Backoff{Min: acceptRetryMin, Max: acceptRetryMax}
	for {
		lc, err := ln.Accept()
		if err != nil {
			if c.ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			d := b.Duration()
			log.Debug("接受本地连接失败", "error", err, "retry", d)
			select {
			case <-time.After(d):
			case <-c.ctx.Done():
				return
			}
			continue
		}
		b.Reset()

		if !c.trackLocal(lc) {
			_ = lc.Close()
			return
		}
		c.wg.Add(1)
		go c.handleLocal(lc)
	}
}

func (c *Client) trackLocal(lc net.Conn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return false
	}
	c.locals[lc] = struct{}{}
	return true
}

func (c *Client) untrackLocal(lc net.Conn) {
	c.mu.Lock()
	delete(c.locals, lc)
	c.mu.Unlock()
}
