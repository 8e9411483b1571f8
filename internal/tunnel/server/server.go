package server

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"

	"go.uber.org/multierr"
	"golang.org/x/time/rate"

	"github.com/dep2p/go-kadugu/config"
	"github.com/dep2p/go-kadugu/internal/core/acl"
	"github.com/dep2p/go-kadugu/internal/core/identity"
	"github.com/dep2p/go-kadugu/internal/core/metrics"
	"github.com/dep2p/go-kadugu/internal/core/relay"
	"github.com/dep2p/go-kadugu/internal/util/logger"
	"github.com/dep2p/go-kadugu/pkg/interfaces"
)

var log = logger.Logger("tunnel/server")

// ErrServerStarted 重复启动
var ErrServerStarted = errors.New("server: already started")

// Server 共享端
type Server struct {
	cfg        config.SharerConfig
	listenAddr string

	id      *identity.Identity
	tr      interfaces.Transport
	acl     *acl.List
	relay   *relay.Engine
	metrics *metrics.Metrics
	dialer  net.Dialer

	mu      sync.Mutex
	ln      interfaces.Listener
	conns   map[interfaces.Conn]struct{}
	stopped bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	streams atomic.Int64
}

// New 创建共享端，m 可以为 nil
func New(cfg *config.Config, id *identity.Identity, tr interfaces.Transport, list *acl.List, engine *relay.Engine, m *metrics.Metrics) *Server {
	if list == nil {
		list = acl.AllowAll()
	}
	return &Server{
		cfg:        cfg.Sharer,
		listenAddr: cfg.Transport.ListenAddr,
		id:         id,
		tr:         tr,
		acl:        list,
		relay:      engine,
		metrics:    m,
		dialer:     net.Dialer{KeepAlive: cfg.Transport.KeepAlive.Duration()},
		conns:      make(map[interfaces.Conn]struct{}),
	}
}

// Start 绑定监听地址并在后台服务
//
// 绑定失败直接返回。ctx 取消与 Stop 都会结束服务。
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ln != nil || s.stopped {
		return ErrServerStarted
	}

	ln, err := s.tr.Listen(s.listenAddr)
	if err != nil {
		return err
	}
	s.ln = ln
	s.ctx, s.cancel = context.WithCancel(ctx)

	log.Info("共享端已启动",
		"peerID", s.id.PeerID(),
		"transport", s.tr.Protocol(),
		"addr", ln.Addr().String())
	s.logACL()

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

func (s *Server) logACL() {
	if s.acl.Len() == 0 {
		log.Info("shared with anonymous users")
		return
	}
	ids := make([]string, 0, s.acl.Len())
	for _, id := range s.acl.IDs() {
		ids = append(ids, id.String())
	}
	log.Info("shared with peers", "peers", ids)
}

// Addr 返回实际监听地址，未启动时为 nil
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// ActiveConns 返回已接受的存活连接数
func (s *Server) ActiveConns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// ActiveStreams 返回处理中的流数
func (s *Server) ActiveStreams() int {
	return int(s.streams.Load())
}

// Stop 关闭监听器与所有连接，并等待全部 goroutine 退出
func (s *Server) Stop() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	ln := s.ln
	conns := make([]interfaces.Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	if ln == nil {
		return nil
	}

	s.cancel()
	err := ln.Close()
	for _, c := range conns {
		err = multierr.Append(err, c.Close())
	}
	s.wg.Wait()

	log.Info("共享端已停止")
	return err
}

// ============================================================================
//                              连接处理
// ============================================================================

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		// 传输层监听器自行处理临时错误，返回错误即表示已关闭
		c, err := s.ln.Accept(s.ctx)
		if err != nil {
			if s.ctx.Err() == nil {
				log.Warn("监听器已关闭", "error", err)
			}
			return
		}

		s.wg.Add(1)
		go s.handleConn(c)
	}
}

// handleConn 身份校验、ACL 检查，然后接受流
func (s *Server) handleConn(c interfaces.Conn) {
	defer s.wg.Done()

	claimed := c.ClaimedPeer()
	label := logger.TruncateID(claimed.String(), 8)

	if err := identity.VerifyHandshake(claimed, c.RemotePublicKey()); err != nil {
		log.Warn("对端身份与声明不符",
			"event", "identity_mismatch",
			"conn", c.ID(),
			"remoteAddr", c.RemoteAddr().String(),
			"error", err)
		s.metrics.ConnRefused(metrics.ConnMismatch)
		_ = c.Close()
		return
	}

	if err := s.acl.InterceptSecured(claimed); err != nil {
		log.Info("拒绝未授权节点", "peer", claimed, "remoteAddr", c.RemoteAddr().String())
		s.metrics.ConnRefused(metrics.ConnRejected)
		_ = c.Close()
		return
	}

	if !s.trackConn(c) {
		_ = c.Close()
		return
	}
	defer s.untrackConn(c)

	s.metrics.ConnOpened()
	defer s.metrics.ConnClosed()
	log.Info("节点已连接", "peer", label, "conn", c.ID(), "remoteAddr", c.RemoteAddr().String())

	var limiter *rate.Limiter
	if s.cfg.StreamsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(s.cfg.StreamsPerSecond), s.cfg.StreamBurst)
	}

	for {
		st, err := c.AcceptStream(s.ctx)
		if err != nil {
			break
		}
		s.wg.Add(1)
		go s.handleStream(st, limiter)
	}

	_ = c.Close()
	log.Info("节点已断开", "peer", label, "conn", c.ID())
}

func (s *Server) trackConn(c interfaces.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	s.conns[c] = struct{}{}
	return true
}

func (s *Server) untrackConn(c interfaces.Conn) {
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
}
