package server

import (
	"context"
	"errors"
	"net"
	"time"

	"golang.org/x/time/rate"

	"github.com/dep2p/go-kadugu/internal/core/metrics"
	"github.com/dep2p/go-kadugu/internal/core/relay"
	"github.com/dep2p/go-kadugu/internal/protocol/proxy"
	"github.com/dep2p/go-kadugu/pkg/interfaces"
	"github.com/dep2p/go-kadugu/pkg/types"
)

// handleStream 读取描述符、拨号目标、应答并中继
func (s *Server) handleStream(st interfaces.Stream, limiter *rate.Limiter) {
	defer s.wg.Done()

	s.streams.Add(1)
	defer s.streams.Add(-1)
	s.metrics.StreamOpened()
	status := metrics.StreamError
	defer func() { s.metrics.StreamClosed(status) }()

	ps, err := proxy.ReadRequest(st, s.cfg.StreamReadTimeout.Duration())
	if err != nil {
		if errors.Is(err, types.ErrInvalidDescriptor) {
			status = metrics.StreamBadDescriptor
		}
		log.Debug("读取描述符失败", "stream", st.ID(), "error", err)
		return
	}

	if limiter != nil && !limiter.Allow() {
		status = metrics.StreamResourceLimit
		_ = proxy.Reject(ps, proxy.StatusResourceLimit, "stream rate limit exceeded")
		return
	}

	target, err := s.dialTarget(ps.Target())
	if err != nil {
		status = metrics.StreamDialFailed
		log.Debug("拨号目标失败", "target", ps.Target(), "error", err)
		_ = proxy.Reject(ps, proxy.StatusDialFailed, err.Error())
		return
	}

	if err := ps.Reply(proxy.StatusOK, ""); err != nil {
		log.Debug("应答失败", "target", ps.Target(), "error", err)
		_ = target.Close()
		_ = ps.Reset()
		return
	}

	res, err := s.relay.Relay(s.ctx, relay.NewStreamEndpoint(ps), relay.NewConnEndpoint(target, nil))
	if err != nil {
		log.Debug("中继中断", "target", ps.Target(), "error", err)
		return
	}
	status = metrics.StreamOK
	log.Debug("中继完成", "target", ps.Target(), "up", res.AToB, "down", res.BToA)
}

// dialTarget 在 TargetDialTimeout 内连接目标
func (s *Server) dialTarget(target string) (net.Conn, error) {
	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.TargetDialTimeout.Duration())
	defer cancel()

	start := time.Now()
	c, err := s.dialer.DialContext(ctx, "tcp", target)
	s.metrics.ObserveDial(time.Since(start))
	if err != nil {
		return nil, err
	}
	if tc, ok := c.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
	}
	return c, nil
}
