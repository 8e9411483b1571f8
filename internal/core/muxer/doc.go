// Package muxer 实现 TCP 安全通道上的流多路复用
//
// 基于 yamux 协议，在一条 Noise 加密连接上承载多条双向流：
//   - 每个代理连接对应一条流
//   - 流支持半关闭（CloseWrite）与重置（Reset）
//   - 心跳保活间隔与传输配置的 KeepAlive 一致
//
// # 快速开始
//
//	t := muxer.NewTransport(cfg.Transport)
//
//	// 服务端
//	mc, _ := t.NewConn(secConn, true)
//	s, _ := mc.AcceptStream()
//
//	// 客户端
//	mc, _ := t.NewConn(secConn, false)
//	s, _ := mc.OpenStream(ctx)
//
// # 流登记表
//
// StreamRegistry 记录一个连接上所有存活的流，连接关闭时统一 Reset。
// QUIC 与 TCP 两种连接实现共用它。
package muxer
