// Package tcp 实现 TCP 安全通道
//
// TCP 是 QUIC 的备选方案，用于 UDP 被阻断的网络。TCP 不提供
// 原生加密与多路复用，原始连接交给 upgrader 升级：
//
//  1. multistream 协商 /noise
//  2. Noise XX 握手（携带身份公钥、签名与声明的 PeerID）
//  3. multistream 协商 /yamux/1.0.0
//  4. yamux 会话，每条流再协商 /kadugu/proxy/0.0.1
//
// # 使用示例
//
//	tr, err := tcp.New(id, cfg.Transport)
//
//	// 监听
//	ln, err := tr.Listen(":12007")
//	conn, err := ln.Accept(ctx)
//
//	// 拨号
//	conn, err := tr.Dial(ctx, "1.2.3.4:12007", sharerID)
//
// 拨号与监听均不校验对端身份，调用方需对 RemotePublicKey
// 执行 identity.VerifyHandshake。
package tcp
