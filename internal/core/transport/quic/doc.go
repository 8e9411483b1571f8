// Package quic 实现 QUIC 安全通道（默认传输）
//
// QUIC 内置 TLS 1.3 与原生多路复用，无需 upgrader。
//
// # 身份绑定
//
// 每个节点使用身份 ed25519 私钥签发自签名证书：
//
//   - 证书公钥即身份公钥，对端据此重新计算 PeerID
//   - 扩展 1.3.6.1.4.1.53594.1.1 携带声明的 PeerID
//   - 证书主题 CommonName 携带代理字符串 kadugu/<version>
//
// TLS 层只校验证书自洽（自签名有效、在有效期内、公钥为 ed25519），
// 声明与公钥是否一致由调用方通过 identity.VerifyHandshake 判定，
// 以便服务端区分并记录身份冒用事件。
//
// ALPN 为 /kadugu/proxy/0.0.1，双方都必须提供证书。
//
// # 使用示例
//
//	tr, err := quic.New(id, cfg.Transport)
//
//	ln, err := tr.Listen(":12007")
//	conn, err := ln.Accept(ctx)
//
//	conn, err := tr.Dial(ctx, "1.2.3.4:12007", sharerID)
package quic
