// Package noise 实现 TCP 通道的 Noise 安全握手
//
// 使用 Noise_XX_25519_ChaChaPoly_SHA256 模式：
//   - XX: 三轮握手，双方相互认证
//   - 25519: Curve25519 用于 DH 密钥交换（静态密钥由 Ed25519 身份密钥转换而来）
//   - ChaChaPoly: ChaCha20-Poly1305 用于对称加密
//   - SHA256: 用于 HKDF 密钥派生
//
// # 握手流程
//
//	-> e                              (发起者发送临时公钥)
//	<- e, ee, s, es, payload          (响应者发送临时公钥、静态公钥、payload)
//	-> s, se, payload                 (发起者发送静态公钥、payload)
//
// payload 为 protobuf 编码：
//   - identity_key: Ed25519 身份公钥（PublicKey 消息）
//   - identity_sig: Sign("noise-libp2p-static-key:" + curve25519_static_pubkey)
//   - peer_id: 发送方声明的 PeerID
//   - agent: 发送方代理字符串
//
// 签名把 Noise 静态公钥绑定到身份公钥，签名无效即握手失败。
// peer_id 仅是声明，是否与身份公钥一致由上层 identity.VerifyHandshake 显式校验。
//
// # 帧格式
//
// 握手消息与传输消息均为 2 字节大端长度前缀 + 数据，
// 单帧不超过 65535 字节，较大的写入被拆成多帧。
//
// # 使用示例
//
//	t := noise.New(id, "kadugu/0.1.0")
//
//	// 作为客户端
//	sc, err := t.SecureOutbound(ctx, conn, sharerID)
//
//	// 作为服务器
//	sc, err := t.SecureInbound(ctx, conn)
package noise
