// Package upgrader 将原始 TCP 连接升级为安全、多路复用的对端连接
//
// # 升级流程
//
//  1. 安全协议协商（multistream-select）：/noise
//  2. Noise XX 握手，得到对端身份公钥与声明的 PeerID
//  3. 多路复用器协商（multistream-select）：/yamux/1.0.0
//  4. 创建 yamux 会话
//
// 升级后的每条流在使用前还要协商一次应用协议 /kadugu/proxy/0.0.1。
//
// 升级不做 PeerID 一致性校验，调用方必须显式调用 identity.VerifyHandshake。
//
// # 使用示例
//
//	u, err := upgrader.New(upgrader.Config{
//	    Security: noiseTransport,
//	    Muxer:    muxer.NewTransport(cfg.Transport),
//	    Protocol: "/kadugu/proxy/0.0.1",
//	})
//
//	conn, err := u.Upgrade(ctx, rawConn, types.DirOutbound, sharerID)
package upgrader
