// Package identity 实现 kadugu 的节点身份与身份校验
//
// # 核心功能
//
// 1. 密钥对管理：
//   - Ed25519 密钥生成
//   - protobuf 编码的密钥文件（与 libp2p PrivateKey 消息兼容）
//   - 可替换的 KeyStore（文件 / 内存）
//
// 2. PeerID 派生：
//   - PeerID = Base58(SHA256(protobuf 编码的公钥))
//   - 纯函数，同一公钥总是得到同一 PeerID
//
// 3. 握手后身份校验：
//   - VerifyHandshake 由安全通道协商出的公钥重新派生 PeerID，
//     与期望值比较，不一致时返回 *MismatchError
//
// # 快速开始
//
//	store := identity.NewFileKeyStore("identity.keypair")
//	id, err := identity.GenerateOrLoad(store)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(id.PeerID())
//
//	// 握手完成后
//	if err := identity.VerifyHandshake(expected, conn.RemotePublicKey()); err != nil {
//	    conn.Close()
//	}
package identity
