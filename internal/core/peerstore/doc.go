// Package peerstore 实现静态地址簿
//
// kadugu 不做节点发现：对端地址来自配置文件的 peers 表
// 以及用户端的 -addr 参数，启动后只读。
//
// # 使用示例
//
//	book, err := peerstore.New(map[string]string{
//	    "12D3KooW...": "203.0.113.7:12007",
//	})
//
//	addr, err := book.Resolve(sharerID)
//	if errors.Is(err, types.ErrNoAddress) {
//	    // 未配置地址
//	}
package peerstore
