// Package kadugu 提供点对点互联网共享隧道的嵌入入口
//
// 一个节点以两种模式之一运行：
//   - 共享端（Sharer）：监听安全通道，代授权节点连接任意 TCP 目标
//   - 使用端（User）：连接指定共享端，在本地提供 HTTP 代理
//
// 双方以公钥派生的 PeerID 互相识别，安全通道可选 QUIC 或 TCP+Noise+Yamux。
//
// # 快速开始
//
// 共享端：
//
//	node, err := kadugu.StartSharer(ctx,
//	    kadugu.WithListenAddr(":12007"),
//	    kadugu.WithKeyFile("kadugu.key"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer node.Close()
//	fmt.Println(node.ID())
//
// 使用端：
//
//	node, err := kadugu.StartUser(ctx, sharerID,
//	    kadugu.WithSharerAddr("203.0.113.7:12007"),
//	    kadugu.WithProxyAddr("127.0.0.1:8080"),
//	)
//
// 之后把浏览器或命令行工具的 HTTP 代理指向 node.ProxyAddr()。
package kadugu
