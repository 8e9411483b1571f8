// Package protocolids 定义 kadugu 使用的协议 ID 与代理字符串。
//
// # 唯一真源
//
// 所有模块与测试需要协议 ID 时引用本包常量，不在其他位置写字面量。
//
// # 协议列表
//
//   - Proxy (/kadugu/proxy/0.0.1): 代理流协议。QUIC 上作为 ALPN，
//     TCP 上在 yamux 之后对每条流做 multistream 协商。
//
// # 版本
//
// Version 在构建时通过 -ldflags "-X" 注入，Agent 据此生成
// "kadugu/<version>"，携带在 Noise payload 与 QUIC 证书主题中。
package protocolids
