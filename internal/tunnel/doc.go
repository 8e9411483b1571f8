// Package tunnel 组合隧道两端
//
// server 为共享端：监听安全通道，校验身份与 ACL，为每条代理流拨号目标并中继。
// client 为使用端：连接共享端，在本地提供 HTTP 代理，把每个本地连接映射为一条代理流。
//
//	浏览器 → client 代理监听 → Stream → 安全通道 → server → ACL → 目标 TCP → 互联网
package tunnel
