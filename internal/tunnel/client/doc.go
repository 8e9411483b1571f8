// Package client 实现使用端（user）
//
// Client 与共享端保持一条 PeerConnection，本地 HTTP 代理的每个连接
// 映射为其上的一条代理流：
//
//   - CONNECT host:port：打开流后回复 200，然后原样中继
//   - 绝对形式请求（GET http://host/...）：改写为源站形式并强制
//     Connection: close，写入流后中继
//
// 连接断开后，下一个请求会重新拨号并重新校验身份。
package client
