// Package transport 按配置选择安全通道实现
//
// 支持两种传输，双方必须一致：
//
//   - quic（默认）：QUIC + TLS 1.3，见子包 quic
//   - tcp：TCP + Noise XX + yamux，见子包 tcp
//
// 隧道引擎只依赖 interfaces.Transport，不感知具体实现。
package transport
