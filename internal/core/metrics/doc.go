// Package metrics 提供 Prometheus 指标与 /metrics 导出
//
// 指标注册在独立的 Registry 上，不污染全局默认注册表：
//
//	kadugu_connections_active          当前对端连接数
//	kadugu_connections_total{result}   连接结果（accepted/rejected/mismatch/failed）
//	kadugu_streams_active              当前代理流数
//	kadugu_streams_total{status}       流结果（ok/dial_failed/bad_descriptor/resource_limit/unreachable/error）
//	kadugu_relays_active               当前中继对数
//	kadugu_relay_bytes_total{direction} 中继字节数（up/down）
//	kadugu_target_dial_seconds         共享侧拨号目标耗时
//
// 所有记录方法对 nil *Metrics 安全，未启用指标时直接传 nil。
//
// # 使用示例
//
//	m := metrics.New()
//	m.StreamOpened()
//	defer m.StreamClosed("ok")
//
//	srv := metrics.NewServer(":9090", m)
//	err := srv.Start()
package metrics
