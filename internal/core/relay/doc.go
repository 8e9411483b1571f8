// Package relay 实现双向字节转发（splice）
//
// Engine 把两个 Endpoint 接在一起：两个方向各一个复制循环，
// 由 errgroup 汇合。
//
//	本地 socket  <──>  Stream   （用户侧）
//	Stream       <──>  目标 socket（共享侧）
//
// 结束语义：
//   - 一个方向读到 EOF：对目标端 CloseWrite（半关闭），另一方向继续
//   - 两个方向都结束：两端 Close
//   - 任一方向出错、ctx 取消或半关闭超时：两端 Reset
package relay
