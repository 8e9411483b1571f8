// Package types 定义 kadugu 的基础类型
//
// 这是整个系统的最底层包，不依赖任何其他 kadugu 内部包。
// 所有类型都是纯值类型，用于在各模块间传递数据。
//
// # 文件组织
//
//   - peerid.go  - PeerID 节点标识（Base58 文本形式）
//   - enums.go   - Direction、Role 等枚举
//   - errors.go  - 公共错误分类（身份、握手、ACL、拨号、传输）
package types
