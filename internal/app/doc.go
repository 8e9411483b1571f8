// Package app 组装 kadugu 的 fx 模块并管理生命周期
//
// 模块按层次组装：
//
//	Core:   identity → transport → metrics → relay
//	Sharer: acl → tunnel/server
//	User:   peerstore → tunnel/client
//
// Bootstrap 负责日志设置、fx 应用的构建与启停；Run 在其上等待退出信号。
package app
