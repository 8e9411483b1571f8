// Package server 实现共享端（sharer）
//
// 连接状态：
//
//	LISTENING → HANDSHAKING → {REJECTED | ACCEPTED}
//	                        → MISMATCH
//
// 流状态：
//
//	STREAM_OPEN → DIALING_TARGET → {DIAL_FAILED | RELAYING} → CLOSED
//
// 每个连接一个 goroutine，每条流一个 goroutine；失败只影响所在的连接或流。
package server
