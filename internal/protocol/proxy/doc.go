// Package proxy 实现代理流协议 /kadugu/proxy/0.0.1
//
// 每条流对应一个被代理的 TCP 连接：
//
//	发起方                               响应方
//	  | -- uvarint(len) || "host:port" --> |
//	  |                                    | 拨号目标
//	  | <-- status || uvarint(len) || reason |
//	  | <========== 原始负载 ============> |
//
// 描述符长度 1..MaxDescriptorLen，IPv6 主机需加方括号。
// 响应方逐字节读取描述符，不会越界读入负载。
//
// 状态码：
//
//	0 OK  1 DialFailed  2 BadDescriptor  3 ResourceLimit
//
// 非 OK 状态以 *StatusError 返回给发起方，DialFailed 包装
// types.ErrDialFailure，其余包装 types.ErrRefused。
package proxy
