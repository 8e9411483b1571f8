package protocolids

import (
	"fmt"
	"strings"
)

// ============================================================================
// 协议 ID
// ============================================================================

// Prefix 所有 kadugu 协议的前缀
const Prefix = "/kadugu/"

// Proxy 代理流协议
const Proxy = "/kadugu/proxy/0.0.1"

// ============================================================================
// 代理字符串
// ============================================================================

// Version 程序版本，构建时注入
var Version = "0.1.0"

// Agent 返回本节点的代理字符串
func Agent() string {
	return "kadugu/" + Version
}

// Validate 检查协议 ID 格式
func Validate(id string) error {
	if !strings.HasPrefix(id, Prefix) {
		return fmt.Errorf("protocol %q: missing prefix %s", id, Prefix)
	}
	parts := strings.Split(strings.TrimPrefix(id, Prefix), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return fmt.Errorf("protocol %q: want %s<name>/<version>", id, Prefix)
	}
	return nil
}
