package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
)

// validateHostPort 校验 host:port 形式的地址
//
// host 可以为空（表示监听所有地址），端口必须在 0..65535 内。
func validateHostPort(addr string) error {
	if addr == "" {
		return errors.New("address must not be empty")
	}
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid address %q: %w", addr, err)
	}
	p, err := strconv.Atoi(port)
	if err != nil || p < 0 || p > 65535 {
		return fmt.Errorf("invalid port in %q", addr)
	}
	return nil
}
