package quic

import "errors"

var (
	// ErrNoCertificate 对端未提供证书
	ErrNoCertificate = errors.New("quic: peer presented no certificate")

	// ErrBadCertificate 证书无法解析或不自洽
	ErrBadCertificate = errors.New("quic: invalid peer certificate")
)

// 应用层错误码
const (
	// closeCodeNormal 正常关闭
	closeCodeNormal = 0

	// resetCode 流重置
	resetCode = 0x52
)
