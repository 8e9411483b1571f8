package upgrader

import "errors"

var (
	// ErrNoSecurityTransport 没有安全传输
	ErrNoSecurityTransport = errors.New("upgrader: no security transport configured")

	// ErrNoStreamMuxer 没有流复用器
	ErrNoStreamMuxer = errors.New("upgrader: no stream muxer configured")

	// ErrNoProtocol 没有应用协议
	ErrNoProtocol = errors.New("upgrader: no application protocol configured")
)
