package app

import (
	"time"

	"github.com/dep2p/go-kadugu/internal/core/identity"
)

// Option Bootstrap 配置选项
type Option func(*Bootstrap)

// WithKeyStore 使用指定的密钥存储代替配置中的密钥文件
func WithKeyStore(store identity.KeyStore) Option {
	return func(b *Bootstrap) {
		b.store = store
	}
}

// WithStartTimeout 设置启动超时
func WithStartTimeout(d time.Duration) Option {
	return func(b *Bootstrap) {
		b.startTimeout = d
	}
}

// WithStopTimeout 设置停止超时
func WithStopTimeout(d time.Duration) Option {
	return func(b *Bootstrap) {
		b.stopTimeout = d
	}
}

// WithOnStarted 启动成功后回调，用于输出节点信息
func WithOnStarted(fn func(*Bootstrap)) Option {
	return func(b *Bootstrap) {
		b.onStarted = fn
	}
}
