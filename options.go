package kadugu

import (
	"errors"
	"time"

	"github.com/dep2p/go-kadugu/config"
	"github.com/dep2p/go-kadugu/internal/core/identity"
)

// Option 节点配置选项
type Option func(*options) error

type options struct {
	cfg          *config.Config
	store        identity.KeyStore
	startTimeout time.Duration
	stopTimeout  time.Duration
}

func newOptions() *options {
	return &options{cfg: config.NewConfig()}
}

// ============================================================================
//                              通用选项
// ============================================================================

// WithConfig 以给定配置为基础，后续选项在其上修改
//
// 配置会被复制，调用方随后的修改不影响节点。
func WithConfig(cfg *config.Config) Option {
	return func(o *options) error {
		if cfg == nil {
			return errors.New("config is nil")
		}
		c := *cfg
		c.Sharer.AllowedPeers = append([]string(nil), cfg.Sharer.AllowedPeers...)
		c.Peers = make(map[string]string, len(cfg.Peers))
		for k, v := range cfg.Peers {
			c.Peers[k] = v
		}
		o.cfg = &c
		return nil
	}
}

// WithProtocol 设置安全通道协议（"quic" 或 "tcp"）
func WithProtocol(proto string) Option {
	return func(o *options) error {
		o.cfg.Transport.Protocol = proto
		return nil
	}
}

// WithKeyFile 指定私钥文件，不存在时生成
func WithKeyFile(path string) Option {
	return func(o *options) error {
		o.cfg.Identity = o.cfg.Identity.WithKeyFile(path)
		return nil
	}
}

// WithEphemeralIdentity 使用仅存于内存的新身份
func WithEphemeralIdentity() Option {
	return func(o *options) error {
		o.store = identity.NewMemoryKeyStore()
		return nil
	}
}

// WithKeyStore 使用自定义密钥存储
func WithKeyStore(store identity.KeyStore) Option {
	return func(o *options) error {
		if store == nil {
			return errors.New("key store is nil")
		}
		o.store = store
		return nil
	}
}

// WithDialTimeout 设置拨号与握手超时
func WithDialTimeout(d time.Duration) Option {
	return func(o *options) error {
		o.cfg.Transport.DialTimeout = config.Duration(d)
		return nil
	}
}

// WithMetricsAddr 在给定地址导出 Prometheus 指标
func WithMetricsAddr(addr string) Option {
	return func(o *options) error {
		o.cfg.Metrics.ListenAddr = addr
		return nil
	}
}

// WithLogLevel 设置日志级别
func WithLogLevel(level string) Option {
	return func(o *options) error {
		o.cfg.Log.Level = level
		return nil
	}
}

// WithTimeouts 设置节点启动与停止超时
func WithTimeouts(start, stop time.Duration) Option {
	return func(o *options) error {
		o.startTimeout = start
		o.stopTimeout = stop
		return nil
	}
}

// ============================================================================
//                              共享端选项
// ============================================================================

// WithListenAddr 设置共享端监听地址
func WithListenAddr(addr string) Option {
	return func(o *options) error {
		o.cfg.Transport.ListenAddr = addr
		return nil
	}
}

// WithAllowedPeers 限定可使用出口的节点，不设置时对所有节点开放
func WithAllowedPeers(ids ...string) Option {
	return func(o *options) error {
		o.cfg.Sharer.AllowedPeers = append(o.cfg.Sharer.AllowedPeers, ids...)
		return nil
	}
}

// WithStreamRate 限制单连接每秒新建的流数
func WithStreamRate(perSecond float64, burst int) Option {
	return func(o *options) error {
		o.cfg.Sharer.StreamsPerSecond = perSecond
		o.cfg.Sharer.StreamBurst = burst
		return nil
	}
}

// ============================================================================
//                              使用端选项
// ============================================================================

// WithSharerAddr 设置共享端地址
func WithSharerAddr(addr string) Option {
	return func(o *options) error {
		o.cfg.User.SharerAddr = addr
		return nil
	}
}

// WithProxyAddr 设置本地 HTTP 代理监听地址
func WithProxyAddr(addr string) Option {
	return func(o *options) error {
		o.cfg.User.ProxyAddr = addr
		return nil
	}
}

// WithExposeLAN 将本地代理暴露给局域网
func WithExposeLAN() Option {
	return func(o *options) error {
		o.cfg.User.ExposeLAN = true
		return nil
	}
}

// WithPeerAddr 向静态地址簿添加一条记录
func WithPeerAddr(id, addr string) Option {
	return func(o *options) error {
		o.cfg.Peers[id] = addr
		return nil
	}
}
