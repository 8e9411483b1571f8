package transport

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	"github.com/dep2p/go-kadugu/config"
	"github.com/dep2p/go-kadugu/internal/core/identity"
	"github.com/dep2p/go-kadugu/internal/core/transport/quic"
	"github.com/dep2p/go-kadugu/internal/core/transport/tcp"
	"github.com/dep2p/go-kadugu/internal/util/logger"
	"github.com/dep2p/go-kadugu/pkg/interfaces"
)

var log = logger.Logger("core/transport")

// New 根据 cfg.Protocol 创建安全通道
func New(id *identity.Identity, cfg config.TransportConfig) (interfaces.Transport, error) {
	switch cfg.Protocol {
	case config.ProtocolQUIC, "":
		return quic.New(id, cfg)
	case config.ProtocolTCP:
		return tcp.New(id, cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProtocol, cfg.Protocol)
	}
}

// ============================================================================
//                              Fx 模块
// ============================================================================

// ModuleInput 定义模块输入依赖
type ModuleInput struct {
	fx.In

	Config   *config.Config
	Identity *identity.Identity
}

// ModuleOutput 定义模块输出服务
type ModuleOutput struct {
	fx.Out

	Transport interfaces.Transport
}

// ProvideTransport 提供配置选定的安全通道
func ProvideTransport(input ModuleInput) (ModuleOutput, error) {
	tr, err := New(input.Identity, input.Config.Transport)
	if err != nil {
		return ModuleOutput{}, err
	}
	log.Debug("安全通道已创建", "protocol", tr.Protocol())
	return ModuleOutput{Transport: tr}, nil
}

// Module 返回 fx 模块配置
func Module() fx.Option {
	return fx.Module("transport",
		fx.Provide(ProvideTransport),
		fx.Invoke(registerLifecycle),
	)
}

// registerLifecycle 停止时关闭传输
func registerLifecycle(lc fx.Lifecycle, tr interfaces.Transport) {
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return tr.Close()
		},
	})
}
