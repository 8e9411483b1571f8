package client

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-kadugu/config"
	"github.com/dep2p/go-kadugu/internal/core/identity"
	"github.com/dep2p/go-kadugu/internal/core/metrics"
	"github.com/dep2p/go-kadugu/internal/core/peerstore"
	"github.com/dep2p/go-kadugu/internal/core/relay"
	"github.com/dep2p/go-kadugu/pkg/interfaces"
)

// ModuleInput 定义模块输入依赖
type ModuleInput struct {
	fx.In

	Config    *config.Config
	Identity  *identity.Identity
	Transport interfaces.Transport
	AddrBook  *peerstore.AddrBook
	Relay     *relay.Engine
	Metrics   *metrics.Metrics `optional:"true"`
}

// ProvideClient 创建使用端
func ProvideClient(input ModuleInput) (*Client, error) {
	return New(input.Config, input.Identity, input.Transport, input.AddrBook, input.Relay, input.Metrics)
}

// Module 返回 fx 模块配置
func Module() fx.Option {
	return fx.Module("tunnel/client",
		fx.Provide(ProvideClient),
		fx.Invoke(registerLifecycle),
	)
}

func registerLifecycle(lc fx.Lifecycle, c *Client) {
	lc.Append(fx.Hook{
		OnStart: c.Start,
		OnStop: func(context.Context) error {
			return c.Stop()
		},
	})
}
