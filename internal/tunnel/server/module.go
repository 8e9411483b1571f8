package server

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-kadugu/config"
	"github.com/dep2p/go-kadugu/internal/core/acl"
	"github.com/dep2p/go-kadugu/internal/core/identity"
	"github.com/dep2p/go-kadugu/internal/core/metrics"
	"github.com/dep2p/go-kadugu/internal/core/relay"
	"github.com/dep2p/go-kadugu/pkg/interfaces"
)

// ModuleInput 定义模块输入依赖
type ModuleInput struct {
	fx.In

	Config    *config.Config
	Identity  *identity.Identity
	Transport interfaces.Transport
	ACL       *acl.List
	Relay     *relay.Engine
	Metrics   *metrics.Metrics `optional:"true"`
}

// ProvideServer 创建共享端
func ProvideServer(input ModuleInput) *Server {
	return New(input.Config, input.Identity, input.Transport, input.ACL, input.Relay, input.Metrics)
}

// Module 返回 fx 模块配置
//
// 启动时绑定监听地址，停止时关闭所有连接。
func Module() fx.Option {
	return fx.Module("tunnel/server",
		fx.Provide(ProvideServer),
		fx.Invoke(registerLifecycle),
	)
}

func registerLifecycle(lc fx.Lifecycle, s *Server) {
	lc.Append(fx.Hook{
		// OnStart 的 ctx 在启动完成后即失效，服务期使用独立的 ctx
		OnStart: func(ctx context.Context) error {
			return s.Start(context.WithoutCancel(ctx))
		},
		OnStop: func(context.Context) error {
			return s.Stop()
		},
	})
}
