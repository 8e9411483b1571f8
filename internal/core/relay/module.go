package relay

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-kadugu/config"
	"github.com/dep2p/go-kadugu/internal/core/metrics"
)

// ModuleInput 定义模块输入依赖
type ModuleInput struct {
	fx.In

	Config  *config.Config
	Metrics *metrics.Metrics `optional:"true"`
}

// ProvideEngine 创建中继引擎
func ProvideEngine(input ModuleInput) *Engine {
	return NewEngine(input.Config.Relay, input.Metrics)
}

// Module 返回 fx 模块配置
func Module() fx.Option {
	return fx.Module("relay",
		fx.Provide(ProvideEngine),
	)
}
