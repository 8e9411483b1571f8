package metrics

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-kadugu/config"
)

// ModuleInput 定义模块输入依赖
type ModuleInput struct {
	fx.In

	Config *config.Config
}

// ProvideMetrics 创建指标集合
//
// 未配置监听地址时仍然收集，只是不导出。
func ProvideMetrics() *Metrics {
	return New()
}

// Module 返回 fx 模块配置
func Module() fx.Option {
	return fx.Module("metrics",
		fx.Provide(ProvideMetrics),
		fx.Invoke(registerServer),
	)
}

// registerServer 启用时注册 /metrics 服务的生命周期
func registerServer(lc fx.Lifecycle, input ModuleInput, m *Metrics) {
	if !input.Config.Metrics.Enabled() {
		return
	}
	srv := NewServer(input.Config.Metrics.ListenAddr, m)
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error { return srv.Start() },
		OnStop:  srv.Stop,
	})
}
