package identity

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-kadugu/config"
)

// ============================================================================
//                              模块输入依赖
// ============================================================================

// ModuleInput 定义模块输入依赖
type ModuleInput struct {
	fx.In

	Config *config.Config

	// Store 可选的密钥存储（测试时注入 MemoryKeyStore）
	Store KeyStore `optional:"true"`
}

// ============================================================================
//                              模块输出服务
// ============================================================================

// ModuleOutput 定义模块输出服务
type ModuleOutput struct {
	fx.Out

	Identity *Identity
}

// ProvideIdentity 加载或生成节点身份
//
// 未注入 KeyStore 时使用配置中的密钥文件。
func ProvideIdentity(input ModuleInput) (ModuleOutput, error) {
	store := input.Store
	if store == nil {
		store = NewFileKeyStore(input.Config.Identity.KeyFile)
	}

	id, err := GenerateOrLoad(store)
	if err != nil {
		return ModuleOutput{}, err
	}
	return ModuleOutput{Identity: id}, nil
}

// Module 返回 fx 模块配置
func Module() fx.Option {
	return fx.Module("identity",
		fx.Provide(ProvideIdentity),
	)
}
