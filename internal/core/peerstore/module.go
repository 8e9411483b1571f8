package peerstore

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-kadugu/config"
	"github.com/dep2p/go-kadugu/pkg/types"
)

// ModuleInput 定义模块输入依赖
type ModuleInput struct {
	fx.In

	Config *config.Config
}

// ProvideAddrBook 由 peers 表与用户端 sharer 地址构建地址簿
func ProvideAddrBook(input ModuleInput) (*AddrBook, error) {
	cfg := input.Config
	b, err := New(cfg.Peers)
	if err != nil {
		return nil, err
	}

	if cfg.User.SharerPeer != "" && cfg.User.SharerAddr != "" {
		id, err := types.ParsePeerID(cfg.User.SharerPeer)
		if err != nil {
			return nil, err
		}
		if err := b.AddAddrs(id, cfg.User.SharerAddr); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// Module 返回 fx 模块配置
func Module() fx.Option {
	return fx.Module("peerstore",
		fx.Provide(ProvideAddrBook),
	)
}
