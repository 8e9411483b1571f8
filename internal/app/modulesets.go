package app

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-kadugu/internal/core/acl"
	"github.com/dep2p/go-kadugu/internal/core/identity"
	"github.com/dep2p/go-kadugu/internal/core/metrics"
	"github.com/dep2p/go-kadugu/internal/core/peerstore"
	"github.com/dep2p/go-kadugu/internal/core/relay"
	"github.com/dep2p/go-kadugu/internal/core/transport"
	"github.com/dep2p/go-kadugu/internal/tunnel/client"
	"github.com/dep2p/go-kadugu/internal/tunnel/server"
)

// ============================================================================
//                              模块集合
// ============================================================================

// CoreModules 两种模式共用的模块
func CoreModules() fx.Option {
	return fx.Options(
		identity.Module(),
		transport.Module(),
		metrics.Module(),
		relay.Module(),
	)
}

// SharerModules 共享端模块
func SharerModules() fx.Option {
	return fx.Options(
		acl.Module(),
		server.Module(),
	)
}

// UserModules 使用端模块
func UserModules() fx.Option {
	return fx.Options(
		peerstore.Module(),
		client.Module(),
	)
}

// ModulesFor 返回指定模式的全部模块
func ModulesFor(mode Mode) fx.Option {
	switch mode {
	case ModeSharer:
		return fx.Options(CoreModules(), SharerModules())
	default:
		return fx.Options(CoreModules(), UserModules())
	}
}
