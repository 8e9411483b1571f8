// Package acl 实现共享端的访问控制列表
//
// List 在启动时加载一次，之后只读，因此无需加锁即可被多个连接 goroutine 并发查询。
// 空列表表示允许所有已通过身份校验的节点。
//
// 服务端在 identity.VerifyHandshake 成功之后、接受任何流之前调用 InterceptSecured；
// 被拒绝的连接立即关闭，不会发生任何流、拨号或转发。
package acl

import (
	"fmt"
	"sort"

	"go.uber.org/fx"

	"github.com/dep2p/go-kadugu/config"
	"github.com/dep2p/go-kadugu/pkg/types"
)

// List 授权 PeerID 集合
type List struct {
	allowed map[types.PeerID]struct{}
}

// New 创建访问控制列表
//
// 每个条目必须是合法 PeerID；重复条目被合并。
func New(ids []string) (*List, error) {
	allowed := make(map[types.PeerID]struct{}, len(ids))
	for _, s := range ids {
		id, err := types.ParsePeerID(s)
		if err != nil {
			return nil, fmt.Errorf("acl: entry %q: %w", s, err)
		}
		allowed[id] = struct{}{}
	}
	return &List{allowed: allowed}, nil
}

// AllowAll 返回允许所有节点的列表
func AllowAll() *List {
	return &List{allowed: map[types.PeerID]struct{}{}}
}

// IsAllowed 检查节点是否被授权
//
// 集合为空时无条件返回 true。
func (l *List) IsAllowed(id types.PeerID) bool {
	if len(l.allowed) == 0 {
		return true
	}
	_, ok := l.allowed[id]
	return ok
}

// InterceptSecured 在安全握手与身份校验之后拦截连接
//
// 被拒绝时返回包装 types.ErrACLRejected 的错误。
func (l *List) InterceptSecured(id types.PeerID) error {
	if l.IsAllowed(id) {
		return nil
	}
	return fmt.Errorf("%w: %s", types.ErrACLRejected, id)
}

// Len 返回授权条目数，0 表示允许所有节点
func (l *List) Len() int {
	return len(l.allowed)
}

// IDs 返回排序后的授权条目
func (l *List) IDs() []types.PeerID {
	ids := make([]types.PeerID, 0, len(l.allowed))
	for id := range l.allowed {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ============================================================================
//                              Fx 模块
// ============================================================================

// ModuleInput 定义模块输入依赖
type ModuleInput struct {
	fx.In

	Config *config.Config
}

// ProvideList 从共享端配置构建访问控制列表
func ProvideList(input ModuleInput) (*List, error) {
	return New(input.Config.Sharer.AllowedPeers)
}

// Module 返回 fx 模块配置
func Module() fx.Option {
	return fx.Module("acl",
		fx.Provide(ProvideList),
	)
}
