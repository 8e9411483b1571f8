package kadugu

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/dep2p/go-kadugu/config"
	"github.com/dep2p/go-kadugu/internal/app"
	"github.com/dep2p/go-kadugu/internal/core/metrics"
	"github.com/dep2p/go-kadugu/pkg/types"
)

// Node kadugu 节点
//
// Node 由 NewSharer 或 NewUser 创建，Start 之后才可使用 ID、地址等查询方法。
type Node struct {
	mode app.Mode
	cfg  *config.Config
	boot *app.Bootstrap

	mu      sync.Mutex
	started bool
	closed  bool
}

// NewSharer 创建共享端节点
func NewSharer(opts ...Option) (*Node, error) {
	o, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}
	if err := o.cfg.ValidateSharer(); err != nil {
		return nil, err
	}
	return newNode(app.ModeSharer, o), nil
}

// NewUser 创建使用端节点，sharer 为共享端 PeerID
func NewUser(sharer string, opts ...Option) (*Node, error) {
	if sharer == "" {
		return nil, ErrNoSharer
	}
	o, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}
	o.cfg.User.SharerPeer = sharer
	if err := o.cfg.ValidateUser(); err != nil {
		return nil, err
	}
	return newNode(app.ModeUser, o), nil
}

// StartSharer 创建并启动共享端节点
func StartSharer(ctx context.Context, opts ...Option) (*Node, error) {
	n, err := NewSharer(opts...)
	if err != nil {
		return nil, err
	}
	if err := n.Start(ctx); err != nil {
		return nil, err
	}
	return n, nil
}

// StartUser 创建并启动使用端节点
func StartUser(ctx context.Context, sharer string, opts ...Option) (*Node, error) {
	n, err := NewUser(sharer, opts...)
	if err != nil {
		return nil, err
	}
	if err := n.Start(ctx); err != nil {
		return nil, err
	}
	return n, nil
}

func applyOptions(opts []Option) (*options, error) {
	o := newOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}
	return o, nil
}

func newNode(mode app.Mode, o *options) *Node {
	var bopts []app.Option
	if o.store != nil {
		bopts = append(bopts, app.WithKeyStore(o.store))
	}
	if o.startTimeout > 0 {
		bopts = append(bopts, app.WithStartTimeout(o.startTimeout))
	}
	if o.stopTimeout > 0 {
		bopts = append(bopts, app.WithStopTimeout(o.stopTimeout))
	}
	return &Node{
		mode: mode,
		cfg:  o.cfg,
		boot: app.NewBootstrap(o.cfg, mode, bopts...),
	}
}

// ============================================================================
//                              生命周期
// ============================================================================

// Start 启动节点
//
// 使用端会先连接共享端并完成身份校验，失败时返回 ErrPeerUnreachable
// 或 ErrIdentityMismatch。节点只能启动一次。
func (n *Node) Start(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.started || n.closed {
		return ErrNodeStarted
	}
	if err := n.boot.Start(ctx); err != nil {
		return err
	}
	n.started = true
	return nil
}

// Stop 停止节点，关闭所有连接与监听
func (n *Node) Stop(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.started {
		return ErrNodeNotStarted
	}
	if n.closed {
		return nil
	}
	n.closed = true
	return n.boot.Stop(ctx)
}

// Close 以后台上下文停止节点
func (n *Node) Close() error {
	err := n.Stop(context.Background())
	if errors.Is(err, ErrNodeNotStarted) {
		return nil
	}
	return err
}

// ============================================================================
//                              查询
// ============================================================================

// IsSharer 是否为共享端
func (n *Node) IsSharer() bool { return n.mode == app.ModeSharer }

// ID 返回本节点 PeerID，启动前为空
func (n *Node) ID() types.PeerID {
	if id := n.boot.Identity(); id != nil {
		return id.PeerID()
	}
	return ""
}

// Protocol 返回安全通道协议
func (n *Node) Protocol() string { return n.cfg.Transport.Protocol }

// ListenAddr 返回共享端实际监听地址，使用端或未启动时为 nil
func (n *Node) ListenAddr() net.Addr {
	if s := n.boot.Server(); s != nil {
		return s.Addr()
	}
	return nil
}

// ProxyAddr 返回使用端本地代理地址，共享端或未启动时为 nil
func (n *Node) ProxyAddr() net.Addr {
	if c := n.boot.Client(); c != nil {
		return c.Addr()
	}
	return nil
}

// Sharer 返回使用端连接的共享端 PeerID
func (n *Node) Sharer() types.PeerID {
	if c := n.boot.Client(); c != nil {
		return c.Sharer()
	}
	return ""
}

// Stats 节点运行统计
type Stats = metrics.Snapshot

// Stats 返回当前运行统计
func (n *Node) Stats() Stats {
	return n.boot.Metrics().Snapshot()
}
